package check

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/expansiontools/marketcheck/pkg/market"
)

// relationalPass is the second full traversal, run once the index covers
// the entire document set: variant claims, attachment references, and
// trader category lists are resolved against it.
func (c *Checker) relationalPass() {
	for _, root := range c.store.Roots() {
		missing := newMissingQueue()

		for _, doc := range c.store.Documents(root) {
			if doc.Object() == nil {
				continue
			}
			if doc.IsTrader() {
				c.checkTrader(doc)
				continue
			}

			raw, _ := doc.Object().Get("Items")
			items, ok := raw.([]any)
			if !ok {
				continue
			}
			for _, entry := range snapshot(items) {
				if item, isObj := entry.(*market.Object); isObj {
					c.checkItemRelations(doc, item, missing)
				}
			}
		}

		if missing.hasItems() {
			c.store.AddGenerated(root, missing.document())
		}
	}
}

func (c *Checker) checkItemRelations(doc *market.Document, item *market.Object, missing *missingQueue) {
	variants, _ := listField(item, "Variants")
	for _, raw := range snapshot(variants) {
		if v, ok := raw.(string); ok {
			c.checkVariant(doc, item, lower(v))
		}
	}

	c.checkAttachments(doc, item, missing)
}

// checkVariant applies the variant defect catalog to one claimed name, in
// order: self-claims, variant-of-a-variant, duplicate claims by the same
// parent, multi-parent claims, cross-category residence. The claim list is
// reduced as defects are handled (confirmed or not) so the same name is
// not re-reported through every claiming parent.
func (c *Checker) checkVariant(doc *market.Document, item *market.Object, variantLower string) {
	k := key(doc)
	claims := c.index.Claims(variantLower)

	// Self-claims go first; counting for the duplicate-claim check covers
	// only the rest.
	var remaining []string
	var parentOrder []string
	counts := make(map[string]int)
	for _, parentLower := range claims {
		if parentLower == variantLower {
			issue := c.ledger.Add(k, fmt.Sprintf("[W] '%s' lists itself as a variant", variantLower), false)
			if c.confirmFix(doc, issue) {
				// The claimer is the item named variantLower itself.
				if selfItem, ok := c.index.Item(variantLower); ok {
					updateVariants(selfItem, variantLower, false)
				} else {
					updateVariants(item, variantLower, false)
				}
			}
			continue
		}
		remaining = append(remaining, parentLower)
		if counts[parentLower] == 0 {
			parentOrder = append(parentOrder, parentLower)
		}
		counts[parentLower]++
	}

	// A name that is itself a parent with its own variants must not also
	// be claimed as someone else's variant; the wrongful claim is the one
	// removed.
	if varItem, ok := c.index.Item(variantLower); ok && listLen(varItem, "Variants") > 0 {
		for _, parentLower := range remaining {
			issue := c.ledger.Add(k, fmt.Sprintf("[W] '%s' lists own variants but is a variant of '%s'", variantLower, parentLower), false)
			if c.confirmFix(doc, issue) {
				if parentItem, ok := c.index.Item(parentLower); ok {
					updateVariants(parentItem, variantLower, false)
				}
			}
		}
	}

	if len(remaining) > 1 {
		for _, parentLower := range parentOrder {
			n := counts[parentLower]
			if n <= 1 {
				continue
			}
			issue := c.ledger.Add(k, fmt.Sprintf("[E] '%s' lists variant '%s' %d times", parentLower, variantLower, n), true)
			remaining = removeOccurrences(remaining, parentLower, n-1)
			if c.confirmFix(doc, issue) {
				if parentItem, ok := c.index.Item(parentLower); ok {
					updateVariants(parentItem, variantLower, true)
				}
			}
		}

		if len(remaining) > 1 {
			issue := c.ledger.Add(k, fmt.Sprintf("[E] '%s' is a variant of more than one item:\n      '%s'", variantLower, strings.Join(remaining, "', '")), true)
			if c.confirmFix(doc, issue) {
				for _, parentLower := range remaining[1:] {
					if parentItem, ok := c.index.Item(parentLower); ok {
						updateVariants(parentItem, variantLower, false)
					}
				}
			}
			remaining = remaining[:1]
		}
	}

	if len(remaining) > 0 {
		if varDoc := c.index.Doc(variantLower); varDoc != nil && varDoc != doc {
			issue := c.ledger.Add(k, fmt.Sprintf("[E] Variant '%s' of '%s' is in a different category '%s'", variantLower, remaining[0], varDoc.Path), true)
			if c.confirmFix(doc, issue) {
				// Move the variant's full item record into the claiming
				// parent's document.
				varItem, _ := c.index.Item(variantLower)
				removeItemFromDoc(varDoc, varItem)
				c.store.MarkModified(varDoc)
				appendItemToDoc(doc, varItem)
				c.index.SetDoc(variantLower, doc)
			}
		}
	}

	c.index.SetClaims(variantLower, remaining)
}

// checkAttachments normalizes attachment names and resolves each against
// the index; unresolved names queue a placeholder item for synthesis.
func (c *Checker) checkAttachments(doc *market.Document, item *market.Object, missing *missingQueue) {
	k := key(doc)
	name := className(item)

	attachments, ok := listField(item, "SpawnAttachments")
	if !ok {
		return
	}

	out := make([]any, 0, len(attachments))
	changed := false
	for _, raw := range attachments {
		a, isStr := raw.(string)
		if !isStr || strings.TrimSpace(a) == "" {
			issue := c.ledger.Add(k, fmt.Sprintf("[E] Empty attachment for item `%s` in '%s'", name, doc.Path), false)
			if c.confirmFix(doc, issue) {
				changed = true
				continue
			}
			if !isStr {
				out = append(out, raw)
				continue
			}
		}

		if decoded := c.fixNonASCII(doc, a); decoded != a {
			changed = true
			a = decoded
		}
		out = append(out, a)

		attachmentLower := lower(a)
		if c.index.HasItem(attachmentLower) || c.index.HasVariant(attachmentLower) || missing.seen(attachmentLower) {
			continue
		}

		issue := c.ledger.Add(k, fmt.Sprintf("[E] Attachment '%s' on %s does not exist in market", a, name), false)
		if c.confirmFix(doc, issue) {
			missing.add(attachmentLower, placeholderItem(a))
		} else {
			// Remember the decline so the same attachment is not
			// re-flagged this run.
			missing.decline(attachmentLower)
		}
	}
	if changed {
		item.Set("SpawnAttachments", out)
	}
}

// missingQueue collects placeholder items for unresolved attachments, one
// queue per collection root, in first-seen order.
type missingQueue struct {
	order []string
	items map[string]*market.Object // nil value records a declined fix
}

func newMissingQueue() *missingQueue {
	return &missingQueue{items: make(map[string]*market.Object)}
}

func (q *missingQueue) seen(nameLower string) bool {
	_, ok := q.items[nameLower]
	return ok
}

func (q *missingQueue) add(nameLower string, item *market.Object) {
	q.order = append(q.order, nameLower)
	q.items[nameLower] = item
}

func (q *missingQueue) decline(nameLower string) {
	q.order = append(q.order, nameLower)
	q.items[nameLower] = nil
}

func (q *missingQueue) hasItems() bool {
	for _, name := range q.order {
		if q.items[name] != nil {
			return true
		}
	}
	return false
}

// document builds the generated market document holding the queued
// placeholder items.
func (q *missingQueue) document() *market.Object {
	items := []any{}
	for _, name := range q.order {
		if item := q.items[name]; item != nil {
			items = append(items, item)
		}
	}

	doc := market.NewObject()
	doc.Set("m_Version", json.Number("12"))
	doc.Set("DisplayName", "Missing attachments added by the Expansion Market and Trader configuration checker (marketcheck)")
	doc.Set("Icon", "")
	doc.Set("Color", "")
	doc.Set("IsExchange", json.Number("0"))
	doc.Set("InitStockPercent", json.Number("75"))
	doc.Set("Items", items)
	return doc
}

// placeholderItem synthesizes a zero-threshold item record for an
// attachment name that resolves nowhere.
func placeholderItem(name string) *market.Object {
	item := market.NewObject()
	item.Set("ClassName", name)
	item.Set("MaxPriceThreshold", json.Number("0"))
	item.Set("MinPriceThreshold", json.Number("0"))
	item.Set("SellPricePercent", json.Number("0.0"))
	item.Set("MaxStockThreshold", json.Number("1"))
	item.Set("MinStockThreshold", json.Number("1"))
	item.Set("QuantityPercent", json.Number("-1"))
	item.Set("SpawnAttachments", []any{})
	item.Set("Variants", []any{})
	return item
}

// removeOccurrences drops up to n occurrences of value from list.
func removeOccurrences(list []string, value string, n int) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if n > 0 && v == value {
			n--
			continue
		}
		out = append(out, v)
	}
	return out
}
