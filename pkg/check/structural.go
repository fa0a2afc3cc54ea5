package check

import (
	"fmt"
	"strings"

	"github.com/expansiontools/marketcheck/pkg/market"
	"github.com/expansiontools/marketcheck/pkg/translit"
)

// docPass tracks item removals for the document currently being traversed.
// A duplicate resolution can drop either the current item or an item
// earlier in the same list, so removals are collected and the Items list
// rebuilt once at the end.
type docPass struct {
	dropIdx map[int]bool
	dropPtr map[*market.Object]bool
}

func newDocPass() *docPass {
	return &docPass{dropIdx: make(map[int]bool), dropPtr: make(map[*market.Object]bool)}
}

func (p *docPass) empty() bool {
	return len(p.dropIdx) == 0 && len(p.dropPtr) == 0
}

// structuralPass is the first full traversal: document shape checks, name
// normalization, duplicate identity resolution, and population of the
// relationship index. Roots are sorted and documents kept in discovery
// order, so "first occurrence" is deterministic.
func (c *Checker) structuralPass() {
	for _, root := range c.store.Roots() {
		for _, doc := range c.store.Documents(root) {
			c.checkDocumentShape(doc)
		}
	}
}

func (c *Checker) checkDocumentShape(doc *market.Document) {
	k := key(doc)

	obj := doc.Object()
	if obj == nil {
		issue := c.ledger.Add(k, fmt.Sprintf("[E] CRITICAL: Data in '%s' is not a JSON object. Removing.", doc.Path), true)
		if c.confirmFix(doc, issue) {
			doc.Content = market.NewObject()
		}
		return
	}

	if categories, ok := obj.Get("Categories"); ok {
		// Trader document. Only its container shapes are checked here; the
		// relational pass validates the references.
		if _, isList := categories.([]any); !isList {
			issue := c.ledger.Add(k, fmt.Sprintf("[E] CRITICAL: Categories in '%s' is not a JSON list. Removing.", doc.Path), true)
			if c.confirmFix(doc, issue) {
				obj.Set("Categories", []any{})
			}
		}
		if items, ok := obj.Get("Items"); ok {
			if _, isObj := items.(*market.Object); !isObj {
				issue := c.ledger.Add(k, fmt.Sprintf("[E] CRITICAL: Items in '%s' is not a JSON object. Removing.", doc.Path), true)
				if c.confirmFix(doc, issue) {
					obj.Set("Items", market.NewObject())
				}
			}
		}
		return
	}

	rawItems, ok := obj.Get("Items")
	if !ok {
		return
	}

	items, isList := rawItems.([]any)
	if !isList {
		issue := c.ledger.Add(k, fmt.Sprintf("[E] CRITICAL: Items in '%s' is not a JSON list. Removing.", doc.Path), true)
		if c.confirmFix(doc, issue) {
			obj.Set("Items", []any{})
		}
		return
	}

	// A known hand-editing mistake wraps the whole item list in another
	// list; unwrap it.
	if len(items) > 0 {
		if nested, isNested := items[0].([]any); isNested && len(nested) > 0 {
			if _, isObj := nested[0].(*market.Object); isObj {
				issue := c.ledger.Add(k, fmt.Sprintf("[E] CRITICAL: Items in '%s' are improperly nested.", doc.Path), true)
				if c.confirmFix(doc, issue) {
					items = nested
					obj.Set("Items", items)
				}
			}
		}
	}

	pass := newDocPass()
	snap := snapshot(items)
	for i, raw := range snap {
		item, isObj := raw.(*market.Object)
		if !isObj {
			issue := c.ledger.Add(k, fmt.Sprintf("[E] CRITICAL: Item %d in '%s' is not a JSON object. Removing.", i, doc.Path), true)
			if c.confirmFix(doc, issue) {
				pass.dropIdx[i] = true
			}
			continue
		}

		if c.checkItemShape(doc, item, pass) {
			pass.dropIdx[i] = true
		}
	}

	if !pass.empty() {
		kept := make([]any, 0, len(snap))
		for i, raw := range snap {
			if pass.dropIdx[i] {
				continue
			}
			if item, isObj := raw.(*market.Object); isObj && pass.dropPtr[item] {
				continue
			}
			kept = append(kept, raw)
		}
		obj.Set("Items", kept)
	}
}

// checkItemShape validates one item record and registers it in the
// relationship index. It returns true when the current item should be
// removed from its document.
func (c *Checker) checkItemShape(doc *market.Document, item *market.Object, pass *docPass) (drop bool) {
	k := key(doc)

	name := className(item)
	if strings.TrimSpace(name) == "" {
		issue := c.ledger.Add(k, fmt.Sprintf("[E] Item with empty ClassName in '%s'", doc.Path), false)
		return c.confirmFix(doc, issue)
	}

	if decoded := c.fixNonASCII(doc, name); decoded != name {
		name = decoded
		item.Set("ClassName", name)
	}
	nameLower := lower(name)

	variants, ok := listField(item, "Variants")
	if !ok {
		issue := c.ledger.Add(k, fmt.Sprintf("[E] CRITICAL: Variants of item %s in '%s' is not a JSON list. Removing.", name, doc.Path), true)
		if c.confirmFix(doc, issue) {
			item.Set("Variants", []any{})
		}
		// Skip further processing of this item for this pass.
		return false
	}

	attachments, ok := listField(item, "SpawnAttachments")
	if !ok {
		issue := c.ledger.Add(k, fmt.Sprintf("[E] CRITICAL: Attachments of item %s in '%s' is not a JSON list. Removing.", name, doc.Path), true)
		if c.confirmFix(doc, issue) {
			item.Set("SpawnAttachments", []any{})
		}
		return false
	}

	if existing, exists := c.index.Item(nameLower); exists {
		return c.resolveDuplicate(doc, item, nameLower, existing, len(variants)+len(attachments), pass)
	}

	c.index.RegisterItem(nameLower, item, doc)
	c.registerVariants(doc, item, nameLower, variants)
	return false
}

// resolveDuplicate handles an identity already registered by an earlier
// occurrence. The occurrence with the larger combined variant + attachment
// count is kept; a tie keeps the one registered first. Returns true when
// the current item lost and should be removed.
func (c *Checker) resolveDuplicate(doc *market.Document, item *market.Object, nameLower string, existing *market.Object, newCount int, pass *docPass) bool {
	existingDoc := c.index.Doc(nameLower)
	existingCount := listLen(existing, "Variants") + listLen(existing, "SpawnAttachments")

	newWins := existingCount < newCount

	loserDoc := doc
	if newWins {
		loserDoc = existingDoc
	}

	issue := c.ledger.Add(key(loserDoc), fmt.Sprintf("[E] '%s' is a duplicate", nameLower), true)
	if !c.confirmFix(loserDoc, issue) {
		return false
	}

	if !newWins {
		return true
	}

	// The registered occurrence loses: remove it, drop its variant claims,
	// and register the richer new occurrence in its place.
	if existingDoc == doc {
		pass.dropPtr[existing] = true
	} else {
		removeItemFromDoc(existingDoc, existing)
	}
	for _, v := range listOfStrings(existing, "Variants") {
		c.index.RemoveClaim(lower(v), nameLower)
	}
	c.index.RegisterItem(nameLower, item, doc)
	variants, _ := listField(item, "Variants")
	c.registerVariants(doc, item, nameLower, variants)
	return false
}

// registerVariants normalizes an item's variant names and appends the
// owning identity to each name's claim list.
func (c *Checker) registerVariants(doc *market.Document, item *market.Object, nameLower string, variants []any) {
	k := key(doc)

	out := make([]any, 0, len(variants))
	changed := false
	for _, raw := range variants {
		v, isStr := raw.(string)
		if !isStr || strings.TrimSpace(v) == "" {
			issue := c.ledger.Add(k, fmt.Sprintf("[E] Empty variant for item `%s` in '%s'", className(item), doc.Path), false)
			if c.confirmFix(doc, issue) {
				changed = true
				continue
			}
			if !isStr {
				out = append(out, raw)
				continue
			}
		}

		if decoded := c.fixNonASCII(doc, v); decoded != v {
			changed = true
			v = decoded
		}

		out = append(out, v)
		c.index.AddClaim(lower(v), nameLower)
	}
	if changed {
		item.Set("Variants", out)
	}
}

// fixNonASCII transliterates a name through the ASCII folding service and,
// when the result differs, offers the replacement.
func (c *Checker) fixNonASCII(doc *market.Document, name string) string {
	decoded := translit.Fold(name)
	if decoded == name {
		return name
	}

	issue := c.ledger.Add(key(doc), fmt.Sprintf("[E] Non-ASCII characters in '%s'", name), false)
	if c.confirmFix(doc, issue) {
		return decoded
	}
	return name
}

// listOfStrings returns the string entries of a list field.
func listOfStrings(item *market.Object, field string) []string {
	list, _ := listField(item, field)
	out := make([]string, 0, len(list))
	for _, raw := range list {
		if s, ok := raw.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
