package check

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/expansiontools/marketcheck/pkg/market"
)

// traderState carries one trader document's walk: its referenced category
// names (growing as missing ones are appended), its directly listed item
// names, and the items already walked to guard against attachment cycles.
type traderState struct {
	doc        *market.Document
	catsLower  []string
	itemsLower []string
	visited    map[string]bool
}

// checkTrader validates a trader document: prunes item entries that
// resolve nowhere, then walks every referenced category's items through
// their variant and attachment chains, appending any category that
// transitively supplies a sold item but is absent from the list.
func (c *Checker) checkTrader(doc *market.Document) {
	k := key(doc)
	obj := doc.Object()

	rawCats, _ := obj.Get("Categories")
	cats, ok := rawCats.([]any)
	if !ok {
		return
	}

	state := &traderState{doc: doc, visited: make(map[string]bool)}
	for _, raw := range cats {
		s, _ := raw.(string)
		name := s
		if i := strings.Index(s, ":"); i >= 0 {
			name = s[:i]
		}
		state.catsLower = append(state.catsLower, lower(name))
	}

	if rawItems, ok := obj.Get("Items"); ok {
		if traderItems, isObj := rawItems.(*market.Object); isObj {
			for _, name := range slices.Clone(traderItems.Keys()) {
				nameLower := lower(name)
				if !c.index.HasItem(nameLower) && !c.index.HasVariant(nameLower) {
					issue := c.ledger.Add(k, fmt.Sprintf("[E] Item '%s' does not exist in market", name), true)
					if c.confirmFix(doc, issue) {
						traderItems.Delete(name)
						continue
					}
				}
				state.itemsLower = append(state.itemsLower, nameLower)
			}
		}
	}

	// Categories appended during the walk are themselves walked, so the
	// loop runs over a growing list.
	for i := 0; i < len(state.catsLower); i++ {
		categoryLower := state.catsLower[i]
		for _, root := range c.store.Roots() {
			catDoc := c.store.ByCategory(root, categoryLower)
			if catDoc == nil || catDoc.Object() == nil || catDoc.IsTrader() {
				continue
			}

			raw, _ := catDoc.Object().Get("Items")
			items, ok := raw.([]any)
			if !ok {
				continue
			}
			for _, entry := range items {
				if item, isObj := entry.(*market.Object); isObj {
					c.walkTraderItem(state, item, 1, false, false)
				}
			}
		}
	}
}

// walkTraderItem recurses through an item's variants and attachments,
// checking each reached name. Names carry the buy/sell code they inherit
// from how they were reached: 1 for category-listed items, 3 once the walk
// is inside an attachment chain. Attachment chains can be cyclic in broken
// data, so each item is walked at most once per trader.
func (c *Checker) walkTraderItem(state *traderState, item *market.Object, buySell int, isVariant, isAttachment bool) {
	nameLower := lower(className(item))
	if state.visited[nameLower] {
		return
	}
	state.visited[nameLower] = true

	for _, variantName := range listOfStrings(item, "Variants") {
		c.checkTraderCategory(state, variantName, buySell, true, isAttachment)
	}

	for _, attachmentName := range listOfStrings(item, "SpawnAttachments") {
		attachmentLower := lower(attachmentName)
		attachmentIsVariant := c.index.HasVariant(attachmentLower)

		c.checkTraderCategory(state, attachmentName, 3, attachmentIsVariant, true)

		if attachmentItem, ok := c.index.Item(attachmentLower); ok {
			c.walkTraderItem(state, attachmentItem, 3, attachmentIsVariant, true)
		}
	}
}

// checkTraderCategory flags the category owning a reached name when it is
// missing from the trader's list. Only names reached as attachments that
// resolve as variants require their parent's category; directly sold
// items and plain variants are already covered by the listed categories.
func (c *Checker) checkTraderCategory(state *traderState, itemName string, buySell int, isVariant, isAttachment bool) {
	if !isVariant || !isAttachment {
		return
	}

	k := key(state.doc)
	for _, parentLower := range c.index.Claims(lower(itemName)) {
		if slices.Contains(state.itemsLower, parentLower) {
			return
		}

		parentDoc := c.index.Doc(parentLower)
		if parentDoc == nil {
			continue
		}

		category := strings.TrimSuffix(parentDoc.Path, filepath.Ext(parentDoc.Path))
		category = filepath.ToSlash(category)
		categoryLower := lower(category)

		if slices.Contains(state.catsLower, categoryLower) {
			continue
		}

		issue := c.ledger.Add(k, fmt.Sprintf("[E] Category '%s' is missing from trader '%s'", category, state.doc.Path), true)
		// Record the name regardless of confirmation so the same category
		// is not re-flagged during this trader's walk.
		state.catsLower = append(state.catsLower, categoryLower)

		if c.confirmFix(state.doc, issue) {
			obj := state.doc.Object()
			rawCats, _ := obj.Get("Categories")
			if cats, ok := rawCats.([]any); ok {
				obj.Set("Categories", append(cats, fmt.Sprintf("%s:%d", category, buySell)))
			}
		}
	}
}
