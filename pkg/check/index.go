package check

import (
	"strings"

	"github.com/expansiontools/marketcheck/pkg/market"
)

// Index is the relationship index derived from the whole document set:
// lowercased identity to owning item record and document, and lowercased
// variant name to the ordered list of parent identities claiming it. It is
// discarded and rebuilt wholesale at the start of every pass, never
// patched incrementally.
type Index struct {
	items    map[string]*market.Object
	itemDocs map[string]*market.Document
	claims   map[string][]string
}

// NewIndex creates an empty relationship index.
func NewIndex() *Index {
	return &Index{
		items:    make(map[string]*market.Object),
		itemDocs: make(map[string]*market.Document),
		claims:   make(map[string][]string),
	}
}

// RegisterItem records the owning record and document for an identity.
func (ix *Index) RegisterItem(nameLower string, item *market.Object, doc *market.Document) {
	ix.items[nameLower] = item
	ix.itemDocs[nameLower] = doc
}

// Item returns the item record registered for an identity.
func (ix *Index) Item(nameLower string) (*market.Object, bool) {
	item, ok := ix.items[nameLower]
	return item, ok
}

// HasItem reports whether an identity is registered.
func (ix *Index) HasItem(nameLower string) bool {
	_, ok := ix.items[nameLower]
	return ok
}

// Doc returns the document owning an identity, or nil.
func (ix *Index) Doc(nameLower string) *market.Document {
	return ix.itemDocs[nameLower]
}

// SetDoc re-homes an identity to a different document, used after a
// cross-category move so the rest of the pass sees the new residence.
func (ix *Index) SetDoc(nameLower string, doc *market.Document) {
	if _, ok := ix.items[nameLower]; ok {
		ix.itemDocs[nameLower] = doc
	}
}

// AddClaim appends a parent identity to a variant name's claim list.
func (ix *Index) AddClaim(variantLower, parentLower string) {
	ix.claims[variantLower] = append(ix.claims[variantLower], parentLower)
}

// Claims returns the parent identities claiming a variant name, in claim
// order. Detectors reduce this list as they resolve claims; the reduced
// list is written back with SetClaims so the same defect is not reported
// once per claiming parent.
func (ix *Index) Claims(variantLower string) []string {
	return ix.claims[variantLower]
}

// SetClaims replaces a variant name's claim list.
func (ix *Index) SetClaims(variantLower string, parents []string) {
	if len(parents) == 0 {
		delete(ix.claims, variantLower)
		return
	}
	ix.claims[variantLower] = parents
}

// HasVariant reports whether any parent claims the variant name.
func (ix *Index) HasVariant(variantLower string) bool {
	return len(ix.claims[variantLower]) > 0
}

// RemoveClaim drops one occurrence of parentLower from a variant's claim
// list, used when a duplicate item loses and its registrations must not
// survive into the relational pass.
func (ix *Index) RemoveClaim(variantLower, parentLower string) {
	parents := ix.claims[variantLower]
	for i, p := range parents {
		if p == parentLower {
			ix.SetClaims(variantLower, append(parents[:i:i], parents[i+1:]...))
			return
		}
	}
}

// updateVariants rebuilds an item's Variants list without entries matching
// variantLower (case-insensitive). With keepOne, the first matching entry
// survives, collapsing duplicate claims to a single occurrence.
func updateVariants(item *market.Object, variantLower string, keepOne bool) {
	raw, _ := item.Get("Variants")
	list, ok := raw.([]any)
	if !ok {
		return
	}

	out := make([]any, 0, len(list))
	for _, entry := range list {
		s, isStr := entry.(string)
		if isStr && strings.ToLower(s) == variantLower && !keepOne {
			continue
		}
		if isStr && strings.ToLower(s) == variantLower {
			keepOne = false
		}
		out = append(out, entry)
	}
	item.Set("Variants", out)
}
