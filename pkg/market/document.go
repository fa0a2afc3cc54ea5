// Package market models Expansion Market and Traders configuration
// documents and the on-disk store they are loaded from.
package market

import (
	"path/filepath"
	"strings"
)

// Document is one JSON file from a collection root. Content is mutated in
// place by repairs and written back only when the document is in the
// store's modified set.
type Document struct {
	// Root is the collection root folder the document was discovered under.
	Root string

	// Path is the file path relative to Root.
	Path string

	// Category is the lowercased Path with the .json extension stripped.
	// Trader category entries reference market documents by this name.
	Category string

	// Content is the decoded document, usually *Object. Non-object
	// content is a structural defect left for the validator to handle.
	Content any
}

// NewDocument creates a Document for a file at root/relPath.
func NewDocument(root, relPath string, content any) *Document {
	stem := strings.TrimSuffix(relPath, filepath.Ext(relPath))
	return &Document{
		Root:     root,
		Path:     relPath,
		Category: strings.ToLower(filepath.ToSlash(stem)),
		Content:  content,
	}
}

// Object returns the content as an ordered object, or nil when the
// document body is not a JSON object.
func (d *Document) Object() *Object {
	obj, _ := d.Content.(*Object)
	return obj
}

// IsTrader reports whether the document is a trader document, which is
// determined by the presence of a Categories key.
func (d *Document) IsTrader() bool {
	obj := d.Object()
	if obj == nil {
		return false
	}
	_, ok := obj.Get("Categories")
	return ok
}

// Items returns the Items value, which is a []any for market documents
// and an *Object (name to buy/sell flag) for trader documents.
func (d *Document) Items() (any, bool) {
	obj := d.Object()
	if obj == nil {
		return nil, false
	}
	return obj.Get("Items")
}

// FullPath returns the absolute on-disk path of the document.
func (d *Document) FullPath() string {
	return filepath.Join(d.Root, d.Path)
}

// DisplayPath returns the short folder/relative form used in reports,
// e.g. "Market/Weapons.json".
func (d *Document) DisplayPath() string {
	return filepath.Base(d.Root) + "/" + filepath.ToSlash(d.Path)
}
