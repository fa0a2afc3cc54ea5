package market

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"

	"github.com/expansiontools/marketcheck/pkg/errors"
	"github.com/expansiontools/marketcheck/pkg/logging"
)

// Store holds every loaded document, keyed by (root, relative path) and by
// (root, lowercased category). Documents are enumerated in a deterministic
// order: roots sorted lexically, files in sorted walk order. The duplicate
// and multi-parent "first wins" rules depend on this order.
type Store struct {
	roots      []string
	docs       map[string][]*Document
	byPath     map[string]map[string]*Document
	byCategory map[string]map[string]*Document

	modified map[string]*Document
	modOrder []string

	filesCount int
}

// NewStore creates an empty document store.
func NewStore() *Store {
	return &Store{
		docs:       make(map[string][]*Document),
		byPath:     make(map[string]map[string]*Document),
		byCategory: make(map[string]map[string]*Document),
		modified:   make(map[string]*Document),
	}
}

// LoadRoot recursively discovers *.json files under root and decodes each
// into a Document. A file that cannot be read or decoded is logged and
// skipped; it contributes zero items and does not abort the load. The
// returned error covers only the root itself being unusable.
func (s *Store) LoadRoot(ctx context.Context, root string) error {
	log := logging.FromContext(ctx)

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("path does not exist: %s: %w", root, errors.ErrNotFound)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %w", root, errors.ErrNotADirectory)
	}

	log.Info().Str("folder", root).Msg("Recursively looking for JSON files")

	count := 0
	err = godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			if de.IsDir() || !strings.HasSuffix(strings.ToLower(de.Name()), ".json") {
				return nil
			}

			data, err := os.ReadFile(osPathname)
			if err != nil {
				log.Error().Err(err).Str("file", osPathname).Msg("Error reading file")
				return nil
			}

			content, err := Decode(data)
			if err != nil {
				log.Error().Err(errors.WrapParse("json", osPathname, err)).Msg("Error processing file")
				return nil
			}

			rel, err := filepath.Rel(root, osPathname)
			if err != nil {
				return err
			}

			s.add(NewDocument(root, rel, content))
			s.filesCount++
			count++
			return nil
		},
		ErrorCallback: func(path string, err error) godirwalk.ErrorAction {
			log.Error().Err(err).Str("path", path).Msg("Error walking directory")
			return godirwalk.SkipNode
		},
	})
	if err != nil {
		return errors.WrapIO("walk", root, err)
	}

	log.Info().Int("files", count).Str("folder", root).Msg("Found files")
	return nil
}

// add registers a document under its root, path, and category keys.
func (s *Store) add(doc *Document) {
	if _, ok := s.docs[doc.Root]; !ok {
		s.roots = append(s.roots, doc.Root)
		sort.Strings(s.roots)
		s.byPath[doc.Root] = make(map[string]*Document)
		s.byCategory[doc.Root] = make(map[string]*Document)
	}
	s.docs[doc.Root] = append(s.docs[doc.Root], doc)
	s.byPath[doc.Root][doc.Path] = doc
	s.byCategory[doc.Root][doc.Category] = doc
}

// Roots returns the loaded collection roots in sorted order.
func (s *Store) Roots() []string {
	return s.roots
}

// Documents returns the documents under root in discovery order.
func (s *Store) Documents(root string) []*Document {
	return s.docs[root]
}

// Get returns the document at (root, relPath), or nil.
func (s *Store) Get(root, relPath string) *Document {
	return s.byPath[root][relPath]
}

// ByCategory returns the document with the given lowercased category name
// under root, or nil.
func (s *Store) ByCategory(root, categoryLower string) *Document {
	return s.byCategory[root][categoryLower]
}

// FilesCount returns the total number of loaded documents.
func (s *Store) FilesCount() int {
	return s.filesCount
}

// MarkModified records that a document needs to be persisted.
func (s *Store) MarkModified(doc *Document) {
	full := doc.FullPath()
	if _, ok := s.modified[full]; !ok {
		s.modOrder = append(s.modOrder, full)
	}
	s.modified[full] = doc
}

// Modified returns the documents pending persistence, in the order they
// were first marked.
func (s *Store) Modified() []*Document {
	out := make([]*Document, 0, len(s.modOrder))
	for _, path := range s.modOrder {
		out = append(out, s.modified[path])
	}
	return out
}

// HasModified reports whether any document is pending persistence.
func (s *Store) HasModified() bool {
	return len(s.modified) > 0
}

// AddGenerated registers a new document created by the checker (for
// synthesized placeholder items), picking the first Missing_Attachments_<n>
// filename not already present, and marks it modified.
func (s *Store) AddGenerated(root string, content *Object) *Document {
	for n := 1; ; n++ {
		relPath := fmt.Sprintf("Missing_Attachments_%d.json", n)
		if s.Get(root, relPath) != nil {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, relPath)); err == nil {
			continue
		}
		doc := NewDocument(root, relPath, content)
		s.add(doc)
		s.MarkModified(doc)
		return doc
	}
}
