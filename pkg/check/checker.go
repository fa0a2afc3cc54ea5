// Package check implements the cross-document consistency engine: the
// relationship index built from every loaded document, the defect catalog
// it detects, the repairs it can apply, and the convergence loop that
// re-runs validation until the document set reaches a fixed point.
package check

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"

	"github.com/expansiontools/marketcheck/pkg/logging"
	"github.com/expansiontools/marketcheck/pkg/market"
)

// MaxPasses bounds the convergence loop. A repair in one area can expose a
// defect that only the next full pass evaluates correctly, so passes repeat
// while fixes still land, but never unbounded.
const MaxPasses = 10

// Checker validates and repairs a loaded document set. Per-pass state (the
// relationship index and the issue ledger) is rebuilt from scratch on every
// Run; only the store and the configured confirmer persist across passes.
type Checker struct {
	store     *market.Store
	confirmer Confirmer

	// per-pass state
	mode   Mode
	index  *Index
	ledger *Ledger
	log    *zerolog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithConfirmer sets the collaborator answering interactive confirmations.
func WithConfirmer(confirmer Confirmer) Option {
	return func(c *Checker) {
		c.confirmer = confirmer
	}
}

// New creates a Checker over the given document store.
func New(store *market.Store, opts ...Option) *Checker {
	c := &Checker{store: store}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result is the outcome of one full validation pass.
type Result struct {
	Ledger *Ledger
	Issues int
	Fixed  int
}

// Run performs one full two-pass validation of the whole document set in
// the given mode: the structural pass rebuilds the relationship index, the
// relational pass walks variants, attachments, and trader category lists
// against it. A panic inside a pass is recovered and returned as an error
// carrying the stack trace; it is never silently swallowed.
func (c *Checker) Run(ctx context.Context, mode Mode) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error during %s pass: %v\n%s", mode, r, debug.Stack())
		}
	}()

	c.mode = mode
	c.index = NewIndex()
	c.ledger = NewLedger()
	c.log = logging.FromContext(ctx)

	c.structuralPass()
	c.relationalPass()

	return &Result{
		Ledger: c.ledger,
		Issues: c.ledger.Total(),
		Fixed:  c.ledger.Fixed(),
	}, nil
}

// Converge repeats batch-mode passes while the previous pass still fixed
// anything, bounded by MaxPasses. It returns the last pass's result and
// the number of passes performed.
func (c *Checker) Converge(ctx context.Context) (*Result, int, error) {
	log := logging.FromContext(ctx)

	var last *Result
	passes := 0
	for passes < MaxPasses {
		log.Info().Int("pass", passes+1).Msg("Doing additional pass...")

		result, err := c.Run(ctx, ModeBatch)
		if err != nil {
			return last, passes, err
		}
		last = result
		passes++

		if result.Fixed == 0 {
			break
		}
	}
	return last, passes, nil
}

// key returns the ledger key for a document.
func key(doc *market.Document) Key {
	return Key{Root: doc.Root, Path: doc.Path}
}

// className returns an item's ClassName, or "" when missing or not a string.
func className(item *market.Object) string {
	raw, _ := item.Get("ClassName")
	s, _ := raw.(string)
	return s
}

// listField returns the named field as a list. A missing field reads as an
// empty list; a present non-list field reports ok=false so the caller can
// flag the shape defect.
func listField(item *market.Object, field string) ([]any, bool) {
	raw, ok := item.Get(field)
	if !ok {
		return nil, true
	}
	list, isList := raw.([]any)
	return list, isList
}

// listLen is listField for counting only; wrong-shaped fields count zero.
func listLen(item *market.Object, field string) int {
	list, _ := listField(item, field)
	return len(list)
}

// removeItemFromDoc drops the first occurrence of item (by identity) from
// the document's Items list.
func removeItemFromDoc(doc *market.Document, item *market.Object) {
	obj := doc.Object()
	if obj == nil {
		return
	}
	raw, _ := obj.Get("Items")
	items, ok := raw.([]any)
	if !ok {
		return
	}
	for i, entry := range items {
		if entry == any(item) {
			obj.Set("Items", append(items[:i:i], items[i+1:]...))
			return
		}
	}
}

// appendItemToDoc appends an item record to the document's Items list.
func appendItemToDoc(doc *market.Document, item *market.Object) {
	obj := doc.Object()
	if obj == nil {
		return
	}
	raw, _ := obj.Get("Items")
	items, _ := raw.([]any)
	obj.Set("Items", append(items, item))
}

// snapshot copies a list so detectors can mutate the underlying document
// while iterating.
func snapshot(list []any) []any {
	return append([]any(nil), list...)
}

// lower is a shorthand for case-insensitive identity comparison.
func lower(s string) string {
	return strings.ToLower(s)
}
