package check

import (
	"github.com/expansiontools/marketcheck/pkg/market"
)

// Mode selects how detected issues are authorized for repair.
type Mode int

const (
	// ModeDryRun records every issue but permits no document mutation.
	ModeDryRun Mode = iota

	// ModeInteractive asks the confirmer about each issue as it is raised.
	ModeInteractive

	// ModeBatch auto-confirms and fixes every issue without prompting.
	ModeBatch
)

// String returns the mode name for logging.
func (m Mode) String() string {
	switch m {
	case ModeDryRun:
		return "dry-run"
	case ModeInteractive:
		return "interactive"
	case ModeBatch:
		return "batch"
	default:
		return "unknown"
	}
}

// Confirmer answers the per-issue yes/no question in interactive mode.
type Confirmer interface {
	// Confirm shows the issue being decided and asks question, returning
	// whether the user authorized the repair.
	Confirm(issue, question string) bool
}

// ConfirmerFunc allows plain functions to serve as a Confirmer.
type ConfirmerFunc func(issue, question string) bool

// Confirm implements the Confirmer interface.
func (f ConfirmerFunc) Confirm(issue, question string) bool {
	return f(issue, question)
}

// confirmFix is the single mode decision threaded through every detector:
// given the current mode and a raised issue, decide whether the repair is
// authorized, and if so record the fix and mark the owning document
// modified. Critical and advisory issues go through the same gate; only
// reporting distinguishes them.
func (c *Checker) confirmFix(doc *market.Document, issue *Issue) bool {
	switch c.mode {
	case ModeDryRun:
		return false
	case ModeInteractive:
		if c.confirmer == nil || !c.confirmer.Confirm(issue.Text, "Automatically fix this issue (y/n)?") {
			return false
		}
	case ModeBatch:
		c.log.Info().Msg("Fixing " + issue.Text)
	}

	c.ledger.markFixed(issue)
	c.store.MarkModified(doc)
	return true
}
