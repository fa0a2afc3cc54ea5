package check

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/expansiontools/marketcheck/pkg/errors"
)

// validateArgs strips quotes from dragged-in paths and rejects arguments
// carrying shell redirection characters, which reach the tool when a user
// pastes a command line instead of a path.
func validateArgs(args []string) ([]string, error) {
	cleaned := make([]string, 0, len(args))
	for _, arg := range args {
		trimmed := strings.Trim(strings.TrimSpace(arg), `"`)
		if i := strings.IndexAny(trimmed, `<>|`); i >= 0 {
			return nil, &errors.ArgumentError{
				Argument: trimmed,
				Position: i,
				Message:  fmt.Sprintf("illegal character %q", trimmed[i]),
			}
		}
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned, nil
}

// printCaret writes the offending argument with a caret pointing at the
// rejected character.
func printCaret(w io.Writer, argErr *errors.ArgumentError) {
	fmt.Fprintln(w, argErr.Argument)
	if argErr.Position >= 0 {
		fmt.Fprintln(w, strings.Repeat(" ", argErr.Position)+"^")
	}
}

// expandRoots applies the folder inference rules: a Market or Traders
// folder brings in its sibling, and a folder containing Market/Traders
// subfolders contributes those instead of itself.
func expandRoots(paths []string) []string {
	var roots []string
	seen := make(map[string]bool)
	add := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		roots = append(roots, p)
	}

	for _, p := range paths {
		p = filepath.Clean(p)

		switch strings.ToLower(filepath.Base(p)) {
		case "market":
			add(p)
			if sibling := filepath.Join(filepath.Dir(p), "Traders"); isDir(sibling) {
				add(sibling)
			}
		case "traders":
			add(p)
			if sibling := filepath.Join(filepath.Dir(p), "Market"); isDir(sibling) {
				add(sibling)
			}
		default:
			market := filepath.Join(p, "Market")
			traders := filepath.Join(p, "Traders")
			if isDir(market) || isDir(traders) {
				if isDir(market) {
					add(market)
				}
				if isDir(traders) {
					add(traders)
				}
			} else {
				add(p)
			}
		}
	}
	return roots
}

// resolveRoots validates the arguments and expands them into the folder
// set to load. With no arguments, the current directory is used when its
// name marks it as a market, trader, or mod folder.
func resolveRoots(args []string) ([]string, error) {
	cleaned, err := validateArgs(args)
	if err != nil {
		return nil, err
	}

	if len(cleaned) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(filepath.Base(cwd)) {
		case "expansionmod", "market", "traders":
			return expandRoots([]string{cwd}), nil
		}
		return nil, nil
	}

	return expandRoots(cleaned), nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
