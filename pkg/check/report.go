package check

import (
	"fmt"
	"io"
	"path/filepath"
)

// FileReport is the per-document slice of a run report.
type FileReport struct {
	File     string   `json:"file" yaml:"file"`
	Issues   int      `json:"issues" yaml:"issues"`
	Fixed    int      `json:"fixed" yaml:"fixed"`
	Critical int      `json:"critical" yaml:"critical"`
	Unfixed  []string `json:"unfixed,omitempty" yaml:"unfixed,omitempty"`
}

// Report is the machine-readable form of a run's findings, used by the
// json and yaml output formats.
type Report struct {
	Files  []FileReport `json:"files" yaml:"files"`
	Issues int          `json:"issues" yaml:"issues"`
	Fixed  int          `json:"fixed" yaml:"fixed"`
}

// Report builds the machine-readable report from a run result.
func (r *Result) Report() Report {
	report := Report{Issues: r.Issues, Fixed: r.Fixed, Files: []FileReport{}}

	for _, file := range r.Ledger.Files() {
		fr := FileReport{
			File:   displayPath(file.Key),
			Issues: len(file.Issues),
			Fixed:  file.FixedCount,
		}
		for _, issue := range file.Issues {
			if issue.Critical {
				fr.Critical++
			}
			if !issue.Fixed {
				fr.Unfixed = append(fr.Unfixed, issue.Text)
			}
		}
		report.Files = append(report.Files, fr)
	}
	return report
}

// Details writes the per-file issue breakdown, listing the issues that
// remain unfixed.
func (r *Result) Details(w io.Writer) {
	for _, file := range r.Ledger.Files() {
		if file.FixedCount > 0 {
			fmt.Fprintf(w, "! Fixed %d/%d issue(s) in file: %s\n", file.FixedCount, len(file.Issues), displayPath(file.Key))
		} else {
			fmt.Fprintf(w, "! Found %d issue(s) in file: %s\n", len(file.Issues), displayPath(file.Key))
		}

		if file.FixedCount < len(file.Issues) {
			for _, issue := range file.Issues {
				if !issue.Fixed {
					fmt.Fprintln(w, "-", issue.Text)
				}
			}
		}

		fmt.Fprintln(w)
	}
}

// Summary writes the one-line run summary.
func (r *Result) Summary(w io.Writer) {
	if r.Fixed > 0 {
		fmt.Fprintf(w, "Fixed %d/%d issue(s) in %d file(s)\n", r.Fixed, r.Issues, r.Ledger.Len())
	} else {
		fmt.Fprintf(w, "Found %d issue(s) in %d file(s)\n", r.Issues, r.Ledger.Len())
	}
}

func displayPath(k Key) string {
	return filepath.Base(k.Root) + "/" + filepath.ToSlash(k.Path)
}
