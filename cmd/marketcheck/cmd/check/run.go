package check

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/expansiontools/marketcheck/internal/appcontext"
	"github.com/expansiontools/marketcheck/internal/cmd/output"
	"github.com/expansiontools/marketcheck/internal/cmd/prompt"
	checker "github.com/expansiontools/marketcheck/pkg/check"
	"github.com/expansiontools/marketcheck/pkg/errors"
	"github.com/expansiontools/marketcheck/pkg/logging"
	"github.com/expansiontools/marketcheck/pkg/market"
)

// run drives one check invocation: resolve folders, load documents, probe
// for issues, confirm, apply, converge, and persist.
func run(ctx context.Context, app appcontext.Interface, opts *options, args []string, out io.Writer) error {
	logger := app.Logger()
	ctx = logging.WithLogger(ctx, logger)

	interactive := !opts.yes && !opts.dryRun
	prompter := prompt.Default()

	roots, err := resolveRoots(args)
	if err != nil {
		var argErr *errors.ArgumentError
		if errors.As(err, &argErr) {
			printCaret(out, argErr)
		}
		return err
	}

	// With nothing usable on the command line, fall back to asking. This is
	// the double-click-the-binary path.
	if len(roots) == 0 && interactive {
		line, lineErr := prompter.Line("Please enter (or drag & drop) a Market or Traders folder:")
		if lineErr == nil && line != "" {
			roots, err = resolveRoots([]string{line})
			if err != nil {
				var argErr *errors.ArgumentError
				if errors.As(err, &argErr) {
					printCaret(out, argErr)
				}
				return err
			}
		}
	}
	if len(roots) == 0 {
		return fmt.Errorf("no folder to check: %w", errors.ErrInvalidInput)
	}

	store := market.NewStore()
	failed := 0
	for _, root := range roots {
		if err := store.LoadRoot(ctx, root); err != nil {
			logger.Error().Err(err).Str("folder", root).Msg("Cannot use folder")
			failed++
		}
	}

	// An unusable folder fails the run, but the folders that did load are
	// still checked first. Only a run with nothing to check aborts here.
	var loadErr error
	if failed > 0 {
		loadErr = fmt.Errorf("%d folder(s) could not be used: %w", failed, errors.ErrLoadFailed)
		if failed == len(roots) {
			return loadErr
		}
	}

	c := checker.New(store, checker.WithConfirmer(prompter))

	if opts.dryRun {
		result, err := c.Run(ctx, checker.ModeDryRun)
		if err != nil {
			return err
		}
		if err := report(app, result, out); err != nil {
			return err
		}
		return loadErr
	}

	// Interactive runs probe first so the user confirms the full issue list
	// once, instead of being asked file by file.
	if interactive {
		probe, err := c.Run(ctx, checker.ModeDryRun)
		if err != nil {
			logger.Error().Err(err).Msg("Check failed")
			prompter.Acknowledge("Press Enter to exit.")
			return err
		}
		if probe.Issues == 0 {
			probe.Summary(out)
			prompter.Acknowledge("Press Enter to exit.")
			return loadErr
		}

		probe.Details(out)
		probe.Summary(out)
		if !prompter.Ask("Automatically fix these issues (y/n)?") {
			return fmt.Errorf("fixes declined: %w", errors.ErrUserDeclined)
		}
	}

	result, err := c.Run(ctx, checker.ModeBatch)
	if err != nil {
		logger.Error().Err(err).Msg("Check failed")
		if interactive {
			prompter.Acknowledge("Press Enter to exit.")
		}
		return err
	}

	if result.Issues > result.Fixed {
		logger.Warn().Msg("Not all issues could be fixed in 1st pass")
	}

	// A fix can expose work for the next pass (an item moved between
	// categories, a freshly registered claim), so re-run until nothing
	// changes.
	var residualErr error
	if result.Fixed > 0 {
		last, passes, cerr := c.Converge(ctx)
		if cerr != nil {
			if interactive {
				prompter.Acknowledge("Press Enter to exit.")
			}
			return cerr
		}
		if last != nil && last.Fixed > 0 {
			logger.Warn().Int("passes", passes).Msg("Issues remain after the maximum number of passes")
			residualErr = fmt.Errorf("issues remain after %d passes: %w", passes, errors.ErrResidualIssues)
		}
	}

	if store.HasModified() {
		store.SaveModified(ctx)
	}

	if err := report(app, result, out); err != nil {
		return err
	}

	if interactive {
		prompter.Acknowledge("Press Enter to exit.")
	}
	if residualErr != nil {
		return residualErr
	}
	return loadErr
}

// report renders the run result in the configured output format.
func report(app appcontext.Interface, result *checker.Result, out io.Writer) error {
	format, err := output.ParseFormat(app.OutputFormat())
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON, output.FormatYAML:
		return output.NewFormatter(format).Format(out, result.Report())
	case output.FormatTable:
		return output.NewFormatter(format).Format(out, tableData(result.Report()))
	default:
		result.Details(out)
		result.Summary(out)
		return nil
	}
}

// tableData lays out the per-file report as a table.
func tableData(report checker.Report) output.Data {
	rows := make([][]string, 0, len(report.Files))
	for _, f := range report.Files {
		rows = append(rows, []string{
			f.File,
			strconv.Itoa(f.Issues),
			strconv.Itoa(f.Fixed),
			strconv.Itoa(f.Critical),
		})
	}
	return output.Data{
		Headers: []string{"File", "Issues", "Fixed", "Critical"},
		Rows:    rows,
		ColumnAlignment: []output.Align{
			output.AlignLeft,
			output.AlignRight,
			output.AlignRight,
			output.AlignRight,
		},
	}
}
