// Package check implements the check command: resolve the Market and
// Traders folders, load every JSON document under them, run the
// consistency engine, and write back confirmed repairs.
package check

import (
	"github.com/spf13/cobra"

	"github.com/expansiontools/marketcheck/internal/appcontext"
)

type options struct {
	dryRun bool
	yes    bool
}

// NewCommand creates the check command with app dependencies.
func NewCommand(app appcontext.Interface) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "check [folder]...",
		Short: "Check Market and Trader configuration folders",
		Long: `Check loads every JSON document under the given folders, validates them
against each other, and offers to repair what it finds.

Passing a Market or Traders folder picks up the sibling folder
automatically; passing a folder that contains Market/Traders subfolders
uses those. Without arguments the current directory is used when it looks
like a market or trader folder.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), app, opts, args, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "apply every fix without prompting")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "report issues without changing any file")

	return cmd
}
