package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/expansiontools/marketcheck/cmd/marketcheck/cmd/check"
	"github.com/expansiontools/marketcheck/pkg/errors"
)

// Execute runs the marketcheck CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "marketcheck [folder]...",
		Short:   "Expansion Market and Trader configuration checker",
		Version: a.version,
		Long: `Marketcheck validates Expansion Market and Traders configuration JSON
trees against each other and can repair what it finds: duplicate items,
conflicting variant claims, items living in the wrong category file,
attachments that exist nowhere, and trader category lists missing the
categories their sold items come from.

Pass one or more folders (Market, Traders, or a folder containing both).
Fixes are confirmed before anything is written; modified files are backed
up first.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.PersistentFlags().StringVar(&a.config.ConfigFile, "config", "", "config file (default is $HOME/.marketcheck.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&a.config.Verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	rootCmd.PersistentFlags().BoolVarP(&a.config.Quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	rootCmd.PersistentFlags().BoolVar(&a.config.NoColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVarP(&a.config.Format, "format", "o", "", "output format: text, json, yaml")
	rootCmd.PersistentFlags().StringVar(&a.config.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")

	rootCmd.SetVersionTemplate("marketcheck {{.Version}}\n")

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand is called before any command runs.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	// These flags are defined as persistent flags in createRootCommand, so
	// errors indicate programming errors.
	verbose := mustGetBool(cmd, "verbose")
	quiet := mustGetBool(cmd, "quiet")
	noColor := mustGetBool(cmd, "no-color")
	format := mustGetString(cmd, "format")
	logLevel := mustGetString(cmd, "log-level")

	a.config.UpdateFromFlags(verbose, quiet, noColor, format, logLevel)

	// Reinitialize logger with updated config
	logger := NewLogger(a.config)
	a.logger = &logger

	return nil
}

// registerCommands registers all subcommands with the root command. The
// check command's flags and runner are mirrored onto the root so the
// drag-and-drop invocation `marketcheck <folder>` works without naming the
// subcommand.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	checkCmd := check.NewCommand(a)
	rootCmd.AddCommand(checkCmd)

	rootCmd.Flags().AddFlagSet(checkCmd.Flags())
	rootCmd.Args = checkCmd.Args
	rootCmd.RunE = checkCmd.RunE

	rootCmd.AddCommand(a.createVersionCommand())
}

// createVersionCommand creates the version command.
func (a *App) createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("marketcheck %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}

// ExitOnError prints an error and exits with status 1. It is meant to be
// used in main.go for top-level error handling.
func ExitOnError(err error) {
	if err == nil {
		return
	}
	if reportable(err) {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
	}
	os.Exit(1)
}

// reportable reports whether err carries information the run has not already
// put in front of the user. Declined fixes and residual issues were reported
// during the run, so they only set the exit status.
func reportable(err error) bool {
	return !errors.IsUserDeclined(err) && !errors.IsResidual(err)
}

// mustGetBool retrieves a boolean flag value or panics if the flag doesn't
// exist. Only for flags defined in this package.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

// mustGetString retrieves a string flag value or panics if the flag doesn't
// exist. Only for flags defined in this package.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}
