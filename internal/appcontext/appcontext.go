// Package appcontext provides the shared application context interface
// used by all commands. Commands accept this interface rather than the
// concrete App type, allowing mock implementations in tests.
package appcontext

import (
	"github.com/rs/zerolog"
)

// Interface defines the application context that commands need.
// The App struct from cmd/marketcheck/app implements this interface.
type Interface interface {
	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (text, json, yaml).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
