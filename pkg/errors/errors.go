// Package errors provides custom error types for marketcheck.
// These errors enable programmatic error checking and keep exit-code
// decisions out of the validation engine itself.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is reports whether any error in err's tree matches target.
// It's an alias for the standard library errors.Is.
var Is = errors.Is

// As finds the first error in err's tree that matches target.
// It's an alias for the standard library errors.As.
var As = errors.As

// Common sentinel errors for the marketcheck system
var (
	// ErrNotFound indicates that a requested document or folder was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotADirectory indicates that a configured root path is not a directory
	ErrNotADirectory = errors.New("not a directory")

	// ErrUserDeclined indicates the user declined to apply fixes
	ErrUserDeclined = errors.New("user declined")

	// ErrResidualIssues indicates issues remained unfixed after the
	// convergence bound was reached
	ErrResidualIssues = errors.New("residual issues")

	// ErrLoadFailed indicates one or more document roots could not be loaded
	ErrLoadFailed = errors.New("load failed")
)

// ParseError represents a failure decoding a configuration document
type ParseError struct {
	Format  string // "json"
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// IOError represents an error during file operations
type IOError struct {
	Operation string // "read", "write", "backup", "walk"
	Path      string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Operation, e.Path, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// ArgumentError reports a rejected command-line argument, carrying enough
// position information for a caret diagnostic.
type ArgumentError struct {
	Argument string
	Position int // index of the offending byte, -1 if not applicable
	Message  string
}

// Error implements the error interface
func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Argument, e.Message)
}

// Is implements errors.Is support
func (e *ArgumentError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUserDeclined checks if an error indicates the user declined fixes
func IsUserDeclined(err error) bool {
	return errors.Is(err, ErrUserDeclined)
}

// IsResidual checks if an error indicates unfixed residual issues
func IsResidual(err error) bool {
	return errors.Is(err, ErrResidualIssues)
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{
		Format:  format,
		File:    file,
		Message: err.Error(),
		Err:     err,
	}
}
