// Package parsererror defines the error taxonomy shared by the import pipeline,
// the data-store wrappers and the cache layer.
package parsererror

import (
	"errors"
	"fmt"
)

// ErrNoTransactionsFound is returned when a parser ran but every row failed
// the date/description/positive-amount check.
var ErrNoTransactionsFound = errors.New("no transactions found")

// ParseError represents a single value that could not be parsed.
type ParseError struct {
	Parser string
	Field  string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: failed to parse %s='%s': %v",
		e.Parser, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UnsupportedFormatError means no parser accepts the file.
type UnsupportedFormatError struct {
	FileName    string
	ContentType string
	Reason      string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported format for '%s' (%s): %s", e.FileName, e.ContentType, e.Reason)
	}
	return fmt.Sprintf("unsupported format for '%s' (%s)", e.FileName, e.ContentType)
}

// InvalidBackupFormatError means a full-account backup is missing required
// top-level keys or carries malformed rows. Nothing is written when it occurs.
type InvalidBackupFormatError struct {
	MissingKeys []string
	Reason      string
}

func (e *InvalidBackupFormatError) Error() string {
	if len(e.MissingKeys) > 0 {
		return fmt.Sprintf("invalid backup format: missing keys %v", e.MissingKeys)
	}
	return fmt.Sprintf("invalid backup format: %s", e.Reason)
}

// RemoteCallError wraps any data-store or RPC failure.
type RemoteCallError struct {
	Op  string
	Err error
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("remote call %s failed: %v", e.Op, e.Err)
}

func (e *RemoteCallError) Unwrap() error {
	return e.Err
}

// Remote wraps err as a RemoteCallError unless it already is one or is nil.
func Remote(op string, err error) error {
	if err == nil {
		return nil
	}
	var rc *RemoteCallError
	if errors.As(err, &rc) {
		return err
	}
	return &RemoteCallError{Op: op, Err: err}
}

// ValidationError is raised by local checks before a write is attempted.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("validation failed for %s='%s': %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// CategorizationError represents a categorization failure.
type CategorizationError struct {
	Transaction string
	Strategy    string
	Err         error
}

func (e *CategorizationError) Error() string {
	return fmt.Sprintf("categorization failed for %s using %s: %v",
		e.Transaction, e.Strategy, e.Err)
}

func (e *CategorizationError) Unwrap() error {
	return e.Err
}

// UserMessage maps err to the short, actionable text shown in a notification.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		unsupported *UnsupportedFormatError
		backup      *InvalidBackupFormatError
		remote      *RemoteCallError
		validation  *ValidationError
		categorize  *CategorizationError
	)
	switch {
	case errors.As(err, &unsupported):
		return "This file format is not supported. Please choose a CSV, Excel, JSON or text file."
	case errors.Is(err, ErrNoTransactionsFound):
		return "No valid transactions were found in this file. Check the file and try again."
	case errors.As(err, &backup):
		return "This backup file is invalid. Nothing was imported."
	case errors.As(err, &validation):
		return fmt.Sprintf("Please check %s: %s.", validation.Field, validation.Reason)
	case errors.As(err, &categorize):
		return "No category could be suggested right now. Please pick one yourself."
	case errors.As(err, &remote):
		return "Something went wrong talking to the server. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}
