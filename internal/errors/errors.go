// Package errors defines the engine's error taxonomy. A NotFound is user
// information, a ParseError lets the resolution cascade continue with the
// next strategy, and a Timeout surfaces to the user exactly like a NotFound
// while staying distinguishable for diagnostics.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType categorizes engine errors.
type ErrorType string

const (
	ErrorTypeNotFound ErrorType = "not_found"
	ErrorTypeParse    ErrorType = "parse"
	ErrorTypeTimeout  ErrorType = "timeout"
	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeInternal ErrorType = "internal"
)

// NotFoundError reports that no counterpart file could be resolved, or that a
// resolved target is missing on disk at jump time. Never fatal, never retried.
type NotFoundError struct {
	Path        string
	Want        string // what was looked for: "statement file", "interface file", "method", ...
	Suggestions []string
}

// NewNotFoundError creates a NotFoundError for the given source path.
func NewNotFoundError(want, path string) *NotFoundError {
	return &NotFoundError{Want: want, Path: path}
}

// WithSuggestions attaches near-miss candidates for the user-facing message.
func (e *NotFoundError) WithSuggestions(s []string) *NotFoundError {
	e.Suggestions = s
	return e
}

func (e *NotFoundError) Error() string {
	if len(e.Suggestions) > 0 {
		return fmt.Sprintf("no %s found for %s (close matches: %v)", e.Want, e.Path, e.Suggestions)
	}
	return fmt.Sprintf("no %s found for %s", e.Want, e.Path)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError or a
// TimeoutError, which is surfaced to users identically.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	var to *TimeoutError
	return errors.As(err, &nf) || errors.As(err, &to)
}

// ParseError wraps content-inspection failures: unreadable files, regex
// failures, read I/O errors. Callers treat it as "no match from this
// inspector" and continue.
type ParseError struct {
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewParseError creates a parse error with context.
func NewParseError(op, path string, err error) *ParseError {
	return &ParseError{Path: path, Operation: op, Underlying: err, Timestamp: time.Now()}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

func (e *ParseError) Unwrap() error {
	return e.Underlying
}

// TimeoutError marks a navigation request that exceeded its deadline. Shown
// to the user as NotFound, logged distinctly.
type TimeoutError struct {
	Operation string
	Deadline  time.Duration
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(op string, deadline time.Duration) *TimeoutError {
	return &TimeoutError{Operation: op, Deadline: deadline}
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s exceeded %v deadline", e.Operation, e.Deadline)
}

// ConfigError reports one malformed configuration entry. The offending rule
// is skipped; resolution continues with the remaining rules and defaults.
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
}

// NewConfigError creates a config error.
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{Field: field, Value: value, Underlying: err}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for %s (value %q): %v", e.Field, e.Value, e.Underlying)
}

func (e *ConfigError) Unwrap() error {
	return e.Underlying
}
