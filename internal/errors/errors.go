package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	ErrConfig     = "CONFIG"
	ErrConnection = "CONNECTION"
	ErrCollection = "COLLECTION"
	ErrExec       = "EXEC"
	ErrNotify     = "NOTIFY"
)

// Error represents a structured error with code, message, suggestion, and optional cause.
// Rendered as:
//
//	✗ <What failed>
//
//	  <Why it failed - technical details>
//
//	  <How to fix it - actionable steps>
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrConnection code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrConnection,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Short returns a single-line form of the error, suitable for log lines.
func (e *Error) Short() string {
	if e.Cause == nil {
		return e.Message
	}
	var inner *Error
	if errors.As(e.Cause, &inner) {
		return e.Message + ": " + inner.Short()
	}
	return e.Message + ": " + e.Cause.Error()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
// Only the outermost structured error is inspected.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var hwErr *Error
	if errors.As(err, &hwErr) {
		return hwErr.Code == code
	}
	return false
}

// HasCode reports whether any structured error in the chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		var hwErr *Error
		if !errors.As(err, &hwErr) {
			return false
		}
		if hwErr.Code == code {
			return true
		}
		err = hwErr.Cause
	}
	return false
}

// Summary returns a one-line description of any error.
func Summary(err error) string {
	if err == nil {
		return ""
	}
	var hwErr *Error
	if errors.As(err, &hwErr) {
		return hwErr.Short()
	}
	return err.Error()
}
