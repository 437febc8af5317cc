// Package errors defines the closed error taxonomy shared by every envsync
// component. Callers branch on Kind with errors.As, never on message text.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error into one of the closed set of failure categories.
type Kind int

const (
	// KindUnknown is the zero value; wrapped third-party errors that fit no
	// other category carry it.
	KindUnknown Kind = iota

	// KindValidation means the request was malformed before any store was
	// contacted (bad recovery window, missing package name, reserved name).
	KindValidation

	// KindNotFound means a secret, environment, or template does not exist.
	KindNotFound

	// KindConflict means a secret or environment already exists and no
	// override was given.
	KindConflict

	// KindCredentials means remote authentication or authorization failed.
	KindCredentials

	// KindIO means local storage failed.
	KindIO

	// KindCancelled means the decision capability declined; nothing happened
	// by choice. Not a failure.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindCredentials:
		return "credentials"
	case KindIO:
		return "io"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error is the single error type produced by envsync components.
type Error struct {
	Kind       Kind
	Message    string
	Suggestion string
	Err        error
}

func (e *Error) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	} else {
		parts = append(parts, e.Kind.String())
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a taxonomy error with a formatted message.
func E(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// WithSuggestion returns a copy of the error carrying a remediation hint.
func (e *Error) WithSuggestion(s string) *Error {
	clone := *e
	clone.Suggestion = s
	return &clone
}

// GetKind extracts the taxonomy kind from err, unwrapping as needed.
// Errors from outside the taxonomy report KindUnknown.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// IsNotFound reports whether err means the target does not exist, as opposed
// to the store being unreachable. Callers use it to branch "doesn't exist
// yet" from "can't reach store".
func IsNotFound(err error) bool {
	return Is(err, KindNotFound)
}

// IsCancelled reports whether err is the non-failure decline outcome.
func IsCancelled(err error) bool {
	return Is(err, KindCancelled)
}

// Cancelled returns the decline outcome for the given operation.
func Cancelled(operation string) *Error {
	return &Error{Kind: KindCancelled, Message: fmt.Sprintf("%s cancelled, no changes made", operation)}
}

// DivergenceError reports a two-store write that only half completed.
// The stores now disagree; retrying only the failed side is safe.
type DivergenceError struct {
	Operation string
	Succeeded string
	Failed    string
	Err       error
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("%s partially failed: %s write succeeded but %s write failed: %v\n  💡 Try: retry the %s side only; the %s side is already up to date",
		e.Operation, e.Succeeded, e.Failed, e.Err, e.Failed, e.Succeeded)
}

func (e *DivergenceError) Unwrap() error {
	return e.Err
}
