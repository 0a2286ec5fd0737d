// internal/login/errors.go
//
// Error taxonomy for the login flow.
//
//   • FieldError          – RequiredError or TooShortError on one field.
//   • ValidationError     – one or more FieldErrors; blocks submission.
//   • AuthenticationError – the authenticate capability refused or failed.
//   • ErrSubmitInFlight   – a submission is already running.
//   • ErrClosed           – the controller was closed (form unmounted).
//
// Every error is recoverable by user action.  None is fatal.

package login

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrSubmitInFlight = errors.New("login: submission already in flight")
	ErrClosed         = errors.New("login: controller closed")
	ErrUnknownField   = errors.New("login: unknown field")
)

// ErrorKind classifies a field failure.
type ErrorKind int

const (
	KindRequired ErrorKind = iota + 1
	KindTooShort
)

func (k ErrorKind) String() string {
	switch k {
	case KindRequired:
		return "required"
	case KindTooShort:
		return "too_short"
	}
	return "unknown"
}

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field Field
	Label string
	Kind  ErrorKind
	Min   int // set for KindTooShort
}

// Message returns the inline text shown beneath the input.
func (e *FieldError) Message() string {
	switch e.Kind {
	case KindRequired:
		return e.Label + " is required."
	case KindTooShort:
		return fmt.Sprintf("%s must be at least %d characters.", e.Label, e.Min)
	}
	return e.Label + " is invalid."
}

func (e *FieldError) Error() string { return string(e.Field) + ": " + e.Message() }

// ValidationError aggregates every failing field of one submission.
type ValidationError struct {
	Fields map[Field]*FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return "login: invalid fields: " + strings.Join(names, ", ")
}

// Field returns the error for f, or nil.
func (e *ValidationError) Field(f Field) *FieldError { return e.Fields[f] }

// AuthenticationError wraps a failure reported by the authenticate
// capability.  Message is the single non-field text shown to the user.
type AuthenticationError struct {
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string { return "login: authentication failed: " + e.Err.Error() }
func (e *AuthenticationError) Unwrap() error { return e.Err }

// Rejected reports whether the credentials were refused, as opposed to the
// service being unreachable.
func (e *AuthenticationError) Rejected() bool {
	return errors.Is(e.Err, ErrInvalidCredentials)
}
