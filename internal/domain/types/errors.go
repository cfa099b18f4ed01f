package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("requested item not found")
	ErrNoSession      = errors.New("no authenticated session")
	ErrRequestAborted = errors.New("request aborted by caller")
)

// ValidationError carries field-addressable input errors (HTTP 400 with a
// field error map, or client-side pre-checks).
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	for field, msg := range e.Fields {
		return fmt.Sprintf("validation failed: %s: %s", field, msg)
	}
	return "validation failed"
}

// NewValidationError builds a single-field validation error.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// ConflictError means the input was valid but the resource state precludes
// the action (e.g. the bike is no longer available).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	if e.Message == "" {
		return "resource state conflict"
	}
	return e.Message
}

// InvalidTransitionError means the booking is not in a legal source state
// for the requested transition. The caller's view is stale and must be
// refetched before further action.
type InvalidTransitionError struct {
	BookingID string
	Status    BookingStatus
	Operation string
}

func (e *InvalidTransitionError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("booking %s: %s not allowed from status %q", e.BookingID, e.Operation, e.Status)
	}
	return fmt.Sprintf("booking %s: %s not allowed in current status", e.BookingID, e.Operation)
}

// AuthKind discriminates authentication failures.
type AuthKind string

const (
	AuthInvalidCredentials AuthKind = "invalid_credentials"
	AuthSessionExpired     AuthKind = "session_expired"
	AuthValidation         AuthKind = "validation"
	AuthServerError        AuthKind = "server_error"
	AuthNetwork            AuthKind = "network"
)

// AuthError is the tagged authentication failure surfaced by the session layer.
type AuthError struct {
	Kind   AuthKind
	Fields map[string]string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("auth: %s", e.Kind)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsSessionExpired reports whether err is an AuthError{SessionExpired}.
func IsSessionExpired(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Kind == AuthSessionExpired
}
