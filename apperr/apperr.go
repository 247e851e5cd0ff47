// Package apperr defines the error taxonomy shared by the services and the
// REST layer.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches any *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrAuth matches any *AuthError.
	ErrAuth = errors.New("unauthorized")
	// ErrStoreUnavailable matches any *StoreError.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrPartialWrite matches any *PartialWriteError.
	ErrPartialWrite = errors.New("partial write")
)

// Messages exposed to callers on authorization failures.
const (
	MsgInvalidCredentials = "invalid credentials"
	MsgSessionExpired     = "session expired"
	MsgNotAuthenticated   = "not authenticated"
)

// ValidationError reports a missing or malformed input field. Nothing has
// been written when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid is shorthand for a *ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// AuthError carries one of the Msg* constants and nothing else.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return e.Reason }

func (e *AuthError) Is(target error) bool { return target == ErrAuth }

// Unauthorized is shorthand for an *AuthError.
func Unauthorized(reason string) error {
	return &AuthError{Reason: reason}
}

// StoreError wraps a failed remote-store call.
type StoreError struct {
	Op    string
	Table string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }

// PartialWriteError is returned when a checklist run row was committed but
// its log entries were not. RunID identifies the orphaned run row.
type PartialWriteError struct {
	RunID      string
	PropertyID string
	Err        error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("run %s (property %s) written without log entries: %v", e.RunID, e.PropertyID, e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }

func (e *PartialWriteError) Is(target error) bool { return target == ErrPartialWrite }
