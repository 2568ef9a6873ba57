// Package apperrors defines the error taxonomy shared by services and
// handlers. Services return these sentinels (usually wrapped with %w) and
// handlers map them to HTTP status codes. Callers must never match on error
// message strings.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
)

// Conflict reason codes. Stable, surfaced verbatim in API responses.
const (
	CodeAlreadyPromoted     = "ALREADY_PROMOTED"
	CodeNotInInvestigation  = "RCFA_NOT_IN_INVESTIGATION"
	CodeInvalidTransition   = "INVALID_STATUS_TRANSITION"
	CodeInvestigationClosed = "RCFA_CLOSED"
)

// ConflictError carries a stable reason code alongside the Conflict sentinel.
// errors.Is(err, ErrConflict) holds for every ConflictError.
type ConflictError struct {
	Code    string
	Message string
}

func (e *ConflictError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// NewConflict creates a ConflictError with the given reason code.
func NewConflict(code, format string, args ...any) error {
	return &ConflictError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ConflictCode extracts the reason code from a conflict error.
// Returns the generic "CONFLICT" code when the error is a bare ErrConflict.
func ConflictCode(err error) string {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Code
	}
	if errors.Is(err, ErrConflict) {
		return "CONFLICT"
	}
	return ""
}
