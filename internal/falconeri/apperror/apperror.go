// Package apperror defines the typed error categories used across the
// coordination core, so handlers dispatch on kind rather than string
// matching.
package apperror

import (
	"fmt"
	"net/http"
)

// Kind is one of the error categories named in the coordination core's
// error handling design.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindOwnershipMismatch Kind = "ownership_mismatch"
	KindValidation        Kind = "validation"
	KindConflict          Kind = "conflict"
	KindTransient         Kind = "transient"
	KindFatal             Kind = "fatal"
)

// Error is a tagged error carrying a Kind plus whatever structured fields
// matter for that kind (populated by the constructors below).
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// HTTPStatus maps an error Kind to the status code the REST facade must
// return.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindOwnershipMismatch:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusInternalServerError
	case KindTransient:
		return http.StatusServiceUnavailable
	case KindFatal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// NotFound builds a KindNotFound error.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// OwnershipMismatch builds a KindOwnershipMismatch error carrying both pod
// identifiers, so logs and the 403 body can reference both.
func OwnershipMismatch(datumID, claimedPodName string, actualPodName *string) *Error {
	actual := "(none)"
	if actualPodName != nil {
		actual = *actualPodName
	}
	return &Error{
		Kind:    KindOwnershipMismatch,
		Message: fmt.Sprintf("datum %s is owned by %q, not %q", datumID, actual, claimedPodName),
		Fields: map[string]any{
			"datum":            datumID,
			"claimed_pod_name": claimedPodName,
			"actual_pod_name":  actual,
		},
	}
}

// Validation builds a KindValidation error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Conflict builds a KindConflict error, wrapping the underlying DB error
// that surfaced it. Reserved for the (job_id, uri) uniqueness breach: under
// correct ownership discipline this can only happen from a programmer bug
// or direct DB tampering, so it reports as a 500 rather than a routine 409.
func Conflict(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...), cause: cause}
}

// Transient builds a KindTransient error, wrapping the underlying cause
// (database unavailable, orchestrator CLI timeout).
func Transient(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindTransient, Message: fmt.Sprintf(format, args...), cause: cause}
}

// Fatal builds a KindFatal error. Callers at startup should abort the
// process on this, never mid-request.
func Fatal(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindFatal, Message: fmt.Sprintf(format, args...), cause: cause}
}
