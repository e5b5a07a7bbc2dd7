// Package apperr defines the typed errors domain services return. The HTTP
// layer maps each Kind to a status code, so services never speak HTTP.
package apperr

import (
	"fmt"
	"net/http"
)

// Kind categorizes an error for status mapping.
type Kind int

const (
	// KindUnknown is the zero kind for untyped errors.
	KindUnknown Kind = iota
	// KindNotFound means the requested resource does not exist.
	KindNotFound
	// KindValidation means the input failed validation.
	KindValidation
	// KindConflict means the request collides with existing state.
	KindConflict
	// KindForbidden means the caller may not perform the action.
	KindForbidden
	// KindUnauthorized means authentication is missing or failed.
	KindUnauthorized
	// KindBadRequest means the request is malformed.
	KindBadRequest
	// KindInternal means something unexpected broke.
	KindInternal
	// KindInvalidTransition indicates a lead state transition not present
	// in the lifecycle table. Callers must not coerce these silently.
	KindInvalidTransition
	// KindCapExceeded indicates a safety cap veto. Expected and non-fatal;
	// the action is deferred to the next window, never dropped silently.
	KindCapExceeded
)

// Error is a typed domain error.
type Error struct {
	Kind    Kind
	Message string
	Op      string      // operation that failed, optional
	Err     error       // wrapped cause, optional
	Details interface{} // extra response payload, optional
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap exposes the wrapped cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status code for the error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindConflict, KindInvalidTransition:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindInternal:
		return http.StatusInternalServerError
	case KindCapExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadRequest
	}
}

// New builds an error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an error that carries err as its cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp returns a copy of the error with the operation set.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails returns a copy of the error with additional details.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// Constructors for the common kinds.

func NotFound(message string) *Error     { return New(KindNotFound, message) }
func Validation(message string) *Error   { return New(KindValidation, message) }
func Conflict(message string) *Error     { return New(KindConflict, message) }
func Forbidden(message string) *Error    { return New(KindForbidden, message) }
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }
func BadRequest(message string) *Error   { return New(KindBadRequest, message) }
func Internal(message string) *Error     { return New(KindInternal, message) }

// InvalidTransition creates an invalid state transition error naming the
// rejected edge.
func InvalidTransition(from, to string) *Error {
	return New(KindInvalidTransition, fmt.Sprintf("invalid lead transition %s -> %s", from, to))
}

// CapExceeded creates a safety cap exceeded error.
func CapExceeded(message string) *Error {
	return New(KindCapExceeded, message)
}

// GetKind returns the kind of err, or KindUnknown for untyped errors.
func GetKind(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
