// Package apperr is the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindInvalidCredentials
	KindAccountDisabled
	KindUnauthenticated
	KindForbidden
	KindStaleSession
	KindUserGone
	KindConflict
	KindNotFound
	KindValidation
	KindPartialFailure
	KindBadRequest
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "INVALID_CREDENTIALS"
	case KindAccountDisabled:
		return "ACCOUNT_DISABLED"
	case KindUnauthenticated:
		return "UNAUTHENTICATED"
	case KindForbidden:
		return "FORBIDDEN"
	case KindStaleSession:
		return "STALE_SESSION"
	case KindUserGone:
		return "USER_GONE"
	case KindConflict:
		return "CONFLICT"
	case KindNotFound:
		return "NOT_FOUND"
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindPartialFailure:
		return "PARTIAL_FAILURE"
	case KindBadRequest:
		return "BAD_REQUEST"
	default:
		return "INTERNAL_ERROR"
	}
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind so callers can write
// errors.Is(err, apperr.ErrStaleSession).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Sentinels for errors.Is comparisons. Messages are left empty so they match
// any error of the same kind.
var (
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrAccountDisabled    = &Error{Kind: KindAccountDisabled}
	ErrUnauthenticated    = &Error{Kind: KindUnauthenticated}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrStaleSession       = &Error{Kind: KindStaleSession}
	ErrUserGone           = &Error{Kind: KindUserGone}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrValidation         = &Error{Kind: KindValidation}
	ErrPartialFailure     = &Error{Kind: KindPartialFailure}
	ErrBadRequest         = &Error{Kind: KindBadRequest}
	ErrInternal           = &Error{Kind: KindInternal}
)

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func InvalidCredentials() *Error {
	return New(KindInvalidCredentials, "Invalid email or password")
}

func AccountDisabled() *Error {
	return New(KindAccountDisabled, "Account is disabled")
}

func Unauthenticated(message string) *Error {
	if message == "" {
		message = "Authentication required"
	}
	return New(KindUnauthenticated, message)
}

func Forbidden(message string) *Error {
	if message == "" {
		message = "You don't have permission to perform this action"
	}
	return New(KindForbidden, message)
}

func StaleSession() *Error {
	return New(KindStaleSession, "Session is no longer valid, please sign in again")
}

func UserGone() *Error {
	return New(KindUserGone, "Account no longer exists")
}

func Conflict(message string) *Error {
	return New(KindConflict, message)
}

func NotFound(resource string) *Error {
	return New(KindNotFound, resource+" not found")
}

func BadRequest(message string) *Error {
	return New(KindBadRequest, message)
}

func Validation(fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: "Validation failed", Fields: fields}
}

// Field is a shorthand for a single-field validation failure.
func Field(field, message string) *Error {
	return Validation(FieldError{Field: field, Message: message})
}

func PartialFailure(message string, err error) *Error {
	return &Error{Kind: KindPartialFailure, Message: message, Err: err}
}

// Internal wraps a persistence or infrastructure failure. The message is
// what clients see; err is only exposed in development.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf reports the taxonomy kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
