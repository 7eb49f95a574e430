// Package errors provides coded domain errors shared by the engine, the API
// and the CLI.
//
// Engine packages keep their own sentinels (backup.ErrPasswordRequired,
// envelope.ErrWrongPassword, ...) and wrap them in an *Error at the boundary
// where a caller needs a code:
//
//	if errors.Is(err, backup.ErrPasswordRequired) {
//	    return errors.PasswordRequired("archive is encrypted").WithCause(err)
//	}
//
// Handlers then switch on the code:
//
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    status := domainErr.HTTPStatus()
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeValidation       Code = "VALIDATION_ERROR"
	CodePasswordRequired Code = "PASSWORD_REQUIRED"
	CodeWrongPassword    Code = "WRONG_PASSWORD"
	CodeCorruptArchive   Code = "CORRUPT_ARCHIVE"
	CodeTransport        Code = "TRANSPORT_ERROR"
	CodeNotFound         Code = "NOT_FOUND"
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeRateLimited      Code = "RATE_LIMITED"
	CodeInternal         Code = "INTERNAL_ERROR"
)

// HTTPStatus returns the HTTP status code an API response should carry.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodePasswordRequired:
		return http.StatusPreconditionRequired
	case CodeWrongPassword, CodeCorruptArchive:
		return http.StatusUnprocessableEntity
	case CodeTransport:
		return http.StatusBadGateway
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error carrying the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of e with details attached.
func (e *Error) WithDetails(details any) *Error {
	out := *e
	out.Details = details
	return &out
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	out := *e
	out.cause = err
	return &out
}

// Sentinel errors for use with errors.Is().
var (
	ErrValidation       = &Error{Code: CodeValidation, Message: "validation error"}
	ErrPasswordRequired = &Error{Code: CodePasswordRequired, Message: "password required"}
	ErrWrongPassword    = &Error{Code: CodeWrongPassword, Message: "wrong password"}
	ErrCorruptArchive   = &Error{Code: CodeCorruptArchive, Message: "corrupt archive"}
	ErrTransport        = &Error{Code: CodeTransport, Message: "transport error"}
	ErrNotFound         = &Error{Code: CodeNotFound, Message: "not found"}
	ErrUnauthorized     = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrInternal         = &Error{Code: CodeInternal, Message: "internal error"}
)

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// PasswordRequired creates a password required error.
func PasswordRequired(msg string) *Error {
	return &Error{Code: CodePasswordRequired, Message: msg}
}

// WrongPassword creates a wrong password error.
func WrongPassword(msg string) *Error {
	return &Error{Code: CodeWrongPassword, Message: msg}
}

// CorruptArchive creates a corrupt archive error.
func CorruptArchive(msg string) *Error {
	return &Error{Code: CodeCorruptArchive, Message: msg}
}

// Transport creates a transport error carrying a user-facing message.
func Transport(msg string) *Error {
	return &Error{Code: CodeTransport, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
