// Package apperr defines the domain error taxonomy shared by all services.
// Every failure leaving a service carries a machine-readable code and a
// stable HTTP status class; the HTTP boundary translates without inspecting
// messages.
package apperr

import (
	"errors"
	"net/http"
)

// Code identifies a failure class independent of its human message.
type Code string

const (
	CodeEmailAlreadyExists Code = "AUTH_EMAIL_ALREADY_EXISTS"
	CodeInvalidCredentials Code = "AUTH_INVALID_CREDENTIALS"
	CodeNotVerified        Code = "AUTH_NOT_VERIFIED"
	CodeInvalidToken       Code = "AUTH_INVALID_TOKEN"
	CodeSessionExpired     Code = "AUTH_SESSION_EXPIRED"
	CodeVerificationError  Code = "VERIFICATION_ERROR"
	CodeTooManyAttempts    Code = "AUTH_TOO_MANY_ATTEMPTS"
	CodeEmailDelivery      Code = "EMAIL_DELIVERY_FAILED"
	CodeNotFound           Code = "RESOURCE_NOT_FOUND"
	CodeInvalidMFACode     Code = "MFA_INVALID_CODE"
	CodeMFAUnavailable     Code = "MFA_NOT_ENABLED"
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeAccessForbidden    Code = "ACCESS_FORBIDDEN"
	CodeInternal           Code = "INTERNAL_SERVER_ERROR"
)

// Error is a domain failure with a stable code and HTTP status.
type Error struct {
	Status  int
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// WithCause attaches an underlying error for logging; the cause is never
// rendered in HTTP responses.
func (e *Error) WithCause(err error) *Error {
	clone := *e
	clone.cause = err
	return &clone
}

// New builds a domain error with an explicit status.
func New(status int, code Code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// BadRequest builds a 400-class domain error.
func BadRequest(code Code, message string) *Error {
	return New(http.StatusBadRequest, code, message)
}

// Unauthorized builds a 401-class domain error.
func Unauthorized(code Code, message string) *Error {
	return New(http.StatusUnauthorized, code, message)
}

// NotFound builds a 404-class domain error.
func NotFound(message string) *Error {
	return New(http.StatusNotFound, CodeNotFound, message)
}

// TooManyRequests builds a 429-class domain error.
func TooManyRequests(message string) *Error {
	return New(http.StatusTooManyRequests, CodeTooManyAttempts, message)
}

// Internal wraps an unexpected failure as a generic 500 without exposing the
// underlying message to clients.
func Internal(err error) *Error {
	return (&Error{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternal,
		Message: "internal server error",
	}).WithCause(err)
}

// From extracts a domain error, or wraps err as Internal when it is not one.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// Is reports whether err is a domain error with the given code.
func Is(err error, code Code) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}
