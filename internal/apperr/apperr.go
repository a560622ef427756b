// Package apperr defines the errors that may cross the HTTP boundary.
// Anything that is not an *Error is reported to clients as ErrInternal.
package apperr

import (
	"errors"
	"net/http"
)

// Error carries a status code and a stable client-facing message.
type Error struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
}

func (e *Error) Error() string {
	return e.Message
}

func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

var (
	ErrInvalidInput       = New(http.StatusBadRequest, "invalid request")
	ErrUnauthorized       = New(http.StatusUnauthorized, "not authenticated")
	ErrForbidden          = New(http.StatusForbidden, "not authorized to perform this action")
	ErrRegistrationClosed = New(http.StatusForbidden, "user registration is currently disabled")
	ErrNotFound           = New(http.StatusNotFound, "url not found")
	ErrConflict           = New(http.StatusConflict, "already registered")
	ErrRateLimited        = New(http.StatusTooManyRequests, "rate limit exceeded")
	ErrInternal           = New(http.StatusInternalServerError, "internal server error")
)

func BadRequest(msg string) *Error {
	return New(http.StatusBadRequest, msg)
}

func Conflict(msg string) *Error {
	return New(http.StatusConflict, msg)
}

// From unwraps err to an *Error, falling back to ErrInternal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal
}
