// Package apperrors defines the HTTP error taxonomy shared by every handler:
// validation failures (422), missing conversations (404), upstream OpenAI
// failures (424) and a generic 500 fallback. Errors render to the uniform
// payload {statusCode, error, message[, errorCode]}.
package apperrors

import (
	"errors"
	"net/http"
)

type Error struct {
	StatusCode int    `json:"statusCode"`
	ErrorName  string `json:"error"`
	Message    string `json:"message"`
	ErrorCode  string `json:"errorCode,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.ErrorName
}

func (e *Error) Unwrap() error {
	return e.cause
}

// WithErrorCode threads an upstream error identifier into the payload.
func (e *Error) WithErrorCode(code string) *Error {
	e.ErrorCode = code
	return e
}

// WithCause attaches the originating error without changing the payload.
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

func newError(status int, message string) *Error {
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{
		StatusCode: status,
		ErrorName:  http.StatusText(status),
		Message:    message,
	}
}

// BadData marks malformed client input. Nothing has been executed yet when
// one of these is raised.
func BadData(message string) *Error {
	return newError(http.StatusUnprocessableEntity, message)
}

func NotFound(message string) *Error {
	return newError(http.StatusNotFound, message)
}

// FailedDependency marks an upstream model-provider failure. Never retried.
func FailedDependency(message string) *Error {
	return newError(http.StatusFailedDependency, message)
}

func BadImplementation() *Error {
	return newError(http.StatusInternalServerError, "An internal server error occurred")
}

// ConversationNotExist is the store gateway's terminal answer for an unknown
// conversationId, raised before any model or chunk-write call.
func ConversationNotExist() *Error {
	return NotFound("conversation does not exist")
}

// From normalizes any error into an *Error, falling back to a generic 500
// payload so internal details never leak to the client.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return BadImplementation().WithCause(err)
}
