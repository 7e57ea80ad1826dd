package apperr

import (
	"errors"
	"net/http"
)

// Issue describes a single field-level validation problem.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the service-layer error taxonomy. Services return *Error for every
// expected failure; handlers map Status onto the HTTP response without
// inspecting the message.
type Error struct {
	Status  int     `json:"-"`
	Message string  `json:"error"`
	Issues  []Issue `json:"issues,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Unauthenticated means no valid session (401)
func Unauthenticated(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: message}
}

// Forbidden means the role or membership is insufficient (403)
func Forbidden(message string) *Error {
	return &Error{Status: http.StatusForbidden, Message: message}
}

// NotFound means the resource or target is missing (404)
func NotFound(message string) *Error {
	return &Error{Status: http.StatusNotFound, Message: message}
}

// Conflict means a uniqueness or concurrency violation (409)
func Conflict(message string) *Error {
	return &Error{Status: http.StatusConflict, Message: message}
}

// BadRequest means the request itself is invalid (400)
func BadRequest(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message}
}

// Validation means a schema violation with field-level issues (400)
func Validation(message string, issues ...Issue) *Error {
	return &Error{Status: http.StatusBadRequest, Message: message, Issues: issues}
}

// Upstream means an external capability failed mid-operation (500)
func Upstream(message string, cause error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: message, cause: cause}
}

// Internal wraps an unexpected persistence or system failure (500)
func Internal(message string, cause error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: message, cause: cause}
}

// From extracts an *Error, wrapping unknown errors as a generic 500.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{Status: http.StatusInternalServerError, Message: "internal error", cause: err}
}
