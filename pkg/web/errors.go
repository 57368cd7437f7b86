package web

import (
	"errors"
	"fmt"
	"net/http"
)

// =============================================================================
// HTTP Error Helpers
// =============================================================================

// HTTPError represents an HTTP error with a status code and message.
// Handlers return it to send a specific status; the message is shown to
// the client, the wrapped error is not.
type HTTPError struct {
	Code    int    // HTTP status code (e.g., 400, 403, 404, 500)
	Message string // Error message to return to client
	Err     error  // Optional underlying error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status code for this error.
func (e *HTTPError) StatusCode() int {
	return e.Code
}

// Response renders the error as a standard JSON error response.
func (e *HTTPError) Response() *Response {
	return ErrorJSON(e.Code, e.Message)
}

// BadRequest creates a 400 Bad Request error.
// Use this when the client sent invalid data.
func BadRequest(err error) *HTTPError {
	msg := "bad request"
	if err != nil {
		msg = err.Error()
	}
	return &HTTPError{Code: http.StatusBadRequest, Message: msg, Err: err}
}

// BadRequestf creates a 400 Bad Request error with a formatted message.
func BadRequestf(format string, args ...any) *HTTPError {
	return &HTTPError{Code: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized creates a 401 Unauthorized error.
func Unauthorized(message ...string) *HTTPError {
	return withDefault(http.StatusUnauthorized, "unauthorized", message)
}

// Forbidden creates a 403 Forbidden error.
func Forbidden(message ...string) *HTTPError {
	return withDefault(http.StatusForbidden, "forbidden", message)
}

// NotFound creates a 404 Not Found error.
func NotFound(message ...string) *HTTPError {
	return withDefault(http.StatusNotFound, "not found", message)
}

// MethodNotAllowed creates a 405 Method Not Allowed error.
func MethodNotAllowed(message ...string) *HTTPError {
	return withDefault(http.StatusMethodNotAllowed, "method not allowed", message)
}

// Conflict creates a 409 Conflict error.
func Conflict(message ...string) *HTTPError {
	return withDefault(http.StatusConflict, "conflict", message)
}

// TooManyRequests creates a 429 Too Many Requests error.
func TooManyRequests(message ...string) *HTTPError {
	return withDefault(http.StatusTooManyRequests, "too many requests", message)
}

// InternalError creates a 500 Internal Server Error. The underlying error
// is kept for logging and never sent to the client.
func InternalError(err error) *HTTPError {
	return &HTTPError{Code: http.StatusInternalServerError, Message: "internal server error", Err: err}
}

func withDefault(code int, msg string, message []string) *HTTPError {
	if len(message) > 0 {
		msg = message[0]
	}
	return &HTTPError{Code: code, Message: msg}
}

// ResponseFor maps an error to the response it should produce and reports
// whether the error was one of the recognized response-carrying kinds.
// A *Response passes through unchanged and an *HTTPError uses its code and
// message. Anything else yields a generic 500 and false, so the caller can
// log the original.
func ResponseFor(err error) (*Response, bool) {
	var resp *Response
	if errors.As(err, &resp) {
		return resp, true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Response(), true
	}
	return ErrorJSON(http.StatusInternalServerError, "internal server error"), false
}
