package apperr

import "net/http"

// Error is the uniform service error carried from the storage, upload, and
// validation layers up to the HTTP layer, which serializes it as
// {"message": ..., "details": {...}} with the embedded status code.
type Error struct {
	StatusCode int
	Message    string
	Details    map[string]any
}

func (serviceError *Error) Error() string {
	return serviceError.Message
}

// New creates a service error with the given status code, message, and details.
func New(statusCode int, message string, details map[string]any) *Error {
	return &Error{StatusCode: statusCode, Message: message, Details: details}
}

// Invalid creates a caller-input error (HTTP 400).
func Invalid(message string, details map[string]any) *Error {
	return New(http.StatusBadRequest, message, details)
}

// NotFound creates a missing-row error (HTTP 404).
func NotFound(message string, details map[string]any) *Error {
	return New(http.StatusNotFound, message, details)
}

// Internal creates a backend error (HTTP 500).
func Internal(message string, details map[string]any) *Error {
	return New(http.StatusInternalServerError, message, details)
}
