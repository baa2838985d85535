package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies a failure by how the run should react to it.
type ErrorType string

const (
	// Run-level failures: the whole run aborts.
	ErrorTypeListing ErrorType = "listing_failed"
	ErrorTypeAuth    ErrorType = "auth_expired"

	// Per-item failures: the item is marked failed, the run continues.
	ErrorTypeFetch  ErrorType = "fetch_failed"
	ErrorTypeParse  ErrorType = "parse_failed"
	ErrorTypeWrite  ErrorType = "write_failed"
	ErrorTypeRender ErrorType = "render_failed"

	// Transport-level classes used by retry decisions.
	ErrorTypeNetwork ErrorType = "network"
	ErrorTypeServer  ErrorType = "server_error"

	ErrorTypeUnknown ErrorType = "unknown"
)

// Error carries the failure class alongside the HTTP status (if any).
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// New builds a typed error. Code is the HTTP status when relevant, 0 otherwise.
func New(t ErrorType, code int, format string, args ...interface{}) *Error {
	return &Error{Type: t, Code: code, Message: fmt.Sprintf(format, args...)}
}

// TypeOf returns the error's type, unwrapping as needed.
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsFatal reports whether the error should abort the whole run:
// an expired login or a failed listing means every following item
// would fail identically.
func IsFatal(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeAuth, ErrorTypeListing:
		return true
	}
	return false
}

// IsRetryable checks if an error type should be retried.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeServer, ErrorTypeFetch:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error.
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504:
		return true
	case 401, 403, 404: // Client errors that won't change
		return false
	default:
		return statusCode >= 500
	}
}
