// Package errors defines structured error types for the API.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/maruel/albumdb/internal/jsondb"
	"github.com/maruel/albumdb/internal/query"
	"github.com/maruel/albumdb/internal/storage"
)

// ErrorCode defines specific error types for the API.
type ErrorCode string

const (
	// ErrValidationFailed is returned when input data fails validation
	ErrValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrMissingField is returned when a required field is missing
	ErrMissingField ErrorCode = "MISSING_FIELD"
	// ErrInvalidFormat is returned when a field has an invalid format
	ErrInvalidFormat ErrorCode = "INVALID_FORMAT"
	// ErrInvalidQuery is returned when a statement is outside the supported dialect
	ErrInvalidQuery ErrorCode = "INVALID_QUERY"

	// ErrNotFound is returned when a resource is not found
	ErrNotFound ErrorCode = "NOT_FOUND"
	// ErrConflict is returned when there is a resource conflict
	ErrConflict ErrorCode = "CONFLICT"

	// ErrRetryLater is returned when the write lock could not be acquired in time
	ErrRetryLater ErrorCode = "RETRY_LATER"
	// ErrStoreUnavailable is returned when the data file is corrupt or unreadable
	ErrStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// ErrRateLimited is returned when a client exceeds its request budget
	ErrRateLimited ErrorCode = "RATE_LIMITED"

	// ErrInternal is returned when an unexpected server error occurs
	ErrInternal ErrorCode = "INTERNAL_ERROR"
)

// ErrorWithStatus is an error that includes an HTTP status code and error code.
type ErrorWithStatus interface {
	Error() string
	StatusCode() int
	Code() ErrorCode
	Details() map[string]any
}

// APIError is a concrete error type with status code, code, and optional details.
type APIError struct {
	statusCode int
	code       ErrorCode
	message    string
	details    map[string]any
	wrappedErr error
}

// NewAPIError creates a new APIError with the given status code and message.
func NewAPIError(statusCode int, code ErrorCode, message string) *APIError {
	return &APIError{
		statusCode: statusCode,
		code:       code,
		message:    message,
		details:    make(map[string]any),
	}
}

// WithDetail adds a single detail to the error.
func (e *APIError) WithDetail(key string, value any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Wrap wraps an underlying error.
func (e *APIError) Wrap(err error) *APIError {
	e.wrappedErr = err
	return e
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// StatusCode returns the HTTP status code.
func (e *APIError) StatusCode() int {
	return e.statusCode
}

// Code returns the error code.
func (e *APIError) Code() ErrorCode {
	return e.code
}

// Details returns additional error details.
func (e *APIError) Details() map[string]any {
	return e.details
}

// Unwrap returns the wrapped error if any.
func (e *APIError) Unwrap() error {
	return e.wrappedErr
}

// Predefined error constructors for common cases

// NotFound creates a 404 Not Found error.
func NotFound(resource string) *APIError {
	return NewAPIError(http.StatusNotFound, ErrNotFound, fmt.Sprintf("%s not found", resource))
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrValidationFailed, message)
}

// MissingField creates a 400 Bad Request error for a missing field.
func MissingField(fieldName string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrMissingField, fmt.Sprintf("Missing required field: %s", fieldName))
}

// InvalidFormat creates a 400 Bad Request error for a malformed field.
func InvalidFormat(fieldName, message string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrInvalidFormat, fmt.Sprintf("Invalid %s: %s", fieldName, message)).WithDetail("field", fieldName)
}

// Conflict creates a 409 Conflict error.
func Conflict(message string) *APIError {
	return NewAPIError(http.StatusConflict, ErrConflict, message)
}

// RetryLater creates a 503 error for a transient failure the client may retry.
func RetryLater(message string) *APIError {
	return NewAPIError(http.StatusServiceUnavailable, ErrRetryLater, message)
}

// StoreUnavailable creates a 503 error for a store that cannot serve requests.
func StoreUnavailable(err error) *APIError {
	return NewAPIError(http.StatusServiceUnavailable, ErrStoreUnavailable, "Data store unavailable").Wrap(err)
}

// TooManyRequests creates a 429 error.
func TooManyRequests() *APIError {
	return NewAPIError(http.StatusTooManyRequests, ErrRateLimited, "Too many requests")
}

// Internal returns a 500 Internal Server Error.
func Internal(message string) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrInternal, message)
}

// InternalWithError creates a 500 error wrapping an underlying error.
func InternalWithError(message string, err error) *APIError {
	return Internal(message).Wrap(err)
}

// FromStore maps an error returned by the album store to an API error.
// Unknown errors are treated as I/O failures.
func FromStore(err error) *APIError {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, jsondb.ErrLockTimeout):
		return RetryLater("Operation failed, please retry").Wrap(err)
	case errors.Is(err, jsondb.ErrCorrupt):
		return StoreUnavailable(err)
	case errors.Is(err, query.ErrUnrecognized), errors.Is(err, query.ErrParamCount), errors.Is(err, storage.ErrStatementKind):
		return NewAPIError(http.StatusBadRequest, ErrInvalidQuery, "Invalid query").Wrap(err)
	case errors.Is(err, storage.ErrInvalidValue):
		return NewAPIError(http.StatusBadRequest, ErrInvalidFormat, "Invalid value").Wrap(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return RetryLater("Request canceled").Wrap(err)
	default:
		return StoreUnavailable(err)
	}
}
