package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors shared by every layer. AppError values wrap one of these so
// callers can match on the category with errors.Is.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("resource already exists")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrLimitExceeded  = errors.New("limit exceeded")
	ErrRateLimited    = errors.New("rate limited")
	ErrServiceUnavail = errors.New("service unavailable")
)

// kind ties a sentinel to its API code and HTTP status.
type kind struct {
	sentinel error
	code     string
	status   int
}

// kinds is ordered so the more specific match wins in Classify.
var kinds = []kind{
	{ErrNotFound, "NOT_FOUND", http.StatusNotFound},
	{ErrAlreadyExists, "ALREADY_EXISTS", http.StatusConflict},
	{ErrConflict, "CONFLICT", http.StatusConflict},
	{ErrInvalidInput, "INVALID_INPUT", http.StatusBadRequest},
	{ErrUnauthorized, "UNAUTHORIZED", http.StatusUnauthorized},
	{ErrForbidden, "FORBIDDEN", http.StatusForbidden},
	{ErrLimitExceeded, "LIMIT_EXCEEDED", http.StatusUnprocessableEntity},
	{ErrRateLimited, "RATE_LIMITED", http.StatusTooManyRequests},
	{ErrServiceUnavail, "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable},
}

const (
	internalCode    = "INTERNAL_ERROR"
	internalMessage = "an internal error occurred"
)

// AppError is a structured error carrying an API code and the HTTP status it
// maps to.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newError(sentinel error, message string) *AppError {
	for _, k := range kinds {
		if k.sentinel == sentinel {
			return &AppError{Code: k.code, Message: message, Status: k.status, Err: sentinel}
		}
	}
	return &AppError{Code: internalCode, Message: message, Status: http.StatusInternalServerError, Err: sentinel}
}

// NotFound reports a missing resource (404).
func NotFound(resource, id string) *AppError {
	return newError(ErrNotFound, fmt.Sprintf("%s with id %s not found", resource, id))
}

// AlreadyExists reports a uniqueness clash on field (409).
func AlreadyExists(resource, field, value string) *AppError {
	return newError(ErrAlreadyExists, fmt.Sprintf("%s with %s %q already exists", resource, field, value))
}

// InvalidInput reports a request the caller must fix (400).
func InvalidInput(message string) *AppError {
	return newError(ErrInvalidInput, message)
}

// Unauthorized reports a missing or unusable credential (401).
func Unauthorized(message string) *AppError {
	return newError(ErrUnauthorized, message)
}

// Forbidden reports an authenticated caller without the needed role (403).
func Forbidden(message string) *AppError {
	return newError(ErrForbidden, message)
}

// Conflict reports a state clash that is not a duplicate, such as a
// concurrent write winning a race (409).
func Conflict(message string) *AppError {
	return newError(ErrConflict, message)
}

// LimitExceeded reports a per-owner collection already at its maximum
// size (422).
func LimitExceeded(resource string, limit int) *AppError {
	return newError(ErrLimitExceeded, fmt.Sprintf("maximum of %d %s reached", limit, resource))
}

// RateLimited reports a throttled caller (429).
func RateLimited(message string) *AppError {
	return newError(ErrRateLimited, message)
}

// ServiceUnavailable reports a dependency that cannot serve right now (503).
func ServiceUnavailable(message string) *AppError {
	return newError(ErrServiceUnavail, message)
}

// Internal hides cause behind a generic 500. The cause is kept for logs.
func Internal(cause error) *AppError {
	return &AppError{
		Code:    internalCode,
		Message: internalMessage,
		Status:  http.StatusInternalServerError,
		Err:     cause,
	}
}

// Classify returns the API code and HTTP status for err. An *AppError
// anywhere in the chain wins; otherwise the first matching sentinel
// decides, and anything else is an internal error.
func Classify(err error) (code string, status int) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, appErr.Status
	}
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.code, k.status
		}
	}
	return internalCode, http.StatusInternalServerError
}

// HTTPStatus returns the HTTP status code for err.
func HTTPStatus(err error) int {
	_, status := Classify(err)
	return status
}
