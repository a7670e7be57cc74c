package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUpstream          = errors.New("upstream fault")
	ErrTimeout           = errors.New("operation timed out")
	ErrCacheDisabled     = errors.New("cache disabled")
	ErrInternal          = errors.New("internal error")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Upstream wraps a data store failure. The cause stays reachable through
// errors.Is/As for logging but is never part of the public message.
func Upstream(op string, cause error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUpstream, cause)
}

// HTTPStatusCode maps err to a response status. ErrTimeout has no status of
// its own: a deadline is an upstream fault and answers 500.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidIdentifier), errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrCacheDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text that may be shown to API clients. Only
// client errors carry their own message; everything else is generic.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode < http.StatusInternalServerError {
		return appErr.Message
	}
	switch HTTPStatusCode(err) {
	case http.StatusBadRequest:
		return "Bad Request"
	case http.StatusServiceUnavailable:
		return "Service Unavailable"
	default:
		return "Internal Server Error"
	}
}
