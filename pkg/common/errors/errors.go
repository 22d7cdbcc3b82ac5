// Package errors defines the sentinel errors shared across relpat and maps them
// onto HTTP status codes for the API and tool surfaces.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common sentinel errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal error")
	ErrUnavailable  = errors.New("unavailable")
)

// Is and As re-export the standard helpers so callers need a single errors import.
var (
	Is = errors.Is
	As = errors.As
)

// New creates a plain error, like the standard errors.New.
func New(text string) error {
	return errors.New(text)
}

// Invalidf returns an error wrapping ErrInvalidInput.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// NotFoundf returns an error wrapping ErrNotFound.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// AppError represents an application-specific error with an HTTP status code.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// MapError maps an error onto an AppError with the matching HTTP status code.
func MapError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return NewAppError(http.StatusBadRequest, "Invalid request", err)
	case errors.Is(err, ErrNotFound):
		return NewAppError(http.StatusNotFound, "Resource not found", err)
	case errors.Is(err, ErrConflict):
		return NewAppError(http.StatusConflict, "Conflict", err)
	case errors.Is(err, ErrUnavailable):
		return NewAppError(http.StatusServiceUnavailable, "Service unavailable", err)
	}
	return NewAppError(http.StatusInternalServerError, "Internal server error", err)
}
