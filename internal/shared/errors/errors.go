package errors

import (
	"errors"
	"net/http"
)

// Common error kinds shared by HTTP-facing packages.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrMethodNotAllowed = errors.New("method not allowed")
	ErrRateLimited      = errors.New("rate limited")
	ErrInternal         = errors.New("internal error")
)

// AppError is an error that knows how it is rendered to an HTTP caller.
type AppError struct {
	Code       string
	Message    string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Body is the JSON error document returned to callers.
func (e *AppError) Body() map[string]any {
	return map[string]any{"error": e.Code, "message": e.Message}
}

// InvalidRequest is returned for requests that fail validation.
func InvalidRequest(message string) *AppError {
	return &AppError{Code: "invalid_request", Message: message, StatusCode: http.StatusBadRequest, Err: ErrBadRequest}
}

// Unauthorized is returned when no valid credential is presented.
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return &AppError{Code: "unauthorized", Message: message, StatusCode: http.StatusUnauthorized, Err: ErrUnauthorized}
}

// Forbidden is returned when the credential does not cover the request.
func Forbidden(message string) *AppError {
	if message == "" {
		message = "access denied"
	}
	return &AppError{Code: "forbidden", Message: message, StatusCode: http.StatusForbidden, Err: ErrForbidden}
}

// MethodNotAllowed is returned for unsupported HTTP methods.
func MethodNotAllowed() *AppError {
	return &AppError{Code: "method_not_allowed", Message: "Method not allowed", StatusCode: http.StatusMethodNotAllowed, Err: ErrMethodNotAllowed}
}

// RateLimited is returned when a caller exceeds its request budget.
func RateLimited(message string) *AppError {
	if message == "" {
		message = "too many requests"
	}
	return &AppError{Code: "rate_limited", Message: message, StatusCode: http.StatusTooManyRequests, Err: ErrRateLimited}
}

// Internal wraps err behind a message safe to show callers.
func Internal(code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: http.StatusInternalServerError, Err: err}
}

// StatusCode returns the HTTP status for err.
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
