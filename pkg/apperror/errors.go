package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrBadRequest        = errors.New("bad request")
	ErrInternal          = errors.New("internal server error")
	ErrInvalidInput      = errors.New("invalid input")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// Hunt lifecycle errors. Each wraps one of the generic sentinels above so that
// MapErrorToStatus keeps working on them.
var (
	ErrSessionNotFound     = fmt.Errorf("game session not found: %w", ErrNotFound)
	ErrOwnershipMismatch   = fmt.Errorf("wallet address does not match game session owner: %w", ErrForbidden)
	ErrInvalidPermalink    = errors.New("could not resolve comment from permalink")
	ErrNoSuitablePost      = errors.New("no suitable posts found after all attempts")
	ErrNoCommentsFound     = errors.New("no comments found for selected post")
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
)

// AppError is a custom error type that can hold an HTTP status code
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// HuntStartFailed carries the reason a hunt could not be created.
type HuntStartFailed struct {
	Reason error
}

func (e *HuntStartFailed) Error() string {
	return fmt.Sprintf("failed to start hunt: %v", e.Reason)
}

func (e *HuntStartFailed) Unwrap() error {
	return e.Reason
}

// MapErrorToStatus maps common errors to HTTP status codes
func MapErrorToStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != 0 {
		return appErr.Code
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrInvalidInput) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrRateLimitExceeded) {
		return http.StatusTooManyRequests
	}
	if errors.Is(err, ErrInvalidPermalink) {
		return http.StatusUnprocessableEntity
	}
	if errors.Is(err, ErrNoSuitablePost) || errors.Is(err, ErrNoCommentsFound) {
		return http.StatusServiceUnavailable
	}
	if errors.Is(err, ErrUpstreamUnavailable) {
		return http.StatusBadGateway
	}
	// Default to internal server error
	return http.StatusInternalServerError
}
