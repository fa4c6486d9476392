package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sentinel errors. The typed errors below unwrap to one of these, so callers
// branch with errors.Is and the HTTP layer maps them to status codes.
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrRateLimited        = errors.New("rate limited")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrExternalAPI        = errors.New("external api error")

	// ErrScoringDisabled is returned by operations that need an LLM provider
	// when none is configured.
	ErrScoringDisabled = errors.New("scoring disabled")

	// ErrEmptyProfile is returned when there are no interests to score against.
	ErrEmptyProfile = errors.New("interest profile is empty")
)

// ValidationError rejects a single request field.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NotFoundError names the missing entity, e.g. ("paper", id).
type NotFoundError struct {
	Entity string
	ID     string
}

func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// AlreadyExistsError is a uniqueness conflict, e.g. a duplicate keyword or
// feed URL.
type AlreadyExistsError struct {
	Entity string
	ID     string
}

func NewAlreadyExistsError(entity, id string) *AlreadyExistsError {
	return &AlreadyExistsError{Entity: entity, ID: id}
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Entity, e.ID)
}

func (e *AlreadyExistsError) Unwrap() error { return ErrAlreadyExists }

// RateLimitError reports throttling by a paper source. RetryAfter is zero
// when the source gave no hint.
type RateLimitError struct {
	Source     string
	RetryAfter time.Duration
}

func NewRateLimitError(source string, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{Source: source, RetryAfter: retryAfter}
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited by %s: retry after %s", e.Source, e.RetryAfter)
	}
	return fmt.Sprintf("rate limited by %s", e.Source)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// ExternalAPIError is a non-success reply from a paper source.
type ExternalAPIError struct {
	Source     string
	StatusCode int
	Message    string
	Cause      error
}

func NewExternalAPIError(source string, statusCode int, message string, cause error) *ExternalAPIError {
	return &ExternalAPIError{Source: source, StatusCode: statusCode, Message: message, Cause: cause}
}

func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Source, e.StatusCode, e.Message)
}

// Unwrap yields ErrExternalAPI, ErrRateLimited for a 429, and the cause.
func (e *ExternalAPIError) Unwrap() []error {
	errs := []error{ErrExternalAPI}
	if e.StatusCode == http.StatusTooManyRequests {
		errs = append(errs, ErrRateLimited)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func IsRateLimited(err error) bool { return errors.Is(err, ErrRateLimited) }

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsAlreadyExists(err error) bool { return errors.Is(err, ErrAlreadyExists) }
