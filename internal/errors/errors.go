// Package errors defines the structured error type used across kasane.
// Every error carries a stable code so callers can branch on taxonomy
// rather than message text.
package errors

import (
	"errors"
	"fmt"
)

// KasaneError is the structured error type.
type KasaneError struct {
	// Code is the stable error code (e.g., "ERR_401_INVALID_WEIGHTS").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is derived from the code range.
	Category Category

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *KasaneError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *KasaneError) Unwrap() error {
	return e.Cause
}

// Is matches by code, enabling errors.Is with sentinel-style targets.
func (e *KasaneError) Is(target error) bool {
	if t, ok := target.(*KasaneError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail. Returns the error for chaining.
func (e *KasaneError) WithDetail(key, value string) *KasaneError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a KasaneError with the given code and message.
func New(code string, message string, cause error) *KasaneError {
	return &KasaneError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a KasaneError from an existing error, adopting its message.
// Returns nil when err is nil.
func Wrap(code string, err error) *KasaneError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// InvalidWeights reports negative fusion weights. Rejected before any
// retrieval runs.
func InvalidWeights(message string) *KasaneError {
	return New(ErrCodeInvalidWeights, message, nil)
}

// EmptyQuery reports a request with no usable query signal for its mode.
func EmptyQuery(message string) *KasaneError {
	return New(ErrCodeEmptyQuery, message, nil)
}

// DimensionMismatch reports a dense query/index vector size disagreement.
// Fatal to that query; never retried.
func DimensionMismatch(expected, got int, cause error) *KasaneError {
	return New(ErrCodeDimensionMismatch,
		fmt.Sprintf("query vector has %d dimensions, index expects %d", got, expected),
		cause).
		WithDetail("expected", fmt.Sprintf("%d", expected)).
		WithDetail("got", fmt.Sprintf("%d", got))
}

// InvalidMode reports an unrecognized search mode.
func InvalidMode(mode string) *KasaneError {
	return New(ErrCodeInvalidMode, fmt.Sprintf("unknown search mode: %q", mode), nil).
		WithDetail("mode", mode)
}

// HasCode reports whether err (or anything it wraps) carries the code.
func HasCode(err error, code string) bool {
	var ke *KasaneError
	if errors.As(err, &ke) {
		return ke.Code == code
	}
	return false
}

// IsValidation reports whether err is a request-validation failure.
// Validation failures are surfaced synchronously and never retried.
func IsValidation(err error) bool {
	var ke *KasaneError
	if errors.As(err, &ke) {
		return ke.Category == CategoryValidation
	}
	return false
}
