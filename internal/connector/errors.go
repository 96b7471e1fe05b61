package connector

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind is the category of a failure inside the acquisition layer.
type Kind string

const (
	// KindTransient indicates a network-level or 5xx failure worth retrying.
	KindTransient Kind = "transient"
	// KindRateLimited indicates the upstream rejected the request with 429.
	KindRateLimited Kind = "rate_limited"
	// KindAuthFailure indicates a bad or missing credential (401/403).
	KindAuthFailure Kind = "auth_failure"
	// KindValidationFailure indicates a malformed request or response
	// (4xx other than 401/403/429, or a payload that failed mapping).
	KindValidationFailure Kind = "validation_failure"
	// KindNotInitialized indicates the connector was used before
	// Initialize or after Dispose. Programmer error, always fatal to
	// the call.
	KindNotInitialized Kind = "not_initialized"
	// KindConfigError indicates missing or invalid configuration,
	// fatal at initialization only.
	KindConfigError Kind = "config_error"
	// KindScraperUnavailable indicates the scrape fallback was attempted
	// without a working scraper. Never surfaces to the caller; the chain
	// moves on to synthesis.
	KindScraperUnavailable Kind = "scraper_unavailable"
)

// Error is a classified failure from a tier, the retry loop, or the
// connector state machine.
type Error struct {
	Kind       Kind
	Retryable  bool
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Unwrap supports errors.Is and errors.As against the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewTransientError wraps a network-level failure.
func NewTransientError(cause error) *Error {
	return &Error{
		Kind:      KindTransient,
		Retryable: true,
		Message:   "transport request failed",
		Cause:     cause,
	}
}

// NewRateLimitedError records an upstream 429.
func NewRateLimitedError(statusCode int) *Error {
	return &Error{
		Kind:       KindRateLimited,
		Retryable:  true,
		StatusCode: statusCode,
		Message:    "upstream rate limit exceeded",
	}
}

// NewAuthError records a credential rejection.
func NewAuthError(statusCode int) *Error {
	return &Error{
		Kind:       KindAuthFailure,
		Retryable:  false,
		StatusCode: statusCode,
		Message:    "credential rejected",
	}
}

// NewValidationError records a malformed request or response.
func NewValidationError(message string) *Error {
	return &Error{
		Kind:      KindValidationFailure,
		Retryable: false,
		Message:   message,
	}
}

// NewNotInitializedError reports use of a connector outside the Ready state.
func NewNotInitializedError(network string) *Error {
	return &Error{
		Kind:      KindNotInitialized,
		Retryable: false,
		Message:   fmt.Sprintf("connector for %s is not ready", network),
	}
}

// NewConfigError reports invalid configuration at initialization.
func NewConfigError(message string, cause error) *Error {
	return &Error{
		Kind:      KindConfigError,
		Retryable: false,
		Message:   message,
		Cause:     cause,
	}
}

// NewScraperUnavailableError reports an unusable scrape fallback.
func NewScraperUnavailableError(cause error) *Error {
	return &Error{
		Kind:      KindScraperUnavailable,
		Retryable: false,
		Message:   "scrape fallback unavailable",
		Cause:     cause,
	}
}

// ClassifyStatus maps an HTTP status code to a typed error.
func ClassifyStatus(statusCode int) *Error {
	switch {
	case statusCode == 429:
		return NewRateLimitedError(statusCode)
	case statusCode == 401 || statusCode == 403:
		return NewAuthError(statusCode)
	case statusCode >= 500:
		return &Error{
			Kind:       KindTransient,
			Retryable:  true,
			StatusCode: statusCode,
			Message:    "upstream server error",
		}
	case statusCode >= 400:
		return &Error{
			Kind:       KindValidationFailure,
			Retryable:  false,
			StatusCode: statusCode,
			Message:    fmt.Sprintf("upstream rejected request: HTTP %d", statusCode),
		}
	default:
		return &Error{
			Kind:       KindTransient,
			Retryable:  true,
			StatusCode: statusCode,
			Message:    fmt.Sprintf("unexpected status code: %d", statusCode),
		}
	}
}

// Classify coerces an arbitrary failure into a typed *Error. Already typed
// errors pass through unchanged. Timeouts and network errors become
// Transient; anything unrecognized is treated as Transient so it stays
// inside the fallback chain instead of escaping it.
func Classify(err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}

	if errors.Is(err, context.Canceled) {
		return &Error{
			Kind:      KindTransient,
			Retryable: false,
			Message:   "request canceled",
			Cause:     err,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{
			Kind:      KindTransient,
			Retryable: true,
			Message:   "request timed out",
			Cause:     err,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return &Error{
				Kind:      KindTransient,
				Retryable: true,
				Message:   "request timed out",
				Cause:     err,
			}
		}
		return NewTransientError(err)
	}

	return NewTransientError(err)
}

// Retryable reports whether err should be retried according to its
// classification.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return Classify(err).Retryable
}
