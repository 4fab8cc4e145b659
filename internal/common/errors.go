package common

import (
	"errors"
	"fmt"
)

// AuthorizationError signals a rejected credential: invalid, expired, or over
// quota. It is fatal for the whole batch and is never retried.
type AuthorizationError struct {
	Provider string
	Message  string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s: authorization failed: %s", e.Provider, e.Message)
}

// NotFoundError signals that a provider answered but had no data for the
// query, even after the resolver's lookback or fallback policy.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.What)
}

// ProviderError represents any other non-2xx provider response. It is
// propagated as-is; retry policy belongs to the caller.
type ProviderError struct {
	Provider   string
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: API error: %s (status: %d, endpoint: %s)", e.Provider, e.Message, e.StatusCode, e.Endpoint)
}

// IsAuthorization reports whether err is (or wraps) an AuthorizationError.
func IsAuthorization(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}
