// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Configuration errors.
var (
	// ErrInvalidConfig indicates a beneficiary document failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrSnapshotNotLoaded indicates no configuration snapshot has been published yet.
	ErrSnapshotNotLoaded = errors.New("configuration snapshot not loaded")

	// ErrCreatorUnavailable indicates a remote creator document could not be used.
	ErrCreatorUnavailable = errors.New("creator configuration unavailable")
)

// HTTP and upstream errors.
var (
	// ErrHTTPStatusNotOK indicates an HTTP response with a non-2xx status code.
	ErrHTTPStatusNotOK = errors.New("HTTP status not OK")

	// ErrTooManyRedirects indicates a redirect chain exceeded the limit.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrCircuitBreakerOpen indicates the circuit breaker has tripped and requests are blocked.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
)

// Affiliate API errors.
var (
	// ErrMissingCredentials indicates the beneficiary lacks the credentials for a call.
	ErrMissingCredentials = errors.New("missing affiliate credentials")

	// ErrAPIResponse indicates the affiliate API reported a non-success code.
	ErrAPIResponse = errors.New("affiliate API error response")

	// ErrNoPromotionLink indicates a successful response without any promotion link.
	ErrNoPromotionLink = errors.New("no promotion link in response")
)

// Cache errors.
var (
	// ErrCacheNotFound indicates a cache entry was not found.
	ErrCacheNotFound = errors.New("cache entry not found")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
