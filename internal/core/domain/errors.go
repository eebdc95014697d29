package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates an unknown storage backend or option kind.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrRateLimited indicates the remote store rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrStoreUnavailable indicates the remote store refused calls, for example
	// because the circuit breaker is open.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrOffline indicates a write was attempted while working from the local cache.
	ErrOffline = errors.New("offline mode is read-only")

	// Authentication Errors.

	// ErrAuthRequired indicates the remote store needs a token but none is configured.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthExpired indicates the authentication has expired and refresh failed.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrTokenRefreshFailed indicates token refresh operation failed.
	ErrTokenRefreshFailed = errors.New("token refresh failed")
)
