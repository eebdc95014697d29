package google

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/rolodex/internal/core/domain"
)

// Common Google API errors. Each wraps the matching domain error so the
// storage layer can classify failures without importing this package.
var (
	// ErrUnauthorized indicates invalid or expired credentials.
	ErrUnauthorized = fmt.Errorf("google: unauthorised (invalid credentials): %w", domain.ErrAuthExpired)

	// ErrForbidden indicates insufficient permissions.
	ErrForbidden = fmt.Errorf("google: forbidden (insufficient permissions): %w", domain.ErrAuthRequired)

	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = fmt.Errorf("google: resource not found: %w", domain.ErrNotFound)

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = fmt.Errorf("google: rate limit exceeded: %w", domain.ErrRateLimited)

	// ErrQuotaExceeded indicates the daily API quota was exceeded. Retrying
	// before the quota resets is pointless.
	ErrQuotaExceeded = fmt.Errorf("google: quota exceeded: %w", domain.ErrStoreUnavailable)
)

// Reasons Drive reports on 403 responses that are really rate limits.
var rateLimitReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
}

// IsUnauthorized returns true if the error indicates invalid credentials.
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrUnauthorized) {
		return true
	}
	return statusCode(err) == http.StatusUnauthorized
}

// IsForbidden returns true if the error indicates insufficient permissions.
func IsForbidden(err error) bool {
	if errors.Is(err, ErrForbidden) {
		return true
	}
	return statusCode(err) == http.StatusForbidden && !IsRateLimited(err)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	return statusCode(err) == http.StatusNotFound
}

// IsRateLimited returns true for 429 responses and 403 rate limit reasons.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	if gerr.Code == http.StatusTooManyRequests {
		return true
	}
	if gerr.Code == http.StatusForbidden {
		for _, item := range gerr.Errors {
			if rateLimitReasons[item.Reason] {
				return true
			}
		}
	}
	return false
}

// IsQuotaExceeded returns true if the daily quota is used up.
func IsQuotaExceeded(err error) bool {
	if errors.Is(err, ErrQuotaExceeded) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusForbidden {
		for _, item := range gerr.Errors {
			if item.Reason == "dailyLimitExceeded" || item.Reason == "quotaExceeded" {
				return true
			}
		}
	}
	return false
}

// RetryAfter returns the server-requested wait from a Retry-After header.
func RetryAfter(err error) time.Duration {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Header == nil {
		return 0
	}
	secs, convErr := strconv.Atoi(gerr.Header.Get("Retry-After"))
	if convErr != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// WrapError converts a Google API error to one of the package errors,
// keeping the API message. Server errors pass through unchanged and are
// therefore treated as transient.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}

	switch {
	case IsRateLimited(err):
		return fmt.Errorf("%w: %s", ErrRateLimited, gerr.Message)
	case IsQuotaExceeded(err):
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, gerr.Message)
	case gerr.Code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, gerr.Message)
	case gerr.Code == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, gerr.Message)
	case gerr.Code == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, gerr.Message)
	case gerr.Code == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, gerr.Message)
	default:
		return err
	}
}

func statusCode(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}
