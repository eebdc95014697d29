// Package resilient wraps an ObjectStore with retries and an optional
// circuit breaker.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/custodia-labs/rolodex/internal/core/domain"
	"github.com/custodia-labs/rolodex/internal/logger"
)

// Classifier reports whether an error may succeed on a later attempt.
type Classifier func(err error) bool

// Retrier runs an operation until it succeeds, fails permanently or runs
// out of attempts. The wait before attempt n+1 is a random duration in
// [0.5, 1.0] of min(MaxDelay, BaseDelay*2^(n-1)).
type Retrier struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	retryable  Classifier

	// sleep waits for d or until ctx is done. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
	// jitter returns a value in [0, 1).
	jitter func() float64
}

// NewRetrier creates a retrier from settings. RetryAll retries every
// error except context cancellation.
func NewRetrier(settings domain.RetrySettings) *Retrier {
	classify := IsTransient
	if settings.RetryAll {
		classify = retryAll
	}
	r := &Retrier{
		maxRetries: settings.MaxRetries,
		baseDelay:  settings.BaseDelay,
		maxDelay:   settings.MaxDelay,
		retryable:  classify,
		sleep:      sleepContext,
		jitter:     rand.Float64,
	}
	if r.maxRetries < 0 {
		r.maxRetries = 0
	}
	if r.maxDelay < r.baseDelay {
		r.maxDelay = r.baseDelay
	}
	return r
}

// WithClassifier replaces the retry classifier.
func (r *Retrier) WithClassifier(c Classifier) *Retrier {
	r.retryable = c
	return r
}

// Do runs fn up to MaxRetries+1 times.
func (r *Retrier) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	_, err := Retry(ctx, r, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Retry runs fn through r and returns its result.
func Retry[T any](ctx context.Context, r *Retrier, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := r.maxRetries + 1

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if !r.retryable(err) {
			return zero, err
		}
		if attempt >= attempts {
			return zero, fmt.Errorf("%s: giving up after %d attempts: %w", name, attempts, err)
		}

		wait := r.Backoff(attempt)
		logger.Warnw("retrying remote call", "op", name, "attempt", attempt, "backoff", wait, "error", err)
		if err := r.sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
}

// Backoff returns the wait after the given failed attempt (1-based).
func (r *Retrier) Backoff(attempt int) time.Duration {
	ceiling := r.baseDelay
	for i := 1; i < attempt && ceiling < r.maxDelay; i++ {
		ceiling *= 2
	}
	if ceiling > r.maxDelay {
		ceiling = r.maxDelay
	}
	return time.Duration(float64(ceiling) * (0.5 + r.jitter()/2))
}

// IsTransient is the default classifier. Missing files, bad input,
// authentication problems, an open breaker and cancellation are permanent;
// anything else, including rate limiting and network failures, is retried.
func IsTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrUnsupportedType),
		errors.Is(err, domain.ErrAuthRequired),
		errors.Is(err, domain.ErrAuthExpired),
		errors.Is(err, domain.ErrTokenRefreshFailed),
		errors.Is(err, domain.ErrStoreUnavailable):
		return false
	default:
		return true
	}
}

func retryAll(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
