package resilient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/custodia-labs/rolodex/internal/core/domain"
	"github.com/custodia-labs/rolodex/internal/core/ports/driven"
	"github.com/custodia-labs/rolodex/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.ObjectStore = (*Store)(nil)

// BreakerConfig tunes the circuit breaker.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig trips after five calls with at least 60% failures
// and probes again after 30 seconds.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// Store decorates an ObjectStore so every call is retried and, when a
// breaker is configured, short-circuited while the backend keeps failing.
type Store struct {
	next    driven.ObjectStore
	retrier *Retrier
	breaker *gobreaker.CircuitBreaker
}

// New wraps next with retries only.
func New(next driven.ObjectStore, retrier *Retrier) *Store {
	return &Store{next: next, retrier: retrier}
}

// NewWithBreaker wraps next with retries and a circuit breaker. The breaker
// sits inside the retry loop, so an open breaker stops retries at once.
func NewWithBreaker(next driven.ObjectStore, retrier *Retrier, cfg BreakerConfig) *Store {
	s := New(next, retrier)
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker %s: %s -> %s", name, from, to)
		},
		IsSuccessful: func(err error) bool {
			// Lookups that find nothing and rejected input say nothing about backend health.
			return err == nil || errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidInput)
		},
	})
	return s
}

// FromSettings builds the decorator described by the retry settings.
func FromSettings(next driven.ObjectStore, settings domain.RetrySettings, name string) *Store {
	retrier := NewRetrier(settings)
	if settings.BreakerEnabled {
		return NewWithBreaker(next, retrier, DefaultBreakerConfig(name))
	}
	return New(next, retrier)
}

func call[T any](ctx context.Context, s *Store, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	return Retry(ctx, s.retrier, name, func(ctx context.Context) (T, error) {
		if s.breaker == nil {
			return fn(ctx)
		}
		out, err := s.breaker.Execute(func() (interface{}, error) {
			return fn(ctx)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			var zero T
			return zero, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		if err != nil {
			var zero T
			return zero, err
		}
		return out.(T), nil
	})
}

// FindFolder implements driven.ObjectStore.
func (s *Store) FindFolder(ctx context.Context, parentID, name string) ([]domain.RemoteObject, error) {
	return call(ctx, s, "find folder "+name, func(ctx context.Context) ([]domain.RemoteObject, error) {
		return s.next.FindFolder(ctx, parentID, name)
	})
}

// CreateFolder implements driven.ObjectStore.
func (s *Store) CreateFolder(ctx context.Context, parentID, name string) (*domain.RemoteObject, error) {
	return call(ctx, s, "create folder "+name, func(ctx context.Context) (*domain.RemoteObject, error) {
		return s.next.CreateFolder(ctx, parentID, name)
	})
}

// FindFile implements driven.ObjectStore.
func (s *Store) FindFile(ctx context.Context, parentID, name string) ([]domain.RemoteObject, error) {
	return call(ctx, s, "find "+name, func(ctx context.Context) ([]domain.RemoteObject, error) {
		return s.next.FindFile(ctx, parentID, name)
	})
}

// ListFiles implements driven.ObjectStore.
func (s *Store) ListFiles(ctx context.Context, parentID string) ([]domain.RemoteObject, error) {
	return call(ctx, s, "list "+parentID, func(ctx context.Context) ([]domain.RemoteObject, error) {
		return s.next.ListFiles(ctx, parentID)
	})
}

// GetMetadata implements driven.ObjectStore.
func (s *Store) GetMetadata(ctx context.Context, id string) (*domain.RemoteObject, error) {
	return call(ctx, s, "get "+id, func(ctx context.Context) (*domain.RemoteObject, error) {
		return s.next.GetMetadata(ctx, id)
	})
}

// Download implements driven.ObjectStore.
func (s *Store) Download(ctx context.Context, id string) ([]byte, error) {
	return call(ctx, s, "download "+id, func(ctx context.Context) ([]byte, error) {
		return s.next.Download(ctx, id)
	})
}

// CreateFile implements driven.ObjectStore.
func (s *Store) CreateFile(
	ctx context.Context, parentID, name, mimeType string, content []byte,
) (*domain.RemoteObject, error) {
	return call(ctx, s, "create "+name, func(ctx context.Context) (*domain.RemoteObject, error) {
		return s.next.CreateFile(ctx, parentID, name, mimeType, content)
	})
}

// UpdateFile implements driven.ObjectStore.
func (s *Store) UpdateFile(ctx context.Context, id string, content []byte) (*domain.RemoteObject, error) {
	return call(ctx, s, "update "+id, func(ctx context.Context) (*domain.RemoteObject, error) {
		return s.next.UpdateFile(ctx, id, content)
	})
}

// Delete implements driven.ObjectStore.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := call(ctx, s, "delete "+id, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.next.Delete(ctx, id)
	})
	return err
}
