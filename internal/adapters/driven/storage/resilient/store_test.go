package resilient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/rolodex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/rolodex/internal/core/domain"
	"github.com/custodia-labs/rolodex/internal/core/ports/driven"
)

// flakyStore fails the first n calls of every method with err.
type flakyStore struct {
	driven.ObjectStore
	failures int
	err      error
	calls    int
}

func (f *flakyStore) fail() error {
	f.calls++
	if f.calls <= f.failures {
		return f.err
	}
	return nil
}

func (f *flakyStore) ListFiles(ctx context.Context, parentID string) ([]domain.RemoteObject, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.ObjectStore.ListFiles(ctx, parentID)
}

func (f *flakyStore) Download(ctx context.Context, id string) ([]byte, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.ObjectStore.Download(ctx, id)
}

func fastRetrier() *Retrier {
	r := NewRetrier(domain.RetrySettings{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond})
	r.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return r
}

func TestStore_RetriesTransientFailures(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewObjectStore()
	file, err := mem.CreateFile(ctx, "", "contact-000001.json", domain.JSONMimeType, []byte(`{}`))
	require.NoError(t, err)

	flaky := &flakyStore{ObjectStore: mem, failures: 2, err: errors.New("500 internal")}
	store := New(flaky, fastRetrier())

	data, err := store.Download(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
	assert.Equal(t, 3, flaky.calls)
}

func TestStore_PassesThrough(t *testing.T) {
	ctx := context.Background()
	store := New(memory.NewObjectStore(), fastRetrier())

	folder, err := store.CreateFolder(ctx, "", "rolodex")
	require.NoError(t, err)
	found, err := store.FindFolder(ctx, "", "rolodex")
	require.NoError(t, err)
	require.Len(t, found, 1)

	file, err := store.CreateFile(ctx, folder.ID, "a.json", domain.JSONMimeType, []byte("1"))
	require.NoError(t, err)
	_, err = store.UpdateFile(ctx, file.ID, []byte("2"))
	require.NoError(t, err)

	files, err := store.FindFile(ctx, folder.ID, "a.json")
	require.NoError(t, err)
	require.Len(t, files, 1)

	meta, err := store.GetMetadata(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), meta.Size)

	require.NoError(t, store.Delete(ctx, file.ID))
	_, err = store.GetMetadata(ctx, file.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_BreakerOpensAndStopsCalls(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyStore{ObjectStore: memory.NewObjectStore(), failures: 1000, err: errors.New("502 bad gateway")}

	cfg := DefaultBreakerConfig("test")
	cfg.MinRequests = 3
	cfg.FailureThreshold = 0.5
	store := NewWithBreaker(flaky, fastRetrier(), cfg)

	// Three failures trip the breaker; the fourth attempt is rejected.
	_, err := store.ListFiles(ctx, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Equal(t, 3, flaky.calls)

	_, err = store.ListFiles(ctx, "")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Equal(t, 3, flaky.calls, "open breaker must not reach the store")
}

func TestStore_BreakerIgnoresNotFound(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultBreakerConfig("test")
	cfg.MinRequests = 1
	store := NewWithBreaker(memory.NewObjectStore(), fastRetrier(), cfg)

	for i := 0; i < 5; i++ {
		_, err := store.Download(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}

	_, err := store.ListFiles(ctx, "")
	assert.NoError(t, err)
}

func TestFromSettings(t *testing.T) {
	mem := memory.NewObjectStore()

	plain := FromSettings(mem, domain.RetrySettings{MaxRetries: 1}, "drive")
	assert.Nil(t, plain.breaker)

	guarded := FromSettings(mem, domain.RetrySettings{MaxRetries: 1, BreakerEnabled: true}, "drive")
	assert.NotNil(t, guarded.breaker)
}
