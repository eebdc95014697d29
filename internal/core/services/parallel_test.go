package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMapLimited_KeepsOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	items := []int{5, 1, 4, 2, 3}
	got, err := mapLimited(context.Background(), items, 2, func(_ context.Context, n int) (int, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{50, 10, 40, 20, 30}, got)
}

func TestMapLimited_RespectsLimit(t *testing.T) {
	defer goleak.VerifyNone(t)

	var inFlight, peak atomic.Int32
	items := make([]int, 20)
	_, err := mapLimited(context.Background(), items, 3, func(_ context.Context, _ int) (struct{}, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return struct{}{}, nil
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestMapLimited_FirstErrorReturned(t *testing.T) {
	defer goleak.VerifyNone(t)

	boom := errors.New("boom")
	_, err := mapLimited(context.Background(), []int{1, 2, 3}, 1, func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, boom
		}
		return n, nil
	})

	assert.ErrorIs(t, err, boom)
}

func TestMapLimited_CancelledContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	_, err := mapLimited(ctx, []int{1, 2, 3}, 2, func(_ context.Context, n int) (int, error) {
		calls.Add(1)
		return n, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}

func TestMapLimited_Empty(t *testing.T) {
	got, err := mapLimited(context.Background(), nil, 0, func(_ context.Context, n int) (int, error) {
		return n, nil
	})

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestForEachLimited(t *testing.T) {
	var sum atomic.Int64
	err := forEachLimited(context.Background(), []int64{1, 2, 3, 4}, 4, func(_ context.Context, n int64) error {
		sum.Add(n)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, int64(10), sum.Load())
}
