package services

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// mapLimited applies fn to every item with at most limit calls in flight.
// Results keep the order of items. The first error cancels the remaining
// calls and is returned.
func mapLimited[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) ([]R, error) {
	if limit < 1 {
		limit = 1
	}
	results := make([]R, len(items))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)
	for i := range items {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			r, err := fn(egCtx, items[i])
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// forEachLimited is mapLimited without results.
func forEachLimited[T any](ctx context.Context, items []T, limit int, fn func(context.Context, T) error) error {
	_, err := mapLimited(ctx, items, limit, func(ctx context.Context, item T) (struct{}, error) {
		return struct{}{}, fn(ctx, item)
	})
	return err
}
