package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/custodia-labs/rolodex/internal/core/ports/driven"
	"github.com/custodia-labs/rolodex/internal/logger"
)

// DefaultPollInterval is how often a Poller lists the watched folders.
const DefaultPollInterval = 30 * time.Second

// Poller detects changed files by listing folders on an interval.
// It serves stores that cannot push change notifications.
type Poller struct {
	store    driven.ObjectStore
	interval time.Duration
}

// NewPoller creates a poller. A non-positive interval uses DefaultPollInterval.
func NewPoller(store driven.ObjectStore, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{store: store, interval: interval}
}

// fingerprint records what a listing saw of one file.
type fingerprint struct {
	modified time.Time
	size     int64
}

// Run lists folderIDs every interval and calls onChange with the IDs of
// files that were added, modified or removed since the previous listing.
// It blocks until ctx is done. A failed listing or onChange is logged and
// retried on the next tick, with the same changes still pending.
func (p *Poller) Run(ctx context.Context, folderIDs []string, onChange func(context.Context, []string) error) error {
	seen, err := p.snapshot(ctx, folderIDs)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		current, err := p.snapshot(ctx, folderIDs)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("poll: %v", err)
			continue
		}
		changed := diffSnapshots(seen, current)
		if len(changed) == 0 {
			continue
		}
		logger.Debugw("poll detected changes", "files", len(changed))
		if err := onChange(ctx, changed); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("poll: handling %d changes: %v", len(changed), err)
			continue
		}
		seen = current
	}
}

func (p *Poller) snapshot(ctx context.Context, folderIDs []string) (map[string]fingerprint, error) {
	out := make(map[string]fingerprint)
	for _, id := range folderIDs {
		objs, err := p.store.ListFiles(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("list folder %s: %w", id, err)
		}
		for _, o := range objs {
			if o.IsFolder {
				continue
			}
			out[o.ID] = fingerprint{modified: o.ModifiedTime, size: o.Size}
		}
	}
	return out, nil
}

func diffSnapshots(before, after map[string]fingerprint) []string {
	var changed []string
	for id, fp := range after {
		prev, ok := before[id]
		if !ok || !prev.modified.Equal(fp.modified) || prev.size != fp.size {
			changed = append(changed, id)
		}
	}
	for id := range before {
		if _, ok := after[id]; !ok {
			changed = append(changed, id)
		}
	}
	sort.Strings(changed)
	return changed
}

