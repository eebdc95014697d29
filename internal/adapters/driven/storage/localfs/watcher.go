package localfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/rolodex/internal/logger"
)

// DefaultDebounce is the quiet period before a batch of changes is delivered.
const DefaultDebounce = 500 * time.Millisecond

// ChangeKind describes what happened to a file.
type ChangeKind int

const (
	// ChangeWritten means the file was created or its content changed.
	ChangeWritten ChangeKind = iota
	// ChangeRemoved means the file was deleted or renamed away.
	ChangeRemoved
)

// String returns the string representation.
func (k ChangeKind) String() string {
	if k == ChangeRemoved {
		return "removed"
	}
	return "written"
}

// Change is a file-level change under a watched folder.
type Change struct {
	// ID is the object ID of the file.
	ID   string
	Kind ChangeKind
}

// Watcher reports changes to files in a set of store folders.
type Watcher struct {
	store    *Store
	fsw      *fsnotify.Watcher
	debounce time.Duration
}

// Watch starts watching the given folder IDs. Subfolders are not watched.
func (s *Store) Watch(debounce time.Duration, folderIDs ...string) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	for _, id := range folderIDs {
		p, err := s.Path(id)
		if err == nil {
			err = fsw.Add(p)
		}
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", id, err)
		}
	}
	return &Watcher{store: s, fsw: fsw, debounce: debounce}, nil
}

// Run delivers batches of changes to fn until ctx is cancelled. A batch is
// sent once no event has arrived for the debounce period; within a batch
// only the latest change per file is kept. Errors from fn are logged and
// watching continues.
func (w *Watcher) Run(ctx context.Context, fn func(context.Context, []Change) error) error {
	pending := make(map[string]ChangeKind)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			change := w.handleEvent(event)
			if change == nil {
				continue
			}
			logger.Debug("localfs: %s %s", change.ID, change.Kind)
			pending[change.ID] = change.Kind
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("localfs: watch error: %v", err)

		case <-timer.C:
			batch := drain(pending)
			if err := fn(ctx, batch); err != nil {
				logger.Warn("localfs: handling %d changes: %v", len(batch), err)
			}
		}
	}
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// handleEvent converts an fsnotify event to a Change, or nil when the
// event is irrelevant (hidden files, folders, permission changes).
func (w *Watcher) handleEvent(event fsnotify.Event) *Change {
	if isHidden(filepath.Base(event.Name)) {
		return nil
	}
	rel, err := filepath.Rel(w.store.base, event.Name)
	if err != nil || !filepath.IsLocal(rel) {
		return nil
	}
	id := filepath.ToSlash(rel)

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return &Change{ID: id, Kind: ChangeRemoved}

	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || info.IsDir() {
			return nil
		}
		return &Change{ID: id, Kind: ChangeWritten}

	default:
		return nil
	}
}

func drain(pending map[string]ChangeKind) []Change {
	batch := make([]Change, 0, len(pending))
	for id, kind := range pending {
		batch = append(batch, Change{ID: id, Kind: kind})
		delete(pending, id)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].ID < batch[j].ID })
	return batch
}
