package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/rolodex/internal/core/domain"
)

// Snapshot is a point-in-time copy of the repository contents.
type Snapshot struct {
	Contacts  []domain.Contact
	Meetings  []domain.Meeting
	Options   domain.Options
	Structure domain.FolderStructure
	SavedAt   time.Time
}

// SnapshotStore caches the last loaded or saved repository locally.
type SnapshotStore interface {
	// Save replaces the cached snapshot.
	Save(ctx context.Context, snap Snapshot) error

	// Load returns the cached snapshot.
	// Returns domain.ErrNotFound if nothing has been cached yet.
	Load(ctx context.Context) (*Snapshot, error)

	// Clear removes the cached snapshot.
	Clear(ctx context.Context) error
}
