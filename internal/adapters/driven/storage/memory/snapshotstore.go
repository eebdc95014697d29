package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/rolodex/internal/core/domain"
	"github.com/custodia-labs/rolodex/internal/core/ports/driven"
)

// Ensure SnapshotStore implements the interface.
var _ driven.SnapshotStore = (*SnapshotStore)(nil)

// SnapshotStore keeps the cached snapshot in memory.
type SnapshotStore struct {
	mu   sync.RWMutex
	snap *driven.Snapshot
}

// NewSnapshotStore creates an empty in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Save replaces the cached snapshot.
func (s *SnapshotStore) Save(_ context.Context, snap driven.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap.Contacts = append([]domain.Contact(nil), snap.Contacts...)
	snap.Meetings = append([]domain.Meeting(nil), snap.Meetings...)
	s.snap = &snap
	return nil
}

// Load returns a copy of the cached snapshot.
func (s *SnapshotStore) Load(_ context.Context) (*driven.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil, domain.ErrNotFound
	}
	snap := *s.snap
	snap.Contacts = append([]domain.Contact(nil), s.snap.Contacts...)
	snap.Meetings = append([]domain.Meeting(nil), s.snap.Meetings...)
	return &snap, nil
}

// Clear drops the cached snapshot.
func (s *SnapshotStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = nil
	return nil
}
