package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/custodia-labs/rolodex/internal/core/domain"
	"github.com/custodia-labs/rolodex/internal/core/ports/driven"
)

// Ensure ObjectStore implements the interface.
var _ driven.ObjectStore = (*ObjectStore)(nil)

// FolderMimeType marks folders, mirroring Drive.
const FolderMimeType = "application/vnd.google-apps.folder"

// ObjectStore is an in-memory implementation of driven.ObjectStore.
// Like Drive it allows several objects with the same name under one parent.
type ObjectStore struct {
	mu      sync.RWMutex
	objects map[string]*object
	nextID  int
	now     func() time.Time

	// Calls counts invocations per method name.
	calls map[string]int
}

type object struct {
	meta    domain.RemoteObject
	content []byte
	seq     int
}

// NewObjectStore creates an empty in-memory object store.
func NewObjectStore() *ObjectStore {
	return &ObjectStore{
		objects: make(map[string]*object),
		now:     func() time.Time { return time.Now().UTC() },
		calls:   make(map[string]int),
	}
}

// SetClock overrides the modification time source.
func (s *ObjectStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Calls returns how many times method was invoked.
func (s *ObjectStore) Calls(method string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[method]
}

// FindFolder returns folders with the given name under parentID.
func (s *ObjectStore) FindFolder(_ context.Context, parentID, name string) ([]domain.RemoteObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["FindFolder"]++
	return s.match(parentID, func(o *object) bool { return o.meta.IsFolder && o.meta.Name == name }), nil
}

// CreateFolder creates a folder under parentID.
func (s *ObjectStore) CreateFolder(_ context.Context, parentID, name string) (*domain.RemoteObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["CreateFolder"]++
	if err := s.checkParent(parentID); err != nil {
		return nil, err
	}
	obj := s.insert(domain.RemoteObject{
		Name:     name,
		MimeType: FolderMimeType,
		ParentID: parentID,
		IsFolder: true,
	}, nil)
	return &obj, nil
}

// FindFile returns files with the given name under parentID.
func (s *ObjectStore) FindFile(_ context.Context, parentID, name string) ([]domain.RemoteObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["FindFile"]++
	return s.match(parentID, func(o *object) bool { return !o.meta.IsFolder && o.meta.Name == name }), nil
}

// ListFiles returns every file directly under parentID.
func (s *ObjectStore) ListFiles(_ context.Context, parentID string) ([]domain.RemoteObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["ListFiles"]++
	if err := s.checkParent(parentID); err != nil {
		return nil, err
	}
	return s.match(parentID, func(o *object) bool { return !o.meta.IsFolder }), nil
}

// GetMetadata returns the metadata of an object.
func (s *ObjectStore) GetMetadata(_ context.Context, id string) (*domain.RemoteObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["GetMetadata"]++
	obj, ok := s.objects[id]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", id, domain.ErrNotFound)
	}
	meta := obj.meta
	return &meta, nil
}

// Download returns a copy of the content of a file.
func (s *ObjectStore) Download(_ context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["Download"]++
	obj, ok := s.objects[id]
	if !ok || obj.meta.IsFolder {
		return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}
	return append([]byte(nil), obj.content...), nil
}

// CreateFile stores a new file under parentID.
func (s *ObjectStore) CreateFile(
	_ context.Context, parentID, name, mimeType string, content []byte,
) (*domain.RemoteObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["CreateFile"]++
	if err := s.checkParent(parentID); err != nil {
		return nil, err
	}
	obj := s.insert(domain.RemoteObject{
		Name:     name,
		MimeType: mimeType,
		ParentID: parentID,
	}, content)
	return &obj, nil
}

// UpdateFile replaces the content of a file and bumps its modification time.
func (s *ObjectStore) UpdateFile(_ context.Context, id string, content []byte) (*domain.RemoteObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["UpdateFile"]++
	obj, ok := s.objects[id]
	if !ok || obj.meta.IsFolder {
		return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}
	obj.content = append([]byte(nil), content...)
	obj.meta.Size = int64(len(content))
	obj.meta.ModifiedTime = s.now()
	meta := obj.meta
	return &meta, nil
}

// Delete removes an object. Folders are removed with their descendants.
func (s *ObjectStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["Delete"]++
	if _, ok := s.objects[id]; !ok {
		return fmt.Errorf("object %s: %w", id, domain.ErrNotFound)
	}
	s.remove(id)
	return nil
}

func (s *ObjectStore) remove(id string) {
	delete(s.objects, id)
	for childID, o := range s.objects {
		if o.meta.ParentID == id {
			s.remove(childID)
		}
	}
}

func (s *ObjectStore) insert(meta domain.RemoteObject, content []byte) domain.RemoteObject {
	s.nextID++
	meta.ID = "obj-" + strconv.Itoa(s.nextID)
	meta.Size = int64(len(content))
	meta.ModifiedTime = s.now()
	s.objects[meta.ID] = &object{
		meta:    meta,
		content: append([]byte(nil), content...),
		seq:     s.nextID,
	}
	return meta
}

func (s *ObjectStore) checkParent(parentID string) error {
	if parentID == "" {
		return nil
	}
	parent, ok := s.objects[parentID]
	if !ok || !parent.meta.IsFolder {
		return fmt.Errorf("folder %s: %w", parentID, domain.ErrNotFound)
	}
	return nil
}

// match returns children of parentID accepted by keep, in creation order.
func (s *ObjectStore) match(parentID string, keep func(*object) bool) []domain.RemoteObject {
	var found []*object
	for _, o := range s.objects {
		if o.meta.ParentID == parentID && keep(o) {
			found = append(found, o)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].seq < found[j].seq })

	out := make([]domain.RemoteObject, 0, len(found))
	for _, o := range found {
		out = append(out, o.meta)
	}
	return out
}
