package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/custodia-labs/rolodex/internal/core/domain"
	"github.com/custodia-labs/rolodex/internal/core/ports/driven"
	"github.com/custodia-labs/rolodex/internal/core/ports/driving"
	"github.com/custodia-labs/rolodex/internal/logger"
)

// Workspace is one CLI session over the store: it opens the repository,
// persists changes through the StorageService and keeps the local snapshot
// cache current. In offline mode it reads from the snapshot and refuses writes.
type Workspace struct {
	storage   *StorageService
	snapshots driven.SnapshotStore
	rootName  string
	offline   bool
	now       func() time.Time

	repo      *Repository
	structure domain.FolderStructure
	loaded    *driving.LoadResult
}

// NewWorkspace creates a workspace. snapshots may be nil, which disables
// the cache and offline mode.
func NewWorkspace(storage *StorageService, snapshots driven.SnapshotStore, rootName string, offline bool) *Workspace {
	return &Workspace{
		storage:   storage,
		snapshots: snapshots,
		rootName:  rootName,
		offline:   offline,
		now:       time.Now,
	}
}

// Offline reports whether the workspace reads from the snapshot cache.
func (w *Workspace) Offline() bool {
	return w.offline
}

// Init creates the folder layout and writes the index files.
func (w *Workspace) Init(ctx context.Context) (*domain.FolderStructure, error) {
	if w.offline {
		return nil, domain.ErrOffline
	}
	structure, err := w.storage.EnsureFolderStructure(ctx, w.rootName)
	if err != nil {
		return nil, err
	}
	if err := w.storage.RebuildIndexesStrict(ctx, *structure); err != nil {
		return nil, err
	}
	w.structure = *structure
	return structure, nil
}

// Open loads the repository, from the store or, offline, from the snapshot.
// Later calls return the already open repository.
func (w *Workspace) Open(ctx context.Context) (*Repository, error) {
	if w.repo != nil {
		return w.repo, nil
	}
	if w.offline {
		return w.openSnapshot(ctx)
	}

	structure, err := w.storage.EnsureFolderStructure(ctx, w.rootName)
	if err != nil {
		return nil, err
	}
	result, err := w.storage.LoadAll(ctx, structure.Root)
	if err != nil {
		return nil, err
	}

	w.loaded = result
	w.structure = result.Structure
	w.repo = NewRepository(result.Contacts, result.Meetings, result.Options)
	w.cache(ctx)
	return w.repo, nil
}

func (w *Workspace) openSnapshot(ctx context.Context) (*Repository, error) {
	if w.snapshots == nil {
		return nil, fmt.Errorf("%w: the snapshot cache is disabled", domain.ErrOffline)
	}
	snap, err := w.snapshots.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot (run once online first): %w", err)
	}
	logger.Debug("offline: using snapshot from %s", snap.SavedAt.Format(time.RFC3339))

	w.structure = snap.Structure
	w.repo = NewRepository(snap.Contacts, snap.Meetings, snap.Options)
	return w.repo, nil
}

// LoadResult returns how the last online load went, or nil when offline.
func (w *Workspace) LoadResult() *driving.LoadResult {
	return w.loaded
}

// Structure returns the folder IDs of the open workspace.
func (w *Workspace) Structure() domain.FolderStructure {
	return w.structure
}

// SaveContact persists one contact and its meetings.
func (w *Workspace) SaveContact(ctx context.Context, contactID string) error {
	if err := w.writable(); err != nil {
		return err
	}
	if err := w.storage.SaveContact(ctx, w.structure, w.repo, contactID); err != nil {
		return err
	}
	w.cache(ctx)
	return nil
}

// SaveAll persists the whole repository.
func (w *Workspace) SaveAll(ctx context.Context) error {
	if err := w.writable(); err != nil {
		return err
	}
	if err := w.storage.SaveAll(ctx, w.structure, w.repo); err != nil {
		return err
	}
	w.cache(ctx)
	return nil
}

// SaveOptions writes the tag options to the metadata file.
func (w *Workspace) SaveOptions(ctx context.Context) error {
	if err := w.writable(); err != nil {
		return err
	}
	if err := w.storage.writeMetadata(ctx, w.structure, w.repo.Options()); err != nil {
		return err
	}
	w.cache(ctx)
	return nil
}

// DeleteContact removes a contact, its meetings and their files.
func (w *Workspace) DeleteContact(ctx context.Context, contactID string) error {
	if err := w.writable(); err != nil {
		return err
	}
	if err := w.storage.DeleteContact(ctx, w.structure, w.repo, contactID); err != nil {
		return err
	}
	w.cache(ctx)
	return nil
}

// RebuildIndexes regenerates the index files, reporting failures.
func (w *Workspace) RebuildIndexes(ctx context.Context) error {
	if w.offline {
		return domain.ErrOffline
	}
	if w.structure.Root == "" {
		structure, err := w.storage.EnsureFolderStructure(ctx, w.rootName)
		if err != nil {
			return err
		}
		w.structure = *structure
	}
	return w.storage.RebuildIndexesStrict(ctx, w.structure)
}

// Attach uploads local files as attachments of a contact and saves it.
// Files uploaded before a failure stay attached.
func (w *Workspace) Attach(ctx context.Context, contactID string, paths []string) ([]domain.Attachment, error) {
	if err := w.writable(); err != nil {
		return nil, err
	}
	contact, err := w.repo.GetContact(contactID)
	if err != nil {
		return nil, err
	}

	var added []domain.Attachment
	var uploadErr error
	for _, p := range paths {
		att, err := w.storage.UploadAttachment(ctx, w.structure,
			driving.AttachmentOwner{ContactName: contact.Name}, p)
		if err != nil {
			uploadErr = err
			break
		}
		added = append(added, *att)
		contact.Attachments = replaceAttachment(contact.Attachments, *att)
	}
	if len(added) == 0 {
		return nil, uploadErr
	}

	if _, err := w.repo.UpdateContact(*contact); err != nil {
		return added, err
	}
	if err := w.SaveContact(ctx, contactID); err != nil {
		return added, err
	}
	return added, uploadErr
}

// ImportCSV parses contacts from r, upserts them and saves everything.
func (w *Workspace) ImportCSV(ctx context.Context, transfer driving.TransferService, r io.Reader) (*driving.ImportReport, error) {
	if err := w.writable(); err != nil {
		return nil, err
	}
	parsed, err := transfer.ParseCSV(r)
	if err != nil {
		return nil, err
	}
	report := ImportContacts(w.repo, parsed)
	if report.Created+report.Updated == 0 {
		return &report, nil
	}
	if err := w.SaveAll(ctx); err != nil {
		return &report, err
	}
	return &report, nil
}

func (w *Workspace) writable() error {
	if w.offline {
		return domain.ErrOffline
	}
	if w.repo == nil {
		return fmt.Errorf("%w: workspace is not open", domain.ErrInvalidInput)
	}
	return nil
}

// cache writes the snapshot. Failures only cost offline freshness.
func (w *Workspace) cache(ctx context.Context) {
	if w.snapshots == nil || w.repo == nil {
		return
	}
	snap := driven.Snapshot{
		Contacts:  w.repo.Contacts(),
		Meetings:  w.repo.Meetings(),
		Options:   w.repo.Options(),
		Structure: w.structure,
		SavedAt:   w.now(),
	}
	if err := w.snapshots.Save(ctx, snap); err != nil {
		logger.Warn("could not update the local cache: %v", err)
	}
}

// replaceAttachment swaps an attachment with the same name, or appends.
func replaceAttachment(list []domain.Attachment, att domain.Attachment) []domain.Attachment {
	for i := range list {
		if list[i].Name == att.Name {
			list[i] = att
			return list
		}
	}
	return append(list, att)
}
