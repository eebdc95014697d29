package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/custodia-labs/rolodex/internal/core/domain"
	"github.com/custodia-labs/rolodex/internal/core/ports/driven"
	"github.com/custodia-labs/rolodex/internal/core/ports/driving"
	"github.com/custodia-labs/rolodex/internal/logger"
)

// Ensure StorageService implements the interface.
var _ driving.StorageService = (*StorageService)(nil)

// StorageService maps the in-memory collections onto one JSON file per
// entity in the object store, plus derived index files.
//
// Retries and circuit breaking are the store's concern; wrap the store with
// the resilient adapter before passing it in.
type StorageService struct {
	store       driven.ObjectStore
	concurrency int
	verifyIndex bool
	now         func() time.Time
}

// NewStorageService creates a storage service over an object store.
func NewStorageService(store driven.ObjectStore, settings domain.LoadSettings) *StorageService {
	concurrency := settings.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &StorageService{
		store:       store,
		concurrency: concurrency,
		verifyIndex: settings.VerifyIndex,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the timestamp source for metadata.json. Used by tests.
func (s *StorageService) SetClock(now func() time.Time) {
	s.now = now
}

// EnsureFolderStructure finds or creates the folder layout under rootName.
// Concurrent callers can create duplicate folders; the oldest one wins on
// later lookups.
func (s *StorageService) EnsureFolderStructure(ctx context.Context, rootName string) (*domain.FolderStructure, error) {
	if s.store == nil {
		return nil, domain.ErrNotImplemented
	}
	if rootName == "" {
		return nil, fmt.Errorf("%w: empty root folder name", domain.ErrInvalidInput)
	}

	root, err := s.ensureFolder(ctx, "", rootName)
	if err != nil {
		return nil, err
	}
	return s.ensureLayout(ctx, root.ID)
}

// ensureLayout resolves the fixed subfolders under an existing root.
func (s *StorageService) ensureLayout(ctx context.Context, rootID string) (*domain.FolderStructure, error) {
	st := &domain.FolderStructure{Root: rootID}

	steps := []struct {
		parent *string
		name   string
		dest   *string
	}{
		{&st.Root, domain.FolderIndex, &st.Index},
		{&st.Root, domain.FolderContacts, &st.Contacts},
		{&st.Root, domain.FolderMeetings, &st.Meetings},
		{&st.Root, domain.FolderAttachments, &st.Attachments},
		{&st.Attachments, domain.FolderContacts, &st.AttachmentsContacts},
		{&st.Attachments, domain.FolderMeetings, &st.AttachmentsMeetings},
	}
	for _, step := range steps {
		folder, err := s.ensureFolder(ctx, *step.parent, step.name)
		if err != nil {
			return nil, err
		}
		*step.dest = folder.ID
	}

	logger.Debug("folder structure: %+v", *st)
	return st, nil
}

// ensureFolder returns the folder named name under parentID, creating it if absent.
func (s *StorageService) ensureFolder(ctx context.Context, parentID, name string) (*domain.RemoteObject, error) {
	found, err := s.store.FindFolder(ctx, parentID, name)
	if err != nil {
		return nil, fmt.Errorf("find folder %q: %w", name, err)
	}
	if len(found) > 0 {
		if len(found) > 1 {
			logger.Warn("found %d folders named %q under %q, using %s", len(found), name, parentID, found[0].ID)
		}
		return &found[0], nil
	}

	logger.Debug("creating folder %q under %q", name, parentID)
	created, err := s.store.CreateFolder(ctx, parentID, name)
	if err != nil {
		return nil, fmt.Errorf("create folder %q: %w", name, err)
	}
	return created, nil
}

// Upsert writes body to filename in folderID. An existing file with the same
// name is overwritten in place; otherwise a new JSON file is created.
// Indexes are not touched.
func (s *StorageService) Upsert(
	ctx context.Context, folderID, filename string, body []byte,
) (*domain.RemoteObject, error) {
	if s.store == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.upsert(ctx, folderID, filename, domain.JSONMimeType, body)
}

func (s *StorageService) upsert(
	ctx context.Context, folderID, filename, mimeType string, body []byte,
) (*domain.RemoteObject, error) {
	existing, err := s.store.FindFile(ctx, folderID, filename)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", filename, err)
	}

	if len(existing) > 0 {
		if len(existing) > 1 {
			logger.Warn("found %d files named %q, updating %s", len(existing), filename, existing[0].ID)
		}
		obj, err := s.store.UpdateFile(ctx, existing[0].ID, body)
		if err != nil {
			return nil, fmt.Errorf("update %s: %w", filename, err)
		}
		return obj, nil
	}

	obj, err := s.store.CreateFile(ctx, folderID, filename, mimeType, body)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", filename, err)
	}
	return obj, nil
}

// overwriteIfExists replaces the content of filename only when it already exists.
func (s *StorageService) overwriteIfExists(ctx context.Context, folderID, filename string, body []byte) error {
	existing, err := s.store.FindFile(ctx, folderID, filename)
	if err != nil {
		return fmt.Errorf("find %s: %w", filename, err)
	}
	for _, obj := range existing {
		if _, err := s.store.UpdateFile(ctx, obj.ID, body); err != nil {
			return fmt.Errorf("update %s: %w", filename, err)
		}
	}
	return nil
}

// RebuildIndexes regenerates the index files. Failures are logged as
// warnings and never returned, so a failed rebuild cannot block a save.
func (s *StorageService) RebuildIndexes(ctx context.Context, structure domain.FolderStructure) error {
	if err := s.RebuildIndexesStrict(ctx, structure); err != nil {
		logger.Warn("index rebuild failed: %v", err)
	}
	return nil
}

// RebuildIndexesStrict lists the contacts and meetings folders and overwrites
// both index files. Output depends only on filenames and modification
// times, so repeated rebuilds without writes are byte-identical.
func (s *StorageService) RebuildIndexesStrict(ctx context.Context, structure domain.FolderStructure) error {
	if s.store == nil {
		return domain.ErrNotImplemented
	}

	contactFiles, err := s.store.ListFiles(ctx, structure.Contacts)
	if err != nil {
		return fmt.Errorf("list contacts: %w", err)
	}
	meetingFiles, err := s.store.ListFiles(ctx, structure.Meetings)
	if err != nil {
		return fmt.Errorf("list meetings: %w", err)
	}

	contactsIndex := domain.ContactsIndex{Entries: []domain.ContactIndexEntry{}}
	for id, modified := range latestByID(contactFiles, domain.ParseContactFileName) {
		contactsIndex.Entries = append(contactsIndex.Entries, domain.ContactIndexEntry{ID: id, LastModified: modified})
	}
	sort.Slice(contactsIndex.Entries, func(i, j int) bool {
		return contactsIndex.Entries[i].ID < contactsIndex.Entries[j].ID
	})

	meetingsIndex := domain.MeetingsIndex{Entries: []domain.MeetingIndexEntry{}}
	for id, modified := range latestByID(meetingFiles, domain.ParseMeetingsFileName) {
		meetingsIndex.Entries = append(meetingsIndex.Entries, domain.MeetingIndexEntry{ContactID: id, LastModified: modified})
	}
	sort.Slice(meetingsIndex.Entries, func(i, j int) bool {
		return meetingsIndex.Entries[i].ContactID < meetingsIndex.Entries[j].ContactID
	})

	if err := s.writeJSON(ctx, structure.Index, domain.ContactsIndexFile, contactsIndex); err != nil {
		return err
	}
	if err := s.writeJSON(ctx, structure.Index, domain.MeetingsIndexFile, meetingsIndex); err != nil {
		return err
	}

	logger.Debug("rebuilt indexes: %d contacts, %d meeting files",
		len(contactsIndex.Entries), len(meetingsIndex.Entries))
	return nil
}

// latestByID maps entity IDs parsed from filenames to the newest modification time.
func latestByID(files []domain.RemoteObject, parse func(string) (string, bool)) map[string]time.Time {
	out := make(map[string]time.Time, len(files))
	for _, f := range files {
		id, ok := parse(f.Name)
		if !ok {
			continue
		}
		modified := f.ModifiedTime.UTC()
		if prev, seen := out[id]; !seen || modified.After(prev) {
			out[id] = modified
		}
	}
	return out
}

// entityKind describes one of the two per-entity folders.
type entityKind struct {
	label     string
	indexFile string
	fileName  func(id string) string
	parseName func(name string) (string, bool)
	indexIDs  func(data []byte) ([]string, error)
}

var (
	contactsKind = entityKind{
		label:     "contacts",
		indexFile: domain.ContactsIndexFile,
		fileName:  domain.ContactFileName,
		parseName: domain.ParseContactFileName,
		indexIDs: func(data []byte) ([]string, error) {
			var idx domain.ContactsIndex
			if err := json.Unmarshal(data, &idx); err != nil {
				return nil, err
			}
			ids := make([]string, 0, len(idx.Entries))
			for _, e := range idx.Entries {
				ids = append(ids, e.ID)
			}
			return ids, nil
		},
	}

	meetingsKind = entityKind{
		label:     "meetings",
		indexFile: domain.MeetingsIndexFile,
		fileName:  domain.MeetingsFileName,
		parseName: domain.ParseMeetingsFileName,
		indexIDs: func(data []byte) ([]string, error) {
			var idx domain.MeetingsIndex
			if err := json.Unmarshal(data, &idx); err != nil {
				return nil, err
			}
			ids := make([]string, 0, len(idx.Entries))
			for _, e := range idx.Entries {
				ids = append(ids, e.ContactID)
			}
			return ids, nil
		},
	}
)

// entityFile is a located entity file and the ID its name encodes.
type entityFile struct {
	id  string
	obj domain.RemoteObject
}

// LoadAll reads every contact and meeting under rootFolderID.
// The index files are tried first; an index that is missing, unreadable or
// empty falls back to listing the folder, because the index is only a cache.
func (s *StorageService) LoadAll(ctx context.Context, rootFolderID string) (*driving.LoadResult, error) {
	if s.store == nil {
		return nil, domain.ErrNotImplemented
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger.Section("Load")

	st, err := s.ensureLayout(ctx, rootFolderID)
	if err != nil {
		return nil, err
	}
	result := &driving.LoadResult{Structure: *st}
	var skipped atomic.Int64

	contactFiles, source, err := s.locate(ctx, *st, st.Contacts, contactsKind)
	if err != nil {
		return nil, err
	}
	result.ContactsSource = source

	meetingFiles, source, err := s.locate(ctx, *st, st.Meetings, meetingsKind)
	if err != nil {
		return nil, err
	}
	result.MeetingsSource = source

	contacts, err := mapLimited(ctx, contactFiles, s.concurrency,
		func(ctx context.Context, f entityFile) (*domain.Contact, error) {
			var c domain.Contact
			ok, err := s.readEntity(ctx, f, &c)
			if err != nil {
				return nil, err
			}
			if !ok {
				skipped.Add(1)
				return nil, nil
			}
			if c.ID == "" {
				c.ID = f.id
			} else if c.ID != f.id {
				logger.Warn("%s holds contact id %q", f.obj.Name, c.ID)
			}
			return &c, nil
		})
	if err != nil {
		return nil, err
	}
	result.Contacts = dedupeContacts(contacts)

	meetingSets, err := mapLimited(ctx, meetingFiles, s.concurrency,
		func(ctx context.Context, f entityFile) ([]domain.Meeting, error) {
			var mf domain.MeetingsFile
			ok, err := s.readEntity(ctx, f, &mf)
			if err != nil {
				return nil, err
			}
			if !ok {
				skipped.Add(1)
				return nil, nil
			}
			for i := range mf.Meetings {
				if mf.Meetings[i].ContactID == "" {
					mf.Meetings[i].ContactID = f.id
				}
			}
			return mf.Meetings, nil
		})
	if err != nil {
		return nil, err
	}
	for _, set := range meetingSets {
		result.Meetings = append(result.Meetings, set...)
	}

	result.Options = s.readOptions(ctx, st.Index)
	for i := range result.Contacts {
		for _, kind := range domain.OptionKinds {
			values, _ := mergeTags(result.Options.Values(kind), result.Contacts[i].Tags(kind)...)
			result.Options.SetValues(kind, values)
		}
	}

	result.Skipped = int(skipped.Load())
	logger.Info("loaded %d contacts (%s), %d meetings (%s), skipped %d files",
		len(result.Contacts), result.ContactsSource, len(result.Meetings), result.MeetingsSource, result.Skipped)
	return result, nil
}

// locate finds the entity files of one kind, via the index when it is usable.
func (s *StorageService) locate(
	ctx context.Context, st domain.FolderStructure, folderID string, kind entityKind,
) ([]entityFile, driving.LoadSource, error) {
	if !s.verifyIndex {
		ids, err := s.readIndex(ctx, st.Index, kind)
		switch {
		case err != nil:
			logger.Warn("%s index unusable, listing folder: %v", kind.label, err)
		case len(ids) == 0:
			logger.Debug("%s index is empty, listing folder", kind.label)
		default:
			files, err := s.findIndexed(ctx, folderID, ids, kind)
			if err != nil {
				return nil, "", err
			}
			return files, driving.LoadSourceIndex, nil
		}
	}

	objs, err := s.store.ListFiles(ctx, folderID)
	if err != nil {
		return nil, "", fmt.Errorf("list %s: %w", kind.label, err)
	}
	var files []entityFile
	for _, obj := range objs {
		if id, ok := kind.parseName(obj.Name); ok {
			files = append(files, entityFile{id: id, obj: obj})
		}
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].id < files[j].id })
	return files, driving.LoadSourceListing, nil
}

// readIndex returns the IDs listed by an index file. A missing index is
// reported as an error so the caller falls back to listing.
func (s *StorageService) readIndex(ctx context.Context, indexFolder string, kind entityKind) ([]string, error) {
	data, err := s.downloadByName(ctx, indexFolder, kind.indexFile)
	if err != nil {
		return nil, err
	}
	ids, err := kind.indexIDs(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", kind.indexFile, err)
	}
	return ids, nil
}

// findIndexed looks up each indexed ID by filename. Entries whose file is
// gone are skipped with a warning.
func (s *StorageService) findIndexed(
	ctx context.Context, folderID string, ids []string, kind entityKind,
) ([]entityFile, error) {
	found, err := mapLimited(ctx, ids, s.concurrency, func(ctx context.Context, id string) (*entityFile, error) {
		if domain.ValidateEntityID(id) != nil {
			logger.Warn("%s index lists invalid id %q", kind.label, id)
			return nil, nil
		}
		name := kind.fileName(id)
		objs, err := s.store.FindFile(ctx, folderID, name)
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", name, err)
		}
		if len(objs) == 0 {
			logger.Warn("%s index lists %s but the file is missing", kind.label, name)
			return nil, nil
		}
		return &entityFile{id: id, obj: objs[0]}, nil
	})
	if err != nil {
		return nil, err
	}

	files := make([]entityFile, 0, len(found))
	for _, f := range found {
		if f != nil {
			files = append(files, *f)
		}
	}
	return files, nil
}

// readEntity downloads and decodes one entity file into v.
// Download and parse failures are logged and reported as ok=false so the
// load carries on; only context cancellation is returned as an error.
func (s *StorageService) readEntity(ctx context.Context, f entityFile, v any) (bool, error) {
	data, err := s.store.Download(ctx, f.obj.ID)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		logger.Warn("skipping %s: %v", f.obj.Name, err)
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		logger.Warn("skipping %s: invalid JSON: %v", f.obj.Name, err)
		return false, nil
	}
	return true, nil
}

// readOptions returns the options from metadata.json, or empty options.
func (s *StorageService) readOptions(ctx context.Context, indexFolder string) domain.Options {
	data, err := s.downloadByName(ctx, indexFolder, domain.MetadataFile)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("reading %s: %v", domain.MetadataFile, err)
		}
		return domain.Options{}
	}
	var meta domain.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		logger.Warn("skipping %s: invalid JSON: %v", domain.MetadataFile, err)
		return domain.Options{}
	}
	for _, kind := range domain.OptionKinds {
		meta.Options.SetValues(kind, dedupeTags(meta.Options.Values(kind)))
	}
	return meta.Options
}

func (s *StorageService) downloadByName(ctx context.Context, folderID, name string) ([]byte, error) {
	objs, err := s.store.FindFile(ctx, folderID, name)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", name, err)
	}
	if len(objs) == 0 {
		return nil, fmt.Errorf("%s: %w", name, domain.ErrNotFound)
	}
	data, err := s.store.Download(ctx, objs[0].ID)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", name, err)
	}
	return data, nil
}

// dedupeContacts drops nil results and keeps the most recently updated
// contact when two files carry the same ID. Output is sorted by ID.
func dedupeContacts(in []*domain.Contact) []domain.Contact {
	byID := make(map[string]domain.Contact, len(in))
	for _, c := range in {
		if c == nil {
			continue
		}
		if prev, ok := byID[c.ID]; ok {
			logger.Warn("duplicate contact id %q", c.ID)
			if !c.UpdatedAt.After(prev.UpdatedAt) {
				continue
			}
		}
		byID[c.ID] = *c
	}

	out := make([]domain.Contact, 0, len(byID))
	for _, c := range byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SaveAll re-serialises every contact, every meetings file and the metadata,
// then rebuilds the indexes. A failed entity write does not stop the others;
// all failures are returned joined. Index rebuild failures are only logged.
func (s *StorageService) SaveAll(ctx context.Context, structure domain.FolderStructure, data driving.Dataset) error {
	if s.store == nil {
		return domain.ErrNotImplemented
	}
	logger.Section("Save")

	contacts := data.Contacts()
	groups := groupMeetings(data.Meetings())

	var (
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	err := forEachLimited(ctx, contacts, s.concurrency, func(ctx context.Context, c domain.Contact) error {
		if err := domain.ValidateEntityID(c.ID); err != nil {
			record(fmt.Errorf("contact %q: %w", c.ID, err))
			return nil
		}
		if err := s.writeJSON(ctx, structure.Contacts, domain.ContactFileName(c.ID), c); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			record(fmt.Errorf("contact %s: %w", c.ID, err))
		}
		return nil
	})
	if err != nil {
		return err
	}

	contactIDs := make([]string, 0, len(groups)+len(contacts))
	for id := range groups {
		contactIDs = append(contactIDs, id)
	}
	for i := range contacts {
		if _, ok := groups[contacts[i].ID]; !ok && domain.ValidateEntityID(contacts[i].ID) == nil {
			contactIDs = append(contactIDs, contacts[i].ID)
		}
	}
	sort.Strings(contactIDs)

	err = forEachLimited(ctx, contactIDs, s.concurrency, func(ctx context.Context, id string) error {
		if err := s.writeMeetings(ctx, structure, id, groups[id]); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			record(fmt.Errorf("meetings of %s: %w", id, err))
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.writeMetadata(ctx, structure, data.Options()); err != nil {
		errs = append(errs, err)
	}

	_ = s.RebuildIndexes(ctx, structure)

	logger.Info("saved %d contacts and %d meetings files", len(contacts), len(groups))
	return errors.Join(errs...)
}

// SaveContact writes one contact, its meetings file and the metadata,
// then rebuilds the indexes.
func (s *StorageService) SaveContact(
	ctx context.Context, structure domain.FolderStructure, data driving.Dataset, contactID string,
) error {
	if s.store == nil {
		return domain.ErrNotImplemented
	}

	var contact *domain.Contact
	for _, c := range data.Contacts() {
		if c.ID == contactID {
			contact = &c
			break
		}
	}
	if contact == nil {
		return fmt.Errorf("contact %s: %w", contactID, domain.ErrNotFound)
	}

	if err := s.writeJSON(ctx, structure.Contacts, domain.ContactFileName(contactID), contact); err != nil {
		return fmt.Errorf("contact %s: %w", contactID, err)
	}

	var meetings []domain.Meeting
	for _, m := range data.Meetings() {
		if m.ContactID == contactID {
			meetings = append(meetings, m)
		}
	}
	if err := s.writeMeetings(ctx, structure, contactID, meetings); err != nil {
		return fmt.Errorf("meetings of %s: %w", contactID, err)
	}

	if err := s.writeMetadata(ctx, structure, data.Options()); err != nil {
		return err
	}

	return s.RebuildIndexes(ctx, structure)
}

// DeleteContactFiles removes the contact file and meetings file of a contact.
// Every deletion is attempted even when an earlier one fails.
func (s *StorageService) DeleteContactFiles(
	ctx context.Context, structure domain.FolderStructure, contactID string,
) error {
	if s.store == nil {
		return domain.ErrNotImplemented
	}

	targets := []struct {
		folder string
		name   string
	}{
		{structure.Contacts, domain.ContactFileName(contactID)},
		{structure.Meetings, domain.MeetingsFileName(contactID)},
	}

	var errs []error
	for _, t := range targets {
		objs, err := s.store.FindFile(ctx, t.folder, t.name)
		if err != nil {
			logger.Warn("could not look up %s for deletion: %v", t.name, err)
			errs = append(errs, fmt.Errorf("find %s: %w", t.name, err))
			continue
		}
		for _, obj := range objs {
			if err := s.store.Delete(ctx, obj.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
				logger.Warn("could not delete %s: %v", t.name, err)
				errs = append(errs, fmt.Errorf("delete %s: %w", t.name, err))
			}
		}
	}

	_ = s.RebuildIndexes(ctx, structure)
	return errors.Join(errs...)
}

// DeleteContact removes a contact and its meetings from the repository and
// then deletes their files. The repository change stands even if the remote
// deletion fails.
func (s *StorageService) DeleteContact(
	ctx context.Context, structure domain.FolderStructure, repo *Repository, contactID string,
) error {
	if _, err := repo.RemoveContact(contactID); err != nil {
		return err
	}
	return s.DeleteContactFiles(ctx, structure, contactID)
}

// UploadAttachment uploads a local file into the attachments folder of a
// contact or meeting. A file with the same name in that folder is replaced.
func (s *StorageService) UploadAttachment(
	ctx context.Context, structure domain.FolderStructure, owner driving.AttachmentOwner, localPath string,
) (*domain.Attachment, error) {
	if s.store == nil {
		return nil, domain.ErrNotImplemented
	}

	var parentID, folderName string
	switch {
	case owner.MeetingID != "":
		if err := domain.ValidateEntityID(owner.MeetingID); err != nil {
			return nil, err
		}
		parentID, folderName = structure.AttachmentsMeetings, owner.MeetingID
	case owner.ContactName != "":
		parentID, folderName = structure.AttachmentsContacts, domain.SanitizeFolderName(owner.ContactName)
	default:
		return nil, fmt.Errorf("%w: attachment needs a contact or meeting", domain.ErrInvalidInput)
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", localPath, err)
	}

	folder, err := s.ensureFolder(ctx, parentID, folderName)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(localPath)
	mimeType := mimetype.Detect(data).String()
	obj, err := s.upsert(ctx, folder.ID, name, mimeType, data)
	if err != nil {
		return nil, err
	}

	logger.Debug("uploaded %s (%s) as %s", name, mimeType, obj.ID)
	return &domain.Attachment{Name: name, Ref: domain.DriveRef(obj.ID)}, nil
}

func (s *StorageService) writeMeetings(
	ctx context.Context, structure domain.FolderStructure, contactID string, meetings []domain.Meeting,
) error {
	name := domain.MeetingsFileName(contactID)
	if len(meetings) == 0 {
		// Keep an existing file in step with the now-empty list.
		return s.overwriteIfExists(ctx, structure.Meetings, name,
			mustMarshal(domain.MeetingsFile{ContactID: contactID, Meetings: []domain.Meeting{}}))
	}
	return s.writeJSON(ctx, structure.Meetings, name, domain.MeetingsFile{ContactID: contactID, Meetings: meetings})
}

func (s *StorageService) writeMetadata(ctx context.Context, structure domain.FolderStructure, opts domain.Options) error {
	for _, kind := range domain.OptionKinds {
		if opts.Values(kind) == nil {
			opts.SetValues(kind, []string{})
		}
	}
	meta := domain.Metadata{
		SchemaVersion: domain.MetadataSchemaVersion,
		Options:       opts,
		SavedAt:       s.now(),
	}
	if err := s.writeJSON(ctx, structure.Index, domain.MetadataFile, meta); err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	return nil
}

func (s *StorageService) writeJSON(ctx context.Context, folderID, filename string, v any) error {
	body, err := marshalEntity(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filename, err)
	}
	_, err = s.upsert(ctx, folderID, filename, domain.JSONMimeType, body)
	return err
}

// marshalEntity renders the stored JSON form: two-space indent, trailing newline.
func marshalEntity(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func mustMarshal(v any) []byte {
	data, err := marshalEntity(v)
	if err != nil {
		panic(err)
	}
	return data
}

// groupMeetings buckets meetings by contact ID, keeping their order.
// Meetings whose contact no longer exists still get a bucket.
func groupMeetings(meetings []domain.Meeting) map[string][]domain.Meeting {
	groups := make(map[string][]domain.Meeting)
	for _, m := range meetings {
		if domain.ValidateEntityID(m.ContactID) != nil {
			logger.Warn("not saving meeting %s: invalid contact id %q", m.ID, m.ContactID)
			continue
		}
		groups[m.ContactID] = append(groups[m.ContactID], m)
	}
	return groups
}
