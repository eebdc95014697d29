package driving

import (
	"context"

	"github.com/custodia-labs/rolodex/internal/core/domain"
)

// Dataset is read access to the in-memory collections being persisted.
type Dataset interface {
	Contacts() []domain.Contact
	Meetings() []domain.Meeting
	Options() domain.Options
}

// LoadSource reports how a collection was located during load.
type LoadSource string

const (
	// LoadSourceIndex means the index file listed the entity files.
	LoadSourceIndex LoadSource = "index"
	// LoadSourceListing means the folder was listed because the index was empty or unusable.
	LoadSourceListing LoadSource = "listing"
)

// LoadResult is everything read back from the store.
type LoadResult struct {
	Contacts  []domain.Contact
	Meetings  []domain.Meeting
	Options   domain.Options
	Structure domain.FolderStructure

	ContactsSource LoadSource
	MeetingsSource LoadSource

	// Skipped counts entity files that could not be read or parsed.
	Skipped int
}

// AttachmentOwner selects the attachments subfolder for an upload.
type AttachmentOwner struct {
	// ContactName places the file under attachments/contacts/<sanitised name>.
	ContactName string
	// MeetingID places the file under attachments/meetings/<meeting id>.
	MeetingID string
}

// StorageService synchronises the in-memory collections with the object store.
type StorageService interface {
	// EnsureFolderStructure finds or creates the folder layout under a root folder name.
	EnsureFolderStructure(ctx context.Context, rootName string) (*domain.FolderStructure, error)

	// Upsert writes body to filename in folderID, overwriting an existing file with that name.
	// Indexes are not touched.
	Upsert(ctx context.Context, folderID, filename string, body []byte) (*domain.RemoteObject, error)

	// RebuildIndexes regenerates the index files from folder listings.
	// Failures are logged and swallowed.
	RebuildIndexes(ctx context.Context, structure domain.FolderStructure) error

	// RebuildIndexesStrict is RebuildIndexes but returns failures.
	RebuildIndexesStrict(ctx context.Context, structure domain.FolderStructure) error

	// LoadAll reads every contact and meeting under the root folder.
	LoadAll(ctx context.Context, rootFolderID string) (*LoadResult, error)

	// SaveAll re-serialises the whole dataset.
	SaveAll(ctx context.Context, structure domain.FolderStructure, data Dataset) error

	// SaveContact writes one contact and its meetings file.
	SaveContact(ctx context.Context, structure domain.FolderStructure, data Dataset, contactID string) error

	// DeleteContactFiles removes a contact's file and meetings file, best-effort.
	DeleteContactFiles(ctx context.Context, structure domain.FolderStructure, contactID string) error

	// UploadAttachment uploads a local file into the owner's attachments folder.
	UploadAttachment(
		ctx context.Context, structure domain.FolderStructure, owner AttachmentOwner, localPath string,
	) (*domain.Attachment, error)
}
