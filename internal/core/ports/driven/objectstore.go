package driven

import (
	"context"

	"github.com/custodia-labs/rolodex/internal/core/domain"
)

// ObjectStore is the remote folder tree that holds the JSON files.
// An empty parentID refers to the store's own root.
//
// Lookups by ID return an error matching domain.ErrNotFound when nothing
// exists; lookups by name return an empty slice instead.
type ObjectStore interface {
	// FindFolder returns folders with the exact name under parentID, oldest first.
	FindFolder(ctx context.Context, parentID, name string) ([]domain.RemoteObject, error)

	// CreateFolder creates a folder under parentID.
	CreateFolder(ctx context.Context, parentID, name string) (*domain.RemoteObject, error)

	// FindFile returns files with the exact name under parentID, oldest first.
	FindFile(ctx context.Context, parentID, name string) ([]domain.RemoteObject, error)

	// ListFiles returns every non-folder child of parentID.
	ListFiles(ctx context.Context, parentID string) ([]domain.RemoteObject, error)

	// GetMetadata returns the metadata of a file or folder.
	GetMetadata(ctx context.Context, id string) (*domain.RemoteObject, error)

	// Download returns the content of a file.
	Download(ctx context.Context, id string) ([]byte, error)

	// CreateFile uploads a new file under parentID.
	CreateFile(ctx context.Context, parentID, name, mimeType string, content []byte) (*domain.RemoteObject, error)

	// UpdateFile overwrites the content of an existing file. Metadata is unchanged.
	UpdateFile(ctx context.Context, id string, content []byte) (*domain.RemoteObject, error)

	// Delete removes a file or folder.
	Delete(ctx context.Context, id string) error
}
