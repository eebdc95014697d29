package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/rolodex/internal/connectors/google"
	"github.com/custodia-labs/rolodex/internal/core/domain"
	"github.com/custodia-labs/rolodex/internal/core/ports/driven"
	"github.com/custodia-labs/rolodex/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.ObjectStore = (*Store)(nil)

// Store is a driven.ObjectStore over the Drive v3 REST API.
// Every call waits on the shared rate limiter; errors are mapped with
// google.WrapError so callers see domain errors.
type Store struct {
	svc     *drive.Service
	limiter *google.RateLimiter
	cfg     *Config
}

// NewStore creates a Drive-backed object store.
func NewStore(svc *drive.Service, limiter *google.RateLimiter, cfg *Config) *Store {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if limiter == nil {
		limiter = google.NewRateLimiter(google.DriveRateLimit)
	}
	return &Store{svc: svc, limiter: limiter, cfg: cfg}
}

// FindFolder returns folders named name under parentID, oldest first.
func (s *Store) FindFolder(ctx context.Context, parentID, name string) ([]domain.RemoteObject, error) {
	return s.list(ctx, childQuery(parentID, name, true))
}

// CreateFolder creates a folder under parentID.
func (s *Store) CreateFolder(ctx context.Context, parentID, name string) (*domain.RemoteObject, error) {
	meta := &drive.File{
		Name:     name,
		MimeType: MimeTypeFolder,
		Parents:  []string{parentOrRoot(parentID)},
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	f, err := s.svc.Files.Create(meta).Fields(googleapi.Field(fileFields)).Context(ctx).Do()
	if err != nil {
		return nil, s.wrap(fmt.Sprintf("create folder %s", name), err)
	}

	obj := toRemoteObject(f)
	logger.Debug("drive: created folder %s (%s)", name, obj.ID)
	return &obj, nil
}

// FindFile returns non-folder files named name under parentID, oldest first.
func (s *Store) FindFile(ctx context.Context, parentID, name string) ([]domain.RemoteObject, error) {
	return s.list(ctx, childQuery(parentID, name, false))
}

// ListFiles returns every non-folder child of parentID.
func (s *Store) ListFiles(ctx context.Context, parentID string) ([]domain.RemoteObject, error) {
	return s.list(ctx, childQuery(parentID, "", false))
}

// GetMetadata returns the metadata of a file or folder.
func (s *Store) GetMetadata(ctx context.Context, id string) (*domain.RemoteObject, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	f, err := s.svc.Files.Get(id).Fields(googleapi.Field(fileFields)).Context(ctx).Do()
	if err != nil {
		return nil, s.wrap("get "+id, err)
	}
	obj := toRemoteObject(f)
	return &obj, nil
}

// Download returns the content of a file.
func (s *Store) Download(ctx context.Context, id string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := s.svc.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, s.wrap("download "+id, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", id, err)
	}
	return data, nil
}

// CreateFile uploads a new file under parentID in a single multipart request.
func (s *Store) CreateFile(
	ctx context.Context, parentID, name, mimeType string, content []byte,
) (*domain.RemoteObject, error) {
	meta := &drive.File{
		Name:     name,
		MimeType: mimeType,
		Parents:  []string{parentOrRoot(parentID)},
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	f, err := s.svc.Files.Create(meta).
		Media(bytes.NewReader(content), googleapi.ContentType(mimeType)).
		Fields(googleapi.Field(fileFields)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, s.wrap("create "+name, err)
	}

	obj := toRemoteObject(f)
	logger.Debug("drive: created %s (%s, %d bytes)", name, obj.ID, len(content))
	return &obj, nil
}

// UpdateFile replaces the content of an existing file.
func (s *Store) UpdateFile(ctx context.Context, id string, content []byte) (*domain.RemoteObject, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	f, err := s.svc.Files.Update(id, &drive.File{}).
		Media(bytes.NewReader(content)).
		Fields(googleapi.Field(fileFields)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, s.wrap("update "+id, err)
	}

	obj := toRemoteObject(f)
	logger.Debug("drive: updated %s (%s, %d bytes)", obj.Name, id, len(content))
	return &obj, nil
}

// Delete permanently removes a file or folder.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := s.svc.Files.Delete(id).Context(ctx).Do(); err != nil {
		return s.wrap("delete "+id, err)
	}
	return nil
}

// list pages through files.list for q, oldest first.
func (s *Store) list(ctx context.Context, q string) ([]domain.RemoteObject, error) {
	var out []domain.RemoteObject
	pageToken := ""
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		call := s.svc.Files.List().
			Q(q).
			Fields(googleapi.Field(listFields)).
			OrderBy("createdTime").
			PageSize(s.cfg.PageSize).
			Spaces("drive")
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Context(ctx).Do()
		if err != nil {
			return nil, s.wrap("list", err)
		}
		for _, f := range resp.Files {
			out = append(out, toRemoteObject(f))
		}

		if resp.NextPageToken == "" {
			return out, nil
		}
		pageToken = resp.NextPageToken
	}
}

// wrap maps an API error and pauses the limiter after a rate limit response.
func (s *Store) wrap(op string, err error) error {
	if google.IsRateLimited(err) {
		s.limiter.RecordRateLimitError(google.RetryAfter(err))
	}
	return fmt.Errorf("drive %s: %w", op, google.WrapError(err))
}
