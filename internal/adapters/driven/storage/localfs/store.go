// Package localfs implements the object store over a local directory tree.
//
// It keeps the same folder layout as the Drive backend so the storage
// service can run unchanged against a directory, for offline use, tests or
// a folder synced by a desktop client. Object IDs are slash-separated paths
// relative to the base directory; the empty ID is the base itself.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/custodia-labs/rolodex/internal/core/domain"
	"github.com/custodia-labs/rolodex/internal/core/ports/driven"
	"github.com/custodia-labs/rolodex/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.ObjectStore = (*Store)(nil)

// FolderMimeType is reported for directories.
const FolderMimeType = "inode/directory"

const (
	dirPerm  = 0o755
	filePerm = 0o644

	// tempPrefix marks in-flight writes; hidden so the watcher skips them.
	tempPrefix = ".rolodex-tmp-"
)

// Store is a driven.ObjectStore backed by a directory.
// A directory cannot hold two entries with the same name, so name lookups
// return at most one object and CreateFile on an existing name overwrites it.
type Store struct {
	base string
}

// New creates a store rooted at base, creating the directory if needed.
func New(base string) (*Store, error) {
	if base == "" {
		return nil, fmt.Errorf("%w: local store directory is empty", domain.ErrInvalidInput)
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", base, err)
	}
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return nil, fmt.Errorf("create %s: %w", abs, err)
	}
	return &Store{base: abs}, nil
}

// Base returns the absolute base directory.
func (s *Store) Base() string {
	return s.base
}

// Path returns the filesystem path of an object ID.
func (s *Store) Path(id string) (string, error) {
	if id == "" {
		return s.base, nil
	}
	if !filepath.IsLocal(filepath.FromSlash(id)) {
		return "", fmt.Errorf("%w: object id %q escapes the store", domain.ErrInvalidInput, id)
	}
	return filepath.Join(s.base, filepath.FromSlash(id)), nil
}

// FindFolder returns the folder named name under parentID, if any.
func (s *Store) FindFolder(ctx context.Context, parentID, name string) ([]domain.RemoteObject, error) {
	return s.findChild(ctx, parentID, name, true)
}

// CreateFolder creates a folder under parentID. An existing folder is returned as is.
func (s *Store) CreateFolder(ctx context.Context, parentID, name string) (*domain.RemoteObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := s.childID(parentID, name)
	if err != nil {
		return nil, err
	}
	if err := s.requireDir(parentID); err != nil {
		return nil, err
	}
	p, _ := s.Path(id)
	if err := os.Mkdir(p, dirPerm); err != nil && !errors.Is(err, fs.ErrExist) {
		return nil, fmt.Errorf("create folder %s: %w", id, err)
	}
	return s.GetMetadata(ctx, id)
}

// FindFile returns the file named name under parentID, if any.
func (s *Store) FindFile(ctx context.Context, parentID, name string) ([]domain.RemoteObject, error) {
	return s.findChild(ctx, parentID, name, false)
}

// ListFiles returns the visible regular files directly under parentID, sorted by name.
func (s *Store) ListFiles(ctx context.Context, parentID string) ([]domain.RemoteObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := s.Path(parentID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, mapPathError("list "+parentID, err)
	}

	out := make([]domain.RemoteObject, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || isHidden(e.Name()) || !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		out = append(out, s.toRemoteObject(path.Join(parentID, e.Name()), info))
	}
	return out, nil
}

// GetMetadata returns the metadata of a file or folder.
func (s *Store) GetMetadata(ctx context.Context, id string) (*domain.RemoteObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.Path(id)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, mapPathError("stat "+id, err)
	}
	obj := s.toRemoteObject(id, info)
	return &obj, nil
}

// Download returns the content of a file.
func (s *Store) Download(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.Path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, mapPathError("read "+id, err)
	}
	return data, nil
}

// CreateFile writes a new file under parentID. mimeType is not stored;
// metadata reports the type sniffed from the content.
func (s *Store) CreateFile(
	ctx context.Context, parentID, name, _ string, content []byte,
) (*domain.RemoteObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := s.childID(parentID, name)
	if err != nil {
		return nil, err
	}
	if err := s.requireDir(parentID); err != nil {
		return nil, err
	}
	if err := s.writeFile(id, content); err != nil {
		return nil, err
	}
	logger.Debug("localfs: wrote %s (%d bytes)", id, len(content))
	return s.GetMetadata(ctx, id)
}

// UpdateFile replaces the content of an existing file.
func (s *Store) UpdateFile(ctx context.Context, id string, content []byte) (*domain.RemoteObject, error) {
	existing, err := s.GetMetadata(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.IsFolder {
		return nil, fmt.Errorf("%w: %s is a folder", domain.ErrInvalidInput, id)
	}
	if err := s.writeFile(id, content); err != nil {
		return nil, err
	}
	return s.GetMetadata(ctx, id)
}

// Delete removes a file, or a folder with everything below it.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("%w: refusing to delete the store root", domain.ErrInvalidInput)
	}
	p, err := s.Path(id)
	if err != nil {
		return err
	}
	if _, err := os.Lstat(p); err != nil {
		return mapPathError("delete "+id, err)
	}
	if err := os.RemoveAll(p); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

func (s *Store) findChild(ctx context.Context, parentID, name string, folder bool) ([]domain.RemoteObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := s.childID(parentID, name)
	if err != nil {
		return nil, err
	}
	p, _ := s.Path(id)
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.RemoteObject{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", id, err)
	}
	if info.IsDir() != folder {
		return []domain.RemoteObject{}, nil
	}
	return []domain.RemoteObject{s.toRemoteObject(id, info)}, nil
}

// writeFile replaces the file at id through a temp file and rename.
func (s *Store) writeFile(id string, content []byte) error {
	p, err := s.Path(id)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("write %s: %w", id, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", id, err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", id, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("write %s: %w", id, err)
	}
	return nil
}

func (s *Store) requireDir(id string) error {
	p, err := s.Path(id)
	if err != nil {
		return err
	}
	info, err := os.Stat(p)
	if err != nil {
		return mapPathError("folder "+id, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) childID(parentID, name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: invalid name %q", domain.ErrInvalidInput, name)
	}
	id := path.Join(parentID, name)
	if _, err := s.Path(id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) toRemoteObject(id string, info fs.FileInfo) domain.RemoteObject {
	obj := domain.RemoteObject{
		ID:           id,
		Name:         info.Name(),
		IsFolder:     info.IsDir(),
		ModifiedTime: info.ModTime().UTC(),
	}
	if id != "" {
		obj.ParentID = path.Dir(id)
		if obj.ParentID == "." {
			obj.ParentID = ""
		}
	}
	if obj.IsFolder {
		obj.MimeType = FolderMimeType
		return obj
	}
	obj.Size = info.Size()
	obj.MimeType = s.detectType(id)
	return obj
}

func (s *Store) detectType(id string) string {
	if strings.EqualFold(path.Ext(id), ".json") {
		return domain.JSONMimeType
	}
	p, _ := s.Path(id)
	mt, err := mimetype.DetectFile(p)
	if err != nil {
		return "application/octet-stream"
	}
	return mt.String()
}

func mapPathError(op string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isHidden reports whether a file name starts with a dot.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
