package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/rolodex/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/rolodex/internal/core/domain"
	"github.com/custodia-labs/rolodex/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.SnapshotStore = (*Store)(nil)

// DatabaseFile is the cache file name inside the data directory.
const DatabaseFile = "cache.db"

// Keys in snapshot_meta.
const (
	metaSavedAt   = "saved_at"
	metaOptions   = "options"
	metaStructure = "structure"
)

// Store is a SQLite-backed driven.SnapshotStore.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens the cache in dataDir, creating it if needed.
// If dataDir is empty, defaults to ~/.rolodex/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".rolodex", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate applies every embedded up migration newer than the recorded version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.apply(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) apply(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// Save replaces the cached snapshot in a single transaction.
func (s *Store) Save(ctx context.Context, snap driven.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := clearTables(ctx, tx); err != nil {
		return err
	}

	contactStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO snapshot_contacts (id, position, data) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing contact insert: %w", err)
	}
	defer contactStmt.Close()

	for i, c := range snap.Contacts {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshalling contact %s: %w", c.ID, err)
		}
		if _, err := contactStmt.ExecContext(ctx, c.ID, i, string(data)); err != nil {
			return fmt.Errorf("saving contact %s: %w", c.ID, err)
		}
	}

	meetingStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO snapshot_meetings (id, contact_id, position, data) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing meeting insert: %w", err)
	}
	defer meetingStmt.Close()

	for i, m := range snap.Meetings {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshalling meeting %s: %w", m.ID, err)
		}
		if _, err := meetingStmt.ExecContext(ctx, m.ID, m.ContactID, i, string(data)); err != nil {
			return fmt.Errorf("saving meeting %s: %w", m.ID, err)
		}
	}

	savedAt := snap.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}
	meta := map[string]any{
		metaOptions:   snap.Options,
		metaStructure: snap.Structure,
		metaSavedAt:   savedAt.UTC().Format(time.RFC3339Nano),
	}
	for key, value := range meta {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshalling %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO snapshot_meta (key, value) VALUES (?, ?)", key, string(data)); err != nil {
			return fmt.Errorf("saving %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

// Load returns the cached snapshot, or domain.ErrNotFound if none was saved.
func (s *Store) Load(ctx context.Context) (*driven.Snapshot, error) {
	meta, err := s.loadMeta(ctx)
	if err != nil {
		return nil, err
	}
	rawSavedAt, ok := meta[metaSavedAt]
	if !ok {
		return nil, fmt.Errorf("snapshot: %w", domain.ErrNotFound)
	}

	snap := &driven.Snapshot{}
	var savedAt string
	if err := json.Unmarshal([]byte(rawSavedAt), &savedAt); err != nil {
		return nil, fmt.Errorf("decoding saved_at: %w", err)
	}
	if snap.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt); err != nil {
		return nil, fmt.Errorf("parsing saved_at: %w", err)
	}
	if err := unmarshalMeta(meta, metaOptions, &snap.Options); err != nil {
		return nil, err
	}
	if err := unmarshalMeta(meta, metaStructure, &snap.Structure); err != nil {
		return nil, err
	}

	snap.Contacts, err = loadRows[domain.Contact](ctx, s.db,
		"SELECT data FROM snapshot_contacts ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("loading contacts: %w", err)
	}
	snap.Meetings, err = loadRows[domain.Meeting](ctx, s.db,
		"SELECT data FROM snapshot_meetings ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("loading meetings: %w", err)
	}

	return snap, nil
}

// Clear removes the cached snapshot.
func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := clearTables(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

func clearTables(ctx context.Context, tx *sql.Tx) error {
	for _, table := range []string{"snapshot_contacts", "snapshot_meetings", "snapshot_meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return nil
}

func (s *Store) loadMeta(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM snapshot_meta")
	if err != nil {
		return nil, fmt.Errorf("loading snapshot metadata: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning snapshot metadata: %w", err)
		}
		meta[key] = value
	}
	return meta, rows.Err()
}

func unmarshalMeta(meta map[string]string, key string, v any) error {
	raw, ok := meta[key]
	if !ok {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}
	return nil
}

func loadRows[T any](ctx context.Context, db *sql.DB, query string) ([]T, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
