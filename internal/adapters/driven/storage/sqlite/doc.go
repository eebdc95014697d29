// Package sqlite caches the last loaded repository snapshot in SQLite.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. The cache backs the CLI's --offline mode; the remote store
// stays the source of truth and the cache is overwritten after every
// successful load or save.
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql
// files; applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.rolodex/data/cache.db
package sqlite
