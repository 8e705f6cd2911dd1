/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Holds the device's settings and, for single-machine deployments, the
  document store itself. The same file can serve both roles.

INTERFACES IMPLEMENTED:
  generic.DocumentStore: dailyLogs and users documents
  generic.Settings:      per-device timer settings

KEY TABLES:
  documents: (collection, key) -> JSON body, updated_at stamped on write
  settings:  key -> value

QUERIES:
  Range and equality queries read top-level body fields through the JSON1
  json_extract function. Dates are ISO strings, so text comparison orders
  them chronologically.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. The shared Postgres store relies on
  database-level concurrency control instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/calltracker.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). The Postgres store uses goose with
  versioned migrations.

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
  - store/postgres: Shared hosted implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/calltracker/generic"
)

var (
	errInvalidBody  = errors.New("document body is not valid JSON")
	errInvalidField = errors.New("query field must be a plain identifier")

	fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Store implements generic.DocumentStore and generic.Settings using SQLite.
type Store struct {
	db    *sql.DB
	mu    sync.RWMutex
	clock generic.Clock
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	return NewWithClock(dbPath, generic.SystemClock{})
}

// NewWithClock is New with the clock used to stamp updated_at.
func NewWithClock(dbPath string, clock generic.Clock) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, clock: clock}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		key TEXT NOT NULL,
		body TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (collection, key)
	);

	-- Hot path: period range scans over dailyLogs
	CREATE INDEX IF NOT EXISTS idx_documents_date
		ON documents(collection, json_extract(body, '$.date'));

	-- Nickname migration scans
	CREATE INDEX IF NOT EXISTS idx_documents_nickname
		ON documents(collection, json_extract(body, '$.nickname'));

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// DOCUMENT STORE
// =============================================================================

// Get returns the document, or nil when absent.
func (s *Store) Get(ctx context.Context, collection, key string) (*generic.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var body, updatedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT body, updated_at FROM documents WHERE collection = ? AND key = ?",
		collection, key,
	).Scan(&body, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &generic.Document{
		Key:       key,
		Body:      json.RawMessage(body),
		UpdatedAt: parseTime(updatedAt),
	}, nil
}

// Put replaces the document and stamps updated_at.
func (s *Store) Put(ctx context.Context, collection, key string, body json.RawMessage) error {
	if !json.Valid(body) {
		return errInvalidBody
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, key, body, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(collection, key) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at
	`, collection, key, string(body), s.clock.Now().UTC().Format(time.RFC3339Nano))

	return err
}

// Delete removes the document. Absent keys are not an error.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE collection = ? AND key = ?", collection, key)
	return err
}

// QueryRange returns documents with from <= body.field <= to ordered by
// field, then key.
func (s *Store) QueryRange(ctx context.Context, collection, field, from, to string) ([]generic.Document, error) {
	if !fieldPattern.MatchString(field) {
		return nil, errInvalidField
	}
	path := "$." + field

	return s.queryDocuments(ctx, `
		SELECT key, body, updated_at FROM documents
		WHERE collection = ?
		  AND json_extract(body, ?) >= ?
		  AND json_extract(body, ?) <= ?
		ORDER BY json_extract(body, ?), key
	`, collection, path, from, path, to, path)
}

// QueryEqual returns documents with body.field == value ordered by key.
func (s *Store) QueryEqual(ctx context.Context, collection, field, value string) ([]generic.Document, error) {
	if !fieldPattern.MatchString(field) {
		return nil, errInvalidField
	}

	return s.queryDocuments(ctx, `
		SELECT key, body, updated_at FROM documents
		WHERE collection = ? AND json_extract(body, ?) = ?
		ORDER BY key
	`, collection, "$."+field, value)
}

func (s *Store) queryDocuments(ctx context.Context, query string, args ...any) ([]generic.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []generic.Document
	for rows.Next() {
		var key, body, updatedAt string
		if err := rows.Scan(&key, &body, &updatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, generic.Document{
			Key:       key,
			Body:      json.RawMessage(body),
			UpdatedAt: parseTime(updatedAt),
		})
	}
	return docs, rows.Err()
}

// Count returns the number of documents in collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE collection = ?", collection).Scan(&n)
	return n, err
}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings returns the store's settings view.
func (s *Store) Settings() *Settings {
	return &Settings{store: s}
}

// Settings implements generic.Settings on the settings table. It is a
// separate type because DocumentStore and Settings both define Get.
type Settings struct {
	store *Store
}

// Get returns the value and whether it was present.
func (st *Settings) Get(ctx context.Context, key string) (string, bool, error) {
	st.store.mu.RLock()
	defer st.store.mu.RUnlock()

	var value string
	err := st.store.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores value under key.
func (st *Settings) Set(ctx context.Context, key, value string) error {
	st.store.mu.Lock()
	defer st.store.mu.Unlock()

	_, err := st.store.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
