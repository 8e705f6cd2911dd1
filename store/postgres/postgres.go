/*
Package postgres provides the shared, hosted document store on PostgreSQL.

PURPOSE:
  All workers read and write the same dailyLogs and users collections. This
  is the multi-device counterpart of store/sqlite; bodies are stored as
  JSONB and updated_at is assigned by the database on every write.

SCHEMA:
  Managed by goose with migrations embedded from ./migrations and applied
  on Open.

CONCURRENCY:
  Left to the database. Concurrent writes to one key race and the last
  one wins, matching the overwrite contract of generic.DocumentStore.

SEE ALSO:
  - generic/store.go: Interface definitions
  - store/sqlite: Local implementation
*/
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/warp/calltracker/generic"
	"github.com/warp/calltracker/store/postgres/migrations"
)

var (
	errInvalidBody  = errors.New("document body is not valid JSON")
	errInvalidField = errors.New("query field must be a plain identifier")

	fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Store implements generic.DocumentStore and generic.Settings on Postgres.
type Store struct {
	db *sql.DB
}

// Open connects with dsn and applies pending migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded goose migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// DOCUMENT STORE
// =============================================================================

// Get returns the document, or nil when absent.
func (s *Store) Get(ctx context.Context, collection, key string) (*generic.Document, error) {
	var body []byte
	var updatedAt time.Time

	err := s.db.QueryRowContext(ctx,
		"SELECT body, updated_at FROM documents WHERE collection = $1 AND key = $2",
		collection, key,
	).Scan(&body, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &generic.Document{Key: key, Body: body, UpdatedAt: updatedAt.UTC()}, nil
}

// Put replaces the document; updated_at is set by the database.
func (s *Store) Put(ctx context.Context, collection, key string, body json.RawMessage) error {
	if !json.Valid(body) {
		return errInvalidBody
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, key, body, updated_at)
		VALUES ($1, $2, $3::jsonb, now())
		ON CONFLICT (collection, key) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at
	`, collection, key, string(body))
	return err
}

// Delete removes the document. Absent keys are not an error.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE collection = $1 AND key = $2", collection, key)
	return err
}

// QueryRange returns documents with from <= body->>field <= to ordered by
// field, then key. Comparison uses the C collation so ISO dates order
// byte-wise.
func (s *Store) QueryRange(ctx context.Context, collection, field, from, to string) ([]generic.Document, error) {
	if !fieldPattern.MatchString(field) {
		return nil, errInvalidField
	}
	return s.queryDocuments(ctx, `
		SELECT key, body, updated_at FROM documents
		WHERE collection = $1
		  AND (body->>($2::text)) COLLATE "C" >= $3
		  AND (body->>($2::text)) COLLATE "C" <= $4
		ORDER BY (body->>($2::text)) COLLATE "C", key COLLATE "C"
	`, collection, field, from, to)
}

// QueryEqual returns documents with body->>field == value ordered by key.
func (s *Store) QueryEqual(ctx context.Context, collection, field, value string) ([]generic.Document, error) {
	if !fieldPattern.MatchString(field) {
		return nil, errInvalidField
	}
	return s.queryDocuments(ctx, `
		SELECT key, body, updated_at FROM documents
		WHERE collection = $1 AND body->>($2::text) = $3
		ORDER BY key COLLATE "C"
	`, collection, field, value)
}

func (s *Store) queryDocuments(ctx context.Context, query string, args ...any) ([]generic.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []generic.Document
	for rows.Next() {
		var d generic.Document
		var body []byte
		if err := rows.Scan(&d.Key, &body, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.Body = body
		d.UpdatedAt = d.UpdatedAt.UTC()
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings returns a generic.Settings view over the settings table.
func (s *Store) Settings() *Settings {
	return &Settings{db: s.db}
}

// Settings implements generic.Settings.
type Settings struct {
	db *sql.DB
}

// Get returns the value and whether it was present.
func (st *Settings) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := st.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = $1", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores value under key.
func (st *Settings) Set(ctx context.Context, key, value string) error {
	_, err := st.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
