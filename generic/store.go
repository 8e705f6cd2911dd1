/*
store.go - Collaborator contracts: document store, settings, clock

PURPOSE:
  Defines the interfaces between the tracker's logic and the things it does
  not own: a hosted document database shared by all workers, a small local
  key/value store for per-device settings, and the wall clock.

KEY INTERFACES:
  DocumentStore: get/put/delete by key, range and equality queries
  Settings:      string-keyed get/set, read at startup, written on change
  Clock:         current wall-clock time, injectable for tests

OVERWRITE CONTRACT:
  Put always replaces the whole document. There is no field merge; callers
  that need to carry a field forward read it first. Concurrent writers to
  the same key race and the last one wins.

IMPLEMENTATIONS:
  - generic/store/memory.go: In-memory for tests and dev
  - store/sqlite/sqlite.go: Local SQLite file (documents + settings)
  - store/postgres/postgres.go: Shared Postgres (documents)

SEE ALSO:
  - cloud/client.go: Typed access to dailyLogs and users
  - timer/persist.go: Settings keys used by the timer
*/
package generic

import (
	"context"
	"encoding/json"
	"time"
)

// =============================================================================
// DOCUMENT STORE
// =============================================================================

// Collections used by the tracker.
const (
	CollectionDailyLogs = "dailyLogs"
	CollectionUsers     = "users"
)

// Document is one stored JSON body under a key.
type Document struct {
	Key       string
	Body      json.RawMessage
	UpdatedAt time.Time // assigned by the store on every Put
}

// Decode unmarshals the body into v.
func (d Document) Decode(v any) error {
	return json.Unmarshal(d.Body, v)
}

// DocumentStore is a key/value document database with simple queries.
// Query fields address top-level string properties of the JSON body and
// compare lexicographically, which orders ISO dates chronologically.
type DocumentStore interface {
	// Get returns the document, or nil with no error when absent.
	Get(ctx context.Context, collection, key string) (*Document, error)

	// Put replaces the document at key with body.
	Put(ctx context.Context, collection, key string, body json.RawMessage) error

	// Delete removes the document. Deleting an absent key is not an error.
	Delete(ctx context.Context, collection, key string) error

	// QueryRange returns documents with from <= body[field] <= to, ordered
	// by field ascending (then key, for a stable order).
	QueryRange(ctx context.Context, collection, field, from, to string) ([]Document, error)

	// QueryEqual returns documents with body[field] == value, ordered by key.
	QueryEqual(ctx context.Context, collection, field, value string) ([]Document, error)
}

// =============================================================================
// SETTINGS - Local per-device key/value store
// =============================================================================

// Settings persists small string values on the local device.
type Settings interface {
	// Get returns the value and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key.
	Set(ctx context.Context, key, value string) error
}

// =============================================================================
// CLOCK
// =============================================================================

// Clock is the source of wall-clock time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
