/*
errors.go - Centralized error types

PURPOSE:
  All error types in one place for consistency and discoverability.
  No error here is fatal: every failure degrades to local-only operation.

ERROR CATEGORIES:
  1. Validation errors - Malformed input rejected locally, never written
  2. Identity errors - Anonymous identity not established yet
  3. Remote errors - Document store read/write failures
  4. Name conflicts - Nickname already owned by another identity

USAGE:
  if errors.Is(err, generic.ErrNotAuthenticated) {
      // identity still resolving, retry later
  }

SEE ALSO:
  - cloud/client.go: Produces remote and conflict errors
  - api/handlers.go: Maps error classes to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed nicknames, rates, costs, etc.
	ErrValidation = errors.New("validation failed")

	// ErrNotAuthenticated is returned when the identity provider has not
	// (or could not) establish an identity. Sync operations treat it as a
	// silent no-op.
	ErrNotAuthenticated = errors.New("identity not established")

	// ErrRemoteWrite is returned when the document store rejects a write.
	ErrRemoteWrite = errors.New("remote write failed")

	// ErrRemoteRead is returned when the document store cannot be read.
	ErrRemoteRead = errors.New("remote read failed")

	// ErrNameConflict is returned when a nickname is owned by someone else.
	ErrNameConflict = errors.New("nickname already taken")

	// ErrNicknameRequired is returned by sync operations before a nickname is set.
	ErrNicknameRequired = errors.New("nickname not set")

	// ErrGoalNotFound is returned when deleting an unknown goal.
	ErrGoalNotFound = errors.New("goal not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes one rejected input.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// RemoteError wraps a document store failure with the operation that failed.
type RemoteError struct {
	Op         string // "get", "put", "delete", "query"
	Collection string
	Key        string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Collection, e.Key, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

// Is lets errors.Is match the read/write sentinel for this operation.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrRemoteRead:
		return e.Op == "get" || e.Op == "query"
	case ErrRemoteWrite:
		return e.Op == "put" || e.Op == "delete"
	}
	return false
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// NameConflictError reports the nickname that could not be claimed.
type NameConflictError struct {
	Nickname Nickname
}

func (e *NameConflictError) Error() string {
	return fmt.Sprintf("%q is already taken", string(e.Nickname))
}

func (e *NameConflictError) Unwrap() error {
	return ErrNameConflict
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNameConflict) ||
		errors.Is(err, ErrNicknameRequired) ||
		errors.Is(err, ErrGoalNotFound)
}

// IsRemote returns true for document store failures.
func IsRemote(err error) bool {
	return errors.Is(err, ErrRemoteRead) || errors.Is(err, ErrRemoteWrite)
}

// IsNotAuthenticated returns true while identity is unresolved or failed.
func IsNotAuthenticated(err error) bool {
	return errors.Is(err, ErrNotAuthenticated)
}
