package cloud

import (
	"sync"
	"time"

	"github.com/warp/calltracker/generic"
)

// SyncStatus is the transient indicator shown after a manual sync.
type SyncStatus string

const (
	StatusNone    SyncStatus = ""
	StatusSyncing SyncStatus = "syncing"
	StatusSynced  SyncStatus = "synced"
	StatusError   SyncStatus = "error"
)

// DefaultStatusWindow is how long synced/error stay visible.
const DefaultStatusWindow = 3 * time.Second

// StatusTracker holds the last sync outcome. Synced and error clear
// themselves once the window has passed; syncing stays until resolved.
type StatusTracker struct {
	mu     sync.Mutex
	clock  generic.Clock
	window time.Duration
	status SyncStatus
	since  time.Time
	err    error
}

// NewStatusTracker creates a tracker. A non-positive window uses the default.
func NewStatusTracker(clock generic.Clock, window time.Duration) *StatusTracker {
	if window <= 0 {
		window = DefaultStatusWindow
	}
	return &StatusTracker{clock: clock, window: window}
}

// Begin marks a sync in flight.
func (s *StatusTracker) Begin() {
	s.set(StatusSyncing, nil)
}

// Finish records the outcome of the sync started by Begin.
func (s *StatusTracker) Finish(err error) {
	if err != nil {
		s.set(StatusError, err)
		return
	}
	s.set(StatusSynced, nil)
}

// Current returns the visible status and, for StatusError, the cause.
func (s *StatusTracker) Current() (SyncStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusSynced || s.status == StatusError {
		if s.clock.Now().Sub(s.since) >= s.window {
			s.status, s.err = StatusNone, nil
		}
	}
	return s.status, s.err
}

func (s *StatusTracker) set(status SyncStatus, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.err = err
	s.since = s.clock.Now()
}

// Clear drops any visible status, used when a sync turns out to be a no-op.
func (s *StatusTracker) Clear() {
	s.set(StatusNone, nil)
}
