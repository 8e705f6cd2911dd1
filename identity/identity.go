/*
Package identity provides the anonymous identity that gates writes to the
shared document store.

PURPOSE:
  Remote writes may only happen once an identity is established. Sign-in
  is asynchronous, so a Provider exposes readiness as a future: Ready
  blocks until sign-in resolves (or ctx ends) and every caller sees the
  same outcome.

IMPLEMENTATIONS:
  Anonymous: reuses a uid persisted in local settings or mints a new one
  Static:    fixed outcome, for tests
*/
package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/warp/calltracker/generic"
)

// KeyUID is the settings key holding the anonymous uid.
const KeyUID = "identityUID"

// Identity is an authenticated principal.
type Identity struct {
	UID string
}

// Provider resolves the current identity.
type Provider interface {
	// Ready waits for sign-in to resolve. It returns ErrNotAuthenticated
	// when sign-in failed and ctx.Err() when ctx ends first.
	Ready(ctx context.Context) (Identity, error)

	// Current returns the identity if sign-in already succeeded.
	Current() (Identity, bool)
}

// =============================================================================
// ANONYMOUS
// =============================================================================

// Anonymous signs in without credentials, keeping one uid per device.
type Anonymous struct {
	settings generic.Settings

	once  sync.Once
	done  chan struct{}
	id    Identity
	err   error
	mu    sync.RWMutex
	ready bool
}

// NewAnonymous creates a provider backed by settings. Sign-in starts on
// the first call to SignIn, Ready or Current.
func NewAnonymous(settings generic.Settings) *Anonymous {
	return &Anonymous{settings: settings, done: make(chan struct{})}
}

// SignIn starts sign-in in the background. It is safe to call many times.
func (a *Anonymous) SignIn(ctx context.Context) {
	a.once.Do(func() {
		go a.resolve(context.WithoutCancel(ctx))
	})
}

func (a *Anonymous) resolve(ctx context.Context) {
	defer close(a.done)

	uid, ok, err := a.settings.Get(ctx, KeyUID)
	if err != nil {
		a.err = fmt.Errorf("%w: read uid: %v", generic.ErrNotAuthenticated, err)
		return
	}
	if !ok || uid == "" {
		uid = uuid.NewString()
		if err := a.settings.Set(ctx, KeyUID, uid); err != nil {
			a.err = fmt.Errorf("%w: store uid: %v", generic.ErrNotAuthenticated, err)
			return
		}
	}

	a.mu.Lock()
	a.id = Identity{UID: uid}
	a.ready = true
	a.mu.Unlock()
}

// Ready implements Provider.
func (a *Anonymous) Ready(ctx context.Context) (Identity, error) {
	a.SignIn(ctx)
	select {
	case <-a.done:
		if a.err != nil {
			return Identity{}, a.err
		}
		return a.id, nil
	case <-ctx.Done():
		return Identity{}, ctx.Err()
	}
}

// Current implements Provider.
func (a *Anonymous) Current() (Identity, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.id, a.ready
}

// =============================================================================
// STATIC
// =============================================================================

// Static is a Provider with a fixed outcome.
type Static struct {
	ID  Identity
	Err error
}

// SignedIn returns a provider that is ready as uid.
func SignedIn(uid string) *Static { return &Static{ID: Identity{UID: uid}} }

// SignedOut returns a provider whose sign-in failed.
func SignedOut() *Static { return &Static{Err: generic.ErrNotAuthenticated} }

// Ready implements Provider.
func (s *Static) Ready(ctx context.Context) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}
	if s.Err != nil {
		return Identity{}, s.Err
	}
	return s.ID, nil
}

// Current implements Provider.
func (s *Static) Current() (Identity, bool) { return s.ID, s.Err == nil }
