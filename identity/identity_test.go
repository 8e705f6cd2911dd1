package identity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/calltracker/generic"
	"github.com/warp/calltracker/generic/store"
	"github.com/warp/calltracker/identity"
)

func TestAnonymous_MintsAndPersistsUID(t *testing.T) {
	ctx := context.Background()
	settings := store.NewMemorySettings()

	// WHEN: first device start
	first, err := identity.NewAnonymous(settings).Ready(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, first.UID)

	// THEN: the next start reuses it
	second, err := identity.NewAnonymous(settings).Ready(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.UID, second.UID)

	stored, ok, err := settings.Get(ctx, identity.KeyUID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, first.UID, stored)
}

func TestAnonymous_ConcurrentWaitersSeeSameIdentity(t *testing.T) {
	p := identity.NewAnonymous(store.NewMemorySettings())
	ids := make(chan string, 10)

	for i := 0; i < 10; i++ {
		go func() {
			id, err := p.Ready(context.Background())
			if err != nil {
				ids <- ""
				return
			}
			ids <- id.UID
		}()
	}

	first := <-ids
	require.NotEmpty(t, first)
	for i := 1; i < 10; i++ {
		assert.Equal(t, first, <-ids)
	}
	current, ok := p.Current()
	assert.True(t, ok)
	assert.Equal(t, first, current.UID)
}

type failingSettings struct{}

func (failingSettings) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk gone")
}
func (failingSettings) Set(context.Context, string, string) error { return errors.New("disk gone") }

func TestAnonymous_FailureIsNotAuthenticated(t *testing.T) {
	p := identity.NewAnonymous(failingSettings{})

	_, err := p.Ready(context.Background())

	assert.ErrorIs(t, err, generic.ErrNotAuthenticated)
	_, ok := p.Current()
	assert.False(t, ok)
}

func TestAnonymous_ReadyHonoursContext(t *testing.T) {
	p := identity.NewAnonymous(blockingSettings{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Ready(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type blockingSettings struct{}

func (blockingSettings) Get(ctx context.Context, _ string) (string, bool, error) {
	time.Sleep(time.Second)
	return "", false, nil
}
func (blockingSettings) Set(context.Context, string, string) error { return nil }

func TestStatic(t *testing.T) {
	id, err := identity.SignedIn("u1").Ready(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UID)

	_, err = identity.SignedOut().Ready(context.Background())
	assert.ErrorIs(t, err, generic.ErrNotAuthenticated)
}
