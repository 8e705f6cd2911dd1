package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/calltracker/generic"
)

func TestRunMigrations_UsesEmbeddedFS(t *testing.T) {
	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}

	require.NoError(t, RunMigrations(context.Background(), nil))
	assert.Equal(t, ".", gotDir)
}

func TestRunMigrations_PropagatesError(t *testing.T) {
	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	boom := errors.New("boom")
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return boom
	}

	assert.ErrorIs(t, RunMigrations(context.Background(), nil), boom)
}

func TestQueries_RejectUnsafeField(t *testing.T) {
	s := &Store{}

	_, err := s.QueryRange(context.Background(), "dailyLogs", "date' --", "a", "b")
	assert.ErrorIs(t, err, errInvalidField)
	_, err = s.QueryEqual(context.Background(), "dailyLogs", "", "a")
	assert.ErrorIs(t, err, errInvalidField)
}

// The tests below need a live server: CALLTRACKER_TEST_POSTGRES_DSN.

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("CALLTRACKER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CALLTRACKER_TEST_POSTGRES_DSN not set")
	}
	s, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	_, err = s.db.Exec("TRUNCATE documents, settings")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_Documents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	put := func(key, nick, date string) {
		b, err := json.Marshal(map[string]string{"nickname": nick, "date": date})
		require.NoError(t, err)
		require.NoError(t, s.Put(ctx, generic.CollectionDailyLogs, key, b))
	}
	put("b_2026-03-01", "b", "2026-03-01")
	put("a_2026-03-06", "a", "2026-03-06")
	put("a_2026-02-20", "a", "2026-02-20")
	put("a_2026-03-01", "a", "2026-03-01")

	docs, err := s.QueryRange(ctx, generic.CollectionDailyLogs, "date", "2026-02-21", "2026-03-06")
	require.NoError(t, err)
	var keys []string
	for _, d := range docs {
		keys = append(keys, d.Key)
		assert.False(t, d.UpdatedAt.IsZero())
	}
	assert.Equal(t, []string{"a_2026-03-01", "b_2026-03-01", "a_2026-03-06"}, keys)

	docs, err = s.QueryEqual(ctx, generic.CollectionDailyLogs, "nickname", "b")
	require.NoError(t, err)
	require.Len(t, docs, 1)

	require.NoError(t, s.Delete(ctx, generic.CollectionDailyLogs, "b_2026-03-01"))
	doc, err := s.Get(ctx, generic.CollectionDailyLogs, "b_2026-03-01")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestStore_Settings(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	settings := s.Settings()

	require.NoError(t, settings.Set(ctx, "nickname", "ana"))
	v, ok, err := settings.Get(ctx, "nickname")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ana", v)
}
