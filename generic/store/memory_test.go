package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/calltracker/generic"
	"github.com/warp/calltracker/generic/store"
)

func body(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestMemory_PutOverwritesAndStampsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	clock := generic.NewManualClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	m := store.NewMemoryWithClock(clock)

	require.NoError(t, m.Put(ctx, "dailyLogs", "ana_2026-03-01", body(t, map[string]any{"date": "2026-03-01", "x": 1})))
	clock.Advance(time.Minute)
	require.NoError(t, m.Put(ctx, "dailyLogs", "ana_2026-03-01", body(t, map[string]any{"date": "2026-03-01"})))

	doc, err := m.Get(ctx, "dailyLogs", "ana_2026-03-01")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.JSONEq(t, `{"date":"2026-03-01"}`, string(doc.Body), "put replaces, never merges")
	assert.Equal(t, clock.Now().UTC(), doc.UpdatedAt)
}

func TestMemory_GetAbsentReturnsNil(t *testing.T) {
	doc, err := store.NewMemory().Get(context.Background(), "users", "nobody")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestMemory_QueryRangeInclusiveAndOrdered(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	for _, d := range []string{"2026-03-05", "2026-03-01", "2026-02-28", "2026-03-07", "2026-03-06"} {
		require.NoError(t, m.Put(ctx, "dailyLogs", "u_"+d, body(t, map[string]string{"date": d})))
	}

	docs, err := m.QueryRange(ctx, "dailyLogs", "date", "2026-03-01", "2026-03-06")
	require.NoError(t, err)

	var got []string
	for _, d := range docs {
		got = append(got, d.Key)
	}
	assert.Equal(t, []string{"u_2026-03-01", "u_2026-03-05", "u_2026-03-06"}, got)
}

func TestMemory_QueryEqualAndDelete(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	require.NoError(t, m.Put(ctx, "dailyLogs", "ana_1", body(t, map[string]string{"nickname": "ana"})))
	require.NoError(t, m.Put(ctx, "dailyLogs", "bob_1", body(t, map[string]string{"nickname": "bob"})))
	require.NoError(t, m.Put(ctx, "dailyLogs", "ana_2", body(t, map[string]string{"nickname": "ana"})))

	docs, err := m.QueryEqual(ctx, "dailyLogs", "nickname", "ana")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "ana_1", docs[0].Key)

	require.NoError(t, m.Delete(ctx, "dailyLogs", "ana_1"))
	require.NoError(t, m.Delete(ctx, "dailyLogs", "ana_1"), "deleting absent key is not an error")
	assert.Equal(t, 2, m.Len("dailyLogs"))
}

func TestMemory_FailWith(t *testing.T) {
	m := store.NewMemory()
	m.FailWith = errors.New("offline")

	_, err := m.Get(context.Background(), "users", "x")
	assert.EqualError(t, err, "offline")
	assert.Error(t, m.Put(context.Background(), "users", "x", json.RawMessage(`{}`)))
}

func TestMemory_RejectsInvalidJSON(t *testing.T) {
	assert.Error(t, store.NewMemory().Put(context.Background(), "users", "x", json.RawMessage(`{nope`)))
}

func TestMemorySettings(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemorySettings()

	_, ok, err := s.Get(ctx, "rate")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "rate", "0.11"))
	v, ok, err := s.Get(ctx, "rate")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "0.11", v)
}
