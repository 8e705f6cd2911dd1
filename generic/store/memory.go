// Package store provides in-memory DocumentStore and Settings implementations.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/warp/calltracker/generic"
)

// =============================================================================
// MEMORY STORE - In-memory document store (for testing/dev)
// =============================================================================

var errInvalidBody = errors.New("document body is not valid JSON")

type Memory struct {
	mu    sync.RWMutex
	docs  map[string]map[string]generic.Document
	clock generic.Clock

	// FailWith, when set, is returned by every operation. Tests use it to
	// simulate an unreachable store.
	FailWith error
}

func NewMemory() *Memory {
	return NewMemoryWithClock(generic.SystemClock{})
}

func NewMemoryWithClock(clock generic.Clock) *Memory {
	return &Memory{
		docs:  make(map[string]map[string]generic.Document),
		clock: clock,
	}
}

func (m *Memory) Get(_ context.Context, collection, key string) (*generic.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}

	doc, ok := m.docs[collection][key]
	if !ok {
		return nil, nil
	}
	cp := copyDoc(doc)
	return &cp, nil
}

func (m *Memory) Put(_ context.Context, collection, key string, body json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	if !json.Valid(body) {
		return errInvalidBody
	}

	c, ok := m.docs[collection]
	if !ok {
		c = make(map[string]generic.Document)
		m.docs[collection] = c
	}
	c[key] = generic.Document{
		Key:       key,
		Body:      append(json.RawMessage(nil), body...),
		UpdatedAt: m.clock.Now().UTC().Truncate(time.Microsecond),
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	delete(m.docs[collection], key)
	return nil
}

func (m *Memory) QueryRange(_ context.Context, collection, field, from, to string) ([]generic.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}

	type hit struct {
		value string
		doc   generic.Document
	}
	var hits []hit
	for _, doc := range m.docs[collection] {
		v, ok := stringField(doc.Body, field)
		if !ok || v < from || v > to {
			continue
		}
		hits = append(hits, hit{value: v, doc: copyDoc(doc)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].value != hits[j].value {
			return hits[i].value < hits[j].value
		}
		return hits[i].doc.Key < hits[j].doc.Key
	})

	result := make([]generic.Document, len(hits))
	for i, h := range hits {
		result[i] = h.doc
	}
	return result, nil
}

func (m *Memory) QueryEqual(_ context.Context, collection, field, value string) ([]generic.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}

	var result []generic.Document
	for _, doc := range m.docs[collection] {
		if v, ok := stringField(doc.Body, field); ok && v == value {
			result = append(result, copyDoc(doc))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

// Len returns the number of documents in a collection.
func (m *Memory) Len(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs[collection])
}

func stringField(body json.RawMessage, field string) (string, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", false
	}
	raw, ok := fields[field]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func copyDoc(d generic.Document) generic.Document {
	d.Body = append(json.RawMessage(nil), d.Body...)
	return d
}

// =============================================================================
// MEMORY SETTINGS
// =============================================================================

type MemorySettings struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemorySettings() *MemorySettings {
	return &MemorySettings{values: make(map[string]string)}
}

func (s *MemorySettings) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemorySettings) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}
