// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Ensure MockStore implements Store.
var _ Store = (*MockStore)(nil)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu    sync.RWMutex
	calls []*ToolCall      // in insertion order
	notes map[string]*Note // keyed by "namespace\x00key"
	err   map[string]error // forced errors keyed by method name
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		notes: make(map[string]*Note),
		err:   make(map[string]error),
	}
}

// FailWith makes the named method return err until cleared with a nil err.
func (m *MockStore) FailWith(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.err, method)
		return
	}
	m.err[method] = err
}

func noteKey(namespace, key string) string {
	return namespace + "\x00" + key
}

// RecordToolCall stores a copy of the call.
func (m *MockStore) RecordToolCall(ctx context.Context, call *ToolCall) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.err["RecordToolCall"]; err != nil {
		return err
	}
	if call.Tool == "" {
		return fmt.Errorf("recording tool call: tool name is required")
	}
	if call.ID == "" {
		call.ID = uuid.New().String()
	}
	if call.StartedAt.IsZero() {
		call.StartedAt = time.Now()
	}

	c := *call
	m.calls = append(m.calls, &c)
	return nil
}

// ListToolCalls returns matching calls, newest first.
func (m *MockStore) ListToolCalls(ctx context.Context, filter ToolCallFilter) ([]*ToolCall, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.err["ListToolCalls"]; err != nil {
		return nil, err
	}

	var out []*ToolCall
	for i := len(m.calls) - 1; i >= 0; i-- {
		c := m.calls[i]
		if filter.Tool != "" && c.Tool != filter.Tool {
			continue
		}
		if filter.SessionID != "" && c.SessionID != filter.SessionID {
			continue
		}
		if filter.Since != nil && c.StartedAt.Before(*filter.Since) {
			continue
		}
		result := *c
		out = append(out, &result)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})

	if limit := normalizeLimit(filter.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SetNote creates or updates a note.
func (m *MockStore) SetNote(ctx context.Context, note *Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.err["SetNote"]; err != nil {
		return err
	}
	if note.Key == "" {
		return fmt.Errorf("setting note: key is required")
	}
	note.Namespace = namespaceOrDefault(note.Namespace)
	now := time.Now()
	note.UpdatedAt = now

	k := noteKey(note.Namespace, note.Key)
	if existing, ok := m.notes[k]; ok {
		existing.Value = note.Value
		existing.UpdatedAt = now
		return nil
	}

	if note.ID == "" {
		note.ID = uuid.New().String()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	n := *note
	m.notes[k] = &n
	return nil
}

// GetNote retrieves a note.
func (m *MockStore) GetNote(ctx context.Context, namespace, key string) (*Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.err["GetNote"]; err != nil {
		return nil, err
	}
	n, ok := m.notes[noteKey(namespaceOrDefault(namespace), key)]
	if !ok {
		return nil, ErrNotFound
	}
	result := *n
	return &result, nil
}

// ListNotes lists a namespace's notes ordered by key.
func (m *MockStore) ListNotes(ctx context.Context, namespace string) ([]*Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.err["ListNotes"]; err != nil {
		return nil, err
	}

	ns := namespaceOrDefault(namespace)
	var out []*Note
	for _, n := range m.notes {
		if n.Namespace != ns {
			continue
		}
		result := *n
		out = append(out, &result)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// DeleteNote removes a note.
func (m *MockStore) DeleteNote(ctx context.Context, namespace, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.err["DeleteNote"]; err != nil {
		return err
	}
	k := noteKey(namespaceOrDefault(namespace), key)
	if _, ok := m.notes[k]; !ok {
		return ErrNotFound
	}
	delete(m.notes, k)
	return nil
}

// Close is a no-op for MockStore.
func (m *MockStore) Close() error {
	return nil
}
