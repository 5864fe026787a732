// ABOUTME: Behavioral tests shared by SQLiteStore and MockStore
// ABOUTME: Each test runs against both implementations to keep them in agreement

package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

// forEachStore runs fn against every Store implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Helper()
	t.Run("sqlite", func(t *testing.T) { fn(t, setupTestStore(t)) })
	t.Run("mock", func(t *testing.T) { fn(t, NewMockStore()) })
}

func int64Ptr(v int64) *int64 { return &v }

func TestStore_RecordAndListToolCalls(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		calls := []*ToolCall{
			{Tool: "add", SessionID: "s1", RequestID: int64Ptr(1), Arguments: `{"a":1,"b":2}`, Result: "3", StartedAt: base, Duration: 15 * time.Millisecond},
			{Tool: "throw_error", SessionID: "s2", ErrorCode: 500, ErrorMessage: "Intentional error", StartedAt: base.Add(time.Second)},
			{Tool: "add", StartedAt: base.Add(2 * time.Second), Result: "5"},
		}
		for _, c := range calls {
			require.NoError(t, s.RecordToolCall(ctx, c))
			assert.NotEmpty(t, c.ID)
		}

		all, err := s.ListToolCalls(ctx, ToolCallFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, calls[2].ID, all[0].ID, "newest first")
		assert.Equal(t, calls[0].ID, all[2].ID)

		oldest := all[2]
		assert.Equal(t, "add", oldest.Tool)
		assert.Equal(t, "s1", oldest.SessionID)
		require.NotNil(t, oldest.RequestID)
		assert.Equal(t, int64(1), *oldest.RequestID)
		assert.JSONEq(t, `{"a":1,"b":2}`, oldest.Arguments)
		assert.Equal(t, "3", oldest.Result)
		assert.Equal(t, 15*time.Millisecond, oldest.Duration)
		assert.True(t, oldest.StartedAt.Equal(base))
		assert.False(t, oldest.Failed())

		failed := all[1]
		assert.True(t, failed.Failed())
		assert.Equal(t, 500, failed.ErrorCode)
		assert.Equal(t, "Intentional error", failed.ErrorMessage)
		assert.Nil(t, failed.RequestID)
	})
}

func TestStore_ListToolCallsFilters(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		base := time.Now().Add(-time.Hour)

		for i := 0; i < 6; i++ {
			tool := "add"
			if i%2 == 1 {
				tool = "concat"
			}
			require.NoError(t, s.RecordToolCall(ctx, &ToolCall{
				Tool:      tool,
				SessionID: fmt.Sprintf("s%d", i%3),
				StartedAt: base.Add(time.Duration(i) * time.Minute),
			}))
		}

		byTool, err := s.ListToolCalls(ctx, ToolCallFilter{Tool: "concat"})
		require.NoError(t, err)
		assert.Len(t, byTool, 3)
		for _, c := range byTool {
			assert.Equal(t, "concat", c.Tool)
		}

		bySession, err := s.ListToolCalls(ctx, ToolCallFilter{SessionID: "s0"})
		require.NoError(t, err)
		assert.Len(t, bySession, 2)

		since := base.Add(4 * time.Minute)
		recent, err := s.ListToolCalls(ctx, ToolCallFilter{Since: &since})
		require.NoError(t, err)
		assert.Len(t, recent, 2)

		limited, err := s.ListToolCalls(ctx, ToolCallFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, limited, 2)
	})
}

func TestStore_RecordToolCallRequiresTool(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		err := s.RecordToolCall(context.Background(), &ToolCall{})
		assert.Error(t, err)
	})
}

func TestStore_Notes(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		note := &Note{Key: "greeting", Value: "hello"}
		require.NoError(t, s.SetNote(ctx, note))
		assert.Equal(t, DefaultNamespace, note.Namespace)

		got, err := s.GetNote(ctx, "", "greeting")
		require.NoError(t, err)
		assert.Equal(t, "hello", got.Value)
		assert.Equal(t, DefaultNamespace, got.Namespace)
		assert.False(t, got.CreatedAt.IsZero())

		// Upsert keeps one row per (namespace, key)
		require.NoError(t, s.SetNote(ctx, &Note{Key: "greeting", Value: "hi again"}))
		got, err = s.GetNote(ctx, DefaultNamespace, "greeting")
		require.NoError(t, err)
		assert.Equal(t, "hi again", got.Value)

		require.NoError(t, s.SetNote(ctx, &Note{Namespace: "work", Key: "b", Value: "2"}))
		require.NoError(t, s.SetNote(ctx, &Note{Namespace: "work", Key: "a", Value: "1"}))

		work, err := s.ListNotes(ctx, "work")
		require.NoError(t, err)
		require.Len(t, work, 2)
		assert.Equal(t, "a", work[0].Key)
		assert.Equal(t, "b", work[1].Key)

		defaults, err := s.ListNotes(ctx, "")
		require.NoError(t, err)
		assert.Len(t, defaults, 1)

		require.NoError(t, s.DeleteNote(ctx, "work", "a"))
		_, err = s.GetNote(ctx, "work", "a")
		assert.True(t, errors.Is(err, ErrNotFound))

		err = s.DeleteNote(ctx, "work", "a")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_NoteRequiresKey(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		assert.Error(t, s.SetNote(context.Background(), &Note{Value: "v"}))
	})
}

func TestSQLiteStore_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "ledger.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.RecordToolCall(context.Background(), &ToolCall{Tool: "add"}))
	require.NoError(t, s.Close())

	// Schema creation and migrations are idempotent
	s, err = NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	calls, err := s.ListToolCalls(context.Background(), ToolCallFilter{})
	require.NoError(t, err)
	assert.Len(t, calls, 1)
}

func TestSQLiteStore_InMemory(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.SetNote(ctx, &Note{Key: "k", Value: "v"}))
	got, err := s.GetNote(ctx, "", "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got.Value)
}

func TestMockStore_FailWith(t *testing.T) {
	m := NewMockStore()
	boom := errors.New("boom")

	m.FailWith("RecordToolCall", boom)
	assert.ErrorIs(t, m.RecordToolCall(context.Background(), &ToolCall{Tool: "add"}), boom)

	m.FailWith("RecordToolCall", nil)
	assert.NoError(t, m.RecordToolCall(context.Background(), &ToolCall{Tool: "add"}))
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, 50, normalizeLimit(0))
	assert.Equal(t, 50, normalizeLimit(-3))
	assert.Equal(t, 7, normalizeLimit(7))
	assert.Equal(t, 1000, normalizeLimit(5000))
}
