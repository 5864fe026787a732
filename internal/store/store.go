// ABOUTME: Store interfaces and data types for coven-mcp persistence
// ABOUTME: Defines the tool-call ledger and namespaced notes

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// DefaultNamespace is used for notes stored without a namespace.
const DefaultNamespace = "default"

// ToolCall is one tools/call invocation recorded in the ledger.
type ToolCall struct {
	ID           string
	Tool         string
	SessionID    string
	RequestID    *int64
	Arguments    string // JSON object, empty when the call had no arguments
	Result       string
	ErrorCode    int // 0 on success
	ErrorMessage string
	StartedAt    time.Time
	Duration     time.Duration
}

// Failed reports whether the call ended with a protocol error.
func (c *ToolCall) Failed() bool {
	return c.ErrorCode != 0
}

// ToolCallFilter narrows ListToolCalls. Zero values match everything.
type ToolCallFilter struct {
	Tool      string
	SessionID string
	Since     *time.Time
	Limit     int // defaults to 50, capped at 1000
}

// Note is a key/value pair scoped to a namespace.
type Note struct {
	ID        string
	Namespace string
	Key       string
	Value     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LedgerStore persists the tool-call ledger.
type LedgerStore interface {
	RecordToolCall(ctx context.Context, call *ToolCall) error
	ListToolCalls(ctx context.Context, filter ToolCallFilter) ([]*ToolCall, error)
}

// NoteStore persists namespaced notes.
type NoteStore interface {
	// SetNote creates or replaces the note for (namespace, key).
	SetNote(ctx context.Context, note *Note) error
	GetNote(ctx context.Context, namespace, key string) (*Note, error)
	// ListNotes returns a namespace's notes ordered by key.
	ListNotes(ctx context.Context, namespace string) ([]*Note, error)
	DeleteNote(ctx context.Context, namespace, key string) error
}

// Store is everything coven-mcp persists.
type Store interface {
	LedgerStore
	NoteStore
	Close() error
}

// normalizeLimit applies the default and maximum list limits.
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func namespaceOrDefault(ns string) string {
	if ns == "" {
		return DefaultNamespace
	}
	return ns
}
