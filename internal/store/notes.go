// ABOUTME: SQLite persistence for namespaced notes
// ABOUTME: Upserts by (namespace, key) and returns ErrNotFound for missing notes

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SetNote creates or updates a note.
func (s *SQLiteStore) SetNote(ctx context.Context, note *Note) error {
	if note.Key == "" {
		return fmt.Errorf("setting note: key is required")
	}
	note.Namespace = namespaceOrDefault(note.Namespace)
	if note.ID == "" {
		note.ID = uuid.New().String()
	}
	now := time.Now()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	note.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (id, namespace, key, value, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, note.ID, note.Namespace, note.Key, note.Value, formatTime(note.CreatedAt), formatTime(note.UpdatedAt))

	return err
}

// GetNote retrieves a note by namespace and key.
func (s *SQLiteStore) GetNote(ctx context.Context, namespace, key string) (*Note, error) {
	var n Note
	var createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, namespace, key, value, created_at, updated_at
		FROM notes WHERE namespace = ? AND key = ?
	`, namespaceOrDefault(namespace), key).Scan(&n.ID, &n.Namespace, &n.Key, &n.Value, &createdAt, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	n.CreatedAt = parseTime(createdAt)
	n.UpdatedAt = parseTime(updatedAt)
	return &n, nil
}

// ListNotes lists all notes in a namespace, ordered by key.
func (s *SQLiteStore) ListNotes(ctx context.Context, namespace string) ([]*Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, namespace, key, value, created_at, updated_at
		FROM notes WHERE namespace = ? ORDER BY key
	`, namespaceOrDefault(namespace))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var notes []*Note
	for rows.Next() {
		var n Note
		var createdAt, updatedAt string
		if err := rows.Scan(&n.ID, &n.Namespace, &n.Key, &n.Value, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		n.CreatedAt = parseTime(createdAt)
		n.UpdatedAt = parseTime(updatedAt)
		notes = append(notes, &n)
	}
	return notes, rows.Err()
}

// DeleteNote deletes a note by namespace and key.
func (s *SQLiteStore) DeleteNote(ctx context.Context, namespace, key string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE namespace = ? AND key = ?`,
		namespaceOrDefault(namespace), key)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
