// ABOUTME: SQLite persistence for the tool-call ledger
// ABOUTME: Records every tools/call and lists them newest first

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecordToolCall appends a call to the ledger.
func (s *SQLiteStore) RecordToolCall(ctx context.Context, call *ToolCall) error {
	if call.Tool == "" {
		return fmt.Errorf("recording tool call: tool name is required")
	}
	if call.ID == "" {
		call.ID = uuid.New().String()
	}
	if call.StartedAt.IsZero() {
		call.StartedAt = time.Now()
	}

	var requestID any
	if call.RequestID != nil {
		requestID = *call.RequestID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tool_calls (id, tool, session_id, request_id, arguments, result, error_code, error_message, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, call.ID, call.Tool, nullString(call.SessionID), requestID, nullString(call.Arguments),
		nullString(call.Result), call.ErrorCode, nullString(call.ErrorMessage),
		formatTime(call.StartedAt), call.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("recording tool call: %w", err)
	}

	s.logger.Debug("recorded tool call", "id", call.ID, "tool", call.Tool, "error_code", call.ErrorCode)
	return nil
}

// ListToolCalls returns ledger entries matching the filter, newest first.
func (s *SQLiteStore) ListToolCalls(ctx context.Context, filter ToolCallFilter) ([]*ToolCall, error) {
	var args []any
	query := `
		SELECT id, tool, session_id, request_id, arguments, result, error_code, error_message, started_at, duration_ms
		FROM tool_calls WHERE 1=1`

	if filter.Tool != "" {
		query += ` AND tool = ?`
		args = append(args, filter.Tool)
	}
	if filter.SessionID != "" {
		query += ` AND session_id = ?`
		args = append(args, filter.SessionID)
	}
	if filter.Since != nil {
		query += ` AND started_at >= ?`
		args = append(args, formatTime(*filter.Since))
	}

	query += ` ORDER BY started_at DESC, rowid DESC LIMIT ?`
	args = append(args, normalizeLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tool calls: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var calls []*ToolCall
	for rows.Next() {
		var c ToolCall
		var sessionID, arguments, result, errorMessage sql.NullString
		var requestID sql.NullInt64
		var startedAt string
		var durationMS int64
		if err := rows.Scan(&c.ID, &c.Tool, &sessionID, &requestID, &arguments, &result,
			&c.ErrorCode, &errorMessage, &startedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("scanning tool call: %w", err)
		}
		c.SessionID = sessionID.String
		c.Arguments = arguments.String
		c.Result = result.String
		c.ErrorMessage = errorMessage.String
		if requestID.Valid {
			id := requestID.Int64
			c.RequestID = &id
		}
		c.StartedAt = parseTime(startedAt)
		c.Duration = time.Duration(durationMS) * time.Millisecond
		calls = append(calls, &c)
	}
	return calls, rows.Err()
}
