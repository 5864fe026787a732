// ABOUTME: Ledger provider and recorder connecting the dispatcher to the tool-call ledger.
// ABOUTME: The recorder writes every call; recent_calls reads them back.

package builtins

import (
	"context"
	"time"

	"github.com/2389/coven-mcp/internal/mcp"
	"github.com/2389/coven-mcp/internal/store"
	"github.com/2389/coven-mcp/internal/tools"
)

// DefaultRecentCalls is the default limit for recent_calls.
const DefaultRecentCalls = 20

// LedgerProvider exposes the tool-call ledger as a tool.
type LedgerProvider struct {
	store store.LedgerStore
}

// NewLedgerProvider creates the ledger provider.
func NewLedgerProvider(s store.LedgerStore) *LedgerProvider {
	return &LedgerProvider{store: s}
}

// Name implements tools.Provider.
func (l *LedgerProvider) Name() string { return "builtin:ledger" }

// Tools implements tools.Provider.
func (l *LedgerProvider) Tools() []tools.Tool {
	return []tools.Tool{
		{
			Method: "RecentCalls",
			Doc:    "Lists recent tool calls, newest first, optionally filtered by tool name.",
			Params: []tools.Param{
				tools.Opt("limit", DefaultRecentCalls),
				tools.Opt("tool", ""),
			},
			Handler: l.recentCalls,
		},
	}
}

// CallSummary is the JSON shape of one ledger entry returned by recent_calls.
type CallSummary struct {
	ID         string `json:"id"`
	Tool       string `json:"tool"`
	SessionID  string `json:"session_id,omitempty"`
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	StartedAt  string `json:"started_at"`
}

func (l *LedgerProvider) recentCalls(ctx context.Context, args tools.Args) (any, error) {
	limit := int(args.Int("limit"))
	if limit <= 0 {
		return nil, mcp.NewError(mcp.CodeBadRequest, "limit must be positive, got %d", limit)
	}

	calls, err := l.store.ListToolCalls(ctx, store.ToolCallFilter{
		Tool:  args.String("tool"),
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}

	out := make([]CallSummary, len(calls))
	for i, c := range calls {
		out[i] = CallSummary{
			ID:         c.ID,
			Tool:       c.Tool,
			SessionID:  c.SessionID,
			OK:         !c.Failed(),
			Error:      c.ErrorMessage,
			DurationMS: c.Duration.Milliseconds(),
			StartedAt:  c.StartedAt.UTC().Format(time.RFC3339),
		}
	}
	return out, nil
}

// LedgerRecorder adapts a LedgerStore to mcp.CallRecorder.
type LedgerRecorder struct {
	store store.LedgerStore
}

// NewLedgerRecorder creates a recorder that writes to s.
func NewLedgerRecorder(s store.LedgerStore) *LedgerRecorder {
	return &LedgerRecorder{store: s}
}

// RecordCall implements mcp.CallRecorder.
func (r *LedgerRecorder) RecordCall(ctx context.Context, rec mcp.CallRecord) error {
	call := &store.ToolCall{
		Tool:      rec.Tool,
		SessionID: rec.SessionID,
		RequestID: rec.RequestID,
		Arguments: string(rec.Arguments),
		Result:    rec.Result,
		StartedAt: rec.StartedAt,
		Duration:  rec.Duration,
	}
	if rec.Err != nil {
		call.ErrorCode = int(rec.Err.Code)
		call.ErrorMessage = rec.Err.Message
	}
	// Recording must not be cut short by the caller going away.
	return r.store.RecordToolCall(context.WithoutCancel(ctx), call)
}
