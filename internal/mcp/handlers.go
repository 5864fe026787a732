// ABOUTME: Handlers for initialize, tools/list and tools/call.
// ABOUTME: tools/call binds arguments, invokes the tool and renders its result as text.

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/2389/coven-mcp/internal/tools"
)

// handleInitialize answers both initialize and notifications/initialized.
// A missing session id is synthesized for logging only; it is never
// written back, since echoing is driven by what the caller sent.
func (d *Dispatcher) handleInitialize(rc RequestContext, req *Request) (any, error) {
	sessionID := rc.Header(SessionHeader)
	if sessionID == "" {
		sessionID = NewSessionID()
	}

	d.logger.Debug("MCP initialize",
		"session_id", sessionID,
		"method", req.Method,
	)

	return &InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{ListChanged: true},
		},
		ServerInfo: d.info,
	}, nil
}

func (d *Dispatcher) handleToolsList(rc RequestContext, _ *Request) (any, error) {
	echoSession(rc)

	descs := d.registry.List()
	result := &ListToolsResult{Tools: make([]ToolDefinition, len(descs))}
	for i, desc := range descs {
		result.Tools[i] = ToolDefinition{
			Name:        desc.Name,
			Description: desc.Description,
			InputSchema: desc.Schema,
		}
	}

	d.logger.Debug("tools/list", "count", len(descs))
	return result, nil
}

func (d *Dispatcher) handleToolsCall(rc RequestContext, req *Request) (any, error) {
	if !req.hasParams() {
		return nil, NewError(CodeBadRequest, "Tool call parameters cannot be null.")
	}

	sessionID := echoSession(rc)

	var params CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return nil, NewError(CodeInternalServerError, "Invalid tool call parameters: %v", err)
	}

	desc, ok := d.registry.Lookup(params.Name)
	if !ok {
		return nil, NewError(CodeNotFound, "Tool '%s' not found.", params.Name)
	}

	started := time.Now()
	text, err := d.invoke(rc.Context(), desc, params)
	d.record(rc.Context(), req, sessionID, params, started, text, err)
	if err != nil {
		d.logger.Warn("tool execution failed",
			"tool_name", desc.Name,
			"session_id", sessionID,
			"error", err,
		)
		return nil, err
	}

	d.logger.Debug("tools/call complete",
		"tool_name", desc.Name,
		"session_id", sessionID,
		"duration", time.Since(started),
	)

	return &CallToolResult{Content: TextContent(text)}, nil
}

// invoke binds and runs a tool, converting panics into errors.
func (d *Dispatcher) invoke(ctx context.Context, desc *tools.Descriptor, params CallToolParams) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("tool '%s' panicked: %v", desc.Name, p)
		}
	}()

	progress := &progressLogger{logger: d.logger, tool: desc.Name}
	if params.Meta != nil {
		progress.token = string(params.Meta.ProgressToken)
	}

	args, err := desc.Bind(params.Arguments, progress)
	if err != nil {
		return "", err
	}

	value, err := desc.Invoke(ctx, args)
	if err != nil {
		return "", err
	}
	return Text(value), nil
}

func (d *Dispatcher) record(ctx context.Context, req *Request, sessionID string, params CallToolParams, started time.Time, text string, callErr error) {
	if d.recorder == nil {
		return
	}

	var argsJSON json.RawMessage
	if len(params.Arguments) > 0 {
		argsJSON, _ = json.Marshal(params.Arguments)
	}

	rec := CallRecord{
		Tool:      params.Name,
		SessionID: sessionID,
		RequestID: req.ID,
		Arguments: argsJSON,
		Result:    text,
		Err:       ToError(callErr),
		StartedAt: started,
		Duration:  time.Since(started),
	}
	if err := d.recorder.RecordCall(ctx, rec); err != nil {
		d.logger.Warn("failed to record tool call", "tool_name", params.Name, "error", err)
	}
}

// Text renders a tool return value as the text of a content item.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case error:
		return t.Error()
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int8, int16, int32, int64:
		return fmt.Sprint(t)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(t)
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case json.RawMessage:
		return string(t)
	case []byte:
		return string(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}

// progressLogger reports tool progress to the server log.
type progressLogger struct {
	logger *slog.Logger
	tool   string
	token  string
}

func (p *progressLogger) Report(progress, total float64, message string) {
	p.logger.Debug("tool progress",
		"tool_name", p.tool,
		"progress_token", p.token,
		"progress", progress,
		"total", total,
		"message", message,
	)
}
