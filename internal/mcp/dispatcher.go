// ABOUTME: Protocol dispatcher routing JSON-RPC requests to MCP method handlers.
// ABOUTME: Every failure except a missing request comes back as an error envelope.

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/coven-mcp/internal/tools"
)

// DefaultServerInfo is advertised when Config.Info is empty.
var DefaultServerInfo = ServerInfo{Name: "coven-mcp", Version: "1.0.0"}

// CallRecord describes one completed tools/call for a CallRecorder.
type CallRecord struct {
	Tool      string
	SessionID string
	RequestID *int64
	Arguments json.RawMessage
	Result    string
	Err       *Error
	StartedAt time.Time
	Duration  time.Duration
}

// CallRecorder receives a record of every tool invocation.
type CallRecorder interface {
	RecordCall(ctx context.Context, rec CallRecord) error
}

// Config holds configuration for the dispatcher.
type Config struct {
	Registry *tools.Registry
	Logger   *slog.Logger
	Info     ServerInfo
	Recorder CallRecorder // optional
}

// Dispatcher routes MCP requests. It keeps no per-request state and is
// safe for concurrent use once the registry is populated.
type Dispatcher struct {
	registry *tools.Registry
	logger   *slog.Logger
	info     ServerInfo
	recorder CallRecorder
}

// NewDispatcher creates a dispatcher with the given configuration.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	info := cfg.Info
	if info.Name == "" {
		info.Name = DefaultServerInfo.Name
	}
	if info.Version == "" {
		info.Version = DefaultServerInfo.Version
	}

	return &Dispatcher{
		registry: cfg.Registry,
		logger:   logger,
		info:     info,
		recorder: cfg.Recorder,
	}, nil
}

// Info returns the server identity advertised by initialize.
func (d *Dispatcher) Info() ServerInfo {
	return d.info
}

// Registry returns the registry the dispatcher serves.
func (d *Dispatcher) Registry() *tools.Registry {
	return d.registry
}

// Process handles one request. The only error it returns is
// ErrMalformedRequest for a nil request; every other failure is reported
// in the response's error field, keyed to the request's id.
func (d *Dispatcher) Process(rc RequestContext, req *Request) (*Response, error) {
	if req == nil {
		return nil, ErrMalformedRequest
	}
	if rc == nil {
		rc = NewMapContext(context.Background(), nil)
	}

	d.logger.Debug("MCP request",
		"method", req.Method,
		"is_notification", req.IsNotification(),
	)

	result, err := d.dispatch(rc, req)
	if err != nil {
		perr := ToError(err)
		if perr == nil {
			perr = NewError(CodeInternalServerError, "%v", err)
		}
		d.logger.Warn("MCP request failed",
			"method", req.Method,
			"code", int(perr.Code),
			"error", perr.Message,
		)
		return NewErrorResponse(req.ID, perr), nil
	}

	if resp, ok := result.(*Response); ok {
		return resp, nil
	}
	return NewResult(req.ID, result), nil
}

func (d *Dispatcher) dispatch(rc RequestContext, req *Request) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("panic while handling MCP request", "method", req.Method, "panic", p)
			result, err = nil, fmt.Errorf("internal error handling %s: %v", req.Method, p)
		}
	}()

	switch req.Method {
	case MethodInitialize, MethodInitialized:
		return d.handleInitialize(rc, req)
	case MethodToolsList:
		return d.handleToolsList(rc, req)
	case MethodToolsCall:
		return d.handleToolsCall(rc, req)
	default:
		return nil, NewError(CodeNotFound, "Method '%s' not found in MCP server capabilities.", req.Method)
	}
}
