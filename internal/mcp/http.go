// ABOUTME: HTTP binding that serves the dispatcher on POST /mcp.
// ABOUTME: Each response is a single SSE "message" event carrying the JSON-RPC envelope.

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// MaxRequestBodySize is the maximum allowed size for request bodies (1MB).
const MaxRequestBodySize = 1 << 20

// Default response headers. Each is only set when the handler chain has
// not already chosen a value.
var sseHeaders = [][2]string{
	{"Content-Type", "text/event-stream"},
	{"Cache-Control", "no-cache,no-store"},
	{"Content-Encoding", "identity"},
	{"Keep-Alive", "true"},
}

// HTTPHandler serves MCP over HTTP with SSE-framed responses.
type HTTPHandler struct {
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewHTTPHandler creates an HTTP binding for the dispatcher.
func NewHTTPHandler(d *Dispatcher, logger *slog.Logger) *HTTPHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPHandler{
		dispatcher: d,
		logger:     logger.With("component", "mcp-http"),
	}
}

// RegisterRoutes registers the MCP endpoint on the given ServeMux.
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/mcp", h)
}

// ServeHTTP dispatches on the request method.
func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handlePost(w, r)
	case http.MethodGet:
		// No server-initiated streams.
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	default:
		w.Header().Set("Allow", "POST, GET")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (h *HTTPHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Bad Request: failed to read body", http.StatusBadRequest)
		return
	}

	var req *Request
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Debug("invalid JSON-RPC body", "error", err)
		http.Error(w, "Bad Request: invalid JSON", http.StatusBadRequest)
		return
	}

	rc := &httpContext{ctx: r.Context(), req: r, w: w}
	resp, err := h.dispatcher.Process(rc, req)
	if err != nil {
		http.Error(w, "Malformed request", http.StatusBadRequest)
		return
	}

	if err := h.writeEvent(w, resp); err != nil {
		h.logger.Warn("failed to write MCP response", "method", req.Method, "error", err)
	}
}

func (h *HTTPHandler) writeEvent(w http.ResponseWriter, resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}

	header := w.Header()
	for _, kv := range sseHeaders {
		if header.Get(kv[0]) == "" {
			header.Set(kv[0], kv[1])
		}
	}
	w.WriteHeader(http.StatusOK)

	var b strings.Builder
	b.Grow(len(data) + 24)
	b.WriteString("event: message\ndata: ")
	b.Write(data)
	b.WriteString("\n\n")
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// httpContext adapts an HTTP exchange to RequestContext.
type httpContext struct {
	ctx context.Context
	req *http.Request
	w   http.ResponseWriter
}

func (c *httpContext) Context() context.Context { return c.ctx }

func (c *httpContext) Header(key string) string { return c.req.Header.Get(key) }

func (c *httpContext) SetHeader(key, value string) { c.w.Header().Set(key, value) }
