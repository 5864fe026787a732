// ABOUTME: Transport-neutral request context consumed by the dispatcher.
// ABOUTME: Exposes header-style get/set and the request's context.Context.

package mcp

import (
	"context"
	"net/textproto"
	"sync"
)

// RequestContext is what a transport hands the dispatcher for one request.
// Header reads request metadata; SetHeader writes response metadata.
type RequestContext interface {
	Context() context.Context
	Header(key string) string
	SetHeader(key, value string)
}

// MapContext is an in-memory RequestContext. Keys are case-insensitive.
type MapContext struct {
	ctx context.Context

	mu       sync.Mutex
	request  map[string]string
	response map[string]string
}

// NewMapContext creates a MapContext with the given request headers.
func NewMapContext(ctx context.Context, headers map[string]string) *MapContext {
	if ctx == nil {
		ctx = context.Background()
	}
	req := make(map[string]string, len(headers))
	for k, v := range headers {
		req[textproto.CanonicalMIMEHeaderKey(k)] = v
	}
	return &MapContext{
		ctx:      ctx,
		request:  req,
		response: make(map[string]string),
	}
}

// Context returns the underlying context.
func (m *MapContext) Context() context.Context {
	return m.ctx
}

// Header returns a request header value, or "".
func (m *MapContext) Header(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.request[textproto.CanonicalMIMEHeaderKey(key)]
}

// SetHeader records a response header.
func (m *MapContext) SetHeader(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response[textproto.CanonicalMIMEHeaderKey(key)] = value
}

// ResponseHeaders returns a copy of the headers written so far.
func (m *MapContext) ResponseHeaders() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.response))
	for k, v := range m.response {
		out[k] = v
	}
	return out
}

// ResponseHeader returns one response header and whether it was written.
func (m *MapContext) ResponseHeader(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.response[textproto.CanonicalMIMEHeaderKey(key)]
	return v, ok
}
