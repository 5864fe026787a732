// ABOUTME: JSON-RPC 2.0 envelope types and MCP result shapes.
// ABOUTME: Field names match the wire protocol exactly.

package mcp

import (
	"bytes"
	"encoding/json"
)

// JSONRPCVersion is the protocol version carried on every envelope.
const JSONRPCVersion = "2.0"

// ProtocolVersion is the MCP revision advertised by initialize.
const ProtocolVersion = "2025-06-18"

// SessionHeader carries the caller's session correlation token.
const SessionHeader = "Mcp-Session-Id"

// MCP method names.
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"
)

// Request is a decoded JSON-RPC request. A nil ID marks a notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      *int64          `json:"id,omitempty"`
}

// IsNotification reports whether the request carries no id.
func (r *Request) IsNotification() bool {
	return r.ID == nil
}

// hasParams reports whether params were supplied and are not JSON null.
func (r *Request) hasParams() bool {
	trimmed := bytes.TrimSpace(r.Params)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// Response is a JSON-RPC response. Exactly one of Result and Error is set;
// both keys are always written.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result"`
	Error   *Error `json:"error"`
	ID      *int64 `json:"id"`
}

// NewResult builds a successful response.
func NewResult(id *int64, result any) *Response {
	return &Response{JSONRPC: JSONRPCVersion, Result: result, ID: id}
}

// NewErrorResponse builds an error response.
func NewErrorResponse(id *int64, err *Error) *Response {
	return &Response{JSONRPC: JSONRPCVersion, Error: err, ID: id}
}

// ServerInfo identifies the server in initialize results.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ToolsCapability declares tool support.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged"`
}

// ServerCapabilities lists the capabilities the server offers.
type ServerCapabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

// InitializeResult is the result for initialize.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
}

// ToolDefinition describes one tool in a tools/list result.
type ToolDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"inputSchema"`
}

// ListToolsResult is the result for tools/list.
type ListToolsResult struct {
	Tools []ToolDefinition `json:"tools"`
}

// CallToolParams are the params for tools/call.
type CallToolParams struct {
	Name      string                     `json:"name"`
	Arguments map[string]json.RawMessage `json:"arguments,omitempty"`
	Meta      *CallMeta                  `json:"_meta,omitempty"`
}

// CallMeta carries optional request metadata.
type CallMeta struct {
	ProgressToken json.RawMessage `json:"progressToken,omitempty"`
}

// ContentItem is one piece of tool output.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallToolResult is the result for tools/call.
type CallToolResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError"`
}

// TextContent wraps text as a single content item.
func TextContent(text string) []ContentItem {
	return []ContentItem{{Type: "text", Text: text}}
}
