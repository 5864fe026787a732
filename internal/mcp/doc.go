// Package mcp implements the Model Context Protocol dispatcher and its transports.
//
// # Overview
//
// MCP (Model Context Protocol) is a JSON-RPC 2.0 protocol for exposing tools to
// AI clients. This package routes decoded requests to the tools held in a
// tools.Registry and carries them over HTTP and gRPC.
//
// # Methods
//
//   - initialize, notifications/initialized - protocol handshake
//   - tools/list - tool names, descriptions and input schemas
//   - tools/call - invoke one tool by name
//
// Any other method yields a NotFound (404) error envelope.
//
// # Errors
//
// Failures are reported in the response's error field with HTTP-style codes:
// BadRequest (400), NotFound (404) and InternalServerError (500). Tools may
// return an *Error to pick the code themselves. Process only returns a Go
// error for a nil request (ErrMalformedRequest).
//
// # Sessions
//
// The server keeps no session state. When a tools/list or tools/call request
// carries Mcp-Session-Id, the same value is written back on the response.
//
// # Transports
//
// HTTPHandler serves POST /mcp and frames each response as one SSE event:
//
//	event: message
//	data: {"jsonrpc":"2.0","result":{...},"error":null,"id":1}
//
// RegisterGRPC exposes the dispatcher as coven.mcp.v1.Dispatcher/Process, with
// the JSON envelope carried in a google.protobuf.BytesValue. GRPCClient is the
// matching client.
//
// # Usage
//
//	registry := tools.NewRegistry(logger)
//	registry.Register(builtins.NewSampleProvider(nil))
//	d, err := mcp.NewDispatcher(mcp.Config{Registry: registry, Logger: logger})
//	mux := http.NewServeMux()
//	mcp.NewHTTPHandler(d, logger).RegisterRoutes(mux)
package mcp
