// Package gateway orchestrates the coven-mcp server components.
//
// # Overview
//
// The gateway owns every long-lived component: the SQLite store, the tool
// registry, the MCP dispatcher, and the gRPC and HTTP servers that expose
// the dispatcher.
//
// # Lifecycle
//
//	gw, err := gateway.New(cfg, logger)
//	if err != nil { ... }
//	err = gw.Run(ctx) // blocks until ctx is canceled or a server fails
//
// Run opens listeners, serves both transports, and on return performs a
// graceful shutdown bounded by server.shutdown_timeout.
//
// # Endpoints
//
//   - POST /mcp - JSON-RPC request, answered as one SSE "message" event
//   - GET /health - liveness check
//   - GET /health/ready - 200 once at least one tool is registered
//   - gRPC coven.mcp.v1.Dispatcher/Process - the same envelope over gRPC
//
// # Tools
//
// Builtin providers are enabled per config (tools.sample, tools.notes,
// tools.ledger). The store is opened only when notes or the ledger is on.
// With the ledger enabled every tools/call is recorded.
//
// # Tailscale
//
// When tailscale.enabled is set, listeners come from an embedded tsnet node
// instead of TCP: gRPC on :50051 and HTTP on :80, or :443 with tailscale.https
// (node certificates) or tailscale.funnel (public).
package gateway
