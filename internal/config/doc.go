// Package config handles configuration loading for coven-mcp.
//
// # Overview
//
// Configuration is loaded from a YAML or TOML file with environment variable
// expansion. Files ending in .toml are read as TOML; everything else is YAML.
// Anything the file leaves out keeps its Default() value.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from COVEN_MCP_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/coven/mcp.yaml
//  3. ~/.config/coven/mcp.yaml
//
// `coven-mcp init` writes Default() to the resolved path.
//
// # Environment Variable Expansion
//
//	tailscale:
//	  auth_key: "${TS_AUTHKEY}"
//
// Unset variables expand to the empty string.
//
// # Configuration Sections
//
//	server:
//	  http_addr: "127.0.0.1:8080"   # MCP over HTTP/SSE, health checks
//	  grpc_addr: "127.0.0.1:50051"  # MCP over gRPC
//	  shutdown_timeout: "5s"
//
//	identity:
//	  name: "coven-mcp"
//	  version: "1.0.0"
//
//	tailscale:
//	  enabled: false
//	  hostname: "coven-mcp"
//	  auth_key: "${TS_AUTHKEY}"
//	  https: false
//	  funnel: false
//
//	database:
//	  path: "~/.local/share/coven/mcp.db"
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
//	tools:
//	  sample: true
//	  notes: true
//	  ledger: true
//
// The same keys work in TOML:
//
//	[server]
//	http_addr = "127.0.0.1:8080"
//
// # Validation
//
//   - server addresses are required unless tailscale is enabled
//   - tailscale.hostname is required when tailscale is enabled
//   - database.path is required when the notes or ledger tools are enabled
//   - logging.level must be a known level
package config
