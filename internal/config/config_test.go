// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, defaults, validation and Write

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeConfig(t, "mcp.yaml", `
server:
  http_addr: "0.0.0.0:9090"
  grpc_addr: "0.0.0.0:50052"
  shutdown_timeout: "10s"

identity:
  name: "test-mcp"
  version: "2.0.0"

database:
  path: "./test.db"

logging:
  level: "debug"
  format: "json"

tools:
  sample: true
  notes: false
  ledger: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:9090" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:9090")
	}
	if cfg.Server.GRPCAddr != "0.0.0.0:50052" {
		t.Errorf("Server.GRPCAddr = %q, want %q", cfg.Server.GRPCAddr, "0.0.0.0:50052")
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want %v", cfg.Server.ShutdownTimeout, 10*time.Second)
	}
	assert.Equal(t, IdentityConfig{Name: "test-mcp", Version: "2.0.0"}, cfg.Identity)
	assert.Equal(t, "./test.db", cfg.Database.Path)
	assert.Equal(t, LoggingConfig{Level: "debug", Format: "json"}, cfg.Logging)
	assert.Equal(t, ToolsConfig{Sample: true, Notes: false, Ledger: true}, cfg.Tools)
}

func TestLoad_ValidTOML(t *testing.T) {
	path := writeConfig(t, "mcp.toml", `
[server]
http_addr = "127.0.0.1:7070"
grpc_addr = "127.0.0.1:7071"
shutdown_timeout = "1m"

[identity]
name = "toml-mcp"

[tailscale]
enabled = true
hostname = "mcp-box"
funnel = true

[tools]
ledger = false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7070", cfg.Server.HTTPAddr)
	assert.Equal(t, time.Minute, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "toml-mcp", cfg.Identity.Name)
	assert.Equal(t, "1.0.0", cfg.Identity.Version, "unset keys keep defaults")
	assert.True(t, cfg.Tailscale.Enabled)
	assert.Equal(t, "mcp-box", cfg.Tailscale.Hostname)
	assert.True(t, cfg.Tailscale.Funnel)
	assert.True(t, cfg.Tools.Sample)
	assert.True(t, cfg.Tools.Notes)
	assert.False(t, cfg.Tools.Ledger)
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	path := writeConfig(t, "mcp.yaml", "")

	cfg, err := Load(path)
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Server, cfg.Server)
	assert.Equal(t, def.Identity, cfg.Identity)
	assert.Equal(t, def.Tools, cfg.Tools)
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_MCP_HOST", "10.0.0.5")
	t.Setenv("TEST_TS_KEY", "tskey-abc")

	path := writeConfig(t, "mcp.yaml", `
server:
  http_addr: "${TEST_MCP_HOST}:8080"
  grpc_addr: "${TEST_MCP_HOST}:50051"
tailscale:
  auth_key: "${TEST_TS_KEY}"
identity:
  version: "${TEST_MCP_UNSET_VAR}1.2"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5:8080", cfg.Server.HTTPAddr)
	assert.Equal(t, "10.0.0.5:50051", cfg.Server.GRPCAddr)
	assert.Equal(t, "tskey-abc", cfg.Tailscale.AuthKey)
	assert.Equal(t, "1.2", cfg.Identity.Version)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{
			name:    "missing http addr",
			file:    "mcp.yaml",
			content: "server:\n  http_addr: \"\"\n",
			wantErr: "server.http_addr is required",
		},
		{
			name:    "missing grpc addr",
			file:    "mcp.yaml",
			content: "server:\n  grpc_addr: \"\"\n",
			wantErr: "server.grpc_addr is required",
		},
		{
			name:    "tailscale without hostname",
			file:    "mcp.yaml",
			content: "tailscale:\n  enabled: true\n  hostname: \"\"\n",
			wantErr: "tailscale.hostname is required",
		},
		{
			name:    "ledger without database",
			file:    "mcp.yaml",
			content: "database:\n  path: \"\"\n",
			wantErr: "database.path is required",
		},
		{
			name:    "bad duration",
			file:    "mcp.yaml",
			content: "server:\n  shutdown_timeout: \"soon\"\n",
			wantErr: "shutdown_timeout",
		},
		{
			name:    "bad log level",
			file:    "mcp.yaml",
			content: "logging:\n  level: \"loud\"\n",
			wantErr: "logging.level",
		},
		{
			name:    "invalid yaml",
			file:    "mcp.yaml",
			content: "server: [unclosed\n",
			wantErr: "parsing config file",
		},
		{
			name:    "invalid toml",
			file:    "mcp.toml",
			content: "[server\n",
			wantErr: "parsing config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.content))
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %q, want containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoad_TailscaleAllowsMissingAddrs(t *testing.T) {
	path := writeConfig(t, "mcp.yaml", `
server:
  http_addr: ""
  grpc_addr: ""
tailscale:
  enabled: true
  hostname: "mcp"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Tailscale.Enabled)
}

func TestLoad_DatabaseOptionalWithoutStatefulTools(t *testing.T) {
	path := writeConfig(t, "mcp.yaml", `
database:
  path: ""
tools:
  notes: false
  ledger: false
`)
	_, err := Load(path)
	require.NoError(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestWrite_RoundTrip(t *testing.T) {
	for _, name := range []string{"mcp.yaml", "mcp.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)

			want := Default()
			want.Server.ShutdownTimeout = 42 * time.Second
			want.Identity.Name = "written"
			want.Tools.Notes = false

			require.NoError(t, Write(path, want))

			got, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, 42*time.Second, got.Server.ShutdownTimeout)
			assert.Equal(t, "written", got.Identity.Name)
			assert.False(t, got.Tools.Notes)
			assert.Equal(t, want.Database.Path, got.Database.Path)

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
		})
	}
}

func TestWrite_RefusesOverwrite(t *testing.T) {
	path := writeConfig(t, "mcp.yaml", "identity:\n  name: keep\n")

	err := Write(path, Default())
	require.Error(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "keep", cfg.Identity.Name)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("EXPAND_A", "alpha")

	assert.Equal(t, "alpha-", expandEnvVars("${EXPAND_A}-${EXPAND_UNSET_B}"))
	assert.Equal(t, "$EXPAND_A", expandEnvVars("$EXPAND_A"))
}
