// ABOUTME: Tests for coven-mcp CLI helpers
// ABOUTME: Covers config path resolution, logger setup, argument parsing and init

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-mcp/internal/config"
	"github.com/2389/coven-mcp/internal/store"
	"github.com/2389/coven-mcp/internal/tools"
)

func init() {
	color.NoColor = true
}

func TestGetConfigPath(t *testing.T) {
	t.Run("env override", func(t *testing.T) {
		t.Setenv("COVEN_MCP_CONFIG", "/etc/coven/mcp.toml")
		assert.Equal(t, "/etc/coven/mcp.toml", getConfigPath())
	})

	t.Run("xdg config home", func(t *testing.T) {
		t.Setenv("COVEN_MCP_CONFIG", "")
		t.Setenv("XDG_CONFIG_HOME", "/xdg")
		assert.Equal(t, filepath.Join("/xdg", "coven", "mcp.yaml"), getConfigPath())
	})

	t.Run("home fallback", func(t *testing.T) {
		t.Setenv("COVEN_MCP_CONFIG", "")
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("HOME", "/home/tester")
		assert.Equal(t, filepath.Join("/home/tester", ".config", "coven", "mcp.yaml"), getConfigPath())
	})
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default().Server, cfg.Server)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0600))

	_, err := loadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), "level %q", in)
	}
}

func TestSetupLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	logger.Debug("hidden")
	logger.Info("visible", "tool", "add")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "visible", entry["msg"])
	assert.Equal(t, "add", entry["tool"])
}

func TestColorHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "debug", Format: "text"}, &buf)

	logger.With("component", "mcp").WithGroup("call").Warn("slow tool", "name", "add")

	line := buf.String()
	assert.Contains(t, line, "WRN slow tool")
	assert.Contains(t, line, "component=mcp")
	assert.Contains(t, line, "call.name=add")
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestColorHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "error"}, &buf)

	logger.Warn("dropped")
	assert.Empty(t, buf.String())

	logger.Error("kept")
	assert.Contains(t, buf.String(), "ERR kept")
}

func TestParseCallArgs(t *testing.T) {
	opts, err := parseCallArgs([]string{"add", `{"a":1,"b":2}`, "--addr", "10.0.0.1:50051", "--session=abc"})
	require.NoError(t, err)
	assert.Equal(t, "add", opts.tool)
	assert.Equal(t, "10.0.0.1:50051", opts.addr)
	assert.Equal(t, "abc", opts.session)
	assert.JSONEq(t, "1", string(opts.arguments["a"]))

	opts, err = parseCallArgs([]string{"--session", "s1", "get_time"})
	require.NoError(t, err)
	assert.Equal(t, "get_time", opts.tool)
	assert.Nil(t, opts.arguments)
}

func TestParseCallArgs_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no tool", nil, "usage"},
		{"bad json", []string{"add", "{nope"}, "JSON object"},
		{"array args", []string{"add", "[1,2]"}, "JSON object"},
		{"extra positional", []string{"add", "{}", "more"}, "unexpected argument"},
		{"unknown flag", []string{"add", "--verbose"}, "unknown flag"},
		{"missing value", []string{"add", "--addr"}, "requires a value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCallArgs(tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuildCallRequest(t *testing.T) {
	req, err := buildCallRequest("add", map[string]json.RawMessage{"a": json.RawMessage("5")})
	require.NoError(t, err)
	assert.Equal(t, "2.0", req.JSONRPC)
	assert.Equal(t, "tools/call", req.Method)
	require.NotNil(t, req.ID)
	assert.JSONEq(t, `{"name":"add","arguments":{"a":5}}`, string(req.Params))
}

func TestResultText(t *testing.T) {
	result := map[string]any{
		"content": []any{
			map[string]any{"type": "text", "text": "first"},
			map[string]any{"type": "text", "text": "second"},
		},
		"isError": false,
	}
	assert.Equal(t, "first\nsecond", resultText(result))
	assert.Equal(t, "plain", resultText("plain"))
}

func TestParseCallsArgs(t *testing.T) {
	filter, err := parseCallsArgs([]string{"--limit", "5", "--tool=add"})
	require.NoError(t, err)
	assert.Equal(t, 5, filter.Limit)
	assert.Equal(t, "add", filter.Tool)

	_, err = parseCallsArgs([]string{"--limit", "0"})
	require.Error(t, err)

	_, err = parseCallsArgs([]string{"--bogus"})
	require.Error(t, err)

	_, err = parseCallsArgs([]string{"--tool"})
	require.Error(t, err)
}

func TestFormatParams(t *testing.T) {
	props := tools.Properties{{Name: "key", Type: "string"}, {Name: "namespace", Type: "string"}}
	assert.Equal(t, "key:string, namespace?:string", formatParams(props, []string{"key"}))
	assert.Equal(t, "-", formatParams(nil, nil))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

func TestRunInit_WritesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "mcp.yaml")
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	answers := strings.Join([]string{
		"my-mcp",         // server name
		"127.0.0.1:7001", // gRPC
		"127.0.0.1:7002", // HTTP
		"yes",            // sample
		"no",             // notes
		"yes",            // ledger
		"",               // database path (default)
		"no",             // tailscale
		"debug",          // level
		"json",           // format
	}, "\n") + "\n"

	var out bytes.Buffer
	require.NoError(t, runInit(strings.NewReader(answers), &out, []string{path}))
	assert.Contains(t, out.String(), "Config written to "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "my-mcp", cfg.Identity.Name)
	assert.Equal(t, "127.0.0.1:7001", cfg.Server.GRPCAddr)
	assert.Equal(t, "127.0.0.1:7002", cfg.Server.HTTPAddr)
	assert.Equal(t, config.ToolsConfig{Sample: true, Notes: false, Ledger: true}, cfg.Tools)
	assert.Equal(t, config.LoggingConfig{Level: "debug", Format: "json"}, cfg.Logging)
	assert.False(t, cfg.Tailscale.Enabled)
}

func TestRunInit_EOFUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcp.toml")

	var out bytes.Buffer
	require.NoError(t, runInit(strings.NewReader(""), &out, []string{path}))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Identity, cfg.Identity)
	assert.Equal(t, config.Default().Tools, cfg.Tools)
}

func TestRunInit_RefusesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("identity:\n  name: keep\n"), 0600))

	err := runInit(strings.NewReader(""), &bytes.Buffer{}, []string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestPrintCalls(t *testing.T) {
	var out bytes.Buffer
	printCalls(&out, nil)
	assert.Contains(t, out.String(), "(no calls recorded)")

	out.Reset()
	printCalls(&out, []*store.ToolCall{
		{Tool: "add", SessionID: "sess-1", StartedAt: time.Now(), Duration: 2 * time.Millisecond},
		{Tool: "throw_error", ErrorCode: 500, ErrorMessage: "Intentional error", StartedAt: time.Now()},
	})
	text := out.String()
	assert.Contains(t, text, "add")
	assert.Contains(t, text, "ok")
	assert.Contains(t, text, "500 Intentional error")
	assert.Contains(t, text, "sess-1")
}

func TestRunCalls_ReadsLedger(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	s, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	for _, name := range []string{"add", "concat", "add"} {
		require.NoError(t, s.RecordToolCall(context.Background(), &store.ToolCall{Tool: name, StartedAt: time.Now()}))
	}
	require.NoError(t, s.Close())

	t.Setenv("COVEN_MCP_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("COVEN_MCP_DB_PATH", dbPath)

	var out bytes.Buffer
	require.NoError(t, runCalls(context.Background(), &out, []string{"--tool", "add"}))
	assert.Equal(t, 2, strings.Count(out.String(), "  add "))
	assert.NotContains(t, out.String(), "concat")
}

func TestRunTools_ListsDefaultTools(t *testing.T) {
	t.Setenv("COVEN_MCP_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	var out bytes.Buffer
	require.NoError(t, runTools(&out))
	text := out.String()
	for _, name := range []string{"get_time", "add", "concat", "throw_error", "set_note", "recent_calls"} {
		assert.Contains(t, text, name)
	}
	assert.Contains(t, text, "a:integer, b:integer")
}
