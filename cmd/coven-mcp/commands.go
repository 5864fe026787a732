// ABOUTME: Client subcommands for coven-mcp: tools, call and calls
// ABOUTME: call speaks the gRPC binding; tools and calls read local config and the ledger

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/2389/coven-mcp/internal/gateway"
	"github.com/2389/coven-mcp/internal/mcp"
	"github.com/2389/coven-mcp/internal/store"
	"github.com/2389/coven-mcp/internal/tools"
)

// runTools lists the tools the current config would expose, without starting a server.
func runTools(out io.Writer) error {
	cfg, err := loadConfig(getConfigPath())
	if err != nil {
		return err
	}

	// Listing only reads tool metadata, so stateful providers get an in-memory store.
	var s store.Store
	if cfg.Tools.NeedsDatabase() {
		s = store.NewMockStore()
	}
	registry, err := gateway.NewRegistry(cfg.Tools, s, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	fmt.Fprintln(out)
	cyan.Fprintln(out, "  Tools")
	cyan.Fprintln(out, "  -----")

	descs := registry.List()
	if len(descs) == 0 {
		fmt.Fprintln(out, "  (no tools enabled)")
		fmt.Fprintln(out)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  NAME\tPARAMS\tPROVIDER\tDESCRIPTION")
	fmt.Fprintln(w, "  ----\t------\t--------\t-----------")
	for _, d := range descs {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", d.Name, formatParams(d.Schema.Properties, d.Schema.Required), d.Provider, truncate(d.Description, 60))
	}
	w.Flush()
	fmt.Fprintln(out)
	return nil
}

// formatParams renders schema properties as "a:int, b?:string".
func formatParams(props tools.Properties, required []string) string {
	if len(props) == 0 {
		return "-"
	}
	req := make(map[string]bool, len(required))
	for _, r := range required {
		req[r] = true
	}
	parts := make([]string, len(props))
	for i, p := range props {
		name := p.Name
		if !req[name] {
			name += "?"
		}
		parts[i] = name + ":" + p.Type
	}
	return strings.Join(parts, ", ")
}

// callOptions holds parsed arguments for the call subcommand.
type callOptions struct {
	tool      string
	arguments map[string]json.RawMessage
	addr      string
	session   string
}

// parseCallArgs parses "<tool> [json-args] [--addr host:port] [--session id]".
// Both "--flag value" and "--flag=value" are accepted.
func parseCallArgs(args []string) (*callOptions, error) {
	opts := &callOptions{}
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--addr" || arg == "--session":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires a value", arg)
			}
			if arg == "--addr" {
				opts.addr = args[i+1]
			} else {
				opts.session = args[i+1]
			}
			i++
		case strings.HasPrefix(arg, "--addr="):
			opts.addr = strings.TrimPrefix(arg, "--addr=")
		case strings.HasPrefix(arg, "--session="):
			opts.session = strings.TrimPrefix(arg, "--session=")
		case strings.HasPrefix(arg, "--"):
			return nil, fmt.Errorf("unknown flag: %s", arg)
		default:
			positional = append(positional, arg)
		}
	}

	switch len(positional) {
	case 0:
		return nil, fmt.Errorf("usage: coven-mcp call <tool> [json-args] [--addr host:port] [--session id]")
	case 1:
	case 2:
		if err := json.Unmarshal([]byte(positional[1]), &opts.arguments); err != nil {
			return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
		}
	default:
		return nil, fmt.Errorf("unexpected argument: %s", positional[2])
	}
	opts.tool = positional[0]
	return opts, nil
}

// buildCallRequest wraps a tool invocation in a JSON-RPC envelope.
func buildCallRequest(tool string, arguments map[string]json.RawMessage) (*mcp.Request, error) {
	params, err := json.Marshal(mcp.CallToolParams{Name: tool, Arguments: arguments})
	if err != nil {
		return nil, fmt.Errorf("encoding call params: %w", err)
	}
	id := time.Now().UnixNano()
	return &mcp.Request{
		JSONRPC: mcp.JSONRPCVersion,
		Method:  mcp.MethodToolsCall,
		Params:  params,
		ID:      &id,
	}, nil
}

// resultText extracts the text content from a decoded tools/call result.
func resultText(result any) string {
	m, ok := result.(map[string]any)
	if !ok {
		return fmt.Sprint(result)
	}
	items, _ := m["content"].([]any)
	var texts []string
	for _, item := range items {
		if c, ok := item.(map[string]any); ok {
			if text, ok := c["text"].(string); ok {
				texts = append(texts, text)
			}
		}
	}
	return strings.Join(texts, "\n")
}

func runCall(ctx context.Context, out io.Writer, args []string) error {
	opts, err := parseCallArgs(args)
	if err != nil {
		return err
	}

	if opts.addr == "" {
		cfg, err := loadConfig(getConfigPath())
		if err != nil {
			return err
		}
		opts.addr = cfg.Server.GRPCAddr
	}

	req, err := buildCallRequest(opts.tool, opts.arguments)
	if err != nil {
		return err
	}

	conn, err := grpc.NewClient(opts.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", opts.addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, session, err := mcp.NewGRPCClient(conn).Call(ctx, req, opts.session)
	if err != nil {
		return fmt.Errorf("calling %s: %w", opts.tool, err)
	}
	if session != "" {
		color.New(color.FgHiBlack).Fprintf(out, "session: %s\n", session)
	}
	if resp.Error != nil {
		return fmt.Errorf("%s (%d): %s", resp.Error.Code, resp.Error.Code, resp.Error.Message)
	}

	fmt.Fprintln(out, resultText(resp.Result))
	return nil
}

// parseCallsArgs parses "[--limit N] [--tool name]".
func parseCallsArgs(args []string) (store.ToolCallFilter, error) {
	var filter store.ToolCallFilter
	for i := 0; i < len(args); i++ {
		arg := args[i]
		var value string
		name, inline, hasInline := strings.Cut(arg, "=")
		switch name {
		case "--limit", "--tool":
		default:
			return filter, fmt.Errorf("unknown argument: %s", arg)
		}
		if hasInline {
			value = inline
		} else {
			if i+1 >= len(args) {
				return filter, fmt.Errorf("%s requires a value", name)
			}
			value = args[i+1]
			i++
		}

		if name == "--tool" {
			filter.Tool = value
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return filter, fmt.Errorf("--limit must be a positive integer, got %q", value)
		}
		filter.Limit = n
	}
	return filter, nil
}

func runCalls(ctx context.Context, out io.Writer, args []string) error {
	filter, err := parseCallsArgs(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(getConfigPath())
	if err != nil {
		return err
	}
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("COVEN_MCP_DB_PATH"); envPath != "" {
		dbPath = envPath
	}
	if dbPath == "" {
		return fmt.Errorf("database.path is not configured")
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	calls, err := s.ListToolCalls(ctx, filter)
	if err != nil {
		return fmt.Errorf("listing tool calls: %w", err)
	}

	printCalls(out, calls)
	return nil
}

func printCalls(out io.Writer, calls []*store.ToolCall) {
	cyan := color.New(color.FgCyan)
	fmt.Fprintln(out)
	cyan.Fprintln(out, "  Tool Calls")
	cyan.Fprintln(out, "  ----------")

	if len(calls) == 0 {
		fmt.Fprintln(out, "  (no calls recorded)")
		fmt.Fprintln(out)
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  STARTED\tTOOL\tSTATUS\tDURATION\tSESSION")
	fmt.Fprintln(w, "  -------\t----\t------\t--------\t-------")
	for _, c := range calls {
		status := color.GreenString("ok")
		if c.Failed() {
			status = color.RedString("%d %s", c.ErrorCode, truncate(c.ErrorMessage, 32))
		}
		session := c.SessionID
		if session == "" {
			session = "-"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n",
			c.StartedAt.Local().Format("Jan 02 15:04:05"),
			c.Tool,
			status,
			c.Duration.Round(time.Microsecond),
			truncate(session, 12),
		)
	}
	w.Flush()
	fmt.Fprintln(out)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
