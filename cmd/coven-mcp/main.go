// ABOUTME: Entry point for the coven-mcp tool server
// ABOUTME: Serves MCP over HTTP and gRPC and offers client subcommands

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/coven-mcp/internal/config"
	"github.com/2389/coven-mcp/internal/gateway"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `

  ___ _____   _____ _ __        _ __ ___   ___ _ __
 / __/ _ \ \ / / _ \ '_ \ _____| '_ ' _ \ / __| '_ \
| (_| (_) \ V /  __/ | | |_____| | | | | | (__| |_) |
 \___\___/ \_/ \___|_| |_|     |_| |_| |_|\___| .__/
                                              |_|
`

// getConfigPath returns the path to the config file.
// Priority: COVEN_MCP_CONFIG env var > XDG_CONFIG_HOME/coven/mcp.yaml > ~/.config/coven/mcp.yaml
func getConfigPath() string {
	if envPath := os.Getenv("COVEN_MCP_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "mcp.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "coven", "mcp.yaml")
}

// loadConfig loads the config file, falling back to defaults when none exists.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func printUsage() {
	fmt.Println("Usage: coven-mcp <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                               Start the MCP server")
	fmt.Println("  init [path]                         Create a new config file interactively")
	fmt.Println("  tools                               List the tools this config exposes")
	fmt.Println("  call <tool> [json-args] [--addr A]  Invoke a tool over gRPC")
	fmt.Println("       [--session ID]")
	fmt.Println("  calls [--limit N] [--tool NAME]     Show recent tool calls from the ledger")
	fmt.Println("  health                              Check server health")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit(os.Stdin, os.Stdout, args)
	case "tools":
		err = runTools(os.Stdout)
	case "call":
		err = runCall(ctx, os.Stdout, args)
	case "calls":
		err = runCalls(ctx, os.Stdout, args)
	case "health":
		err = runHealth(ctx)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging, os.Stdout)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Identity:  %s %s\n", cfg.Identity.Name, cfg.Identity.Version)
	if !cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("gRPC:      %s\n", cfg.Server.GRPCAddr)
		green.Print("    ▶ ")
		fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	}
	if cfg.Tools.NeedsDatabase() {
		green.Print("    ▶ ")
		fmt.Printf("Database:  %s\n", cfg.Database.Path)
	}

	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Funnel {
			yellow.Print(" [funnel]")
		} else if cfg.Tailscale.HTTPS {
			yellow.Print(" [https]")
		}
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	}

	fmt.Println()

	logger.Info("starting coven-mcp",
		"config", configPath,
		"version", version,
		"grpc_addr", cfg.Server.GRPCAddr,
		"http_addr", cfg.Server.HTTPAddr,
	)

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	green.Print("    ▶ ")
	fmt.Printf("MCP:       %s (%d tools)\n\n", gw.MCPEndpoint(), gw.Registry().Len())

	return gw.Run(ctx)
}

// parseLevel maps a config level name to a slog level.
func parseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setupLogger(cfg config.LoggingConfig, out io.Writer) *slog.Logger {
	level := parseLevel(cfg.Level)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = &colorHandler{
			mu:    &sync.Mutex{},
			out:   out,
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     *sync.Mutex
	out    io.Writer
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}

	// Handler-level attrs (from WithAttrs) come first
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + prefix + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, buf.String())
	return err
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	for _, a := range attrs {
		newAttrs = append(newAttrs, slog.Attr{Key: prefix + a.Key, Value: a.Value})
	}
	return &colorHandler{
		mu:     h.mu,
		out:    h.out,
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		mu:     h.mu,
		out:    h.out,
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

func runHealth(ctx context.Context) error {
	cfg, err := loadConfig(getConfigPath())
	if err != nil {
		return err
	}

	base := "http://" + cfg.Server.HTTPAddr
	for _, path := range []string{"/health", "/health/ready"} {
		status, body, err := fetch(ctx, base+path)
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}
		if status != http.StatusOK {
			return fmt.Errorf("unhealthy: %s returned status %d (%s)", path, status, body)
		}
		if path == "/health/ready" {
			fmt.Printf("healthy: %s\n", body)
		}
	}
	return nil
}

// fetch performs a GET and returns the status code and trimmed body.
func fetch(ctx context.Context, url string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, strings.TrimSpace(string(body)), nil
}

func runInit(in io.Reader, out io.Writer, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("usage: coven-mcp init [path]")
	}

	reader := bufio.NewReader(in)
	ask := func(question, defaultVal string) string {
		return prompt(reader, out, question, defaultVal)
	}
	yes := func(answer string) bool {
		answer = strings.ToLower(answer)
		return answer == "yes" || answer == "y"
	}

	fmt.Fprintln(out, "coven-mcp configuration setup")
	fmt.Fprintln(out, "=============================")
	fmt.Fprintln(out)

	outputFile := getConfigPath()
	if len(args) == 1 {
		outputFile = args[0]
	} else {
		outputFile = ask("Config file path", outputFile)
	}

	if _, err := os.Stat(outputFile); err == nil {
		return fmt.Errorf("%s already exists; remove it first or choose another path", outputFile)
	}

	cfg := config.Default()

	fmt.Fprintln(out, "\n--- Server Configuration ---")
	cfg.Identity.Name = ask("Server name", cfg.Identity.Name)
	cfg.Server.GRPCAddr = ask("gRPC address", cfg.Server.GRPCAddr)
	cfg.Server.HTTPAddr = ask("HTTP address", cfg.Server.HTTPAddr)

	fmt.Fprintln(out, "\n--- Tools ---")
	cfg.Tools.Sample = yes(ask("Enable sample tools?", "yes"))
	cfg.Tools.Notes = yes(ask("Enable notes tools?", "yes"))
	cfg.Tools.Ledger = yes(ask("Record tool calls in the ledger?", "yes"))

	if cfg.Tools.NeedsDatabase() {
		fmt.Fprintln(out, "\n--- Database Configuration ---")
		cfg.Database.Path = ask("SQLite database path", cfg.Database.Path)
	}

	fmt.Fprintln(out, "\n--- Tailscale Configuration ---")
	cfg.Tailscale.Enabled = yes(ask("Enable Tailscale?", "no"))
	if cfg.Tailscale.Enabled {
		cfg.Tailscale.Hostname = ask("Tailscale hostname", cfg.Tailscale.Hostname)
		cfg.Tailscale.AuthKey = ask("Tailscale auth key (leave empty to use TS_AUTHKEY)", "")
		cfg.Tailscale.Ephemeral = yes(ask("Ephemeral node?", "no"))
		cfg.Tailscale.Funnel = yes(ask("Enable Funnel (public HTTPS)?", "no"))
		if !cfg.Tailscale.Funnel {
			cfg.Tailscale.HTTPS = yes(ask("Serve HTTPS with Tailscale certs?", "no"))
		}
	}

	fmt.Fprintln(out, "\n--- Logging Configuration ---")
	cfg.Logging.Level = ask("Log level (debug/info/warn/error)", cfg.Logging.Level)
	cfg.Logging.Format = ask("Log format (text/json)", cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := config.Write(outputFile, cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nConfig written to %s\n", outputFile)
	fmt.Fprintln(out, "\nTo start the server:")
	if outputFile != getConfigPath() {
		fmt.Fprintf(out, "  COVEN_MCP_CONFIG=%s coven-mcp serve\n", outputFile)
	} else {
		fmt.Fprintln(out, "  coven-mcp serve")
	}

	return nil
}

func prompt(reader *bufio.Reader, out io.Writer, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		// On EOF or error, return default
		fmt.Fprintln(out)
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
