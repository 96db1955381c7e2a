// WebMCP is a Model Context Protocol server that gives AI assistants web
// search and URL inspection tools over stdio.
//
// Configuration is optional. When present it is loaded from a single
// YAML file discovered automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	webmcp serve                       Run the MCP server on stdin/stdout
//	webmcp search [-n N] [-content] q  Run one search and print the results
//	webmcp info <url>                  Print metadata and a preview for a URL
//	webmcp check                       List the tools, resources and prompts served
//	webmcp init [dir]                  Write a default config.yaml
//	webmcp version                     Print version and build information
//	webmcp -o json version             Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/nugget/webmcp/internal/buildinfo"
	"github.com/nugget/webmcp/internal/config"
	"github.com/nugget/webmcp/internal/mcp"
	"github.com/nugget/webmcp/internal/search"
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run] so the whole
// lifecycle can be driven from tests.
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdin, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		cancel()
		os.Exit(1)
	}
}

// run is the real entry point for the webmcp command. stdin and stdout
// carry MCP protocol traffic in serve mode and command output otherwise;
// logs always go to stderr or the configured log file. args is
// os.Args[1:], parsed by hand so run can be called concurrently from
// tests.
func run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case command != "":
			// Everything after the command belongs to it.
			cmdArgs = append(cmdArgs, args[i])
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-"):
			command = args[i]
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "", "serve":
		return runServe(ctx, stdin, stdout, stderr, configPath)
	case "search":
		return runSearch(ctx, stdout, stderr, configPath, outputFmt, cmdArgs)
	case "info":
		if len(cmdArgs) != 1 {
			return fmt.Errorf("usage: webmcp info <url>")
		}
		return runInfo(ctx, stdout, stderr, configPath, outputFmt, cmdArgs[0])
	case "check":
		return runCheck(ctx, stdout, stderr, configPath, outputFmt)
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	case "version":
		return runVersion(stdout, outputFmt)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.BuildInfo()
	if outputFmt == "json" {
		return writeJSON(w, info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "git_branch", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "WebMCP - web search and URL inspection over the Model Context Protocol")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: webmcp [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve                        Run the MCP server on stdio (default)")
	fmt.Fprintln(w, "  search [-n N] [-content] q   Run one web search")
	fmt.Fprintln(w, "  info <url>                   Show metadata and a preview for a URL")
	fmt.Fprintln(w, "  check                        List served tools, resources and prompts")
	fmt.Fprintln(w, "  init [dir]                   Write a default config.yaml (default: .)")
	fmt.Fprintln(w, "  version                      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintf(w, "  $%s, %s\n", config.EnvConfigPath, strings.Join(config.DefaultSearchPaths(), ", "))
	return nil
}

// runServe speaks MCP on stdin/stdout until stdin closes or a signal
// arrives.
func runServe(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, configPath string) error {
	a, err := setup(configPath, stderr)
	if err != nil {
		return err
	}

	srv, err := a.mcpServer()
	if err != nil {
		return err
	}
	err = srv.Serve(ctx, stdin, stdout)
	a.logger.Info("MCP session ended", "uptime", buildinfo.Uptime())
	return err
}

// runSearch handles "webmcp search [-n N] [-content] <query>".
func runSearch(ctx context.Context, stdout, stderr io.Writer, configPath, outputFmt string, args []string) error {
	limit := -1
	includeContent := false
	var words []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-n" && i+1 < len(args):
			n, err := strconv.Atoi(args[i+1])
			if err != nil {
				return fmt.Errorf("invalid -n value %q: %w", args[i+1], err)
			}
			if n < 0 {
				return fmt.Errorf("invalid -n value %d: must be >= 0", n)
			}
			limit = n
			i++
		case args[i] == "-content":
			includeContent = true
		default:
			words = append(words, args[i])
		}
	}
	query := strings.TrimSpace(strings.Join(words, " "))
	if query == "" {
		return fmt.Errorf("usage: webmcp search [-n N] [-content] <query>")
	}

	a, err := setup(configPath, stderr)
	if err != nil {
		return err
	}
	if limit < 0 {
		limit = a.search.DefaultLimit()
	}

	resp, err := a.search.Run(ctx, query, limit, includeContent)
	if err != nil {
		return err
	}
	if outputFmt == "json" {
		return writeJSON(stdout, resp)
	}

	results := make([]search.Result, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, search.Result{Title: r.Title, URL: r.URL, Snippet: r.Snippet})
	}
	fmt.Fprintln(stdout, search.FormatResults(query, results))
	for i, r := range resp.Results {
		switch {
		case r.Content != "":
			fmt.Fprintf(stdout, "\n--- %d. %s ---\n%s\n", i+1, r.URL, r.Content)
		case r.ContentError != "":
			fmt.Fprintf(stdout, "\n--- %d. %s ---\n(no content: %s)\n", i+1, r.URL, r.ContentError)
		}
	}
	return nil
}

// runInfo handles "webmcp info <url>".
func runInfo(ctx context.Context, stdout, stderr io.Writer, configPath, outputFmt, rawURL string) error {
	a, err := setup(configPath, stderr)
	if err != nil {
		return err
	}

	info, err := a.urlInfo.Run(ctx, rawURL)
	if err != nil {
		return err
	}
	if outputFmt == "json" {
		return writeJSON(stdout, info)
	}

	fmt.Fprintf(stdout, "URL:   %s\n", info.URL)
	fmt.Fprintf(stdout, "Title: %s\n", info.Title)
	fmt.Fprintln(stdout, "Metadata:")
	for _, k := range sortedKeys(info.Metadata) {
		fmt.Fprintf(stdout, "  %-16s %s\n", k+":", info.Metadata[k])
	}
	fmt.Fprintln(stdout, "Preview:")
	fmt.Fprintln(stdout, info.ContentPreview)
	return nil
}

// runCheck opens an in-process MCP session against the configured
// server and lists what it offers.
func runCheck(ctx context.Context, stdout, stderr io.Writer, configPath, outputFmt string) error {
	a, err := setup(configPath, stderr)
	if err != nil {
		return err
	}

	srv, err := a.mcpServer()
	if err != nil {
		return err
	}

	report, err := inspect(ctx, srv)
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}
	if outputFmt == "json" {
		return writeJSON(stdout, report)
	}

	fmt.Fprintf(stdout, "%s %s (protocol %s)\n", report.Server, report.Version, report.Protocol)
	fmt.Fprintln(stdout, "Tools:")
	for _, t := range report.Tools {
		fmt.Fprintf(stdout, "  %-12s %s\n", t.Name, t.Description)
	}
	fmt.Fprintln(stdout, "Resource templates:")
	for _, r := range report.Resources {
		fmt.Fprintf(stdout, "  %-22s %s\n", r.Name, r.Description)
	}
	fmt.Fprintln(stdout, "Prompts:")
	for _, p := range report.Prompts {
		fmt.Fprintf(stdout, "  %-12s %s\n", p.Name, p.Description)
	}
	fmt.Fprintf(stdout, "Search provider: %s\n", a.manager.Primary())
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// setup loads configuration and builds the application with logs
// directed at stderr (or the configured log file).
func setup(configPath string, stderr io.Writer) (*app, error) {
	cfg, cfgPath, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger(stderr)
	if cfgPath == "" {
		logger.Debug("no config file found, using defaults")
	} else {
		logger.Debug("config loaded", "path", cfgPath)
	}
	logger.Debug("starting", "build", buildinfo.String())

	return newApp(cfg, logger)
}

func (a *app) mcpServer() (*mcp.Server, error) {
	return mcp.NewServer(a.registry, a.search, a.logger.With("component", "mcp"))
}
