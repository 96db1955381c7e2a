package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	mcpproto "github.com/mark3labs/mcp-go/mcp"
	"github.com/samber/lo"

	"github.com/nugget/webmcp/internal/buildinfo"
	"github.com/nugget/webmcp/internal/config"
	"github.com/nugget/webmcp/internal/fetch"
	"github.com/nugget/webmcp/internal/httpkit"
	"github.com/nugget/webmcp/internal/mcp"
	"github.com/nugget/webmcp/internal/search"
	"github.com/nugget/webmcp/internal/tools"
)

// app holds the components shared by every subcommand.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	manager  *search.Manager
	registry *tools.Registry
	search   *tools.WebSearch
	urlInfo  *tools.URLInfo
}

// newApp wires providers, the fetcher and the tool registry from cfg.
func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	// --- Search providers ---
	// Every provider with usable settings is registered; search.provider
	// picks the one requests go to.
	searchClient := httpkit.NewClient(
		httpkit.WithTimeout(cfg.Search.Timeout),
		httpkit.WithLogger(logger),
	)
	manager, err := newSearchManager(cfg.Search, searchClient)
	if err != nil {
		return nil, err
	}
	logger.Debug("search providers registered",
		"primary", manager.Primary(),
		"providers", manager.Providers(),
	)

	// --- Page fetcher ---
	// Timeouts are applied per call from the context, so the client
	// itself has none.
	pageClient := httpkit.NewClient(
		httpkit.WithTimeout(0),
		httpkit.WithUserAgent(cfg.Fetch.UserAgent),
		httpkit.WithLogger(logger),
	)
	fetcher := fetch.New(pageClient, cfg.Fetch.MaxBytes)

	// --- Tools ---
	ws := tools.NewWebSearch(manager, fetcher, cfg, logger.With("tool", tools.WebSearchName))
	ui := tools.NewURLInfo(fetcher, cfg, logger.With("tool", tools.URLInfoName))

	registry := tools.NewRegistry()
	registry.Register(ws.Tool())
	registry.Register(ui.Tool())

	return &app{
		cfg:      cfg,
		logger:   logger,
		manager:  manager,
		registry: registry,
		search:   ws,
		urlInfo:  ui,
	}, nil
}

// newSearchManager registers every search backend that has usable
// settings. The primary provider must be among them.
func newSearchManager(cfg config.SearchConfig, hc *http.Client) (*search.Manager, error) {
	manager := search.NewManager(strings.ToLower(cfg.Provider))

	// DuckDuckGo needs no credentials and is always available.
	manager.Register(search.NewDuckDuckGo(cfg.DuckDuckGo.URL, cfg.DuckDuckGo.Region, hc))
	if cfg.SearXNG.Configured() {
		manager.Register(search.NewSearXNG(cfg.SearXNG.URL, hc))
	}
	if cfg.Brave.Configured() {
		manager.Register(search.NewBrave(cfg.Brave.APIKey, hc))
	}

	if !slices.Contains(manager.Providers(), manager.Primary()) {
		return nil, fmt.Errorf("search provider %q is not configured", cfg.Provider)
	}
	return manager, nil
}

// checkReport is what "webmcp check" prints.
type checkReport struct {
	Server    string       `json:"server"`
	Version   string       `json:"version"`
	Protocol  string       `json:"protocol"`
	Tools     []checkEntry `json:"tools"`
	Resources []checkEntry `json:"resource_templates"`
	Prompts   []checkEntry `json:"prompts"`
}

type checkEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// inspect runs an in-process MCP session against srv: initialize, then
// list tools, resource templates and prompts.
func inspect(ctx context.Context, srv *mcp.Server) (*checkReport, error) {
	c, err := client.NewInProcessClient(srv.MCPServer())
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	defer c.Close()

	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("start client: %w", err)
	}

	var initReq mcpproto.InitializeRequest
	initReq.Params.ProtocolVersion = mcpproto.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcpproto.Implementation{Name: buildinfo.ServerName + "-check", Version: buildinfo.Version}
	initResult, err := c.Initialize(ctx, initReq)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	report := &checkReport{
		Server:   initResult.ServerInfo.Name,
		Version:  initResult.ServerInfo.Version,
		Protocol: initResult.ProtocolVersion,
	}

	toolList, err := c.ListTools(ctx, mcpproto.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	report.Tools = lo.Map(toolList.Tools, func(t mcpproto.Tool, _ int) checkEntry {
		return checkEntry{Name: t.Name, Description: t.Description}
	})

	templates, err := c.ListResourceTemplates(ctx, mcpproto.ListResourceTemplatesRequest{})
	if err != nil {
		return nil, fmt.Errorf("list resource templates: %w", err)
	}
	report.Resources = lo.Map(templates.ResourceTemplates, func(r mcpproto.ResourceTemplate, _ int) checkEntry {
		return checkEntry{Name: r.URITemplate.Raw(), Description: r.Description}
	})

	promptList, err := c.ListPrompts(ctx, mcpproto.ListPromptsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	report.Prompts = lo.Map(promptList.Prompts, func(p mcpproto.Prompt, _ int) checkEntry {
		return checkEntry{Name: p.Name, Description: p.Description}
	})

	return report, nil
}

// sortedKeys returns the keys of m in lexical order.
func sortedKeys(m map[string]string) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}
