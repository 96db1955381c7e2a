package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nugget/webmcp/internal/buildinfo"
	"github.com/nugget/webmcp/internal/prompts"
	"github.com/nugget/webmcp/internal/search"
	"github.com/nugget/webmcp/internal/tools"
)

// SearchResourceTemplate is the URI template of the search resource.
const SearchResourceTemplate = "web://search/{query}"

const searchResourcePrefix = "web://search/"

const instructions = "Use web_search to find pages on the web and url_info to inspect a single URL. " +
	"The web://search/{query} resource returns plain-text results without page content."

// Server is the MCP front end of webmcp.
type Server struct {
	mcp    *server.MCPServer
	search *tools.WebSearch
	logger *slog.Logger
}

// NewServer builds an MCP server exposing every tool in registry, the
// search resource template backed by ws, and the analysis prompt.
func NewServer(registry *tools.Registry, ws *tools.WebSearch, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		search: ws,
		logger: logger,
	}
	s.mcp = server.NewMCPServer(buildinfo.ServerName, buildinfo.Version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithPromptCapabilities(false),
		server.WithInstructions(instructions),
		server.WithRecovery(),
		server.WithToolHandlerMiddleware(logCalls(logger)),
	)

	n, err := BridgeTools(s.mcp, registry, logger)
	if err != nil {
		return nil, err
	}

	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(SearchResourceTemplate, "Web search",
			mcp.WithTemplateDescription("Numbered web search results (title, URL, snippet) for the query."),
			mcp.WithTemplateMIMEType("text/plain"),
		),
		s.readSearchResource,
	)

	s.mcp.AddPrompt(
		mcp.NewPrompt(prompts.SearchPromptName,
			mcp.WithPromptDescription("Research a topic with web_search and produce a structured analysis."),
			mcp.WithArgument("topic",
				mcp.ArgumentDescription("Topic to search for and analyze."),
				mcp.RequiredArgument(),
			),
		),
		s.getSearchPrompt,
	)

	logger.Debug("MCP server ready",
		"tools", n,
		"resource_templates", 1,
		"prompts", 1,
	)
	return s, nil
}

// MCPServer returns the underlying mcp-go server, for in-process clients.
func (s *Server) MCPServer() *server.MCPServer { return s.mcp }

// Serve speaks MCP over in and out until in is closed or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	s.logger.Info("serving MCP on stdio", "server", buildinfo.ServerName, "version", buildinfo.Version)

	err := stdio.Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Server) readSearchResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	query := resourceQuery(req)
	if query == "" {
		return nil, fmt.Errorf("resource %s: empty query", req.Params.URI)
	}

	resp, err := s.search.Run(ctx, query, s.search.DefaultLimit(), false)
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", req.Params.URI, err)
	}

	results := make([]search.Result, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, search.Result{Title: r.Title, URL: r.URL, Snippet: r.Snippet})
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     search.FormatResults(query, results),
		},
	}, nil
}

// resourceQuery returns the decoded {query} variable. The server fills
// Arguments from the template match; the URI itself is the fallback.
func resourceQuery(req mcp.ReadResourceRequest) string {
	switch v := req.Params.Arguments["query"].(type) {
	case []string:
		if len(v) > 0 {
			return strings.TrimSpace(strings.Join(v, ","))
		}
	case string:
		return strings.TrimSpace(v)
	}

	raw, ok := strings.CutPrefix(req.Params.URI, searchResourcePrefix)
	if !ok {
		return ""
	}
	q, err := url.PathUnescape(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(q)
}

func (s *Server) getSearchPrompt(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := strings.TrimSpace(req.Params.Arguments["topic"])
	if topic == "" {
		return nil, errors.New("search_prompt: topic is required")
	}

	return mcp.NewGetPromptResult(
		fmt.Sprintf("Search and analysis of %q", topic),
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(prompts.SearchPrompt(topic))),
		},
	), nil
}
