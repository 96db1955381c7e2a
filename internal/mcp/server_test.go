package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nugget/webmcp/internal/config"
	"github.com/nugget/webmcp/internal/fetch"
	"github.com/nugget/webmcp/internal/search"
	"github.com/nugget/webmcp/internal/tools"
)

type fakeProvider struct {
	results []search.Result
	err     error
	queries []string
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Search(_ context.Context, query string, opts search.Options) ([]search.Result, error) {
	p.queries = append(p.queries, query)
	if p.err != nil {
		return nil, p.err
	}
	if len(p.results) > opts.Count {
		return p.results[:opts.Count], nil
	}
	return p.results, nil
}

func testServer(t *testing.T, p *fakeProvider, extra ...*tools.Tool) *Server {
	t.Helper()

	cfg := config.Default()
	mgr := search.NewManager(p.Name())
	mgr.Register(p)
	f := fetch.New(nil, 0)
	logger := slog.New(slog.DiscardHandler)

	ws := tools.NewWebSearch(mgr, f, cfg, logger)
	reg := tools.NewRegistry()
	reg.Register(ws.Tool())
	reg.Register(tools.NewURLInfo(f, cfg, logger).Tool())
	for _, tool := range extra {
		reg.Register(tool)
	}

	srv, err := NewServer(reg, ws, logger)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func testClient(t *testing.T, srv *Server) *client.Client {
	t.Helper()
	ctx := context.Background()

	c, err := client.NewInProcessClient(srv.MCPServer())
	if err != nil {
		t.Fatalf("NewInProcessClient: %v", err)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	var init mcp.InitializeRequest
	init.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	init.Params.ClientInfo = mcp.Implementation{Name: "webmcp-test", Version: "0.0.1"}
	if _, err := c.Initialize(ctx, init); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return c
}

func sampleResults() []search.Result {
	return []search.Result{
		{Title: "The Go Programming Language", URL: "https://go.dev/", Snippet: "Build simple, secure, scalable systems."},
		{Title: "Go (programming language)", URL: "https://en.wikipedia.org/wiki/Go_(programming_language)", Snippet: "Go is a statically typed language."},
	}
}

func callTool(t *testing.T, c *client.Client, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := c.CallTool(context.Background(), req)
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("content blocks = %d, want 1", len(res.Content))
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want mcp.TextContent", res.Content[0])
	}
	return text.Text
}

func TestServer_Listings(t *testing.T) {
	c := testClient(t, testServer(t, &fakeProvider{}))
	ctx := context.Background()

	toolList, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range toolList.Tools {
		names[tool.Name] = true
	}
	if !names[tools.WebSearchName] || !names[tools.URLInfoName] || len(names) != 2 {
		t.Errorf("tools = %v, want web_search and url_info", names)
	}

	templates, err := c.ListResourceTemplates(ctx, mcp.ListResourceTemplatesRequest{})
	if err != nil {
		t.Fatalf("ListResourceTemplates: %v", err)
	}
	if len(templates.ResourceTemplates) != 1 || templates.ResourceTemplates[0].URITemplate.Raw() != SearchResourceTemplate {
		t.Errorf("resource templates = %+v", templates.ResourceTemplates)
	}

	promptList, err := c.ListPrompts(ctx, mcp.ListPromptsRequest{})
	if err != nil {
		t.Fatalf("ListPrompts: %v", err)
	}
	if len(promptList.Prompts) != 1 || promptList.Prompts[0].Name != "search_prompt" {
		t.Fatalf("prompts = %+v", promptList.Prompts)
	}
	if args := promptList.Prompts[0].Arguments; len(args) != 1 || args[0].Name != "topic" || !args[0].Required {
		t.Errorf("prompt arguments = %+v, want required topic", args)
	}
}

func TestServer_ToolSchema(t *testing.T) {
	c := testClient(t, testServer(t, &fakeProvider{}))

	toolList, err := c.ListTools(context.Background(), mcp.ListToolsRequest{})
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	for _, tool := range toolList.Tools {
		if tool.Name != tools.WebSearchName {
			continue
		}
		if len(tool.InputSchema.Required) != 1 || tool.InputSchema.Required[0] != "query" {
			t.Errorf("required = %v, want [query]", tool.InputSchema.Required)
		}
		for _, prop := range []string{"query", "limit", "include_content"} {
			if _, ok := tool.InputSchema.Properties[prop]; !ok {
				t.Errorf("schema missing property %q", prop)
			}
		}
	}
}

func TestServer_WebSearch(t *testing.T) {
	p := &fakeProvider{results: sampleResults()}
	c := testClient(t, testServer(t, p))

	res := callTool(t, c, tools.WebSearchName, map[string]any{
		"query":           "golang",
		"limit":           1,
		"include_content": false,
	})
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}

	var resp tools.SearchResponse
	if err := json.Unmarshal([]byte(resultText(t, res)), &resp); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if resp.Query != "golang" || resp.ResultsCount != 1 || resp.Results[0].URL != "https://go.dev/" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestServer_ToolErrors(t *testing.T) {
	p := &fakeProvider{err: errors.New("HTTP 503")}
	c := testClient(t, testServer(t, p))

	tests := []struct {
		name string
		tool string
		args map[string]any
		want tools.Kind
	}{
		{"missing query", tools.WebSearchName, map[string]any{}, tools.KindValidation},
		{"wrong type", tools.WebSearchName, map[string]any{"query": "go", "limit": "five"}, tools.KindValidation},
		{"negative limit", tools.WebSearchName, map[string]any{"query": "go", "limit": -1}, tools.KindValidation},
		{"provider down", tools.WebSearchName, map[string]any{"query": "go"}, tools.KindFetch},
		{"bad url", tools.URLInfoName, map[string]any{"url": "ftp://example.com/file"}, tools.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := callTool(t, c, tt.tool, tt.args)
			if !res.IsError {
				t.Fatalf("expected error result, got %s", resultText(t, res))
			}

			var body struct {
				Error tools.ToolError `json:"error"`
			}
			if err := json.Unmarshal([]byte(resultText(t, res)), &body); err != nil {
				t.Fatalf("error body is not JSON: %v", err)
			}
			if body.Error.Kind != tt.want || body.Error.Tool != tt.tool || body.Error.Message == "" {
				t.Errorf("error = %+v, want kind %q for %s", body.Error, tt.want, tt.tool)
			}
		})
	}
}

func TestServer_PanicRecovered(t *testing.T) {
	boom := &tools.Tool{
		Name:       "boom",
		Parameters: map[string]any{"type": "object"},
		Handler: func(context.Context, map[string]any) (string, error) {
			panic("kaboom")
		},
	}
	c := testClient(t, testServer(t, &fakeProvider{results: sampleResults()}, boom))

	res := callTool(t, c, "boom", nil)
	if !res.IsError || !strings.Contains(resultText(t, res), `"internal_error"`) {
		t.Errorf("panic result = %+v, want internal_error", res)
	}

	// The session survives the panic.
	res = callTool(t, c, tools.WebSearchName, map[string]any{"query": "go", "include_content": false})
	if res.IsError {
		t.Errorf("call after panic failed: %s", resultText(t, res))
	}
}

func TestServer_SearchResource(t *testing.T) {
	p := &fakeProvider{results: sampleResults()}
	c := testClient(t, testServer(t, p))

	var req mcp.ReadResourceRequest
	req.Params.URI = "web://search/golang%20tips"
	res, err := c.ReadResource(context.Background(), req)
	if err != nil {
		t.Fatalf("ReadResource: %v", err)
	}
	if len(res.Contents) != 1 {
		t.Fatalf("contents = %d, want 1", len(res.Contents))
	}
	text, ok := res.Contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents is %T, want TextResourceContents", res.Contents[0])
	}
	if text.MIMEType != "text/plain" {
		t.Errorf("mime type = %q, want text/plain", text.MIMEType)
	}
	if !strings.HasPrefix(text.Text, "Search results for: golang tips") {
		t.Errorf("text = %q", text.Text)
	}
	if !strings.Contains(text.Text, "1. The Go Programming Language") || !strings.Contains(text.Text, "https://go.dev/") {
		t.Errorf("text missing first result: %q", text.Text)
	}
	if len(p.queries) != 1 || p.queries[0] != "golang tips" {
		t.Errorf("provider queries = %q, want decoded query", p.queries)
	}
}

func TestServer_SearchResourceNoResults(t *testing.T) {
	c := testClient(t, testServer(t, &fakeProvider{}))

	var req mcp.ReadResourceRequest
	req.Params.URI = "web://search/nothing"
	res, err := c.ReadResource(context.Background(), req)
	if err != nil {
		t.Fatalf("ReadResource: %v", err)
	}
	text := res.Contents[0].(mcp.TextResourceContents).Text
	if text != "No results found for: nothing" {
		t.Errorf("text = %q", text)
	}
}

func TestServer_SearchPrompt(t *testing.T) {
	c := testClient(t, testServer(t, &fakeProvider{}))

	var req mcp.GetPromptRequest
	req.Params.Name = "search_prompt"
	req.Params.Arguments = map[string]string{"topic": "fusion energy"}
	res, err := c.GetPrompt(context.Background(), req)
	if err != nil {
		t.Fatalf("GetPrompt: %v", err)
	}
	if len(res.Messages) != 1 || res.Messages[0].Role != mcp.RoleUser {
		t.Fatalf("messages = %+v, want one user message", res.Messages)
	}
	text, ok := res.Messages[0].Content.(mcp.TextContent)
	if !ok || !strings.Contains(text.Text, `"fusion energy"`) {
		t.Errorf("prompt content = %+v", res.Messages[0].Content)
	}

	req.Params.Arguments = map[string]string{}
	if _, err := c.GetPrompt(context.Background(), req); err == nil {
		t.Error("GetPrompt without topic should fail")
	}
}

func TestResourceQuery(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		args map[string]any
		want string
	}{
		{"matched slice", "web://search/x", map[string]any{"query": []string{"go generics"}}, "go generics"},
		{"matched string", "web://search/x", map[string]any{"query": " rust "}, "rust"},
		{"uri fallback", "web://search/caf%C3%A9", nil, "café"},
		{"other scheme", "file:///etc/passwd", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req mcp.ReadResourceRequest
			req.Params.URI = tt.uri
			req.Params.Arguments = tt.args
			if got := resourceQuery(req); got != tt.want {
				t.Errorf("resourceQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestServer_ServeStdio(t *testing.T) {
	srv := testServer(t, &fakeProvider{results: sampleResults()})

	in := strings.NewReader(strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"t","version":"1"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"web_search","arguments":{"query":"go","include_content":false}}}`,
	}, "\n") + "\n")
	var out bytes.Buffer

	if err := srv.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	raw := out.String()
	var responses []map[string]any
	sc := bufio.NewScanner(strings.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		var msg map[string]any
		if err := json.Unmarshal(sc.Bytes(), &msg); err != nil {
			t.Fatalf("stdout carried a non-JSON line: %q", sc.Text())
		}
		responses = append(responses, msg)
	}
	if len(responses) != 3 {
		t.Fatalf("responses = %d, want 3 (notifications get none)", len(responses))
	}
	for i, r := range responses {
		if r["error"] != nil {
			t.Errorf("response %d is an error: %v", i, r["error"])
		}
	}
	if !strings.Contains(raw, "go.dev") {
		t.Errorf("tools/call response missing results: %s", raw)
	}
}
