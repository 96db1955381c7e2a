package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nugget/webmcp/internal/config"
	"github.com/nugget/webmcp/internal/fetch"
	"github.com/nugget/webmcp/internal/httpkit"
	"github.com/nugget/webmcp/internal/search"
)

// WebSearchName is the registered name of the search tool.
const WebSearchName = "web_search"

// SearchResult is one entry of a web_search response. Content is only
// populated when page content was requested; ContentError explains an
// empty Content when the page fetch failed.
type SearchResult struct {
	Title        string `json:"title"`
	URL          string `json:"url"`
	Snippet      string `json:"snippet"`
	Content      string `json:"content,omitempty"`
	ContentError string `json:"content_error,omitempty"`
}

// SearchResponse is the web_search payload.
type SearchResponse struct {
	Query        string         `json:"query"`
	Provider     string         `json:"provider"`
	ResultsCount int            `json:"results_count"`
	Results      []SearchResult `json:"results"`
}

// WebSearch queries the configured provider and optionally fetches the
// readable content of every result page.
type WebSearch struct {
	manager *search.Manager
	fetcher *fetch.Fetcher
	logger  *slog.Logger

	timeout      time.Duration
	defaultLimit int
	maxResults   int
	language     string

	contentTimeout  time.Duration
	maxConcurrency  int
	contentMaxChars int
	mode            fetch.Mode
	format          fetch.Format
}

// NewWebSearch creates the search tool from configuration.
func NewWebSearch(mgr *search.Manager, f *fetch.Fetcher, cfg *config.Config, logger *slog.Logger) *WebSearch {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSearch{
		manager:         mgr,
		fetcher:         f,
		logger:          logger,
		timeout:         cfg.Search.Timeout,
		defaultLimit:    cfg.Search.DefaultLimit,
		maxResults:      cfg.Search.MaxResults,
		language:        cfg.Search.Language,
		contentTimeout:  cfg.Fetch.ContentTimeout,
		maxConcurrency:  cfg.Fetch.MaxConcurrency,
		contentMaxChars: cfg.Fetch.ContentMaxChars,
		mode:            fetch.Mode(cfg.Fetch.Extractor),
		format:          fetch.Format(cfg.Fetch.Format),
	}
}

// DefaultLimit is the result count used when a caller gives none.
func (s *WebSearch) DefaultLimit() int { return s.defaultLimit }

// Tool returns the registry entry for web_search.
func (s *WebSearch) Tool() *Tool {
	return &Tool{
		Name:        WebSearchName,
		Description: "Search the web and return titles, URLs and snippets. Optionally fetches the readable text of each result page.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Search query string.",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": fmt.Sprintf("Maximum number of results to return (0-%d). Default: %d.", s.maxResults, s.defaultLimit),
					"minimum":     0,
					"default":     s.defaultLimit,
				},
				"include_content": map[string]any{
					"type":        "boolean",
					"description": "Fetch each result page and include its readable text. Default: true.",
					"default":     true,
				},
			},
			"required": []string{"query"},
		},
		Handler: s.handle,
	}
}

func (s *WebSearch) handle(ctx context.Context, args map[string]any) (string, error) {
	resp, err := s.Run(ctx,
		stringArg(args, "query"),
		intArg(args, "limit", s.defaultLimit),
		boolArg(args, "include_content", true),
	)
	if err != nil {
		return "", err
	}

	out, err := json.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("web_search: encode response: %w", err)
	}
	return string(out), nil
}

// Run executes a search. A limit of zero returns an empty response
// without contacting the provider; limits above the configured maximum
// are clamped.
func (s *WebSearch) Run(ctx context.Context, query string, limit int, includeContent bool) (*SearchResponse, error) {
	if query == "" {
		return nil, &ValidationError{Tool: WebSearchName, Message: "query must not be empty"}
	}
	if limit < 0 {
		return nil, &ValidationError{Tool: WebSearchName, Message: fmt.Sprintf("limit must be >= 0, got %d", limit)}
	}
	if limit > s.maxResults {
		limit = s.maxResults
	}

	resp := &SearchResponse{
		Query:    query,
		Provider: s.manager.Primary(),
		Results:  []SearchResult{},
	}
	if limit == 0 {
		return resp, nil
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	found, err := s.manager.Search(searchCtx, query, search.Options{Count: limit, Language: s.language})
	cancel()
	if err != nil {
		msg := fmt.Sprintf("search failed: %v", err)
		if httpkit.IsTimeout(err) {
			msg = fmt.Sprintf("search timed out after %s", s.timeout)
		}
		return nil, &FetchError{Tool: WebSearchName, Message: msg, Err: err}
	}

	for _, r := range search.Clean(found, limit) {
		resp.Results = append(resp.Results, SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Snippet,
		})
	}
	resp.ResultsCount = len(resp.Results)

	if includeContent && len(resp.Results) > 0 {
		s.fetchContent(ctx, resp.Results)
	}

	s.logger.Debug("search complete",
		"request_id", RequestIDFromContext(ctx),
		"query", query,
		"provider", resp.Provider,
		"results", resp.ResultsCount,
		"include_content", includeContent,
	)
	return resp, nil
}

// fetchContent fills Content for each result in place. Fetches run
// concurrently up to maxConcurrency; each has its own timeout and a
// failure only affects its own result.
func (s *WebSearch) fetchContent(ctx context.Context, results []SearchResult) {
	var eg errgroup.Group
	eg.SetLimit(s.maxConcurrency)

	for i := range results {
		eg.Go(func() error {
			results[i].Content, results[i].ContentError = s.pageContent(ctx, results[i].URL)
			return nil
		})
	}
	_ = eg.Wait()
}

func (s *WebSearch) pageContent(ctx context.Context, url string) (string, string) {
	if err := ctx.Err(); err != nil {
		return "", err.Error()
	}

	start := time.Now()
	page, err := s.fetcher.Fetch(ctx, url, fetch.Options{Timeout: s.contentTimeout})
	if err != nil {
		reason := contentFailure(err, s.contentTimeout)
		s.logger.Debug("content fetch failed",
			"request_id", RequestIDFromContext(ctx),
			"url", url,
			"reason", reason,
			"elapsed", time.Since(start),
		)
		return "", reason
	}
	if !page.IsHTML() {
		return "", fmt.Sprintf("non-HTML content (%s)", page.ContentType)
	}

	text, err := fetch.Extract(page, s.mode, s.format)
	if err != nil {
		return "", fmt.Sprintf("content extraction failed: %v", err)
	}
	if text == "" {
		return "", "no readable text"
	}
	return fetch.Truncate(text, s.contentMaxChars), ""
}

func contentFailure(err error, timeout time.Duration) string {
	var se *fetch.StatusError
	switch {
	case errors.As(err, &se):
		return fmt.Sprintf("HTTP %d", se.StatusCode)
	case httpkit.IsTimeout(err):
		return fmt.Sprintf("timed out after %s", timeout)
	default:
		return err.Error()
	}
}
