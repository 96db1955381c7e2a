package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nugget/webmcp/internal/config"
	"github.com/nugget/webmcp/internal/fetch"
	"github.com/nugget/webmcp/internal/httpkit"
)

// URLInfoName is the registered name of the URL metadata tool.
const URLInfoName = "url_info"

// URLInfoResult is the url_info payload.
type URLInfoResult struct {
	URL            string            `json:"url"`
	Title          string            `json:"title"`
	Metadata       map[string]string `json:"metadata"`
	ContentPreview string            `json:"content_preview"`
}

// URLInfo fetches a single page and reports its metadata and a short
// text preview.
type URLInfo struct {
	fetcher         *fetch.Fetcher
	logger          *slog.Logger
	timeout         time.Duration
	maxBytes        int64
	previewMaxChars int
	mode            fetch.Mode
}

// NewURLInfo creates the url_info tool from configuration.
func NewURLInfo(f *fetch.Fetcher, cfg *config.Config, logger *slog.Logger) *URLInfo {
	if logger == nil {
		logger = slog.Default()
	}
	return &URLInfo{
		fetcher:         f,
		logger:          logger,
		timeout:         cfg.Fetch.Timeout,
		maxBytes:        cfg.Fetch.MaxBytes,
		previewMaxChars: cfg.Fetch.PreviewMaxChars,
		mode:            fetch.Mode(cfg.Fetch.Extractor),
	}
}

// Tool returns the registry entry for url_info.
func (u *URLInfo) Tool() *Tool {
	return &Tool{
		Name:        URLInfoName,
		Description: "Fetch a URL and return its final address, title, response and page metadata, and a short text preview.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{
					"type":        "string",
					"description": "Absolute http or https URL to analyze.",
				},
			},
			"required": []string{"url"},
		},
		Handler: u.handle,
	}
}

func (u *URLInfo) handle(ctx context.Context, args map[string]any) (string, error) {
	info, err := u.Run(ctx, stringArg(args, "url"))
	if err != nil {
		return "", err
	}

	out, err := json.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("url_info: encode response: %w", err)
	}
	return string(out), nil
}

// Run fetches rawURL once and builds its info record.
func (u *URLInfo) Run(ctx context.Context, rawURL string) (*URLInfoResult, error) {
	target, err := fetch.NormalizeURL(rawURL)
	if err != nil {
		return nil, &ValidationError{Tool: URLInfoName, Message: err.Error()}
	}

	page, err := u.fetcher.Fetch(ctx, target, fetch.Options{Timeout: u.timeout, MaxBytes: u.maxBytes})
	if err != nil {
		return nil, &FetchError{Tool: URLInfoName, Message: u.fetchFailure(target, err), Err: err}
	}

	title, meta, err := fetch.Metadata(page)
	if err != nil {
		return nil, &ParseError{Tool: URLInfoName, Message: fmt.Sprintf("cannot parse %s: %v", page.URL, err), Err: err}
	}

	text, err := fetch.Extract(page, u.mode, fetch.FormatText)
	if err != nil {
		return nil, &ParseError{Tool: URLInfoName, Message: fmt.Sprintf("cannot read %s: %v", page.URL, err), Err: err}
	}

	u.logger.Debug("url info",
		"request_id", RequestIDFromContext(ctx),
		"url", page.URL,
		"status", page.StatusCode,
		"content_type", page.ContentType,
		"bytes", len(page.Body),
		"truncated", page.Truncated,
	)

	return &URLInfoResult{
		URL:            page.URL,
		Title:          title,
		Metadata:       meta,
		ContentPreview: fetch.Truncate(text, u.previewMaxChars),
	}, nil
}

func (u *URLInfo) fetchFailure(target string, err error) string {
	var se *fetch.StatusError
	switch {
	case errors.As(err, &se):
		return fmt.Sprintf("%s returned HTTP %d %s", se.URL, se.StatusCode, http.StatusText(se.StatusCode))
	case httpkit.IsTimeout(err):
		return fmt.Sprintf("%s timed out after %s", target, u.timeout)
	default:
		return fmt.Sprintf("%s unreachable: %v", target, err)
	}
}
