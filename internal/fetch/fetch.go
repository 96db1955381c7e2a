// Package fetch provides web page fetching and content extraction.
// It downloads a URL with size and time bounds, extracts readable text
// (stripping navigation, ads, and other boilerplate), and reads page
// metadata from headers and HTML markup.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nugget/webmcp/internal/httpkit"
)

// DefaultTimeout is the HTTP request timeout for fetching pages.
const DefaultTimeout = 30 * time.Second

// DefaultMaxBytes is the maximum response body size (5 MB).
const DefaultMaxBytes int64 = 5 * 1024 * 1024

// ErrBinary is returned by [Extract] for bodies that are not valid UTF-8
// text and cannot be rendered as a preview.
var ErrBinary = errors.New("binary or non-UTF-8 content")

// StatusError reports an HTTP response with a status of 400 or above.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Page is a downloaded response. Body is capped at the fetcher's
// byte limit; Truncated reports whether the cap was hit.
type Page struct {
	URL         string
	StatusCode  int
	Header      http.Header
	ContentType string
	Body        []byte
	Truncated   bool
}

// IsHTML reports whether the page declares an HTML content type.
func (p *Page) IsHTML() bool {
	ct := strings.ToLower(p.ContentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

// looksBinary reports NUL bytes near the start of the body, which no
// text document contains whatever its declared type.
func (p *Page) looksBinary() bool {
	head := p.Body
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.IndexByte(head, 0) >= 0
}

// IsText reports whether the body can be shown as text: a text/* type
// or an unlabeled body that is valid UTF-8.
func (p *Page) IsText() bool {
	ct := strings.ToLower(p.ContentType)
	if strings.HasPrefix(ct, "text/") || strings.Contains(ct, "json") || strings.Contains(ct, "xml") {
		return p.validUTF8()
	}
	return ct == "" && p.validUTF8()
}

// validUTF8 tolerates a rune split by the byte cap on truncated bodies.
func (p *Page) validUTF8() bool {
	b := p.Body
	if p.Truncated {
		for i := 0; i < utf8.UTFMax-1 && len(b) > 0 && !utf8.Valid(b); i++ {
			b = b[:len(b)-1]
		}
	}
	return utf8.Valid(b)
}

// Options bound a single fetch. Zero values use the fetcher defaults.
type Options struct {
	Timeout  time.Duration
	MaxBytes int64
}

// Fetcher downloads web pages.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// New creates a Fetcher. A nil client gets the shared httpkit defaults
// with no client-level timeout; each call is bounded by its context
// and [Options.Timeout] instead. A non-positive maxBytes uses
// [DefaultMaxBytes].
func New(client *http.Client, maxBytes int64) *Fetcher {
	if client == nil {
		client = httpkit.NewClient(httpkit.WithTimeout(0))
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Fetcher{
		client:   client,
		maxBytes: maxBytes,
	}
}

// NormalizeURL trims rawURL, adds https:// when no scheme is given and
// rejects anything that is not an absolute http or https URL.
func NormalizeURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", fmt.Errorf("url is required")
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme %q (expected http or https)", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid url %q: missing host", rawURL)
	}
	return u.String(), nil
}

// Fetch downloads rawURL with a single GET, following redirects. It
// returns a *StatusError for responses of 400 or above. Network
// failures and timeouts are returned wrapped; use [httpkit.IsTimeout]
// to tell them apart.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, opts Options) (*Page, error) {
	target, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	maxBytes := f.maxBytes
	if opts.MaxBytes > 0 {
		maxBytes = opts.MaxBytes
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,text/plain;q=0.8,*/*;q=0.7")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	final := target
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}

	if resp.StatusCode >= http.StatusBadRequest {
		httpkit.DrainAndClose(resp.Body, 4096)
		return nil, &StatusError{URL: final, StatusCode: resp.StatusCode}
	}

	body, truncated, err := httpkit.ReadLimited(resp.Body, maxBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Page{
		URL:         final,
		StatusCode:  resp.StatusCode,
		Header:      resp.Header,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Truncated:   truncated,
	}, nil
}

// Truncate cuts s to at most maxChars runes, appending "..." when
// anything was removed. It never splits a multi-byte character.
func Truncate(s string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	return truncateUTF8(s, maxChars) + "..."
}

// truncateUTF8 truncates a string to maxChars runes, ensuring it doesn't
// break in the middle of a multi-byte character.
func truncateUTF8(s string, maxChars int) string {
	count := 0
	for i := range s {
		if count >= maxChars {
			return s[:i]
		}
		count++
	}
	return s
}
