package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nugget/webmcp/internal/httpkit"
)

// DefaultDuckDuckGoURL is the JavaScript-free results page.
const DefaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"

// DefaultDuckDuckGoRegion is sent as the kl parameter when none is configured.
const DefaultDuckDuckGoRegion = "us-en"

// browserUserAgent is sent to DuckDuckGo, which serves an anomaly page
// to unfamiliar clients.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// DuckDuckGo implements the Provider interface by scraping the HTML
// results page. It needs no API key.
type DuckDuckGo struct {
	endpoint   string
	region     string
	httpClient *http.Client
}

// NewDuckDuckGo creates a DuckDuckGo provider. Empty endpoint or region
// fall back to the defaults; a nil client gets the shared httpkit
// defaults.
func NewDuckDuckGo(endpoint, region string, client *http.Client) *DuckDuckGo {
	if endpoint == "" {
		endpoint = DefaultDuckDuckGoURL
	}
	if region == "" {
		region = DefaultDuckDuckGoRegion
	}
	if client == nil {
		client = httpkit.NewClient()
	}
	return &DuckDuckGo{
		endpoint:   endpoint,
		region:     region,
		httpClient: client,
	}
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

func (d *DuckDuckGo) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	params := url.Values{
		"q":  {query},
		"kl": {d.region},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: build request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("User-Agent", browserUserAgent)
	if opts.Language != "" {
		req.Header.Set("Accept-Language", opts.Language)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body := httpkit.ReadErrorBody(resp.Body, 512)
		return nil, fmt.Errorf("duckduckgo: HTTP %d: %s", resp.StatusCode, body)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: parse results: %w", err)
	}

	return parseDuckDuckGo(doc, opts.Count), nil
}

// parseDuckDuckGo extracts organic results from a results page. Repeated
// URLs are skipped before counting. A count of zero means no limit.
func parseDuckDuckGo(doc *goquery.Document, count int) []Result {
	var results []Result
	seen := make(map[string]bool)
	doc.Find("div.result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.HasClass("result--ad") {
			return true
		}
		link := s.Find("a.result__a").First()
		if link.Length() == 0 {
			return true
		}
		href, _ := link.Attr("href")
		target := unwrapDuckDuckGo(href)
		if target == "" || seen[target] {
			return true
		}
		seen[target] = true
		results = append(results, Result{
			Title:   strings.TrimSpace(link.Text()),
			URL:     target,
			Snippet: strings.Join(strings.Fields(s.Find(".result__snippet").First().Text()), " "),
		})
		return count <= 0 || len(results) < count
	})
	return results
}

// unwrapDuckDuckGo resolves the /l/?uddg= click-tracking redirect to the
// destination URL. Other links are returned with a scheme attached.
func unwrapDuckDuckGo(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasPrefix(u.Path, "/l/") {
		if dest := u.Query().Get("uddg"); dest != "" {
			return dest
		}
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if u.Scheme == "" {
		return ""
	}
	return href
}
