package fetch

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Unknown is the metadata value recorded for absent response headers.
const Unknown = "unknown"

// HeaderMetadata returns the response fields that are always reported.
func HeaderMetadata(page *Page) map[string]string {
	header := func(key string) string {
		if v := strings.TrimSpace(page.Header.Get(key)); v != "" {
			return v
		}
		return Unknown
	}
	return map[string]string{
		"status_code":    strconv.Itoa(page.StatusCode),
		"content_type":   header("Content-Type"),
		"content_length": header("Content-Length"),
		"server":         header("Server"),
		"last_modified":  header("Last-Modified"),
	}
}

// Metadata returns the page title and a metadata map. The map always
// holds the header fields from [HeaderMetadata]; for HTML pages it also
// carries description, keywords, author, language, canonical, site_name
// and any og:* or twitter:* properties present in the markup.
func Metadata(page *Page) (string, map[string]string, error) {
	meta := HeaderMetadata(page)
	if !page.IsHTML() {
		return "", meta, nil
	}
	if page.looksBinary() {
		return "", meta, fmt.Errorf("%s: %w", page.ContentType, ErrBinary)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return "", meta, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	set := func(key, value string) {
		value = strings.Join(strings.Fields(value), " ")
		if value == "" {
			return
		}
		if _, exists := meta[key]; !exists {
			meta[key] = value
		}
	}

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		content, _ := s.Attr("content")
		name, _ := s.Attr("name")
		prop, _ := s.Attr("property")
		equiv, _ := s.Attr("http-equiv")

		key := strings.ToLower(strings.TrimSpace(prop))
		if key == "" {
			key = strings.ToLower(strings.TrimSpace(name))
		}

		switch {
		case key == "description", key == "keywords", key == "author":
			set(key, content)
		case strings.HasPrefix(key, "og:"), strings.HasPrefix(key, "twitter:"):
			set(key, content)
			if key == "og:site_name" {
				set("site_name", content)
			}
		case strings.EqualFold(equiv, "content-language"):
			set("language", content)
		}
	})

	if lang, ok := doc.Find("html").First().Attr("lang"); ok {
		// The root attribute is authoritative over http-equiv.
		if lang = strings.TrimSpace(lang); lang != "" {
			meta["language"] = lang
		}
	}
	doc.Find("link[rel]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		rel, _ := s.Attr("rel")
		if !strings.EqualFold(strings.TrimSpace(rel), "canonical") {
			return true
		}
		href, _ := s.Attr("href")
		set("canonical", href)
		return false
	})

	title := strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
	if title == "" {
		title = meta["og:title"]
	}

	return title, meta, nil
}
