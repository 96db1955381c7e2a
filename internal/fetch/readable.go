package fetch

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/go-shiori/go-readability"
)

// Mode selects the HTML text extractor.
type Mode string

const (
	// ModeReadability runs go-readability and falls back to ModeBasic
	// when it finds no article.
	ModeReadability Mode = "readability"
	// ModeBasic walks the DOM directly.
	ModeBasic Mode = "basic"
)

// Format selects the shape of extracted text.
type Format string

const (
	// FormatText is plain text with whitespace collapsed.
	FormatText Format = "text"
	// FormatMarkdown converts the readability article HTML to markdown.
	FormatMarkdown Format = "markdown"
)

// ErrUnparseable is returned when an HTML body yields no document.
var ErrUnparseable = errors.New("unparseable document")

// Extract returns the readable content of page. HTML is reduced to its
// main text; other UTF-8 text is returned as-is with whitespace tidied.
// Bodies that are neither yield [ErrBinary].
func Extract(page *Page, mode Mode, format Format) (string, error) {
	if !page.IsHTML() || page.looksBinary() {
		if !page.looksBinary() && page.IsText() {
			return cleanWhitespace(string(page.Body)), nil
		}
		return "", fmt.Errorf("%s: %w", contentTypeOrUnknown(page.ContentType), ErrBinary)
	}

	if mode != ModeBasic {
		if text, ok := extractReadability(page, format); ok {
			return text, nil
		}
	}

	if format == FormatMarkdown {
		md, err := htmltomarkdown.ConvertString(string(page.Body))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnparseable, err)
		}
		return strings.TrimSpace(md), nil
	}

	_, text := extractBasic(string(page.Body))
	return text, nil
}

// extractReadability reports false when readability fails or finds an
// empty article, so the caller can fall back to the DOM walker.
func extractReadability(page *Page, format Format) (string, bool) {
	pageURL, err := url.Parse(page.URL)
	if err != nil || pageURL == nil {
		pageURL = &url.URL{}
	}

	article, err := readability.FromReader(bytes.NewReader(page.Body), pageURL)
	if err != nil || strings.TrimSpace(article.TextContent) == "" {
		return "", false
	}

	if format == FormatMarkdown {
		md, err := htmltomarkdown.ConvertString(article.Content)
		if err != nil || strings.TrimSpace(md) == "" {
			return "", false
		}
		return strings.TrimSpace(md), true
	}
	return cleanWhitespace(article.TextContent), true
}

func contentTypeOrUnknown(ct string) string {
	if ct == "" {
		return "unknown content type"
	}
	return ct
}
