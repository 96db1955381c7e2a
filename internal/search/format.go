package search

import (
	"strconv"
	"strings"
)

// FormatResults builds a human-readable, numbered result list.
func FormatResults(query string, results []Result) string {
	if len(results) == 0 {
		return "No results found for: " + query
	}

	var b strings.Builder
	b.WriteString("Search results for: ")
	b.WriteString(query)
	for i, r := range results {
		b.WriteString("\n\n")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(r.Title)
		b.WriteString("\n   ")
		b.WriteString(r.URL)
		if r.Snippet != "" {
			b.WriteString("\n   ")
			b.WriteString(r.Snippet)
		}
	}
	return b.String()
}
