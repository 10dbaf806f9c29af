package feed

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
)

const maxSummaryRunes = 300

type ContentExtractor struct{}

type Extract struct {
	Summary  string
	ImageURL string
}

func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{}
}

// Run pulls a short plain-text summary and the lead image out of an
// article page.
func (e *ContentExtractor) Run(data []byte, pageURL string) (*Extract, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("HTML data is empty")
	}

	var base *url.URL
	if pageURL != "" {
		parsed, err := url.Parse(pageURL)
		if err != nil {
			return nil, fmt.Errorf("invalid page URL %s: %w", pageURL, err)
		}
		base = parsed
	}

	article, err := readability.FromReader(strings.NewReader(string(data)), base)
	if err != nil {
		return nil, fmt.Errorf("failed to extract content: %w", err)
	}

	summary := strings.TrimSpace(article.Excerpt)
	if summary == "" {
		summary = strings.TrimSpace(article.TextContent)
	}
	if summary == "" {
		return nil, fmt.Errorf("no content extracted from HTML data")
	}

	extract := &Extract{
		Summary:  truncate(strings.Join(strings.Fields(summary), " "), maxSummaryRunes),
		ImageURL: article.Image,
	}

	slog.Debug("Content extracted successfully",
		"title", article.Title,
		"summary_length", len(extract.Summary),
		"has_image", extract.ImageURL != "")

	return extract, nil
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
