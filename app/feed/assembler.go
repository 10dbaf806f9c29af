package feed

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/lysyi3m/news-digest/app/database"
)

// Assembler turns a source's stored entries into a feed document, newest
// first, with submit times resolved against the request time.
type Assembler struct {
	configCache *ConfigCache
	newsRepo    database.NewsRepository
	author      string
}

func NewAssembler(configCache *ConfigCache, newsRepo database.NewsRepository, author string) *Assembler {
	return &Assembler{
		configCache: configCache,
		newsRepo:    newsRepo,
		author:      author,
	}
}

func (a *Assembler) Build(ctx context.Context, sourceName, selfURL, alternateURL string, now time.Time) (*Document, error) {
	sourceConfig, err := a.configCache.GetConfig(sourceName)
	if err != nil {
		return nil, err
	}

	news, err := a.newsRepo.ListAll(ctx, sourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to load news for %s: %w", sourceName, err)
	}

	entries := make([]Entry, 0, len(news))
	for _, n := range news {
		published := n.SubmitTime.Resolve(now)
		entries = append(entries, Entry{
			ID:        entryID(n),
			Title:     n.Title,
			Summary:   n.Summary,
			Author:    n.Author,
			Link:      n.URL,
			Updated:   published,
			Published: published,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Updated.After(entries[j].Updated)
	})

	updated := now
	if len(entries) > 0 {
		updated = entries[0].Updated
	}

	return &Document{
		Title:        sourceConfig.FeedTitle,
		SelfURL:      selfURL,
		AlternateURL: alternateURL,
		Author:       a.author,
		Updated:      updated,
		Entries:      entries,
	}, nil
}

func entryID(n database.News) string {
	if n.CommentURL != "" {
		return n.CommentURL
	}
	if n.URL != "" {
		return n.URL
	}
	return fmt.Sprintf("tag:%s,%s", n.Source, n.ID)
}
