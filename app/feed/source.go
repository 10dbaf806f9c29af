package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/news-digest/app/database"
)

const (
	maxImageBytes = 2 << 20
	imageIDLength = 16
)

// Source keeps the stored snapshot of one listing site up to date.
type Source struct {
	name        string
	configCache *ConfigCache
	fetcher     *Fetcher
	scraper     *Scraper
	filterer    *Filterer
	extractor   *ContentExtractor
	newsRepo    database.NewsRepository
	imageStore  database.ImageStore
	now         func() time.Time
}

func NewSource(name string, configCache *ConfigCache, fetcher *Fetcher, scraper *Scraper, filterer *Filterer,
	extractor *ContentExtractor, newsRepo database.NewsRepository, imageStore database.ImageStore) (*Source, error) {
	if !IsKnownSource(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}

	return &Source{
		name:        name,
		configCache: configCache,
		fetcher:     fetcher,
		scraper:     scraper,
		filterer:    filterer,
		extractor:   extractor,
		newsRepo:    newsRepo,
		imageStore:  imageStore,
		now:         time.Now,
	}, nil
}

func (s *Source) Name() string {
	return s.name
}

// Update scrapes the listing page and replaces the stored snapshot. Unless
// force is set, a source scraped within its refresh interval is skipped.
func (s *Source) Update(ctx context.Context, force bool) (Stats, error) {
	sourceConfig, err := s.configCache.GetConfig(s.name)
	if err != nil {
		return Stats{}, err
	}

	now := s.now().UTC()

	if !force {
		lastFetch, err := s.newsRepo.LatestFetch(ctx, s.name)
		if err != nil {
			return Stats{}, fmt.Errorf("failed to read last fetch time: %w", err)
		}
		interval := time.Duration(sourceConfig.Settings.RefreshInterval) * time.Second
		if lastFetch != nil && now.Sub(*lastFetch) < interval {
			count, err := s.newsRepo.GetNewsCount(ctx, s.name)
			if err != nil {
				return Stats{}, fmt.Errorf("failed to count news: %w", err)
			}
			slog.Debug("Source refreshed recently, skipping", "source", s.name, "last_fetch", lastFetch)
			return Stats{Skipped: true, Total: count}, nil
		}
	}

	timeout := time.Duration(sourceConfig.Settings.Timeout) * time.Second
	resp, err := s.fetcher.Get(ctx, sourceConfig.URL, timeout)
	if err != nil {
		return Stats{}, err
	}

	scraped, err := s.scraper.Run(resp.Text(), resp.URL)
	if err != nil {
		return Stats{}, err
	}
	if len(scraped) == 0 {
		return Stats{}, fmt.Errorf("no entries found on %s", sourceConfig.URL)
	}

	var stats Stats
	items := make([]Item, 0, len(scraped))
	for _, item := range s.filterer.Run(scraped, sourceConfig) {
		if item.IsFiltered {
			slog.Debug("Entry filtered", "source", s.name, "id", item.ID, "reason", item.FilterReason)
			stats.Filtered++
			continue
		}
		items = append(items, item)
	}
	if len(items) > sourceConfig.Settings.MaxItems {
		items = items[:sourceConfig.Settings.MaxItems]
	}

	existing, err := s.newsRepo.GetSummaries(ctx, s.name)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to load summaries: %w", err)
	}

	news := make([]database.News, len(items))
	for i, item := range items {
		news[i] = s.toNews(item, now)
		if summary, ok := existing[item.ID]; ok {
			news[i].Summary = summary.Summary
			news[i].ImageID = summary.ImageID
		}
	}

	if sourceConfig.Settings.FetchSummaries {
		stats.Summaries = s.summarize(ctx, sourceConfig, news, existing)
	}

	result, err := s.newsRepo.ReplaceNews(ctx, s.name, news, now)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to store news: %w", err)
	}

	stats.Total = len(news)
	stats.Added = result.Added
	stats.Updated = result.Updated
	stats.Removed = result.Removed

	slog.Info("Source updated",
		"source", s.name,
		"total", stats.Total,
		"added", stats.Added,
		"updated", stats.Updated,
		"removed", stats.Removed,
		"filtered", stats.Filtered,
		"summaries", stats.Summaries)

	return stats, nil
}

// summarize fills summary and image of entries not seen before. Failures are
// logged and leave the entry without a summary.
func (s *Source) summarize(ctx context.Context, sourceConfig *Config, news []database.News, existing map[string]database.Summary) int {
	timeout := time.Duration(sourceConfig.Settings.Timeout) * time.Second
	done := make([]bool, len(news))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sourceConfig.Settings.SummaryWorkers)

	for i := range news {
		if _, ok := existing[news[i].ID]; ok {
			continue
		}
		if !strings.HasPrefix(news[i].URL, "http") {
			continue
		}

		g.Go(func() error {
			resp, err := s.fetcher.Get(gctx, news[i].URL, timeout)
			if err != nil {
				slog.Debug("Failed to fetch article", "source", s.name, "url", news[i].URL, "error", err)
				return nil
			}

			extract, err := s.extractor.Run([]byte(resp.Text()), resp.URL)
			if err != nil {
				slog.Debug("Failed to extract summary", "source", s.name, "url", news[i].URL, "error", err)
				return nil
			}

			news[i].Summary = extract.Summary
			if extract.ImageURL != "" {
				imageID, err := s.storeImage(gctx, extract.ImageURL, timeout)
				if err != nil {
					slog.Debug("Failed to store image", "source", s.name, "url", extract.ImageURL, "error", err)
				} else {
					news[i].ImageID = imageID
				}
			}
			done[i] = true
			return nil
		})
	}
	_ = g.Wait()

	count := 0
	for _, ok := range done {
		if ok {
			count++
		}
	}
	return count
}

func (s *Source) storeImage(ctx context.Context, imageURL string, timeout time.Duration) (string, error) {
	id := ImageID(imageURL)

	exists, err := s.imageStore.Exists(ctx, id)
	if err != nil {
		return "", err
	}
	if exists {
		return id, nil
	}

	resp, err := s.fetcher.Get(ctx, imageURL, timeout)
	if err != nil {
		return "", err
	}
	if len(resp.Body) > maxImageBytes {
		return "", fmt.Errorf("image too large: %d bytes", len(resp.Body))
	}

	mtype := mimetype.Detect(resp.Body)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", fmt.Errorf("not an image: %s", mtype.String())
	}

	err = s.imageStore.Put(ctx, database.Image{
		ID:          id,
		ContentType: mtype.String(),
		Data:        resp.Body,
		CreatedAt:   s.now().UTC(),
	})
	if err != nil {
		return "", err
	}

	return id, nil
}

func (s *Source) toNews(item Item, fetchedAt time.Time) database.News {
	return database.News{
		Source:       s.name,
		ID:           item.ID,
		Rank:         item.Rank,
		Title:        item.Title,
		URL:          item.URL,
		Comhead:      item.Comhead,
		Author:       item.Author,
		Score:        item.Score,
		CommentCount: item.CommentCount,
		CommentURL:   item.CommentURL,
		SubmitTime:   item.SubmitTime,
		FetchedAt:    fetchedAt,
	}
}

// ImageID derives the content-addressed id of an image from its source URL.
func ImageID(imageURL string) string {
	sum := sha256.Sum256([]byte(imageURL))
	return hex.EncodeToString(sum[:])[:imageIDLength]
}
