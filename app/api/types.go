package api

import (
	"context"
	"time"

	"github.com/lysyi3m/news-digest/app/database"
	"github.com/lysyi3m/news-digest/app/feed"
	"github.com/lysyi3m/news-digest/app/refresh"
)

type GeneratorInterface interface {
	Run(doc *feed.Document) (string, error)
}

type AssemblerInterface interface {
	Build(ctx context.Context, sourceName, selfURL, alternateURL string, now time.Time) (*feed.Document, error)
}

type RefresherInterface interface {
	Refresh(ctx context.Context, sel refresh.Selector, force bool, token string) (map[string]feed.Stats, error)
}

var (
	_ GeneratorInterface = (*feed.Generator)(nil)
	_ AssemblerInterface = (*feed.Assembler)(nil)
	_ RefresherInterface = (*refresh.Orchestrator)(nil)
)

type Handler struct {
	configCache *feed.ConfigCache
	newsRepo    database.NewsRepository
	watermarks  database.WatermarkStore
	images      database.ImageStore
	assembler   AssemblerInterface
	generator   GeneratorInterface
	refresher   RefresherInterface
	baseURL     string
	version     string
	now         func() time.Time
}

// digestPage is the view model of the digest template.
type digestPage struct {
	Title       string
	Source      string
	FeedURL     string
	Navs        []feed.Nav
	News        []newsView
	LastUpdated string
	Version     string
}

type newsView struct {
	Rank         int
	Title        string
	URL          string
	Comhead      string
	Author       string
	Score        string
	CommentCount int
	CommentURL   string
	SubmitTime   string
	Summary      string
	ImageURL     string
}
