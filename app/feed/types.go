package feed

import (
	"errors"
	"time"

	"github.com/lysyi3m/news-digest/app/timeago"
)

// Known sources. The set is closed: configuration may tune a source but never
// add a new one.
const (
	HackerNews  = "hackernews"
	StartupNews = "startupnews"
)

var KnownSources = []string{HackerNews, StartupNews}

var ErrUnknownSource = errors.New("unknown source")

func IsKnownSource(name string) bool {
	for _, known := range KnownSources {
		if name == known {
			return true
		}
	}
	return false
}

// Scraping types

type Item struct {
	ID           string
	Rank         int
	Title        string
	URL          string
	Comhead      string
	Author       string
	Score        int
	CommentCount int
	CommentURL   string
	SubmitTime   timeago.Phrase

	IsFiltered   bool
	FilterReason string
}

// Stats describes the outcome of one source update.
type Stats struct {
	Skipped   bool `json:"skipped"`
	Total     int  `json:"total"`
	Added     int  `json:"added"`
	Updated   int  `json:"updated"`
	Removed   int  `json:"removed"`
	Filtered  int  `json:"filtered"`
	Summaries int  `json:"summaries"`
}

// Feed output types

type Document struct {
	Title        string
	SelfURL      string
	AlternateURL string
	Author       string
	Updated      time.Time
	Entries      []Entry
}

type Entry struct {
	ID        string
	Title     string
	Summary   string
	Author    string
	Link      string
	Updated   time.Time
	Published time.Time
}

// Configuration types

type Config struct {
	Name      string         `yaml:"-" validate:"required"` // Derived from filename (without .yml extension)
	Title     string         `yaml:"title" validate:"required"`
	FeedTitle string         `yaml:"feed_title" validate:"required"`
	URL       string         `yaml:"url" validate:"required,url"`
	Navs      []Nav          `yaml:"navs" validate:"dive"`
	Settings  ConfigSettings `yaml:"settings"`
	Filters   []ConfigFilter `yaml:"filters" validate:"dive"`
}

type Nav struct {
	Name string `yaml:"name" validate:"required"`
	URL  string `yaml:"url" validate:"required,url"`
}

type ConfigSettings struct {
	RefreshInterval int  `yaml:"refresh_interval" validate:"gte=0"` // seconds
	MaxItems        int  `yaml:"max_items" validate:"gte=1"`
	Timeout         int  `yaml:"timeout" validate:"gte=1"` // seconds
	FetchSummaries  bool `yaml:"fetch_summaries"`
	SummaryWorkers  int  `yaml:"summary_workers" validate:"gte=1"`
}

type ConfigFilter struct {
	Field    string   `yaml:"field" validate:"oneof=title url site author"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}
