package database

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

type NewsRepository interface {
	ReplaceNews(ctx context.Context, source string, items []News, fetchedAt time.Time) (ReplaceResult, error)
	ListByRank(ctx context.Context, source string) ([]News, error)
	ListAll(ctx context.Context, source string) ([]News, error)
	LatestFetch(ctx context.Context, source string) (*time.Time, error)
	GetSummaries(ctx context.Context, source string) (map[string]Summary, error)
	GetNewsCount(ctx context.Context, source string) (int, error)
}

// WatermarkStore keeps one last-updated timestamp per source under
// independent keys. Get returns nil when the source was never refreshed.
type WatermarkStore interface {
	Get(ctx context.Context, source string) (*time.Time, error)
	Set(ctx context.Context, source string, updatedAt time.Time) error
}

// ImageStore holds immutable image assets. Put never overwrites an existing id.
type ImageStore interface {
	Get(ctx context.Context, id string) (*Image, error)
	Put(ctx context.Context, image Image) error
	Exists(ctx context.Context, id string) (bool, error)
}

var (
	_ NewsRepository = (*NewsRepo)(nil)
	_ WatermarkStore = (*WatermarkRepository)(nil)
	_ ImageStore     = (*ImageRepository)(nil)
)
