package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/news-digest/app/database"
	"github.com/redis/go-redis/v9"
)

var _ database.WatermarkStore = (*WatermarkCache)(nil)

// WatermarkCache keeps last-updated watermarks in Redis, one key per source.
type WatermarkCache struct {
	client *redis.Client
	prefix string
}

// NewWatermarkCache connects to the Redis instance at url.
func NewWatermarkCache(url string) (*WatermarkCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Connected to Redis", "addr", opt.Addr)

	return &WatermarkCache{
		client: client,
		prefix: "lastupdated:",
	}, nil
}

// Key returns the Redis key holding the watermark of source.
func (c *WatermarkCache) Key(source string) string {
	return c.prefix + source
}

func (c *WatermarkCache) Get(ctx context.Context, source string) (*time.Time, error) {
	val, err := c.client.Get(ctx, c.Key(source)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", c.Key(source), err)
	}

	return parseWatermark(val)
}

func (c *WatermarkCache) Set(ctx context.Context, source string, updatedAt time.Time) error {
	err := c.client.Set(ctx, c.Key(source), formatWatermark(updatedAt), 0).Err()
	if err != nil {
		return fmt.Errorf("failed to set key %s: %w", c.Key(source), err)
	}
	return nil
}

// Close closes the Redis connection
func (c *WatermarkCache) Close() error {
	return c.client.Close()
}

func formatWatermark(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseWatermark(val string) (*time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return nil, fmt.Errorf("invalid watermark value %q: %w", val, err)
	}
	t = t.UTC()
	return &t, nil
}
