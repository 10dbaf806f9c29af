package refresh

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/news-digest/app/database"
	"github.com/lysyi3m/news-digest/app/feed"
)

// Selector names the sources a refresh applies to. All selects every
// registered source.
type Selector string

const All Selector = ""

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrUnknownSource = feed.ErrUnknownSource
)

// UpstreamError reports a source whose update failed.
type UpstreamError struct {
	Source string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("update %s: %v", e.Source, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Updater refreshes the stored snapshot of one source.
type Updater interface {
	Update(ctx context.Context, force bool) (feed.Stats, error)
}

type Orchestrator struct {
	updaters   map[string]Updater
	watermarks database.WatermarkStore
	secret     string
	now        func() time.Time
}

func NewOrchestrator(updaters map[string]Updater, watermarks database.WatermarkStore, secret string) *Orchestrator {
	return &Orchestrator{
		updaters:   updaters,
		watermarks: watermarks,
		secret:     secret,
		now:        time.Now,
	}
}

// Refresh authorizes token and updates the selected sources.
func (o *Orchestrator) Refresh(ctx context.Context, sel Selector, force bool, token string) (map[string]feed.Stats, error) {
	if !o.authorized(token) {
		return nil, ErrUnauthorized
	}

	names, err := o.resolve(sel)
	if err != nil {
		return nil, err
	}

	return o.run(ctx, names, force, true)
}

// Run updates the named sources concurrently without authorization. Every
// source is attempted; the first failure in names order is returned. A
// source that skipped its update keeps its watermark.
func (o *Orchestrator) Run(ctx context.Context, names []string, force bool) (map[string]feed.Stats, error) {
	return o.run(ctx, names, force, false)
}

func (o *Orchestrator) run(ctx context.Context, names []string, force, markSkipped bool) (map[string]feed.Stats, error) {
	for _, name := range names {
		if _, ok := o.updaters[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSource, name)
		}
	}

	var (
		mu    sync.Mutex
		stats = make(map[string]feed.Stats, len(names))
		errs  = make(map[string]error, len(names))
		g     errgroup.Group
	)

	for _, name := range names {
		updater := o.updaters[name]
		g.Go(func() error {
			result, err := o.update(ctx, name, updater, force, markSkipped)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[name] = err
				return err
			}
			stats[name] = result
			return nil
		})
	}
	_ = g.Wait()

	for _, name := range names {
		if err, ok := errs[name]; ok {
			return nil, &UpstreamError{Source: name, Err: err}
		}
	}
	return stats, nil
}

func (o *Orchestrator) update(ctx context.Context, name string, updater Updater, force, markSkipped bool) (feed.Stats, error) {
	start := o.now()

	result, err := updater.Update(ctx, force)
	if err != nil {
		slog.Error("Source update failed", "source", name, "force", force, "error", err)
		return feed.Stats{}, err
	}

	if result.Skipped && !markSkipped {
		slog.Debug("Source update skipped, watermark kept", "source", name)
		return result, nil
	}

	if err := o.watermarks.Set(ctx, name, o.now().UTC()); err != nil {
		slog.Error("Failed to store watermark", "source", name, "error", err)
		return feed.Stats{}, fmt.Errorf("failed to store watermark: %w", err)
	}

	slog.Debug("Source update finished", "source", name, "force", force, "skipped", result.Skipped, "duration", o.now().Sub(start))
	return result, nil
}

// Names lists the registered sources in a stable order.
func (o *Orchestrator) Names() []string {
	names := make([]string, 0, len(o.updaters))
	for name := range o.updaters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (o *Orchestrator) resolve(sel Selector) ([]string, error) {
	if sel == All {
		return o.Names(), nil
	}
	if _, ok := o.updaters[string(sel)]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, sel)
	}
	return []string{string(sel)}, nil
}

func (o *Orchestrator) authorized(token string) bool {
	if o.secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(o.secret)) == 1
}
