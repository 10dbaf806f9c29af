package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/news-digest/app/feed"
)

type mockUpdater struct {
	mu    sync.Mutex
	calls []bool
	stats feed.Stats
	err   error
}

func (m *mockUpdater) Update(ctx context.Context, force bool) (feed.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, force)
	return m.stats, m.err
}

func (m *mockUpdater) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockWatermarks struct {
	mu     sync.Mutex
	values map[string]time.Time
	writes int
	err    error
}

func newMockWatermarks() *mockWatermarks {
	return &mockWatermarks{values: make(map[string]time.Time)}
}

func (m *mockWatermarks) Get(ctx context.Context, source string) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.values[source]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *mockWatermarks) Set(ctx context.Context, source string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.values[source] = updatedAt
	m.writes++
	return nil
}

func newTestOrchestrator(secret string) (*Orchestrator, *mockUpdater, *mockUpdater, *mockWatermarks) {
	hn := &mockUpdater{stats: feed.Stats{Total: 30, Added: 5}}
	sn := &mockUpdater{stats: feed.Stats{Total: 20, Updated: 20}}
	watermarks := newMockWatermarks()

	o := NewOrchestrator(map[string]Updater{
		feed.HackerNews:  hn,
		feed.StartupNews: sn,
	}, watermarks, secret)

	return o, hn, sn, watermarks
}

func TestRefreshUnauthorized(t *testing.T) {
	o, hn, sn, watermarks := newTestOrchestrator("s3cret")

	for _, token := range []string{"", "wrong", "s3cret "} {
		_, err := o.Refresh(context.Background(), All, false, token)
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("Token %q: expected ErrUnauthorized, got %v", token, err)
		}
	}

	if hn.callCount() != 0 || sn.callCount() != 0 {
		t.Errorf("Expected no updater calls, got %d and %d", hn.callCount(), sn.callCount())
	}
	if watermarks.writes != 0 {
		t.Errorf("Expected no watermark writes, got %d", watermarks.writes)
	}
}

func TestRefreshEmptySecretNeverAuthorizes(t *testing.T) {
	o, hn, _, _ := newTestOrchestrator("")

	_, err := o.Refresh(context.Background(), All, false, "")
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
	if hn.callCount() != 0 {
		t.Error("Expected no updater calls")
	}
}

func TestRefreshAll(t *testing.T) {
	o, hn, sn, watermarks := newTestOrchestrator("key")
	now := time.Date(2024, 7, 3, 12, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return now }

	stats, err := o.Refresh(context.Background(), All, false, "key")
	if err != nil {
		t.Fatal(err)
	}

	if len(stats) != 2 {
		t.Fatalf("Expected stats for 2 sources, got %d", len(stats))
	}
	if stats[feed.HackerNews].Total != 30 || stats[feed.StartupNews].Total != 20 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if hn.callCount() != 1 || sn.callCount() != 1 {
		t.Errorf("Expected one call per source")
	}
	if hn.calls[0] || sn.calls[0] {
		t.Error("Expected force=false to be passed through")
	}

	for _, name := range []string{feed.HackerNews, feed.StartupNews} {
		got, _ := watermarks.Get(context.Background(), name)
		if got == nil || !got.Equal(now) {
			t.Errorf("Expected watermark of %s to be %v, got %v", name, now, got)
		}
	}
}

func TestRefreshSingleSourceForced(t *testing.T) {
	o, hn, sn, watermarks := newTestOrchestrator("key")
	before := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	watermarks.values[feed.StartupNews] = before

	stats, err := o.Refresh(context.Background(), Selector(feed.HackerNews), true, "key")
	if err != nil {
		t.Fatal(err)
	}

	if len(stats) != 1 {
		t.Errorf("Expected stats for 1 source, got %d", len(stats))
	}
	if _, ok := stats[feed.HackerNews]; !ok {
		t.Error("Expected hackernews stats")
	}
	if hn.callCount() != 1 || !hn.calls[0] {
		t.Errorf("Expected hackernews to be updated once with force=true, got %v", hn.calls)
	}
	if sn.callCount() != 0 {
		t.Errorf("Expected startupnews not to be updated")
	}

	got, _ := watermarks.Get(context.Background(), feed.StartupNews)
	if got == nil || !got.Equal(before) {
		t.Errorf("Expected startupnews watermark untouched, got %v", got)
	}
	if hnMark, _ := watermarks.Get(context.Background(), feed.HackerNews); hnMark == nil {
		t.Error("Expected hackernews watermark to be set")
	}
}

func TestRefreshUnknownSource(t *testing.T) {
	o, hn, sn, _ := newTestOrchestrator("key")

	_, err := o.Refresh(context.Background(), Selector("lobsters"), false, "key")
	if !errors.Is(err, ErrUnknownSource) {
		t.Errorf("Expected ErrUnknownSource, got %v", err)
	}
	if hn.callCount() != 0 || sn.callCount() != 0 {
		t.Error("Expected no updater calls")
	}
}

func TestRefreshUpstreamFailure(t *testing.T) {
	o, hn, sn, watermarks := newTestOrchestrator("key")
	upstreamErr := errors.New("connection refused")
	sn.err = upstreamErr

	stats, err := o.Refresh(context.Background(), All, false, "key")
	if stats != nil {
		t.Errorf("Expected no stats on failure, got %+v", stats)
	}

	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("Expected UpstreamError, got %v", err)
	}
	if ue.Source != feed.StartupNews {
		t.Errorf("Expected failing source 'startupnews', got '%s'", ue.Source)
	}
	if !errors.Is(err, upstreamErr) {
		t.Error("Expected UpstreamError to wrap the cause")
	}

	// Every selected source is attempted
	if hn.callCount() != 1 || sn.callCount() != 1 {
		t.Errorf("Expected both sources to be attempted")
	}
	if _, ok := watermarks.values[feed.StartupNews]; ok {
		t.Error("Failed source must not get a watermark")
	}
	if _, ok := watermarks.values[feed.HackerNews]; !ok {
		t.Error("Successful source should still get a watermark")
	}
}

func TestRefreshWatermarkFailure(t *testing.T) {
	o, _, _, watermarks := newTestOrchestrator("key")
	watermarks.err = errors.New("redis down")

	_, err := o.Refresh(context.Background(), Selector(feed.HackerNews), false, "key")

	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("Expected UpstreamError, got %v", err)
	}
}

func TestRunSkipsAuthorization(t *testing.T) {
	o, hn, _, _ := newTestOrchestrator("")

	stats, err := o.Run(context.Background(), []string{feed.HackerNews}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 1 || hn.callCount() != 1 {
		t.Errorf("Expected one update, got stats %+v", stats)
	}

	if _, err := o.Run(context.Background(), []string{"lobsters"}, false); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("Expected ErrUnknownSource, got %v", err)
	}
}

func TestNames(t *testing.T) {
	o, _, _, _ := newTestOrchestrator("")

	names := o.Names()
	if len(names) != 2 || names[0] != feed.HackerNews || names[1] != feed.StartupNews {
		t.Errorf("Unexpected names: %v", names)
	}
}

func TestRunKeepsWatermarkWhenSkipped(t *testing.T) {
	o, hn, _, watermarks := newTestOrchestrator("key")
	scraped := time.Date(2024, 7, 3, 12, 0, 0, 0, time.UTC)
	watermarks.values[feed.HackerNews] = scraped

	hn.stats = feed.Stats{Skipped: true, Total: 30}
	o.now = func() time.Time { return scraped.Add(9 * time.Minute) }

	stats, err := o.Run(context.Background(), []string{feed.HackerNews}, false)
	if err != nil {
		t.Fatal(err)
	}
	if !stats[feed.HackerNews].Skipped {
		t.Error("Expected skipped stats to be returned")
	}

	got, _ := watermarks.Get(context.Background(), feed.HackerNews)
	if got == nil || !got.Equal(scraped) {
		t.Errorf("Expected watermark to stay at %v, got %v", scraped, got)
	}
	if watermarks.writes != 0 {
		t.Errorf("Expected no watermark writes, got %d", watermarks.writes)
	}
}

func TestRefreshSkippedStillSetsWatermark(t *testing.T) {
	o, hn, _, watermarks := newTestOrchestrator("key")
	scraped := time.Date(2024, 7, 3, 12, 0, 0, 0, time.UTC)
	watermarks.values[feed.HackerNews] = scraped

	now := scraped.Add(2 * time.Minute)
	hn.stats = feed.Stats{Skipped: true}
	o.now = func() time.Time { return now }

	if _, err := o.Refresh(context.Background(), Selector(feed.HackerNews), false, "key"); err != nil {
		t.Fatal(err)
	}

	got, _ := watermarks.Get(context.Background(), feed.HackerNews)
	if got == nil || !got.Equal(now) {
		t.Errorf("Expected watermark %v, got %v", now, got)
	}
}

func TestRunReportsFailuresInNameOrder(t *testing.T) {
	for i := 0; i < 20; i++ {
		o, hn, sn, _ := newTestOrchestrator("key")
		hn.err = errors.New("hackernews down")
		sn.err = errors.New("startupnews down")

		_, err := o.Run(context.Background(), []string{feed.StartupNews, feed.HackerNews}, false)

		var ue *UpstreamError
		if !errors.As(err, &ue) {
			t.Fatalf("Expected UpstreamError, got %v", err)
		}
		if ue.Source != feed.StartupNews {
			t.Fatalf("Run %d: expected 'startupnews' to be reported, got '%s'", i, ue.Source)
		}
	}
}
