package feed

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lysyi3m/news-digest/app/database"
)

type mockNewsRepository struct {
	mu        sync.Mutex
	news      map[string][]database.News
	fetchedAt map[string]time.Time
	replaced  int
}

func newMockNewsRepository() *mockNewsRepository {
	return &mockNewsRepository{
		news:      make(map[string][]database.News),
		fetchedAt: make(map[string]time.Time),
	}
}

func (m *mockNewsRepository) ReplaceNews(ctx context.Context, source string, items []database.News, fetchedAt time.Time) (database.ReplaceResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old := make(map[string]bool)
	for _, n := range m.news[source] {
		old[n.ID] = true
	}

	var result database.ReplaceResult
	seen := make(map[string]bool)
	for _, n := range items {
		seen[n.ID] = true
		if old[n.ID] {
			result.Updated++
		} else {
			result.Added++
		}
	}
	for id := range old {
		if !seen[id] {
			result.Removed++
		}
	}

	m.news[source] = append([]database.News(nil), items...)
	m.fetchedAt[source] = fetchedAt
	m.replaced++
	return result, nil
}

func (m *mockNewsRepository) ListByRank(ctx context.Context, source string) ([]database.News, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	news := append([]database.News(nil), m.news[source]...)
	sort.Slice(news, func(i, j int) bool { return news[i].Rank < news[j].Rank })
	return news, nil
}

func (m *mockNewsRepository) ListAll(ctx context.Context, source string) ([]database.News, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]database.News(nil), m.news[source]...), nil
}

func (m *mockNewsRepository) LatestFetch(ctx context.Context, source string) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.fetchedAt[source]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *mockNewsRepository) GetSummaries(ctx context.Context, source string) (map[string]database.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	summaries := make(map[string]database.Summary)
	for _, n := range m.news[source] {
		if n.Summary != "" || n.ImageID != "" {
			summaries[n.ID] = database.Summary{Summary: n.Summary, ImageID: n.ImageID}
		}
	}
	return summaries, nil
}

func (m *mockNewsRepository) GetNewsCount(ctx context.Context, source string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.news[source]), nil
}

type mockImageStore struct {
	mu     sync.Mutex
	images map[string]database.Image
}

func newMockImageStore() *mockImageStore {
	return &mockImageStore{images: make(map[string]database.Image)}
}

func (m *mockImageStore) Get(ctx context.Context, id string) (*database.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	img, ok := m.images[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &img, nil
}

func (m *mockImageStore) Put(ctx context.Context, image database.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.images[image.ID]; !ok {
		m.images[image.ID] = image
	}
	return nil
}

func (m *mockImageStore) Exists(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.images[id]
	return ok, nil
}
