package usecases_test

import (
	"context"
	"sync"
	"time"

	"github.com/samirrijal/footpath/internal/core/domain"
	"github.com/samirrijal/footpath/internal/core/ports"
)

// --- Mock snapshot store ---

type mockStore struct {
	mu sync.Mutex

	points     []domain.Point
	hasPoints  bool
	entries    map[string]domain.DistanceEntry
	hasEntries bool
	entrySaves int
	pointSaves int
	loadPtsErr error
	loadEntErr error
	saveEntErr error
	savePtsErr error
}

func (m *mockStore) LoadPoints(ctx context.Context) ([]domain.Point, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadPtsErr != nil {
		return nil, m.loadPtsErr
	}
	if !m.hasPoints {
		return nil, ports.ErrSnapshotNotFound
	}
	return append([]domain.Point(nil), m.points...), nil
}

func (m *mockStore) SavePoints(ctx context.Context, points []domain.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pointSaves++
	if m.savePtsErr != nil {
		return m.savePtsErr
	}
	m.points = append([]domain.Point(nil), points...)
	m.hasPoints = true
	return nil
}

func (m *mockStore) LoadEntries(ctx context.Context) (map[string]domain.DistanceEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadEntErr != nil {
		return nil, m.loadEntErr
	}
	if !m.hasEntries {
		return nil, ports.ErrSnapshotNotFound
	}
	out := make(map[string]domain.DistanceEntry, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out, nil
}

func (m *mockStore) SaveEntries(ctx context.Context, entries map[string]domain.DistanceEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entrySaves++
	if m.saveEntErr != nil {
		return m.saveEntErr
	}
	m.entries = make(map[string]domain.DistanceEntry, len(entries))
	for k, v := range entries {
		m.entries[k] = v
	}
	m.hasEntries = true
	return nil
}

func (m *mockStore) saved() (map[string]domain.DistanceEntry, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries, m.entrySaves
}

// --- Mock routing provider ---

type mockProvider struct {
	name      string
	resolveFn func(ctx context.Context, origin, dest domain.Coordinate) (domain.DistanceEntry, error)

	mu    sync.Mutex
	calls int
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) ResolveDistance(ctx context.Context, origin, dest domain.Coordinate) (domain.DistanceEntry, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.resolveFn != nil {
		return m.resolveFn(ctx, origin, dest)
	}
	return domain.DistanceEntry{}, nil
}

func (m *mockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- Mock directory ---

type mockDirectory struct {
	fetchFn func(ctx context.Context) ([]domain.Point, error)
}

func (m *mockDirectory) FetchPoints(ctx context.Context) ([]domain.Point, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx)
	}
	return nil, nil
}

// --- Mock publisher ---

type mockPublisher struct {
	mu        sync.Mutex
	refreshed []int
	cleared   []int
	limited   []string
}

func (m *mockPublisher) PublishPointsRefreshed(ctx context.Context, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshed = append(m.refreshed, count)
	return nil
}

func (m *mockPublisher) PublishCacheCleared(ctx context.Context, cleared int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared = append(m.cleared, cleared)
	return nil
}

func (m *mockPublisher) PublishRateLimited(ctx context.Context, class, client string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limited = append(m.limited, class+":"+client)
	return nil
}

// --- Fake clock ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
