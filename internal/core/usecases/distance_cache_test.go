package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/samirrijal/footpath/internal/core/domain"
	"github.com/samirrijal/footpath/internal/core/usecases"
)

func TestCacheKey(t *testing.T) {
	tests := []struct {
		name        string
		origin      domain.Coordinate
		destination domain.Coordinate
		want        string
	}{
		{"rounds origin only", domain.Coordinate{Lat: 44.83761234, Lon: -0.57918765}, domain.Coordinate{Lat: 44.838, Lon: -0.5792}, "44.8376,-0.5792,44.838,-0.5792"},
		{"whole numbers keep a decimal point", domain.Coordinate{Lat: 0, Lon: 0}, domain.Coordinate{Lat: 1, Lon: 1}, "0.0,0.0,1.0,1.0"},
		{"trailing zeros trimmed", domain.Coordinate{Lat: 44.8, Lon: -0.5}, domain.Coordinate{Lat: 44.12345678, Lon: 2.5}, "44.8,-0.5,44.12345678,2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := usecases.CacheKey(tt.origin, tt.destination, 4)
			if got != tt.want {
				t.Errorf("CacheKey = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCacheKey_NearbyOriginsCollapse(t *testing.T) {
	dest := domain.Coordinate{Lat: 44.838, Lon: -0.5792}
	a := usecases.CacheKey(domain.Coordinate{Lat: 44.837612, Lon: -0.579188}, dest, 4)
	b := usecases.CacheKey(domain.Coordinate{Lat: 44.837634, Lon: -0.579171}, dest, 4)
	if a != b {
		t.Errorf("expected same key, got %q and %q", a, b)
	}
}

func TestDistanceCache_LoadMissingCreatesSnapshot(t *testing.T) {
	store := &mockStore{}
	c := usecases.NewDistanceCache(store)

	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d", c.Len())
	}
	if _, saves := store.saved(); saves != 1 {
		t.Errorf("expected empty snapshot to be written once, got %d", saves)
	}
}

func TestDistanceCache_LoadExisting(t *testing.T) {
	store := &mockStore{
		hasEntries: true,
		entries:    map[string]domain.DistanceEntry{"k": {DistanceMeters: 60, DurationSeconds: 43}},
	}
	c := usecases.NewDistanceCache(store)

	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e, ok := c.Get("k")
	if !ok || e.DistanceMeters != 60 {
		t.Errorf("expected loaded entry, got %+v ok=%v", e, ok)
	}
}

func TestDistanceCache_LoadCorrupt(t *testing.T) {
	store := &mockStore{loadEntErr: errors.New("unexpected end of JSON input")}
	c := usecases.NewDistanceCache(store)

	err := c.Load(context.Background())
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if c.Len() != 0 {
		t.Error("expected empty in-memory cache")
	}
}

func TestDistanceCache_PutPersists(t *testing.T) {
	store := &mockStore{}
	c := usecases.NewDistanceCache(store)

	entry := domain.DistanceEntry{DistanceMeters: 60, DurationSeconds: 43}
	if err := c.Put(context.Background(), "a", entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved, _ := store.saved()
	if saved["a"] != entry {
		t.Errorf("expected entry persisted, got %+v", saved)
	}
}

func TestDistanceCache_PutPersistFailureKeepsEntry(t *testing.T) {
	store := &mockStore{saveEntErr: errors.New("disk full")}
	c := usecases.NewDistanceCache(store)

	err := c.Put(context.Background(), "a", domain.DistanceEntry{DistanceMeters: 1})
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("entry must still be served from memory")
	}
}

func TestDistanceCache_StageThenFlush(t *testing.T) {
	store := &mockStore{}
	c := usecases.NewDistanceCache(store)

	for i := 0; i < 10; i++ {
		c.Stage(fmt.Sprintf("k%d", i), domain.DistanceEntry{DistanceMeters: i})
	}
	if _, saves := store.saved(); saves != 0 {
		t.Fatalf("stage must not write, got %d writes", saves)
	}

	if err := c.Flush(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	saved, saves := store.saved()
	if saves != 1 || len(saved) != 10 {
		t.Errorf("expected one write of 10 entries, got %d writes of %d", saves, len(saved))
	}
}

func TestDistanceCache_Clear(t *testing.T) {
	store := &mockStore{}
	c := usecases.NewDistanceCache(store)
	ctx := context.Background()

	_ = c.Put(ctx, "a", domain.DistanceEntry{DistanceMeters: 1})
	_ = c.Put(ctx, "b", domain.DistanceEntry{DistanceMeters: 2})

	n, err := c.Clear(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 cleared, got %d", n)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d", c.Len())
	}
	if saved, _ := store.saved(); len(saved) != 0 {
		t.Errorf("expected empty snapshot, got %d entries", len(saved))
	}
}

func TestDistanceCache_ConcurrentPutsAllPersisted(t *testing.T) {
	store := &mockStore{}
	c := usecases.NewDistanceCache(store)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = c.Put(context.Background(), fmt.Sprintf("k%d", i), domain.DistanceEntry{DistanceMeters: i})
		}(i)
	}
	wg.Wait()

	saved, _ := store.saved()
	if len(saved) != 50 {
		t.Errorf("expected the last snapshot to hold all 50 entries, got %d", len(saved))
	}
}
