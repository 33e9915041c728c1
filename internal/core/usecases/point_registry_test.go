package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/samirrijal/footpath/internal/core/domain"
	"github.com/samirrijal/footpath/internal/core/usecases"
)

var testPoints = []domain.Point{
	{ID: "1", Lat: 44.838, Lon: -0.5792, Name: "Place de la Bourse"},
	{ID: "2", Lat: 44.8412, Lon: -0.5702, Name: "Jardin Public"},
	{ID: "3", Lat: 1, Lon: 1, Name: "Far Away"},
}

func TestPointRegistry_LoadMissingCreatesSnapshot(t *testing.T) {
	store := &mockStore{}
	r := usecases.NewPointRegistry(nil, store, nil)

	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Count() != 0 {
		t.Errorf("expected empty registry, got %d", r.Count())
	}
	if !store.hasPoints || store.pointSaves != 1 {
		t.Error("expected an empty points snapshot to be written")
	}
}

func TestPointRegistry_LoadCorrupt(t *testing.T) {
	store := &mockStore{loadPtsErr: errors.New("invalid character")}
	r := usecases.NewPointRegistry(nil, store, nil)

	if err := r.Load(context.Background()); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if r.Count() != 0 {
		t.Error("expected empty registry")
	}
}

func TestPointRegistry_FindByCoordinates(t *testing.T) {
	store := &mockStore{hasPoints: true, points: testPoints}
	r := usecases.NewPointRegistry(nil, store, nil)
	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name   string
		lat    float64
		lon    float64
		wantID domain.PointID
		found  bool
	}{
		{"exact", 44.838, -0.5792, "1", true},
		{"within tolerance", 44.83805, -0.57915, "1", true},
		{"outside tolerance", 44.8382, -0.5792, "", false},
		{"unregistered", 45, 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := r.FindByCoordinates(tt.lat, tt.lon)
			if ok != tt.found {
				t.Fatalf("found = %v, want %v", ok, tt.found)
			}
			if ok && p.ID != tt.wantID {
				t.Errorf("id = %s, want %s", p.ID, tt.wantID)
			}
		})
	}
}

func TestPointRegistry_Refresh(t *testing.T) {
	store := &mockStore{}
	pub := &mockPublisher{}
	dir := &mockDirectory{fetchFn: func(ctx context.Context) ([]domain.Point, error) {
		return testPoints, nil
	}}
	r := usecases.NewPointRegistry(dir, store, pub)

	n, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 || r.Count() != 3 {
		t.Errorf("expected 3 points, got n=%d count=%d", n, r.Count())
	}
	if len(store.points) != 3 {
		t.Errorf("expected snapshot of 3 points, got %d", len(store.points))
	}
	if len(pub.refreshed) != 1 || pub.refreshed[0] != 3 {
		t.Errorf("expected one refreshed event with 3, got %v", pub.refreshed)
	}
}

func TestPointRegistry_RefreshFailureKeepsPreviousSet(t *testing.T) {
	store := &mockStore{hasPoints: true, points: testPoints}
	dir := &mockDirectory{fetchFn: func(ctx context.Context) ([]domain.Point, error) {
		return nil, errors.New("connection refused")
	}}
	r := usecases.NewPointRegistry(dir, store, nil)
	_ = r.Load(context.Background())

	_, err := r.Refresh(context.Background())
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if r.Count() != 3 {
		t.Errorf("expected previous 3 points kept, got %d", r.Count())
	}
}

func TestPointRegistry_RefreshPersistFailureIsNotReturned(t *testing.T) {
	store := &mockStore{savePtsErr: errors.New("read-only file system")}
	dir := &mockDirectory{fetchFn: func(ctx context.Context) ([]domain.Point, error) {
		return testPoints[:1], nil
	}}
	r := usecases.NewPointRegistry(dir, store, nil)

	n, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 || r.Count() != 1 {
		t.Errorf("expected 1 point in memory, got %d", r.Count())
	}
}

func TestPointRegistry_RefreshWithoutDirectory(t *testing.T) {
	r := usecases.NewPointRegistry(nil, &mockStore{}, nil)
	if _, err := r.Refresh(context.Background()); !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestPointRegistry_Reload(t *testing.T) {
	store := &mockStore{hasPoints: true, points: testPoints[:1]}
	r := usecases.NewPointRegistry(nil, store, nil)
	_ = r.Load(context.Background())

	store.points = testPoints
	n, err := r.Reload(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 || r.Count() != 3 {
		t.Errorf("expected 3 after reload, got %d", r.Count())
	}
}

func TestPointRegistry_PointsReturnsCopy(t *testing.T) {
	store := &mockStore{hasPoints: true, points: testPoints}
	r := usecases.NewPointRegistry(nil, store, nil)
	_ = r.Load(context.Background())

	pts := r.Points()
	pts[0].Name = "changed"
	if r.Points()[0].Name == "changed" {
		t.Error("Points must return a copy")
	}
}

func TestPointRegistry_ConcurrentRefreshKeepsSnapshotInSync(t *testing.T) {
	store := &mockStore{}
	var calls atomic.Int32
	dir := &mockDirectory{fetchFn: func(ctx context.Context) ([]domain.Point, error) {
		n := int(calls.Add(1))
		points := make([]domain.Point, n)
		for i := range points {
			points[i] = domain.Point{ID: domain.PointID(fmt.Sprint(i + 1)), Lat: float64(i), Lon: float64(i)}
		}
		return points, nil
	}}
	r := usecases.NewPointRegistry(dir, store, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Refresh(context.Background()); err != nil {
				t.Errorf("refresh: %v", err)
			}
		}()
	}
	wg.Wait()

	saved, err := store.LoadPoints(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != r.Count() {
		t.Errorf("snapshot has %d points, registry has %d", len(saved), r.Count())
	}
}
