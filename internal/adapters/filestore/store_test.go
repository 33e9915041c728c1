package filestore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/samirrijal/footpath/internal/adapters/filestore"
	"github.com/samirrijal/footpath/internal/core/domain"
	"github.com/samirrijal/footpath/internal/core/ports"
)

func TestStore_MissingSnapshots(t *testing.T) {
	s, err := filestore.New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if _, err := s.LoadPoints(ctx); !errors.Is(err, ports.ErrSnapshotNotFound) {
		t.Errorf("points: expected ErrSnapshotNotFound, got %v", err)
	}
	if _, err := s.LoadEntries(ctx); !errors.Is(err, ports.ErrSnapshotNotFound) {
		t.Errorf("entries: expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, _ := filestore.New(dir)
	ctx := context.Background()

	points := []domain.Point{{ID: "12", Lat: 44.838, Lon: -0.5792, Name: "Bourse"}}
	entries := map[string]domain.DistanceEntry{"44.8376,-0.5798,44.838,-0.5792": {DistanceMeters: 64, DurationSeconds: 46}}

	if err := s.SavePoints(ctx, points); err != nil {
		t.Fatalf("save points: %v", err)
	}
	if err := s.SaveEntries(ctx, entries); err != nil {
		t.Fatalf("save entries: %v", err)
	}

	// A fresh store over the same directory sees the same data.
	s2, _ := filestore.New(dir)
	gotPoints, err := s2.LoadPoints(ctx)
	if err != nil || len(gotPoints) != 1 || gotPoints[0] != points[0] {
		t.Errorf("points: %+v, %v", gotPoints, err)
	}
	gotEntries, err := s2.LoadEntries(ctx)
	if err != nil || len(gotEntries) != 1 {
		t.Errorf("entries: %+v, %v", gotEntries, err)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestStore_ReadsLegacyCacheFile(t *testing.T) {
	dir := t.TempDir()
	legacy := `{"44.8376,-0.5798,44.838,-0.5792": {"distance": 64, "duration": 46}}`
	if err := os.WriteFile(filepath.Join(dir, filestore.CacheFile), []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	s, _ := filestore.New(dir)
	entries, err := s.LoadEntries(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if e := entries["44.8376,-0.5798,44.838,-0.5792"]; e.DistanceMeters != 64 || e.DurationSeconds != 46 {
		t.Errorf("unexpected entry %+v", e)
	}
}

func TestStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, filestore.PointsFile), []byte("[{"), 0o644)

	s, _ := filestore.New(dir)
	_, err := s.LoadPoints(context.Background())
	if err == nil || errors.Is(err, ports.ErrSnapshotNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestStore_EmptySnapshotsAreValidJSON(t *testing.T) {
	dir := t.TempDir()
	s, _ := filestore.New(dir)
	ctx := context.Background()

	_ = s.SavePoints(ctx, nil)
	_ = s.SaveEntries(ctx, nil)

	points, err := s.LoadPoints(ctx)
	if err != nil || len(points) != 0 {
		t.Errorf("points: %v, %v", points, err)
	}
	entries, err := s.LoadEntries(ctx)
	if err != nil || len(entries) != 0 {
		t.Errorf("entries: %v, %v", entries, err)
	}
}

func TestStore_Ping(t *testing.T) {
	s, _ := filestore.New(t.TempDir())
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
