package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/samirrijal/footpath/internal/core/domain"
	"github.com/samirrijal/footpath/internal/core/ports"
)

// File names inside the storage directory.
const (
	PointsFile = "points_of_interest.json"
	CacheFile  = "distance_cache.json"
)

// Store implements ports.SnapshotStore with two JSON files in one directory.
// Every save writes a temp file, syncs it and renames it over the target, so
// readers never see a partial snapshot.
type Store struct {
	dir string
	mu  sync.Mutex
}

// New creates the directory if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) LoadPoints(ctx context.Context) ([]domain.Point, error) {
	var points []domain.Point
	if err := s.read(PointsFile, &points); err != nil {
		return nil, err
	}
	return points, nil
}

func (s *Store) SavePoints(ctx context.Context, points []domain.Point) error {
	if points == nil {
		points = []domain.Point{}
	}
	return s.write(PointsFile, points)
}

func (s *Store) LoadEntries(ctx context.Context) (map[string]domain.DistanceEntry, error) {
	entries := map[string]domain.DistanceEntry{}
	if err := s.read(CacheFile, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) SaveEntries(ctx context.Context, entries map[string]domain.DistanceEntry) error {
	if entries == nil {
		entries = map[string]domain.DistanceEntry{}
	}
	return s.write(CacheFile, entries)
}

// Ping checks the directory is still there and writable.
func (s *Store) Ping(ctx context.Context) error {
	f, err := os.CreateTemp(s.dir, ".ping-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func (s *Store) Close() error { return nil }

func (s *Store) read(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return ports.ErrSnapshotNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (s *Store) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, filepath.Join(s.dir, name))
}
