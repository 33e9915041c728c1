package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/footpath/internal/core/domain"
	"github.com/samirrijal/footpath/internal/core/ports"
)

const (
	snapshotPoints  = "points"
	snapshotEntries = "distance_cache"
)

// SnapshotStore implements ports.SnapshotStore with pgx. Each save replaces
// the whole table in one transaction (DELETE + COPY) and stamps
// snapshot_meta, which is how a missing snapshot is told apart from an
// empty one.
type SnapshotStore struct {
	db *DB
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(db *DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

func (s *SnapshotStore) exists(ctx context.Context, name string) error {
	var one int
	err := s.db.Pool.QueryRow(ctx, `SELECT 1 FROM snapshot_meta WHERE name = $1`, name).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return ports.ErrSnapshotNotFound
	}
	return err
}

// LoadPoints returns the points in their saved order.
func (s *SnapshotStore) LoadPoints(ctx context.Context) ([]domain.Point, error) {
	if err := s.exists(ctx, snapshotPoints); err != nil {
		return nil, err
	}

	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, lat, lon, name
		FROM points
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := []domain.Point{}
	for rows.Next() {
		var p domain.Point
		var id string
		if err := rows.Scan(&id, &p.Lat, &p.Lon, &p.Name); err != nil {
			return nil, err
		}
		p.ID = domain.PointID(id)
		points = append(points, p)
	}
	return points, rows.Err()
}

// SavePoints replaces the points table.
func (s *SnapshotStore) SavePoints(ctx context.Context, points []domain.Point) error {
	rows := make([][]any, len(points))
	for i, p := range points {
		rows[i] = []any{i, string(p.ID), p.Lat, p.Lon, p.Name}
	}
	return s.replace(ctx, snapshotPoints, "points",
		[]string{"position", "id", "lat", "lon", "name"}, rows)
}

// LoadEntries returns the whole distance cache.
func (s *SnapshotStore) LoadEntries(ctx context.Context) (map[string]domain.DistanceEntry, error) {
	if err := s.exists(ctx, snapshotEntries); err != nil {
		return nil, err
	}

	rows, err := s.db.Pool.Query(ctx, `SELECT cache_key, distance_meters, duration_seconds FROM distance_cache`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make(map[string]domain.DistanceEntry)
	for rows.Next() {
		var key string
		var e domain.DistanceEntry
		if err := rows.Scan(&key, &e.DistanceMeters, &e.DurationSeconds); err != nil {
			return nil, err
		}
		entries[key] = e
	}
	return entries, rows.Err()
}

// SaveEntries replaces the distance_cache table.
func (s *SnapshotStore) SaveEntries(ctx context.Context, entries map[string]domain.DistanceEntry) error {
	rows := make([][]any, 0, len(entries))
	for k, e := range entries {
		rows = append(rows, []any{k, e.DistanceMeters, e.DurationSeconds})
	}
	return s.replace(ctx, snapshotEntries, "distance_cache",
		[]string{"cache_key", "distance_meters", "duration_seconds"}, rows)
}

func (s *SnapshotStore) replace(ctx context.Context, name, table string, columns []string, rows [][]any) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	if len(rows) > 0 {
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("copy %s: %w", table, err)
		}
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO snapshot_meta (name, saved_at, row_count)
		VALUES ($1, now(), $2)
		ON CONFLICT (name) DO UPDATE
		SET saved_at = EXCLUDED.saved_at, row_count = EXCLUDED.row_count
	`, name, len(rows)); err != nil {
		return fmt.Errorf("stamp %s: %w", name, err)
	}

	return tx.Commit(ctx)
}

// Ping reports whether the database is reachable.
func (s *SnapshotStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close releases the pool.
func (s *SnapshotStore) Close() error {
	s.db.Close()
	return nil
}
