package ports

import (
	"context"
	"errors"

	"github.com/samirrijal/footpath/internal/core/domain"
)

// ErrSnapshotNotFound is returned by stores when no snapshot was ever written.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// PointStore persists the registered points as one wholesale snapshot.
type PointStore interface {
	LoadPoints(ctx context.Context) ([]domain.Point, error)
	SavePoints(ctx context.Context, points []domain.Point) error
}

// DistanceStore persists the distance cache as one wholesale snapshot.
type DistanceStore interface {
	LoadEntries(ctx context.Context) (map[string]domain.DistanceEntry, error)
	SaveEntries(ctx context.Context, entries map[string]domain.DistanceEntry) error
}

// SnapshotStore is a backend able to hold both snapshots.
type SnapshotStore interface {
	PointStore
	DistanceStore
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}
