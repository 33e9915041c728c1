package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/footpath/internal/core/domain"
	"github.com/samirrijal/footpath/internal/core/ports"
	"github.com/samirrijal/footpath/internal/pkg/metrics"
)

// DefaultLookupTolerance is the per-axis tolerance, in degrees, used when
// matching a requested destination against the registered points (~11m).
const DefaultLookupTolerance = 0.0001

// PointRegistry holds the set of valid destinations in memory.
// The set is only ever replaced as a whole.
type PointRegistry struct {
	directory ports.PointDirectory
	store     ports.PointStore
	events    ports.EventPublisher
	tolerance float64

	mu     sync.RWMutex
	points []domain.Point

	// persistMu orders swap+save pairs so the snapshot matches memory.
	persistMu sync.Mutex
}

// NewPointRegistry creates an empty registry. Call Load to restore the
// persisted snapshot.
func NewPointRegistry(directory ports.PointDirectory, store ports.PointStore, events ports.EventPublisher) *PointRegistry {
	return &PointRegistry{
		directory: directory,
		store:     store,
		events:    events,
		tolerance: DefaultLookupTolerance,
	}
}

// SetTolerance overrides DefaultLookupTolerance.
func (r *PointRegistry) SetTolerance(deg float64) {
	if deg > 0 {
		r.tolerance = deg
	}
}

// Load restores the snapshot. A missing snapshot starts the registry empty
// and writes an empty snapshot; an unreadable one leaves it empty in memory.
func (r *PointRegistry) Load(ctx context.Context) error {
	points, err := r.store.LoadPoints(ctx)
	switch {
	case errors.Is(err, ports.ErrSnapshotNotFound):
		slog.Warn("points snapshot not found, creating empty snapshot")
		r.swap(nil)
		if err := r.store.SavePoints(ctx, []domain.Point{}); err != nil {
			metrics.SnapshotWriteErrors.WithLabelValues("points").Inc()
			return fmt.Errorf("%w: create points snapshot: %v", domain.ErrPersistence, err)
		}
		return nil
	case err != nil:
		r.swap(nil)
		return fmt.Errorf("%w: load points snapshot: %v", domain.ErrPersistence, err)
	}

	r.swap(points)
	slog.Info("points loaded from snapshot", "count", len(points))
	return nil
}

// Reload re-reads the snapshot, for when another process refreshed the
// shared store. On error the current set is kept.
func (r *PointRegistry) Reload(ctx context.Context) (int, error) {
	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	points, err := r.store.LoadPoints(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: reload points snapshot: %v", domain.ErrPersistence, err)
	}
	r.swap(points)
	return len(points), nil
}

// Refresh pulls the full set from the directory and replaces the registry.
// On directory failure the previous set is left untouched.
func (r *PointRegistry) Refresh(ctx context.Context) (_ int, err error) {
	ctx, span := otel.Tracer("footpath/registry").Start(ctx, "registry.refresh")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			metrics.RegistryRefreshes.WithLabelValues("error").Inc()
		} else {
			metrics.RegistryRefreshes.WithLabelValues("ok").Inc()
		}
		span.End()
	}()

	if r.directory == nil {
		return 0, fmt.Errorf("%w: no directory configured", domain.ErrUpstreamUnavailable)
	}

	points, err := r.directory.FetchPoints(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	span.SetAttributes(attribute.Int("points", len(points)))

	r.persistMu.Lock()
	r.swap(points)
	if err := r.store.SavePoints(ctx, points); err != nil {
		metrics.SnapshotWriteErrors.WithLabelValues("points").Inc()
		slog.Error("save points snapshot failed", "error", err)
	}
	r.persistMu.Unlock()
	slog.Info("points refreshed from directory", "count", len(points))

	if r.events != nil {
		if err := r.events.PublishPointsRefreshed(ctx, len(points)); err != nil {
			slog.Warn("publish points refreshed failed", "error", err)
		}
	}

	return len(points), nil
}

func (r *PointRegistry) swap(points []domain.Point) {
	cp := make([]domain.Point, len(points))
	copy(cp, points)

	r.mu.Lock()
	r.points = cp
	r.mu.Unlock()

	metrics.PointsLoaded.Set(float64(len(cp)))
}

// FindByCoordinates returns the first point within the lookup tolerance.
func (r *PointRegistry) FindByCoordinates(lat, lon float64) (domain.Point, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.points {
		if math.Abs(p.Lat-lat) < r.tolerance && math.Abs(p.Lon-lon) < r.tolerance {
			return p, true
		}
	}
	return domain.Point{}, false
}

// Points returns a copy of the current set.
func (r *PointRegistry) Points() []domain.Point {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Point, len(r.points))
	copy(out, r.points)
	return out
}

// Count returns the number of registered points.
func (r *PointRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.points)
}
