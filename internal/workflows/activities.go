package workflows

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samirrijal/footpath/internal/core/domain"
	"github.com/samirrijal/footpath/internal/core/ports"
)

// RefreshActivities holds the activity implementations for the points refresh workflow.
type RefreshActivities struct {
	Directory ports.PointDirectory
	Store     ports.PointStore
	Events    ports.EventPublisher // optional
}

// FetchPoints downloads the current point set from the directory.
func (a *RefreshActivities) FetchPoints(ctx context.Context) ([]domain.Point, error) {
	points, err := a.Directory.FetchPoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	return points, nil
}

// SavePoints replaces the shared points snapshot.
func (a *RefreshActivities) SavePoints(ctx context.Context, points []domain.Point) (int, error) {
	if err := a.Store.SavePoints(ctx, points); err != nil {
		return 0, fmt.Errorf("%w: save points: %v", domain.ErrPersistence, err)
	}
	return len(points), nil
}

// AnnouncePoints tells running API instances to reload the snapshot.
func (a *RefreshActivities) AnnouncePoints(ctx context.Context, count int) error {
	if a.Events == nil {
		slog.Info("points refreshed (no event bus)", "points", count)
		return nil
	}
	if err := a.Events.PublishPointsRefreshed(ctx, count); err != nil {
		return fmt.Errorf("announce points: %w", err)
	}
	return nil
}
