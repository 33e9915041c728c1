package ports

import (
	"context"

	"github.com/samirrijal/footpath/internal/core/domain"
)

// RoutingProvider resolves a walking distance between two coordinates.
type RoutingProvider interface {
	// Name identifies the provider in logs and metrics.
	Name() string
	ResolveDistance(ctx context.Context, origin, destination domain.Coordinate) (domain.DistanceEntry, error)
}

// PointDirectory is the external source of truth for the registered points.
type PointDirectory interface {
	FetchPoints(ctx context.Context) ([]domain.Point, error)
}

// EventPublisher publishes coordinator events to a message broker.
type EventPublisher interface {
	PublishPointsRefreshed(ctx context.Context, count int) error
	PublishCacheCleared(ctx context.Context, cleared int) error
	PublishRateLimited(ctx context.Context, class, client string, count int) error
}

// EventSubscriber subscribes to coordinator events published by other instances.
type EventSubscriber interface {
	SubscribePointsRefreshed(ctx context.Context, handler func(ctx context.Context, ev *domain.Event) error) error
}
