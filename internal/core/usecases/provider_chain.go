package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/footpath/internal/core/domain"
	"github.com/samirrijal/footpath/internal/core/ports"
	"github.com/samirrijal/footpath/internal/pkg/metrics"
)

// DefaultProviderTimeout bounds a single provider attempt.
const DefaultProviderTimeout = 10 * time.Second

// ProviderChain tries routing providers in order until one answers.
type ProviderChain struct {
	providers []ports.RoutingProvider
	timeout   time.Duration
}

// NewProviderChain composes providers in the given order. A non-positive
// timeout falls back to DefaultProviderTimeout.
func NewProviderChain(timeout time.Duration, providers ...ports.RoutingProvider) *ProviderChain {
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	ps := make([]ports.RoutingProvider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			ps = append(ps, p)
		}
	}
	return &ProviderChain{providers: ps, timeout: timeout}
}

// Names lists the providers in attempt order.
func (c *ProviderChain) Names() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Resolve returns the first successful answer. When every provider failed
// the error wraps domain.ErrAllProvidersUnavailable and each provider's error.
func (c *ProviderChain) Resolve(ctx context.Context, origin, destination domain.Coordinate) (domain.DistanceEntry, error) {
	errs := []error{domain.ErrAllProvidersUnavailable}

	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		entry, err := c.attempt(ctx, p, origin, destination)
		if err == nil {
			return entry, nil
		}
		slog.Warn("routing provider failed", "provider", p.Name(), "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}

	return domain.DistanceEntry{}, errors.Join(errs...)
}

func (c *ProviderChain) attempt(ctx context.Context, p ports.RoutingProvider, origin, destination domain.Coordinate) (domain.DistanceEntry, error) {
	ctx, span := otel.Tracer("footpath/routing").Start(ctx, "provider.resolve")
	defer span.End()
	span.SetAttributes(
		attribute.String("provider", p.Name()),
		attribute.String("origin", origin.String()),
		attribute.String("destination", destination.String()),
	)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	entry, err := p.ResolveDistance(ctx, origin, destination)
	metrics.ProviderDuration.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.ProviderRequests.WithLabelValues(p.Name(), "error").Inc()
		return domain.DistanceEntry{}, err
	}

	span.SetAttributes(attribute.Int("distance_m", entry.DistanceMeters))
	metrics.ProviderRequests.WithLabelValues(p.Name(), "ok").Inc()
	return entry, nil
}
