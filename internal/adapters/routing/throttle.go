package routing

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/samirrijal/footpath/internal/core/domain"
	"github.com/samirrijal/footpath/internal/core/ports"
)

// ErrThrottled is returned when the outbound quota of a provider is spent.
var ErrThrottled = errors.New("provider quota exhausted")

type throttled struct {
	next    ports.RoutingProvider
	limiter *rate.Limiter
}

// Throttle caps calls to p at rps with the given burst. Calls over the quota
// fail immediately so the chain moves on to the next provider. A
// non-positive rps returns p unchanged.
func Throttle(p ports.RoutingProvider, rps float64, burst int) ports.RoutingProvider {
	if rps <= 0 {
		return p
	}
	if burst <= 0 {
		burst = 1
	}
	return &throttled{next: p, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (t *throttled) Name() string { return t.next.Name() }

func (t *throttled) ResolveDistance(ctx context.Context, origin, destination domain.Coordinate) (domain.DistanceEntry, error) {
	if !t.limiter.Allow() {
		return domain.DistanceEntry{}, fmt.Errorf("%s: %w", t.next.Name(), ErrThrottled)
	}
	return t.next.ResolveDistance(ctx, origin, destination)
}
