package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/footpath/internal/core/domain"
	"github.com/samirrijal/footpath/internal/core/ports"
	"github.com/samirrijal/footpath/internal/pkg/geospatial"
	"github.com/samirrijal/footpath/internal/pkg/metrics"
)

// DistanceQuery is a single origin/destination request.
type DistanceQuery struct {
	ClientID    string
	Origin      string
	Destination string
}

// DistanceOptions tunes the coordinator. Zero values fall back to defaults.
type DistanceOptions struct {
	BandThresholdKm  float64
	BandStepKm       int
	OriginPrecision  int
	BatchConcurrency int
}

func (o DistanceOptions) withDefaults() DistanceOptions {
	if o.BandThresholdKm <= 0 {
		o.BandThresholdKm = 10
	}
	if o.BandStepKm <= 0 {
		o.BandStepKm = 10
	}
	if o.OriginPrecision <= 0 {
		o.OriginPrecision = DefaultOriginPrecision
	}
	if o.BatchConcurrency <= 0 {
		o.BatchConcurrency = 4
	}
	return o
}

// DistanceService coordinates admission, validation, the distance cache and
// the routing providers for every distance request.
type DistanceService struct {
	limits    RateLimits
	registry  *PointRegistry
	cache     *DistanceCache
	providers *ProviderChain
	events    ports.EventPublisher
	opts      DistanceOptions
	started   time.Time
}

// NewDistanceService wires the coordinator. events may be nil.
func NewDistanceService(
	limits RateLimits,
	registry *PointRegistry,
	cache *DistanceCache,
	providers *ProviderChain,
	events ports.EventPublisher,
	opts DistanceOptions,
) *DistanceService {
	return &DistanceService{
		limits:    limits,
		registry:  registry,
		cache:     cache,
		providers: providers,
		events:    events,
		opts:      opts.withDefaults(),
		started:   time.Now(),
	}
}

func admit(w *SlidingWindow, clientID string) error {
	if w == nil {
		return nil
	}
	d := w.Admit(clientID)
	if d.Allowed {
		return nil
	}
	return &domain.RateLimitError{Class: w.Class(), Count: d.Count, RetryAfter: d.RetryAfter}
}

func parseParam(name, raw string) (domain.Coordinate, error) {
	if strings.TrimSpace(raw) == "" {
		return domain.Coordinate{}, fmt.Errorf("%w: %s", domain.ErrMissingParameter, name)
	}
	return domain.ParseCoordinate(raw)
}

// Distance answers a single request.
func (s *DistanceService) Distance(ctx context.Context, q DistanceQuery) (domain.Outcome, error) {
	if err := admit(s.limits.Distance, q.ClientID); err != nil {
		return domain.Outcome{}, err
	}

	origin, err := parseParam("origin", q.Origin)
	if err != nil {
		return domain.Outcome{}, err
	}
	dest, err := parseParam("destination", q.Destination)
	if err != nil {
		return domain.Outcome{}, err
	}

	point, ok := s.registry.FindByCoordinates(dest.Lat, dest.Lon)
	if !ok {
		return domain.Outcome{}, domain.ErrUnknownDestination
	}

	out, staged := s.resolve(ctx, origin, dest, point)
	if out.Kind == domain.OutcomeFailed {
		return out, out.Err
	}
	if staged {
		if err := s.cache.Flush(ctx); err != nil {
			slog.Error("distance cache write failed", "error", err)
		}
	}
	return out, nil
}

// resolve runs the band check, the cache lookup and the provider chain for
// one destination. New entries are staged; staged reports whether the
// caller has to flush.
func (s *DistanceService) resolve(ctx context.Context, origin, dest domain.Coordinate, point domain.Point) (_ domain.Outcome, staged bool) {
	meters := geospatial.DistanceMeters(origin.Lat, origin.Lon, dest.Lat, dest.Lon)
	if km := float64(meters) / 1000; km > s.opts.BandThresholdKm {
		metrics.BandedResponses.Inc()
		return domain.Outcome{
			Kind:       domain.OutcomeBanded,
			Point:      point,
			MoreThanKm: geospatial.BandKm(km, s.opts.BandStepKm),
		}, false
	}

	key := CacheKey(origin, dest, s.opts.OriginPrecision)
	if entry, ok := s.cache.Get(key); ok {
		return domain.Outcome{Kind: domain.OutcomeResolved, Point: point, Entry: entry, Cached: true}, false
	}

	entry, err := s.providers.Resolve(ctx, origin, dest)
	if err != nil {
		return domain.Outcome{Kind: domain.OutcomeFailed, Point: point, Err: err}, false
	}

	s.cache.Stage(key, entry)
	return domain.Outcome{Kind: domain.OutcomeResolved, Point: point, Entry: entry}, true
}

// AllDistances answers the origin against every registered point, in
// registry order. A failing destination becomes a failed item; it never
// aborts the batch.
func (s *DistanceService) AllDistances(ctx context.Context, clientID, rawOrigin string) ([]domain.Outcome, error) {
	if err := admit(s.limits.Batch, clientID); err != nil {
		return nil, err
	}

	origin, err := parseParam("origin", rawOrigin)
	if err != nil {
		return nil, err
	}

	points := s.registry.Points()
	out := make([]domain.Outcome, len(points))
	staged := make([]bool, len(points))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.BatchConcurrency)
	for i, p := range points {
		g.Go(func() error {
			out[i], staged[i] = s.resolve(gctx, origin, p.Coordinate(), p)
			return nil
		})
	}
	_ = g.Wait()

	for _, st := range staged {
		if st {
			if err := s.cache.Flush(ctx); err != nil {
				slog.Error("distance cache write failed", "error", err)
			}
			break
		}
	}
	return out, nil
}

// RefreshPoints replaces the registry from the directory.
func (s *DistanceService) RefreshPoints(ctx context.Context) ([]domain.Point, error) {
	if _, err := s.registry.Refresh(ctx); err != nil {
		return nil, err
	}
	return s.registry.Points(), nil
}

// ReloadPoints re-reads the shared points snapshot.
func (s *DistanceService) ReloadPoints(ctx context.Context) (int, error) {
	return s.registry.Reload(ctx)
}

// ClearCache empties the distance cache and returns how many entries were
// dropped. A persistence error is logged; the in-memory cache stays empty.
func (s *DistanceService) ClearCache(ctx context.Context) (int, error) {
	n, err := s.cache.Clear(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrPersistence) {
			return 0, err
		}
		slog.Error("distance cache write failed", "error", err)
	}

	slog.Info("distance cache cleared", "entries", n)
	if s.events != nil {
		if err := s.events.PublishCacheCleared(ctx, n); err != nil {
			slog.Warn("publish cache cleared failed", "error", err)
		}
	}
	return n, nil
}

// Points returns the registered destinations.
func (s *DistanceService) Points() []domain.Point {
	return s.registry.Points()
}

// Status reports liveness figures.
func (s *DistanceService) Status() domain.Status {
	return domain.Status{
		PointsLoaded: s.registry.Count(),
		CacheEntries: s.cache.Len(),
		Uptime:       time.Since(s.started),
		CheckedAt:    time.Now().UTC(),
	}
}

// Stats is the administrative overview: limits per class and store sizes.
func (s *DistanceService) Stats() domain.Stats {
	all := s.limits.All()
	limits := make([]domain.LimitStats, 0, len(all))
	clients := make(map[string]struct{})
	for _, w := range all {
		st := w.Stats()
		for _, c := range st.Clients {
			clients[c.Client] = struct{}{}
		}
		limits = append(limits, st)
	}
	return domain.Stats{
		ActiveClients: len(clients),
		PointsCount:   s.registry.Count(),
		CacheEntries:  s.cache.Len(),
		Limits:        limits,
	}
}

// AdmitAdmin applies the admin window for clientID.
func (s *DistanceService) AdmitAdmin(clientID string) error {
	return admit(s.limits.Admin, clientID)
}

// AdmitRefresh applies the point refresh window for clientID, falling back
// to the admin window when no refresh window is configured.
func (s *DistanceService) AdmitRefresh(clientID string) error {
	if s.limits.Refresh == nil {
		return admit(s.limits.Admin, clientID)
	}
	return admit(s.limits.Refresh, clientID)
}

// Providers lists the routing providers in attempt order.
func (s *DistanceService) Providers() []string {
	return s.providers.Names()
}
