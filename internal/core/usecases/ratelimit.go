package usecases

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/samirrijal/footpath/internal/core/domain"
	"github.com/samirrijal/footpath/internal/core/ports"
	"github.com/samirrijal/footpath/internal/pkg/metrics"
)

// Decision is the result of a sliding window admission check.
type Decision struct {
	Allowed    bool
	Count      int
	Limit      int
	RetryAfter time.Duration
}

// SlidingWindow admits at most max requests per client within a trailing
// window. Rejected requests do not consume a slot.
type SlidingWindow struct {
	class  string
	max    int
	window time.Duration
	now    func() time.Time
	events ports.EventPublisher

	mu   sync.Mutex
	hits map[string][]time.Time
}

// SlidingWindowOption configures a SlidingWindow.
type SlidingWindowOption func(*SlidingWindow)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) SlidingWindowOption {
	return func(w *SlidingWindow) { w.now = now }
}

// WithRejectionEvents publishes every rejection on the message bus.
func WithRejectionEvents(p ports.EventPublisher) SlidingWindowOption {
	return func(w *SlidingWindow) { w.events = p }
}

// NewSlidingWindow creates a limiter for one endpoint class.
func NewSlidingWindow(class string, max int, window time.Duration, opts ...SlidingWindowOption) *SlidingWindow {
	w := &SlidingWindow{
		class:  class,
		max:    max,
		window: window,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Class returns the endpoint class this window guards.
func (w *SlidingWindow) Class() string { return w.class }

// Window returns the trailing window length.
func (w *SlidingWindow) Window() time.Duration { return w.window }

// Max returns the per-window request ceiling.
func (w *SlidingWindow) Max() int { return w.max }

// Admit records a request for clientID if it is still under the limit.
func (w *SlidingWindow) Admit(clientID string) Decision {
	now := w.now()

	w.mu.Lock()
	hits := w.prune(w.hits[clientID], now)
	if len(hits) >= w.max {
		w.hits[clientID] = hits
		count := len(hits)
		w.mu.Unlock()

		w.reject(clientID, count)
		return Decision{Allowed: false, Count: count, Limit: w.max, RetryAfter: w.window}
	}

	hits = append(hits, now)
	w.hits[clientID] = hits
	count := len(hits)
	w.mu.Unlock()

	return Decision{Allowed: true, Count: count, Limit: w.max}
}

// prune drops timestamps older than the window; hits is ordered oldest first.
func (w *SlidingWindow) prune(hits []time.Time, now time.Time) []time.Time {
	i := 0
	for i < len(hits) && now.Sub(hits[i]) > w.window {
		i++
	}
	if i == 0 {
		return hits
	}
	return append(hits[:0:0], hits[i:]...)
}

func (w *SlidingWindow) reject(clientID string, count int) {
	slog.Warn("suspicious activity",
		"client", clientID,
		"class", w.class,
		"count", count,
		"window", w.window.String(),
	)
	metrics.RateLimitRejections.WithLabelValues(w.class).Inc()

	if w.events != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := w.events.PublishRateLimited(ctx, w.class, clientID, count); err != nil {
				slog.Debug("publish rate limit event failed", "error", err)
			}
		}()
	}
}

// Stats reports every client that still has requests inside the window.
func (w *SlidingWindow) Stats() domain.LimitStats {
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	clients := make([]domain.ClientStats, 0, len(w.hits))
	for id, hits := range w.hits {
		recent := 0
		for _, ts := range hits {
			if now.Sub(ts) <= w.window {
				recent++
			}
		}
		if recent == 0 {
			continue
		}
		clients = append(clients, domain.ClientStats{
			Client:         id,
			RecentRequests: recent,
			TotalRequests:  len(hits),
			IsRateLimited:  recent >= w.max,
		})
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].Client < clients[j].Client })

	return domain.LimitStats{
		Class:         w.class,
		WindowSeconds: int(w.window / time.Second),
		MaxRequests:   w.max,
		ActiveClients: len(clients),
		Clients:       clients,
	}
}

// Cleanup forgets clients whose window is empty.
func (w *SlidingWindow) Cleanup() {
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	for id, hits := range w.hits {
		hits = w.prune(hits, now)
		if len(hits) == 0 {
			delete(w.hits, id)
			continue
		}
		w.hits[id] = hits
	}
}

// StartJanitor periodically runs Cleanup until ctx is cancelled.
func (w *SlidingWindow) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				w.Cleanup()
			}
		}
	}()
}

// RateLimits groups the independent windows of each endpoint class.
type RateLimits struct {
	Distance *SlidingWindow
	Batch    *SlidingWindow
	Admin    *SlidingWindow
	Refresh  *SlidingWindow
}

// All returns the configured windows in a stable order.
func (r RateLimits) All() []*SlidingWindow {
	out := make([]*SlidingWindow, 0, 4)
	for _, w := range []*SlidingWindow{r.Distance, r.Batch, r.Admin, r.Refresh} {
		if w != nil {
			out = append(out, w)
		}
	}
	return out
}

// StartJanitors starts the cleanup loop of every window.
func (r RateLimits) StartJanitors(ctx context.Context, every time.Duration) {
	for _, w := range r.All() {
		w.StartJanitor(ctx, every)
	}
}
