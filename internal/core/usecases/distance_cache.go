package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/samirrijal/footpath/internal/core/domain"
	"github.com/samirrijal/footpath/internal/core/ports"
	"github.com/samirrijal/footpath/internal/pkg/geospatial"
	"github.com/samirrijal/footpath/internal/pkg/metrics"
)

// DefaultOriginPrecision is the number of decimals the origin is rounded to
// before it becomes part of a cache key.
const DefaultOriginPrecision = 4

// CacheKey builds the distance cache key. The origin is coarsened so nearby
// starting points share an entry; the destination is kept exact because it
// has to match a registered point.
func CacheKey(origin, destination domain.Coordinate, precision int) string {
	return strings.Join([]string{
		formatDegrees(geospatial.RoundTo(origin.Lat, precision)),
		formatDegrees(geospatial.RoundTo(origin.Lon, precision)),
		formatDegrees(destination.Lat),
		formatDegrees(destination.Lon),
	}, ",")
}

// formatDegrees prints the shortest round-trip form and always keeps a
// decimal point ("0.0", "44.838"), matching keys already on disk.
func formatDegrees(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEIN") {
		s += ".0"
	}
	return s
}

// DistanceCache is the durable key -> distance store. Entries are never
// evicted; every write persists the whole map.
type DistanceCache struct {
	store ports.DistanceStore

	mu      sync.RWMutex
	entries map[string]domain.DistanceEntry

	// persistMu orders snapshot writes so an older snapshot never lands
	// after a newer one.
	persistMu sync.Mutex
}

// NewDistanceCache creates an empty cache backed by store.
func NewDistanceCache(store ports.DistanceStore) *DistanceCache {
	return &DistanceCache{
		store:   store,
		entries: make(map[string]domain.DistanceEntry),
	}
}

// Load restores the persisted snapshot. A missing snapshot is created empty;
// an unreadable one leaves the cache empty in memory.
func (c *DistanceCache) Load(ctx context.Context) error {
	entries, err := c.store.LoadEntries(ctx)
	switch {
	case errors.Is(err, ports.ErrSnapshotNotFound):
		slog.Warn("distance cache snapshot not found, creating empty snapshot")
		c.replace(nil)
		return c.Flush(ctx)
	case err != nil:
		c.replace(nil)
		return fmt.Errorf("%w: load distance cache: %v", domain.ErrPersistence, err)
	}

	c.replace(entries)
	slog.Info("distance cache loaded from snapshot", "entries", len(entries))
	return nil
}

func (c *DistanceCache) replace(entries map[string]domain.DistanceEntry) {
	if entries == nil {
		entries = make(map[string]domain.DistanceEntry)
	}
	c.mu.Lock()
	c.entries = entries
	n := len(entries)
	c.mu.Unlock()
	metrics.CacheEntries.Set(float64(n))
}

// Get returns the entry for key.
func (c *DistanceCache) Get(key string) (domain.DistanceEntry, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		metrics.CacheHits.Inc()
	} else {
		metrics.CacheMisses.Inc()
	}
	return e, ok
}

// Put stores the entry and synchronously persists the whole cache. A non-nil
// error means the entry is served from memory but is not durable.
func (c *DistanceCache) Put(ctx context.Context, key string, entry domain.DistanceEntry) error {
	c.Stage(key, entry)
	return c.Flush(ctx)
}

// Stage stores the entry in memory only; call Flush to persist.
func (c *DistanceCache) Stage(key string, entry domain.DistanceEntry) {
	c.mu.Lock()
	c.entries[key] = entry
	n := len(c.entries)
	c.mu.Unlock()
	metrics.CacheEntries.Set(float64(n))
}

// Flush writes the current contents to the store. The map lock is only held
// while copying.
func (c *DistanceCache) Flush(ctx context.Context) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.RLock()
	snapshot := make(map[string]domain.DistanceEntry, len(c.entries))
	for k, v := range c.entries {
		snapshot[k] = v
	}
	c.mu.RUnlock()

	if err := c.store.SaveEntries(ctx, snapshot); err != nil {
		metrics.SnapshotWriteErrors.WithLabelValues("distance_cache").Inc()
		return fmt.Errorf("%w: save distance cache: %v", domain.ErrPersistence, err)
	}
	return nil
}

// Clear drops every entry and persists the empty cache. It returns the
// number of entries removed.
func (c *DistanceCache) Clear(ctx context.Context) (int, error) {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]domain.DistanceEntry)
	c.mu.Unlock()
	metrics.CacheEntries.Set(0)

	return n, c.Flush(ctx)
}

// Len returns the number of cached entries.
func (c *DistanceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
