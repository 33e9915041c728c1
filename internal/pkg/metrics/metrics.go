package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "footpath",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "footpath",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 10},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "footpath",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Distance cache
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "footpath",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Distance lookups answered from the cache",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "footpath",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Distance lookups that had to go to a routing provider",
	})

	CacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "footpath",
		Subsystem: "cache",
		Name:      "entries",
		Help:      "Entries currently held by the distance cache",
	})

	SnapshotWriteErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "footpath",
		Subsystem: "store",
		Name:      "snapshot_write_errors_total",
		Help:      "Failed snapshot writes",
	}, []string{"snapshot"})

	// Routing providers
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "footpath",
		Subsystem: "provider",
		Name:      "requests_total",
		Help:      "Routing provider calls by outcome",
	}, []string{"provider", "outcome"})

	ProviderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "footpath",
		Subsystem: "provider",
		Name:      "duration_seconds",
		Help:      "Routing provider call latency",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"provider"})

	// Admission
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "footpath",
		Subsystem: "ratelimit",
		Name:      "rejections_total",
		Help:      "Requests rejected by the sliding window limiter",
	}, []string{"class"})

	BandedResponses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "footpath",
		Subsystem: "distance",
		Name:      "banded_total",
		Help:      "Queries answered with a coarse distance band",
	})

	// Point registry
	PointsLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "footpath",
		Subsystem: "registry",
		Name:      "points_loaded",
		Help:      "Points currently registered",
	})

	RegistryRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "footpath",
		Subsystem: "registry",
		Name:      "refreshes_total",
		Help:      "Point registry refreshes by outcome",
	}, []string{"outcome"})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
