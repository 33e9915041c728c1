package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/footpath/internal/pkg/metrics"
)

// getPointsSunset is when the /get_points alias stops being served.
var getPointsSunset = time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC)

// ceiling returns a coarse per-client limiter; max <= 0 disables it.
func ceiling(max int, expiration time.Duration) fiber.Handler {
	if max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: expiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return clientID(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return errRateLimited(c, expiration)
		},
	})
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", deps.version())
		return c.Next()
	})

	app.Use(ETagMiddleware("/distance", "/all_distances", "/points"))
	app.Use(CachingMiddleware())

	// Health & readiness (no limiter, no timeout)
	app.Get("/", RootHandler(deps))
	app.Get("/health", HealthHandler(deps))
	app.Get("/ready", ReadyHandler(deps))

	hourly := ceiling(deps.HourlyLimit, time.Hour)
	daily := ceiling(deps.DailyLimit, 24*time.Hour)
	rt := deps.requestTimeout()

	app.Get("/distance", hourly, daily, timeout.NewWithContext(DistanceHandler(deps), rt))
	app.Get("/all_distances", hourly, daily, timeout.NewWithContext(AllDistancesHandler(deps), rt))
	app.Get("/points", ListPointsHandler(deps))

	refreshGuard := adminGuard(deps, deps.Distances.AdmitRefresh, true)

	admin := app.Group("/admin")
	admin.Post("/points/refresh", refreshGuard, timeout.NewWithContext(RefreshPointsHandler(deps), rt))
	admin.Post("/cache/clear", adminGuard(deps, deps.Distances.AdmitAdmin, true), ClearCacheHandler(deps))
	admin.Get("/stats", adminGuard(deps, deps.Distances.AdmitAdmin, false), StatsHandler(deps))

	legacy := Deprecated(DeprecatedRoute{
		Path:        "/get_points",
		SunsetDate:  getPointsSunset,
		Alternative: "/admin/points/refresh",
	})
	app.Get("/get_points", legacy, refreshGuard, timeout.NewWithContext(RefreshPointsHandler(deps), rt))
	app.Post("/get_points", legacy, refreshGuard, timeout.NewWithContext(RefreshPointsHandler(deps), rt))

	app.Post("/graphql", hourly, daily, timeout.NewWithContext(GraphQLHandler(deps), rt))

	// API documentation (Swagger UI)
	SetupDocs(app, deps)

	if deps.NATS != nil {
		app.Use("/ws", wsUpgrade(deps))
		app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
	}
}
