package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const serviceName = "footpath"

// HealthHandler returns a basic liveness check with the coordinator status.
func HealthHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st := deps.Distances.Status()
		return c.JSON(fiber.Map{
			"status":        "healthy",
			"service":       serviceName,
			"version":       deps.version(),
			"timestamp":     st.CheckedAt.Unix(),
			"uptime":        st.Uptime.Round(time.Second).String(),
			"points_loaded": st.PointsLoaded,
			"cache_entries": st.CacheEntries,
			"message":       "All systems operational",
		})
	}
}

// ReadyHandler checks the snapshot store and NATS connectivity.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string)
		allOK := true

		if deps.Store != nil {
			if err := deps.Store.Ping(ctx); err != nil {
				checks["store"] = "error: " + err.Error()
				allOK = false
			} else {
				checks["store"] = "ok"
			}
		} else {
			checks["store"] = "not configured"
			allOK = false
		}

		// NATS is optional
		if deps.NATS != nil {
			if deps.NATS.IsConnected() {
				checks["nats"] = "ok"
			} else {
				checks["nats"] = "disconnected"
				allOK = false
			}
		} else {
			checks["nats"] = "not configured"
		}

		status := "ready"
		code := fiber.StatusOK
		if !allOK {
			status = "not ready"
			code = fiber.StatusServiceUnavailable
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}

// RootHandler describes the service.
func RootHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service":     serviceName,
			"version":     deps.version(),
			"description": "Walking distance calculation service for registered points",
			"providers":   deps.Distances.Providers(),
			"endpoints": fiber.Map{
				"health":        "/health",
				"distance":      "/distance?origin=lat,lon&destination=lat,lon",
				"all_distances": "/all_distances?origin=lat,lon",
				"points":        "/points",
				"refresh":       "/admin/points/refresh?secret=YOUR_SECRET",
				"clear_cache":   "/admin/cache/clear?secret=YOUR_SECRET",
				"stats":         "/admin/stats",
			},
			"documentation": "/docs",
		})
	}
}
