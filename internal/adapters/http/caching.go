package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control on GET responses the handler did not
// already mark.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet || len(c.Response().Header.Peek(fiber.HeaderCacheControl)) > 0 {
			return err
		}

		status := c.Response().StatusCode()
		path := c.Path()
		var cc string

		switch {
		case status >= 400:
			cc = "no-store"
		case path == "/health" || path == "/ready":
			cc = "no-cache"
		case path == "/metrics", strings.HasPrefix(path, "/admin"):
			cc = "no-store"
		case path == "/distance" || path == "/all_distances":
			cc = "private, max-age=300"
		case path == "/points":
			cc = "public, max-age=60"
		case strings.HasPrefix(path, "/docs"):
			cc = "public, max-age=3600"
		}

		if cc != "" {
			c.Set(fiber.HeaderCacheControl, cc)
		}
		return err
	}
}
