package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DeprecatedRoute marks an endpoint kept for older clients.
type DeprecatedRoute struct {
	Path        string
	SunsetDate  time.Time
	Alternative string
}

// Deprecated wraps a route with Deprecation, Sunset, Link and Warning headers
// (RFC 8594, RFC 8288).
func Deprecated(d DeprecatedRoute) fiber.Handler {
	sunset := d.SunsetDate.UTC().Format(time.RFC1123)
	if d.SunsetDate.IsZero() {
		sunset = ""
	}

	return func(c *fiber.Ctx) error {
		c.Set("Deprecation", "true")
		if sunset != "" {
			c.Set("Sunset", sunset)
			days := time.Until(d.SunsetDate).Hours() / 24
			c.Set("Warning", fmt.Sprintf(`299 - "Deprecated API, will sunset in %.0f days"`, days))
		}
		if d.Alternative != "" {
			c.Set("Link", fmt.Sprintf(`<%s>; rel="successor-version"`, d.Alternative))
		}
		return c.Next()
	}
}
