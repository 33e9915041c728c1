package http

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/samirrijal/footpath/internal/core/domain"
	"github.com/samirrijal/footpath/internal/core/usecases"
)

// distanceBody is the JSON shape of one answer. Pointer fields keep a real
// zero (origin on the point) apart from an absent value.
type distanceBody struct {
	Distance *int            `json:"distance,omitempty"`
	Duration *int            `json:"duration,omitempty"`
	ID       *domain.PointID `json:"id,omitempty"`
	MoreThan *int            `json:"more_than,omitempty"`
	Error    string          `json:"error,omitempty"`
}

func toBody(out domain.Outcome, withID bool) distanceBody {
	var b distanceBody
	if withID || out.Kind == domain.OutcomeResolved {
		id := out.Point.ID
		b.ID = &id
	}

	switch out.Kind {
	case domain.OutcomeResolved:
		d, t := out.Entry.DistanceMeters, out.Entry.DurationSeconds
		b.Distance, b.Duration = &d, &t
	case domain.OutcomeBanded:
		km := out.MoreThanKm
		b.MoreThan = &km
	case domain.OutcomeFailed:
		b.Error = "Unable to calculate distance"
	}
	return b
}

// clientID identifies the caller: the first X-Forwarded-For entry, else the
// peer address. The header value aliases the request buffer, so it is copied
// before it is used as a long-lived rate limit key.
func clientID(c *fiber.Ctx) string {
	if xff := c.Get(fiber.HeaderXForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return utils.CopyString(first)
		}
	}
	return c.IP()
}

// DistanceHandler answers GET /distance?origin=lat,lon&destination=lat,lon.
func DistanceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		out, err := deps.Distances.Distance(c.UserContext(), usecases.DistanceQuery{
			ClientID:    clientID(c),
			Origin:      c.Query("origin"),
			Destination: c.Query("destination"),
		})
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(toBody(out, false))
	}
}

// AllDistancesHandler answers GET /all_distances?origin=lat,lon.
func AllDistancesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		outs, err := deps.Distances.AllDistances(c.UserContext(), clientID(c), c.Query("origin"))
		if err != nil {
			return writeError(c, err)
		}

		items := make([]distanceBody, len(outs))
		for i, out := range outs {
			items[i] = toBody(out, true)
		}
		return c.JSON(items)
	}
}

// ListPointsHandler returns the registered destinations, paginated.
func ListPointsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		points := deps.Distances.Points()
		page, pg := paginate(c, points)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// validSecret compares got with the admin secret in constant time. An unset
// secret never matches.
func validSecret(deps *Dependencies, got string) bool {
	return deps.AdminSecret != "" && subtle.ConstantTimeCompare([]byte(got), []byte(deps.AdminSecret)) == 1
}

// adminGuard applies the given window and, when requireSecret is set,
// checks ?secret= in constant time.
func adminGuard(deps *Dependencies, admit func(clientID string) error, requireSecret bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := admit(clientID(c)); err != nil {
			return writeError(c, err)
		}
		if requireSecret {
			if !validSecret(deps, c.Query("secret")) {
				LoggerFromCtx(c.UserContext()).Warn("admin secret rejected", "client", clientID(c), "path", c.Path())
				return writeError(c, domain.ErrUnauthorized)
			}
		}
		return c.Next()
	}
}

// RefreshPointsHandler reloads the registry from the points directory.
func RefreshPointsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		points, err := deps.Distances.RefreshPoints(c.UserContext())
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{
			"success":       true,
			"points_loaded": len(points),
			"points":        points,
		})
	}
}

// ClearCacheHandler empties the distance cache.
func ClearCacheHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		n, err := deps.Distances.ClearCache(c.UserContext())
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "cleared_entries": n})
	}
}

// StatsHandler reports limiter and store figures.
func StatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Distances.Stats())
	}
}
