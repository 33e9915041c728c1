package http

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/footpath/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status     int    `json:"status"`
	Code       string `json:"code"`  // bad_request, rate_limited, unauthorized, internal_error
	Message    string `json:"error"` // Human-readable message
	RetryAfter int    `json:"retry_after,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

func errUnauthorized(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusUnauthorized, "unauthorized", msg)
}

// errRateLimited answers 429 with retry_after in the body and the header.
func errRateLimited(c *fiber.Ctx, retryAfter time.Duration) error {
	secs := int(retryAfter / time.Second)
	if secs <= 0 {
		secs = 60
	}
	reqID, _ := c.Locals("requestid").(string)
	c.Set(fiber.HeaderRetryAfter, strconv.Itoa(secs))
	return c.Status(fiber.StatusTooManyRequests).JSON(APIError{
		Status:     fiber.StatusTooManyRequests,
		Code:       "rate_limited",
		Message:    "Too many requests. Please wait before making another request.",
		RetryAfter: secs,
		RequestID:  reqID,
	})
}

// writeError maps a coordinator error to its HTTP response.
func writeError(c *fiber.Ctx, err error) error {
	var rl *domain.RateLimitError
	switch {
	case errors.As(err, &rl):
		return errRateLimited(c, rl.RetryAfter)
	case errors.Is(err, domain.ErrRateLimited):
		return errRateLimited(c, time.Minute)
	case errors.Is(err, domain.ErrMissingParameter):
		return errBadRequest(c, err.Error())
	case errors.Is(err, domain.ErrInvalidCoordinate):
		return errBadRequest(c, "Invalid coordinate format. Use lat,lon")
	case errors.Is(err, domain.ErrUnknownDestination):
		return errBadRequest(c, "Invalid destination point")
	case errors.Is(err, domain.ErrUnauthorized):
		return errUnauthorized(c, "Invalid secret")
	case errors.Is(err, domain.ErrAllProvidersUnavailable):
		LoggerFromCtx(c.UserContext()).Warn("distance unavailable", "error", err)
		return errInternal(c, "Unable to calculate distance")
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		LoggerFromCtx(c.UserContext()).Error("points directory failed", "error", err)
		return errInternal(c, "Failed to load points from directory")
	default:
		LoggerFromCtx(c.UserContext()).Error("request failed", "error", err)
		return errInternal(c, "internal error")
	}
}
