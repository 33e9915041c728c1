package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMissingParameter is returned when a required query value is absent.
	ErrMissingParameter = errors.New("missing parameter")
	// ErrInvalidCoordinate is returned for anything that is not "lat,lon".
	ErrInvalidCoordinate = errors.New("invalid coordinate format, use lat,lon")
	// ErrUnknownDestination is returned when the destination is not a registered point.
	ErrUnknownDestination = errors.New("invalid destination point")
	// ErrRateLimited is returned when a client exhausted its window.
	ErrRateLimited = errors.New("too many requests")
	// ErrAllProvidersUnavailable is returned when every routing provider failed.
	ErrAllProvidersUnavailable = errors.New("unable to calculate distance")
	// ErrUpstreamUnavailable is returned when the points directory cannot be reached.
	ErrUpstreamUnavailable = errors.New("points directory unavailable")
	// ErrPersistence wraps snapshot read/write failures.
	ErrPersistence = errors.New("persistence failure")
	// ErrUnauthorized is returned for a bad administrative secret.
	ErrUnauthorized = errors.New("invalid secret")
)

// RateLimitError is the rejection returned by the coordinator when a client
// is over its window.
type RateLimitError struct {
	Class      string
	Count      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: %d requests in %s window (%s)", ErrRateLimited, e.Count, e.RetryAfter, e.Class)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }
