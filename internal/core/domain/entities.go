package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// PointID is the opaque identifier handed out by the points directory.
// Integer ids are kept as JSON numbers so snapshots and responses keep the
// directory's representation.
type PointID string

func (id PointID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *PointID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = PointID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = PointID(n.String())
	return nil
}

// Point is a destination the service is willing to route to.
type Point struct {
	ID   PointID `json:"id"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Name string  `json:"name"`
}

// Coordinate returns the point's position.
func (p Point) Coordinate() Coordinate {
	return Coordinate{Lat: p.Lat, Lon: p.Lon}
}

// DistanceEntry is a walking distance as stored in the distance cache.
type DistanceEntry struct {
	DistanceMeters  int `json:"distance"`
	DurationSeconds int `json:"duration"`
}

// OutcomeKind tells how a destination was answered.
type OutcomeKind int

const (
	// OutcomeResolved carries a routed (or cached) distance.
	OutcomeResolved OutcomeKind = iota
	// OutcomeBanded means the straight-line distance was over the band
	// threshold and only a coarse band is reported.
	OutcomeBanded
	// OutcomeFailed means no provider could answer.
	OutcomeFailed
)

// Outcome is the answer for one origin/destination pair.
type Outcome struct {
	Kind       OutcomeKind
	Point      Point
	Entry      DistanceEntry
	MoreThanKm int
	Cached     bool
	Err        error
}

// Status is the liveness snapshot of the service.
type Status struct {
	PointsLoaded int           `json:"points_loaded"`
	CacheEntries int           `json:"cache_entries"`
	Uptime       time.Duration `json:"-"`
	CheckedAt    time.Time     `json:"timestamp"`
}

// ClientStats is the rate-limit view of one client in one endpoint class.
type ClientStats struct {
	Client         string `json:"client"`
	RecentRequests int    `json:"recent_requests"`
	TotalRequests  int    `json:"total_requests"`
	IsRateLimited  bool   `json:"is_rate_limited"`
}

// LimitStats describes one rate-limit class.
type LimitStats struct {
	Class         string        `json:"class"`
	WindowSeconds int           `json:"window_seconds"`
	MaxRequests   int           `json:"max_requests"`
	ActiveClients int           `json:"active_clients"`
	Clients       []ClientStats `json:"clients"`
}

// Stats is the administrative overview of the coordinator.
type Stats struct {
	ActiveClients int          `json:"active_ips"`
	PointsCount   int          `json:"points_of_interest_count"`
	CacheEntries  int          `json:"cache_entries"`
	Limits        []LimitStats `json:"rate_limits"`
}

// Event subjects published on the message bus.
const (
	SubjectPointsRefreshed = "footpath.points.refreshed"
	SubjectCacheCleared    = "footpath.cache.cleared"
	SubjectRateLimited     = "footpath.ratelimit.rejected"
)

// Event is the envelope for everything published on the message bus.
type Event struct {
	ID         string    `json:"id"`
	Subject    string    `json:"subject"`
	Instance   string    `json:"instance"`
	OccurredAt time.Time `json:"occurred_at"`

	Points  int    `json:"points,omitempty"`
	Cleared int    `json:"cleared,omitempty"`
	Client  string `json:"client,omitempty"`
	Class   string `json:"class,omitempty"`
	Count   int    `json:"count,omitempty"`
}
