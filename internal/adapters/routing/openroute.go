package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samirrijal/footpath/internal/core/domain"
)

const openRouteBaseURL = "https://api.openrouteservice.org"

// OpenRoute resolves walking distances with OpenRouteService directions.
// Self-hosted instances usually run without an api key.
type OpenRoute struct {
	client  *http.Client
	apiKey  string
	baseURL string
	profile string
}

// NewOpenRoute creates the provider. baseURL and client may be empty/nil.
func NewOpenRoute(apiKey, baseURL string, client *http.Client) *OpenRoute {
	if baseURL == "" {
		baseURL = openRouteBaseURL
	}
	return &OpenRoute{
		client:  newHTTPClient(client),
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		profile: "foot-walking",
	}
}

func (o *OpenRoute) Name() string { return "openroute" }

type directionsRequest struct {
	Coordinates [][2]float64 `json:"coordinates"`
}

type directionsResponse struct {
	Routes []struct {
		Summary struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"summary"`
	} `json:"routes"`
}

// ResolveDistance requests a foot-walking route. ORS takes lon,lat pairs.
func (o *OpenRoute) ResolveDistance(ctx context.Context, origin, destination domain.Coordinate) (domain.DistanceEntry, error) {
	payload, err := json.Marshal(directionsRequest{
		Coordinates: [][2]float64{
			{origin.Lon, origin.Lat},
			{destination.Lon, destination.Lat},
		},
	})
	if err != nil {
		return domain.DistanceEntry{}, err
	}

	url := fmt.Sprintf("%s/v2/directions/%s", o.baseURL, o.profile)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return domain.DistanceEntry{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", o.apiKey)
	}

	resp, err := do(o.client, req)
	if err != nil {
		return domain.DistanceEntry{}, err
	}
	defer resp.Body.Close()

	var body directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.DistanceEntry{}, fmt.Errorf("decode directions: %w", err)
	}
	if len(body.Routes) == 0 {
		return domain.DistanceEntry{}, errors.New("directions: no route")
	}

	s := body.Routes[0].Summary
	return domain.DistanceEntry{
		DistanceMeters:  int(s.Distance),
		DurationSeconds: int(s.Duration),
	}, nil
}
