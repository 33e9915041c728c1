package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/samirrijal/footpath/internal/core/domain"
)

const googleBaseURL = "https://maps.googleapis.com/maps/api/distancematrix/json"

// Google resolves walking distances with the Google Distance Matrix API.
type Google struct {
	client  *http.Client
	apiKey  string
	baseURL string
}

// NewGoogle creates the provider. baseURL and client may be empty/nil.
func NewGoogle(apiKey, baseURL string, client *http.Client) (*Google, error) {
	if apiKey == "" {
		return nil, errors.New("google api key is empty")
	}
	if baseURL == "" {
		baseURL = googleBaseURL
	}
	return &Google{client: newHTTPClient(client), apiKey: apiKey, baseURL: baseURL}, nil
}

func (g *Google) Name() string { return "google" }

type matrixResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Rows         []struct {
		Elements []struct {
			Status   string `json:"status"`
			Distance struct {
				Value int `json:"value"`
			} `json:"distance"`
			Duration struct {
				Value int `json:"value"`
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

// ResolveDistance asks for a single origin/destination walking element.
func (g *Google) ResolveDistance(ctx context.Context, origin, destination domain.Coordinate) (domain.DistanceEntry, error) {
	q := url.Values{}
	q.Set("origins", origin.String())
	q.Set("destinations", destination.String())
	q.Set("mode", "walking")
	q.Set("key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return domain.DistanceEntry{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := do(g.client, req)
	if err != nil {
		return domain.DistanceEntry{}, err
	}
	defer resp.Body.Close()

	var body matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.DistanceEntry{}, fmt.Errorf("decode distance matrix: %w", err)
	}

	if body.Status != "" && body.Status != "OK" {
		return domain.DistanceEntry{}, fmt.Errorf("distance matrix status %s: %s", body.Status, body.ErrorMessage)
	}
	if len(body.Rows) == 0 || len(body.Rows[0].Elements) == 0 {
		return domain.DistanceEntry{}, errors.New("distance matrix: empty response")
	}

	el := body.Rows[0].Elements[0]
	if el.Status != "OK" {
		return domain.DistanceEntry{}, fmt.Errorf("distance matrix element status %s", el.Status)
	}

	return domain.DistanceEntry{
		DistanceMeters:  el.Distance.Value,
		DurationSeconds: el.Duration.Value,
	}, nil
}
