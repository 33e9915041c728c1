package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/samirrijal/footpath/internal/core/domain"
)

// Strapi fetches the registered points from a Strapi content API
// (GET {base}/api/points).
type Strapi struct {
	client  *http.Client
	baseURL string
	token   string
}

// NewStrapi creates a directory client. client may be nil.
func NewStrapi(baseURL, token string, client *http.Client) (*Strapi, error) {
	if baseURL == "" {
		return nil, errors.New("directory base url is empty")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Strapi{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}, nil
}

// number accepts 44.8 as well as "44.8".
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || string(data) == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid number %q", data)
	}
	*n = number(v)
	return nil
}

type pointItem struct {
	ID        domain.PointID `json:"id"`
	Latitude  number         `json:"Latitude"`
	Longitude number         `json:"Longitude"`
	Name      string         `json:"Name"`
}

type pointsResponse struct {
	Data []pointItem `json:"data"`
}

// FetchPoints returns the full set of points.
func (s *Strapi) FetchPoints(ctx context.Context) ([]domain.Point, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/points", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch points: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fetch points: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var body pointsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode points: %w", err)
	}

	return toPoints(body.Data), nil
}

func toPoints(items []pointItem) []domain.Point {
	points := make([]domain.Point, 0, len(items))
	for _, it := range items {
		name := it.Name
		if name == "" {
			name = "Point " + string(it.ID)
		}
		points = append(points, domain.Point{
			ID:   it.ID,
			Lat:  float64(it.Latitude),
			Lon:  float64(it.Longitude),
			Name: name,
		})
	}
	return points
}

// DecodePoints parses a directory export (the same {"data":[...]} body the
// API returns) or a plain JSON array of points.
func DecodePoints(r io.Reader) ([]domain.Point, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)

	if len(raw) > 0 && raw[0] == '[' {
		var points []domain.Point
		if err := json.Unmarshal(raw, &points); err != nil {
			return nil, fmt.Errorf("decode points: %w", err)
		}
		return points, nil
	}

	var body pointsResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode points: %w", err)
	}
	return toPoints(body.Data), nil
}
