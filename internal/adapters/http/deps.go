package http

import (
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/footpath/internal/core/ports"
	"github.com/samirrijal/footpath/internal/core/usecases"
)

// Dependencies holds everything the HTTP handlers need.
type Dependencies struct {
	Distances   *usecases.DistanceService
	Store       ports.SnapshotStore
	NATS        *nats.Conn
	AdminSecret string

	// Coarse per-client ceilings on top of the sliding windows; 0 disables.
	HourlyLimit int
	DailyLimit  int

	// RequestTimeout bounds distance handlers; 0 means 25s.
	RequestTimeout time.Duration
	Version        string

	// DocsPath is the OpenAPI document served under /docs; empty means
	// api/openapi.yaml.
	DocsPath string
}

func (d *Dependencies) requestTimeout() time.Duration {
	if d.RequestTimeout > 0 {
		return d.RequestTimeout
	}
	return 25 * time.Second
}

func (d *Dependencies) docsPath() string {
	if d.DocsPath != "" {
		return d.DocsPath
	}
	return defaultDocsPath
}

func (d *Dependencies) version() string {
	if d.Version != "" {
		return d.Version
	}
	return "dev"
}
