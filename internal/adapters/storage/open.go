// Package storage picks the snapshot backend named in the configuration.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samirrijal/footpath/internal/adapters/filestore"
	"github.com/samirrijal/footpath/internal/adapters/postgres"
	"github.com/samirrijal/footpath/internal/adapters/valkey"
	"github.com/samirrijal/footpath/internal/core/ports"
	"github.com/samirrijal/footpath/internal/pkg/config"
)

// Open connects the configured backend. The caller owns Close.
func Open(ctx context.Context, cfg *config.Config) (ports.SnapshotStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendFile, "":
		s, err := filestore.New(cfg.Storage.Dir)
		if err != nil {
			return nil, err
		}
		slog.Info("snapshot store ready", "backend", config.BackendFile, "dir", s.Dir())
		return s, nil

	case config.BackendPostgres:
		db, err := postgres.New(ctx, PostgresOptions(cfg.Database, "footpath"))
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		slog.Info("snapshot store ready", "backend", config.BackendPostgres, "host", cfg.Database.Host, "db", cfg.Database.DBName)
		return postgres.NewSnapshotStore(db), nil

	case config.BackendValkey:
		s, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			return nil, err
		}
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("valkey ping: %w", err)
		}
		slog.Info("snapshot store ready", "backend", config.BackendValkey, "addr", cfg.Valkey.Addr)
		return s, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

// PostgresOptions maps the database section onto pool options; app names the
// connection in pg_stat_activity.
func PostgresOptions(db config.DatabaseConfig, app string) postgres.Options {
	return postgres.Options{
		DSN:            db.DSN(),
		MaxConns:       db.MaxConns,
		MinConns:       db.MinConns,
		ConnectTimeout: time.Duration(db.ConnectTimeoutSeconds) * time.Second,
		AppName:        app,
	}
}
