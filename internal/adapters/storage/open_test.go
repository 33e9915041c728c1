package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/samirrijal/footpath/internal/adapters/filestore"
	"github.com/samirrijal/footpath/internal/adapters/valkey"
	"github.com/samirrijal/footpath/internal/pkg/config"
)

func TestOpen_File(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	cfg := &config.Config{Storage: config.StorageConfig{Backend: config.BackendFile, Dir: dir}}

	s, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	if _, ok := s.(*filestore.Store); !ok {
		t.Fatalf("expected *filestore.Store, got %T", s)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
}

func TestOpen_Valkey(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		Storage: config.StorageConfig{Backend: config.BackendValkey},
		Valkey:  config.ValkeyConfig{Addr: mr.Addr()},
	}

	s, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	if _, ok := s.(*valkey.Store); !ok {
		t.Fatalf("expected *valkey.Store, got %T", s)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Backend: "s3"}}
	if _, err := Open(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestPostgresOptions(t *testing.T) {
	opts := PostgresOptions(config.DatabaseConfig{
		Host: "db", Port: 5432, User: "footpath", Password: "pw", DBName: "footpath", SSLMode: "disable",
		MaxConns: 8, MinConns: 2, ConnectTimeoutSeconds: 5,
	}, "footpath-migrate")

	if opts.DSN != "postgres://footpath:pw@db:5432/footpath?sslmode=disable" {
		t.Errorf("unexpected dsn %q", opts.DSN)
	}
	if opts.MaxConns != 8 || opts.MinConns != 2 || opts.ConnectTimeout != 5*time.Second {
		t.Errorf("unexpected pool options %+v", opts)
	}
	if opts.AppName != "footpath-migrate" {
		t.Errorf("unexpected app name %q", opts.AppName)
	}
}
