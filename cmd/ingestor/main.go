package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/samirrijal/footpath/internal/adapters/directory"
	natsadapter "github.com/samirrijal/footpath/internal/adapters/nats"
	"github.com/samirrijal/footpath/internal/adapters/storage"
	"github.com/samirrijal/footpath/internal/core/domain"
	"github.com/samirrijal/footpath/internal/pkg/config"
	"github.com/samirrijal/footpath/internal/pkg/logging"
)

const serviceName = "footpath-ingestor"

// Usage:
//
//	ingestor              # fetch from the points directory
//	ingestor points.json  # load a local export instead
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(serviceName)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format, serviceName)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var points []domain.Point
	if len(os.Args) > 1 {
		points, err = loadFile(os.Args[1])
	} else {
		points, err = fetch(ctx, cfg.Directory)
	}
	if err != nil {
		log.Fatalf("load points: %v", err)
	}
	slog.Info("points loaded", "count", len(points))

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer store.Close()

	if err := store.SavePoints(ctx, points); err != nil {
		log.Fatalf("save points: %v", err)
	}

	if cfg.NATS.URL == "" {
		slog.Info("ingestion complete", "points", len(points))
		return
	}

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL, uuid.NewString())
	if err != nil {
		slog.Warn("nats unavailable, running instances will not reload", "error", err)
		return
	}
	defer pub.Close()

	if err := pub.PublishPointsRefreshed(ctx, len(points)); err != nil {
		slog.Warn("announce points failed", "error", err)
	}
	slog.Info("ingestion complete", "points", len(points))
}

func loadFile(path string) ([]domain.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return directory.DecodePoints(f)
}

func fetch(ctx context.Context, cfg config.DirectoryConfig) ([]domain.Point, error) {
	strapi, err := directory.NewStrapi(cfg.BaseURL, cfg.Token, nil)
	if err != nil {
		return nil, err
	}
	return strapi.FetchPoints(ctx)
}
