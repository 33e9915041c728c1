package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/footpath/internal/adapters/directory"
	"github.com/samirrijal/footpath/internal/adapters/http"
	natsadapter "github.com/samirrijal/footpath/internal/adapters/nats"
	"github.com/samirrijal/footpath/internal/adapters/routing"
	"github.com/samirrijal/footpath/internal/adapters/storage"
	"github.com/samirrijal/footpath/internal/core/domain"
	"github.com/samirrijal/footpath/internal/core/ports"
	"github.com/samirrijal/footpath/internal/core/usecases"
	"github.com/samirrijal/footpath/internal/pkg/config"
	"github.com/samirrijal/footpath/internal/pkg/logging"
	"github.com/samirrijal/footpath/internal/pkg/telemetry"
)

const serviceName = "footpath-api"

var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(serviceName)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format, serviceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer store.Close()

	// NATS (optional): events out, refresh announcements in, /ws relay.
	instance := uuid.NewString()
	var events ports.EventPublisher
	var natsConn *nats.Conn
	var sub *natsadapter.Subscriber
	if cfg.NATS.URL != "" {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL, instance)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			events = pub
			natsConn = pub.Conn()
		}

		sub, err = natsadapter.NewSubscriber(cfg.NATS.URL, instance)
		if err != nil {
			slog.Warn("nats subscriber unavailable", "error", err)
		} else {
			defer sub.Close()
		}
	}

	var dir ports.PointDirectory
	if cfg.Directory.BaseURL != "" {
		strapi, err := directory.NewStrapi(cfg.Directory.BaseURL, cfg.Directory.Token, nil)
		if err != nil {
			log.Fatalf("directory: %v", err)
		}
		dir = strapi
	} else {
		slog.Warn("directory.base_url not set, point refresh disabled")
	}

	providers, err := buildProviders(cfg.Providers)
	if err != nil {
		log.Fatalf("providers: %v", err)
	}

	// Core
	registry := usecases.NewPointRegistry(dir, store, events)
	registry.SetTolerance(cfg.Geo.LookupTolerance)
	if err := registry.Load(ctx); err != nil {
		slog.Warn("points snapshot unavailable", "error", err)
	}

	cache := usecases.NewDistanceCache(store)
	if err := cache.Load(ctx); err != nil {
		slog.Warn("distance cache snapshot unavailable", "error", err)
	}

	limits := usecases.RateLimits{
		Distance: window("distance", cfg.Limits.Distance, events),
		Batch:    window("batch", cfg.Limits.Batch, events),
		Admin:    window("admin", cfg.Limits.Admin, events),
		Refresh:  window("refresh", cfg.Limits.Refresh, events),
	}
	limits.StartJanitors(ctx, time.Duration(cfg.Limits.JanitorSeconds)*time.Second)

	chain := usecases.NewProviderChain(time.Duration(cfg.Providers.TimeoutSeconds)*time.Second, providers...)
	svc := usecases.NewDistanceService(limits, registry, cache, chain, events, usecases.DistanceOptions{
		BandThresholdKm:  cfg.Geo.BandThresholdKm,
		BandStepKm:       cfg.Geo.BandStepKm,
		OriginPrecision:  cfg.Geo.OriginPrecision,
		BatchConcurrency: cfg.Batch.Concurrency,
	})

	if sub != nil {
		err := sub.SubscribePointsRefreshed(ctx, func(ctx context.Context, ev *domain.Event) error {
			n, err := svc.ReloadPoints(ctx)
			if err != nil {
				return err
			}
			slog.Info("points reloaded from shared store", "points", n, "from", ev.Instance)
			return nil
		})
		if err != nil {
			slog.Warn("subscribe points refreshed failed", "error", err)
		}
	}

	deps := &http.Dependencies{
		Distances:      svc,
		Store:          store,
		NATS:           natsConn,
		AdminSecret:    cfg.Admin.Secret,
		HourlyLimit:    cfg.Limits.Hourly,
		DailyLimit:     cfg.Limits.Daily,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeout) * time.Second,
		Version:        version,
		DocsPath:       cfg.Server.DocsPath,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024,
		AppName:      "footpath API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "points", registry.Count(), "cache_entries", cache.Len(), "providers", chain.Names())
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func window(class string, w config.Window, events ports.EventPublisher) *usecases.SlidingWindow {
	return usecases.NewSlidingWindow(class, w.Max, time.Duration(w.WindowSeconds)*time.Second,
		usecases.WithRejectionEvents(events))
}

// buildProviders creates the routing providers in configured order, each
// behind its own outbound throttle.
func buildProviders(cfg config.ProvidersConfig) ([]ports.RoutingProvider, error) {
	var out []ports.RoutingProvider
	for _, name := range cfg.Order {
		var p ports.RoutingProvider
		switch name {
		case "google":
			g, err := routing.NewGoogle(cfg.Google.APIKey, cfg.Google.BaseURL, nil)
			if err != nil {
				return nil, err
			}
			p = g
		case "openroute":
			p = routing.NewOpenRoute(cfg.OpenRoute.APIKey, cfg.OpenRoute.BaseURL, nil)
		default:
			return nil, fmt.Errorf("unknown provider %q", name)
		}
		out = append(out, routing.Throttle(p, cfg.RPS, cfg.Burst))
	}
	return out, nil
}
