package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/footpath/internal/adapters/directory"
	natsadapter "github.com/samirrijal/footpath/internal/adapters/nats"
	"github.com/samirrijal/footpath/internal/adapters/storage"
	"github.com/samirrijal/footpath/internal/pkg/config"
	"github.com/samirrijal/footpath/internal/pkg/logging"
	"github.com/samirrijal/footpath/internal/workflows"
)

const serviceName = "footpath-refresher"

// Usage:
//
//	refresher          # run the worker (and the cron workflow if configured)
//	refresher trigger  # start one refresh and wait for it
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(serviceName)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format, serviceName)

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(logger),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	if len(os.Args) > 1 && os.Args[1] == "trigger" {
		trigger(c, cfg.Temporal.TaskQueue)
		return
	}

	ctx := context.Background()

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer store.Close()

	dir, err := directory.NewStrapi(cfg.Directory.BaseURL, cfg.Directory.Token, nil)
	if err != nil {
		log.Fatalf("directory: %v", err)
	}

	acts := &workflows.RefreshActivities{Directory: dir, Store: store}
	if cfg.NATS.URL != "" {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL, uuid.NewString())
		if err != nil {
			slog.Warn("nats unavailable, refreshes will not be announced", "error", err)
		} else {
			defer pub.Close()
			acts.Events = pub
		}
	}

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.RefreshPointsWorkflow)
	w.RegisterActivity(acts)

	if cfg.Temporal.CronSchedule != "" {
		scheduleCron(ctx, c, cfg.Temporal)
	}

	slog.Info("refresher worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

// scheduleCron starts the cron workflow once; a running one is left alone.
func scheduleCron(ctx context.Context, c client.Client, cfg config.TemporalConfig) {
	_, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:           workflows.WorkflowID,
		TaskQueue:    cfg.TaskQueue,
		CronSchedule: cfg.CronSchedule,
	}, workflows.RefreshPointsWorkflow, workflows.RefreshInput{Reason: "cron"})

	var started *serviceerror.WorkflowExecutionAlreadyStarted
	switch {
	case errors.As(err, &started):
		slog.Info("cron refresh already scheduled", "workflow_id", workflows.WorkflowID)
	case err != nil:
		slog.Error("schedule cron refresh failed", "error", err)
	default:
		slog.Info("cron refresh scheduled", "schedule", cfg.CronSchedule)
	}
}

func trigger(c client.Client, taskQueue string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        workflows.WorkflowID + "-manual-" + uuid.NewString(),
		TaskQueue: taskQueue,
	}, workflows.RefreshPointsWorkflow, workflows.RefreshInput{Reason: "manual"})
	if err != nil {
		log.Fatalf("start refresh: %v", err)
	}

	var res workflows.RefreshResult
	if err := run.Get(ctx, &res); err != nil {
		log.Fatalf("refresh failed: %v", err)
	}
	slog.Info("refresh complete", "points", res.Points, "announced", res.Announced)
}
