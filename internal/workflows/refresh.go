package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/footpath/internal/core/domain"
)

// WorkflowID is the fixed id of the scheduled refresh, so at most one runs.
const WorkflowID = "footpath-points-refresh"

// RefreshInput is the input for the refresh workflow.
type RefreshInput struct {
	// Reason is recorded in the workflow log ("cron", "manual").
	Reason string
}

// RefreshResult is what the refresh workflow returns.
type RefreshResult struct {
	Points    int
	Announced bool
}

// RefreshPointsWorkflow fetches the points from the directory, replaces the
// shared snapshot and announces the new set over the event bus. A failed
// announcement does not fail the run; instances still pick the snapshot up
// on their next restart or refresh.
func RefreshPointsWorkflow(ctx workflow.Context, input RefreshInput) (RefreshResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting points refresh", "reason", input.Reason)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	var points []domain.Point
	if err := workflow.ExecuteActivity(ctx, "FetchPoints").Get(ctx, &points); err != nil {
		return RefreshResult{}, err
	}

	var saved int
	if err := workflow.ExecuteActivity(ctx, "SavePoints", points).Get(ctx, &saved); err != nil {
		return RefreshResult{}, err
	}

	result := RefreshResult{Points: saved}
	if err := workflow.ExecuteActivity(ctx, "AnnouncePoints", saved).Get(ctx, nil); err != nil {
		logger.Warn("points announcement failed", "error", err)
		return result, nil
	}
	result.Announced = true

	logger.Info("Points refresh complete", "points", saved)
	return result, nil
}
