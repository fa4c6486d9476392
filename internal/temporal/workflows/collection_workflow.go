// Package workflows defines the Temporal workflow that runs scheduled
// collection.
package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/helixir/paper-triage-service/internal/collector"
	"github.com/helixir/paper-triage-service/internal/domain"
	ptemporal "github.com/helixir/paper-triage-service/internal/temporal"
	"github.com/helixir/paper-triage-service/internal/temporal/activities"
)

// QueryProgress re-exports the progress query name.
const QueryProgress = ptemporal.QueryProgress

// CollectionWorkflowInput is an alias for the shared input type defined in the
// parent temporal package.
type CollectionWorkflowInput = ptemporal.CollectionWorkflowInput

const (
	settingsActivityTimeout = 30 * time.Second

	// defaultStageTimeout bounds a stage when the run has no time budget.
	defaultStageTimeout = time.Hour
)

// Stages reported by the progress query.
const (
	StageLoadingSettings = "loading_settings"
	StageKeywords        = "keywords"
	StageFeeds           = "feeds"
	StageCitations       = "citations"
	StageSkipped         = "skipped"
	StageDone            = "done"
)

// CollectionWorkflow runs keyword, feed and citation collection in order.
//
// The run is a no-op when automatic collection is disabled in the review
// settings. A failed stage counts as one error and the next stage still runs.
// The citation stage is sized from the workflow time left in the budget.
func CollectionWorkflow(ctx workflow.Context, input CollectionWorkflowInput) (*collector.Summary, error) {
	logger := workflow.GetLogger(ctx)
	startTime := workflow.Now(ctx)

	stage := StageLoadingSettings
	if err := workflow.SetQueryHandler(ctx, QueryProgress, func() (string, error) {
		return stage, nil
	}); err != nil {
		return nil, fmt.Errorf("register progress query: %w", err)
	}

	var act *activities.CollectionActivities

	settingsCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: settingsActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    500 * time.Millisecond,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    5,
		},
	})

	var settings domain.ReviewSettings
	if err := workflow.ExecuteActivity(settingsCtx, act.LoadSettings).Get(ctx, &settings); err != nil {
		return nil, fmt.Errorf("load review settings: %w", err)
	}

	summary := &collector.Summary{}
	if !settings.AutoCollectEnabled {
		stage = StageSkipped
		logger.Info("automatic collection disabled, skipping run")
		return summary, nil
	}

	// Stages write collection logs, so they are not retried.
	stageCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: stageTimeout(input.Budget),
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	runStage := func(name string, activityFn interface{}, args ...interface{}) {
		stage = name
		var rep collector.Report
		if err := workflow.ExecuteActivity(stageCtx, activityFn, args...).Get(ctx, &rep); err != nil {
			logger.Error("collection stage failed", "stage", name, "error", err)
			summary.Errors++
			return
		}
		summary.Merge(rep.Summary)
	}

	runStage(StageKeywords, act.CollectKeywords)
	runStage(StageFeeds, act.CollectFeeds)

	elapsed := workflow.Now(ctx).Sub(startTime)
	seedCap := collector.SeedCap(input.MaxSeeds, input.Budget, elapsed)
	if seedCap > 0 {
		runStage(StageCitations, act.CollectCitations, activities.CollectCitationsInput{MaxSeeds: seedCap})
	} else {
		logger.Info("no time left for citation exploration", "elapsed", elapsed)
	}

	stage = StageDone
	logger.Info("scheduled collection finished",
		"units", summary.UnitsProcessed,
		"papers", summary.TotalPapersFound,
		"errors", summary.Errors,
		"seedCap", seedCap,
	)
	return summary, nil
}

func stageTimeout(budget collector.BudgetConfig) time.Duration {
	if budget.Total > 0 {
		return budget.Total
	}
	return defaultStageTimeout
}
