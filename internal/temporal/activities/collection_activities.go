// Package activities holds the Temporal activities of the scheduled
// collection workflow. Each activity wraps one collector stage.
package activities

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/helixir/paper-triage-service/internal/citation"
	"github.com/helixir/paper-triage-service/internal/collector"
	"github.com/helixir/paper-triage-service/internal/domain"
)

// StageRunner runs a keyword or feed collection stage.
type StageRunner interface {
	Run(ctx context.Context) (*collector.Report, error)
}

// SeedRunner runs the citation stage for at most maxSeeds seeds.
type SeedRunner interface {
	Run(ctx context.Context, maxSeeds int) (*collector.Report, error)
}

// CollectCitationsInput is the input of CollectCitations.
type CollectCitationsInput struct {
	// MaxSeeds is the number of seeds to explore, already reduced to the
	// remaining time budget.
	MaxSeeds int
}

// CollectionActivities provides the activities of CollectionWorkflow.
// Methods on this struct are registered as Temporal activities via the worker.
type CollectionActivities struct {
	settings  citation.SettingsStore
	keywords  StageRunner
	feeds     StageRunner
	citations SeedRunner
}

// NewCollectionActivities creates the activity set.
func NewCollectionActivities(
	settings citation.SettingsStore,
	keywords StageRunner,
	feeds StageRunner,
	citations SeedRunner,
) *CollectionActivities {
	return &CollectionActivities{
		settings:  settings,
		keywords:  keywords,
		feeds:     feeds,
		citations: citations,
	}
}

// LoadSettings returns the current review settings.
func (a *CollectionActivities) LoadSettings(ctx context.Context) (*domain.ReviewSettings, error) {
	s, err := a.settings.GetReviewSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load review settings: %w", err)
	}
	return &s, nil
}

// CollectKeywords runs keyword collection.
func (a *CollectionActivities) CollectKeywords(ctx context.Context) (*collector.Report, error) {
	return a.runStage(ctx, "keywords", a.keywords.Run)
}

// CollectFeeds runs feed collection.
func (a *CollectionActivities) CollectFeeds(ctx context.Context) (*collector.Report, error) {
	return a.runStage(ctx, "feeds", a.feeds.Run)
}

// CollectCitations explores up to input.MaxSeeds seeds. A non-positive
// MaxSeeds returns an empty report without touching the explorer.
func (a *CollectionActivities) CollectCitations(ctx context.Context, input CollectCitationsInput) (*collector.Report, error) {
	if input.MaxSeeds <= 0 {
		activity.GetLogger(ctx).Info("no seeds fit in the remaining budget")
		return &collector.Report{Results: []collector.UnitResult{}}, nil
	}
	return a.runStage(ctx, "citations", func(ctx context.Context) (*collector.Report, error) {
		return a.citations.Run(ctx, input.MaxSeeds)
	})
}

func (a *CollectionActivities) runStage(ctx context.Context, stage string, run func(context.Context) (*collector.Report, error)) (*collector.Report, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("collection stage started", "stage", stage)
	started := time.Now()

	rep, err := run(ctx)
	if err != nil {
		logger.Error("collection stage failed", "stage", stage, "error", err, "duration", time.Since(started))
		return nil, fmt.Errorf("collect %s: %w", stage, err)
	}

	logger.Info("collection stage finished",
		"stage", stage,
		"units", rep.Summary.UnitsProcessed,
		"papers", rep.Summary.TotalPapersFound,
		"errors", rep.Summary.Errors,
		"duration", time.Since(started),
	)
	return rep, nil
}
