// Package main provides the entry point for the paper triage Temporal worker.
// The worker runs the recurring collection workflow and, when Kafka is
// enabled, consumes review decisions to update the interest profile.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/helixir/paper-triage-service/internal/app"
	"github.com/helixir/paper-triage-service/internal/config"
	"github.com/helixir/paper-triage-service/internal/events"
	"github.com/helixir/paper-triage-service/internal/observability"
	"github.com/helixir/paper-triage-service/internal/temporal"
	"github.com/helixir/paper-triage-service/internal/temporal/activities"
	"github.com/helixir/paper-triage-service/internal/temporal/workflows"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := app.NewLogger(cfg, "worker")
	logger.Info().Msg("paper-triage-service worker starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger, app.Options{Metrics: app.NewMetrics(cfg)})
	if err != nil {
		return err
	}
	defer a.Close()

	clientCfg := app.TemporalConfig(cfg)
	temporalClient, err := temporal.NewClient(clientCfg, observability.NewTemporalLogger(logger))
	if err != nil {
		return fmt.Errorf("connect to temporal: %w", err)
	}
	collections := temporal.NewCollectionClient(temporalClient, clientCfg)
	defer collections.Close()
	logger.Info().
		Str("host_port", cfg.Temporal.HostPort).
		Str("namespace", cfg.Temporal.Namespace).
		Msg("temporal client connected")

	manager, err := temporal.NewWorkerManager(temporalClient, temporal.DefaultWorkerConfig(cfg.Temporal.TaskQueue))
	if err != nil {
		return fmt.Errorf("create worker manager: %w", err)
	}
	manager.RegisterWorkflow(workflows.CollectionWorkflow)
	manager.RegisterActivity(activities.NewCollectionActivities(a.Repos.Settings, a.Keywords, a.Feeds, a.Citations))

	started, err := collections.StartSchedule(ctx, workflows.CollectionWorkflow, temporal.CollectionWorkflowInput{
		MaxSeeds: cfg.Citation.MaxSeedsScheduled,
		Budget:   app.Budget(cfg),
	})
	if err != nil {
		return fmt.Errorf("start collection schedule: %w", err)
	}
	switch {
	case cfg.Temporal.CronSchedule == "":
		logger.Info().Msg("collection schedule disabled")
	case started:
		logger.Info().
			Str("workflow_id", cfg.Temporal.WorkflowID).
			Str("cron", cfg.Temporal.CronSchedule).
			Msg("collection schedule started")
	default:
		logger.Info().
			Str("workflow_id", cfg.Temporal.WorkflowID).
			Msg("collection schedule already running")
	}

	// Consume review decisions when they travel through Kafka.
	if cfg.Kafka.Enabled {
		listener := events.NewListener(app.KafkaConfig(cfg), a.Decisions, logger)
		defer func() {
			if err := listener.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close review listener")
			}
		}()

		go func() {
			if err := listener.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("review listener error")
			}
		}()

		logger.Info().
			Str("topic", cfg.Kafka.ReviewTopic).
			Str("group_id", cfg.Kafka.GroupID).
			Msg("review listener started")
	}

	logger.Info().
		Str("task_queue", cfg.Temporal.TaskQueue).
		Msg("starting temporal worker")

	// Start the worker and block until context is cancelled.
	if err := manager.Start(ctx); err != nil {
		if ctx.Err() != nil {
			logger.Info().Msg("worker stopped via signal")
			return nil
		}
		return fmt.Errorf("worker error: %w", err)
	}

	return nil
}
