// Package temporal provides Temporal client and worker integration for
// scheduled paper collection.
//
// # Overview
//
//   - CollectionClient starts the recurring collection workflow under a fixed
//     ID and queries its progress.
//   - WorkerManager owns the worker that executes the workflow and its
//     activities.
//   - The workflow lives in the workflows subpackage, its activities in the
//     activities subpackage.
//
// # Scheduling
//
//	c, err := temporal.NewClient(cfg, observability.NewTemporalLogger(logger))
//	cc := temporal.NewCollectionClient(c, cfg)
//	started, err := cc.StartSchedule(ctx, workflows.CollectionWorkflow, temporal.CollectionWorkflowInput{
//	    MaxSeeds: 5,
//	    Budget:   budget,
//	})
//
// StartSchedule returns started=false without error when the cron workflow is
// already running, so every worker can call it on boot.
//
// # Error Handling
//
//	if temporal.IsWorkflowAlreadyStarted(err) {
//	    // Workflow with same ID is already running
//	}
package temporal
