package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixir/paper-triage-service/internal/app"
	"github.com/helixir/paper-triage-service/internal/config"
	"github.com/helixir/paper-triage-service/internal/temporal"
)

func init() {
	scheduleCmd.AddCommand(scheduleStatusCmd)
	rootCmd.AddCommand(scheduleCmd)
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Inspect the recurring collection workflow",
}

type scheduleStatus struct {
	WorkflowID string `json:"workflow_id"`
	Cron       string `json:"cron"`
	Healthy    bool   `json:"temporal_healthy"`
	Stage      string `json:"stage,omitempty"`
	Error      string `json:"error,omitempty"`
}

var scheduleStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stage the scheduled collection run is in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		ctx, cancel := app.WithTimeout(cmd.Context(), runTimeout)
		defer cancel()

		clientCfg := app.TemporalConfig(cfg)
		c, err := temporal.NewClient(clientCfg, nil)
		if err != nil {
			return err
		}
		collections := temporal.NewCollectionClient(c, clientCfg)
		defer collections.Close()

		status := scheduleStatus{WorkflowID: clientCfg.WorkflowID, Cron: clientCfg.CronSchedule}
		if err := collections.Health(ctx); err != nil {
			status.Error = err.Error()
			return writeJSON(cmd.OutOrStdout(), status)
		}
		status.Healthy = true

		stage, err := collections.Progress(ctx)
		switch {
		case temporal.IsWorkflowNotFound(err):
			status.Error = "no scheduled workflow is running"
		case err != nil:
			status.Error = err.Error()
		default:
			status.Stage = stage
		}
		return writeJSON(cmd.OutOrStdout(), status)
	},
}
