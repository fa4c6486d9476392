package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixir/paper-triage-service/internal/app"
)

func init() {
	rootCmd.AddCommand(settingsCmd)
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Print the current review settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			s, err := a.Repos.Settings.GetReviewSettings(ctx)
			if err != nil {
				return fmt.Errorf("load review settings: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), s)
		})
	},
}
