package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/helixir/paper-triage-service/internal/app"
	"github.com/helixir/paper-triage-service/internal/collector"
	"github.com/helixir/paper-triage-service/internal/observability"
)

var (
	collectMaxSeeds  int
	collectScheduled bool
)

func init() {
	collectCmd.PersistentFlags().BoolVar(&collectScheduled, "scheduled", false, "Behave like a scheduled run (honour auto_collect_enabled, scheduled seed cap)")
	collectCitationsCmd.Flags().IntVar(&collectMaxSeeds, "max-seeds", 0, "Seeds to explore (0 = configured default)")
	collectAllCmd.Flags().IntVar(&collectMaxSeeds, "max-seeds", 0, "Citation seeds to explore (0 = configured default)")

	collectCmd.AddCommand(collectKeywordsCmd, collectRSSCmd, collectCitationsCmd, collectAllCmd)
	rootCmd.AddCommand(collectCmd)
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run a collection stage now",
}

var collectKeywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Search every active keyword",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCollect(cmd, func(ctx context.Context, a *app.App) (interface{}, error) {
			return a.Keywords.Run(ctx)
		})
	},
}

var collectRSSCmd = &cobra.Command{
	Use:   "rss",
	Short: "Fetch every active feed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCollect(cmd, func(ctx context.Context, a *app.App) (interface{}, error) {
			return a.Feeds.Run(ctx)
		})
	},
}

var collectCitationsCmd = &cobra.Command{
	Use:   "citations",
	Short: "Explore the citation graph around approved and favorite papers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCollect(cmd, func(ctx context.Context, a *app.App) (interface{}, error) {
			if collectScheduled {
				if skip, err := collector.SkipIfDisabled(ctx, a.Repos.Settings); err != nil || skip {
					return map[string]interface{}{"skipped": skip}, err
				}
			}
			return a.Citations.Run(ctx, seedCap(a))
		})
	},
}

var collectAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Run keywords, feeds and citations under the time budget",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCollect(cmd, func(ctx context.Context, a *app.App) (interface{}, error) {
			return a.Combined.Run(ctx, collector.RunOptions{
				MaxSeeds:                  seedCap(a),
				SkipIfAutoCollectDisabled: collectScheduled,
			})
		})
	},
}

// seedCap resolves the --max-seeds flag against the configured defaults.
func seedCap(a *app.App) int {
	if collectMaxSeeds > 0 {
		return collectMaxSeeds
	}
	if collectScheduled {
		return a.Config.Citation.MaxSeedsScheduled
	}
	return a.Config.Citation.MaxSeedsManual
}

func runCollect(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) (interface{}, error)) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		trigger := observability.TriggerManual
		if collectScheduled {
			trigger = observability.TriggerScheduled
		}
		report, err := fn(observability.WithTrigger(ctx, trigger), a)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), report)
	})
}
