package collector

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/helixir/paper-triage-service/internal/citation"
)

// BudgetConfig bounds a combined run in wall-clock time.
type BudgetConfig struct {
	// Total is the ceiling for the whole run.
	Total time.Duration
	// Reserve is held back before sizing the citation stage.
	Reserve time.Duration
	// PerSeed is the expected time to explore one seed.
	PerSeed time.Duration
}

// SeedCap returns how many seeds fit in the remaining budget, never more
// than maxSeeds. A zero Total or PerSeed leaves maxSeeds unchanged.
func SeedCap(maxSeeds int, budget BudgetConfig, elapsed time.Duration) int {
	if budget.Total <= 0 || budget.PerSeed <= 0 {
		return maxSeeds
	}
	remaining := budget.Total - elapsed - budget.Reserve
	if remaining <= 0 {
		return 0
	}
	fit := int(math.Floor(float64(remaining) / float64(budget.PerSeed)))
	if fit < maxSeeds {
		return fit
	}
	return maxSeeds
}

// RunOptions controls one combined run.
type RunOptions struct {
	// MaxSeeds caps the citation stage before the budget is applied.
	MaxSeeds int
	// SkipIfAutoCollectDisabled makes the run a no-op when settings disable
	// automatic collection.
	SkipIfAutoCollectDisabled bool
}

// CombinedReport is the result of a keyword, feed and citation run.
type CombinedReport struct {
	Skipped   bool    `json:"skipped"`
	Message   string  `json:"message,omitempty"`
	Keywords  *Report `json:"keywords,omitempty"`
	Feeds     *Report `json:"feeds,omitempty"`
	Citations *Report `json:"citations,omitempty"`
	// SeedCap is the citation seed limit after the budget was applied.
	SeedCap int     `json:"seed_cap"`
	Summary Summary `json:"summary"`
}

// Combined runs keyword, feed and citation collection in that order.
type Combined struct {
	keywords  *KeywordCollector
	feeds     *FeedCollector
	citations *CitationCollector
	settings  citation.SettingsStore
	budget    BudgetConfig
	deps      Deps
	clock     func() time.Time
}

// NewCombined creates a Combined orchestrator.
func NewCombined(deps Deps, keywords *KeywordCollector, feeds *FeedCollector, citations *CitationCollector, budget BudgetConfig) *Combined {
	return &Combined{
		keywords:  keywords,
		feeds:     feeds,
		citations: citations,
		settings:  deps.Settings,
		budget:    budget,
		deps:      deps,
		clock:     time.Now,
	}
}

// Run executes the stages sequentially. A stage that cannot load its
// configuration is logged and counted as one error; later stages still run.
func (c *Combined) Run(ctx context.Context, opts RunOptions) (*CombinedReport, error) {
	start := c.clock()
	logger := c.deps.Logger.With().Str("component", "combined_collector").Logger()

	if opts.SkipIfAutoCollectDisabled {
		skip, err := SkipIfDisabled(ctx, c.settings)
		if err != nil {
			return nil, err
		}
		if skip {
			logger.Info().Msg("automatic collection disabled, skipping run")
			return &CombinedReport{Skipped: true, Message: "automatic collection is disabled"}, nil
		}
	}

	out := &CombinedReport{}
	stageFailed := func(stage string, err error) {
		logger.Error().Err(err).Str("stage", stage).Msg("collection stage failed")
		out.Summary.Errors++
	}

	if rep, err := c.keywords.Run(ctx); err != nil {
		stageFailed("keywords", err)
	} else {
		out.Keywords = rep
		out.Summary.Merge(rep.Summary)
	}

	if rep, err := c.feeds.Run(ctx); err != nil {
		stageFailed("feeds", err)
	} else {
		out.Feeds = rep
		out.Summary.Merge(rep.Summary)
	}

	out.SeedCap = SeedCap(opts.MaxSeeds, c.budget, c.clock().Sub(start))
	if out.SeedCap <= 0 {
		logger.Info().Dur("elapsed", c.clock().Sub(start)).Msg("no time left for citation exploration")
		return out, nil
	}
	if rep, err := c.citations.Run(ctx, out.SeedCap); err != nil {
		stageFailed("citations", err)
	} else {
		out.Citations = rep
		out.Summary.Merge(rep.Summary)
	}

	logger.Info().
		Int("units", out.Summary.UnitsProcessed).
		Int("papers", out.Summary.TotalPapersFound).
		Int("errors", out.Summary.Errors).
		Msg("combined collection finished")
	return out, nil
}

// SkipIfDisabled reports whether settings disable automatic collection.
func SkipIfDisabled(ctx context.Context, settings citation.SettingsStore) (bool, error) {
	s, err := settings.GetReviewSettings(ctx)
	if err != nil {
		return false, fmt.Errorf("loading review settings: %w", err)
	}
	return !s.AutoCollectEnabled, nil
}
