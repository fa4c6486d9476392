// Package collector runs the collection units (keywords, feeds, citation
// seeds) sequentially and routes every new paper through deduplication,
// enrichment, scoring and review-status resolution before storing it.
package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-triage-service/internal/citation"
	"github.com/helixir/paper-triage-service/internal/dedup"
	"github.com/helixir/paper-triage-service/internal/domain"
	"github.com/helixir/paper-triage-service/internal/observability"
	"github.com/helixir/paper-triage-service/internal/scoring"
)

// PaperStore is the paper persistence the orchestrators need.
type PaperStore interface {
	dedup.KeyStore
	InsertPaper(ctx context.Context, p *domain.Paper) (bool, error)
	LinkKeyword(ctx context.Context, paperID, keywordID uuid.UUID) error
}

// KeywordStore lists configured search keywords.
type KeywordStore interface {
	ListActiveKeywords(ctx context.Context) ([]*domain.Keyword, error)
}

// FeedStore lists configured feeds and records fetch times.
type FeedStore interface {
	ListActiveFeeds(ctx context.Context) ([]*domain.Feed, error)
	MarkFeedFetched(ctx context.Context, id uuid.UUID, at time.Time) error
}

// UnitResult is the outcome of one keyword, feed or seed.
type UnitResult struct {
	Origin      domain.LogOrigin        `json:"origin"`
	ID          uuid.UUID               `json:"id"`
	Name        string                  `json:"name"`
	Status      domain.LogStatus        `json:"status"`
	PapersFound int                     `json:"papers_found"`
	Message     string                  `json:"message"`
	Breakdown   *domain.ReviewBreakdown `json:"review_breakdown,omitempty"`
}

// Summary aggregates unit results.
type Summary struct {
	UnitsProcessed   int                    `json:"units_processed"`
	TotalPapersFound int                    `json:"total_papers_found"`
	Errors           int                    `json:"errors"`
	Breakdown        domain.ReviewBreakdown `json:"breakdown"`
}

// Add folds r into the summary.
func (s *Summary) Add(r UnitResult) {
	s.UnitsProcessed++
	s.TotalPapersFound += r.PapersFound
	if r.Status == domain.LogStatusError {
		s.Errors++
	}
	if r.Breakdown != nil {
		s.Breakdown.Merge(*r.Breakdown)
	}
}

// Merge folds another summary into s.
func (s *Summary) Merge(other Summary) {
	s.UnitsProcessed += other.UnitsProcessed
	s.TotalPapersFound += other.TotalPapersFound
	s.Errors += other.Errors
	s.Breakdown.Merge(other.Breakdown)
}

// Report is the result of one orchestrator run.
type Report struct {
	Results []UnitResult `json:"results"`
	Summary Summary      `json:"summary"`
}

func newReport() *Report {
	return &Report{Results: []UnitResult{}}
}

func (r *Report) add(u UnitResult) {
	r.Results = append(r.Results, u)
	r.Summary.Add(u)
}

// Deps bundles the collaborators shared by the orchestrators.
type Deps struct {
	Papers    PaperStore
	Settings  citation.SettingsStore
	Interests citation.InterestLister
	Logs      citation.LogStore
	Scorer    *scoring.Scorer
	Logger    zerolog.Logger
	Metrics   *observability.Metrics
}

// profile is the settings and interests read once per run.
type profile struct {
	settings  domain.ReviewSettings
	interests []*domain.Interest
}

func loadProfile(ctx context.Context, deps Deps) (*profile, error) {
	settings, err := deps.Settings.GetReviewSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading review settings: %w", err)
	}
	p := &profile{settings: settings}
	if settings.ScoringEnabled {
		if p.interests, err = deps.Interests.ListInterests(ctx); err != nil {
			return nil, fmt.Errorf("loading interests: %w", err)
		}
	}
	return p, nil
}

// assess scores p when scoring is enabled. An empty profile yields the
// neutral score without a provider call. Otherwise p stays pending and unscored.
func (pr *profile) assess(ctx context.Context, scorer *scoring.Scorer, p *domain.Paper) {
	p.ReviewStatus = domain.ReviewStatusPending
	p.RelevanceScore = nil
	if !pr.settings.ScoringEnabled || scorer == nil {
		return
	}
	scoring.Assign(p, scorer.Score(ctx, p, pr.interests), pr.settings)
}

// storer inserts processed papers and tracks the per-unit counts.
type storer struct {
	deps      Deps
	source    domain.SourceTag
	log       zerolog.Logger
	saved     int
	breakdown domain.ReviewBreakdown
}

// insert stores p and reports whether a new row was created.
func (s *storer) insert(ctx context.Context, p *domain.Paper, collectedAt time.Time) bool {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Source = s.source
	p.CollectedAt = collectedAt

	created, err := s.deps.Papers.InsertPaper(ctx, p)
	if err != nil {
		s.log.Error().Err(err).Str("title", p.TitleOriginal).Msg("failed to store paper")
		return false
	}
	if !created {
		return false
	}
	s.saved++
	s.breakdown.Add(p.ReviewStatus)
	s.deps.Metrics.RecordPaperSaved(string(p.Source), string(p.ReviewStatus), p.RelevanceScore)
	return true
}

// finishUnit appends the collection log for res and records metrics.
func finishUnit(ctx context.Context, deps Deps, log zerolog.Logger, res UnitResult, started time.Time) UnitResult {
	entry := domain.NewCollectionLog(res.Origin, res.ID, res.Status, res.PapersFound, res.Message)
	if err := deps.Logs.InsertCollectionLog(ctx, entry); err != nil {
		log.Error().Err(err).Msg("failed to write collection log")
	}
	deps.Metrics.RecordCollection(string(res.Origin), string(res.Status), res.PapersFound, time.Since(started).Seconds())
	return res
}

// savedMessage formats "<saved> of <total> newly registered" with the
// breakdown appended when scoring ran and something was saved.
func savedMessage(total int, s *storer, scoringEnabled bool) (string, *domain.ReviewBreakdown) {
	msg := fmt.Sprintf("%d of %d newly registered", s.saved, total)
	if s.saved > 0 && scoringEnabled {
		b := s.breakdown
		return msg + " " + b.String(), &b
	}
	return msg, nil
}
