// Package citation expands the collection from approved and favorited papers
// by walking their citation graph one hop in each direction.
package citation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/helixir/paper-triage-service/internal/dedup"
	"github.com/helixir/paper-triage-service/internal/domain"
	"github.com/helixir/paper-triage-service/internal/enrich"
	"github.com/helixir/paper-triage-service/internal/observability"
	"github.com/helixir/paper-triage-service/internal/papersources"
	"github.com/helixir/paper-triage-service/internal/scoring"
)

const (
	defaultNeighborLimit   = 10
	defaultRequestInterval = time.Second
)

// GraphClient resolves papers to graph node IDs and lists their neighbors.
type GraphClient interface {
	ResolveByDOI(ctx context.Context, doi string) (string, error)
	ResolveByTitle(ctx context.Context, title string) (string, error)
	Citations(ctx context.Context, paperID string, limit int) ([]*domain.Paper, error)
	References(ctx context.Context, paperID string, limit int) ([]*domain.Paper, error)
}

// PaperStore is the paper persistence the explorer needs.
type PaperStore interface {
	dedup.KeyStore
	ListSeeds(ctx context.Context, limit int) ([]*domain.Paper, error)
	MarkCitationExplored(ctx context.Context, id uuid.UUID, at time.Time) error
	InsertPaper(ctx context.Context, p *domain.Paper) (bool, error)
}

// SettingsStore reads the review settings.
type SettingsStore interface {
	GetReviewSettings(ctx context.Context) (domain.ReviewSettings, error)
}

// InterestLister reads the interest profile.
type InterestLister interface {
	ListInterests(ctx context.Context) ([]*domain.Interest, error)
}

// LogStore appends collection logs.
type LogStore interface {
	InsertCollectionLog(ctx context.Context, l *domain.CollectionLog) error
}

// Config tunes the explorer.
type Config struct {
	// NeighborLimit caps citing and cited papers fetched per seed, each.
	NeighborLimit int
	// RequestInterval is the minimum spacing between graph calls.
	// Negative disables spacing.
	RequestInterval time.Duration
}

// Deps bundles the explorer's collaborators.
type Deps struct {
	Graph     GraphClient
	Papers    PaperStore
	Settings  SettingsStore
	Interests InterestLister
	Logs      LogStore
	Enricher  *enrich.Enricher
	Scorer    *scoring.Scorer
	Logger    zerolog.Logger
	Metrics   *observability.Metrics
}

// SeedResult is the outcome of exploring one seed.
type SeedResult struct {
	SeedPaperID uuid.UUID               `json:"seed_paper_id"`
	SeedTitle   string                  `json:"seed_paper_title"`
	Status      domain.LogStatus        `json:"status"`
	PapersFound int                     `json:"papers_found"`
	Message     string                  `json:"message"`
	Breakdown   *domain.ReviewBreakdown `json:"review_breakdown"`
}

// RunResult collects the seed results of one run.
type RunResult struct {
	Seeds []SeedResult `json:"results"`
}

// Explorer walks the citation graph from seed papers. It owns its own rate
// limiter, so separate explorers never share request spacing.
type Explorer struct {
	cfg     Config
	deps    Deps
	limiter *rate.Limiter
	filter  *dedup.Filter
	logger  zerolog.Logger
	now     func() time.Time
}

// NewExplorer creates an Explorer.
func NewExplorer(cfg Config, deps Deps) *Explorer {
	if cfg.NeighborLimit <= 0 {
		cfg.NeighborLimit = defaultNeighborLimit
	}
	if cfg.RequestInterval == 0 {
		cfg.RequestInterval = defaultRequestInterval
	}
	return &Explorer{
		cfg:     cfg,
		deps:    deps,
		limiter: papersources.NewIntervalLimiter(cfg.RequestInterval),
		filter:  dedup.NewFilter(deps.Papers),
		logger:  deps.Logger.With().Str("component", "citation_explorer").Logger(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// runState is shared across the seeds of one run.
type runState struct {
	settings  domain.ReviewSettings
	interests []*domain.Interest
	seen      *dedup.SeenSet
}

func (s *runState) scoringActive() bool {
	return s.settings.ScoringEnabled && len(s.interests) > 0
}

// Explore processes up to maxSeeds unexplored seeds sequentially. Only
// failures to load seeds, settings or interests are returned; seed failures
// are reported in the result.
func (e *Explorer) Explore(ctx context.Context, maxSeeds int) (*RunResult, error) {
	result := &RunResult{Seeds: []SeedResult{}}
	if maxSeeds <= 0 {
		return result, nil
	}

	seeds, err := e.deps.Papers.ListSeeds(ctx, maxSeeds)
	if err != nil {
		return nil, fmt.Errorf("listing seeds: %w", err)
	}
	if len(seeds) == 0 {
		return result, nil
	}

	settings, err := e.deps.Settings.GetReviewSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading review settings: %w", err)
	}
	state := &runState{settings: settings, seen: dedup.NewSeenSet()}
	if settings.ScoringEnabled {
		if state.interests, err = e.deps.Interests.ListInterests(ctx); err != nil {
			return nil, fmt.Errorf("loading interests: %w", err)
		}
	}

	e.logger.Info().Int("seeds", len(seeds)).Bool("scoring", state.scoringActive()).Msg("starting citation exploration")
	for _, seed := range seeds {
		if ctx.Err() != nil {
			break
		}
		result.Seeds = append(result.Seeds, e.exploreSeed(ctx, seed, state))
	}
	return result, nil
}

// neighborCounts tracks how many neighbors each dedup stage removed.
type neighborCounts struct {
	fetched   int
	inBatch   int
	crossSeed int
	existing  int
}

func (e *Explorer) exploreSeed(ctx context.Context, seed *domain.Paper, state *runState) SeedResult {
	log := observability.WithSeedContext(e.logger, seed.ID.String(), seed.DOIValue())
	res := SeedResult{SeedPaperID: seed.ID, SeedTitle: seed.TitleOriginal}

	nodeID, err := e.resolve(ctx, seed)
	if domain.IsNotFound(err) {
		log.Warn().Err(err).Msg("seed not found in citation graph")
		e.markExplored(ctx, seed, log)
		e.deps.Metrics.RecordSeed("not_found")
		return e.finish(ctx, res, domain.LogStatusError, 0, "not found on Semantic Scholar", nil, log)
	}
	if err != nil {
		return e.fail(ctx, seed, res, err, log)
	}

	neighbors, err := e.neighbors(ctx, nodeID)
	if err != nil {
		return e.fail(ctx, seed, res, err, log)
	}

	counts := neighborCounts{fetched: len(neighbors)}
	unique := dedup.Dedupe(neighbors)
	counts.inBatch = len(neighbors) - len(unique)
	unseen := state.seen.Filter(unique)
	counts.crossSeed = len(unique) - len(unseen)
	fresh, err := e.filter.FilterExisting(ctx, unseen)
	if err != nil {
		// Inserts skip conflicting rows, so an unfiltered batch is still safe.
		log.Warn().Err(err).Msg("existing paper lookup failed, storing neighbors unfiltered")
		fresh = unseen
	}
	counts.existing = len(unseen) - len(fresh)
	e.deps.Metrics.RecordPaperDuplicates(counts.inBatch + counts.crossSeed + counts.existing)

	var breakdown domain.ReviewBreakdown
	saved := 0
	for _, p := range fresh {
		if ctx.Err() != nil {
			break
		}
		if e.processPaper(ctx, p, state, log) {
			saved++
			breakdown.Add(p.ReviewStatus)
		}
	}

	e.markExplored(ctx, seed, log)
	e.deps.Metrics.RecordSeed("explored")

	var shown *domain.ReviewBreakdown
	if saved > 0 && state.settings.ScoringEnabled {
		shown = &breakdown
	}
	log.Info().Int("fetched", counts.fetched).Int("saved", saved).Msg("seed explored")
	return e.finish(ctx, res, domain.LogStatusSuccess, saved, buildLogMessage(counts, saved, shown), shown, log)
}

// resolve looks the seed up by DOI, then by title. A rate-limit error during
// the DOI lookup is returned immediately.
func (e *Explorer) resolve(ctx context.Context, seed *domain.Paper) (string, error) {
	if seed.HasDOI() {
		if err := e.limiter.Wait(ctx); err != nil {
			return "", err
		}
		id, err := e.deps.Graph.ResolveByDOI(ctx, seed.DOIValue())
		if err == nil {
			return id, nil
		}
		if domain.IsRateLimited(err) {
			return "", err
		}
		e.logger.Debug().Err(err).Str("seed", seed.ID.String()).Msg("doi lookup failed, trying title")
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return "", err
	}
	id, err := e.deps.Graph.ResolveByTitle(ctx, seed.TitleOriginal)
	if err != nil && !domain.IsRateLimited(err) && !domain.IsNotFound(err) {
		// Any other title lookup failure counts as unresolved.
		return "", domain.NewNotFoundError("Semantic Scholar", seed.TitleOriginal)
	}
	return id, err
}

func (e *Explorer) neighbors(ctx context.Context, nodeID string) ([]*domain.Paper, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	citing, err := e.deps.Graph.Citations(ctx, nodeID, e.cfg.NeighborLimit)
	if err != nil {
		return nil, fmt.Errorf("fetching citing papers: %w", err)
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	cited, err := e.deps.Graph.References(ctx, nodeID, e.cfg.NeighborLimit)
	if err != nil {
		return nil, fmt.Errorf("fetching cited papers: %w", err)
	}
	return append(citing, cited...), nil
}

// processPaper enriches, scores and stores one discovered paper. It reports
// whether a new row was created; failures are logged and skipped.
func (e *Explorer) processPaper(ctx context.Context, p *domain.Paper, state *runState, log zerolog.Logger) bool {
	e.deps.Enricher.Light(ctx, p).Apply(p)

	p.Source = domain.SourceTagCitation
	p.ReviewStatus = domain.ReviewStatusPending
	p.RelevanceScore = nil
	if state.scoringActive() {
		score := e.deps.Scorer.Score(ctx, p, state.interests)
		scoring.Assign(p, score, state.settings)
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CollectedAt = e.now()

	created, err := e.deps.Papers.InsertPaper(ctx, p)
	if err != nil {
		log.Error().Err(err).Str("title", p.TitleOriginal).Msg("failed to store discovered paper")
		return false
	}
	if created {
		e.deps.Metrics.RecordPaperSaved(string(p.Source), string(p.ReviewStatus), p.RelevanceScore)
	}
	return created
}

// fail handles a seed-level error. Rate-limited seeds stay unexplored so a
// later run retries them; every other failure is terminal.
func (e *Explorer) fail(ctx context.Context, seed *domain.Paper, res SeedResult, err error, log zerolog.Logger) SeedResult {
	switch {
	case domain.IsRateLimited(err):
		log.Warn().Err(err).Msg("seed rate limited, leaving unexplored")
		e.deps.Metrics.RecordSeed("rate_limited")
	case ctx.Err() != nil:
		log.Warn().Err(err).Msg("seed interrupted, leaving unexplored")
	default:
		log.Error().Err(err).Msg("seed exploration failed")
		e.markExplored(ctx, seed, log)
		e.deps.Metrics.RecordSeed("error")
	}
	return e.finish(ctx, res, domain.LogStatusError, 0, err.Error(), nil, log)
}

func (e *Explorer) markExplored(ctx context.Context, seed *domain.Paper, log zerolog.Logger) {
	if err := e.deps.Papers.MarkCitationExplored(ctx, seed.ID, e.now()); err != nil {
		log.Error().Err(err).Msg("failed to mark seed explored")
	}
}

func (e *Explorer) finish(ctx context.Context, res SeedResult, status domain.LogStatus, found int, msg string, breakdown *domain.ReviewBreakdown, log zerolog.Logger) SeedResult {
	res.Status = status
	res.PapersFound = found
	res.Message = msg
	res.Breakdown = breakdown
	if err := e.deps.Logs.InsertCollectionLog(ctx, domain.NewCollectionLog(domain.LogOriginSeed, res.SeedPaperID, status, found, msg)); err != nil {
		log.Error().Err(err).Msg("failed to write collection log")
	}
	return res
}

func buildLogMessage(c neighborCounts, saved int, breakdown *domain.ReviewBreakdown) string {
	parts := []string{fmt.Sprintf("%d citing/cited fetched", c.fetched)}
	if c.inBatch > 0 {
		parts = append(parts, fmt.Sprintf("%d duplicates between citing and cited", c.inBatch))
	}
	if c.crossSeed > 0 {
		parts = append(parts, fmt.Sprintf("%d duplicates across seeds", c.crossSeed))
	}
	if c.existing > 0 {
		parts = append(parts, fmt.Sprintf("%d already stored", c.existing))
	}
	parts = append(parts, fmt.Sprintf("%d newly registered", saved))
	msg := strings.Join(parts, ", ")
	if breakdown != nil && saved > 0 {
		msg += " " + breakdown.String()
	}
	return msg
}
