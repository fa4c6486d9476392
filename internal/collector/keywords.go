package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/helixir/paper-triage-service/internal/dedup"
	"github.com/helixir/paper-triage-service/internal/domain"
	"github.com/helixir/paper-triage-service/internal/enrich"
	"github.com/helixir/paper-triage-service/internal/observability"
	"github.com/helixir/paper-triage-service/internal/papersources"
)

// DefaultResultsPerSource is how many results each provider returns per keyword.
const DefaultResultsPerSource = 5

// Searcher queries providers one after another.
type Searcher interface {
	SearchEach(ctx context.Context, sourceTypes []domain.SourceType, params papersources.SearchParams) []papersources.SourceResult
}

// KeywordCollector searches every active keyword across its configured providers.
type KeywordCollector struct {
	deps             Deps
	keywords         KeywordStore
	searcher         Searcher
	enricher         *enrich.Enricher
	filter           *dedup.Filter
	resultsPerSource int
	now              func() time.Time
}

// NewKeywordCollector creates a KeywordCollector. A non-positive
// resultsPerSource uses DefaultResultsPerSource.
func NewKeywordCollector(deps Deps, keywords KeywordStore, searcher Searcher, enricher *enrich.Enricher, resultsPerSource int) *KeywordCollector {
	if resultsPerSource <= 0 {
		resultsPerSource = DefaultResultsPerSource
	}
	deps.Logger = deps.Logger.With().Str("component", "keyword_collector").Logger()
	return &KeywordCollector{
		deps:             deps,
		keywords:         keywords,
		searcher:         searcher,
		enricher:         enricher,
		filter:           dedup.NewFilter(deps.Papers),
		resultsPerSource: resultsPerSource,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// Run processes every active keyword. It fails only when the keywords or
// the review profile cannot be loaded.
func (c *KeywordCollector) Run(ctx context.Context) (*Report, error) {
	keywords, err := c.keywords.ListActiveKeywords(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing keywords: %w", err)
	}
	report := newReport()
	if len(keywords) == 0 {
		return report, nil
	}

	prof, err := loadProfile(ctx, c.deps)
	if err != nil {
		return nil, err
	}

	c.deps.Logger.Info().Int("keywords", len(keywords)).Msg("starting keyword collection")
	for _, kw := range keywords {
		if ctx.Err() != nil {
			break
		}
		report.add(c.collect(ctx, kw, prof))
	}
	return report, nil
}

func (c *KeywordCollector) collect(ctx context.Context, kw *domain.Keyword, prof *profile) UnitResult {
	started := time.Now()
	log := observability.WithKeywordContext(c.deps.Logger, kw.ID.String(), kw.Keyword)
	res := UnitResult{Origin: domain.LogOriginKeyword, ID: kw.ID, Name: kw.Keyword}

	results := c.searcher.SearchEach(ctx, keywordSources(kw), papersources.SearchParams{
		Query:      kw.Keyword,
		MaxResults: c.resultsPerSource,
	})

	var found []*domain.Paper
	for _, r := range results {
		if r.Error != nil {
			log.Warn().Err(r.Error).Str("source", string(r.Source)).Msg("source search failed")
			c.deps.Metrics.RecordSearchFailed(string(r.Source), r.Duration.Seconds())
			continue
		}
		c.deps.Metrics.RecordSearchCompleted(string(r.Source), r.Duration.Seconds())
		if r.Result != nil {
			found = append(found, r.Result.Papers...)
		}
	}

	unique := dedup.Dedupe(found)
	matching := dedup.FilterByJournals(unique, kw.Journals)
	fresh, err := c.filter.FilterExisting(ctx, matching)
	if err != nil {
		log.Warn().Err(err).Msg("existing paper lookup failed, storing results unfiltered")
		fresh = matching
	}
	c.deps.Metrics.RecordPaperDuplicates(len(found) - len(fresh))

	s := &storer{deps: c.deps, source: domain.SourceTagAuto, log: log}
	for _, p := range fresh {
		if ctx.Err() != nil {
			break
		}
		c.enricher.Full(ctx, p).Apply(p)
		prof.assess(ctx, c.deps.Scorer, p)
		if s.insert(ctx, p, c.now()) {
			if err := c.deps.Papers.LinkKeyword(ctx, p.ID, kw.ID); err != nil {
				log.Warn().Err(err).Str("paper_id", p.ID.String()).Msg("failed to link paper to keyword")
			}
		}
	}

	res.Status = domain.LogStatusSuccess
	res.PapersFound = s.saved
	res.Message, res.Breakdown = savedMessage(len(unique), s, prof.settings.ScoringEnabled)
	log.Info().Int("found", len(found)).Int("saved", s.saved).Msg("keyword collected")
	return finishUnit(ctx, c.deps, log, res, started)
}

// keywordSources maps the keyword's configured providers to source types.
// Unknown labels are ignored; an empty list means every enabled provider.
func keywordSources(kw *domain.Keyword) []domain.SourceType {
	out := make([]domain.SourceType, 0, len(kw.Sources))
	for _, s := range kw.Sources {
		if st := domain.SourceType(s); domain.IsValidSourceType(st) {
			out = append(out, st)
		}
	}
	return out
}
