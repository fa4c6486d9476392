package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-triage-service/internal/dedup"
	"github.com/helixir/paper-triage-service/internal/domain"
	"github.com/helixir/paper-triage-service/internal/enrich"
	"github.com/helixir/paper-triage-service/internal/observability"
)

// FeedFetcher returns feed entries published after since.
type FeedFetcher interface {
	Fetch(ctx context.Context, feedURL string, since *time.Time) ([]*domain.Paper, error)
}

// FeedCollector pulls new entries from every active feed.
type FeedCollector struct {
	deps     Deps
	feeds    FeedStore
	fetcher  FeedFetcher
	enricher *enrich.Enricher
	filter   *dedup.Filter
	now      func() time.Time
}

// NewFeedCollector creates a FeedCollector.
func NewFeedCollector(deps Deps, feeds FeedStore, fetcher FeedFetcher, enricher *enrich.Enricher) *FeedCollector {
	deps.Logger = deps.Logger.With().Str("component", "feed_collector").Logger()
	return &FeedCollector{
		deps:     deps,
		feeds:    feeds,
		fetcher:  fetcher,
		enricher: enricher,
		filter:   dedup.NewFilter(deps.Papers),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run processes every active feed. It fails only when the feeds or the
// review profile cannot be loaded.
func (c *FeedCollector) Run(ctx context.Context) (*Report, error) {
	feeds, err := c.feeds.ListActiveFeeds(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing feeds: %w", err)
	}
	report := newReport()
	if len(feeds) == 0 {
		return report, nil
	}

	prof, err := loadProfile(ctx, c.deps)
	if err != nil {
		return nil, err
	}

	c.deps.Logger.Info().Int("feeds", len(feeds)).Msg("starting feed collection")
	for _, feed := range feeds {
		if ctx.Err() != nil {
			break
		}
		report.add(c.collect(ctx, feed, prof))
	}
	return report, nil
}

func (c *FeedCollector) collect(ctx context.Context, feed *domain.Feed, prof *profile) UnitResult {
	started := time.Now()
	log := observability.WithFeedContext(c.deps.Logger, feed.ID.String(), feed.FeedURL)
	res := UnitResult{Origin: domain.LogOriginFeed, ID: feed.ID, Name: feed.Name}

	fetchedAt := c.now()
	entries, err := c.fetcher.Fetch(ctx, feed.FeedURL, feed.LastFetchedAt)
	if err != nil {
		return c.fail(ctx, log, res, err, started)
	}

	if len(entries) == 0 {
		c.markFetched(ctx, feed, fetchedAt, log)
		res.Status = domain.LogStatusSuccess
		res.Message = "no new entries"
		return finishUnit(ctx, c.deps, log, res, started)
	}

	unique := dedup.Dedupe(entries)
	fresh, err := c.filter.FilterExisting(ctx, unique)
	if err != nil {
		log.Warn().Err(err).Msg("existing paper lookup failed, storing entries unfiltered")
		fresh = unique
	}
	c.deps.Metrics.RecordPaperDuplicates(len(entries) - len(fresh))

	s := &storer{deps: c.deps, source: domain.SourceTagRSS, log: log}
	for _, p := range fresh {
		if ctx.Err() != nil {
			break
		}
		c.enricher.TitleOnly(ctx, p).Apply(p)
		prof.assess(ctx, c.deps.Scorer, p)
		s.insert(ctx, p, fetchedAt)
	}

	c.markFetched(ctx, feed, fetchedAt, log)
	res.Status = domain.LogStatusSuccess
	res.PapersFound = s.saved
	res.Message, res.Breakdown = savedMessage(len(entries), s, prof.settings.ScoringEnabled)
	log.Info().Int("entries", len(entries)).Int("saved", s.saved).Msg("feed collected")
	return finishUnit(ctx, c.deps, log, res, started)
}

func (c *FeedCollector) markFetched(ctx context.Context, feed *domain.Feed, at time.Time, log zerolog.Logger) {
	if err := c.feeds.MarkFeedFetched(ctx, feed.ID, at); err != nil {
		log.Error().Err(err).Msg("failed to update last fetched time")
	}
}

func (c *FeedCollector) fail(ctx context.Context, log zerolog.Logger, res UnitResult, err error, started time.Time) UnitResult {
	log.Error().Err(err).Msg("feed collection failed")
	res.Status = domain.LogStatusError
	res.Message = err.Error()
	return finishUnit(ctx, c.deps, log, res, started)
}
