// Package app assembles the collection pipeline from configuration. The
// server, worker and operator CLI share one wiring so every entry point runs
// the same collectors against the same stores.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-triage-service/internal/citation"
	"github.com/helixir/paper-triage-service/internal/collector"
	"github.com/helixir/paper-triage-service/internal/config"
	"github.com/helixir/paper-triage-service/internal/database"
	"github.com/helixir/paper-triage-service/internal/enrich"
	"github.com/helixir/paper-triage-service/internal/events"
	"github.com/helixir/paper-triage-service/internal/learning"
	"github.com/helixir/paper-triage-service/internal/llm"
	"github.com/helixir/paper-triage-service/internal/observability"
	"github.com/helixir/paper-triage-service/internal/papersources"
	"github.com/helixir/paper-triage-service/internal/papersources/arxiv"
	"github.com/helixir/paper-triage-service/internal/papersources/openalex"
	"github.com/helixir/paper-triage-service/internal/papersources/rss"
	"github.com/helixir/paper-triage-service/internal/papersources/semanticscholar"
	"github.com/helixir/paper-triage-service/internal/repository"
	"github.com/helixir/paper-triage-service/internal/scoring"
	"github.com/helixir/paper-triage-service/internal/temporal"
)

// Repositories groups the Postgres stores.
type Repositories struct {
	Papers    *repository.PgPaperRepository
	Keywords  *repository.PgKeywordRepository
	Feeds     *repository.PgFeedRepository
	Interests *repository.PgInterestRepository
	Settings  *repository.PgSettingsRepository
	Logs      *repository.PgCollectionLogRepository
	Feedback  *repository.PgFeedbackRepository
}

// App holds the wired components.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Metrics *observability.Metrics
	DB      *database.DB
	Repos   Repositories

	Scorer   *scoring.Scorer
	Learner  *learning.Learner
	Registry *papersources.Registry

	Keywords  *collector.KeywordCollector
	Feeds     *collector.FeedCollector
	Citations *collector.CitationCollector
	Combined  *collector.Combined
	Rescorer  *collector.Rescorer

	// Decisions applies review decisions to the interest profile.
	Decisions *events.Handler
	// Publisher hands review decisions to Kafka, or to Decisions in process.
	Publisher events.Publisher

	closers []func()
}

// Options tunes Build.
type Options struct {
	// Metrics is shared with the caller. A nil value disables instrumentation.
	Metrics *observability.Metrics
	// RunMigrations applies pending migrations when the config asks for it.
	RunMigrations bool
}

// Build connects to the database and assembles the pipeline.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Metrics: opts.Metrics}

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	if opts.RunMigrations && cfg.Database.MigrationAutoRun {
		if err := migrate(db, cfg.Database.MigrationPath, logger); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Repos = Repositories{
		Papers:    repository.NewPgPaperRepository(db),
		Keywords:  repository.NewPgKeywordRepository(db),
		Feeds:     repository.NewPgFeedRepository(db),
		Interests: repository.NewPgInterestRepository(db),
		Settings:  repository.NewPgSettingsRepository(db),
		Logs:      repository.NewPgCollectionLogRepository(db),
		Feedback:  repository.NewPgFeedbackRepository(db),
	}

	provider, err := newProvider(cfg, opts.Metrics)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Scorer = scoring.NewScorer(provider, logger, opts.Metrics)
	a.Learner = learning.NewLearner(provider, a.Repos.Interests, logger, opts.Metrics)
	enricher := enrich.New(provider, cfg.LLM.Language, logger)
	a.Registry = newRegistry(cfg, opts.Metrics)

	deps := collector.Deps{
		Papers:    a.Repos.Papers,
		Settings:  a.Repos.Settings,
		Interests: a.Repos.Interests,
		Logs:      a.Repos.Logs,
		Scorer:    a.Scorer,
		Logger:    logger,
		Metrics:   opts.Metrics,
	}

	fetcher := rss.NewFetcher(rss.Config{
		Timeout:   cfg.PaperSources.RSS.Timeout,
		UserAgent: cfg.PaperSources.RSS.UserAgent,
		Metrics:   opts.Metrics,
	})

	graph := semanticscholar.NewGraphClient(semanticScholarConfig(cfg, opts.Metrics))
	explorer := citation.NewExplorer(citation.Config{
		NeighborLimit:   cfg.Citation.NeighborLimit,
		RequestInterval: cfg.Citation.RequestInterval,
	}, citation.Deps{
		Graph:     graph,
		Papers:    a.Repos.Papers,
		Settings:  a.Repos.Settings,
		Interests: a.Repos.Interests,
		Logs:      a.Repos.Logs,
		Enricher:  enricher,
		Scorer:    a.Scorer,
		Logger:    logger,
		Metrics:   opts.Metrics,
	})

	a.Keywords = collector.NewKeywordCollector(deps, a.Repos.Keywords, a.Registry, enricher, cfg.Collection.ResultsPerSource)
	a.Feeds = collector.NewFeedCollector(deps, a.Repos.Feeds, fetcher, enricher)
	a.Citations = collector.NewCitationCollector(deps, explorer)
	a.Combined = collector.NewCombined(deps, a.Keywords, a.Feeds, a.Citations, Budget(cfg))
	a.Rescorer = collector.NewRescorer(deps, a.Repos.Papers)

	a.Decisions = events.NewHandler(a.Repos.Papers, a.Learner, logger, opts.Metrics)
	if cfg.Kafka.Enabled {
		pub := events.NewKafkaPublisher(KafkaConfig(cfg), logger, opts.Metrics)
		a.Publisher = pub
		a.closers = append(a.closers, func() {
			if err := pub.Close(); err != nil {
				logger.Warn().Err(err).Msg("failed to close kafka publisher")
			}
		})
	} else {
		a.Publisher = events.NewLocalPublisher(a.Decisions, events.DefaultLocalTimeout, logger)
	}

	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Budget converts the collection settings to a run budget.
func Budget(cfg *config.Config) collector.BudgetConfig {
	return collector.BudgetConfig{
		Total:   cfg.Collection.TimeBudget,
		Reserve: cfg.Collection.CitationReserve,
		PerSeed: cfg.Collection.PerSeedEstimate,
	}
}

// KafkaConfig converts the Kafka settings for the events package.
func KafkaConfig(cfg *config.Config) events.Config {
	return events.Config{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.ReviewTopic,
		GroupID:      cfg.Kafka.GroupID,
		BatchTimeout: cfg.Kafka.BatchTimeout,
	}
}

// TemporalConfig converts the Temporal settings for the temporal package.
func TemporalConfig(cfg *config.Config) temporal.ClientConfig {
	return temporal.ClientConfig{
		HostPort:     cfg.Temporal.HostPort,
		Namespace:    cfg.Temporal.Namespace,
		TaskQueue:    cfg.Temporal.TaskQueue,
		WorkflowID:   cfg.Temporal.WorkflowID,
		CronSchedule: cfg.Temporal.CronSchedule,
	}
}

func migrate(db *database.DB, path string, logger zerolog.Logger) error {
	migrator, err := database.NewMigrator(db, path, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()
	if err := migrator.Up(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func newProvider(cfg *config.Config, metrics *observability.Metrics) (llm.Provider, error) {
	provider, err := llm.NewProvider(llm.Config{
		Provider:   cfg.LLM.Provider,
		Timeout:    cfg.LLM.Timeout,
		MaxRetries: cfg.LLM.MaxRetries,
		OpenAI: llm.OpenAIConfig{
			APIKey:  cfg.LLM.OpenAI.APIKey,
			Model:   cfg.LLM.OpenAI.Model,
			BaseURL: cfg.LLM.OpenAI.BaseURL,
		},
		Anthropic: llm.AnthropicConfig{
			APIKey:  cfg.LLM.Anthropic.APIKey,
			Model:   cfg.LLM.Anthropic.Model,
			BaseURL: cfg.LLM.Anthropic.BaseURL,
		},
		Metrics: metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create llm provider: %w", err)
	}
	return provider, nil
}

func semanticScholarConfig(cfg *config.Config, metrics *observability.Metrics) semanticscholar.Config {
	src := cfg.PaperSources.SemanticScholar
	return semanticscholar.Config{
		BaseURL:    src.BaseURL,
		APIKey:     src.APIKey,
		Timeout:    src.Timeout,
		RateLimit:  src.RateLimit,
		MaxResults: src.MaxResults,
		Enabled:    src.Enabled,
		Metrics:    metrics,
	}
}

// newRegistry registers the keyword-search providers in their default order.
func newRegistry(cfg *config.Config, metrics *observability.Metrics) *papersources.Registry {
	registry := papersources.NewRegistry()

	ax := cfg.PaperSources.ArXiv
	registry.Register(arxiv.New(arxiv.Config{
		BaseURL:    ax.BaseURL,
		Timeout:    ax.Timeout,
		RateLimit:  ax.RateLimit,
		MaxResults: ax.MaxResults,
		Enabled:    ax.Enabled,
		Metrics:    metrics,
	}))

	registry.Register(semanticscholar.NewClient(semanticScholarConfig(cfg, metrics), nil))

	oa := cfg.PaperSources.OpenAlex
	registry.Register(openalex.New(openalex.Config{
		BaseURL:    oa.BaseURL,
		Mailto:     oa.Mailto,
		APIKey:     oa.APIKey,
		Timeout:    oa.Timeout,
		RateLimit:  oa.RateLimit,
		MaxResults: oa.MaxResults,
		Enabled:    oa.Enabled,
		Metrics:    metrics,
	}))

	return registry
}

// NewLogger builds the process logger tagged with component.
func NewLogger(cfg *config.Config, component string) zerolog.Logger {
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	return logger.With().Str("component", component).Logger()
}

// NewMetrics registers the process metrics, or returns nil when disabled.
// Call it at most once per process.
func NewMetrics(cfg *config.Config) *observability.Metrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return observability.NewMetrics(cfg.Metrics.Namespace)
}

// WithTimeout is a helper for one-shot commands that bound the whole run.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
