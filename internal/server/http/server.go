// Package httpserver provides the HTTP REST API of the paper triage service.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-triage-service/internal/collector"
	"github.com/helixir/paper-triage-service/internal/database"
	"github.com/helixir/paper-triage-service/internal/domain"
	"github.com/helixir/paper-triage-service/internal/events"
	"github.com/helixir/paper-triage-service/internal/observability"
	"github.com/helixir/paper-triage-service/internal/repository"
	"github.com/helixir/paper-triage-service/internal/scoring"
)

// HealthChecker reports database health.
type HealthChecker interface {
	Health(ctx context.Context) database.HealthStatus
}

// StageRunner runs keyword or feed collection.
type StageRunner interface {
	Run(ctx context.Context) (*collector.Report, error)
}

// SeedRunner runs citation exploration for at most maxSeeds seeds.
type SeedRunner interface {
	Run(ctx context.Context, maxSeeds int) (*collector.Report, error)
}

// CombinedRunner runs every collection stage in order.
type CombinedRunner interface {
	Run(ctx context.Context, opts collector.RunOptions) (*collector.CombinedReport, error)
}

// RescoreRunner re-scores pending papers.
type RescoreRunner interface {
	Run(ctx context.Context, limit int) (*collector.RescoreResult, error)
}

// DetailScorer scores one paper with the model's reasoning.
type DetailScorer interface {
	ScoreDetailed(ctx context.Context, p *domain.Paper, interests []*domain.Interest) scoring.Detail
}

// Deps bundles the collaborators the handlers use.
type Deps struct {
	Health    HealthChecker
	Papers    repository.PaperRepository
	Keywords  repository.KeywordRepository
	Feeds     repository.FeedRepository
	Interests repository.InterestRepository
	Settings  repository.SettingsRepository
	Logs      repository.CollectionLogRepository
	Feedback  repository.FeedbackRepository

	// Publisher hands review decisions to the interest learner.
	Publisher events.Publisher
	Scorer    DetailScorer

	KeywordCollector  StageRunner
	FeedCollector     StageRunner
	CitationCollector SeedRunner
	Combined          CombinedRunner
	Rescorer          RescoreRunner

	Metrics *observability.Metrics
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// CronSecret, when set, is required as a Bearer token on /cron endpoints.
	CronSecret string
	// MaxSeedsManual is the default seed cap of manually triggered citation runs.
	MaxSeedsManual int
	// MaxSeedsScheduled is the seed cap of cron-triggered citation runs.
	MaxSeedsScheduled int
	// RescoreLimit caps one rescore pass.
	RescoreLimit int
}

const (
	defaultMaxSeedsManual    = 20
	defaultMaxSeedsScheduled = 5
)

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	cfg        Config
	deps       Deps
	logger     zerolog.Logger
	now        func() time.Time
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(cfg Config, deps Deps, logger zerolog.Logger) *Server {
	if cfg.MaxSeedsManual <= 0 {
		cfg.MaxSeedsManual = defaultMaxSeedsManual
	}
	if cfg.MaxSeedsScheduled <= 0 {
		cfg.MaxSeedsScheduled = defaultMaxSeedsScheduled
	}
	if cfg.RescoreLimit <= 0 {
		cfg.RescoreLimit = collector.DefaultRescoreLimit
	}

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger.With().Str("component", "http-server").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(requestLogger(s.logger))
	r.Use(jsonContentTypeMiddleware)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/papers", func(r chi.Router) {
			r.Get("/", s.listPapers)
			r.Post("/", s.createPaper)
			r.Get("/{paperID}", s.getPaper)
			r.Patch("/{paperID}", s.updatePaper)
			r.Delete("/{paperID}", s.deletePaper)
		})

		r.Get("/review", s.reviewQueue)
		r.Post("/review", s.reviewPaper)
		r.Post("/review/bulk", s.bulkReview)

		r.Route("/interests", func(r chi.Router) {
			r.Get("/", s.listInterests)
			r.Post("/", s.createInterest)
			r.Patch("/{interestID}", s.updateInterest)
			r.Delete("/{interestID}", s.deleteInterest)
		})

		r.Route("/keywords", func(r chi.Router) {
			r.Get("/", s.listKeywords)
			r.Post("/", s.createKeyword)
			r.Patch("/{keywordID}", s.updateKeyword)
			r.Delete("/{keywordID}", s.deleteKeyword)
		})

		r.Route("/feeds", func(r chi.Router) {
			r.Get("/", s.listFeeds)
			r.Post("/", s.createFeed)
			r.Patch("/{feedID}", s.updateFeed)
			r.Delete("/{feedID}", s.deleteFeed)
		})

		r.Get("/settings/review", s.getReviewSettings)
		r.Patch("/settings/review", s.updateReviewSettings)
		r.Get("/settings/review/metrics", s.reviewMetrics)

		r.Post("/scoring/test", s.testScoring)
		r.Post("/scoring/rescore", s.rescore)

		r.Route("/collect", func(r chi.Router) {
			r.Post("/", s.collectKeywords)
			r.Post("/rss", s.collectFeeds)
			r.Post("/citations", s.collectCitations)
			r.Post("/all", s.collectAll)
			r.Get("/logs", s.collectionLogs)
		})

		r.Route("/cron", func(r chi.Router) {
			r.Use(cronAuthMiddleware(s.cfg.CronSecret))
			r.Get("/collect", s.cronCollect)
			r.Post("/collect", s.cronCollect)
			r.Get("/collect-citations", s.cronCollectCitations)
			r.Post("/collect-citations", s.cronCollectCitations)
		})
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports whether the database is reachable.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	health := s.deps.Health.Health(r.Context())
	if !health.Healthy() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "healthy",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	// Headers are already sent; nothing useful to do with an encode error.
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
