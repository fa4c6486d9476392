package httpserver

import (
	"errors"
	"net/http"

	"github.com/helixir/paper-triage-service/internal/collector"
	"github.com/helixir/paper-triage-service/internal/domain"
	"github.com/helixir/paper-triage-service/internal/observability"
	"github.com/helixir/paper-triage-service/internal/repository"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 200
)

// domainPrecondition reports errors that describe the profile rather than a failure.
func domainPrecondition(err error) bool {
	return errors.Is(err, domain.ErrScoringDisabled) || errors.Is(err, domain.ErrEmptyProfile)
}

// collectKeywords handles POST /api/v1/collect.
func (s *Server) collectKeywords(w http.ResponseWriter, r *http.Request) {
	s.runStage(w, r, "keywords", s.deps.KeywordCollector)
}

// collectFeeds handles POST /api/v1/collect/rss.
func (s *Server) collectFeeds(w http.ResponseWriter, r *http.Request) {
	s.runStage(w, r, "rss", s.deps.FeedCollector)
}

func (s *Server) runStage(w http.ResponseWriter, r *http.Request, stage string, runner StageRunner) {
	ctx := observability.WithTrigger(r.Context(), observability.TriggerManual)
	report, err := runner.Run(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("stage", stage).Msg("collection failed")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type collectCitationsRequest struct {
	MaxSeeds *int `json:"max_seeds" validate:"omitempty,min=1,max=100"`
}

// collectCitations handles POST /api/v1/collect/citations. The body is optional.
func (s *Server) collectCitations(w http.ResponseWriter, r *http.Request) {
	var req collectCitationsRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeDomainError(w, err)
		return
	}
	maxSeeds := s.cfg.MaxSeedsManual
	if req.MaxSeeds != nil {
		maxSeeds = *req.MaxSeeds
	}

	ctx := observability.WithTrigger(r.Context(), observability.TriggerManual)
	report, err := s.deps.CitationCollector.Run(ctx, maxSeeds)
	if err != nil {
		s.logger.Error().Err(err).Int("max_seeds", maxSeeds).Msg("citation collection failed")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// collectAll handles POST /api/v1/collect/all. Manual runs ignore the auto-collect switch.
func (s *Server) collectAll(w http.ResponseWriter, r *http.Request) {
	ctx := observability.WithTrigger(r.Context(), observability.TriggerManual)
	report, err := s.deps.Combined.Run(ctx, collector.RunOptions{MaxSeeds: s.cfg.MaxSeedsManual})
	if err != nil {
		s.logger.Error().Err(err).Msg("combined collection failed")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// collectionLogs handles GET /api/v1/collect/logs.
func (s *Server) collectionLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r, defaultLogLimit, maxLogLimit)
	entries, err := s.deps.Logs.ListCollectionLogs(r.Context(), repository.LogFilter{Limit: limit, Offset: offset})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]collectionLogResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, logToResponse(e))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"logs":   out,
		"limit":  limit,
		"offset": offset,
	})
}

// cronCollect handles /api/v1/cron/collect.
func (s *Server) cronCollect(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Combined.Run(r.Context(), collector.RunOptions{
		MaxSeeds:                  s.cfg.MaxSeedsScheduled,
		SkipIfAutoCollectDisabled: true,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduled collection failed")
		writeDomainError(w, err)
		return
	}
	if report.Skipped {
		s.logger.Info().Msg("scheduled collection skipped: auto-collect disabled")
	}
	writeJSON(w, http.StatusOK, report)
}

type skippedResponse struct {
	Skipped bool   `json:"skipped"`
	Message string `json:"message"`
}

// cronCollectCitations handles /api/v1/cron/collect-citations.
func (s *Server) cronCollectCitations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	skip, err := collector.SkipIfDisabled(ctx, s.deps.Settings)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if skip {
		writeJSON(w, http.StatusOK, skippedResponse{Skipped: true, Message: "auto-collect is disabled"})
		return
	}

	report, err := s.deps.CitationCollector.Run(ctx, s.cfg.MaxSeedsScheduled)
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduled citation collection failed")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
