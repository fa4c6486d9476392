package httpserver

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/helixir/paper-triage-service/internal/domain"
	"github.com/helixir/paper-triage-service/internal/scoring"
)

// getReviewSettings handles GET /api/v1/settings/review.
func (s *Server) getReviewSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.deps.Settings.GetReviewSettings(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

type updateSettingsRequest struct {
	AutoApproveThreshold *int  `json:"auto_approve_threshold" validate:"omitempty,min=0,max=100"`
	AutoSkipThreshold    *int  `json:"auto_skip_threshold" validate:"omitempty,min=0,max=100"`
	ScoringEnabled       *bool `json:"scoring_enabled"`
	AutoCollectEnabled   *bool `json:"auto_collect_enabled"`
}

// updateReviewSettings handles PATCH /api/v1/settings/review. Omitted fields keep their value.
func (s *Server) updateReviewSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeDomainError(w, err)
		return
	}
	if req.AutoApproveThreshold == nil && req.AutoSkipThreshold == nil &&
		req.ScoringEnabled == nil && req.AutoCollectEnabled == nil {
		writeError(w, http.StatusBadRequest, "no settings to update")
		return
	}

	ctx := r.Context()
	settings, err := s.deps.Settings.GetReviewSettings(ctx)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if req.AutoApproveThreshold != nil {
		settings.AutoApproveThreshold = *req.AutoApproveThreshold
	}
	if req.AutoSkipThreshold != nil {
		settings.AutoSkipThreshold = *req.AutoSkipThreshold
	}
	if req.ScoringEnabled != nil {
		settings.ScoringEnabled = *req.ScoringEnabled
	}
	if req.AutoCollectEnabled != nil {
		settings.AutoCollectEnabled = *req.AutoCollectEnabled
	}
	if err := settings.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}

	if err := s.deps.Settings.UpdateReviewSettings(ctx, settings); err != nil {
		s.logger.Error().Err(err).Msg("failed to update review settings")
		writeDomainError(w, err)
		return
	}
	s.logger.Info().
		Int("auto_approve_threshold", settings.AutoApproveThreshold).
		Int("auto_skip_threshold", settings.AutoSkipThreshold).
		Bool("scoring_enabled", settings.ScoringEnabled).
		Bool("auto_collect_enabled", settings.AutoCollectEnabled).
		Msg("review settings updated")
	writeJSON(w, http.StatusOK, settings)
}

// reviewMetrics handles GET /api/v1/settings/review/metrics.
func (s *Server) reviewMetrics(w http.ResponseWriter, r *http.Request) {
	feedback, err := s.deps.Feedback.ListFeedback(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scoring.Summarize(feedback))
}

type testScoringRequest struct {
	Title    string `json:"title" validate:"required,max=2000"`
	Abstract string `json:"abstract"`
}

type testScoringResponse struct {
	scoring.Detail
	ReviewStatus   domain.ReviewStatus `json:"review_status"`
	InterestsCount int                 `json:"interests_count"`
}

// testScoring handles POST /api/v1/scoring/test. Nothing is stored.
func (s *Server) testScoring(w http.ResponseWriter, r *http.Request) {
	var req testScoringRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeDomainError(w, err)
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	ctx := r.Context()
	settings, err := s.deps.Settings.GetReviewSettings(ctx)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	interests, err := s.deps.Interests.ListInterests(ctx)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	paper := &domain.Paper{
		ID:            uuid.New(),
		TitleOriginal: title,
		Abstract:      domain.StringPtr(req.Abstract),
	}
	detail := s.deps.Scorer.ScoreDetailed(ctx, paper, interests)
	if detail.MatchedInterests == nil {
		detail.MatchedInterests = []string{}
	}

	writeJSON(w, http.StatusOK, testScoringResponse{
		Detail:         detail,
		ReviewStatus:   scoring.Resolve(detail.Score, settings),
		InterestsCount: len(interests),
	})
}

// rescore handles POST /api/v1/scoring/rescore.
func (s *Server) rescore(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Rescorer.Run(r.Context(), s.cfg.RescoreLimit)
	if err != nil {
		if !domainPrecondition(err) {
			s.logger.Error().Err(err).Msg("rescore failed")
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
