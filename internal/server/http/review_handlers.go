package httpserver

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/helixir/paper-triage-service/internal/domain"
	"github.com/helixir/paper-triage-service/internal/repository"
	"github.com/helixir/paper-triage-service/internal/scoring"
)

const (
	defaultReviewLimit = 20
	maxReviewLimit     = 100
)

// Learning states reported after a review decision.
const (
	learningQueued      = "queued"
	learningUnavailable = "unavailable"
)

type reviewQueueResponse struct {
	Papers       []paperResponse `json:"papers"`
	TotalPending int64           `json:"total_pending"`
}

// reviewQueue handles GET /api/v1/review.
func (s *Server) reviewQueue(w http.ResponseWriter, r *http.Request) {
	sort := repository.ReviewSortScoreDesc
	switch v := r.URL.Query().Get("sort"); v {
	case "", string(repository.ReviewSortScoreDesc):
	case string(repository.ReviewSortCollectedDesc):
		sort = repository.ReviewSortCollectedDesc
	default:
		writeError(w, http.StatusBadRequest, "sort must be score_desc or collected_desc")
		return
	}
	limit, _ := parseLimitOffset(r, defaultReviewLimit, maxReviewLimit)

	papers, total, err := s.deps.Papers.ReviewQueue(r.Context(), sort, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load review queue")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reviewQueueResponse{
		Papers:       papersToResponse(papers),
		TotalPending: total,
	})
}

type reviewRequest struct {
	PaperID string `json:"paper_id" validate:"required,uuid"`
	Action  string `json:"action" validate:"required,oneof=approve skip"`
}

type reviewResponse struct {
	ReviewStatus domain.ReviewStatus `json:"review_status"`
	Paper        paperResponse       `json:"paper"`
	Learning     string              `json:"learning"`
}

// reviewPaper handles POST /api/v1/review. The status change is synchronous;
// interest learning is handed to the publisher.
func (s *Server) reviewPaper(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeDomainError(w, err)
		return
	}
	paperID, err := uuid.Parse(req.PaperID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "paper_id must be a valid UUID")
		return
	}
	action := domain.ReviewAction(req.Action)

	ctx := r.Context()
	paper, err := s.deps.Papers.UpdateReviewStatus(ctx, paperID, action.Status())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.deps.Metrics.RecordReviewDecision(string(action))

	log := s.logger.With().Str("paper_id", paperID.String()).Str("action", string(action)).Logger()

	if paper.RelevanceScore != nil {
		s.recordFeedback(r, paper, action)
	}

	learning := learningQueued
	decision := domain.ReviewDecision{PaperID: paperID, Action: action, DecidedAt: s.now()}
	if err := s.deps.Publisher.PublishReviewDecision(ctx, decision); err != nil {
		log.Warn().Err(err).Msg("failed to publish review decision")
		learning = learningUnavailable
	}

	log.Info().Str("review_status", string(paper.ReviewStatus)).Msg("paper reviewed")
	writeJSON(w, http.StatusOK, reviewResponse{
		ReviewStatus: paper.ReviewStatus,
		Paper:        paperToResponse(paper),
		Learning:     learning,
	})
}

// recordFeedback stores whether the score agreed with the human decision.
// Failures are logged and do not affect the response.
func (s *Server) recordFeedback(r *http.Request, paper *domain.Paper, action domain.ReviewAction) {
	ctx := r.Context()
	settings, err := s.deps.Settings.GetReviewSettings(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load settings for scoring feedback")
		return
	}
	score := *paper.RelevanceScore
	fb := &domain.ScoringFeedback{
		ID:         uuid.New(),
		PaperID:    paper.ID,
		AIScore:    score,
		UserAction: action,
		IsCorrect:  scoring.Evaluate(score, action, settings),
		CreatedAt:  s.now(),
	}
	if err := s.deps.Feedback.InsertFeedback(ctx, fb); err != nil {
		s.logger.Warn().Err(err).Str("paper_id", paper.ID.String()).Msg("failed to record scoring feedback")
	}
}

const (
	bulkApproveAllAuto = "approve_all_auto"
	bulkSkipAllAuto    = "skip_all_auto"
)

type bulkReviewRequest struct {
	Action   string `json:"action" validate:"required,oneof=approve_all_auto skip_all_auto"`
	MinScore *int   `json:"min_score" validate:"omitempty,min=0,max=100"`
	MaxScore *int   `json:"max_score" validate:"omitempty,min=0,max=100"`
}

type bulkReviewResponse struct {
	Action        string `json:"action"`
	AffectedCount int64  `json:"affected_count"`
}

// bulkReview handles POST /api/v1/review/bulk. Only scored pending papers move.
func (s *Server) bulkReview(w http.ResponseWriter, r *http.Request) {
	var req bulkReviewRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeDomainError(w, err)
		return
	}

	var (
		bound  repository.ScoreBound
		status domain.ReviewStatus
	)
	switch strings.TrimSpace(req.Action) {
	case bulkApproveAllAuto:
		minScore := domain.DefaultAutoApproveThreshold
		if req.MinScore != nil {
			minScore = *req.MinScore
		}
		bound.Min = &minScore
		status = domain.ReviewStatusApproved
	case bulkSkipAllAuto:
		maxScore := domain.DefaultAutoSkipThreshold
		if req.MaxScore != nil {
			maxScore = *req.MaxScore
		}
		bound.Max = &maxScore
		status = domain.ReviewStatusSkipped
	}

	affected, err := s.deps.Papers.BulkResolvePending(r.Context(), bound, status)
	if err != nil {
		s.logger.Error().Err(err).Str("action", req.Action).Msg("bulk review failed")
		writeDomainError(w, err)
		return
	}

	s.logger.Info().Str("action", req.Action).Int64("affected", affected).Msg("bulk review applied")
	writeJSON(w, http.StatusOK, bulkReviewResponse{Action: req.Action, AffectedCount: affected})
}
