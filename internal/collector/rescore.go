package collector

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/helixir/paper-triage-service/internal/domain"
	"github.com/helixir/paper-triage-service/internal/scoring"
)

// DefaultRescoreLimit caps one rescore pass.
const DefaultRescoreLimit = 50

// PendingStore lists pending papers and stores new scores.
type PendingStore interface {
	ListPending(ctx context.Context, limit int) ([]*domain.Paper, error)
	UpdateScore(ctx context.Context, id uuid.UUID, score int, status domain.ReviewStatus) error
}

// RescoreItem is one re-scored paper.
type RescoreItem struct {
	PaperID  uuid.UUID           `json:"paper_id"`
	Title    string              `json:"title"`
	OldScore *int                `json:"old_score"`
	NewScore int                 `json:"new_score"`
	Status   domain.ReviewStatus `json:"review_status"`
}

// RescoreResult summarizes a rescore pass.
type RescoreResult struct {
	Rescored     int           `json:"rescored"`
	Errors       int           `json:"errors"`
	TotalPending int           `json:"total_pending"`
	Results      []RescoreItem `json:"results"`
}

// Rescorer recomputes scores of pending papers against the current profile.
type Rescorer struct {
	deps    Deps
	pending PendingStore
}

// NewRescorer creates a Rescorer.
func NewRescorer(deps Deps, pending PendingStore) *Rescorer {
	deps.Logger = deps.Logger.With().Str("component", "rescorer").Logger()
	return &Rescorer{deps: deps, pending: pending}
}

// Run re-scores up to limit pending papers. It returns ErrScoringDisabled
// or ErrEmptyProfile when there is nothing meaningful to score against.
func (r *Rescorer) Run(ctx context.Context, limit int) (*RescoreResult, error) {
	if limit <= 0 {
		limit = DefaultRescoreLimit
	}
	prof, err := loadProfile(ctx, r.deps)
	if err != nil {
		return nil, err
	}
	if !prof.settings.ScoringEnabled {
		return nil, domain.ErrScoringDisabled
	}
	if len(prof.interests) == 0 {
		return nil, domain.ErrEmptyProfile
	}

	papers, err := r.pending.ListPending(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing pending papers: %w", err)
	}

	out := &RescoreResult{TotalPending: len(papers), Results: []RescoreItem{}}
	for _, p := range papers {
		if ctx.Err() != nil {
			break
		}
		old := p.RelevanceScore
		scoring.Assign(p, r.deps.Scorer.Score(ctx, p, prof.interests), prof.settings)
		if err := r.pending.UpdateScore(ctx, p.ID, *p.RelevanceScore, p.ReviewStatus); err != nil {
			r.deps.Logger.Error().Err(err).Str("paper_id", p.ID.String()).Msg("failed to store new score")
			out.Errors++
			continue
		}
		out.Rescored++
		out.Results = append(out.Results, RescoreItem{
			PaperID:  p.ID,
			Title:    p.TitleOriginal,
			OldScore: old,
			NewScore: *p.RelevanceScore,
			Status:   p.ReviewStatus,
		})
	}
	r.deps.Logger.Info().Int("rescored", out.Rescored).Int("errors", out.Errors).Msg("rescore finished")
	return out, nil
}
