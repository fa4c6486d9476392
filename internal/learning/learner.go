// Package learning adjusts the interest profile from review decisions.
package learning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-triage-service/internal/domain"
	"github.com/helixir/paper-triage-service/internal/llm"
	"github.com/helixir/paper-triage-service/internal/observability"
)

// OpExtract labels keyword extraction calls in LLM metrics.
const OpExtract = "extract_keywords"

const (
	extractTemperature = 0.3
	extractMaxTokens   = 300
)

const extractPrompt = `Extract 3 to 5 research keywords that characterize the paper below.
Prefer specific technical terms or research fields over generic words.
Respond with a JSON object: {"keywords": [string]}.`

// InterestStore persists interest entries.
type InterestStore interface {
	ListInterests(ctx context.Context) ([]*domain.Interest, error)
	CreateInterest(ctx context.Context, interest *domain.Interest) error
	UpdateInterestWeight(ctx context.Context, id uuid.UUID, weight float64) error
}

// Learner turns approvals and skips into learned interest weights.
// Manual interests are never modified.
type Learner struct {
	provider llm.Provider
	store    InterestStore
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// NewLearner creates a Learner.
func NewLearner(provider llm.Provider, store InterestStore, logger zerolog.Logger, metrics *observability.Metrics) *Learner {
	return &Learner{
		provider: provider,
		store:    store,
		logger:   logger.With().Str("component", "learner").Logger(),
		metrics:  metrics,
	}
}

// ExtractKeywords asks the provider for characteristic keywords of p.
// Any failure yields an empty slice.
func (l *Learner) ExtractKeywords(ctx context.Context, p *domain.Paper) []string {
	if l.provider == nil {
		return nil
	}
	resp, err := l.provider.Complete(ctx, llm.Request{
		Operation:   OpExtract,
		System:      extractPrompt,
		Prompt:      keywordSource(p),
		Temperature: extractTemperature,
		MaxTokens:   extractMaxTokens,
		JSON:        true,
	})
	if err != nil {
		l.logger.Warn().Err(err).Str("title", p.TitleOriginal).Msg("keyword extraction failed")
		return nil
	}
	keywords, ok := ParseKeywords(resp.Text)
	if !ok {
		l.logger.Warn().Str("title", p.TitleOriginal).Msg("unusable keyword extraction reply")
		return nil
	}
	return keywords
}

func keywordSource(p *domain.Paper) string {
	parts := []string{"Title: " + p.TitleOriginal}
	if p.TitleTranslated != nil && *p.TitleTranslated != "" {
		parts = append(parts, "Translated title: "+*p.TitleTranslated)
	}
	if p.Summary != nil && *p.Summary != "" {
		parts = append(parts, "Summary: "+*p.Summary)
	}
	return strings.Join(parts, "\n")
}

// ParseKeywords accepts a JSON array of strings or an object holding one.
// The "keywords" field is preferred; otherwise the first array field is used.
// Non-string and blank entries are dropped.
func ParseKeywords(text string) ([]string, bool) {
	text = llm.StripCodeFence(text)

	var arr []json.RawMessage
	if err := json.Unmarshal([]byte(text), &arr); err == nil {
		return stringsOf(arr), true
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, false
	}
	if raw, ok := obj["keywords"]; ok {
		if err := json.Unmarshal(raw, &arr); err == nil {
			return stringsOf(arr), true
		}
	}
	for _, raw := range obj {
		if err := json.Unmarshal(raw, &arr); err == nil {
			return stringsOf(arr), true
		}
	}
	return nil, false
}

func stringsOf(items []json.RawMessage) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// LearnFromApproval reinforces or creates a learned interest for every
// extracted keyword and returns the keywords.
func (l *Learner) LearnFromApproval(ctx context.Context, p *domain.Paper) ([]string, error) {
	keywords := l.ExtractKeywords(ctx, p)
	if len(keywords) == 0 {
		return nil, nil
	}

	interests, err := l.store.ListInterests(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing interests: %w", err)
	}

	for _, kw := range keywords {
		log := l.logger.With().Str("keyword", kw).Logger()
		if existing := domain.FindLearned(interests, kw); existing != nil {
			weight := domain.ClampWeight(existing.Weight + domain.ApprovalWeightStep)
			if err := l.store.UpdateInterestWeight(ctx, existing.ID, weight); err != nil {
				log.Error().Err(err).Msg("failed to reinforce interest")
				continue
			}
			existing.Weight = weight
			l.metrics.RecordInterestUpdate("reinforced")
			continue
		}

		interest := &domain.Interest{
			ID:     uuid.New(),
			Label:  kw,
			Weight: domain.DefaultInterestWeight,
			Type:   domain.InterestTypeLearned,
		}
		if err := l.store.CreateInterest(ctx, interest); err != nil {
			log.Error().Err(err).Msg("failed to create learned interest")
			continue
		}
		interests = append(interests, interest)
		l.metrics.RecordInterestUpdate("created")
	}

	l.logger.Info().Str("paper_id", p.ID.String()).Strs("keywords", keywords).Msg("learned from approval")
	return keywords, nil
}

// LearnFromSkip weakens learned interests matching the extracted keywords.
// Keywords with no learned match are ignored.
func (l *Learner) LearnFromSkip(ctx context.Context, p *domain.Paper) error {
	keywords := l.ExtractKeywords(ctx, p)
	if len(keywords) == 0 {
		return nil
	}

	interests, err := l.store.ListInterests(ctx)
	if err != nil {
		return fmt.Errorf("listing interests: %w", err)
	}

	for _, kw := range keywords {
		existing := domain.FindLearned(interests, kw)
		if existing == nil {
			continue
		}
		weight := domain.ClampWeight(existing.Weight - domain.SkipWeightStep)
		if err := l.store.UpdateInterestWeight(ctx, existing.ID, weight); err != nil {
			l.logger.Error().Err(err).Str("keyword", kw).Msg("failed to weaken interest")
			continue
		}
		existing.Weight = weight
		l.metrics.RecordInterestUpdate("weakened")
	}
	return nil
}

// Apply dispatches a review action to the matching learning step.
func (l *Learner) Apply(ctx context.Context, p *domain.Paper, action domain.ReviewAction) error {
	switch action {
	case domain.ReviewActionApprove:
		_, err := l.LearnFromApproval(ctx, p)
		return err
	case domain.ReviewActionSkip:
		return l.LearnFromSkip(ctx, p)
	default:
		return domain.NewValidationError("action", fmt.Sprintf("unknown review action %q", action))
	}
}
