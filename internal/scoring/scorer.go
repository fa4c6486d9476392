// Package scoring estimates paper relevance against the interest profile and
// maps scores to review statuses.
package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-triage-service/internal/domain"
	"github.com/helixir/paper-triage-service/internal/llm"
	"github.com/helixir/paper-triage-service/internal/observability"
)

const (
	// NeutralScore is returned for an empty profile and on every failure.
	NeutralScore = 50

	// OpScore labels scoring calls in LLM metrics.
	OpScore = "score"

	maxAbstractChars = 1500
	scoreTemperature = 0.1
	scoreMaxTokens   = 300
)

const systemPrompt = `You judge how likely a researcher is to be interested in a paper.
Compare the interest profile with the paper and rate the likelihood as an integer from 0 to 100.

Guidelines:
- 90-100: directly on one of the research topics
- 70-89: closely related topic or method
- 40-69: possibly related
- 10-39: weakly related
- 0-9: unrelated

Interests with higher weight matter more.
Respond with a JSON object: {"reasoning": string, "matched_interests": [string], "score": integer}.`

var leadingInt = regexp.MustCompile(`^\s*(-?\d+)`)

// Detail is a score with the model's explanation.
type Detail struct {
	Score            int      `json:"score"`
	Reasoning        string   `json:"reasoning"`
	MatchedInterests []string `json:"matched_interests"`
	// Fallback is true when the neutral score was used because of a failure.
	Fallback bool `json:"fallback"`
}

// Scorer asks a text-generation provider for a 0-100 relevance score.
type Scorer struct {
	provider llm.Provider
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// NewScorer creates a Scorer.
func NewScorer(provider llm.Provider, logger zerolog.Logger, metrics *observability.Metrics) *Scorer {
	return &Scorer{
		provider: provider,
		logger:   logger.With().Str("component", "scorer").Logger(),
		metrics:  metrics,
	}
}

// Score returns an integer in [0,100]. It never fails: an empty profile, a
// provider error or an unusable reply all yield NeutralScore.
func (s *Scorer) Score(ctx context.Context, p *domain.Paper, interests []*domain.Interest) int {
	return s.ScoreDetailed(ctx, p, interests).Score
}

// ScoreDetailed is Score with the parsed reasoning and matched interests.
func (s *Scorer) ScoreDetailed(ctx context.Context, p *domain.Paper, interests []*domain.Interest) Detail {
	if len(interests) == 0 || s.provider == nil {
		return Detail{Score: NeutralScore}
	}

	resp, err := s.provider.Complete(ctx, llm.Request{
		Operation:   OpScore,
		System:      systemPrompt,
		Prompt:      BuildPrompt(p, interests),
		Temperature: scoreTemperature,
		MaxTokens:   scoreMaxTokens,
		JSON:        true,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("title", p.TitleOriginal).Msg("scoring request failed, using neutral score")
		s.metrics.RecordScoringFallback("request")
		return Detail{Score: NeutralScore, Fallback: true}
	}

	detail, ok := ParseReply(resp.Text)
	if !ok {
		s.logger.Warn().Str("title", p.TitleOriginal).Str("reply", truncate(resp.Text, 200)).Msg("unusable scoring reply, using neutral score")
		s.metrics.RecordScoringFallback("parse")
		return Detail{Score: NeutralScore, Fallback: true}
	}
	return detail
}

type reply struct {
	Reasoning        string          `json:"reasoning"`
	MatchedInterests []string        `json:"matched_interests"`
	Score            json.RawMessage `json:"score"`
}

// ParseReply extracts a score from a model reply. JSON replies must carry an
// integral score; other text falls back to a leading integer. The score must
// lie in [0,100].
func ParseReply(text string) (Detail, bool) {
	text = llm.StripCodeFence(text)

	var r reply
	if err := json.Unmarshal([]byte(text), &r); err == nil {
		score, ok := parseScoreField(r.Score)
		if !ok || !inRange(score) {
			return Detail{}, false
		}
		return Detail{Score: score, Reasoning: r.Reasoning, MatchedInterests: r.MatchedInterests}, true
	}

	m := leadingInt.FindStringSubmatch(text)
	if m == nil {
		return Detail{}, false
	}
	score, err := strconv.Atoi(m[1])
	if err != nil || !inRange(score) {
		return Detail{}, false
	}
	return Detail{Score: score}, true
}

// parseScoreField accepts an integral number or a numeric string.
func parseScoreField(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f != float64(int(f)) {
			return 0, false
		}
		return int(f), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		return n, err == nil
	}
	return 0, false
}

func inRange(score int) bool {
	return score >= 0 && score <= 100
}

// BuildPrompt renders the weighted interest list and the paper fields.
func BuildPrompt(p *domain.Paper, interests []*domain.Interest) string {
	var b strings.Builder
	b.WriteString("## Interest profile\n")
	for _, in := range interests {
		fmt.Fprintf(&b, "- %s (weight: %.1f)\n", in.Label, in.Weight)
	}

	b.WriteString("\n## Paper\n")
	b.WriteString("Title: " + p.TitleOriginal + "\n")
	if p.TitleTranslated != nil && *p.TitleTranslated != "" {
		b.WriteString("Translated title: " + *p.TitleTranslated + "\n")
	}
	if len(p.Authors) > 0 {
		b.WriteString("Authors: " + strings.Join(p.Authors, ", ") + "\n")
	}
	if abstract := p.AbstractValue(); abstract != "" {
		b.WriteString("Abstract: " + truncate(abstract, maxAbstractChars) + "\n")
	}
	if p.Summary != nil && *p.Summary != "" {
		b.WriteString("Summary: " + *p.Summary + "\n")
	}
	return b.String()
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
