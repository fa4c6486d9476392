// Package enrich adds generated translations, summaries and explanations to
// collected papers. Every pass degrades to empty fields on provider failure.
package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-triage-service/internal/domain"
	"github.com/helixir/paper-triage-service/internal/llm"
)

// DefaultLanguage is the translation target when none is configured.
const DefaultLanguage = "Japanese"

// Operation labels used for LLM metrics.
const (
	OpTranslate = "translate"
	OpSummarize = "summarize"
	OpExplain   = "explain"
)

// Result holds the generated fields. Empty strings mean the step was skipped or failed.
type Result struct {
	TitleTranslated string
	Summary         string
	Explanation     string
}

// Apply copies the non-empty fields of r onto p.
func (r Result) Apply(p *domain.Paper) {
	if r.TitleTranslated != "" {
		p.TitleTranslated = domain.StringPtr(r.TitleTranslated)
	}
	if r.Summary != "" {
		p.Summary = domain.StringPtr(r.Summary)
	}
	if r.Explanation != "" {
		p.Explanation = domain.StringPtr(r.Explanation)
	}
}

// Enricher runs the generation passes against one provider.
type Enricher struct {
	provider llm.Provider
	language string
	logger   zerolog.Logger
}

// New creates an Enricher. A nil provider turns every pass into a no-op.
func New(provider llm.Provider, language string, logger zerolog.Logger) *Enricher {
	if language == "" {
		language = DefaultLanguage
	}
	return &Enricher{
		provider: provider,
		language: language,
		logger:   logger.With().Str("component", "enrich").Logger(),
	}
}

// Full translates the title, summarizes and explains the paper.
func (e *Enricher) Full(ctx context.Context, p *domain.Paper) Result {
	return Result{
		TitleTranslated: e.translate(ctx, p),
		Summary:         e.summarize(ctx, p),
		Explanation:     e.explain(ctx, p),
	}
}

// Light translates the title and summarizes the paper without an explanation.
func (e *Enricher) Light(ctx context.Context, p *domain.Paper) Result {
	return Result{
		TitleTranslated: e.translate(ctx, p),
		Summary:         e.summarize(ctx, p),
	}
}

// TitleOnly translates the title.
func (e *Enricher) TitleOnly(ctx context.Context, p *domain.Paper) Result {
	return Result{TitleTranslated: e.translate(ctx, p)}
}

func (e *Enricher) translate(ctx context.Context, p *domain.Paper) string {
	system := fmt.Sprintf("Translate the following academic paper title into accurate academic %s. Output only the translation.", e.language)
	return e.generate(ctx, p, llm.Request{
		Operation:   OpTranslate,
		System:      system,
		Prompt:      p.TitleOriginal,
		Temperature: 0.1,
		MaxTokens:   200,
	})
}

func (e *Enricher) summarize(ctx context.Context, p *domain.Paper) string {
	system := fmt.Sprintf(`You summarize academic papers. Write a summary of about 300 characters in %s.
Base the summary only on the text provided and do not infer missing details.
Cover the research goal, the main method and the main findings. Output only the summary.`, e.language)
	return e.generate(ctx, p, llm.Request{
		Operation:   OpSummarize,
		System:      system,
		Prompt:      PaperContext(p),
		Temperature: 0.3,
		MaxTokens:   1000,
	})
}

func (e *Enricher) explain(ctx context.Context, p *domain.Paper) string {
	system := fmt.Sprintf(`You explain academic papers to researchers and students. Write a 500 to 800 character explanation in %s.
Base it only on the text provided. Cover the background and motivation, the proposed method,
the results and their significance, and future directions. Output only the explanation.`, e.language)
	return e.generate(ctx, p, llm.Request{
		Operation:   OpExplain,
		System:      system,
		Prompt:      PaperContext(p),
		Temperature: 0.3,
		MaxTokens:   2000,
	})
}

func (e *Enricher) generate(ctx context.Context, p *domain.Paper, req llm.Request) string {
	if e.provider == nil {
		return ""
	}
	resp, err := e.provider.Complete(ctx, req)
	if err != nil {
		e.logger.Warn().Err(err).
			Str("operation", req.Operation).
			Str("title", p.TitleOriginal).
			Msg("generation failed")
		return ""
	}
	return strings.TrimSpace(resp.Text)
}

// PaperContext renders the title, authors and abstract as prompt input.
func PaperContext(p *domain.Paper) string {
	parts := []string{"Title: " + p.TitleOriginal}
	if len(p.Authors) > 0 {
		parts = append(parts, "Authors: "+strings.Join(p.Authors, ", "))
	}
	if abstract := p.AbstractValue(); abstract != "" {
		parts = append(parts, "Abstract:\n"+abstract)
	}
	return strings.Join(parts, "\n\n")
}
