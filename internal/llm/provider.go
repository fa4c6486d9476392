// Package llm provides text-generation providers (OpenAI, Anthropic) behind a
// single Provider interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/helixir/paper-triage-service/internal/observability"
)

// Request is a single text-generation call.
type Request struct {
	// Operation labels metrics (e.g. "score", "summarize", "learn").
	Operation string
	// System is the system prompt. Optional.
	System string
	// Prompt is the user message.
	Prompt string
	// Temperature controls sampling. Low values keep output near-deterministic.
	Temperature float64
	// MaxTokens bounds the response length. Zero uses the provider default.
	MaxTokens int
	// JSON asks the provider for a single JSON value.
	JSON bool
}

// Response is the generated text and its token usage.
type Response struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Provider generates text.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	// Provider returns the provider name (e.g. "openai").
	Provider() string
	// Model returns the model identifier being used.
	Model() string
}

// Config selects and configures a Provider.
type Config struct {
	Provider   string // "openai" or "anthropic"
	Timeout    time.Duration
	MaxRetries int
	OpenAI     OpenAIConfig
	Anthropic  AnthropicConfig
	Metrics    *observability.Metrics
}

// NewProvider builds the provider named by cfg.Provider, instrumented with
// cfg.Metrics when set.
func NewProvider(cfg Config) (Provider, error) {
	var p Provider
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		p = NewOpenAIProvider(cfg.OpenAI, cfg.Timeout, cfg.MaxRetries)
	case "anthropic":
		p = NewAnthropicProvider(cfg.Anthropic, cfg.Timeout, cfg.MaxRetries)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.Provider)
	}
	return WithMetrics(p, cfg.Metrics), nil
}

// instrumented records request metrics around another Provider.
type instrumented struct {
	next    Provider
	metrics *observability.Metrics
}

// WithMetrics wraps p so every call is counted and timed. A nil metrics
// value returns p unchanged.
func WithMetrics(p Provider, metrics *observability.Metrics) Provider {
	if metrics == nil || p == nil {
		return p
	}
	return &instrumented{next: p, metrics: metrics}
}

func (i *instrumented) Provider() string { return i.next.Provider() }

func (i *instrumented) Model() string { return i.next.Model() }

func (i *instrumented) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := i.next.Complete(ctx, req)
	if err != nil {
		i.metrics.RecordLLMRequestFailed(req.Operation, i.Model(), errorType(err))
		return nil, err
	}
	i.metrics.RecordLLMRequest(req.Operation, i.Model(), time.Since(start).Seconds(), resp.InputTokens, resp.OutputTokens)
	return resp, nil
}

// StripCodeFence removes a surrounding markdown code fence, which some models
// emit around JSON even when asked not to.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func errorType(err error) string {
	var apiErr *APIError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &apiErr):
		if apiErr.StatusCode == 429 {
			return "rate_limit"
		}
		if apiErr.Type != "" {
			return apiErr.Type
		}
		return "api_error"
	default:
		return "other"
	}
}
