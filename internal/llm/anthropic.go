package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicAPIVersion       = "2023-06-01"
	defaultAnthropicBaseURL   = "https://api.anthropic.com"
	defaultAnthropicModel     = "claude-3-5-haiku-latest"
	defaultAnthropicMaxTokens = 1024

	// The Messages API has no response-format switch, so JSON requests get
	// this appended to the system prompt.
	jsonInstruction = "Respond with a single JSON value only, without markdown fences or commentary."
)

// AnthropicConfig configures the Messages API provider.
type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type messagesResponse struct {
	ID         string         `json:"id"`
	Content    []contentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      anthropicUsage `json:"usage"`
}

// AnthropicProvider implements Provider over the Messages API.
type AnthropicProvider struct {
	api   *endpoint
	model string
}

// NewAnthropicProvider creates an Anthropic provider. Transient failures are
// retried up to maxRetries times.
func NewAnthropicProvider(cfg AnthropicConfig, timeout time.Duration, maxRetries int) *AnthropicProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}

	header := http.Header{}
	header.Set("x-api-key", cfg.APIKey)
	header.Set("anthropic-version", anthropicAPIVersion)

	api := newEndpoint("anthropic", baseURL+"/v1/messages", header, timeout, maxRetries)
	api.decodeError = decodeAnthropicError
	return &AnthropicProvider{api: api, model: model}
}

// Complete returns the first text block of the reply. In JSON mode a
// surrounding code fence is stripped.
func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	in := messagesRequest{
		Model:       p.model,
		MaxTokens:   req.MaxTokens,
		System:      req.System,
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
	}
	if in.MaxTokens <= 0 {
		in.MaxTokens = defaultAnthropicMaxTokens
	}
	if req.JSON {
		in.System = strings.TrimSpace(in.System + "\n\n" + jsonInstruction)
	}

	var out messagesResponse
	if err := p.api.call(ctx, in, &out); err != nil {
		return nil, err
	}

	var text string
	for _, block := range out.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return nil, fmt.Errorf("anthropic: %w", ErrEmptyResponse)
	}
	if req.JSON {
		text = StripCodeFence(text)
	}

	resp := &Response{
		Text:         text,
		Model:        out.Model,
		InputTokens:  out.Usage.InputTokens,
		OutputTokens: out.Usage.OutputTokens,
	}
	if resp.Model == "" {
		resp.Model = p.model
	}
	return resp, nil
}

func (p *AnthropicProvider) Provider() string { return "anthropic" }

func (p *AnthropicProvider) Model() string { return p.model }

func decodeAnthropicError(status int, body []byte) *APIError {
	var payload struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &payload) != nil || payload.Error.Message == "" {
		return nil
	}
	return &APIError{
		Provider:   "anthropic",
		StatusCode: status,
		Message:    payload.Error.Message,
		Type:       payload.Error.Type,
	}
}
