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
	defaultOpenAIBaseURL   = "https://api.openai.com/v1"
	defaultOpenAIModel     = "gpt-4o-mini"
	defaultOpenAIMaxTokens = 1024
)

// OpenAIConfig configures the Chat Completions provider. Empty fields use
// the public endpoint and gpt-4o-mini.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

// OpenAIProvider implements Provider over the Chat Completions API.
type OpenAIProvider struct {
	api   *endpoint
	model string
}

// NewOpenAIProvider creates an OpenAI provider. Transient failures are retried
// up to maxRetries times.
func NewOpenAIProvider(cfg OpenAIConfig, timeout time.Duration, maxRetries int) *OpenAIProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.APIKey)

	api := newEndpoint("openai", baseURL+"/chat/completions", header, timeout, maxRetries)
	api.decodeError = decodeOpenAIError
	return &OpenAIProvider{api: api, model: model}
}

// Complete sends req as a system and user message pair. JSON requests use the
// json_object response format.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	in := chatRequest{
		Model:       p.model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if in.MaxTokens <= 0 {
		in.MaxTokens = defaultOpenAIMaxTokens
	}
	if req.System != "" {
		in.Messages = append(in.Messages, chatMessage{Role: "system", Content: req.System})
	}
	in.Messages = append(in.Messages, chatMessage{Role: "user", Content: req.Prompt})
	if req.JSON {
		in.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var out chatResponse
	if err := p.api.call(ctx, in, &out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("openai: %w", ErrEmptyResponse)
	}

	resp := &Response{
		Text:         out.Choices[0].Message.Content,
		Model:        out.Model,
		InputTokens:  out.Usage.PromptTokens,
		OutputTokens: out.Usage.CompletionTokens,
	}
	if resp.Model == "" {
		resp.Model = p.model
	}
	return resp, nil
}

func (p *OpenAIProvider) Provider() string { return "openai" }

func (p *OpenAIProvider) Model() string { return p.model }

func decodeOpenAIError(status int, body []byte) *APIError {
	var payload struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &payload) != nil || payload.Error.Message == "" {
		return nil
	}
	return &APIError{
		Provider:   "openai",
		StatusCode: status,
		Message:    payload.Error.Message,
		Type:       payload.Error.Type,
		Code:       payload.Error.Code,
	}
}
