package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTimeout    = 60 * time.Second
	defaultRetryDelay = time.Second
	maxResponseBytes  = 10 << 20
)

// ErrEmptyResponse indicates the provider returned no text.
var ErrEmptyResponse = errors.New("empty response")

// APIError is a failed provider call. StatusCode 0 means no HTTP response
// was received.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
	Type       string
	Code       string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s: API error (status %d, type %s): %s", e.Provider, e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsTransient reports whether a retry may succeed: network failures, 429
// and 5xx.
func (e *APIError) IsTransient() bool {
	return e.StatusCode == 0 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= 500
}

func isTransientError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsTransient()
}

// endpoint posts JSON to a single provider URL and decodes the reply,
// retrying transient failures with exponential backoff.
type endpoint struct {
	provider    string
	url         string
	header      http.Header
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	decodeError func(status int, body []byte) *APIError
}

func newEndpoint(provider, url string, header http.Header, timeout time.Duration, maxRetries int) *endpoint {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	header.Set("Content-Type", "application/json")
	return &endpoint{
		provider: provider,
		url:      url,
		header:   header,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		maxRetries: max(maxRetries, 0),
		retryDelay: defaultRetryDelay,
	}
}

// call sends in and decodes the 200 reply into out.
func (e *endpoint) call(ctx context.Context, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", e.provider, err)
	}

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: context cancelled during retry wait: %w", e.provider, ctx.Err())
			case <-time.After(e.retryDelay << (attempt - 1)):
			}
		}

		lastErr = e.post(ctx, body, out)
		if lastErr == nil || !isTransientError(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("%s: exhausted %d retries: %w", e.provider, e.maxRetries, lastErr)
}

func (e *endpoint) post(ctx context.Context, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", e.provider, err)
	}
	req.Header = e.header.Clone()

	resp, err := e.client.Do(req)
	if err != nil {
		return &APIError{Provider: e.provider, Message: fmt.Sprintf("request failed: %v", err), Type: "network_error"}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &APIError{Provider: e.provider, Message: fmt.Sprintf("read response: %v", err), Type: "network_error"}
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Provider: e.provider, StatusCode: resp.StatusCode, Message: string(data)}
		if e.decodeError != nil {
			if decoded := e.decodeError(resp.StatusCode, data); decoded != nil {
				apiErr = decoded
			}
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", e.provider, err)
	}
	return nil
}
