package papersources

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-triage-service/internal/domain"
)

func fastClient(cfg HTTPClientConfig) *HTTPClient {
	cfg.RateLimit = 1000
	cfg.BurstSize = 10
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 5 * time.Millisecond
	}
	return NewHTTPClient(cfg)
}

func TestNewHTTPClient(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		client := NewHTTPClient(HTTPClientConfig{})

		assert.Equal(t, 30*time.Second, client.config.Timeout)
		assert.Equal(t, 3, client.config.MaxRetries)
		assert.Equal(t, time.Second, client.config.RetryDelay)
		assert.Equal(t, DefaultUserAgent, client.config.UserAgent)
	})

	t.Run("NoRetry forces zero retries", func(t *testing.T) {
		client := NewHTTPClient(HTTPClientConfig{NoRetry: true, MaxRetries: 5})
		assert.Equal(t, 0, client.config.MaxRetries)
	})
}

func TestHTTPClient_Do(t *testing.T) {
	t.Run("sets user agent and api key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
			assert.Equal(t, "secret", r.Header.Get("x-api-key"))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := fastClient(HTTPClientConfig{UserAgent: "test-agent", APIKey: "secret", APIKeyHeader: "x-api-key"})
		resp, err := client.Get(context.Background(), server.URL, "application/json")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("returns 4xx without retrying", func(t *testing.T) {
		var count atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count.Add(1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		resp, err := fastClient(HTTPClientConfig{}).Get(context.Background(), server.URL, "")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, int32(1), count.Load())
	})
}

func TestHTTPClient_DoRetry(t *testing.T) {
	t.Run("retries on 429 and succeeds", func(t *testing.T) {
		var count atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if count.Add(1) < 3 {
				w.Header().Set("Retry-After", "0")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			_, _ = w.Write([]byte("success"))
		}))
		defer server.Close()

		resp, err := fastClient(HTTPClientConfig{MaxRetries: 3}).Get(context.Background(), server.URL, "")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int32(3), count.Load())
	})

	t.Run("retries on 5xx and returns last response when exhausted", func(t *testing.T) {
		var count atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		resp, err := fastClient(HTTPClientConfig{MaxRetries: 2}).Get(context.Background(), server.URL, "")
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Equal(t, int32(3), count.Load())
	})

	t.Run("NoRetry surfaces 429 after one attempt", func(t *testing.T) {
		var count atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		resp, err := fastClient(HTTPClientConfig{NoRetry: true}).Get(context.Background(), server.URL, "")
		require.NoError(t, err)

		err = CheckResponse("Semantic Scholar", resp)
		assert.True(t, domain.IsRateLimited(err))
		assert.Equal(t, int32(1), count.Load())
	})

	t.Run("resends request body", func(t *testing.T) {
		var count atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			assert.Equal(t, "payload", string(body))
			if count.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, server.URL, strings.NewReader("payload"))
		require.NoError(t, err)

		resp, err := fastClient(HTTPClientConfig{MaxRetries: 1}).Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestHTTPClient_DoContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := fastClient(HTTPClientConfig{}).Get(ctx, server.URL, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "deadline"))
}

func TestCheckResponse(t *testing.T) {
	newResp := func(status int, header http.Header, body string) *http.Response {
		req := httptest.NewRequest(http.MethodGet, "http://example.org/paper/DOI:10.1/x", nil)
		if header == nil {
			header = http.Header{}
		}
		return &http.Response{StatusCode: status, Header: header, Body: io.NopCloser(strings.NewReader(body)), Request: req}
	}

	t.Run("2xx is nil", func(t *testing.T) {
		assert.NoError(t, CheckResponse("x", newResp(http.StatusOK, nil, "")))
	})

	t.Run("404 is not found", func(t *testing.T) {
		err := CheckResponse("Semantic Scholar", newResp(http.StatusNotFound, nil, ""))
		assert.True(t, domain.IsNotFound(err))
		assert.False(t, domain.IsRateLimited(err))
	})

	t.Run("429 is rate limited with retry-after", func(t *testing.T) {
		err := CheckResponse("Semantic Scholar", newResp(http.StatusTooManyRequests, http.Header{"Retry-After": []string{"7"}}, ""))
		var rle *domain.RateLimitError
		require.ErrorAs(t, err, &rle)
		assert.Equal(t, 7*time.Second, rle.RetryAfter)
	})

	t.Run("500 is external api error", func(t *testing.T) {
		err := CheckResponse("OpenAlex", newResp(http.StatusInternalServerError, nil, "boom"))
		var apiErr *domain.ExternalAPIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "boom", apiErr.Message)
		assert.ErrorIs(t, err, domain.ErrExternalAPI)
		assert.False(t, domain.IsRateLimited(err))
	})
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, 3*time.Second, parseRetryAfter("3"))
	assert.Equal(t, time.Duration(0), parseRetryAfter("-1"))
	assert.Equal(t, time.Duration(0), parseRetryAfter("garbage"))

	future := time.Now().Add(10 * time.Second).UTC().Format(http.TimeFormat)
	assert.Greater(t, parseRetryAfter(future), 5*time.Second)
}
