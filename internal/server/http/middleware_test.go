package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/helixir/paper-triage-service/internal/observability"
)

func TestCorrelationIDMiddleware(t *testing.T) {
	var seen string
	h := correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = observability.CorrelationIDFromContext(r.Context())
	}))

	t.Run("header is propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Correlation-ID", "corr-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "corr-123", seen)
		assert.Equal(t, "corr-123", rec.Header().Get("X-Correlation-ID"))
	})

	t.Run("generated when missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get("X-Correlation-ID"))
	})
}

func TestCronAuthMiddleware(t *testing.T) {
	var trigger string
	h := cronAuthMiddleware("token")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		trigger = observability.TriggerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic token", http.StatusUnauthorized},
		{"wrong token", "Bearer tok", http.StatusUnauthorized},
		{"valid", "Bearer token", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
	assert.Equal(t, observability.TriggerScheduled, trigger)
}

func TestJSONFieldName(t *testing.T) {
	assert.Equal(t, "feed_url", jsonFieldName("FeedURL"))
	assert.Equal(t, "paper_id", jsonFieldName("PaperID"))
	assert.Equal(t, "title", jsonFieldName("Title"))
	assert.Equal(t, "max_seeds", jsonFieldName("MaxSeeds"))
}
