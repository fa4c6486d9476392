package openalex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-triage-service/internal/domain"
	"github.com/helixir/paper-triage-service/internal/papersources"
)

// newTestClient creates a client configured for testing with the given server URL.
func newTestClient(serverURL string) *Client {
	cfg := Config{
		BaseURL:    serverURL,
		Mailto:     "test@example.com",
		Timeout:    5 * time.Second,
		MaxResults: 10,
		Enabled:    true,
	}

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:    cfg.Timeout,
		RateLimit:  100,
		BurstSize:  100,
		RetryDelay: 5 * time.Millisecond,
	})

	return NewWithHTTPClient(cfg, httpClient)
}

const sampleResponse = `{
  "meta": {"count": 3, "per_page": 10},
  "results": [
    {
      "id": "https://openalex.org/W1",
      "doi": "https://doi.org/10.1038/nature12373",
      "title": "CRISPR-Cas Systems for Editing",
      "publication_date": "2014-06-05",
      "type": "article",
      "authorships": [{"author": {"display_name": "Jennifer Doudna"}}, {"author": {"display_name": " "}}],
      "primary_location": {"landing_page_url": "https://nature.com/x", "source": {"display_name": "Nature"}},
      "abstract_inverted_index": {"CRISPR": [0], "edits": [1], "genomes.": [2]}
    },
    {
      "id": "https://openalex.org/W2",
      "doi": null,
      "title": "No Location",
      "publication_date": "",
      "authorships": [],
      "primary_location": null,
      "abstract_inverted_index": null
    },
    {"id": "https://openalex.org/W3", "title": null}
  ]
}`

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/works", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "crispr", q.Get("search"))
		assert.Equal(t, "5", q.Get("per_page"))
		assert.Equal(t, "publication_date:desc", q.Get("sort"))
		assert.Equal(t, selectFields, q.Get("select"))
		assert.Equal(t, "test@example.com", q.Get("mailto"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.Search(context.Background(), papersources.SearchParams{Query: "crispr", MaxResults: 5})
	require.NoError(t, err)

	assert.Equal(t, domain.SourceTypeOpenAlex, result.Source)
	assert.Equal(t, 3, result.TotalResults)
	require.Len(t, result.Papers, 2)

	first := result.Papers[0]
	assert.Equal(t, "CRISPR-Cas Systems for Editing", first.TitleOriginal)
	assert.Equal(t, []string{"Jennifer Doudna"}, first.Authors)
	assert.Equal(t, "CRISPR edits genomes.", first.AbstractValue())
	assert.Equal(t, "10.1038/nature12373", first.DOIValue())
	assert.Equal(t, "Nature", first.JournalValue())
	assert.Equal(t, "https://nature.com/x", first.URL)
	require.NotNil(t, first.PublishedDate)
	assert.Equal(t, "2014-06-05", first.PublishedDate.Format(domain.DateLayout))

	second := result.Papers[1]
	assert.Nil(t, second.DOI)
	assert.Nil(t, second.Abstract)
	assert.Nil(t, second.Journal)
	assert.Nil(t, second.PublishedDate)
	assert.Equal(t, "https://openalex.org/W2", second.URL)
}

func TestClient_Search_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"meta": {"count": 0}, "results": []}`))
	}))
	defer server.Close()

	result, err := newTestClient(server.URL).Search(context.Background(), papersources.SearchParams{Query: "nothing"})
	require.NoError(t, err)
	assert.Empty(t, result.Papers)
}

func TestClient_Search_Errors(t *testing.T) {
	t.Run("rate limited", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Search(context.Background(), papersources.SearchParams{Query: "q"})
		require.Error(t, err)
		assert.True(t, domain.IsRateLimited(err))
	})

	t.Run("bad request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("bad search"))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Search(context.Background(), papersources.SearchParams{Query: "q"})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrExternalAPI)
	})

	t.Run("malformed json", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{not json"))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Search(context.Background(), papersources.SearchParams{Query: "q"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decoding response")
	})
}

func TestClient_buildSearchURL(t *testing.T) {
	client := New(Config{BaseURL: "https://api.example.org/", APIKey: "k", Enabled: true})

	raw, err := client.buildSearchURL(papersources.SearchParams{Query: "graph & networks", MaxResults: 500})
	require.NoError(t, err)
	assert.Contains(t, raw, "https://api.example.org/works?")
	assert.Contains(t, raw, "per_page=200")
	assert.Contains(t, raw, "search=graph+%26+networks")
	assert.Contains(t, raw, "api_key=k")
	assert.NotContains(t, raw, "mailto=")
}

func TestReconstructAbstract(t *testing.T) {
	tests := []struct {
		name  string
		index map[string][]int
		want  string
	}{
		{name: "nil index", index: nil, want: ""},
		{name: "simple", index: map[string][]int{"Hello": {0}, "world!": {1}}, want: "Hello world!"},
		{name: "repeated word", index: map[string][]int{"the": {0, 2}, "cat": {1}, "sat.": {3}}, want: "the cat the sat."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reconstructAbstract(tt.index))
		})
	}
}

func TestConfig_applyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultRateLimit, cfg.RateLimit)
	assert.Equal(t, DefaultMaxResults, cfg.MaxResults)
}
