package openalex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/paper-triage-service/internal/domain"
	"github.com/helixir/paper-triage-service/internal/observability"
	"github.com/helixir/paper-triage-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default OpenAlex API base URL.
	DefaultBaseURL = "https://api.openalex.org"

	// DefaultRateLimit is the default rate limit for requests per second.
	// The polite pool (with mailto) allows higher rates.
	DefaultRateLimit = 10.0

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per request.
	DefaultMaxResults = 10

	// maxPerPage is the API ceiling for per_page.
	maxPerPage = 200

	selectFields = "id,title,authorships,abstract_inverted_index,publication_date,doi,primary_location,type"

	// maxAbstractWords guards against oversized inverted indexes.
	maxAbstractWords = 100_000
)

// Config holds configuration for the OpenAlex client.
type Config struct {
	// BaseURL defaults to https://api.openalex.org.
	BaseURL string

	// Mailto is the contact email for the polite pool.
	Mailto string

	// APIKey is sent as the api_key query parameter when set.
	APIKey string

	Timeout    time.Duration
	RateLimit  float64
	MaxResults int
	Enabled    bool
	Metrics    *observability.Metrics
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// Client implements the papersources.PaperSource interface for OpenAlex.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Ensure Client implements PaperSource interface.
var _ papersources.PaperSource = (*Client)(nil)

// New creates a new OpenAlex client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	userAgent := papersources.DefaultUserAgent
	if cfg.Mailto != "" {
		userAgent += " (mailto:" + cfg.Mailto + ")"
	}

	return &Client{
		config: cfg,
		httpClient: papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Source:    string(domain.SourceTypeOpenAlex),
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			BurstSize: 5,
			UserAgent: userAgent,
			Metrics:   cfg.Metrics,
		}),
	}
}

// NewWithHTTPClient creates a new OpenAlex client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries OpenAlex for the newest works matching params.Query.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	startTime := time.Now()

	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	resp, err := c.httpClient.Get(ctx, searchURL, "application/json")
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	if err := papersources.CheckResponse(c.Name(), resp); err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Limit body to 10MB to prevent resource exhaustion.
	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	papers := make([]*domain.Paper, 0, len(searchResp.Results))
	for i := range searchResp.Results {
		if paper, ok := workToPaper(&searchResp.Results[i]); ok {
			papers = append(papers, paper)
		}
	}

	return &papersources.SearchResult{
		Papers:         papers,
		TotalResults:   searchResp.Meta.Count,
		Source:         domain.SourceTypeOpenAlex,
		SearchDuration: time.Since(startTime),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeOpenAlex
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return string(domain.SourceTypeOpenAlex)
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

func (c *Client) buildSearchURL(params papersources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", err
	}
	baseURL.Path = strings.TrimSuffix(baseURL.Path, "/") + "/works"

	perPage := params.MaxResults
	if perPage <= 0 {
		perPage = c.config.MaxResults
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	query := url.Values{}
	query.Set("search", params.Query)
	query.Set("per_page", strconv.Itoa(perPage))
	query.Set("sort", "publication_date:desc")
	query.Set("select", selectFields)
	if c.config.Mailto != "" {
		query.Set("mailto", c.config.Mailto)
	}
	if c.config.APIKey != "" {
		query.Set("api_key", c.config.APIKey)
	}
	baseURL.RawQuery = query.Encode()

	return baseURL.String(), nil
}

// workToPaper converts an OpenAlex Work to a domain Paper.
// Works without a title are rejected.
func workToPaper(work *Work) (*domain.Paper, bool) {
	if work == nil || work.Title == nil || strings.TrimSpace(*work.Title) == "" {
		return nil, false
	}

	authors := make([]string, 0, len(work.Authorships))
	for _, authorship := range work.Authorships {
		if name := strings.TrimSpace(authorship.Author.DisplayName); name != "" {
			authors = append(authors, name)
		}
	}

	var journal string
	var landing string
	if loc := work.PrimaryLocation; loc != nil {
		if loc.Source != nil {
			journal = loc.Source.DisplayName
		}
		if loc.LandingPageURL != nil {
			landing = *loc.LandingPageURL
		}
	}
	if landing == "" {
		landing = work.ID
	}

	var doi string
	if work.DOI != nil {
		doi = domain.NormalizeDOI(*work.DOI)
	}

	return &domain.Paper{
		TitleOriginal: strings.TrimSpace(*work.Title),
		Authors:       authors,
		Abstract:      domain.StringPtr(reconstructAbstract(work.AbstractInvertedIndex)),
		PublishedDate: domain.ParseDate(work.PublicationDate),
		Journal:       domain.StringPtr(journal),
		DOI:           domain.StringPtr(doi),
		URL:           landing,
	}, true
}

// reconstructAbstract rebuilds the abstract text from OpenAlex's inverted index format.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	totalPairs := 0
	for _, positions := range invertedIndex {
		totalPairs += len(positions)
	}
	if totalPairs > maxAbstractWords {
		return ""
	}
	pairs := make([]posWord, 0, totalPairs)

	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	var builder strings.Builder
	builder.Grow(totalPairs * 7)
	for i, pair := range pairs {
		if i > 0 {
			builder.WriteByte(' ')
		}
		builder.WriteString(pair.word)
	}

	return builder.String()
}
