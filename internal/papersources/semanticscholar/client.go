package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/paper-triage-service/internal/domain"
	"github.com/helixir/paper-triage-service/internal/observability"
	"github.com/helixir/paper-triage-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default base URL for the Semantic Scholar Graph API.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultRateLimit is the sustained request rate for unauthenticated use.
	DefaultRateLimit = 1.0

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default number of search results.
	DefaultMaxResults = 10

	// maxSearchLimit is the API's cap on the search limit parameter.
	maxSearchLimit = 100

	// apiKeyHeader is the header name for the Semantic Scholar API key.
	apiKeyHeader = "x-api-key"

	// paperFields is the list of fields requested for every paper.
	paperFields = "title,authors,abstract,year,externalIds,url,venue,publicationDate"

	// paperPageURL prefixes a paper ID when the API omits a URL.
	paperPageURL = "https://www.semanticscholar.org/paper/"
)

// Config contains configuration options for the Semantic Scholar client.
type Config struct {
	BaseURL    string
	APIKey     string
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

// Client implements keyword search and the citation-graph operations.
type Client struct {
	httpClient *papersources.HTTPClient
	config     Config
}

var _ papersources.PaperSource = (*Client)(nil)

// NewClient creates a new Semantic Scholar client for keyword search.
// If httpClient is nil, a retrying one is created from cfg.
func NewClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	if httpClient == nil {
		httpClient = papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Source:       string(domain.SourceTypeSemanticScholar),
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
			BurstSize:    1,
			APIKey:       cfg.APIKey,
			APIKeyHeader: apiKeyHeader,
			Metrics:      cfg.Metrics,
		})
	}

	return &Client{httpClient: httpClient, config: cfg}
}

// NewGraphClient creates a client for the citation-graph operations.
// It never retries, so a 429 reaches the caller as a RateLimitError; request
// spacing is left to the caller's limiter.
func NewGraphClient(cfg Config) *Client {
	cfg.applyDefaults()

	return NewClient(cfg, papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:       string(domain.SourceTypeSemanticScholar),
		Timeout:      cfg.Timeout,
		RateLimit:    1000,
		BurstSize:    1,
		NoRetry:      true,
		APIKey:       cfg.APIKey,
		APIKeyHeader: apiKeyHeader,
		Metrics:      cfg.Metrics,
	}))
}

// Search queries Semantic Scholar for papers matching params.Query.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	start := time.Now()

	limit := params.MaxResults
	if limit <= 0 {
		limit = c.config.MaxResults
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	query := url.Values{}
	query.Set("query", params.Query)
	query.Set("limit", strconv.Itoa(limit))
	query.Set("fields", paperFields)

	var sr SearchResponse
	if err := c.getJSON(ctx, "/paper/search", query, &sr); err != nil {
		return nil, err
	}

	return &papersources.SearchResult{
		Papers:         convertAll(sr.Data),
		TotalResults:   sr.Total,
		Source:         domain.SourceTypeSemanticScholar,
		SearchDuration: time.Since(start),
	}, nil
}

// ResolveByDOI returns the Semantic Scholar paper ID for doi.
// A missing paper yields a NotFoundError.
func (c *Client) ResolveByDOI(ctx context.Context, doi string) (string, error) {
	doi = domain.NormalizeDOI(doi)
	if doi == "" {
		return "", domain.NewNotFoundError(c.Name(), "empty doi")
	}

	query := url.Values{}
	query.Set("fields", "paperId")

	var pr PaperResult
	if err := c.getJSON(ctx, "/paper/DOI:"+url.PathEscape(doi), query, &pr); err != nil {
		return "", err
	}
	if pr.PaperID == "" {
		return "", domain.NewNotFoundError(c.Name(), doi)
	}
	return pr.PaperID, nil
}

// ResolveByTitle returns the ID of the best title-search match.
// No match yields a NotFoundError.
func (c *Client) ResolveByTitle(ctx context.Context, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", domain.NewNotFoundError(c.Name(), "empty title")
	}

	query := url.Values{}
	query.Set("query", title)
	query.Set("limit", "1")
	query.Set("fields", "paperId,title")

	var sr SearchResponse
	if err := c.getJSON(ctx, "/paper/search", query, &sr); err != nil {
		return "", err
	}
	if len(sr.Data) == 0 || sr.Data[0].PaperID == "" {
		return "", domain.NewNotFoundError(c.Name(), title)
	}
	return sr.Data[0].PaperID, nil
}

// Citations returns up to limit papers that cite paperID.
func (c *Client) Citations(ctx context.Context, paperID string, limit int) ([]*domain.Paper, error) {
	var resp citationsResponse
	if err := c.getJSON(ctx, "/paper/"+url.PathEscape(paperID)+"/citations", neighborQuery(limit), &resp); err != nil {
		return nil, err
	}
	results := make([]PaperResult, 0, len(resp.Data))
	for _, d := range resp.Data {
		results = append(results, d.CitingPaper)
	}
	return convertAll(results), nil
}

// References returns up to limit papers cited by paperID.
func (c *Client) References(ctx context.Context, paperID string, limit int) ([]*domain.Paper, error) {
	var resp referencesResponse
	if err := c.getJSON(ctx, "/paper/"+url.PathEscape(paperID)+"/references", neighborQuery(limit), &resp); err != nil {
		return nil, err
	}
	results := make([]PaperResult, 0, len(resp.Data))
	for _, d := range resp.Data {
		results = append(results, d.CitedPaper)
	}
	return convertAll(results), nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeSemanticScholar
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return string(domain.SourceTypeSemanticScholar)
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

func neighborQuery(limit int) url.Values {
	if limit <= 0 {
		limit = 10
	}
	query := url.Values{}
	query.Set("fields", paperFields)
	query.Set("limit", strconv.Itoa(limit))
	return query
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dst interface{}) error {
	u := strings.TrimRight(c.config.BaseURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	resp, err := c.httpClient.Get(ctx, u, "application/json")
	if err != nil {
		return fmt.Errorf("%s request: %w", c.Name(), err)
	}
	if err := papersources.CheckResponse(c.Name(), resp); err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(dst); err != nil {
		return fmt.Errorf("decoding %s response: %w", c.Name(), err)
	}
	return nil
}

func convertAll(results []PaperResult) []*domain.Paper {
	papers := make([]*domain.Paper, 0, len(results))
	for i := range results {
		if p, ok := convertPaper(&results[i]); ok {
			papers = append(papers, p)
		}
	}
	return papers
}

// convertPaper normalizes one API record. Records without a title are rejected.
func convertPaper(r *PaperResult) (*domain.Paper, bool) {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return nil, false
	}

	authors := make([]string, 0, len(r.Authors))
	for _, a := range r.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}

	published := domain.ParseDate(r.PublicationDate)
	if published == nil && r.Year > 0 {
		t := time.Date(r.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		published = &t
	}

	var doi string
	if r.ExternalIDs != nil {
		doi = domain.NormalizeDOI(r.ExternalIDs.DOI)
	}

	link := strings.TrimSpace(r.URL)
	if link == "" && r.PaperID != "" {
		link = paperPageURL + r.PaperID
	}

	var abstract string
	if r.Abstract != nil {
		abstract = *r.Abstract
	}

	return &domain.Paper{
		TitleOriginal: title,
		Authors:       authors,
		Abstract:      domain.StringPtr(abstract),
		PublishedDate: published,
		Journal:       domain.StringPtr(r.Venue),
		DOI:           domain.StringPtr(doi),
		URL:           link,
	}, true
}
