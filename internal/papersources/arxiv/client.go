// Package arxiv implements keyword search against the arXiv Atom API.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/paper-triage-service/internal/domain"
	"github.com/helixir/paper-triage-service/internal/observability"
	"github.com/helixir/paper-triage-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default arXiv API base URL.
	DefaultBaseURL = "https://export.arxiv.org/api"

	// DefaultRateLimit follows arXiv's guidance of one request every three seconds.
	DefaultRateLimit = 0.33

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per request.
	DefaultMaxResults = 10
)

// doiLinkRegex pulls a DOI from a dx.doi.org link href.
var doiLinkRegex = regexp.MustCompile(`(?i)^https?://(?:dx\.)?doi\.org/(.+)$`)

// Config holds configuration for the arXiv client.
type Config struct {
	BaseURL    string
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

// Client implements the papersources.PaperSource interface for arXiv.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ papersources.PaperSource = (*Client)(nil)

// New creates a new arXiv client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	return &Client{
		config: cfg,
		httpClient: papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Source:    string(domain.SourceTypeArxiv),
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			BurstSize: 1,
			Metrics:   cfg.Metrics,
		}),
	}
}

// NewWithHTTPClient creates a new arXiv client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{config: cfg, httpClient: httpClient}
}

// Search queries arXiv for the newest papers matching params.Query.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	startTime := time.Now()

	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	resp, err := c.httpClient.Get(ctx, searchURL, "application/atom+xml")
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	if err := papersources.CheckResponse(c.Name(), resp); err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	papers, total, err := parseFeed(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, err
	}

	return &papersources.SearchResult{
		Papers:         papers,
		TotalResults:   total,
		Source:         domain.SourceTypeArxiv,
		SearchDuration: time.Since(startTime),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeArxiv
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return string(domain.SourceTypeArxiv)
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

func (c *Client) buildSearchURL(params papersources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/query"

	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = c.config.MaxResults
	}

	query := url.Values{}
	query.Set("search_query", "all:"+params.Query)
	query.Set("start", "0")
	query.Set("max_results", strconv.Itoa(maxResults))
	query.Set("sortBy", "submittedDate")
	query.Set("sortOrder", "descending")
	baseURL.RawQuery = query.Encode()

	return baseURL.String(), nil
}

// parseFeed decodes an Atom response into papers. Entries without a title are dropped.
func parseFeed(r io.Reader) ([]*domain.Paper, int, error) {
	var feed Feed
	if err := xml.NewDecoder(r).Decode(&feed); err != nil {
		return nil, 0, fmt.Errorf("decoding response: %w", err)
	}

	papers := make([]*domain.Paper, 0, len(feed.Entries))
	for i := range feed.Entries {
		if p, ok := entryToPaper(&feed.Entries[i]); ok {
			papers = append(papers, p)
		}
	}
	return papers, feed.TotalResults, nil
}

func entryToPaper(entry *Entry) (*domain.Paper, bool) {
	title := normalizeWhitespace(entry.Title)
	if title == "" {
		return nil, false
	}

	authors := make([]string, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}

	return &domain.Paper{
		TitleOriginal: title,
		Authors:       authors,
		Abstract:      domain.StringPtr(normalizeWhitespace(entry.Summary)),
		PublishedDate: domain.ParseDate(entry.Published),
		Journal:       domain.StringPtr(normalizeWhitespace(entry.JournalRef)),
		DOI:           domain.StringPtr(extractDOI(entry)),
		URL:           abstractURL(entry),
	}, true
}

// extractDOI prefers <arxiv:doi> and falls back to a doi.org link.
func extractDOI(entry *Entry) string {
	if doi := domain.NormalizeDOI(entry.DOI); doi != "" {
		return doi
	}
	for _, link := range entry.Links {
		if m := doiLinkRegex.FindStringSubmatch(strings.TrimSpace(link.Href)); m != nil {
			if decoded, err := url.PathUnescape(m[1]); err == nil {
				return decoded
			}
			return m[1]
		}
	}
	return ""
}

// abstractURL returns the alternate (abstract page) link, falling back to the entry id.
func abstractURL(entry *Entry) string {
	for _, link := range entry.Links {
		if link.Rel == "alternate" && link.Href != "" {
			return link.Href
		}
	}
	return strings.TrimSpace(entry.ID)
}

// normalizeWhitespace trims and collapses runs of whitespace.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
