// Package rss fetches RSS and Atom feeds and normalizes their entries into papers.
package rss

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/helixir/paper-triage-service/internal/domain"
	"github.com/helixir/paper-triage-service/internal/observability"
	"github.com/helixir/paper-triage-service/internal/papersources"
)

const (
	// SourceName labels requests and errors for feed fetches.
	SourceName = "RSS"

	// DefaultTimeout bounds a single feed fetch.
	DefaultTimeout = 15 * time.Second

	maxFeedBytes = 10 << 20
)

var doiRegex = regexp.MustCompile(`(?i)doi\.org/(10\.\d{4,}[^\s]*)`)

// Config holds configuration for the feed fetcher.
type Config struct {
	Timeout   time.Duration
	UserAgent string
	Metrics   *observability.Metrics
}

// Fetcher downloads and parses feeds.
type Fetcher struct {
	httpClient *papersources.HTTPClient
}

// NewFetcher creates a Fetcher. Feed fetches are not retried.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return NewFetcherWithHTTPClient(papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:    SourceName,
		Timeout:   cfg.Timeout,
		RateLimit: 5,
		BurstSize: 1,
		NoRetry:   true,
		UserAgent: cfg.UserAgent,
		Metrics:   cfg.Metrics,
	}))
}

// NewFetcherWithHTTPClient creates a Fetcher over an existing client.
func NewFetcherWithHTTPClient(httpClient *papersources.HTTPClient) *Fetcher {
	return &Fetcher{httpClient: httpClient}
}

// Fetch downloads feedURL and returns its entries as papers.
// When since is non-nil, dated entries published at or before since are dropped;
// undated entries are always kept. Entries without a title or link are skipped.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string, since *time.Time) ([]*domain.Paper, error) {
	resp, err := f.httpClient.Get(ctx, feedURL, "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	if err := papersources.CheckResponse(SourceName, resp); err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	feed, err := gofeed.NewParser().Parse(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	return entriesSince(feed.Items, since), nil
}

func entriesSince(items []*gofeed.Item, since *time.Time) []*domain.Paper {
	papers := make([]*domain.Paper, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		title := collapse(item.Title)
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			continue
		}

		published := itemDate(item)
		if since != nil && published != nil && !published.After(*since) {
			continue
		}

		var date *time.Time
		if published != nil {
			d := domain.TruncateDate(*published)
			date = &d
		}

		papers = append(papers, &domain.Paper{
			TitleOriginal: title,
			Authors:       itemAuthors(item),
			Abstract:      domain.StringPtr(itemAbstract(item)),
			PublishedDate: date,
			DOI:           domain.StringPtr(extractDOI(link, item.GUID)),
			URL:           link,
		})
	}
	return papers
}

func itemDate(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}

// itemAuthors prefers the Dublin Core creator and falls back to the item authors.
func itemAuthors(item *gofeed.Item) []string {
	var raw []string
	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
		raw = item.DublinCoreExt.Creator
	} else {
		for _, person := range item.Authors {
			if person != nil {
				raw = append(raw, person.Name)
			}
		}
	}

	authors := make([]string, 0, len(raw))
	for _, field := range raw {
		for _, name := range strings.FieldsFunc(field, func(r rune) bool { return r == ',' || r == ';' }) {
			if name = strings.TrimSpace(name); name != "" {
				authors = append(authors, name)
			}
		}
	}
	return authors
}

func itemAbstract(item *gofeed.Item) string {
	raw := item.Content
	if strings.TrimSpace(raw) == "" {
		raw = item.Description
	}
	return stripHTML(raw)
}

// stripHTML returns the text content of an HTML fragment with whitespace collapsed.
func stripHTML(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return collapse(fragment)
	}
	return collapse(doc.Text())
}

func extractDOI(candidates ...string) string {
	for _, c := range candidates {
		if m := doiRegex.FindStringSubmatch(c); m != nil {
			return m[1]
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
