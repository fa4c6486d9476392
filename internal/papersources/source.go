// Package papersources provides the clients that normalize external paper
// search APIs into domain.Paper records.
//
// Each keyword-search provider (arXiv, Semantic Scholar, OpenAlex) implements
// PaperSource. A provider returns an empty slice when nothing matches and an
// error only on transport or protocol failure.
//
// Example usage:
//
//	source := arxiv.New(cfg)
//	result, err := source.Search(ctx, papersources.SearchParams{
//		Query:      "transformer",
//		MaxResults: 5,
//	})
package papersources

import (
	"context"
	"time"

	"github.com/helixir/paper-triage-service/internal/domain"
)

// SearchParams defines the parameters for a keyword search.
type SearchParams struct {
	// Query is the free-text search query (required).
	Query string

	// MaxResults limits the number of papers returned.
	// A value of 0 uses the source's default limit.
	MaxResults int
}

// SearchResult contains the results from a paper source search operation.
type SearchResult struct {
	// Papers contains the normalized papers. Source-specific fields such as
	// review status are left for the caller to fill.
	Papers []*domain.Paper

	// TotalResults is the provider's estimate of total matches, when reported.
	TotalResults int

	// Source identifies which paper source provided these results.
	Source domain.SourceType

	// SearchDuration is the time taken to execute the search.
	SearchDuration time.Duration
}

// PaperSource defines the interface that all keyword-search clients implement.
type PaperSource interface {
	// Search queries the source for papers matching params.
	// Implementations respect context cancellation, apply their own rate
	// limiting, and wrap errors with the source name.
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)

	// SourceType returns the provider label stored in keywords.sources.
	SourceType() domain.SourceType

	// Name returns a human-readable name for logs.
	Name() string

	// IsEnabled reports whether the source may be searched.
	IsEnabled() bool
}
