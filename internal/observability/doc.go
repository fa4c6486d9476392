// Package observability provides logging and metrics support for the paper
// triage service.
//
// # Logging
//
// Create a logger from configuration and enrich it per collection unit:
//
//	logger := observability.NewLogger(observability.LoggingConfig{Level: "info", Format: "json"})
//	logger = observability.WithKeywordContext(logger, kw.ID.String(), kw.Keyword)
//	logger.Info().Int("papers_found", n).Msg("keyword collected")
//
// # Metrics
//
//	metrics := observability.NewMetrics("paper_triage")
//	metrics.RecordCollection("feed", "success", 12, elapsed.Seconds())
//
// A nil *Metrics records nothing.
//
// # Standard Fields
//
//   - keyword_id, keyword: keyword collection unit
//   - feed_id, feed_url: feed collection unit
//   - seed_paper_id, doi: citation seed
//   - source: keyword-search provider label (arXiv, Semantic Scholar, OpenAlex)
//   - paper_id: stored paper identifier
//   - correlation_id: request correlation identifier
package observability
