package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the paper triage service.
// Metrics are organized by subsystem: collection, searches, papers, review,
// citation exploration, interest learning, events, and LLM operations. All
// collectors are registered via promauto with the default Prometheus registry.
//
// A nil *Metrics is valid and records nothing, which keeps tests and tools
// free of registry setup.
type Metrics struct {
	// CollectionRuns counts finished collection units, labeled by origin (keyword, feed, seed, combined) and status.
	CollectionRuns *prometheus.CounterVec

	// CollectionDuration observes collection unit duration in seconds, labeled by origin.
	CollectionDuration *prometheus.HistogramVec

	// SearchesCompleted counts successful provider searches, labeled by source.
	SearchesCompleted *prometheus.CounterVec

	// SearchesFailed counts failed provider searches, labeled by source.
	SearchesFailed *prometheus.CounterVec

	// SearchDuration observes provider search duration in seconds, labeled by source.
	SearchDuration *prometheus.HistogramVec

	// PapersFound counts candidate papers returned before deduplication, labeled by origin.
	PapersFound *prometheus.CounterVec

	// PapersSaved counts papers persisted, labeled by source tag.
	PapersSaved *prometheus.CounterVec

	// PapersDuplicate counts candidates dropped as duplicates.
	PapersDuplicate prometheus.Counter

	// ReviewAssignments counts resolved review statuses, labeled by status.
	ReviewAssignments *prometheus.CounterVec

	// RelevanceScores observes assigned relevance scores.
	RelevanceScores prometheus.Histogram

	// ScoringFallbacks counts scores replaced by the neutral default, labeled by reason (request, parse).
	ScoringFallbacks *prometheus.CounterVec

	// ReviewDecisions counts human review decisions, labeled by action.
	ReviewDecisions *prometheus.CounterVec

	// SeedsExplored counts citation seeds processed, labeled by outcome (explored, not_found, rate_limited, error).
	SeedsExplored *prometheus.CounterVec

	// InterestUpdates counts learned-interest changes, labeled by kind (created, reinforced, weakened).
	InterestUpdates *prometheus.CounterVec

	// EventsPublished counts review-decision events published, labeled by result.
	EventsPublished *prometheus.CounterVec

	// EventsConsumed counts review-decision events handled, labeled by result.
	EventsConsumed *prometheus.CounterVec

	// SourceRequestsTotal counts HTTP requests to paper source APIs, labeled by source.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRateLimited counts rate-limited responses from paper source APIs, labeled by source.
	SourceRateLimited *prometheus.CounterVec

	// LLMRequestsTotal counts LLM API requests, labeled by operation and model.
	LLMRequestsTotal *prometheus.CounterVec

	// LLMRequestsFailed counts failed LLM API requests, labeled by operation, model, and error type.
	LLMRequestsFailed *prometheus.CounterVec

	// LLMRequestDuration observes LLM request duration in seconds, labeled by operation and model.
	LLMRequestDuration *prometheus.HistogramVec

	// LLMTokensUsed counts LLM tokens consumed, labeled by operation, model, and direction (input/output).
	LLMTokensUsed *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Collection
		CollectionRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collection_runs_total",
			Help:      "Total number of collection units executed",
		}, []string{"origin", "status"}),
		CollectionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collection_duration_seconds",
			Help:      "Duration of collection units in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"origin"}),

		// Searches
		SearchesCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_completed_total",
			Help:      "Total number of provider searches completed successfully",
		}, []string{"source"}),
		SearchesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_failed_total",
			Help:      "Total number of provider searches that failed",
		}, []string{"source"}),
		SearchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of provider searches in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),

		// Papers
		PapersFound: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_found_total",
			Help:      "Total number of candidate papers returned by collection",
		}, []string{"origin"}),
		PapersSaved: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_saved_total",
			Help:      "Total number of papers persisted",
		}, []string{"source"}),
		PapersDuplicate: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_duplicate_total",
			Help:      "Total number of candidates dropped as duplicates",
		}),

		// Review
		ReviewAssignments: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "review_assignments_total",
			Help:      "Total number of review statuses assigned at collection time",
		}, []string{"status"}),
		RelevanceScores: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "relevance_score",
			Help:      "Distribution of assigned relevance scores",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
		ScoringFallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scoring_fallbacks_total",
			Help:      "Total number of relevance scores replaced by the neutral default",
		}, []string{"reason"}),
		ReviewDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "review_decisions_total",
			Help:      "Total number of human review decisions",
		}, []string{"action"}),

		// Citation
		SeedsExplored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "citation_seeds_total",
			Help:      "Total number of citation seeds processed",
		}, []string{"outcome"}),

		// Learning
		InterestUpdates: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interest_updates_total",
			Help:      "Total number of learned interest changes",
		}, []string{"kind"}),

		// Events
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of review decision events published",
		}, []string{"result"}),
		EventsConsumed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_consumed_total",
			Help:      "Total number of review decision events consumed",
		}, []string{"result"}),

		// Source requests
		SourceRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of requests to paper source APIs",
		}, []string{"source"}),
		SourceRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rate_limited_total",
			Help:      "Total number of rate limit responses from paper sources",
		}, []string{"source"}),

		// LLM
		LLMRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM API requests",
		}, []string{"operation", "model"}),
		LLMRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_failed_total",
			Help:      "Total number of failed LLM API requests",
		}, []string{"operation", "model", "error_type"}),
		LLMRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Duration of LLM API requests in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"operation", "model"}),
		LLMTokensUsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of LLM tokens used",
		}, []string{"operation", "model", "direction"}),
	}
}

// RecordCollection records a finished collection unit.
func (m *Metrics) RecordCollection(origin, status string, found int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.CollectionRuns.WithLabelValues(origin, status).Inc()
	m.CollectionDuration.WithLabelValues(origin).Observe(durationSeconds)
	m.PapersFound.WithLabelValues(origin).Add(float64(found))
}

// RecordSearchCompleted records a successful provider search.
func (m *Metrics) RecordSearchCompleted(source string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SearchesCompleted.WithLabelValues(source).Inc()
	m.SearchDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordSearchFailed records a failed provider search.
func (m *Metrics) RecordSearchFailed(source string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SearchesFailed.WithLabelValues(source).Inc()
	m.SearchDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordPaperSaved records a persisted paper and its assigned status.
func (m *Metrics) RecordPaperSaved(source, status string, score *int) {
	if m == nil {
		return
	}
	m.PapersSaved.WithLabelValues(source).Inc()
	m.ReviewAssignments.WithLabelValues(status).Inc()
	if score != nil {
		m.RelevanceScores.Observe(float64(*score))
	}
}

// RecordPaperDuplicates records multiple duplicate detections at once.
func (m *Metrics) RecordPaperDuplicates(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.PapersDuplicate.Add(float64(count))
}

// RecordScoringFallback records a neutral-default score.
func (m *Metrics) RecordScoringFallback(reason string) {
	if m == nil {
		return
	}
	m.ScoringFallbacks.WithLabelValues(reason).Inc()
}

// RecordReviewDecision records a human approve or skip.
func (m *Metrics) RecordReviewDecision(action string) {
	if m == nil {
		return
	}
	m.ReviewDecisions.WithLabelValues(action).Inc()
}

// RecordSeed records the outcome of exploring one citation seed.
func (m *Metrics) RecordSeed(outcome string) {
	if m == nil {
		return
	}
	m.SeedsExplored.WithLabelValues(outcome).Inc()
}

// RecordInterestUpdate records a learned interest change.
func (m *Metrics) RecordInterestUpdate(kind string) {
	if m == nil {
		return
	}
	m.InterestUpdates.WithLabelValues(kind).Inc()
}

// RecordEventPublished records a review-decision publish attempt.
func (m *Metrics) RecordEventPublished(result string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(result).Inc()
}

// RecordEventConsumed records a handled review-decision event.
func (m *Metrics) RecordEventConsumed(result string) {
	if m == nil {
		return
	}
	m.EventsConsumed.WithLabelValues(result).Inc()
}

// RecordSourceRequest records an HTTP request to a paper source API.
func (m *Metrics) RecordSourceRequest(source string) {
	if m == nil {
		return
	}
	m.SourceRequestsTotal.WithLabelValues(source).Inc()
}

// RecordSourceRateLimited records a rate limit response from a paper source.
func (m *Metrics) RecordSourceRateLimited(source string) {
	if m == nil {
		return
	}
	m.SourceRateLimited.WithLabelValues(source).Inc()
}

// RecordLLMRequest records a successful LLM API request.
func (m *Metrics) RecordLLMRequest(operation, model string, durationSeconds float64, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(operation, model).Inc()
	m.LLMRequestDuration.WithLabelValues(operation, model).Observe(durationSeconds)
	m.LLMTokensUsed.WithLabelValues(operation, model, "input").Add(float64(inputTokens))
	m.LLMTokensUsed.WithLabelValues(operation, model, "output").Add(float64(outputTokens))
}

// RecordLLMRequestFailed records a failed LLM API request.
func (m *Metrics) RecordLLMRequestFailed(operation, model, errorType string) {
	if m == nil {
		return
	}
	m.LLMRequestsFailed.WithLabelValues(operation, model, errorType).Inc()
}
