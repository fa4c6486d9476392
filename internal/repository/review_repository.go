package repository

import (
	"context"

	"github.com/helixir/paper-triage-service/internal/domain"
)

// SettingsRepository reads and writes the key/value review settings.
type SettingsRepository interface {
	// GetReviewSettings returns the stored settings. Missing or unparsable
	// rows fall back to their defaults; an empty table yields the defaults.
	GetReviewSettings(ctx context.Context) (domain.ReviewSettings, error)

	// UpdateReviewSettings upserts every setting row in one batch.
	// Returns a domain.ValidationError if a threshold is out of range.
	UpdateReviewSettings(ctx context.Context, settings domain.ReviewSettings) error
}

// CollectionLogRepository appends and lists collection audit entries.
type CollectionLogRepository interface {
	// InsertCollectionLog appends one entry. Exactly one origin ID must be set.
	InsertCollectionLog(ctx context.Context, l *domain.CollectionLog) error

	// ListCollectionLogs returns entries newest first, each with the display
	// name of its keyword, feed or seed paper.
	ListCollectionLogs(ctx context.Context, filter LogFilter) ([]*CollectionLogEntry, error)
}

// LogFilter paginates collection logs.
type LogFilter struct {
	// Limit specifies maximum number of results (default: 100, max: 1000).
	Limit int

	// Offset specifies the starting position for pagination.
	Offset int
}

// Validate checks if the filter has valid values and sets defaults.
func (f *LogFilter) Validate() error {
	applyPaginationDefaults(&f.Limit, &f.Offset)
	return nil
}

// CollectionLogEntry is a collection log joined with its origin's name.
type CollectionLogEntry struct {
	domain.CollectionLog

	// OriginName is the keyword text, feed name or seed paper title.
	// Nil when the origin row has been deleted.
	OriginName *string
}

// FeedbackRepository appends and reads scoring feedback.
type FeedbackRepository interface {
	// InsertFeedback appends one feedback entry.
	InsertFeedback(ctx context.Context, f *domain.ScoringFeedback) error

	// ListFeedback returns all feedback entries, oldest first.
	ListFeedback(ctx context.Context) ([]*domain.ScoringFeedback, error)
}
