package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helixir/paper-triage-service/internal/domain"
)

// Compile-time interface verification.
var (
	_ SettingsRepository      = (*PgSettingsRepository)(nil)
	_ CollectionLogRepository = (*PgCollectionLogRepository)(nil)
	_ FeedbackRepository      = (*PgFeedbackRepository)(nil)
)

// settingKeys fixes the write order of review settings.
var settingKeys = []string{
	domain.SettingAutoApproveThreshold,
	domain.SettingAutoSkipThreshold,
	domain.SettingScoringEnabled,
	domain.SettingAutoCollectEnabled,
}

// PgSettingsRepository is a PostgreSQL implementation of SettingsRepository.
type PgSettingsRepository struct {
	db DBTX
}

// NewPgSettingsRepository creates a new PostgreSQL settings repository.
func NewPgSettingsRepository(db DBTX) *PgSettingsRepository {
	return &PgSettingsRepository{db: db}
}

// GetReviewSettings reads all setting rows and applies defaults.
func (r *PgSettingsRepository) GetReviewSettings(ctx context.Context) (domain.ReviewSettings, error) {
	rows, err := r.db.Query(ctx, `SELECT key, value FROM review_settings`)
	if err != nil {
		return domain.ReviewSettings{}, fmt.Errorf("failed to read review settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return domain.ReviewSettings{}, fmt.Errorf("failed to scan review setting: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return domain.ReviewSettings{}, fmt.Errorf("error iterating review settings: %w", err)
	}
	return domain.ReviewSettingsFromMap(values), nil
}

// UpdateReviewSettings upserts every setting row in a single batch.
func (r *PgSettingsRepository) UpdateReviewSettings(ctx context.Context, settings domain.ReviewSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO review_settings (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at`

	now := time.Now().UTC()
	values := settings.ToMap()
	batch := &pgx.Batch{}
	for _, key := range settingKeys {
		batch.Queue(query, key, values[key], now)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	for _, key := range settingKeys {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to write review setting %s: %w", key, err)
		}
	}
	return nil
}

// PgCollectionLogRepository is a PostgreSQL implementation of CollectionLogRepository.
type PgCollectionLogRepository struct {
	db DBTX
}

// NewPgCollectionLogRepository creates a new PostgreSQL collection log repository.
func NewPgCollectionLogRepository(db DBTX) *PgCollectionLogRepository {
	return &PgCollectionLogRepository{db: db}
}

// InsertCollectionLog appends one entry.
func (r *PgCollectionLogRepository) InsertCollectionLog(ctx context.Context, l *domain.CollectionLog) error {
	if l == nil {
		return domain.NewValidationError("log", "log is required")
	}
	origins := 0
	for _, id := range []*uuid.UUID{l.KeywordID, l.FeedID, l.SeedPaperID} {
		if id != nil {
			origins++
		}
	}
	if origins != 1 {
		return domain.NewValidationError("origin", "exactly one of keyword, feed and seed must be set")
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.ExecutedAt.IsZero() {
		l.ExecutedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO collection_logs (
			id, keyword_id, feed_id, seed_paper_id, status, papers_found, message, executed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query, l.ID, l.KeywordID, l.FeedID, l.SeedPaperID,
		string(l.Status), l.PapersFound, l.Message, l.ExecutedAt)
	if err != nil {
		return mapWriteError(err, "collection_log", l.ID.String(), "insert")
	}
	return nil
}

// ListCollectionLogs returns entries newest first with origin names.
func (r *PgCollectionLogRepository) ListCollectionLogs(ctx context.Context, filter LogFilter) ([]*CollectionLogEntry, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	query := `
		SELECT l.id, l.keyword_id, l.feed_id, l.seed_paper_id, l.status, l.papers_found,
			l.message, l.executed_at, COALESCE(k.keyword, f.name, p.title_original)
		FROM collection_logs l
		LEFT JOIN keywords k ON k.id = l.keyword_id
		LEFT JOIN rss_feeds f ON f.id = l.feed_id
		LEFT JOIN papers p ON p.id = l.seed_paper_id
		ORDER BY l.executed_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list collection logs: %w", err)
	}
	defer rows.Close()

	entries := make([]*CollectionLogEntry, 0)
	for rows.Next() {
		var e CollectionLogEntry
		var status string
		if err := rows.Scan(&e.ID, &e.KeywordID, &e.FeedID, &e.SeedPaperID, &status,
			&e.PapersFound, &e.Message, &e.ExecutedAt, &e.OriginName); err != nil {
			return nil, fmt.Errorf("failed to scan collection log: %w", err)
		}
		e.Status = domain.LogStatus(status)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collection logs: %w", err)
	}
	return entries, nil
}

// PgFeedbackRepository is a PostgreSQL implementation of FeedbackRepository.
type PgFeedbackRepository struct {
	db DBTX
}

// NewPgFeedbackRepository creates a new PostgreSQL feedback repository.
func NewPgFeedbackRepository(db DBTX) *PgFeedbackRepository {
	return &PgFeedbackRepository{db: db}
}

// InsertFeedback appends one feedback entry.
func (r *PgFeedbackRepository) InsertFeedback(ctx context.Context, f *domain.ScoringFeedback) error {
	if f == nil {
		return domain.NewValidationError("feedback", "feedback is required")
	}
	if !f.UserAction.IsValid() {
		return domain.NewValidationError("user_action", "unknown action")
	}
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO scoring_feedback (id, paper_id, ai_score, user_action, is_correct, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query, f.ID, f.PaperID, f.AIScore, string(f.UserAction), f.IsCorrect, f.CreatedAt)
	if err != nil {
		return mapWriteError(err, "paper", f.PaperID.String(), "record feedback for")
	}
	return nil
}

// ListFeedback returns all feedback entries, oldest first.
func (r *PgFeedbackRepository) ListFeedback(ctx context.Context) ([]*domain.ScoringFeedback, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, paper_id, ai_score, user_action, is_correct, created_at
		FROM scoring_feedback
		ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list scoring feedback: %w", err)
	}
	defer rows.Close()

	feedback := make([]*domain.ScoringFeedback, 0)
	for rows.Next() {
		var f domain.ScoringFeedback
		var action string
		if err := rows.Scan(&f.ID, &f.PaperID, &f.AIScore, &action, &f.IsCorrect, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan scoring feedback: %w", err)
		}
		f.UserAction = domain.ReviewAction(action)
		feedback = append(feedback, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scoring feedback: %w", err)
	}
	return feedback, nil
}
