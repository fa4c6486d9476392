package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helixir/paper-triage-service/internal/domain"
)

// Compile-time interface verification.
var (
	_ KeywordRepository = (*PgKeywordRepository)(nil)
	_ FeedRepository    = (*PgFeedRepository)(nil)
)

const keywordColumns = `id, keyword, category, sources, journals, is_active, created_at`

// PgKeywordRepository is a PostgreSQL implementation of KeywordRepository.
type PgKeywordRepository struct {
	db DBTX
}

// NewPgKeywordRepository creates a new PostgreSQL keyword repository.
func NewPgKeywordRepository(db DBTX) *PgKeywordRepository {
	return &PgKeywordRepository{db: db}
}

// Create stores a new keyword.
func (r *PgKeywordRepository) Create(ctx context.Context, kw *domain.Keyword) error {
	if kw == nil {
		return domain.NewValidationError("keyword", "keyword is required")
	}
	kw.Keyword = strings.TrimSpace(kw.Keyword)
	if kw.Keyword == "" {
		return domain.NewValidationError("keyword", "keyword cannot be empty or whitespace-only")
	}
	if kw.ID == uuid.Nil {
		kw.ID = uuid.New()
	}
	if kw.CreatedAt.IsZero() {
		kw.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO keywords (` + keywordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query, kw.ID, kw.Keyword, kw.Category,
		nonNilStrings(kw.Sources), nonNilStrings(kw.Journals), kw.IsActive, kw.CreatedAt)
	if err != nil {
		return mapWriteError(err, "keyword", kw.Keyword, "create")
	}
	return nil
}

// GetByID retrieves a keyword by its UUID.
func (r *PgKeywordRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Keyword, error) {
	query := `SELECT ` + keywordColumns + ` FROM keywords WHERE id = $1`

	kw, err := scanKeyword(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapReadError(err, "keyword", id.String(), "get")
	}
	return kw, nil
}

// List returns all keywords, newest first.
func (r *PgKeywordRepository) List(ctx context.Context) ([]*domain.Keyword, error) {
	return r.query(ctx, `SELECT `+keywordColumns+` FROM keywords ORDER BY created_at DESC`)
}

// ListActiveKeywords returns active keywords in creation order.
func (r *PgKeywordRepository) ListActiveKeywords(ctx context.Context) ([]*domain.Keyword, error) {
	return r.query(ctx, `SELECT `+keywordColumns+` FROM keywords WHERE is_active ORDER BY created_at`)
}

// Update applies the non-nil fields of update.
func (r *PgKeywordRepository) Update(ctx context.Context, id uuid.UUID, update KeywordUpdate) (*domain.Keyword, error) {
	stmt := psql.Update("keywords")
	changed := false
	if update.Keyword != nil {
		text := strings.TrimSpace(*update.Keyword)
		if text == "" {
			return nil, domain.NewValidationError("keyword", "keyword cannot be empty or whitespace-only")
		}
		stmt = stmt.Set("keyword", text)
		changed = true
	}
	if update.Category != nil {
		stmt = stmt.Set("category", domain.StringPtr(*update.Category))
		changed = true
	}
	if update.Sources != nil {
		stmt = stmt.Set("sources", update.Sources)
		changed = true
	}
	if update.Journals != nil {
		stmt = stmt.Set("journals", update.Journals)
		changed = true
	}
	if update.IsActive != nil {
		stmt = stmt.Set("is_active", *update.IsActive)
		changed = true
	}
	if !changed {
		return r.GetByID(ctx, id)
	}

	query, args, err := stmt.Where(sq.Eq{"id": id}).Suffix("RETURNING " + keywordColumns).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build keyword update: %w", err)
	}
	kw, err := scanKeyword(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if update.Keyword != nil {
			if mapped := mapWriteError(err, "keyword", *update.Keyword, "update"); domain.IsAlreadyExists(mapped) {
				return nil, mapped
			}
		}
		return nil, mapReadError(err, "keyword", id.String(), "update")
	}
	return kw, nil
}

// Delete removes a keyword.
func (r *PgKeywordRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM keywords WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete keyword: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("keyword", id.String())
	}
	return nil
}

func (r *PgKeywordRepository) query(ctx context.Context, query string, args ...interface{}) ([]*domain.Keyword, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list keywords: %w", err)
	}
	defer rows.Close()

	keywords := make([]*domain.Keyword, 0)
	for rows.Next() {
		kw, err := scanKeyword(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan keyword: %w", err)
		}
		keywords = append(keywords, kw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating keywords: %w", err)
	}
	return keywords, nil
}

// scanKeyword scans a keyword from a row or the current rows position.
func scanKeyword(row pgx.Row) (*domain.Keyword, error) {
	var kw domain.Keyword
	if err := row.Scan(&kw.ID, &kw.Keyword, &kw.Category, &kw.Sources, &kw.Journals, &kw.IsActive, &kw.CreatedAt); err != nil {
		return nil, err
	}
	return &kw, nil
}

const feedColumns = `id, name, feed_url, is_active, last_fetched_at, created_at`

// PgFeedRepository is a PostgreSQL implementation of FeedRepository.
type PgFeedRepository struct {
	db DBTX
}

// NewPgFeedRepository creates a new PostgreSQL feed repository.
func NewPgFeedRepository(db DBTX) *PgFeedRepository {
	return &PgFeedRepository{db: db}
}

// Create stores a new feed.
func (r *PgFeedRepository) Create(ctx context.Context, feed *domain.Feed) error {
	if feed == nil {
		return domain.NewValidationError("feed", "feed is required")
	}
	feed.Name = strings.TrimSpace(feed.Name)
	feed.FeedURL = strings.TrimSpace(feed.FeedURL)
	if feed.Name == "" {
		return domain.NewValidationError("name", "name is required")
	}
	if feed.FeedURL == "" {
		return domain.NewValidationError("feed_url", "feed URL is required")
	}
	if feed.ID == uuid.Nil {
		feed.ID = uuid.New()
	}
	if feed.CreatedAt.IsZero() {
		feed.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO rss_feeds (` + feedColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query, feed.ID, feed.Name, feed.FeedURL, feed.IsActive, feed.LastFetchedAt, feed.CreatedAt)
	if err != nil {
		return mapWriteError(err, "feed", feed.FeedURL, "create")
	}
	return nil
}

// GetByID retrieves a feed by its UUID.
func (r *PgFeedRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Feed, error) {
	feed, err := scanFeed(r.db.QueryRow(ctx, `SELECT `+feedColumns+` FROM rss_feeds WHERE id = $1`, id))
	if err != nil {
		return nil, mapReadError(err, "feed", id.String(), "get")
	}
	return feed, nil
}

// List returns all feeds, newest first.
func (r *PgFeedRepository) List(ctx context.Context) ([]*domain.Feed, error) {
	return r.query(ctx, `SELECT `+feedColumns+` FROM rss_feeds ORDER BY created_at DESC`)
}

// ListActiveFeeds returns active feeds in creation order.
func (r *PgFeedRepository) ListActiveFeeds(ctx context.Context) ([]*domain.Feed, error) {
	return r.query(ctx, `SELECT `+feedColumns+` FROM rss_feeds WHERE is_active ORDER BY created_at`)
}

// Update applies the non-nil fields of update.
func (r *PgFeedRepository) Update(ctx context.Context, id uuid.UUID, update FeedUpdate) (*domain.Feed, error) {
	stmt := psql.Update("rss_feeds")
	changed := false
	if update.Name != nil {
		stmt = stmt.Set("name", strings.TrimSpace(*update.Name))
		changed = true
	}
	if update.FeedURL != nil {
		stmt = stmt.Set("feed_url", strings.TrimSpace(*update.FeedURL))
		changed = true
	}
	if update.IsActive != nil {
		stmt = stmt.Set("is_active", *update.IsActive)
		changed = true
	}
	if !changed {
		return r.GetByID(ctx, id)
	}

	query, args, err := stmt.Where(sq.Eq{"id": id}).Suffix("RETURNING " + feedColumns).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build feed update: %w", err)
	}
	feed, err := scanFeed(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if update.FeedURL != nil {
			if mapped := mapWriteError(err, "feed", *update.FeedURL, "update"); domain.IsAlreadyExists(mapped) {
				return nil, mapped
			}
		}
		return nil, mapReadError(err, "feed", id.String(), "update")
	}
	return feed, nil
}

// Delete removes a feed.
func (r *PgFeedRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM rss_feeds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete feed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("feed", id.String())
	}
	return nil
}

// MarkFeedFetched records the last successful fetch time.
func (r *PgFeedRepository) MarkFeedFetched(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE rss_feeds SET last_fetched_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark feed fetched: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("feed", id.String())
	}
	return nil
}

func (r *PgFeedRepository) query(ctx context.Context, query string, args ...interface{}) ([]*domain.Feed, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	defer rows.Close()

	feeds := make([]*domain.Feed, 0)
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed: %w", err)
		}
		feeds = append(feeds, feed)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feeds: %w", err)
	}
	return feeds, nil
}

func scanFeed(row pgx.Row) (*domain.Feed, error) {
	var f domain.Feed
	if err := row.Scan(&f.ID, &f.Name, &f.FeedURL, &f.IsActive, &f.LastFetchedAt, &f.CreatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
