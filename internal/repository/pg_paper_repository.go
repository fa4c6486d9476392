package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helixir/paper-triage-service/internal/domain"
)

// Compile-time interface verification.
var _ PaperRepository = (*PgPaperRepository)(nil)

// Default review queue size.
const defaultReviewQueueLimit = 20

// paperColumns is the select list matched by paperScanDest.destinations.
const paperColumns = `id, title_original, title_translated, authors, abstract, published_date,
	journal, doi, url, summary, explanation, source, review_status, relevance_score,
	citation_explored_at, is_favorite, memo, collected_at, created_at, updated_at`

// PgPaperRepository is a PostgreSQL implementation of PaperRepository.
type PgPaperRepository struct {
	db  DBTX
	now func() time.Time
}

// NewPgPaperRepository creates a new PostgreSQL paper repository.
func NewPgPaperRepository(db DBTX) *PgPaperRepository {
	return &PgPaperRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// insertArgs prepares p for insertion and returns the positional arguments
// matching the papers column order.
func (r *PgPaperRepository) insertArgs(p *domain.Paper) ([]interface{}, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := r.now()
	if p.CollectedAt.IsZero() {
		p.CollectedAt = now
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	authors := p.Authors
	if authors == nil {
		authors = []string{}
	}
	authorsJSON, err := json.Marshal(authors)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal authors: %w", err)
	}

	var published *time.Time
	if p.PublishedDate != nil {
		d := domain.TruncateDate(*p.PublishedDate)
		published = &d
	}

	return []interface{}{
		p.ID, p.TitleOriginal, p.TitleTranslated, authorsJSON, p.Abstract, published,
		p.Journal, p.DOI, p.URL, p.Summary, p.Explanation, string(p.Source), string(p.ReviewStatus),
		p.RelevanceScore, p.CitationExploredAt, p.IsFavorite, p.Memo, p.CollectedAt, p.CreatedAt, p.UpdatedAt,
	}, nil
}

const insertPaperSQL = `
	INSERT INTO papers (` + paperColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

func validatePaper(p *domain.Paper) error {
	if p == nil {
		return domain.NewValidationError("paper", "paper is required")
	}
	if strings.TrimSpace(p.TitleOriginal) == "" {
		return domain.NewValidationError("title_original", "title is required")
	}
	if !p.Source.IsValid() {
		return domain.NewValidationError("source", "unknown source")
	}
	if !p.ReviewStatus.IsValid() {
		return domain.NewValidationError("review_status", "unknown review status")
	}
	return nil
}

// InsertPaper stores a collected paper, skipping DOI and title conflicts.
func (r *PgPaperRepository) InsertPaper(ctx context.Context, p *domain.Paper) (bool, error) {
	if err := validatePaper(p); err != nil {
		return false, err
	}
	args, err := r.insertArgs(p)
	if err != nil {
		return false, err
	}

	tag, err := r.db.Exec(ctx, insertPaperSQL+` ON CONFLICT DO NOTHING`, args...)
	if err != nil {
		return false, fmt.Errorf("failed to insert paper: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Create stores a manually registered paper.
func (r *PgPaperRepository) Create(ctx context.Context, p *domain.Paper) (*domain.Paper, error) {
	if err := validatePaper(p); err != nil {
		return nil, err
	}
	args, err := r.insertArgs(p)
	if err != nil {
		return nil, err
	}

	if _, err := r.db.Exec(ctx, insertPaperSQL, args...); err != nil {
		return nil, mapWriteError(err, "paper", p.TitleOriginal, "create")
	}
	return p, nil
}

// ExistingKeys returns the stored lowercase DOIs and titles among the inputs.
func (r *PgPaperRepository) ExistingKeys(ctx context.Context, dois, titles []string) (*domain.PaperKeys, error) {
	keys := &domain.PaperKeys{}
	if len(dois) == 0 && len(titles) == 0 {
		return keys, nil
	}
	if dois == nil {
		dois = []string{}
	}
	if titles == nil {
		titles = []string{}
	}

	query := `
		SELECT 'doi', lower(doi) FROM papers WHERE lower(doi) = ANY($1)
		UNION ALL
		SELECT 'title', lower(title_original) FROM papers WHERE lower(title_original) = ANY($2)`

	rows, err := r.db.Query(ctx, query, dois, titles)
	if err != nil {
		return nil, fmt.Errorf("failed to look up existing papers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind, value string
		if err := rows.Scan(&kind, &value); err != nil {
			return nil, fmt.Errorf("failed to scan existing key: %w", err)
		}
		if kind == "doi" {
			keys.DOIs = append(keys.DOIs, value)
		} else {
			keys.Titles = append(keys.Titles, value)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating existing keys: %w", err)
	}
	return keys, nil
}

// GetByID retrieves a paper by its UUID.
func (r *PgPaperRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error) {
	query := `SELECT ` + paperColumns + ` FROM papers WHERE id = $1`

	p, err := scanPaper(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapReadError(err, "paper", id.String(), "get")
	}
	return p, nil
}

// paperConditions builds the WHERE clause shared by List and its count.
func paperConditions(filter PaperFilter) sq.And {
	conds := sq.And{}
	if filter.Source != nil {
		conds = append(conds, sq.Eq{"source": string(*filter.Source)})
	}
	if len(filter.ReviewStatuses) > 0 {
		statuses := make([]string, len(filter.ReviewStatuses))
		for i, s := range filter.ReviewStatuses {
			statuses[i] = string(s)
		}
		conds = append(conds, sq.Eq{"review_status": statuses})
	}
	if filter.Favorite != nil {
		conds = append(conds, sq.Eq{"is_favorite": *filter.Favorite})
	}
	if filter.KeywordID != nil {
		conds = append(conds, sq.Expr(
			"EXISTS (SELECT 1 FROM paper_keywords pk WHERE pk.paper_id = papers.id AND pk.keyword_id = ?)",
			*filter.KeywordID))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + q + "%"
		conds = append(conds, sq.Or{
			sq.ILike{"title_original": pattern},
			sq.ILike{"title_translated": pattern},
			sq.ILike{"summary": pattern},
			sq.ILike{"memo": pattern},
		})
	}
	if filter.CollectedFrom != nil {
		conds = append(conds, sq.GtOrEq{"collected_at": *filter.CollectedFrom})
	}
	if filter.CollectedTo != nil {
		conds = append(conds, sq.LtOrEq{"collected_at": *filter.CollectedTo})
	}
	return conds
}

// List retrieves papers matching the filter with the total match count.
func (r *PgPaperRepository) List(ctx context.Context, filter PaperFilter) ([]*domain.Paper, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}
	conds := paperConditions(filter)

	countSQL, countArgs, err := psql.Select("COUNT(*)").From("papers").Where(conds).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build paper count query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count papers: %w", err)
	}

	direction := "DESC"
	if filter.Ascending {
		direction = "ASC"
	}
	listSQL, listArgs, err := psql.Select(paperColumns).From("papers").Where(conds).
		OrderBy(fmt.Sprintf("%s %s NULLS LAST", filter.Sort, direction), "id").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build paper list query: %w", err)
	}

	papers, err := r.queryPapers(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	return papers, total, nil
}

// Update applies the favorite flag and memo.
func (r *PgPaperRepository) Update(ctx context.Context, id uuid.UUID, update PaperUpdate) (*domain.Paper, error) {
	if update.IsFavorite == nil && update.Memo == nil {
		return r.GetByID(ctx, id)
	}

	stmt := psql.Update("papers").Set("updated_at", r.now())
	if update.IsFavorite != nil {
		stmt = stmt.Set("is_favorite", *update.IsFavorite)
	}
	if update.Memo != nil {
		stmt = stmt.Set("memo", domain.StringPtr(*update.Memo))
	}
	query, args, err := stmt.Where(sq.Eq{"id": id}).Suffix("RETURNING " + paperColumns).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build paper update: %w", err)
	}

	p, err := scanPaper(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapReadError(err, "paper", id.String(), "update")
	}
	return p, nil
}

// Delete removes a paper.
func (r *PgPaperRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM papers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete paper: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("paper", id.String())
	}
	return nil
}

// ListSeeds returns unexplored favorite or approved papers, newest first.
func (r *PgPaperRepository) ListSeeds(ctx context.Context, limit int) ([]*domain.Paper, error) {
	if limit <= 0 {
		return []*domain.Paper{}, nil
	}
	query := `
		SELECT ` + paperColumns + `
		FROM papers
		WHERE citation_explored_at IS NULL
			AND (is_favorite OR review_status IN ('approved', 'auto_approved'))
		ORDER BY collected_at DESC
		LIMIT $1`

	return r.queryPapers(ctx, query, limit)
}

// MarkCitationExplored sets citation_explored_at.
func (r *PgPaperRepository) MarkCitationExplored(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE papers SET citation_explored_at = $2, updated_at = $3 WHERE id = $1`,
		id, at, r.now())
	if err != nil {
		return fmt.Errorf("failed to mark citation explored: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("paper", id.String())
	}
	return nil
}

// ReviewQueue returns pending papers and the pending total.
func (r *PgPaperRepository) ReviewQueue(ctx context.Context, sort ReviewSort, limit int) ([]*domain.Paper, int64, error) {
	if limit <= 0 {
		limit = defaultReviewQueueLimit
	}
	if limit > maxFilterLimit {
		limit = maxFilterLimit
	}

	var total int64
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM papers WHERE review_status = 'pending'`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count pending papers: %w", err)
	}

	order := "collected_at DESC"
	if sort != ReviewSortCollectedDesc {
		order = "relevance_score DESC NULLS LAST, collected_at DESC"
	}
	query := `
		SELECT ` + paperColumns + `
		FROM papers
		WHERE review_status = 'pending'
		ORDER BY ` + order + `
		LIMIT $1`

	papers, err := r.queryPapers(ctx, query, limit)
	if err != nil {
		return nil, 0, err
	}
	return papers, total, nil
}

// ListPending returns pending papers, newest first.
func (r *PgPaperRepository) ListPending(ctx context.Context, limit int) ([]*domain.Paper, error) {
	papers, _, err := r.ReviewQueue(ctx, ReviewSortCollectedDesc, limit)
	return papers, err
}

// UpdateReviewStatus sets the triage status of one paper.
func (r *PgPaperRepository) UpdateReviewStatus(ctx context.Context, id uuid.UUID, status domain.ReviewStatus) (*domain.Paper, error) {
	if !status.IsValid() {
		return nil, domain.NewValidationError("review_status", "unknown review status")
	}
	query := `
		UPDATE papers SET review_status = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + paperColumns

	p, err := scanPaper(r.db.QueryRow(ctx, query, id, string(status), r.now()))
	if err != nil {
		return nil, mapReadError(err, "paper", id.String(), "update review status of")
	}
	return p, nil
}

// BulkResolvePending moves bounded pending papers to status.
func (r *PgPaperRepository) BulkResolvePending(ctx context.Context, bound ScoreBound, status domain.ReviewStatus) (int64, error) {
	if !status.IsValid() {
		return 0, domain.NewValidationError("review_status", "unknown review status")
	}
	if bound.Min == nil && bound.Max == nil {
		return 0, domain.NewValidationError("score", "a score bound is required")
	}

	stmt := psql.Update("papers").
		Set("review_status", string(status)).
		Set("updated_at", r.now()).
		Where(sq.Eq{"review_status": string(domain.ReviewStatusPending)}).
		Where(sq.NotEq{"relevance_score": nil})
	if bound.Min != nil {
		stmt = stmt.Where(sq.GtOrEq{"relevance_score": *bound.Min})
	}
	if bound.Max != nil {
		stmt = stmt.Where(sq.LtOrEq{"relevance_score": *bound.Max})
	}
	query, args, err := stmt.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build bulk review update: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk update review status: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UpdateScore stores a new relevance score and review status.
func (r *PgPaperRepository) UpdateScore(ctx context.Context, id uuid.UUID, score int, status domain.ReviewStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE papers SET relevance_score = $2, review_status = $3, updated_at = $4 WHERE id = $1`,
		id, score, string(status), r.now())
	if err != nil {
		return fmt.Errorf("failed to update paper score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("paper", id.String())
	}
	return nil
}

// LinkKeyword associates a paper with a keyword.
func (r *PgPaperRepository) LinkKeyword(ctx context.Context, paperID, keywordID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO paper_keywords (paper_id, keyword_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		paperID, keywordID)
	if err != nil {
		return mapWriteError(err, "paper_keyword", paperID.String()+"/"+keywordID.String(), "link")
	}
	return nil
}

func (r *PgPaperRepository) queryPapers(ctx context.Context, query string, args ...interface{}) ([]*domain.Paper, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query papers: %w", err)
	}
	defer rows.Close()

	papers := make([]*domain.Paper, 0)
	for rows.Next() {
		p, err := scanPaperFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan paper: %w", err)
		}
		papers = append(papers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating papers: %w", err)
	}
	return papers, nil
}

// paperScanDest holds the destination pointers for scanning a Paper row.
type paperScanDest struct {
	paper        domain.Paper
	authorsJSON  []byte
	source       string
	reviewStatus string
}

// destinations returns the slice of pointers for Scan operations.
func (d *paperScanDest) destinations() []interface{} {
	return []interface{}{
		&d.paper.ID, &d.paper.TitleOriginal, &d.paper.TitleTranslated, &d.authorsJSON, &d.paper.Abstract,
		&d.paper.PublishedDate, &d.paper.Journal, &d.paper.DOI, &d.paper.URL, &d.paper.Summary,
		&d.paper.Explanation, &d.source, &d.reviewStatus, &d.paper.RelevanceScore,
		&d.paper.CitationExploredAt, &d.paper.IsFavorite, &d.paper.Memo, &d.paper.CollectedAt,
		&d.paper.CreatedAt, &d.paper.UpdatedAt,
	}
}

// finalize performs post-scan processing: unmarshals authors and converts enums.
func (d *paperScanDest) finalize() (*domain.Paper, error) {
	if len(d.authorsJSON) > 0 {
		if err := json.Unmarshal(d.authorsJSON, &d.paper.Authors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal authors: %w", err)
		}
	}
	d.paper.Source = domain.SourceTag(d.source)
	d.paper.ReviewStatus = domain.ReviewStatus(d.reviewStatus)
	return &d.paper, nil
}

// scanPaper scans a single row into a Paper.
func scanPaper(row pgx.Row) (*domain.Paper, error) {
	var dest paperScanDest
	if err := row.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}

// scanPaperFromRows scans the current row from pgx.Rows into a Paper.
func scanPaperFromRows(rows pgx.Rows) (*domain.Paper, error) {
	var dest paperScanDest
	if err := rows.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}
