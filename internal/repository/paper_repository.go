package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/helixir/paper-triage-service/internal/domain"
)

// PaperRepository handles collected paper persistence, the review queue and
// citation seed bookkeeping. Papers are unique by DOI (when present) and by
// original title; the database constraints are the final dedup authority.
type PaperRepository interface {
	// InsertPaper stores a collected paper with ON CONFLICT DO NOTHING.
	// Returns true when a new row was created, false when the DOI or title
	// already existed.
	InsertPaper(ctx context.Context, p *domain.Paper) (bool, error)

	// Create stores a manually registered paper.
	// Returns domain.ErrAlreadyExists when the DOI or title is already stored.
	Create(ctx context.Context, p *domain.Paper) (*domain.Paper, error)

	// ExistingKeys returns which of the given DOIs and titles are already
	// stored. Matching is case-insensitive; returned values are lowercased.
	ExistingKeys(ctx context.Context, dois, titles []string) (*domain.PaperKeys, error)

	// GetByID retrieves a paper by its UUID.
	// Returns domain.ErrNotFound if no matching paper exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error)

	// List retrieves papers matching the filter, with the total match count.
	List(ctx context.Context, filter PaperFilter) ([]*domain.Paper, int64, error)

	// Update applies the user-editable fields (favorite flag, memo).
	// Returns domain.ErrNotFound if the paper does not exist.
	Update(ctx context.Context, id uuid.UUID, update PaperUpdate) (*domain.Paper, error)

	// Delete removes a paper and its keyword links.
	// Returns domain.ErrNotFound if the paper does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListSeeds returns up to limit papers eligible for citation exploration:
	// favorite or approved (manually or automatically) and never explored,
	// newest collection first.
	ListSeeds(ctx context.Context, limit int) ([]*domain.Paper, error)

	// MarkCitationExplored records that a seed reached a terminal outcome.
	MarkCitationExplored(ctx context.Context, id uuid.UUID, at time.Time) error

	// ReviewQueue returns pending papers in the requested order together
	// with the total number of pending papers.
	ReviewQueue(ctx context.Context, sort ReviewSort, limit int) ([]*domain.Paper, int64, error)

	// ListPending returns up to limit pending papers, newest first.
	ListPending(ctx context.Context, limit int) ([]*domain.Paper, error)

	// UpdateReviewStatus sets the triage status of one paper.
	// Returns domain.ErrNotFound if the paper does not exist.
	UpdateReviewStatus(ctx context.Context, id uuid.UUID, status domain.ReviewStatus) (*domain.Paper, error)

	// BulkResolvePending moves pending papers whose score satisfies bound to
	// status and returns the number of affected rows.
	BulkResolvePending(ctx context.Context, bound ScoreBound, status domain.ReviewStatus) (int64, error)

	// UpdateScore stores a new relevance score and review status.
	UpdateScore(ctx context.Context, id uuid.UUID, score int, status domain.ReviewStatus) error

	// LinkKeyword associates a paper with the keyword that found it.
	// Linking twice is a no-op.
	LinkKeyword(ctx context.Context, paperID, keywordID uuid.UUID) error
}

// PaperSort names the sortable paper columns.
type PaperSort string

const (
	PaperSortCollectedAt    PaperSort = "collected_at"
	PaperSortPublishedDate  PaperSort = "published_date"
	PaperSortRelevanceScore PaperSort = "relevance_score"
	PaperSortTitle          PaperSort = "title_original"
)

// IsValid reports whether s is a sortable column.
func (s PaperSort) IsValid() bool {
	switch s {
	case PaperSortCollectedAt, PaperSortPublishedDate, PaperSortRelevanceScore, PaperSortTitle:
		return true
	default:
		return false
	}
}

// PaperFilter specifies criteria for listing papers.
type PaperFilter struct {
	// Source filters by provenance tag (optional).
	Source *domain.SourceTag

	// ReviewStatuses restricts to the given statuses. Empty means any status.
	ReviewStatuses []domain.ReviewStatus

	// Favorite filters by the favorite flag when set.
	Favorite *bool

	// KeywordID restricts to papers linked to a keyword (optional).
	KeywordID *uuid.UUID

	// Query is a case-insensitive substring matched against the titles,
	// summary and memo.
	Query string

	// CollectedFrom and CollectedTo bound collected_at, inclusive.
	CollectedFrom *time.Time
	CollectedTo   *time.Time

	// Sort is the ordering column (default collected_at).
	Sort PaperSort

	// Ascending reverses the default descending order.
	Ascending bool

	// Limit specifies maximum number of results (default: 100, max: 1000).
	Limit int

	// Offset specifies the starting position for pagination.
	Offset int
}

// Validate checks if the filter has valid values and sets defaults.
func (f *PaperFilter) Validate() error {
	if f.Sort == "" {
		f.Sort = PaperSortCollectedAt
	}
	if !f.Sort.IsValid() {
		return domain.NewValidationError("sort", "unsupported sort column")
	}
	if f.Source != nil && !f.Source.IsValid() {
		return domain.NewValidationError("source", "unknown source")
	}
	for _, s := range f.ReviewStatuses {
		if !s.IsValid() {
			return domain.NewValidationError("review_status", "unknown review status")
		}
	}
	applyPaginationDefaults(&f.Limit, &f.Offset)
	return nil
}

// PaperUpdate carries the user-editable paper fields. Nil fields are unchanged.
type PaperUpdate struct {
	IsFavorite *bool
	Memo       *string
}

// ReviewSort orders the review queue.
type ReviewSort string

const (
	// ReviewSortScoreDesc orders by relevance score, unscored papers last.
	ReviewSortScoreDesc ReviewSort = "score_desc"
	// ReviewSortCollectedDesc orders by collection time, newest first.
	ReviewSortCollectedDesc ReviewSort = "collected_desc"
)

// ScoreBound selects pending papers by score for bulk review. Exactly one of
// Min and Max is expected; papers without a score never match.
type ScoreBound struct {
	Min *int
	Max *int
}
