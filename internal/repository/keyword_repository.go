package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/helixir/paper-triage-service/internal/domain"
)

// KeywordRepository manages the search keywords used by keyword collection.
type KeywordRepository interface {
	// Create stores a new keyword.
	// Returns domain.ErrAlreadyExists if the same keyword text (case-insensitive) exists.
	Create(ctx context.Context, kw *domain.Keyword) error

	// GetByID retrieves a keyword by its UUID.
	// Returns domain.ErrNotFound if no matching keyword exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Keyword, error)

	// List returns all keywords, newest first.
	List(ctx context.Context) ([]*domain.Keyword, error)

	// ListActiveKeywords returns active keywords in creation order.
	ListActiveKeywords(ctx context.Context) ([]*domain.Keyword, error)

	// Update applies the non-nil fields of update.
	// Returns domain.ErrNotFound if the keyword does not exist.
	Update(ctx context.Context, id uuid.UUID, update KeywordUpdate) (*domain.Keyword, error)

	// Delete removes a keyword and its paper links.
	// Returns domain.ErrNotFound if the keyword does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// KeywordUpdate carries editable keyword fields. Nil fields are unchanged.
type KeywordUpdate struct {
	Keyword  *string
	Category *string
	Sources  []string
	Journals []string
	IsActive *bool
}

// FeedRepository manages RSS/Atom feeds.
type FeedRepository interface {
	// Create stores a new feed.
	// Returns domain.ErrAlreadyExists if the feed URL is already registered.
	Create(ctx context.Context, feed *domain.Feed) error

	// GetByID retrieves a feed by its UUID.
	// Returns domain.ErrNotFound if no matching feed exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Feed, error)

	// List returns all feeds, newest first.
	List(ctx context.Context) ([]*domain.Feed, error)

	// ListActiveFeeds returns active feeds in creation order.
	ListActiveFeeds(ctx context.Context) ([]*domain.Feed, error)

	// Update applies the non-nil fields of update.
	// Returns domain.ErrNotFound if the feed does not exist.
	Update(ctx context.Context, id uuid.UUID, update FeedUpdate) (*domain.Feed, error)

	// Delete removes a feed.
	// Returns domain.ErrNotFound if the feed does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// MarkFeedFetched records the last successful fetch time.
	MarkFeedFetched(ctx context.Context, id uuid.UUID, at time.Time) error
}

// FeedUpdate carries editable feed fields. Nil fields are unchanged.
type FeedUpdate struct {
	Name     *string
	FeedURL  *string
	IsActive *bool
}

// InterestRepository manages the weighted interest profile.
type InterestRepository interface {
	// ListInterests returns the whole profile, heaviest first.
	ListInterests(ctx context.Context) ([]*domain.Interest, error)

	// GetByID retrieves an interest by its UUID.
	// Returns domain.ErrNotFound if no matching interest exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Interest, error)

	// CreateInterest stores a new interest. Weight is clamped to the allowed range.
	// Returns domain.ErrAlreadyExists if the label exists with the same type.
	CreateInterest(ctx context.Context, interest *domain.Interest) error

	// UpdateInterestWeight stores a new (clamped) weight.
	// Returns domain.ErrNotFound if the interest does not exist.
	UpdateInterestWeight(ctx context.Context, id uuid.UUID, weight float64) error

	// Update applies the non-nil fields of update.
	// Returns domain.ErrNotFound if the interest does not exist.
	Update(ctx context.Context, id uuid.UUID, update InterestUpdate) (*domain.Interest, error)

	// Delete removes an interest.
	// Returns domain.ErrNotFound if the interest does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// InterestUpdate carries editable interest fields. Nil fields are unchanged.
type InterestUpdate struct {
	Label  *string
	Weight *float64
}
