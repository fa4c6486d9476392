package domain

import (
	"time"

	"github.com/google/uuid"
)

// Keyword is a configured search query for keyword collection.
type Keyword struct {
	ID       uuid.UUID
	Keyword  string
	Category *string
	// Sources lists the providers to query, by SourceType label.
	Sources []string
	// Journals is a venue allow-list; empty accepts any venue.
	Journals  []string
	IsActive  bool
	CreatedAt time.Time
}

// Feed is a configured RSS/Atom feed.
type Feed struct {
	ID            uuid.UUID
	Name          string
	FeedURL       string
	IsActive      bool
	LastFetchedAt *time.Time
	CreatedAt     time.Time
}

// LogStatus is the outcome of a collection unit.
type LogStatus string

const (
	LogStatusSuccess LogStatus = "success"
	LogStatusError   LogStatus = "error"
)

// LogOrigin identifies which kind of unit produced a collection log.
type LogOrigin string

const (
	LogOriginKeyword LogOrigin = "keyword"
	LogOriginFeed    LogOrigin = "feed"
	LogOriginSeed    LogOrigin = "seed"
)

// CollectionLog is an append-only audit record for one collection unit.
// Exactly one of KeywordID, FeedID and SeedPaperID is set.
type CollectionLog struct {
	ID          uuid.UUID
	KeywordID   *uuid.UUID
	FeedID      *uuid.UUID
	SeedPaperID *uuid.UUID
	Status      LogStatus
	PapersFound int
	Message     *string
	ExecutedAt  time.Time
}

// NewCollectionLog builds a log entry for the given origin.
func NewCollectionLog(origin LogOrigin, id uuid.UUID, status LogStatus, papersFound int, message string) *CollectionLog {
	l := &CollectionLog{
		ID:          uuid.New(),
		Status:      status,
		PapersFound: papersFound,
		Message:     StringPtr(message),
		ExecutedAt:  time.Now().UTC(),
	}
	switch origin {
	case LogOriginKeyword:
		l.KeywordID = &id
	case LogOriginFeed:
		l.FeedID = &id
	case LogOriginSeed:
		l.SeedPaperID = &id
	}
	return l
}

// Origin returns which kind of unit produced the log.
func (l *CollectionLog) Origin() LogOrigin {
	switch {
	case l.FeedID != nil:
		return LogOriginFeed
	case l.SeedPaperID != nil:
		return LogOriginSeed
	default:
		return LogOriginKeyword
	}
}

// ScoringFeedback correlates an AI score with the human decision on a paper.
type ScoringFeedback struct {
	ID         uuid.UUID
	PaperID    uuid.UUID
	AIScore    int
	UserAction ReviewAction
	IsCorrect  bool
	CreatedAt  time.Time
}
