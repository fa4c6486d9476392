package httpserver

import (
	"time"

	"github.com/google/uuid"

	"github.com/helixir/paper-triage-service/internal/domain"
	"github.com/helixir/paper-triage-service/internal/repository"
)

type paperResponse struct {
	ID                 uuid.UUID           `json:"id"`
	TitleOriginal      string              `json:"title_original"`
	TitleTranslated    *string             `json:"title_translated"`
	Authors            []string            `json:"authors"`
	Abstract           *string             `json:"abstract"`
	PublishedDate      *string             `json:"published_date"`
	Journal            *string             `json:"journal"`
	DOI                *string             `json:"doi"`
	URL                string              `json:"url"`
	Summary            *string             `json:"summary"`
	Explanation        *string             `json:"explanation"`
	Source             domain.SourceTag    `json:"source"`
	ReviewStatus       domain.ReviewStatus `json:"review_status"`
	RelevanceScore     *int                `json:"relevance_score"`
	CitationExploredAt *time.Time          `json:"citation_explored_at"`
	IsFavorite         bool                `json:"is_favorite"`
	Memo               *string             `json:"memo"`
	CollectedAt        time.Time           `json:"collected_at"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

func paperToResponse(p *domain.Paper) paperResponse {
	resp := paperResponse{
		ID:                 p.ID,
		TitleOriginal:      p.TitleOriginal,
		TitleTranslated:    p.TitleTranslated,
		Authors:            p.Authors,
		Abstract:           p.Abstract,
		Journal:            p.Journal,
		DOI:                p.DOI,
		URL:                p.URL,
		Summary:            p.Summary,
		Explanation:        p.Explanation,
		Source:             p.Source,
		ReviewStatus:       p.ReviewStatus,
		RelevanceScore:     p.RelevanceScore,
		CitationExploredAt: p.CitationExploredAt,
		IsFavorite:         p.IsFavorite,
		Memo:               p.Memo,
		CollectedAt:        p.CollectedAt,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
	if resp.Authors == nil {
		resp.Authors = []string{}
	}
	if p.PublishedDate != nil {
		d := p.PublishedDate.Format(domain.DateLayout)
		resp.PublishedDate = &d
	}
	return resp
}

func papersToResponse(papers []*domain.Paper) []paperResponse {
	out := make([]paperResponse, 0, len(papers))
	for _, p := range papers {
		out = append(out, paperToResponse(p))
	}
	return out
}

type interestResponse struct {
	ID        uuid.UUID           `json:"id"`
	Label     string              `json:"label"`
	Weight    float64             `json:"weight"`
	Type      domain.InterestType `json:"type"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func interestToResponse(in *domain.Interest) interestResponse {
	return interestResponse{
		ID:        in.ID,
		Label:     in.Label,
		Weight:    in.Weight,
		Type:      in.Type,
		CreatedAt: in.CreatedAt,
		UpdatedAt: in.UpdatedAt,
	}
}

type keywordResponse struct {
	ID        uuid.UUID `json:"id"`
	Keyword   string    `json:"keyword"`
	Category  *string   `json:"category"`
	Sources   []string  `json:"sources"`
	Journals  []string  `json:"journals"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func keywordToResponse(kw *domain.Keyword) keywordResponse {
	resp := keywordResponse{
		ID:        kw.ID,
		Keyword:   kw.Keyword,
		Category:  kw.Category,
		Sources:   kw.Sources,
		Journals:  kw.Journals,
		IsActive:  kw.IsActive,
		CreatedAt: kw.CreatedAt,
	}
	if resp.Sources == nil {
		resp.Sources = []string{}
	}
	if resp.Journals == nil {
		resp.Journals = []string{}
	}
	return resp
}

type feedResponse struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	FeedURL       string     `json:"feed_url"`
	IsActive      bool       `json:"is_active"`
	LastFetchedAt *time.Time `json:"last_fetched_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

func feedToResponse(f *domain.Feed) feedResponse {
	return feedResponse{
		ID:            f.ID,
		Name:          f.Name,
		FeedURL:       f.FeedURL,
		IsActive:      f.IsActive,
		LastFetchedAt: f.LastFetchedAt,
		CreatedAt:     f.CreatedAt,
	}
}

type collectionLogResponse struct {
	ID          uuid.UUID        `json:"id"`
	Origin      domain.LogOrigin `json:"origin"`
	OriginID    *uuid.UUID       `json:"origin_id"`
	OriginName  *string          `json:"origin_name"`
	Status      domain.LogStatus `json:"status"`
	PapersFound int              `json:"papers_found"`
	Message     *string          `json:"message"`
	ExecutedAt  time.Time        `json:"executed_at"`
}

func logToResponse(e *repository.CollectionLogEntry) collectionLogResponse {
	resp := collectionLogResponse{
		ID:          e.ID,
		Origin:      e.Origin(),
		OriginName:  e.OriginName,
		Status:      e.Status,
		PapersFound: e.PapersFound,
		Message:     e.Message,
		ExecutedAt:  e.ExecutedAt,
	}
	switch resp.Origin {
	case domain.LogOriginFeed:
		resp.OriginID = e.FeedID
	case domain.LogOriginSeed:
		resp.OriginID = e.SeedPaperID
	default:
		resp.OriginID = e.KeywordID
	}
	return resp
}
