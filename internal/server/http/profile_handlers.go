package httpserver

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/helixir/paper-triage-service/internal/domain"
	"github.com/helixir/paper-triage-service/internal/repository"
)

// listInterests handles GET /api/v1/interests.
func (s *Server) listInterests(w http.ResponseWriter, r *http.Request) {
	interests, err := s.deps.Interests.ListInterests(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]interestResponse, 0, len(interests))
	for _, in := range interests {
		out = append(out, interestToResponse(in))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"interests": out})
}

type createInterestRequest struct {
	Label  string   `json:"label" validate:"required,max=200"`
	Weight *float64 `json:"weight"`
}

// createInterest handles POST /api/v1/interests. Weights are clamped to the allowed range.
func (s *Server) createInterest(w http.ResponseWriter, r *http.Request) {
	var req createInterestRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeDomainError(w, err)
		return
	}
	label := strings.TrimSpace(req.Label)
	if label == "" {
		writeError(w, http.StatusBadRequest, "label is required")
		return
	}

	weight := domain.DefaultInterestWeight
	if req.Weight != nil {
		weight = *req.Weight
	}
	now := s.now()
	in := &domain.Interest{
		ID:        uuid.New(),
		Label:     label,
		Weight:    domain.ClampWeight(weight),
		Type:      domain.InterestTypeManual,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.deps.Interests.CreateInterest(r.Context(), in); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, interestToResponse(in))
}

type updateInterestRequest struct {
	Label  *string  `json:"label" validate:"omitempty,min=1,max=200"`
	Weight *float64 `json:"weight"`
}

// updateInterest handles PATCH /api/v1/interests/{interestID}.
func (s *Server) updateInterest(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, chi.URLParam(r, "interestID"), "interest_id")
	if !ok {
		return
	}
	var req updateInterestRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeDomainError(w, err)
		return
	}
	if req.Label == nil && req.Weight == nil {
		writeError(w, http.StatusBadRequest, "at least one of label or weight is required")
		return
	}

	in, err := s.deps.Interests.Update(r.Context(), id, repository.InterestUpdate{
		Label:  req.Label,
		Weight: req.Weight,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, interestToResponse(in))
}

// deleteInterest handles DELETE /api/v1/interests/{interestID}.
func (s *Server) deleteInterest(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, chi.URLParam(r, "interestID"), "interest_id")
	if !ok {
		return
	}
	if err := s.deps.Interests.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listKeywords handles GET /api/v1/keywords.
func (s *Server) listKeywords(w http.ResponseWriter, r *http.Request) {
	keywords, err := s.deps.Keywords.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]keywordResponse, 0, len(keywords))
	for _, kw := range keywords {
		out = append(out, keywordToResponse(kw))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"keywords": out})
}

type createKeywordRequest struct {
	Keyword  string   `json:"keyword" validate:"required,max=500"`
	Category string   `json:"category" validate:"max=200"`
	Sources  []string `json:"sources"`
	Journals []string `json:"journals"`
	IsActive *bool    `json:"is_active"`
}

// checkSources rejects provider names that no keyword search supports.
func checkSources(sources []string) error {
	for _, src := range sources {
		if !domain.IsValidSourceType(domain.SourceType(src)) {
			return domain.NewValidationError("sources", "unknown source "+src)
		}
	}
	return nil
}

// createKeyword handles POST /api/v1/keywords. New keywords are active unless stated otherwise.
func (s *Server) createKeyword(w http.ResponseWriter, r *http.Request) {
	var req createKeywordRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeDomainError(w, err)
		return
	}
	text := strings.TrimSpace(req.Keyword)
	if text == "" {
		writeError(w, http.StatusBadRequest, "keyword is required")
		return
	}
	if err := checkSources(req.Sources); err != nil {
		writeDomainError(w, err)
		return
	}

	kw := &domain.Keyword{
		ID:        uuid.New(),
		Keyword:   text,
		Category:  domain.StringPtr(req.Category),
		Sources:   req.Sources,
		Journals:  req.Journals,
		IsActive:  req.IsActive == nil || *req.IsActive,
		CreatedAt: s.now(),
	}
	if err := s.deps.Keywords.Create(r.Context(), kw); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, keywordToResponse(kw))
}

type updateKeywordRequest struct {
	Keyword  *string  `json:"keyword" validate:"omitempty,min=1,max=500"`
	Category *string  `json:"category" validate:"omitempty,max=200"`
	Sources  []string `json:"sources"`
	Journals []string `json:"journals"`
	IsActive *bool    `json:"is_active"`
}

// updateKeyword handles PATCH /api/v1/keywords/{keywordID}.
func (s *Server) updateKeyword(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, chi.URLParam(r, "keywordID"), "keyword_id")
	if !ok {
		return
	}
	var req updateKeywordRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := checkSources(req.Sources); err != nil {
		writeDomainError(w, err)
		return
	}

	kw, err := s.deps.Keywords.Update(r.Context(), id, repository.KeywordUpdate{
		Keyword:  req.Keyword,
		Category: req.Category,
		Sources:  req.Sources,
		Journals: req.Journals,
		IsActive: req.IsActive,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, keywordToResponse(kw))
}

// deleteKeyword handles DELETE /api/v1/keywords/{keywordID}.
func (s *Server) deleteKeyword(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, chi.URLParam(r, "keywordID"), "keyword_id")
	if !ok {
		return
	}
	if err := s.deps.Keywords.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listFeeds handles GET /api/v1/feeds.
func (s *Server) listFeeds(w http.ResponseWriter, r *http.Request) {
	feeds, err := s.deps.Feeds.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]feedResponse, 0, len(feeds))
	for _, f := range feeds {
		out = append(out, feedToResponse(f))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"feeds": out})
}

type createFeedRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	FeedURL  string `json:"feed_url" validate:"required,url"`
	IsActive *bool  `json:"is_active"`
}

// createFeed handles POST /api/v1/feeds.
func (s *Server) createFeed(w http.ResponseWriter, r *http.Request) {
	var req createFeedRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeDomainError(w, err)
		return
	}

	feed := &domain.Feed{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(req.Name),
		FeedURL:   strings.TrimSpace(req.FeedURL),
		IsActive:  req.IsActive == nil || *req.IsActive,
		CreatedAt: s.now(),
	}
	if err := s.deps.Feeds.Create(r.Context(), feed); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, feedToResponse(feed))
}

type updateFeedRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=200"`
	FeedURL  *string `json:"feed_url" validate:"omitempty,url"`
	IsActive *bool   `json:"is_active"`
}

// updateFeed handles PATCH /api/v1/feeds/{feedID}.
func (s *Server) updateFeed(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, chi.URLParam(r, "feedID"), "feed_id")
	if !ok {
		return
	}
	var req updateFeedRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeDomainError(w, err)
		return
	}

	feed, err := s.deps.Feeds.Update(r.Context(), id, repository.FeedUpdate{
		Name:     req.Name,
		FeedURL:  req.FeedURL,
		IsActive: req.IsActive,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, feedToResponse(feed))
}

// deleteFeed handles DELETE /api/v1/feeds/{feedID}.
func (s *Server) deleteFeed(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, chi.URLParam(r, "feedID"), "feed_id")
	if !ok {
		return
	}
	if err := s.deps.Feeds.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
