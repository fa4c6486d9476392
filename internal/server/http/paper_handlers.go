package httpserver

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/helixir/paper-triage-service/internal/domain"
	"github.com/helixir/paper-triage-service/internal/repository"
)

type listPapersResponse struct {
	Papers     []paperResponse `json:"papers"`
	TotalCount int64           `json:"total_count"`
	Limit      int             `json:"limit"`
	Offset     int             `json:"offset"`
}

// listPapers handles GET /api/v1/papers.
func (s *Server) listPapers(w http.ResponseWriter, r *http.Request) {
	filter, err := paperFilterFromQuery(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := filter.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}

	papers, total, err := s.deps.Papers.List(r.Context(), filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list papers")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listPapersResponse{
		Papers:     papersToResponse(papers),
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

func paperFilterFromQuery(r *http.Request) (repository.PaperFilter, error) {
	q := r.URL.Query()
	var filter repository.PaperFilter
	filter.Limit, filter.Offset = parseLimitOffset(r, defaultPageSize, maxPageSize)

	if v := q.Get("source"); v != "" {
		src := domain.SourceTag(v)
		filter.Source = &src
	}
	if v := q.Get("review_status"); v != "" {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				filter.ReviewStatuses = append(filter.ReviewStatuses, domain.ReviewStatus(part))
			}
		}
	}
	if v := q.Get("favorite"); v != "" {
		fav, err := strconv.ParseBool(v)
		if err != nil {
			return filter, domain.NewValidationError("favorite", "must be true or false")
		}
		filter.Favorite = &fav
	}
	if v := q.Get("keyword_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, domain.NewValidationError("keyword_id", "must be a valid UUID")
		}
		filter.KeywordID = &id
	}
	filter.Query = strings.TrimSpace(q.Get("q"))
	filter.Sort = repository.PaperSort(q.Get("sort"))
	filter.Ascending = strings.EqualFold(q.Get("order"), "asc")

	if v := q.Get("date_from"); v != "" {
		from := domain.ParseDate(v)
		if from == nil {
			return filter, domain.NewValidationError("date_from", "must be YYYY-MM-DD")
		}
		filter.CollectedFrom = from
	}
	if v := q.Get("date_to"); v != "" {
		to := domain.ParseDate(v)
		if to == nil {
			return filter, domain.NewValidationError("date_to", "must be YYYY-MM-DD")
		}
		end := to.Add(24*time.Hour - time.Nanosecond)
		filter.CollectedTo = &end
	}
	return filter, nil
}

// getPaper handles GET /api/v1/papers/{paperID}.
func (s *Server) getPaper(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, chi.URLParam(r, "paperID"), "paper_id")
	if !ok {
		return
	}

	paper, err := s.deps.Papers.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paperToResponse(paper))
}

type createPaperRequest struct {
	Title         string   `json:"title" validate:"required,max=2000"`
	Authors       []string `json:"authors"`
	Abstract      string   `json:"abstract"`
	PublishedDate string   `json:"published_date" validate:"omitempty,datetime=2006-01-02"`
	Journal       string   `json:"journal"`
	DOI           string   `json:"doi"`
	URL           string   `json:"url" validate:"omitempty,url"`
	Memo          string   `json:"memo"`
	IsFavorite    bool     `json:"is_favorite"`
}

// createPaper handles POST /api/v1/papers. Manually added papers start pending.
func (s *Server) createPaper(w http.ResponseWriter, r *http.Request) {
	var req createPaperRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeDomainError(w, err)
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	now := s.now()
	paper := &domain.Paper{
		ID:            uuid.New(),
		TitleOriginal: title,
		Authors:       req.Authors,
		Abstract:      domain.StringPtr(req.Abstract),
		PublishedDate: domain.ParseDate(req.PublishedDate),
		Journal:       domain.StringPtr(req.Journal),
		URL:           strings.TrimSpace(req.URL),
		Source:        domain.SourceTagManual,
		ReviewStatus:  domain.ReviewStatusPending,
		IsFavorite:    req.IsFavorite,
		Memo:          domain.StringPtr(req.Memo),
		CollectedAt:   now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if doi := domain.NormalizeDOI(req.DOI); doi != "" {
		paper.DOI = &doi
	}

	var dois []string
	if paper.HasDOI() {
		dois = []string{strings.ToLower(paper.DOIValue())}
	}
	existing, err := s.deps.Papers.ExistingKeys(r.Context(), dois, []string{domain.NormalizeTitle(title)})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to check for duplicate paper")
		writeDomainError(w, err)
		return
	}
	if len(existing.DOIs) > 0 || len(existing.Titles) > 0 {
		writeError(w, http.StatusConflict, "paper already exists")
		return
	}

	created, err := s.deps.Papers.Create(r.Context(), paper)
	if err != nil {
		if !domain.IsAlreadyExists(err) {
			s.logger.Error().Err(err).Msg("failed to create paper")
		}
		writeDomainError(w, err)
		return
	}

	s.logger.Info().Str("paper_id", created.ID.String()).Msg("manual paper added")
	writeJSON(w, http.StatusCreated, paperToResponse(created))
}

type updatePaperRequest struct {
	IsFavorite *bool   `json:"is_favorite"`
	Memo       *string `json:"memo" validate:"omitempty,max=10000"`
}

// updatePaper handles PATCH /api/v1/papers/{paperID}.
func (s *Server) updatePaper(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, chi.URLParam(r, "paperID"), "paper_id")
	if !ok {
		return
	}

	var req updatePaperRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeDomainError(w, err)
		return
	}
	if req.IsFavorite == nil && req.Memo == nil {
		writeError(w, http.StatusBadRequest, "at least one of is_favorite or memo is required")
		return
	}

	paper, err := s.deps.Papers.Update(r.Context(), id, repository.PaperUpdate{
		IsFavorite: req.IsFavorite,
		Memo:       req.Memo,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paperToResponse(paper))
}

// deletePaper handles DELETE /api/v1/papers/{paperID}.
func (s *Server) deletePaper(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, chi.URLParam(r, "paperID"), "paper_id")
	if !ok {
		return
	}

	if err := s.deps.Papers.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
