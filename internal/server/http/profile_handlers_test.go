package httpserver

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-triage-service/internal/collector"
	"github.com/helixir/paper-triage-service/internal/domain"
	"github.com/helixir/paper-triage-service/internal/repository"
	"github.com/helixir/paper-triage-service/internal/scoring"
)

func TestInterestHandlers(t *testing.T) {
	t.Run("create clamps weight and marks manual", func(t *testing.T) {
		f := newFixture()
		s := newTestServer(f, Config{})

		rec := do(t, s, http.MethodPost, "/api/v1/interests", map[string]interface{}{"label": " protein folding ", "weight": 5.0})
		require.Equal(t, http.StatusCreated, rec.Code)
		require.Len(t, f.interests.created, 1)
		in := f.interests.created[0]
		assert.Equal(t, "protein folding", in.Label)
		assert.Equal(t, domain.MaxInterestWeight, in.Weight)
		assert.Equal(t, domain.InterestTypeManual, in.Type)
	})

	t.Run("create defaults weight", func(t *testing.T) {
		f := newFixture()
		s := newTestServer(f, Config{})

		rec := do(t, s, http.MethodPost, "/api/v1/interests", map[string]string{"label": "retrieval"})
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, domain.DefaultInterestWeight, f.interests.created[0].Weight)
	})

	t.Run("blank label rejected", func(t *testing.T) {
		f := newFixture()
		s := newTestServer(f, Config{})

		rec := do(t, s, http.MethodPost, "/api/v1/interests", map[string]string{"label": "   "})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, f.interests.created)
	})

	t.Run("update passes fields through", func(t *testing.T) {
		f := newFixture()
		id := uuid.New()
		var got repository.InterestUpdate
		f.interests.updateFn = func(_ context.Context, _ uuid.UUID, u repository.InterestUpdate) (*domain.Interest, error) {
			got = u
			return &domain.Interest{ID: id, Label: "x", Weight: *u.Weight, Type: domain.InterestTypeLearned}, nil
		}
		s := newTestServer(f, Config{})

		rec := do(t, s, http.MethodPatch, "/api/v1/interests/"+id.String(), map[string]float64{"weight": 1.4})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, got.Label)
		assert.Equal(t, 1.4, *got.Weight)

		rec = do(t, s, http.MethodPatch, "/api/v1/interests/"+id.String(), map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list and delete", func(t *testing.T) {
		f := newFixture()
		f.interests.interests = []*domain.Interest{{ID: uuid.New(), Label: "graphs", Weight: 1, Type: domain.InterestTypeManual}}
		s := newTestServer(f, Config{})

		rec := do(t, s, http.MethodGet, "/api/v1/interests", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Interests []interestResponse `json:"interests"`
		}
		decode(t, rec, &resp)
		assert.Len(t, resp.Interests, 1)

		rec = do(t, s, http.MethodDelete, "/api/v1/interests/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestKeywordHandlers(t *testing.T) {
	t.Run("create defaults to active", func(t *testing.T) {
		f := newFixture()
		s := newTestServer(f, Config{})

		rec := do(t, s, http.MethodPost, "/api/v1/keywords", map[string]interface{}{
			"keyword":  "diffusion models",
			"sources":  []string{"arXiv", "OpenAlex"},
			"journals": []string{"Nature"},
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		require.Len(t, f.keywords.created, 1)
		kw := f.keywords.created[0]
		assert.True(t, kw.IsActive)
		assert.Equal(t, []string{"arXiv", "OpenAlex"}, kw.Sources)
		assert.Nil(t, kw.Category)
	})

	t.Run("unknown source rejected", func(t *testing.T) {
		f := newFixture()
		s := newTestServer(f, Config{})

		rec := do(t, s, http.MethodPost, "/api/v1/keywords", map[string]interface{}{
			"keyword": "x",
			"sources": []string{"Google Scholar"},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, f.keywords.created)
	})

	t.Run("update deactivates", func(t *testing.T) {
		f := newFixture()
		id := uuid.New()
		f.keywords.updateFn = func(_ context.Context, _ uuid.UUID, u repository.KeywordUpdate) (*domain.Keyword, error) {
			return &domain.Keyword{ID: id, Keyword: "x", IsActive: *u.IsActive}, nil
		}
		s := newTestServer(f, Config{})

		rec := do(t, s, http.MethodPatch, "/api/v1/keywords/"+id.String(), map[string]bool{"is_active": false})
		require.Equal(t, http.StatusOK, rec.Code)
		var resp keywordResponse
		decode(t, rec, &resp)
		assert.False(t, resp.IsActive)
		assert.Equal(t, []string{}, resp.Sources)
	})

	t.Run("delete missing keyword", func(t *testing.T) {
		f := newFixture()
		f.keywords.deleteFn = func(_ context.Context, id uuid.UUID) error {
			return domain.NewNotFoundError("keyword", id.String())
		}
		s := newTestServer(f, Config{})

		rec := do(t, s, http.MethodDelete, "/api/v1/keywords/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestFeedHandlers(t *testing.T) {
	t.Run("create validates url", func(t *testing.T) {
		f := newFixture()
		s := newTestServer(f, Config{})

		rec := do(t, s, http.MethodPost, "/api/v1/feeds", map[string]string{"name": "Nature", "feed_url": "not a url"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "feed_url")

		rec = do(t, s, http.MethodPost, "/api/v1/feeds", map[string]string{"name": "Nature", "feed_url": "https://www.nature.com/nature.rss"})
		require.Equal(t, http.StatusCreated, rec.Code)
		require.Len(t, f.feeds.created, 1)
		assert.True(t, f.feeds.created[0].IsActive)
	})

	t.Run("duplicate url conflicts", func(t *testing.T) {
		f := newFixture()
		f.feeds.err = domain.NewAlreadyExistsError("feed", "https://example.org/rss")
		s := newTestServer(f, Config{})

		rec := do(t, s, http.MethodPost, "/api/v1/feeds", map[string]string{"name": "Example", "feed_url": "https://example.org/rss"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("update", func(t *testing.T) {
		f := newFixture()
		feed := &domain.Feed{ID: uuid.New(), Name: "Old", FeedURL: "https://example.org/rss", IsActive: true}
		f.feeds.feeds = []*domain.Feed{feed}
		s := newTestServer(f, Config{})

		rec := do(t, s, http.MethodPatch, "/api/v1/feeds/"+feed.ID.String(), map[string]interface{}{"name": "New", "is_active": false})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "New", feed.Name)
		assert.False(t, feed.IsActive)
	})
}

func TestReviewSettingsHandlers(t *testing.T) {
	t.Run("get returns current settings", func(t *testing.T) {
		s := newTestServer(newFixture(), Config{})

		rec := do(t, s, http.MethodGet, "/api/v1/settings/review", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var got domain.ReviewSettings
		decode(t, rec, &got)
		assert.Equal(t, domain.DefaultReviewSettings(), got)
	})

	t.Run("patch merges fields", func(t *testing.T) {
		f := newFixture()
		s := newTestServer(f, Config{})

		rec := do(t, s, http.MethodPatch, "/api/v1/settings/review", map[string]interface{}{
			"auto_approve_threshold": 80,
			"auto_collect_enabled":   false,
		})
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, f.settings.saved)
		assert.Equal(t, 80, f.settings.saved.AutoApproveThreshold)
		assert.Equal(t, domain.DefaultAutoSkipThreshold, f.settings.saved.AutoSkipThreshold)
		assert.True(t, f.settings.saved.ScoringEnabled)
		assert.False(t, f.settings.saved.AutoCollectEnabled)
	})

	t.Run("out of range threshold", func(t *testing.T) {
		f := newFixture()
		s := newTestServer(f, Config{})

		rec := do(t, s, http.MethodPatch, "/api/v1/settings/review", map[string]int{"auto_skip_threshold": 120})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Nil(t, f.settings.saved)
	})

	t.Run("empty patch", func(t *testing.T) {
		s := newTestServer(newFixture(), Config{})
		rec := do(t, s, http.MethodPatch, "/api/v1/settings/review", map[string]int{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("metrics summarize feedback", func(t *testing.T) {
		f := newFixture()
		f.feedback.feedback = []*domain.ScoringFeedback{
			{AIScore: 90, UserAction: domain.ReviewActionApprove, IsCorrect: true},
			{AIScore: 20, UserAction: domain.ReviewActionSkip, IsCorrect: true},
		}
		s := newTestServer(f, Config{})

		rec := do(t, s, http.MethodGet, "/api/v1/settings/review/metrics", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var m scoring.Metrics
		decode(t, rec, &m)
		assert.Equal(t, 2, m.TotalReviews)
		require.NotNil(t, m.Accuracy)
		assert.Equal(t, 100, *m.Accuracy)
	})
}

func TestScoringHandlers(t *testing.T) {
	t.Run("test scoring resolves status", func(t *testing.T) {
		f := newFixture()
		f.interests.interests = []*domain.Interest{{Label: "graphs", Weight: 1}}
		f.scorer.detail = scoring.Detail{Score: 75, Reasoning: "graph methods", MatchedInterests: []string{"graphs"}}
		s := newTestServer(f, Config{})

		rec := do(t, s, http.MethodPost, "/api/v1/scoring/test", map[string]string{"title": "Graph transformers", "abstract": "We study..."})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Score            int      `json:"score"`
			MatchedInterests []string `json:"matched_interests"`
			ReviewStatus     string   `json:"review_status"`
			InterestsCount   int      `json:"interests_count"`
		}
		decode(t, rec, &resp)
		assert.Equal(t, 75, resp.Score)
		assert.Equal(t, []string{"graphs"}, resp.MatchedInterests)
		assert.Equal(t, string(domain.ReviewStatusAutoApproved), resp.ReviewStatus)
		assert.Equal(t, 1, resp.InterestsCount)
		assert.Equal(t, "We study...", *f.scorer.paper.Abstract)
	})

	t.Run("rescore uses configured limit", func(t *testing.T) {
		f := newFixture()
		f.rescorer.result = &collector.RescoreResult{Rescored: 2, TotalPending: 2, Results: []collector.RescoreItem{}}
		s := newTestServer(f, Config{RescoreLimit: 10})

		rec := do(t, s, http.MethodPost, "/api/v1/scoring/rescore", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 10, f.rescorer.limit)
	})

	t.Run("rescore preconditions are client errors", func(t *testing.T) {
		for _, err := range []error{domain.ErrScoringDisabled, domain.ErrEmptyProfile} {
			f := newFixture()
			f.rescorer.err = err
			s := newTestServer(f, Config{})

			rec := do(t, s, http.MethodPost, "/api/v1/scoring/rescore", nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code, err.Error())
		}
	})

	t.Run("rescore storage failure", func(t *testing.T) {
		f := newFixture()
		f.rescorer.err = errors.New("loading interests: timeout")
		s := newTestServer(f, Config{})

		rec := do(t, s, http.MethodPost, "/api/v1/scoring/rescore", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
