package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-triage-service/internal/citation"
	"github.com/helixir/paper-triage-service/internal/domain"
)

func pendingPaper(title string, score *int) *domain.Paper {
	return &domain.Paper{ID: uuid.New(), TitleOriginal: title, ReviewStatus: domain.ReviewStatusPending, RelevanceScore: score}
}

func TestRescorer_Run(t *testing.T) {
	store := newMemoryStore()
	store.interests = []*domain.Interest{{Label: "graphs", Weight: 1}}
	old := 50
	store.papers = []*domain.Paper{
		pendingPaper("One", &old),
		pendingPaper("Two", nil),
		{ID: uuid.New(), TitleOriginal: "Done", ReviewStatus: domain.ReviewStatusApproved},
	}

	r := NewRescorer(deps(store, &countingProvider{text: `{"score": 90}`}), store)
	result, err := r.Run(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalPending)
	assert.Equal(t, 2, result.Rescored)
	require.Len(t, result.Results, 2)
	assert.Equal(t, &old, result.Results[0].OldScore)
	assert.Equal(t, 90, result.Results[0].NewScore)
	assert.Nil(t, result.Results[1].OldScore)
	assert.Equal(t, domain.ReviewStatusAutoApproved, store.papers[0].ReviewStatus)
	assert.Equal(t, domain.ReviewStatusApproved, store.papers[2].ReviewStatus)
}

func TestRescorer_Preconditions(t *testing.T) {
	store := newMemoryStore()
	r := NewRescorer(deps(store, &countingProvider{}), store)

	_, err := r.Run(context.Background(), 10)
	assert.ErrorIs(t, err, domain.ErrEmptyProfile)

	store.settings.ScoringEnabled = false
	_, err = r.Run(context.Background(), 10)
	assert.ErrorIs(t, err, domain.ErrScoringDisabled)
}

func TestRescorer_UpdateFailureCounted(t *testing.T) {
	store := newMemoryStore()
	store.interests = []*domain.Interest{{Label: "graphs", Weight: 1}}
	store.papers = []*domain.Paper{pendingPaper("One", nil)}
	store.updateErr = errors.New("write failed")

	result, err := NewRescorer(deps(store, &countingProvider{text: "40"}), store).Run(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Errors)
	assert.Equal(t, 0, result.Rescored)
}

func TestCitationCollector_MapsSeeds(t *testing.T) {
	store := newMemoryStore()
	id := uuid.New()
	explorer := &fakeExplorer{result: &citation.RunResult{Seeds: []citation.SeedResult{
		{SeedPaperID: id, SeedTitle: "Seed", Status: domain.LogStatusSuccess, PapersFound: 3},
	}}}

	report, err := NewCitationCollector(deps(store, nil), explorer).Run(context.Background(), 4)
	require.NoError(t, err)

	assert.Equal(t, []int{4}, explorer.maxSeeds)
	require.Len(t, report.Results, 1)
	assert.Equal(t, domain.LogOriginSeed, report.Results[0].Origin)
	assert.Equal(t, id, report.Results[0].ID)
	assert.Equal(t, 3, report.Summary.TotalPapersFound)
}
