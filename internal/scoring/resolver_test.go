package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-triage-service/internal/domain"
)

func settings(approve, skip int) domain.ReviewSettings {
	s := domain.DefaultReviewSettings()
	s.AutoApproveThreshold = approve
	s.AutoSkipThreshold = skip
	return s
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		score    int
		settings domain.ReviewSettings
		want     domain.ReviewStatus
	}{
		{name: "approve threshold inclusive", score: 70, settings: settings(70, 30), want: domain.ReviewStatusAutoApproved},
		{name: "skip threshold inclusive", score: 30, settings: settings(70, 30), want: domain.ReviewStatusAutoSkipped},
		{name: "between thresholds", score: 50, settings: settings(70, 30), want: domain.ReviewStatusPending},
		{name: "high score", score: 85, settings: settings(70, 30), want: domain.ReviewStatusAutoApproved},
		{name: "just above skip", score: 31, settings: settings(70, 30), want: domain.ReviewStatusPending},
		{name: "just below approve", score: 69, settings: settings(70, 30), want: domain.ReviewStatusPending},
		{name: "equal thresholds prefer approve", score: 30, settings: settings(30, 30), want: domain.ReviewStatusAutoApproved},
		{name: "crossed thresholds prefer approve", score: 50, settings: settings(40, 60), want: domain.ReviewStatusAutoApproved},
		{name: "crossed thresholds below approve", score: 35, settings: settings(40, 60), want: domain.ReviewStatusAutoSkipped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.score, tt.settings))
		})
	}
}

func TestEvaluate(t *testing.T) {
	s := settings(70, 30)

	assert.True(t, Evaluate(50, domain.ReviewActionApprove, s))
	assert.False(t, Evaluate(49, domain.ReviewActionApprove, s))
	assert.True(t, Evaluate(49, domain.ReviewActionSkip, s))
	assert.False(t, Evaluate(50, domain.ReviewActionSkip, s))

	odd := settings(71, 30)
	assert.False(t, Evaluate(50, domain.ReviewActionApprove, odd))
	assert.True(t, Evaluate(51, domain.ReviewActionApprove, odd))
}

func feedback(score int, action domain.ReviewAction, correct bool) *domain.ScoringFeedback {
	return &domain.ScoringFeedback{AIScore: score, UserAction: action, IsCorrect: correct}
}

func TestSummarize(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		m := Summarize(nil)
		assert.Equal(t, 0, m.TotalReviews)
		assert.Nil(t, m.Accuracy)
		assert.Nil(t, m.ScoreGap)
		assert.Nil(t, m.PrecisionAt10)
	})

	t.Run("mixed", func(t *testing.T) {
		m := Summarize([]*domain.ScoringFeedback{
			feedback(90, domain.ReviewActionApprove, true),
			feedback(75, domain.ReviewActionApprove, true),
			feedback(40, domain.ReviewActionApprove, false),
			feedback(20, domain.ReviewActionSkip, true),
			feedback(65, domain.ReviewActionSkip, false),
		})

		assert.Equal(t, 5, m.TotalReviews)
		require.NotNil(t, m.AvgApprovedScore)
		assert.Equal(t, 68, *m.AvgApprovedScore)
		require.NotNil(t, m.AvgSkippedScore)
		assert.Equal(t, 43, *m.AvgSkippedScore)
		require.NotNil(t, m.ScoreGap)
		assert.Equal(t, 26, *m.ScoreGap)
		require.NotNil(t, m.Accuracy)
		assert.Equal(t, 60, *m.Accuracy)
		require.NotNil(t, m.PrecisionAt10)
		assert.Equal(t, 60, *m.PrecisionAt10)
	})

	t.Run("only approvals", func(t *testing.T) {
		m := Summarize([]*domain.ScoringFeedback{feedback(80, domain.ReviewActionApprove, true)})
		assert.Nil(t, m.AvgSkippedScore)
		assert.Nil(t, m.ScoreGap)
		assert.Equal(t, 100, *m.PrecisionAt10)
	})

	t.Run("precision uses top ten by score", func(t *testing.T) {
		var fb []*domain.ScoringFeedback
		for i := 0; i < 10; i++ {
			fb = append(fb, feedback(90, domain.ReviewActionApprove, true))
		}
		for i := 0; i < 5; i++ {
			fb = append(fb, feedback(10, domain.ReviewActionSkip, true))
		}
		m := Summarize(fb)
		assert.Equal(t, 100, *m.PrecisionAt10)
		assert.Equal(t, 100, *m.Accuracy)
	})
}

func TestAssign(t *testing.T) {
	p := &domain.Paper{ReviewStatus: domain.ReviewStatusPending}
	Assign(p, 85, settings(70, 30))

	require.NotNil(t, p.RelevanceScore)
	assert.Equal(t, 85, *p.RelevanceScore)
	assert.Equal(t, domain.ReviewStatusAutoApproved, p.ReviewStatus)
}
