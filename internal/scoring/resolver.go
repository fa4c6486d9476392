package scoring

import (
	"math"
	"sort"

	"github.com/helixir/paper-triage-service/internal/domain"
)

// Resolve maps a score to a review status. The approve threshold is checked
// first, so approval wins when the thresholds cross. Both bounds are inclusive.
func Resolve(score int, settings domain.ReviewSettings) domain.ReviewStatus {
	if score >= settings.AutoApproveThreshold {
		return domain.ReviewStatusAutoApproved
	}
	if score <= settings.AutoSkipThreshold {
		return domain.ReviewStatusAutoSkipped
	}
	return domain.ReviewStatusPending
}

// Assign stores score on p and sets the resolved review status.
func Assign(p *domain.Paper, score int, settings domain.ReviewSettings) {
	p.RelevanceScore = &score
	p.ReviewStatus = Resolve(score, settings)
}

// Evaluate reports whether a human action agrees with the score. Approval is
// correct at or above the midpoint of the two thresholds; skip is correct below it.
func Evaluate(score int, action domain.ReviewAction, settings domain.ReviewSettings) bool {
	midpoint := float64(settings.AutoSkipThreshold+settings.AutoApproveThreshold) / 2
	if action == domain.ReviewActionApprove {
		return float64(score) >= midpoint
	}
	return float64(score) < midpoint
}

// Metrics summarizes scoring feedback. Nil fields are undefined for the input.
type Metrics struct {
	TotalReviews     int  `json:"total_reviews"`
	ScoreGap         *int `json:"score_gap"`
	Accuracy         *int `json:"accuracy"`
	PrecisionAt10    *int `json:"precision_at_10"`
	AvgApprovedScore *int `json:"avg_approved_score"`
	AvgSkippedScore  *int `json:"avg_skipped_score"`
}

// Summarize computes accuracy figures over feedback entries. The score gap is
// the difference of the unrounded averages; precision at 10 is the approval
// rate among the ten highest scores.
func Summarize(feedback []*domain.ScoringFeedback) Metrics {
	m := Metrics{TotalReviews: len(feedback)}
	if len(feedback) == 0 {
		return m
	}

	var approvedSum, skippedSum, approvedN, skippedN, correct int
	for _, f := range feedback {
		switch f.UserAction {
		case domain.ReviewActionApprove:
			approvedSum += f.AIScore
			approvedN++
		case domain.ReviewActionSkip:
			skippedSum += f.AIScore
			skippedN++
		}
		if f.IsCorrect {
			correct++
		}
	}

	var avgApproved, avgSkipped float64
	if approvedN > 0 {
		avgApproved = float64(approvedSum) / float64(approvedN)
		m.AvgApprovedScore = intPtr(roundHalfUp(avgApproved))
	}
	if skippedN > 0 {
		avgSkipped = float64(skippedSum) / float64(skippedN)
		m.AvgSkippedScore = intPtr(roundHalfUp(avgSkipped))
	}
	if approvedN > 0 && skippedN > 0 {
		m.ScoreGap = intPtr(roundHalfUp(avgApproved - avgSkipped))
	}

	m.Accuracy = intPtr(roundHalfUp(float64(correct) / float64(len(feedback)) * 100))

	sorted := make([]*domain.ScoringFeedback, len(feedback))
	copy(sorted, feedback)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].AIScore > sorted[j].AIScore })
	top := sorted
	if len(top) > 10 {
		top = top[:10]
	}
	approvedTop := 0
	for _, f := range top {
		if f.UserAction == domain.ReviewActionApprove {
			approvedTop++
		}
	}
	m.PrecisionAt10 = intPtr(roundHalfUp(float64(approvedTop) / float64(len(top)) * 100))

	return m
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

func intPtr(v int) *int {
	return &v
}
