package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Interest weight bounds and learning steps.
const (
	MinInterestWeight     = 0.1
	MaxInterestWeight     = 2.0
	DefaultInterestWeight = 1.0
	ApprovalWeightStep    = 0.1
	SkipWeightStep        = 0.05
)

// InterestType records who created an interest entry.
type InterestType string

const (
	// InterestTypeManual entries are user-controlled and never adjusted automatically.
	InterestTypeManual InterestType = "manual"
	// InterestTypeLearned entries are created and adjusted by review feedback.
	InterestTypeLearned InterestType = "learned"
)

// IsValid reports whether t is a known interest type.
func (t InterestType) IsValid() bool {
	return t == InterestTypeManual || t == InterestTypeLearned
}

// Interest is a weighted topic in the relevance profile.
type Interest struct {
	ID        uuid.UUID
	Label     string
	Weight    float64
	Type      InterestType
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ClampWeight bounds w to [MinInterestWeight, MaxInterestWeight] and rounds
// to two decimals so repeated steps do not accumulate float drift.
func ClampWeight(w float64) float64 {
	w = float64(int64(w*100+0.5)) / 100
	if w < MinInterestWeight {
		return MinInterestWeight
	}
	if w > MaxInterestWeight {
		return MaxInterestWeight
	}
	return w
}

// SameLabel reports whether two labels are equal ignoring case and surrounding space.
func SameLabel(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// FindLearned returns the learned interest matching label, or nil.
func FindLearned(interests []*Interest, label string) *Interest {
	for _, in := range interests {
		if in.Type == InterestTypeLearned && SameLabel(in.Label, label) {
			return in
		}
	}
	return nil
}
