// Package domain provides domain models and business logic for the paper triage service.
package domain

import "fmt"

// SourceTag identifies how a paper entered the collection.
// These values must match the papers.source column check constraint.
type SourceTag string

const (
	// SourceTagAuto marks papers found by keyword search.
	SourceTagAuto     SourceTag = "auto"
	SourceTagRSS      SourceTag = "rss"
	SourceTagCitation SourceTag = "citation"
	SourceTagManual   SourceTag = "manual"
)

// IsValid reports whether the tag is a known provenance.
func (t SourceTag) IsValid() bool {
	switch t {
	case SourceTagAuto, SourceTagRSS, SourceTagCitation, SourceTagManual:
		return true
	default:
		return false
	}
}

// ReviewStatus represents the triage state of a paper.
// These values must match the papers.review_status column check constraint.
type ReviewStatus string

const (
	ReviewStatusPending      ReviewStatus = "pending"
	ReviewStatusApproved     ReviewStatus = "approved"
	ReviewStatusAutoApproved ReviewStatus = "auto_approved"
	ReviewStatusSkipped      ReviewStatus = "skipped"
	ReviewStatusAutoSkipped  ReviewStatus = "auto_skipped"
)

// IsValid reports whether the status is a known review status.
func (s ReviewStatus) IsValid() bool {
	switch s {
	case ReviewStatusPending, ReviewStatusApproved, ReviewStatusAutoApproved,
		ReviewStatusSkipped, ReviewStatusAutoSkipped:
		return true
	default:
		return false
	}
}

// IsApproved returns true for both human and automatic approval.
func (s ReviewStatus) IsApproved() bool {
	return s == ReviewStatusApproved || s == ReviewStatusAutoApproved
}

// ReviewAction is a human triage decision.
type ReviewAction string

const (
	ReviewActionApprove ReviewAction = "approve"
	ReviewActionSkip    ReviewAction = "skip"
)

// IsValid reports whether the action is approve or skip.
func (a ReviewAction) IsValid() bool {
	return a == ReviewActionApprove || a == ReviewActionSkip
}

// Status returns the review status a human action resolves to.
func (a ReviewAction) Status() ReviewStatus {
	if a == ReviewActionApprove {
		return ReviewStatusApproved
	}
	return ReviewStatusSkipped
}

// SourceType identifies an external keyword-search provider.
// The values match the labels stored in keywords.sources.
type SourceType string

const (
	SourceTypeArxiv           SourceType = "arXiv"
	SourceTypeSemanticScholar SourceType = "Semantic Scholar"
	SourceTypeOpenAlex        SourceType = "OpenAlex"
)

// AllSourceTypes returns the supported keyword-search providers in their default order.
func AllSourceTypes() []SourceType {
	return []SourceType{SourceTypeArxiv, SourceTypeSemanticScholar, SourceTypeOpenAlex}
}

// IsValidSourceType reports whether st is a supported keyword-search provider.
func IsValidSourceType(st SourceType) bool {
	for _, s := range AllSourceTypes() {
		if s == st {
			return true
		}
	}
	return false
}

// ReviewBreakdown counts the review statuses assigned during a collection unit.
type ReviewBreakdown struct {
	AutoApproved int `json:"auto_approved"`
	Pending      int `json:"pending"`
	AutoSkipped  int `json:"auto_skipped"`
}

// Add increments the counter for the given status. Statuses set by humans are ignored.
func (b *ReviewBreakdown) Add(status ReviewStatus) {
	switch status {
	case ReviewStatusAutoApproved:
		b.AutoApproved++
	case ReviewStatusPending:
		b.Pending++
	case ReviewStatusAutoSkipped:
		b.AutoSkipped++
	}
}

// Merge adds the counters of other into b.
func (b *ReviewBreakdown) Merge(other ReviewBreakdown) {
	b.AutoApproved += other.AutoApproved
	b.Pending += other.Pending
	b.AutoSkipped += other.AutoSkipped
}

// Total returns the number of counted papers.
func (b ReviewBreakdown) Total() int {
	return b.AutoApproved + b.Pending + b.AutoSkipped
}

// String renders the counters for collection log messages.
func (b ReviewBreakdown) String() string {
	return fmt.Sprintf("(auto-approved: %d, pending: %d, auto-skipped: %d)", b.AutoApproved, b.Pending, b.AutoSkipped)
}
