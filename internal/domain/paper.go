package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the layout used for publication dates on the wire and in logs.
const DateLayout = "2006-01-02"

// Paper represents a collected academic paper.
type Paper struct {
	// ID is the internal unique identifier.
	ID uuid.UUID

	// TitleOriginal is the title as published. It is the natural key when DOI is absent.
	TitleOriginal string

	// TitleTranslated is the machine-translated title.
	TitleTranslated *string

	// Authors lists author names in publication order.
	Authors []string

	// Abstract is the paper abstract.
	Abstract *string

	// PublishedDate is the publication date (day precision).
	PublishedDate *time.Time

	// Journal is the venue or journal name.
	Journal *string

	// DOI is the Digital Object Identifier. It is the primary dedup key when present.
	DOI *string

	// URL is the canonical landing page.
	URL string

	// Summary is a short generated summary.
	Summary *string

	// Explanation is a long-form generated explanation.
	Explanation *string

	// Source records how the paper was collected.
	Source SourceTag

	// ReviewStatus is the triage state.
	ReviewStatus ReviewStatus

	// RelevanceScore is the 0-100 score assigned at collection time.
	RelevanceScore *int

	// CitationExploredAt is set once the paper has been used as a citation seed.
	CitationExploredAt *time.Time

	IsFavorite bool
	Memo       *string

	// CollectedAt is when the paper was collected, distinct from row creation.
	CollectedAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NormalizeDOI trims whitespace and a leading resolver prefix from a DOI.
// Returns an empty string when nothing remains.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	lower := strings.ToLower(doi)
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi:"} {
		if strings.HasPrefix(lower, prefix) {
			doi = strings.TrimSpace(doi[len(prefix):])
			break
		}
	}
	return doi
}

// NormalizeTitle lowercases and trims a title for identity comparison.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// HasDOI reports whether the paper carries a non-empty DOI.
func (p *Paper) HasDOI() bool {
	return p.DOI != nil && strings.TrimSpace(*p.DOI) != ""
}

// DOIValue returns the DOI or an empty string.
func (p *Paper) DOIValue() string {
	if p.DOI == nil {
		return ""
	}
	return strings.TrimSpace(*p.DOI)
}

// JournalValue returns the journal name or an empty string.
func (p *Paper) JournalValue() string {
	if p.Journal == nil {
		return ""
	}
	return *p.Journal
}

// AbstractValue returns the abstract or an empty string.
func (p *Paper) AbstractValue() string {
	if p.Abstract == nil {
		return ""
	}
	return *p.Abstract
}

// SeedEligible reports whether the paper may seed citation exploration.
func (p *Paper) SeedEligible() bool {
	return p.CitationExploredAt == nil && (p.IsFavorite || p.ReviewStatus.IsApproved())
}

// StringPtr returns a pointer to s, or nil when s is blank.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// ParseDate parses a YYYY-MM-DD prefix of s. Returns nil when s is not a date.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if len(s) < len(DateLayout) {
		return nil
	}
	t, err := time.Parse(DateLayout, s[:len(DateLayout)])
	if err != nil {
		return nil
	}
	return &t
}

// TruncateDate drops the time-of-day component of t in UTC.
func TruncateDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// PaperKeys lists stored identities that matched an existence lookup.
type PaperKeys struct {
	DOIs   []string
	Titles []string
}
