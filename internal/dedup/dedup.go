// Package dedup removes duplicate papers within a batch, across a run, and
// against stored papers. A paper's identity is its DOI when present, else its
// lowercased trimmed title.
package dedup

import (
	"context"
	"fmt"
	"strings"

	"github.com/helixir/paper-triage-service/internal/domain"
)

// Key returns the identity of p: the lowercased DOI when present, else the
// lowercased trimmed original title. DOIs compare case-insensitively, as the
// stored unique index does.
func Key(p *domain.Paper) string {
	if doi := p.DOIValue(); doi != "" {
		return strings.ToLower(doi)
	}
	return domain.NormalizeTitle(p.TitleOriginal)
}

// Dedupe removes same-batch duplicates. The first occurrence of each key wins
// and the order of survivors is preserved. Nil entries are dropped.
func Dedupe(papers []*domain.Paper) []*domain.Paper {
	seen := make(map[string]struct{}, len(papers))
	out := make([]*domain.Paper, 0, len(papers))
	for _, p := range papers {
		if p == nil {
			continue
		}
		k := Key(p)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}

// FilterByJournals keeps papers whose venue contains any of journals,
// case-insensitively. An empty list accepts every paper; papers without a
// venue are rejected when the list is non-empty.
func FilterByJournals(papers []*domain.Paper, journals []string) []*domain.Paper {
	needles := make([]string, 0, len(journals))
	for _, j := range journals {
		if j = strings.ToLower(strings.TrimSpace(j)); j != "" {
			needles = append(needles, j)
		}
	}
	if len(needles) == 0 {
		return papers
	}

	out := make([]*domain.Paper, 0, len(papers))
	for _, p := range papers {
		venue := strings.ToLower(p.JournalValue())
		if venue == "" {
			continue
		}
		for _, n := range needles {
			if strings.Contains(venue, n) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// KeyStore looks up which DOIs and titles are already stored.
type KeyStore interface {
	ExistingKeys(ctx context.Context, dois, titles []string) (*domain.PaperKeys, error)
}

// Filter removes papers that already exist in storage.
type Filter struct {
	store KeyStore
}

// NewFilter creates a Filter backed by store.
func NewFilter(store KeyStore) *Filter {
	return &Filter{store: store}
}

// FilterExisting drops papers whose DOI or title is already stored, using a
// single storage read. A read failure is returned to the caller.
func (f *Filter) FilterExisting(ctx context.Context, papers []*domain.Paper) ([]*domain.Paper, error) {
	if len(papers) == 0 {
		return papers, nil
	}

	dois := make([]string, 0, len(papers))
	titles := make([]string, 0, len(papers))
	for _, p := range papers {
		if doi := p.DOIValue(); doi != "" {
			dois = append(dois, strings.ToLower(doi))
		}
		titles = append(titles, domain.NormalizeTitle(p.TitleOriginal))
	}

	existing, err := f.store.ExistingKeys(ctx, dois, titles)
	if err != nil {
		return nil, fmt.Errorf("looking up existing papers: %w", err)
	}
	if existing == nil || (len(existing.DOIs) == 0 && len(existing.Titles) == 0) {
		return papers, nil
	}

	storedDOIs := make(map[string]struct{}, len(existing.DOIs))
	for _, d := range existing.DOIs {
		storedDOIs[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	storedTitles := make(map[string]struct{}, len(existing.Titles))
	for _, t := range existing.Titles {
		storedTitles[domain.NormalizeTitle(t)] = struct{}{}
	}

	out := make([]*domain.Paper, 0, len(papers))
	for _, p := range papers {
		if doi := p.DOIValue(); doi != "" {
			if _, ok := storedDOIs[strings.ToLower(doi)]; ok {
				continue
			}
		}
		if _, ok := storedTitles[domain.NormalizeTitle(p.TitleOriginal)]; ok {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// SeenSet accumulates keys across one run. It is not safe for concurrent use.
type SeenSet struct {
	keys map[string]struct{}
}

// NewSeenSet returns an empty set.
func NewSeenSet() *SeenSet {
	return &SeenSet{keys: make(map[string]struct{})}
}

// Filter removes papers whose key was seen earlier in the run and records
// the keys of the survivors.
func (s *SeenSet) Filter(papers []*domain.Paper) []*domain.Paper {
	out := make([]*domain.Paper, 0, len(papers))
	for _, p := range papers {
		k := Key(p)
		if _, ok := s.keys[k]; ok {
			continue
		}
		s.keys[k] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Len returns the number of recorded keys.
func (s *SeenSet) Len() int {
	return len(s.keys)
}
