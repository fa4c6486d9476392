package dedup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-triage-service/internal/domain"
)

func paper(title, doi, journal string) *domain.Paper {
	return &domain.Paper{
		TitleOriginal: title,
		DOI:           domain.StringPtr(doi),
		Journal:       domain.StringPtr(journal),
	}
}

func titles(papers []*domain.Paper) []string {
	out := make([]string, 0, len(papers))
	for _, p := range papers {
		out = append(out, p.TitleOriginal)
	}
	return out
}

func TestKey(t *testing.T) {
	assert.Equal(t, "10.1/x", Key(paper("Anything", " 10.1/x ", "")))
	assert.Equal(t, "graph networks", Key(paper("  Graph Networks ", "", "")))
	assert.Equal(t, "10.1/abc", Key(paper("Anything", "10.1/ABC", "")))
}

func TestDedupe(t *testing.T) {
	t.Run("doi case", func(t *testing.T) {
		out := Dedupe([]*domain.Paper{paper("Upper", "10.1/ABC", ""), paper("Lower", "10.1/abc", "")})
		assert.Equal(t, []string{"Upper"}, titles(out))
	})

	t.Run("doi priority", func(t *testing.T) {
		in := []*domain.Paper{
			paper("First Title", "10.1/x", ""),
			paper("Completely Different", "10.1/x", ""),
		}
		out := Dedupe(in)
		assert.Equal(t, []string{"First Title"}, titles(out))
	})

	t.Run("title fallback ignores case and surrounding space", func(t *testing.T) {
		in := []*domain.Paper{
			paper("Deep Learning", "", ""),
			paper("  deep learning ", "", ""),
			paper("Other", "", ""),
		}
		out := Dedupe(in)
		assert.Equal(t, []string{"Deep Learning", "Other"}, titles(out))
	})

	t.Run("doi and title keys are distinct", func(t *testing.T) {
		in := []*domain.Paper{
			paper("Same Title", "10.1/a", ""),
			paper("Same Title", "", ""),
		}
		assert.Len(t, Dedupe(in), 2)
	})

	t.Run("idempotent", func(t *testing.T) {
		in := []*domain.Paper{
			paper("A", "10.1/a", ""),
			paper("B", "", ""),
			paper("a2", "10.1/a", ""),
			paper("b", "", ""),
			paper("C", "10.1/c", ""),
		}
		once := Dedupe(in)
		twice := Dedupe(once)
		assert.Equal(t, titles(once), titles(twice))
		assert.Equal(t, []string{"A", "B", "C"}, titles(once))
	})

	t.Run("empty and nil entries", func(t *testing.T) {
		assert.Empty(t, Dedupe(nil))
		assert.Len(t, Dedupe([]*domain.Paper{nil, paper("A", "", "")}), 1)
	})
}

func TestFilterByJournals(t *testing.T) {
	in := []*domain.Paper{
		paper("A", "", "Nature Communications"),
		paper("B", "", "Physical Review Letters"),
		paper("C", "", ""),
	}

	tests := []struct {
		name     string
		journals []string
		want     []string
	}{
		{name: "empty list accepts all", journals: nil, want: []string{"A", "B", "C"}},
		{name: "blank entries ignored", journals: []string{" "}, want: []string{"A", "B", "C"}},
		{name: "case-insensitive substring", journals: []string{"NATURE"}, want: []string{"A"}},
		{name: "any match", journals: []string{"review letters", "science"}, want: []string{"B"}},
		{name: "no match", journals: []string{"Cell"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, titles(FilterByJournals(in, tt.journals)))
		})
	}
}

type fakeKeyStore struct {
	keys   *domain.PaperKeys
	err    error
	calls  int
	dois   []string
	titles []string
}

func (f *fakeKeyStore) ExistingKeys(_ context.Context, dois, titles []string) (*domain.PaperKeys, error) {
	f.calls++
	f.dois = dois
	f.titles = titles
	return f.keys, f.err
}

func TestFilter_FilterExisting(t *testing.T) {
	t.Run("removes doi and title matches with one read", func(t *testing.T) {
		store := &fakeKeyStore{keys: &domain.PaperKeys{
			DOIs:   []string{"10.1/X"},
			Titles: []string{"Stored Title"},
		}}
		in := []*domain.Paper{
			paper("New Title", "10.1/x", ""),
			paper("stored title", "", ""),
			paper("Fresh", "10.2/y", ""),
		}

		out, err := NewFilter(store).FilterExisting(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, []string{"Fresh"}, titles(out))
		assert.Equal(t, 1, store.calls)
		assert.Equal(t, []string{"10.1/x", "10.2/y"}, store.dois)
		assert.Equal(t, []string{"new title", "stored title", "fresh"}, store.titles)
	})

	t.Run("empty input skips storage", func(t *testing.T) {
		store := &fakeKeyStore{}
		out, err := NewFilter(store).FilterExisting(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, out)
		assert.Zero(t, store.calls)
	})

	t.Run("storage failure is returned", func(t *testing.T) {
		store := &fakeKeyStore{err: errors.New("db down")}
		_, err := NewFilter(store).FilterExisting(context.Background(), []*domain.Paper{paper("A", "", "")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db down")
	})
}

func TestSeenSet(t *testing.T) {
	seen := NewSeenSet()

	first := seen.Filter([]*domain.Paper{paper("P", "10.1/p", ""), paper("Q", "", "")})
	assert.Equal(t, []string{"P", "Q"}, titles(first))

	second := seen.Filter([]*domain.Paper{paper("P again", "10.1/p", ""), paper("R", "", "")})
	assert.Equal(t, []string{"R"}, titles(second))
	assert.Equal(t, 3, seen.Len())
}
