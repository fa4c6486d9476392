package learning

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-triage-service/internal/domain"
	"github.com/helixir/paper-triage-service/internal/llm"
	"github.com/helixir/paper-triage-service/internal/observability"
)

type stubProvider struct {
	text  string
	err   error
	calls []llm.Request
}

func (s *stubProvider) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	s.calls = append(s.calls, req)
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Response{Text: s.text}, nil
}

func (s *stubProvider) Provider() string { return "stub" }
func (s *stubProvider) Model() string    { return "stub-model" }

type memoryStore struct {
	interests []*domain.Interest
	failOn    string
	listErr   error
}

func (m *memoryStore) ListInterests(context.Context) ([]*domain.Interest, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*domain.Interest, 0, len(m.interests))
	for _, in := range m.interests {
		cp := *in
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memoryStore) CreateInterest(_ context.Context, in *domain.Interest) error {
	if domain.SameLabel(in.Label, m.failOn) {
		return errors.New("insert failed")
	}
	cp := *in
	m.interests = append(m.interests, &cp)
	return nil
}

func (m *memoryStore) UpdateInterestWeight(_ context.Context, id uuid.UUID, weight float64) error {
	for _, in := range m.interests {
		if in.ID == id {
			if domain.SameLabel(in.Label, m.failOn) {
				return errors.New("update failed")
			}
			in.Weight = weight
			return nil
		}
	}
	return domain.NewNotFoundError("interest", id.String())
}

func (m *memoryStore) weight(label string, typ domain.InterestType) (float64, bool) {
	for _, in := range m.interests {
		if in.Type == typ && domain.SameLabel(in.Label, label) {
			return in.Weight, true
		}
	}
	return 0, false
}

func paper() *domain.Paper {
	return &domain.Paper{
		ID:              uuid.New(),
		TitleOriginal:   "Graph Networks for Traffic Forecasting",
		TitleTranslated: domain.StringPtr("交通予測のためのグラフネットワーク"),
		Summary:         domain.StringPtr("A GNN approach."),
		Abstract:        domain.StringPtr("never sent"),
	}
}

func TestParseKeywords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
		ok   bool
	}{
		{name: "bare array", text: `["GNN", "traffic"]`, want: []string{"GNN", "traffic"}, ok: true},
		{name: "keywords object", text: `{"keywords": ["a", "b"]}`, want: []string{"a", "b"}, ok: true},
		{name: "other array field", text: `{"topics": ["x"]}`, want: []string{"x"}, ok: true},
		{name: "fenced", text: "```json\n[\"fenced\"]\n```", want: []string{"fenced"}, ok: true},
		{name: "drops non strings and blanks", text: `["ok", 3, null, "  ", " trimmed "]`, want: []string{"ok", "trimmed"}, ok: true},
		{name: "object without array", text: `{"keywords": "nope"}`, ok: false},
		{name: "not json", text: "GNN, traffic", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseKeywords(tt.text)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestExtractKeywords_Request(t *testing.T) {
	provider := &stubProvider{text: `["GNN"]`}
	l := NewLearner(provider, &memoryStore{}, zerolog.Nop(), nil)

	assert.Equal(t, []string{"GNN"}, l.ExtractKeywords(context.Background(), paper()))
	require.Len(t, provider.calls, 1)
	req := provider.calls[0]
	assert.True(t, req.JSON)
	assert.Equal(t, 0.3, req.Temperature)
	assert.Equal(t, 300, req.MaxTokens)
	assert.Contains(t, req.Prompt, "Graph Networks for Traffic Forecasting")
	assert.Contains(t, req.Prompt, "交通予測")
	assert.Contains(t, req.Prompt, "A GNN approach.")
	assert.NotContains(t, req.Prompt, "never sent")
}

func TestExtractKeywords_Failures(t *testing.T) {
	l := NewLearner(&stubProvider{err: errors.New("down")}, &memoryStore{}, zerolog.Nop(), nil)
	assert.Empty(t, l.ExtractKeywords(context.Background(), paper()))

	l = NewLearner(&stubProvider{text: "not json"}, &memoryStore{}, zerolog.Nop(), nil)
	assert.Empty(t, l.ExtractKeywords(context.Background(), paper()))

	l = NewLearner(nil, &memoryStore{}, zerolog.Nop(), nil)
	assert.Empty(t, l.ExtractKeywords(context.Background(), paper()))
}

func TestLearnFromApproval(t *testing.T) {
	store := &memoryStore{interests: []*domain.Interest{
		{ID: uuid.New(), Label: "gnn", Weight: 1.0, Type: domain.InterestTypeLearned},
		{ID: uuid.New(), Label: "Traffic", Weight: 1.5, Type: domain.InterestTypeManual},
	}}
	metrics := observability.NewMetrics("test_learning_approval")
	l := NewLearner(&stubProvider{text: `{"keywords": ["GNN", "traffic"]}`}, store, zerolog.Nop(), metrics)

	labels, err := l.LearnFromApproval(context.Background(), paper())
	require.NoError(t, err)
	assert.Equal(t, []string{"GNN", "traffic"}, labels)

	w, ok := store.weight("gnn", domain.InterestTypeLearned)
	require.True(t, ok)
	assert.Equal(t, 1.1, w)

	manual, _ := store.weight("traffic", domain.InterestTypeManual)
	assert.Equal(t, 1.5, manual)
	learned, ok := store.weight("traffic", domain.InterestTypeLearned)
	require.True(t, ok)
	assert.Equal(t, domain.DefaultInterestWeight, learned)
}

func TestLearnFromApproval_Monotonic(t *testing.T) {
	store := &memoryStore{}
	l := NewLearner(&stubProvider{text: `["attention"]`}, store, zerolog.Nop(), nil)

	prev := 0.0
	for i := 0; i < 15; i++ {
		_, err := l.LearnFromApproval(context.Background(), paper())
		require.NoError(t, err)
		w, _ := store.weight("attention", domain.InterestTypeLearned)
		assert.LessOrEqual(t, w, domain.MaxInterestWeight)
		if prev < domain.MaxInterestWeight {
			assert.Greater(t, w, prev)
		} else {
			assert.Equal(t, domain.MaxInterestWeight, w)
		}
		prev = w
	}
	assert.Len(t, store.interests, 1)
	assert.Equal(t, domain.MaxInterestWeight, prev)
}

func TestLearnFromApproval_StorageErrors(t *testing.T) {
	store := &memoryStore{failOn: "broken"}
	l := NewLearner(&stubProvider{text: `["broken", "fine"]`}, store, zerolog.Nop(), nil)

	labels, err := l.LearnFromApproval(context.Background(), paper())
	require.NoError(t, err)
	assert.Equal(t, []string{"broken", "fine"}, labels)
	_, ok := store.weight("fine", domain.InterestTypeLearned)
	assert.True(t, ok)
	_, ok = store.weight("broken", domain.InterestTypeLearned)
	assert.False(t, ok)

	store.listErr = errors.New("db down")
	_, err = l.LearnFromApproval(context.Background(), paper())
	assert.Error(t, err)
}

func TestLearnFromSkip(t *testing.T) {
	store := &memoryStore{interests: []*domain.Interest{
		{ID: uuid.New(), Label: "gnn", Weight: 0.2, Type: domain.InterestTypeLearned},
		{ID: uuid.New(), Label: "traffic", Weight: 1.0, Type: domain.InterestTypeManual},
	}}
	l := NewLearner(&stubProvider{text: `["GNN", "traffic", "unseen"]`}, store, zerolog.Nop(), nil)

	require.NoError(t, l.LearnFromSkip(context.Background(), paper()))
	w, _ := store.weight("gnn", domain.InterestTypeLearned)
	assert.Equal(t, 0.15, w)

	require.NoError(t, l.LearnFromSkip(context.Background(), paper()))
	w, _ = store.weight("gnn", domain.InterestTypeLearned)
	assert.Equal(t, 0.1, w)

	require.NoError(t, l.LearnFromSkip(context.Background(), paper()))
	w, _ = store.weight("gnn", domain.InterestTypeLearned)
	assert.Equal(t, domain.MinInterestWeight, w)

	manual, _ := store.weight("traffic", domain.InterestTypeManual)
	assert.Equal(t, 1.0, manual)
	assert.Len(t, store.interests, 2)
}

func TestApply(t *testing.T) {
	store := &memoryStore{}
	l := NewLearner(&stubProvider{text: `["x"]`}, store, zerolog.Nop(), nil)

	require.NoError(t, l.Apply(context.Background(), paper(), domain.ReviewActionApprove))
	assert.Len(t, store.interests, 1)
	require.NoError(t, l.Apply(context.Background(), paper(), domain.ReviewActionSkip))
	assert.ErrorIs(t, l.Apply(context.Background(), paper(), "maybe"), domain.ErrInvalidInput)
}
