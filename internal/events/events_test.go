package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-triage-service/internal/domain"
)

type mockPapers struct {
	mock.Mock
}

func (m *mockPapers) GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Paper), args.Error(1)
}

type mockLearner struct {
	mock.Mock
}

func (m *mockLearner) Apply(ctx context.Context, p *domain.Paper, action domain.ReviewAction) error {
	return m.Called(ctx, p, action).Error(0)
}

type fakeReader struct {
	msgs   []kafka.Message
	errs   []error
	closed bool
}

func (r *fakeReader) ReadMessage(context.Context) (kafka.Message, error) {
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		return kafka.Message{}, err
	}
	if len(r.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func decisionMessage(t *testing.T, d domain.ReviewDecision) kafka.Message {
	t.Helper()
	value, err := json.Marshal(d)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(d.PaperID.String()), Value: value}
}

func TestHandler_Handle(t *testing.T) {
	ctx := context.Background()
	paper := &domain.Paper{ID: uuid.New(), TitleOriginal: "Graph transformers"}

	t.Run("applies decision to the stored paper", func(t *testing.T) {
		papers, learner := &mockPapers{}, &mockLearner{}
		papers.On("GetByID", ctx, paper.ID).Return(paper, nil)
		learner.On("Apply", ctx, paper, domain.ReviewActionApprove).Return(nil)

		h := NewHandler(papers, learner, zerolog.Nop(), nil)
		require.NoError(t, h.Handle(ctx, domain.ReviewDecision{PaperID: paper.ID, Action: domain.ReviewActionApprove}))
		learner.AssertExpectations(t)
	})

	t.Run("deleted paper is skipped", func(t *testing.T) {
		papers, learner := &mockPapers{}, &mockLearner{}
		papers.On("GetByID", ctx, paper.ID).Return(nil, domain.NewNotFoundError("paper", paper.ID.String()))

		h := NewHandler(papers, learner, zerolog.Nop(), nil)
		require.NoError(t, h.Handle(ctx, domain.ReviewDecision{PaperID: paper.ID, Action: domain.ReviewActionSkip}))
		learner.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid action is rejected", func(t *testing.T) {
		h := NewHandler(&mockPapers{}, &mockLearner{}, zerolog.Nop(), nil)
		err := h.Handle(ctx, domain.ReviewDecision{PaperID: paper.ID, Action: "star"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("storage failure is returned", func(t *testing.T) {
		papers := &mockPapers{}
		papers.On("GetByID", ctx, paper.ID).Return(nil, errors.New("pool closed"))

		h := NewHandler(papers, &mockLearner{}, zerolog.Nop(), nil)
		assert.Error(t, h.Handle(ctx, domain.ReviewDecision{PaperID: paper.ID, Action: domain.ReviewActionSkip}))
	})
}

func TestListener_Run(t *testing.T) {
	ctx := context.Background()
	approved := &domain.Paper{ID: uuid.New()}
	skipped := &domain.Paper{ID: uuid.New()}

	papers, learner := &mockPapers{}, &mockLearner{}
	papers.On("GetByID", mock.Anything, approved.ID).Return(approved, nil)
	papers.On("GetByID", mock.Anything, skipped.ID).Return(skipped, nil)
	learner.On("Apply", mock.Anything, approved, domain.ReviewActionApprove).Return(nil)
	learner.On("Apply", mock.Anything, skipped, domain.ReviewActionSkip).Return(errors.New("llm down"))

	reader := &fakeReader{
		errs: []error{errors.New("broker unavailable")},
		msgs: []kafka.Message{
			decisionMessage(t, domain.ReviewDecision{PaperID: approved.ID, Action: domain.ReviewActionApprove}),
			{Value: []byte("{not json")},
			decisionMessage(t, domain.ReviewDecision{PaperID: skipped.ID, Action: domain.ReviewActionSkip}),
		},
	}

	l := NewListenerWithReader(reader, NewHandler(papers, learner, zerolog.Nop(), nil), zerolog.Nop())
	require.NoError(t, l.Run(ctx))
	learner.AssertExpectations(t)

	require.NoError(t, l.Close())
	assert.True(t, reader.closed)
}

func TestListener_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := &fakeReader{errs: []error{context.Canceled}}
	l := NewListenerWithReader(reader, NewHandler(&mockPapers{}, &mockLearner{}, zerolog.Nop(), nil), zerolog.Nop())
	assert.ErrorIs(t, l.Run(ctx), context.Canceled)
}

func TestKafkaPublisher(t *testing.T) {
	ctx := context.Background()
	decision := domain.ReviewDecision{
		PaperID:   uuid.New(),
		Action:    domain.ReviewActionApprove,
		DecidedAt: time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC),
	}

	t.Run("keys by paper id", func(t *testing.T) {
		w := &fakeWriter{}
		p := NewKafkaPublisherWithWriter(w, zerolog.Nop(), nil)
		require.NoError(t, p.PublishReviewDecision(ctx, decision))

		require.Len(t, w.msgs, 1)
		assert.Equal(t, decision.PaperID.String(), string(w.msgs[0].Key))
		assert.JSONEq(t, `{"paper_id":"`+decision.PaperID.String()+`","action":"approve","decided_at":"2026-10-19T10:00:00Z"}`, string(w.msgs[0].Value))
	})

	t.Run("write failure is returned", func(t *testing.T) {
		p := NewKafkaPublisherWithWriter(&fakeWriter{err: errors.New("no leader")}, zerolog.Nop(), nil)
		assert.Error(t, p.PublishReviewDecision(ctx, decision))
	})
}

func TestLocalPublisher_OutlivesRequestContext(t *testing.T) {
	paper := &domain.Paper{ID: uuid.New()}
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	papers, learner := &mockPapers{}, &mockLearner{}
	papers.On("GetByID", mock.Anything, paper.ID).Return(paper, nil)
	learner.On("Apply", mock.Anything, paper, domain.ReviewActionApprove).
		Run(func(args mock.Arguments) {
			defer wg.Done()
			<-ctx.Done()
			assert.NoError(t, args.Get(0).(context.Context).Err())
		}).
		Return(nil)

	p := NewLocalPublisher(NewHandler(papers, learner, zerolog.Nop(), nil), time.Second, zerolog.Nop())
	require.NoError(t, p.PublishReviewDecision(ctx, domain.ReviewDecision{PaperID: paper.ID, Action: domain.ReviewActionApprove}))
	cancel()
	wg.Wait()

	learner.AssertExpectations(t)
}
