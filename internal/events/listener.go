package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/paper-triage-service/internal/domain"
	"github.com/helixir/paper-triage-service/internal/observability"
)

// PaperGetter loads the paper a decision refers to.
type PaperGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error)
}

// Learner applies a review decision to the interest profile.
type Learner interface {
	Apply(ctx context.Context, p *domain.Paper, action domain.ReviewAction) error
}

// Handler resolves a decision's paper and feeds it to the learner.
type Handler struct {
	papers  PaperGetter
	learner Learner
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewHandler creates a decision handler.
func NewHandler(papers PaperGetter, learner Learner, logger zerolog.Logger, metrics *observability.Metrics) *Handler {
	return &Handler{
		papers:  papers,
		learner: learner,
		logger:  logger.With().Str("component", "review_handler").Logger(),
		metrics: metrics,
	}
}

// Handle applies one decision. A paper deleted since the decision is
// skipped without error.
func (h *Handler) Handle(ctx context.Context, decision domain.ReviewDecision) error {
	if !decision.Action.IsValid() {
		h.metrics.RecordEventConsumed("invalid")
		return domain.NewValidationError("action", "unknown review action")
	}

	paper, err := h.papers.GetByID(ctx, decision.PaperID)
	if err != nil {
		if domain.IsNotFound(err) {
			h.logger.Warn().
				Str("paper_id", decision.PaperID.String()).
				Msg("paper no longer exists, skipping review decision")
			h.metrics.RecordEventConsumed("skipped")
			return nil
		}
		h.metrics.RecordEventConsumed("error")
		return fmt.Errorf("load paper: %w", err)
	}

	if err := h.learner.Apply(ctx, paper, decision.Action); err != nil {
		h.metrics.RecordEventConsumed("error")
		return fmt.Errorf("apply review decision: %w", err)
	}

	h.metrics.RecordEventConsumed("success")
	return nil
}

// MessageReader is the subset of *kafka.Reader used by Listener.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Listener consumes review decisions from Kafka and hands them to the Handler.
type Listener struct {
	reader  MessageReader
	handler *Handler
	logger  zerolog.Logger
}

// NewListener creates a listener reading with a consumer group.
func NewListener(cfg Config, handler *Handler, logger zerolog.Logger) *Listener {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  3 * time.Second,
	})
	return NewListenerWithReader(reader, handler, logger)
}

// NewListenerWithReader creates a listener over an existing reader.
func NewListenerWithReader(reader MessageReader, handler *Handler, logger zerolog.Logger) *Listener {
	return &Listener{
		reader:  reader,
		handler: handler,
		logger:  logger.With().Str("component", "review_listener").Logger(),
	}
}

// Run starts the listener loop. Blocks until context is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	l.logger.Info().Msg("starting review decision listener")

	for {
		msg, err := l.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info().Msg("review decision listener stopped via context cancellation")
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				l.logger.Info().Msg("review decision reader closed")
				return nil
			}
			l.logger.Error().Err(err).Msg("failed to read message from Kafka")
			continue
		}

		l.logger.Debug().
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("received review decision")

		var decision domain.ReviewDecision
		if err := json.Unmarshal(msg.Value, &decision); err != nil {
			l.logger.Error().Err(err).
				Str("raw_value", string(msg.Value)).
				Msg("failed to unmarshal review decision")
			continue
		}

		if err := l.handler.Handle(ctx, decision); err != nil {
			l.logger.Error().Err(err).
				Str("paper_id", decision.PaperID.String()).
				Str("action", string(decision.Action)).
				Msg("failed to handle review decision")
		}
	}
}

// Close closes the Kafka reader.
func (l *Listener) Close() error {
	l.logger.Info().Msg("closing review decision listener")
	return l.reader.Close()
}
