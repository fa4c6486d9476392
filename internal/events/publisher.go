// Package events carries review decisions from the HTTP layer to the interest
// learner, either through Kafka or in process.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/paper-triage-service/internal/domain"
	"github.com/helixir/paper-triage-service/internal/observability"
)

// Publisher hands a review decision to the learner.
type Publisher interface {
	PublishReviewDecision(ctx context.Context, decision domain.ReviewDecision) error
}

// MessageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config holds Kafka connection settings.
type Config struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic carries review decisions.
	Topic string
	// GroupID is the consumer group of the learning listener.
	GroupID string
	// BatchTimeout bounds how long the writer waits to fill a batch.
	BatchTimeout time.Duration
}

// KafkaPublisher writes review decisions to a Kafka topic keyed by paper ID,
// so decisions on one paper stay ordered within a partition.
type KafkaPublisher struct {
	writer  MessageWriter
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewKafkaPublisher creates a publisher backed by a kafka-go Writer.
func NewKafkaPublisher(cfg Config, logger zerolog.Logger, metrics *observability.Metrics) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: cfg.BatchTimeout,
	}
	return NewKafkaPublisherWithWriter(writer, logger, metrics)
}

// NewKafkaPublisherWithWriter creates a publisher over an existing writer.
func NewKafkaPublisherWithWriter(writer MessageWriter, logger zerolog.Logger, metrics *observability.Metrics) *KafkaPublisher {
	return &KafkaPublisher{
		writer:  writer,
		logger:  logger.With().Str("component", "review_publisher").Logger(),
		metrics: metrics,
	}
}

// PublishReviewDecision encodes and writes one decision.
func (p *KafkaPublisher) PublishReviewDecision(ctx context.Context, decision domain.ReviewDecision) error {
	value, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("encode review decision: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(decision.PaperID.String()),
		Value: value,
	})
	if err != nil {
		p.metrics.RecordEventPublished("error")
		return fmt.Errorf("publish review decision: %w", err)
	}

	p.metrics.RecordEventPublished("success")
	p.logger.Debug().
		Str("paper_id", decision.PaperID.String()).
		Str("action", string(decision.Action)).
		Msg("published review decision")
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LocalPublisher runs the handler in a background goroutine on a context
// detached from the caller, bounded by a timeout. The caller's request can
// complete before learning finishes.
type LocalPublisher struct {
	handler *Handler
	timeout time.Duration
	logger  zerolog.Logger
}

// DefaultLocalTimeout bounds one in-process learning pass.
const DefaultLocalTimeout = 60 * time.Second

// NewLocalPublisher creates an in-process publisher.
func NewLocalPublisher(handler *Handler, timeout time.Duration, logger zerolog.Logger) *LocalPublisher {
	if timeout <= 0 {
		timeout = DefaultLocalTimeout
	}
	return &LocalPublisher{
		handler: handler,
		timeout: timeout,
		logger:  logger.With().Str("component", "review_publisher").Logger(),
	}
}

// PublishReviewDecision starts learning in the background and returns immediately.
func (p *LocalPublisher) PublishReviewDecision(ctx context.Context, decision domain.ReviewDecision) error {
	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	go func() {
		defer cancel()
		if err := p.handler.Handle(detached, decision); err != nil {
			p.logger.Error().Err(err).
				Str("paper_id", decision.PaperID.String()).
				Msg("in-process learning failed")
		}
	}()
	return nil
}
