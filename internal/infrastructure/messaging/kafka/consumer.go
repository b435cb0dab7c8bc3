package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/propsignal/propsignal/internal/config"
	"github.com/propsignal/propsignal/internal/infrastructure/monitoring/logging"
	"github.com/propsignal/propsignal/pkg/errors"
)

// Handler processes one decoded event.  Returning an error triggers the
// retry cycle; exhausted messages go to the dead letter topic.
type Handler func(ctx context.Context, envelope *EventEnvelope) error

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer runs a consumer-group loop over the given topics, dispatching
// each message to the handler registered for its event type.
type Consumer struct {
	reader       ReaderInterface
	dlq          *Producer
	handlers     map[string]Handler
	maxRetries   int
	retryBackoff time.Duration
	logger       logging.Logger
}

// NewConsumer builds a group consumer for the topics.
func NewConsumer(cfg config.KafkaConfig, topics []string, dlq *Producer, logger logging.Logger) *Consumer {
	if logger == nil {
		logger = logging.NewNop()
	}
	startOffset := kafka.LastOffset
	if cfg.AutoOffsetReset == "earliest" {
		startOffset = kafka.FirstOffset
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: topics,
		StartOffset: startOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return newConsumer(reader, cfg, dlq, logger)
}

// NewConsumerWithReader wraps an existing reader; used by tests.
func NewConsumerWithReader(reader ReaderInterface, cfg config.KafkaConfig, dlq *Producer, logger logging.Logger) *Consumer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return newConsumer(reader, cfg, dlq, logger)
}

func newConsumer(reader ReaderInterface, cfg config.KafkaConfig, dlq *Producer, logger logging.Logger) *Consumer {
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	backoff := cfg.RetryBackoff
	if backoff == 0 {
		backoff = 500 * time.Millisecond
	}
	return &Consumer{
		reader:       reader,
		dlq:          dlq,
		handlers:     make(map[string]Handler),
		maxRetries:   maxRetries,
		retryBackoff: backoff,
		logger:       logger.Named("kafka_consumer"),
	}
}

// RegisterHandler binds a handler to an event type.  Must be called before
// Run.
func (c *Consumer) RegisterHandler(eventType string, h Handler) {
	c.handlers[eventType] = h
}

// Run consumes until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, errors.ErrCodeMessagingError, "failed to fetch message")
		}
		c.process(ctx, msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("commit failed",
				logging.String("topic", msg.Topic),
				logging.Err(err),
			)
		}
	}
}

// process dispatches one message, retrying handler failures with a linear
// backoff before giving up to the dead letter topic.  The message is always
// committed afterward; redelivery of poison messages helps nobody.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	var envelope EventEnvelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		c.logger.Error("undecodable message",
			logging.String("topic", msg.Topic),
			logging.Err(err),
		)
		c.sendToDeadLetter(ctx, msg, "undecodable envelope")
		return
	}

	handler, ok := c.handlers[envelope.EventType]
	if !ok {
		c.logger.Warn("no handler for event type",
			logging.String("event_type", envelope.EventType),
		)
		return
	}

	var err error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempt) * c.retryBackoff):
			}
		}
		if err = handler(ctx, &envelope); err == nil {
			return
		}
		c.logger.Warn("handler failed",
			logging.String("event_type", envelope.EventType),
			logging.String("event_id", envelope.EventID),
			logging.Int("attempt", attempt+1),
			logging.Err(err),
		)
	}
	c.sendToDeadLetter(ctx, msg, err.Error())
}

func (c *Consumer) sendToDeadLetter(ctx context.Context, msg kafka.Message, reason string) {
	if c.dlq == nil {
		return
	}
	payload := map[string]string{
		"origin_topic": msg.Topic,
		"reason":       reason,
		"value":        string(msg.Value),
	}
	if err := c.dlq.Publish(ctx, TopicDeadLetter, string(msg.Key), payload); err != nil {
		c.logger.Error("dead letter publish failed", logging.Err(err))
	}
}

// Close shuts the reader down.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
