package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/propsignal/propsignal/internal/config"
	"github.com/propsignal/propsignal/internal/infrastructure/monitoring/logging"
	"github.com/propsignal/propsignal/pkg/errors"
)

var ErrProducerClosed = errors.New(errors.ErrCodeMessagingError, "producer is closed")

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes envelope-wrapped events keyed by entity ID, so all
// events for one report land on one partition in order.  It satisfies the
// application-layer Publisher contracts.
type Producer struct {
	writer WriterInterface
	source string
	logger logging.Logger
	closed atomic.Bool

	sent   atomic.Int64
	failed atomic.Int64
}

// NewProducer builds a producer over the configured brokers.
func NewProducer(cfg config.KafkaConfig, source string, logger logging.Logger) *Producer {
	if logger == nil {
		logger = logging.NewNop()
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout == 0 {
		batchTimeout = time.Second
	}
	retries := cfg.ProducerRetries
	if retries == 0 {
		retries = 3
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  retries + 1,
		BatchTimeout: batchTimeout,
	}
	return &Producer{writer: writer, source: source, logger: logger.Named("kafka_producer")}
}

// NewProducerWithWriter wraps an existing writer; used by tests.
func NewProducerWithWriter(w WriterInterface, source string, logger logging.Logger) *Producer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Producer{writer: w, source: source, logger: logger.Named("kafka_producer")}
}

// Publish wraps the payload in an envelope and writes it to the event's
// topic.
func (p *Producer) Publish(ctx context.Context, eventType string, key string, payload interface{}) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	envelope, err := NewEventEnvelope(eventType, p.source, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal event envelope")
	}

	msg := kafka.Message{
		Topic: TopicForEvent(eventType),
		Key:   []byte(key),
		Value: data,
		Time:  envelope.Timestamp,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.failed.Add(1)
		p.logger.Error("event publish failed",
			logging.String("event_type", eventType),
			logging.String("key", key),
			logging.Err(err),
		)
		return errors.Wrap(err, errors.ErrCodeMessagingError, "failed to publish event")
	}
	p.sent.Add(1)
	p.logger.Debug("event published",
		logging.String("event_type", eventType),
		logging.String("key", key),
	)
	return nil
}

// Stats reports sent/failed counters.
func (p *Producer) Stats() (sent, failed int64) {
	return p.sent.Load(), p.failed.Load()
}

// Close flushes and shuts the writer down.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.writer.Close()
}
