package kafka

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propsignal/propsignal/internal/config"
)

type fakeReader struct {
	messages  []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (r *fakeReader) FetchMessage(_ context.Context) (kafka.Message, error) {
	if len(r.messages) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := r.messages[0]
	r.messages = r.messages[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func envelopeMessage(t *testing.T, eventType, key string, payload interface{}) kafka.Message {
	t.Helper()
	envelope, err := NewEventEnvelope(eventType, "test", payload)
	require.NoError(t, err)
	data, err := json.Marshal(envelope)
	require.NoError(t, err)
	return kafka.Message{Topic: TopicForEvent(eventType), Key: []byte(key), Value: data}
}

func testConsumerConfig() config.KafkaConfig {
	return config.KafkaConfig{MaxRetries: 2, RetryBackoff: time.Millisecond}
}

func TestConsumer_DispatchesToHandler(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		envelopeMessage(t, TopicReportCompleted, "rep-1", ReportCompletedPayload{ReportID: "rep-1"}),
	}}
	c := NewConsumerWithReader(reader, testConsumerConfig(), nil, nil)

	var got ReportCompletedPayload
	c.RegisterHandler(TopicReportCompleted, func(_ context.Context, e *EventEnvelope) error {
		return e.DecodePayload(&got)
	})

	err := c.Run(context.Background())
	require.Error(t, err) // loop ends when the fake reader runs dry

	assert.Equal(t, "rep-1", got.ReportID)
	assert.Len(t, reader.committed, 1)
}

func TestConsumer_RetriesThenDeadLetters(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		envelopeMessage(t, TopicReportCompleted, "rep-1", ReportCompletedPayload{ReportID: "rep-1"}),
	}}
	dlqWriter := &fakeWriter{}
	dlq := NewProducerWithWriter(dlqWriter, "worker", nil)
	c := NewConsumerWithReader(reader, testConsumerConfig(), dlq, nil)

	attempts := 0
	c.RegisterHandler(TopicReportCompleted, func(context.Context, *EventEnvelope) error {
		attempts++
		return assert.AnError
	})

	_ = c.Run(context.Background())

	assert.Equal(t, 3, attempts, "initial attempt plus two retries")
	require.Len(t, dlqWriter.messages, 1)
	assert.Equal(t, TopicDeadLetter, dlqWriter.messages[0].Topic)
	// The poison message is still committed so the group moves on.
	assert.Len(t, reader.committed, 1)
}

func TestConsumer_UnhandledEventTypeIsSkipped(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		envelopeMessage(t, TopicAnalysisDeleted, "fa-1", map[string]string{}),
	}}
	c := NewConsumerWithReader(reader, testConsumerConfig(), nil, nil)

	_ = c.Run(context.Background())
	assert.Len(t, reader.committed, 1)
}

func TestConsumer_UndecodableMessageGoesToDeadLetter(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		{Topic: TopicReportCompleted, Key: []byte("rep-1"), Value: []byte("{broken")},
	}}
	dlqWriter := &fakeWriter{}
	dlq := NewProducerWithWriter(dlqWriter, "worker", nil)
	c := NewConsumerWithReader(reader, testConsumerConfig(), dlq, nil)

	_ = c.Run(context.Background())
	require.Len(t, dlqWriter.messages, 1)
	assert.Equal(t, TopicDeadLetter, dlqWriter.messages[0].Topic)
}

func TestEventEnvelope_DecodeEmptyPayload(t *testing.T) {
	e := &EventEnvelope{Payload: nil}
	var dest map[string]string
	assert.Error(t, e.DecodePayload(&dest))
}
