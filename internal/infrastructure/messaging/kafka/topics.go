// Package kafka carries report and analysis lifecycle events between the
// API process and the background workers.
package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/propsignal/propsignal/pkg/errors"
)

// Topics.  Event types map onto topics one-to-one except the dead letter
// topic, which collects messages that exhausted their retries.
const (
	TopicReportCompleted   = "cma.report.completed"
	TopicReportUpdated     = "cma.report.updated"
	TopicReportDeleted     = "cma.report.deleted"
	TopicAnalysisCompleted = "flip.analysis.completed"
	TopicAnalysisDeleted   = "flip.analysis.deleted"
	TopicAnalysisRequested = "analysis.requested"
	TopicDeadLetter        = "dead_letter.default"
)

// EventEnvelope standardizes event messages on the wire.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// ReportCompletedPayload notifies the archival worker that a report is ready
// to persist as a durable document.
type ReportCompletedPayload struct {
	ReportID    string    `json:"report_id"`
	PropertyID  string    `json:"property_id"`
	City        string    `json:"city"`
	Mid         string    `json:"mid,omitempty"`
	Confidence  string    `json:"confidence"`
	CompletedAt time.Time `json:"completed_at"`
}

// AnalysisRequestedPayload asks the worker to re-run the valuation behind an
// existing report, e.g. after a nightly market snapshot refresh.
type AnalysisRequestedPayload struct {
	ReportID    string    `json:"report_id"`
	Reason      string    `json:"reason,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// AnalysisCompletedPayload summarizes a finished flip analysis.
type AnalysisCompletedPayload struct {
	AnalysisID   string    `json:"analysis_id"`
	PropertyID   string    `json:"property_id"`
	ReportID     string    `json:"report_id"`
	TotalScore   float64   `json:"total_score"`
	BestStrategy string    `json:"best_strategy"`
	Disqualified bool      `json:"disqualified"`
	CompletedAt  time.Time `json:"completed_at"`
}

// NewEventEnvelope wraps a payload in a versioned envelope.
func NewEventEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal event payload")
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return errors.New(errors.ErrCodeSerialization, "event payload is empty")
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode event payload")
	}
	return nil
}

// TopicForEvent resolves the topic an event type publishes to.  Unknown
// event types land on the dead letter topic rather than being dropped.
func TopicForEvent(eventType string) string {
	switch eventType {
	case TopicReportCompleted, TopicReportUpdated, TopicReportDeleted,
		TopicAnalysisCompleted, TopicAnalysisDeleted, TopicAnalysisRequested:
		return eventType
	default:
		return TopicDeadLetter
	}
}
