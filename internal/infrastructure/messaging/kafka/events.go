package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/deid-reconcile/internal/domain/phi"
	"github.com/turtacn/deid-reconcile/pkg/errors"
)

// Event types carried in the envelope and the event_type header.
const (
	EventAnnotationFinalized = "annotation.finalized"
	EventRunCompleted        = "annotation.run_completed"
)

const (
	eventSource   = "deidrecon"
	schemaVersion = "v1"
)

// EventEnvelope wraps every published payload.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	RunID         string          `json:"run_id"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

// AnnotationPayload is one finalized annotation.
type AnnotationPayload struct {
	DocumentID string `json:"document_id"`
	Category   string `json:"category"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Text       string `json:"text"`
	Normalized string `json:"normalized,omitempty"`
}

// RunCompletedPayload closes a run's event stream.
type RunCompletedPayload struct {
	Annotations int `json:"annotations"`
	Failed      int `json:"failed"`
}

// NewAnnotationPayload maps a record onto the wire payload.
func NewAnnotationPayload(r phi.Record) AnnotationPayload {
	norm, _ := r.Normalized()
	return AnnotationPayload{
		DocumentID: r.DocumentID(),
		Category:   string(r.Category()),
		Start:      r.Start,
		End:        r.End,
		Text:       r.Text(),
		Normalized: norm,
	}
}

// NewEventEnvelope marshals payload into a fresh envelope.
func NewEventEnvelope(eventType, runID string, ts time.Time, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        eventSource,
		RunID:         runID,
		Timestamp:     ts.UTC(),
		SchemaVersion: schemaVersion,
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the payload into target.  An empty payload leaves
// target untouched.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal payload")
	}
	return nil
}

//Personal.AI order the ending
