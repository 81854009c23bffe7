package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

// TopicPrefix namespaces every topic this service writes.
const TopicPrefix = "storefront"

// envelopeVersion is bumped when Event changes incompatibly.
const envelopeVersion = 1

// Topic builds "<prefix>.<domain>.<action>", e.g. storefront.address.created.
func Topic(domain, action string) string {
	return TopicPrefix + "." + domain + "." + action
}

// Event is the envelope for every message this service publishes. The
// aggregate ID doubles as the partition key.
type Event struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	Version       int             `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Source        string          `json:"source"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent marshals data into a fresh envelope stamped with a random ID and
// the current UTC time. Event type and aggregate ID are required.
func NewEvent(eventType, aggregateID, aggregateType, source string, data any) (*Event, error) {
	if eventType == "" || aggregateID == "" {
		return nil, errors.New("event: type and aggregate id are required")
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("event %s: encode data: %w", eventType, err)
	}

	return &Event{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Version:       envelopeVersion,
		Timestamp:     time.Now().UTC(),
		Source:        source,
		Data:          raw,
	}, nil
}

// WithCorrelationID sets the correlation ID and returns e.
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// Message builds the kafka message for topic. Routing fields are copied to
// headers so consumers can filter without decoding the value, and the trace
// context in ctx is injected alongside them.
func (e *Event) Message(ctx context.Context, topic string) (kafka.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}

	headers := []kafka.Header{
		{Key: "event_type", Value: []byte(e.EventType)},
		{Key: "source", Value: []byte(e.Source)},
	}
	if e.CorrelationID != "" {
		headers = append(headers, kafka.Header{Key: "correlation_id", Value: []byte(e.CorrelationID)})
	}
	otel.GetTextMapPropagator().Inject(ctx, NewHeaderCarrier(&headers))

	return kafka.Message{
		Topic:   topic,
		Key:     []byte(e.AggregateID),
		Value:   value,
		Headers: headers,
	}, nil
}

// UnmarshalEvent decodes an envelope written by Message.
func UnmarshalEvent(b []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &e, nil
}

// UnmarshalData decodes the payload into target.
func (e *Event) UnmarshalData(target any) error {
	return json.Unmarshal(e.Data, target)
}
