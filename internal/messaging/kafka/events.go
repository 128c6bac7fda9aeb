package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
)

// Topics кассы.
const (
	TopicOrderEvents     = "cafe.order.events"
	TopicDeadLetterQueue = "cafe.dlq"
)

// Заголовки сообщений. Первые три ставит outbox publisher, следующие
// четыре DLQ, HeaderReplayedFrom — dlq-reprocess.
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderMessageID     = "x-message-id"

	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"

	HeaderReplayedFrom = "x-replayed-from"
)

// HeaderValue возвращает первый заголовок key.
func HeaderValue(headers []*sarama.RecordHeader, key string) (string, bool) {
	for _, header := range headers {
		if header != nil && string(header.Key) == key {
			return string(header.Value), true
		}
	}
	return "", false
}

// ErrUnexpectedEventType — конверт несёт событие другого типа.
var ErrUnexpectedEventType = errors.New("unexpected event type")

// Envelope — outbox-сообщение в том виде, в каком оно лежит в топике.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// NewEnvelope оборачивает outbox-сообщение.
func NewEnvelope(msg domain.OutboxMessage, publishedAt time.Time) Envelope {
	return Envelope{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       json.RawMessage(msg.Payload),
		PublishedAt:   publishedAt.UTC(),
	}
}

// ParseEnvelope разбирает конверт из сообщения Kafka.
func ParseEnvelope(message *sarama.ConsumerMessage) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(message.Value, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	return env, nil
}

// OrderPaid декодирует полезную нагрузку order.paid.
func (e Envelope) OrderPaid() (domain.OrderPaidEvent, error) {
	if e.EventType != domain.EventTypeOrderPaid {
		return domain.OrderPaidEvent{}, fmt.Errorf("%w: %q", ErrUnexpectedEventType, e.EventType)
	}
	var event domain.OrderPaidEvent
	if err := json.Unmarshal(e.Payload, &event); err != nil {
		return domain.OrderPaidEvent{}, fmt.Errorf("failed to unmarshal order.paid payload: %w", err)
	}
	return event, nil
}
