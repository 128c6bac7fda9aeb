package sales

import (
	"encoding/json"
	"fmt"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
)

// LocalPublisher — domain.OutboxPublisher без брокера: события outbox
// сразу применяются к проектору. Используется, когда Kafka не настроена.
type LocalPublisher struct {
	projector *Projector
}

func NewLocalPublisher(projector *Projector) *LocalPublisher {
	return &LocalPublisher{projector: projector}
}

func (p *LocalPublisher) Publish(event domain.OutboxMessage) error {
	if event.EventType != domain.EventTypeOrderPaid {
		return nil
	}

	var paid domain.OrderPaidEvent
	if err := json.Unmarshal(event.Payload, &paid); err != nil {
		return fmt.Errorf("decode order.paid payload: %w", err)
	}
	p.projector.Apply(paid)
	return nil
}

var _ domain.OutboxPublisher = (*LocalPublisher)(nil)
