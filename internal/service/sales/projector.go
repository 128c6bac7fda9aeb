// Package sales строит счётчики продаж из потока событий order.paid.
package sales

import (
	"context"
	"sync"

	"github.com/IBM/sarama"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
	"github.com/vladislavdragonenkov/cafepos/internal/messaging/kafka"
)

const defaultDedupWindow = 10_000

// Recorder принимает проекцию оплаченных заказов.
type Recorder interface {
	RecordOrder(total, gst decimal.Decimal)
	RecordItem(name string, quantity int)
}

// Projector применяет события order.paid к Recorder.
// Доставка at-least-once, поэтому недавние номера заказов запоминаются
// и повторное событие не учитывается дважды.
type Projector struct {
	recorder Recorder
	logger   *log.Entry

	mu     sync.Mutex
	seen   map[string]struct{}
	recent []string
	next   int
}

// NewProjector создаёт проектор. window ≤ 0 — окно по умолчанию.
func NewProjector(recorder Recorder, window int, logger *log.Entry) *Projector {
	if logger == nil {
		logger = log.New().WithField("component", "sales-projector")
	}
	if window <= 0 {
		window = defaultDedupWindow
	}
	return &Projector{
		recorder: recorder,
		logger:   logger,
		seen:     make(map[string]struct{}, window),
		recent:   make([]string, window),
	}
}

// Handle — kafka.MessageHandler для топика cafe.order.events.
// Чужие типы событий пропускаются (по заголовку, если он есть),
// битые сообщения возвращают ошибку и уходят в DLQ.
func (p *Projector) Handle(_ context.Context, message *sarama.ConsumerMessage) error {
	if eventType, ok := kafka.HeaderValue(message.Headers, kafka.HeaderEventType); ok && eventType != domain.EventTypeOrderPaid {
		p.logger.WithField("event_type", eventType).Debug("skipping event")
		return nil
	}

	env, err := kafka.ParseEnvelope(message)
	if err != nil {
		return err
	}
	if env.EventType != domain.EventTypeOrderPaid {
		p.logger.WithField("event_type", env.EventType).Debug("skipping event")
		return nil
	}

	event, err := env.OrderPaid()
	if err != nil {
		return err
	}

	if !p.Apply(event) {
		p.logger.WithField("order_number", event.OrderNumber).Debug("duplicate order.paid ignored")
	}
	return nil
}

// Apply учитывает заказ и возвращает false, если он уже был учтён.
func (p *Projector) Apply(event domain.OrderPaidEvent) bool {
	if !p.remember(event.OrderNumber) {
		return false
	}

	p.recorder.RecordOrder(event.Total, event.GSTTotal)
	for _, line := range event.Lines {
		p.recorder.RecordItem(line.Name, line.Quantity)
	}
	return true
}

func (p *Projector) remember(number string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.seen[number]; ok {
		return false
	}

	if evicted := p.recent[p.next]; evicted != "" {
		delete(p.seen, evicted)
	}
	p.recent[p.next] = number
	p.next = (p.next + 1) % len(p.recent)
	p.seen[number] = struct{}{}
	return true
}
