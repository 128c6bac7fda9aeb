package domain

import (
	"context"
	"time"
)

// OutboxPublisher доставляет события outbox во внешний брокер.
type OutboxPublisher interface {
	// Повторная доставка того же ID допустима.
	Publish(event OutboxMessage) error
}

// OutboxRepository — очередь событий, записанных вместе с заказом.
// Сообщение проходит pending → sent либо pending → failed; отметки
// отсутствующего ID возвращают ErrOutboxMessageNotFound.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	// PullPending возвращает до limit самых старых pending-сообщений.
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	// MarkFailed снимает сообщение с публикации и запоминает reason.
	MarkFailed(ctx context.Context, id, reason string) error
	// PurgeSent удаляет до limit отправленных сообщений, обновлённых раньше before.
	PurgeSent(ctx context.Context, before time.Time, limit int) (int, error)
}

// AuditRepository хранит историю изменений каталога.
type AuditRepository interface {
	Append(ctx context.Context, event AuditEvent) error
	List(ctx context.Context, itemID string) ([]AuditEvent, error)
}

// IdempotencyRepository хранит исходы мутирующих запросов по ключу идемпотентности.
type IdempotencyRepository interface {
	CreateProcessing(ctx context.Context, key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(ctx context.Context, key string) (IdempotencyRecord, error)
	MarkDone(ctx context.Context, key string, responseBody []byte, statusCode int) error
	MarkFailed(ctx context.Context, key string, responseBody []byte, statusCode int) error
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
}

// OutboxMessage — событие, ожидающее публикации. Payload — JSON.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// OutboxStats — размер и возраст очереди pending.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// Типы агрегатов и событий, которые касса кладёт в outbox.
const (
	AggregateOrder     = "order"
	EventTypeOrderPaid = "order.paid"
)
