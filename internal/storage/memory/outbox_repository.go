package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
)

const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"
	outboxStatusFailed  = "failed"
)

// OutboxEntry — снимок служебного состояния сообщения.
type OutboxEntry struct {
	Status    string
	Attempts  int
	LastError string
	UpdatedAt time.Time
}

// OutboxRepository — in-memory transactional outbox. Порядок выдачи
// совпадает с порядком Enqueue.
type OutboxRepository struct {
	mu      sync.RWMutex
	order   []string
	msgs    map[string]domain.OutboxMessage
	entries map[string]*OutboxEntry
	now     func() time.Time
}

// NewOutboxRepository создаёт пустой in-memory outbox.
func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{
		msgs:    make(map[string]domain.OutboxMessage),
		entries: make(map[string]*OutboxEntry),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *OutboxRepository) Enqueue(_ context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if _, exists := r.msgs[msg.ID]; exists {
		return domain.OutboxMessage{}, fmt.Errorf("outbox message %s already enqueued", msg.ID)
	}
	msg.Payload = slices.Clone(msg.Payload)
	msg.CreatedAt = r.now()

	r.order = append(r.order, msg.ID)
	r.msgs[msg.ID] = msg
	r.entries[msg.ID] = &OutboxEntry{Status: outboxStatusPending, UpdatedAt: msg.CreatedAt}
	return msg, nil
}

func (r *OutboxRepository) PullPending(_ context.Context, limit int) ([]domain.OutboxMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	var batch []domain.OutboxMessage
	for _, id := range r.order {
		if len(batch) == limit {
			break
		}
		if r.entries[id].Status == outboxStatusPending {
			msg := r.msgs[id]
			msg.Payload = slices.Clone(msg.Payload)
			batch = append(batch, msg)
		}
	}
	return batch, nil
}

func (r *OutboxRepository) Stats(_ context.Context) (domain.OutboxStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats domain.OutboxStats
	for _, id := range r.order {
		if r.entries[id].Status != outboxStatusPending {
			continue
		}
		if stats.PendingCount == 0 {
			stats.OldestPendingAt = r.msgs[id].CreatedAt
		}
		stats.PendingCount++
	}
	return stats, nil
}

func (r *OutboxRepository) MarkSent(_ context.Context, id string) error {
	return r.transition(id, outboxStatusSent, "")
}

func (r *OutboxRepository) MarkFailed(_ context.Context, id, reason string) error {
	return r.transition(id, outboxStatusFailed, reason)
}

// PurgeSent удаляет отправленные сообщения, отмеченные раньше before.
func (r *OutboxRepository) PurgeSent(_ context.Context, before time.Time, limit int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	r.order = slices.DeleteFunc(r.order, func(id string) bool {
		if limit > 0 && deleted >= limit {
			return false
		}
		entry := r.entries[id]
		if entry.Status != outboxStatusSent || !entry.UpdatedAt.Before(before) {
			return false
		}
		delete(r.msgs, id)
		delete(r.entries, id)
		deleted++
		return true
	})
	return deleted, nil
}

// Entry возвращает служебное состояние сообщения.
func (r *OutboxRepository) Entry(id string) (OutboxEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[id]
	if !ok {
		return OutboxEntry{}, false
	}
	return *entry, true
}

func (r *OutboxRepository) transition(id, status, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrOutboxMessageNotFound, id)
	}
	if entry.Status != outboxStatusPending {
		return nil
	}
	entry.Status = status
	entry.Attempts++
	entry.LastError = reason
	entry.UpdatedAt = r.now()
	return nil
}

var _ domain.OutboxRepository = (*OutboxRepository)(nil)
