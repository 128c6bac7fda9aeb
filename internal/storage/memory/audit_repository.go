package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
)

// auditRepositoryInMemory хранит журнал изменений каталога в памяти.
type auditRepositoryInMemory struct {
	mu     sync.RWMutex
	events map[string][]domain.AuditEvent
}

// NewAuditRepository создаёт in-memory реализацию AuditRepository.
func NewAuditRepository() domain.AuditRepository {
	return &auditRepositoryInMemory{events: make(map[string][]domain.AuditEvent)}
}

// Append добавляет событие, сохраняя хронологию позиции.
func (r *auditRepositoryInMemory) Append(_ context.Context, event domain.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	events := append(r.events[event.ItemID], event)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Occurred.Before(events[j].Occurred)
	})
	r.events[event.ItemID] = events

	return nil
}

// List возвращает события позиции в хронологическом порядке.
func (r *auditRepositoryInMemory) List(_ context.Context, itemID string) ([]domain.AuditEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := r.events[itemID]
	result := make([]domain.AuditEvent, len(events))
	copy(result, events)
	return result, nil
}

var _ domain.AuditRepository = (*auditRepositoryInMemory)(nil)
