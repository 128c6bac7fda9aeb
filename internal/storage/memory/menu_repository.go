package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
)

type menuRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.MenuItem
	seq   map[string]int64
	next  int64
}

// NewMenuRepository создаёт in-memory каталог. ID выдаются как UUID.
func NewMenuRepository() domain.MenuRepository {
	return &menuRepositoryInMemory{
		items: make(map[string]domain.MenuItem),
		seq:   make(map[string]int64),
	}
}

func (r *menuRepositoryInMemory) Create(_ context.Context, item domain.MenuItem) (domain.MenuItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	item.ID = uuid.NewString()
	item.CreatedAt = now
	item.UpdatedAt = now
	r.next++
	r.items[item.ID] = item
	r.seq[item.ID] = r.next
	return item, nil
}

func (r *menuRepositoryInMemory) Get(_ context.Context, id string) (domain.MenuItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return domain.MenuItem{}, domain.ErrMenuItemNotFound
	}
	return item, nil
}

func (r *menuRepositoryInMemory) Update(_ context.Context, item domain.MenuItem) (domain.MenuItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[item.ID]
	if !ok {
		return domain.MenuItem{}, domain.ErrMenuItemNotFound
	}
	item.CreatedAt = current.CreatedAt
	item.UpdatedAt = time.Now().UTC()
	r.items[item.ID] = item
	return item, nil
}

func (r *menuRepositoryInMemory) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrMenuItemNotFound
	}
	delete(r.items, id)
	delete(r.seq, id)
	return nil
}

// ListAll возвращает каталог, новые позиции первыми.
func (r *menuRepositoryInMemory) ListAll(_ context.Context) ([]domain.MenuItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.MenuItem, 0, len(r.items))
	for _, item := range r.items {
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return r.seq[result[i].ID] > r.seq[result[j].ID]
	})
	return result, nil
}

// ListAvailable возвращает доступные позиции по имени.
func (r *menuRepositoryInMemory) ListAvailable(_ context.Context) ([]domain.MenuItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.MenuItem, 0, len(r.items))
	for _, item := range r.items {
		if item.Available {
			result = append(result, item)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return strings.Compare(result[i].Name, result[j].Name) < 0
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

var _ domain.MenuRepository = (*menuRepositoryInMemory)(nil)
