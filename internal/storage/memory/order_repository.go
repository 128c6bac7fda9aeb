package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
)

// orderRepositoryInMemory — журнал заказов в порядке записи с индексом по номеру.
type orderRepositoryInMemory struct {
	mu       sync.RWMutex
	journal  []domain.Order
	byNumber map[string]int
	clock    func() time.Time
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return newOrderRepository(func() time.Time { return time.Now().UTC() })
}

func newOrderRepository(clock func() time.Time) *orderRepositoryInMemory {
	return &orderRepositoryInMemory{byNumber: make(map[string]int), clock: clock}
}

func (r *orderRepositoryInMemory) Create(_ context.Context, order domain.Order) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byNumber[order.Number]; taken {
		return domain.Order{}, domain.ErrOrderNumberConflict
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = r.clock()
	}
	order.Items = slices.Clone(order.Items)
	r.byNumber[order.Number] = len(r.journal)
	r.journal = append(r.journal, order)
	return withOwnLines(order), nil
}

func (r *orderRepositoryInMemory) Get(_ context.Context, number string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byNumber[number]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return withOwnLines(r.journal[i]), nil
}

// List отдаёт заказы, новые первыми; при равном CreatedAt позже записанный идёт раньше.
func (r *orderRepositoryInMemory) List(_ context.Context, limit int) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, len(r.journal))
	for i, order := range r.journal {
		result[len(r.journal)-1-i] = order
	}
	slices.SortStableFunc(result, func(a, b domain.Order) int { return b.CreatedAt.Compare(a.CreatedAt) })

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	for i := range result {
		result[i] = withOwnLines(result[i])
	}
	return result, nil
}

// Search фильтрует весь журнал; limit обрезает список уже после сводки.
func (r *orderRepositoryInMemory) Search(ctx context.Context, query string, limit int) ([]domain.Order, domain.HistorySummary, error) {
	all, err := r.List(ctx, 0)
	if err != nil {
		return nil, domain.HistorySummary{}, err
	}
	matched := domain.FilterOrders(all, query)
	summary := domain.Summarize(matched)
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, summary, nil
}

func withOwnLines(order domain.Order) domain.Order {
	order.Items = slices.Clone(order.Items)
	return order
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
