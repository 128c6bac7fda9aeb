package domain

import "context"

// MenuRepository описывает требования к хранилищу каталога.
type MenuRepository interface {
	// Create сохраняет позицию и возвращает её с присвоенным ID и метками времени.
	Create(ctx context.Context, item MenuItem) (MenuItem, error)
	// Get возвращает позицию или ErrMenuItemNotFound.
	Get(ctx context.Context, id string) (MenuItem, error)
	// Update перезаписывает редактируемые поля позиции.
	Update(ctx context.Context, item MenuItem) (MenuItem, error)
	// Delete удаляет позицию; отсутствие записи — ErrMenuItemNotFound.
	Delete(ctx context.Context, id string) error
	// ListAll возвращает все позиции, новые первыми.
	ListAll(ctx context.Context) ([]MenuItem, error)
	// ListAvailable возвращает доступные позиции по алфавиту.
	ListAvailable(ctx context.Context) ([]MenuItem, error)
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ и возвращает его с CreatedAt.
	// Занятый номер — ErrOrderNumberConflict.
	Create(ctx context.Context, order Order) (Order, error)
	// Get возвращает заказ по номеру или ErrOrderNotFound.
	Get(ctx context.Context, number string) (Order, error)
	// List возвращает заказы, новые первыми; limit ≤ 0 означает без ограничения.
	List(ctx context.Context, limit int) ([]Order, error)
	// Search возвращает до limit заказов (новые первыми), у которых номер, имя
	// или телефон содержат query без учёта регистра, и сводку по всем совпадениям.
	Search(ctx context.Context, query string, limit int) ([]Order, HistorySummary, error)
}

// CartStore хранит сессии кассы.
type CartStore interface {
	// Create сохраняет новую сессию с версией 1.
	Create(ctx context.Context, session CartSession) (CartSession, error)
	// Get возвращает сессию или ErrCartNotFound.
	Get(ctx context.Context, id string) (CartSession, error)
	// Save записывает сессию, если версия в хранилище совпадает с session.Version,
	// и возвращает её с увеличенной версией. Иначе ErrCartVersionConflict.
	Save(ctx context.Context, session CartSession) (CartSession, error)
	// Delete удаляет сессию; отсутствие записи не ошибка.
	Delete(ctx context.Context, id string) error
}

// OrderOutboxWriter реализуется хранилищами, которые умеют сохранить заказ
// и событие outbox в одной транзакции.
type OrderOutboxWriter interface {
	CreateWithOutbox(ctx context.Context, order Order, msg OutboxMessage) (Order, error)
}
