// Package till — касса: сессии корзины и оформление заказа.
// Расчёты делает domain.Cart, здесь только чтение и запись состояния.
package till

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
	"github.com/vladislavdragonenkov/cafepos/internal/metrics"
)

// maxMutationAttempts ограничивает повторы изменения корзины при гонке версий.
const maxMutationAttempts = 3

// Dependencies — хранилища и генераторы, нужные кассе.
type Dependencies struct {
	Carts  domain.CartStore
	Menu   domain.MenuRepository
	Orders domain.OrderRepository
	// Outbox используется, только если Orders не умеет писать событие в своей транзакции.
	Outbox  domain.OutboxRepository
	Numbers domain.OrderNumberSource
	Metrics *metrics.CheckoutMetrics
}

// Service управляет сессиями кассы.
type Service struct {
	carts   domain.CartStore
	menu    domain.MenuRepository
	orders  domain.OrderRepository
	outbox  domain.OutboxRepository
	numbers domain.OrderNumberSource
	metrics *metrics.CheckoutMetrics
	retry   RetryConfig
	logger  *log.Entry
	now     func() time.Time
}

// CheckoutResult — сохранённый заказ и очищенная сессия.
type CheckoutResult struct {
	Order   domain.Order
	Session domain.CartSession
}

// NewService создаёт кассу.
func NewService(deps Dependencies, retry RetryConfig, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "till")
	}
	numbers := deps.Numbers
	if numbers == nil {
		numbers = domain.NewOrderNumberGenerator()
	}
	return &Service{
		carts:   deps.Carts,
		menu:    deps.Menu,
		orders:  deps.Orders,
		outbox:  deps.Outbox,
		numbers: numbers,
		metrics: deps.Metrics,
		retry:   retry.normalized(),
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Open создаёт пустую сессию.
func (s *Service) Open(ctx context.Context) (domain.CartSession, error) {
	session, err := s.carts.Create(ctx, domain.CartSession{ID: uuid.NewString()})
	if err != nil {
		return domain.CartSession{}, fmt.Errorf("open cart session: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordCartOpened()
	}
	s.logger.WithField("session_id", session.ID).Debug("cart session opened")
	return session, nil
}

// Get возвращает сессию.
func (s *Service) Get(ctx context.Context, sessionID string) (domain.CartSession, error) {
	return s.carts.Get(ctx, sessionID)
}

// AddItem добавляет одну единицу позиции меню. Позиция должна существовать и быть доступной.
func (s *Service) AddItem(ctx context.Context, sessionID, itemID string) (domain.CartSession, error) {
	item, err := s.menu.Get(ctx, itemID)
	if err != nil {
		return domain.CartSession{}, err
	}
	if !item.Available {
		return domain.CartSession{}, domain.ErrMenuItemUnavailable
	}

	return s.mutate(ctx, sessionID, func(cs domain.CartSession) domain.CartSession {
		cs.Cart = cs.Cart.AddItem(item)
		return cs
	})
}

// ChangeQuantity прибавляет delta к количеству строки; ≤ 0 удаляет строку.
func (s *Service) ChangeQuantity(ctx context.Context, sessionID, itemID string, delta int) (domain.CartSession, error) {
	return s.mutate(ctx, sessionID, func(cs domain.CartSession) domain.CartSession {
		cs.Cart = cs.Cart.ChangeQuantity(itemID, delta)
		return cs
	})
}

// RemoveItem удаляет строку целиком.
func (s *Service) RemoveItem(ctx context.Context, sessionID, itemID string) (domain.CartSession, error) {
	return s.mutate(ctx, sessionID, func(cs domain.CartSession) domain.CartSession {
		cs.Cart = cs.Cart.RemoveItem(itemID)
		return cs
	})
}

// SetCustomer сохраняет имя и телефон клиента как ввёл кассир.
// Пробелы обрезаются при оформлении.
func (s *Service) SetCustomer(ctx context.Context, sessionID string, customer domain.CustomerInfo) (domain.CartSession, error) {
	return s.mutate(ctx, sessionID, func(cs domain.CartSession) domain.CartSession {
		cs.Customer = customer
		return cs
	})
}

// Discard удаляет сессию без оформления.
func (s *Service) Discard(ctx context.Context, sessionID string) error {
	if err := s.carts.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("discard cart session: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordCartClosed()
	}
	return nil
}

// Checkout оформляет заказ: проверка, снимок, запись с повторами и только потом очистка корзины.
// Любая ошибка до подтверждения записи оставляет строки сессии без изменений.
//
// Номер заказа резервируется в сессии до записи, поэтому повторное или
// параллельное оформление той же корзины находит уже сохранённый заказ,
// а не создаёт второй.
func (s *Service) Checkout(ctx context.Context, sessionID string) (CheckoutResult, error) {
	started := time.Now()

	session, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return CheckoutResult{}, err
	}

	numbers := s.numbers
	if session.PendingOrder != "" {
		numbers = fixedNumber(session.PendingOrder)
	}
	order, err := domain.BuildOrderSnapshot(session.Cart, session.Customer, numbers)
	if err != nil {
		s.recordFailure(metrics.CheckoutFailureValidation)
		return CheckoutResult{}, err
	}
	order.CreatedAt = s.now()

	entry := s.logger.WithFields(log.Fields{
		"session_id": sessionID,
		"lines":      len(order.Items),
		"total":      order.TotalAmount.StringFixed(2),
	})

	if session.PendingOrder != order.Number {
		session.PendingOrder = order.Number
		if session, err = s.carts.Save(ctx, session); err != nil {
			s.recordFailure(metrics.CheckoutFailureConflict)
			entry.WithError(err).Warn("cart changed before checkout, nothing persisted")
			return CheckoutResult{}, err
		}
	}

	saved, err := s.persistWithRetry(ctx, order, entry)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNumberConflict) {
			s.recordFailure(metrics.CheckoutFailureConflict)
		} else {
			s.recordFailure(metrics.CheckoutFailurePersist)
		}
		entry.WithError(err).Error("checkout failed, cart kept")
		return CheckoutResult{}, err
	}
	entry = entry.WithField("order_number", saved.Number)

	cleared, err := s.clearAfterCheckout(ctx, session, saved)
	if err != nil {
		// Заказ уже сохранён: сообщаем об успехе, но фиксируем, что корзина не очищена.
		entry.WithError(err).Warn("order saved but cart session was not cleared")
		cleared = session.Reset()
	}

	if s.metrics != nil {
		s.metrics.RecordCompleted(time.Since(started))
	}
	entry.Info("order checked out")

	return CheckoutResult{Order: saved, Session: cleared}, nil
}

// clearAfterCheckout очищает сессию той версии, из которой сделан снимок.
// Если сессию успели изменить, из неё вычитаются только проданные количества;
// если резерв номера уже снят, сессию очистило другое оформление.
func (s *Service) clearAfterCheckout(ctx context.Context, claimed domain.CartSession, order domain.Order) (domain.CartSession, error) {
	cleared, err := s.carts.Save(ctx, claimed.Reset())
	if !errors.Is(err, domain.ErrCartVersionConflict) {
		return cleared, err
	}

	return s.mutate(ctx, claimed.ID, func(cs domain.CartSession) domain.CartSession {
		if cs.PendingOrder != claimed.PendingOrder {
			return cs
		}
		for _, line := range order.Items {
			cs.Cart = cs.Cart.ChangeQuantity(line.ItemID, -line.Quantity)
		}
		if cs.Customer == claimed.Customer {
			cs.Customer = domain.CustomerInfo{}
		}
		cs.PendingOrder = ""
		return cs
	})
}

// persistWithRetry записывает заказ под одним номером. Конфликт номера
// разрешается чтением: если под номером уже лежит эта же продажа (прошлая
// попытка записала заказ, но ответ потерялся), она и возвращается.
// Чужой заказ под тем же номером означает коллизию, и номер меняется.
func (s *Service) persistWithRetry(ctx context.Context, order domain.Order, entry *log.Entry) (domain.Order, error) {
	var lastErr error
	delay := s.retry.InitialDelay

	for attempt := 1; attempt <= s.retry.MaxAttempts; attempt++ {
		saved, err := s.persist(ctx, order)
		if errors.Is(err, domain.ErrOrderNumberConflict) {
			stored, found, getErr := s.committed(ctx, order)
			switch {
			case getErr != nil:
				err = getErr
			case found:
				entry.WithField("attempt", attempt).Info("order already persisted by an earlier attempt")
				return stored, nil
			}
		}
		if err == nil {
			if attempt > 1 {
				entry.WithField("attempt", attempt).Info("order persisted after retry")
			}
			return saved, nil
		}
		lastErr = err

		if !shouldRetry(err) || attempt == s.retry.MaxAttempts {
			break
		}

		entry.WithError(err).WithFields(log.Fields{
			"attempt": attempt,
			"delay":   delay,
		}).Warn("order persist failed, retrying")
		if s.metrics != nil {
			s.metrics.RecordRetry()
		}

		if errors.Is(err, domain.ErrOrderNumberConflict) {
			order.Number = s.numbers.NextOrderNumber()
		}
		if err := sleepCtx(ctx, delay); err != nil {
			return domain.Order{}, err
		}
		delay = s.retry.next(delay)
	}

	return domain.Order{}, lastErr
}

// committed ищет под номером order уже сохранённую ту же продажу.
// Без транзакционного outbox событие для найденного заказа ставится в очередь
// здесь: попытка, записавшая заказ, до outbox не дошла.
func (s *Service) committed(ctx context.Context, order domain.Order) (domain.Order, bool, error) {
	stored, err := s.orders.Get(ctx, order.Number)
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		return domain.Order{}, false, nil
	case err != nil:
		return domain.Order{}, false, fmt.Errorf("check order %s: %w", order.Number, err)
	case !order.SameSale(stored):
		return domain.Order{}, false, nil
	}

	if _, ok := s.orders.(domain.OrderOutboxWriter); !ok {
		s.enqueuePaid(ctx, stored)
	}
	return stored, true, nil
}

// fixedNumber — источник, всегда отдающий один номер.
func fixedNumber(number string) domain.OrderNumberSource {
	return domain.OrderNumberFunc(func() string { return number })
}

// persist сохраняет заказ и событие order.paid. Если хранилище заказов умеет
// писать outbox в своей транзакции, используется оно.
func (s *Service) persist(ctx context.Context, order domain.Order) (domain.Order, error) {
	msg, err := domain.NewOrderPaidMessage(order)
	if err != nil {
		return domain.Order{}, err
	}

	if writer, ok := s.orders.(domain.OrderOutboxWriter); ok {
		saved, err := writer.CreateWithOutbox(ctx, order, msg)
		if err != nil {
			return domain.Order{}, err
		}
		return saved, nil
	}

	saved, err := s.orders.Create(ctx, order)
	if err != nil {
		return domain.Order{}, err
	}
	s.enqueue(ctx, saved.Number, msg)
	return saved, nil
}

func (s *Service) enqueuePaid(ctx context.Context, order domain.Order) {
	msg, err := domain.NewOrderPaidMessage(order)
	if err != nil {
		s.logger.WithError(err).WithField("order_number", order.Number).Warn("failed to build order.paid event")
		return
	}
	s.enqueue(ctx, order.Number, msg)
}

func (s *Service) enqueue(ctx context.Context, number string, msg domain.OutboxMessage) {
	if s.outbox == nil {
		return
	}
	if _, err := s.outbox.Enqueue(ctx, msg); err != nil {
		s.logger.WithError(err).WithField("order_number", number).Warn("failed to enqueue order.paid event")
	}
}

// mutate применяет fn к актуальной версии сессии. При гонке версий
// сессия перечитывается и fn применяется заново.
func (s *Service) mutate(ctx context.Context, sessionID string, fn func(domain.CartSession) domain.CartSession) (domain.CartSession, error) {
	if strings.TrimSpace(sessionID) == "" {
		return domain.CartSession{}, domain.ErrCartNotFound
	}

	var lastErr error
	for attempt := 0; attempt < maxMutationAttempts; attempt++ {
		current, err := s.carts.Get(ctx, sessionID)
		if err != nil {
			return domain.CartSession{}, err
		}

		saved, err := s.carts.Save(ctx, fn(current))
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, domain.ErrCartVersionConflict) {
			return domain.CartSession{}, err
		}
		lastErr = err
	}
	return domain.CartSession{}, lastErr
}

func (s *Service) recordFailure(reason string) {
	if s.metrics != nil {
		s.metrics.RecordFailed(reason)
	}
}
