// Package catalog управляет позициями меню: создание, редактирование,
// включение и выключение из продажи, удаление. Каждое изменение
// записывается в аудит.
package catalog

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
)

// Service — прикладной слой каталога.
type Service struct {
	repo   domain.MenuRepository
	audit  domain.AuditRepository
	logger *log.Entry
	now    func() time.Time
}

// NewService создаёт сервис каталога. audit может быть nil.
func NewService(repo domain.MenuRepository, audit domain.AuditRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "catalog")
	}
	return &Service{
		repo:   repo,
		audit:  audit,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create валидирует форму и сохраняет новую позицию.
func (s *Service) Create(ctx context.Context, in domain.MenuItemInput) (domain.MenuItem, error) {
	if err := in.Validate(); err != nil {
		return domain.MenuItem{}, err
	}

	item, err := s.repo.Create(ctx, in.Apply(domain.MenuItem{}))
	if err != nil {
		return domain.MenuItem{}, fmt.Errorf("create menu item: %w", err)
	}

	s.logger.WithFields(log.Fields{
		"item_id": item.ID,
		"name":    item.Name,
	}).Info("menu item created")
	s.appendAudit(ctx, item.ID, domain.AuditItemCreated, "")

	return item, nil
}

// Update перезаписывает редактируемые поля существующей позиции.
func (s *Service) Update(ctx context.Context, id string, in domain.MenuItemInput) (domain.MenuItem, error) {
	if err := in.Validate(); err != nil {
		return domain.MenuItem{}, err
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.MenuItem{}, err
	}

	updated, err := s.repo.Update(ctx, in.Apply(current))
	if err != nil {
		return domain.MenuItem{}, err
	}

	s.appendAudit(ctx, id, domain.AuditItemUpdated, "")
	if current.Available != updated.Available {
		s.appendAudit(ctx, id, availabilityEvent(updated.Available), "")
	}

	return updated, nil
}

// SetAvailability включает или выключает позицию. Повторная установка
// того же значения ничего не пишет.
func (s *Service) SetAvailability(ctx context.Context, id string, available bool, reason string) (domain.MenuItem, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.MenuItem{}, err
	}
	if current.Available == available {
		return current, nil
	}

	current.Available = available
	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		return domain.MenuItem{}, err
	}

	s.logger.WithFields(log.Fields{
		"item_id":   id,
		"available": available,
	}).Info("menu item availability changed")
	s.appendAudit(ctx, id, availabilityEvent(available), reason)

	return updated, nil
}

// Delete удаляет позицию из каталога. Уже оформленные заказы не затрагиваются:
// они хранят снимок позиции.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("item_id", id).Info("menu item deleted")
	s.appendAudit(ctx, id, domain.AuditItemDeleted, "")
	return nil
}

// Get возвращает позицию по ID.
func (s *Service) Get(ctx context.Context, id string) (domain.MenuItem, error) {
	return s.repo.Get(ctx, id)
}

// ListAll возвращает весь каталог, новые позиции первыми.
func (s *Service) ListAll(ctx context.Context) ([]domain.MenuItem, error) {
	return s.repo.ListAll(ctx)
}

// ListAvailable возвращает позиции, доступные для продажи, по алфавиту.
func (s *Service) ListAvailable(ctx context.Context) ([]domain.MenuItem, error) {
	return s.repo.ListAvailable(ctx)
}

// ListAudit возвращает историю изменений позиции.
func (s *Service) ListAudit(ctx context.Context, id string) ([]domain.AuditEvent, error) {
	if s.audit == nil {
		return nil, nil
	}
	return s.audit.List(ctx, id)
}

func (s *Service) appendAudit(ctx context.Context, itemID string, eventType domain.AuditEventType, reason string) {
	if s.audit == nil {
		return
	}
	event := domain.AuditEvent{
		ItemID:   itemID,
		Type:     eventType,
		Reason:   reason,
		Occurred: s.now(),
	}
	if err := s.audit.Append(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"item_id": itemID,
			"event":   eventType,
		}).Warn("failed to append audit event")
	}
}

func availabilityEvent(available bool) domain.AuditEventType {
	if available {
		return domain.AuditItemEnabled
	}
	return domain.AuditItemDisabled
}
