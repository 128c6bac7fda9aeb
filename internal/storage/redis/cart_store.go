// Package redis хранит сессии кассы в Redis, чтобы несколько инстансов
// сервиса видели одну и ту же корзину.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
)

const (
	keyPrefix = "cafe:cart:"
	// maxWatchRetries ограничивает повторы транзакции при гонке WATCH.
	maxWatchRetries = 3
)

// CartStore — реализация domain.CartStore поверх go-redis.
type CartStore struct {
	client *goredis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewCartStore создаёт хранилище. ttl ≤ 0 означает, что сессии не протухают.
func NewCartStore(client *goredis.Client, ttl time.Duration) *CartStore {
	return &CartStore{
		client: client,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type sessionDTO struct {
	ID           string    `json:"id"`
	Lines        []lineDTO `json:"lines"`
	Name         string    `json:"customer_name,omitempty"`
	Phone        string    `json:"customer_phone,omitempty"`
	PendingOrder string    `json:"pending_order,omitempty"`
	Version      int64     `json:"version"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type lineDTO struct {
	ItemID        string          `json:"item_id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	GSTPercentage decimal.Decimal `json:"gst_percentage"`
	Category      string          `json:"category,omitempty"`
	Quantity      int             `json:"quantity"`
}

func toDTO(s domain.CartSession) sessionDTO {
	lines := s.Cart.Lines()
	dto := sessionDTO{
		ID:           s.ID,
		Lines:        make([]lineDTO, 0, len(lines)),
		Name:         s.Customer.Name,
		Phone:        s.Customer.Phone,
		PendingOrder: s.PendingOrder,
		Version:      s.Version,
		UpdatedAt:    s.UpdatedAt,
	}
	for _, l := range lines {
		dto.Lines = append(dto.Lines, lineDTO{
			ItemID:        l.Item.ID,
			Name:          l.Item.Name,
			Price:         l.Item.Price,
			GSTPercentage: l.Item.GSTPercentage,
			Category:      l.Item.Category,
			Quantity:      l.Quantity,
		})
	}
	return dto
}

func (d sessionDTO) toDomain() domain.CartSession {
	lines := make([]domain.CartLine, 0, len(d.Lines))
	for _, l := range d.Lines {
		lines = append(lines, domain.CartLine{
			Item: domain.MenuItem{
				ID:            l.ItemID,
				Name:          l.Name,
				Price:         l.Price,
				GSTPercentage: l.GSTPercentage,
				Category:      l.Category,
				Available:     true,
			},
			Quantity: l.Quantity,
		})
	}
	return domain.CartSession{
		ID:           d.ID,
		Cart:         domain.NewCart(lines...),
		Customer:     domain.CustomerInfo{Name: d.Name, Phone: d.Phone},
		PendingOrder: d.PendingOrder,
		Version:      d.Version,
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

func cartKey(id string) string {
	return keyPrefix + id
}

// Create сохраняет новую сессию с версией 1. Занятый ID — ErrCartVersionConflict.
func (s *CartStore) Create(ctx context.Context, session domain.CartSession) (domain.CartSession, error) {
	session.Version = 1
	session.UpdatedAt = s.now()

	raw, err := json.Marshal(toDTO(session))
	if err != nil {
		return domain.CartSession{}, fmt.Errorf("marshal cart session: %w", err)
	}

	ok, err := s.client.SetNX(ctx, cartKey(session.ID), raw, s.ttl).Result()
	if err != nil {
		return domain.CartSession{}, fmt.Errorf("create cart session: %w", err)
	}
	if !ok {
		return domain.CartSession{}, domain.ErrCartVersionConflict
	}
	return session, nil
}

func (s *CartStore) Get(ctx context.Context, id string) (domain.CartSession, error) {
	return s.load(ctx, s.client, id)
}

type getter interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
}

func (s *CartStore) load(ctx context.Context, c getter, id string) (domain.CartSession, error) {
	raw, err := c.Get(ctx, cartKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return domain.CartSession{}, domain.ErrCartNotFound
		}
		return domain.CartSession{}, fmt.Errorf("get cart session: %w", err)
	}

	var dto sessionDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return domain.CartSession{}, fmt.Errorf("decode cart session: %w", err)
	}
	return dto.toDomain(), nil
}

// Save записывает сессию под WATCH: если версия в Redis не совпадает
// с session.Version, возвращается ErrCartVersionConflict.
func (s *CartStore) Save(ctx context.Context, session domain.CartSession) (domain.CartSession, error) {
	key := cartKey(session.ID)
	var saved domain.CartSession

	txf := func(tx *goredis.Tx) error {
		current, err := s.load(ctx, tx, session.ID)
		if err != nil {
			return err
		}
		if current.Version != session.Version {
			return domain.ErrCartVersionConflict
		}

		next := session
		next.Version++
		next.UpdatedAt = s.now()
		raw, err := json.Marshal(toDTO(next))
		if err != nil {
			return fmt.Errorf("marshal cart session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, raw, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		saved = next
		return nil
	}

	for attempt := 0; attempt < maxWatchRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return saved, nil
		}
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if errors.Is(err, domain.ErrCartNotFound) || errors.Is(err, domain.ErrCartVersionConflict) {
			return domain.CartSession{}, err
		}
		return domain.CartSession{}, fmt.Errorf("save cart session: %w", err)
	}

	// Ключ менялся на каждой попытке: для вызывающего это та же гонка.
	return domain.CartSession{}, domain.ErrCartVersionConflict
}

func (s *CartStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, cartKey(id)).Err(); err != nil {
		return fmt.Errorf("delete cart session: %w", err)
	}
	return nil
}

// Ping проверяет доступность Redis.
func (s *CartStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

var _ domain.CartStore = (*CartStore)(nil)
