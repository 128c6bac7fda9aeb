package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderNumberSource выдаёт номера заказов.
type OrderNumberSource interface {
	NextOrderNumber() string
}

// OrderNumberFunc адаптирует функцию к OrderNumberSource.
type OrderNumberFunc func() string

// NextOrderNumber вызывает f.
func (f OrderNumberFunc) NextOrderNumber() string { return f() }

// OrderNumberGenerator строит номера вида ORD-<unix millis>-<6 hex>.
// Метка времени сохраняет читаемость, случайный суффикс исключает коллизии
// при одновременных оформлениях в одну миллисекунду.
type OrderNumberGenerator struct {
	Now    func() time.Time
	Suffix func() string
}

// NewOrderNumberGenerator возвращает генератор на системных часах и UUIDv4.
func NewOrderNumberGenerator() *OrderNumberGenerator {
	return &OrderNumberGenerator{}
}

// NextOrderNumber реализует OrderNumberSource.
func (g *OrderNumberGenerator) NextOrderNumber() string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	suffix := randomSuffix
	if g.Suffix != nil {
		suffix = g.Suffix
	}
	return fmt.Sprintf("ORD-%d-%s", now().UnixMilli(), suffix())
}

func randomSuffix() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(id[:6])
}
