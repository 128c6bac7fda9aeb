package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
)

// MenuItem — позиция каталога кафе.
type MenuItem struct {
	ID            string
	Name          string
	Price         decimal.Decimal
	GSTPercentage decimal.Decimal
	// Category пустая строка означает «без категории».
	Category  string
	Available bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MenuItemInput — данные формы создания или редактирования позиции.
type MenuItemInput struct {
	Name  string
	Price decimal.Decimal
	// GSTPercentage nil трактуется как 0.
	GSTPercentage *decimal.Decimal
	Category      string
	Available     bool
}

// Validate проверяет поля формы и возвращает первую найденную ошибку.
func (in MenuItemInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrMenuItemNameRequired
	}
	if !in.Price.IsPositive() {
		return ErrInvalidPrice
	}
	gst := in.gst()
	if gst.IsNegative() || gst.GreaterThan(hundred) {
		return ErrInvalidTaxPercentage
	}
	return nil
}

// Normalize возвращает копию с обрезанными пробелами и GST по умолчанию.
func (in MenuItemInput) Normalize() MenuItemInput {
	gst := in.gst()
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	in.GSTPercentage = &gst
	return in
}

// Apply переносит нормализованные поля формы в позицию.
func (in MenuItemInput) Apply(item MenuItem) MenuItem {
	n := in.Normalize()
	item.Name = n.Name
	item.Price = n.Price
	item.GSTPercentage = *n.GSTPercentage
	item.Category = n.Category
	item.Available = n.Available
	return item
}

func (in MenuItemInput) gst() decimal.Decimal {
	if in.GSTPercentage == nil {
		return decimal.Zero
	}
	return *in.GSTPercentage
}
