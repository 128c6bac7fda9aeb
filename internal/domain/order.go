package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает статус оформленного заказа.
type OrderStatus string

const (
	// OrderStatusPaid — единственный статус: касса принимает оплату в момент оформления.
	OrderStatusPaid OrderStatus = "paid"
)

// OrderLine — снимок строки корзины на момент оформления.
// Не зависит от последующих правок каталога.
type OrderLine struct {
	ItemID        string
	Name          string
	Price         decimal.Decimal
	GSTPercentage decimal.Decimal
	Quantity      int
}

// LineTotal возвращает price × quantity.
func (l OrderLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineTax возвращает налог по строке.
func (l OrderLine) LineTax() decimal.Decimal {
	return lineTax(l.LineTotal(), l.GSTPercentage)
}

// Order — оформленный заказ. После сохранения не изменяется.
type Order struct {
	Number        string
	CustomerName  string
	CustomerPhone string
	Items         []OrderLine
	TotalAmount   decimal.Decimal
	Status        OrderStatus
	// CreatedAt проставляет хранилище.
	CreatedAt time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.Number == "" {
		errs = append(errs, ErrOrderNumberRequired)
	}
	if o.CustomerName == "" {
		errs = append(errs, ErrMissingCustomerName)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrEmptyCart)
	}

	// Сверяем итог с суммой строк: Σ (total + tax).
	calc := decimal.Zero
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if !item.Price.IsPositive() {
			errs = append(errs, ErrInvalidPrice)
		}
		calc = calc.Add(item.LineTotal()).Add(item.LineTax())
	}
	if !calc.Equal(o.TotalAmount) {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}

// SameSale сообщает, что o и other — одна и та же продажа: совпадают клиент,
// итог и строки. Номер и время не сравниваются.
func (o Order) SameSale(other Order) bool {
	if o.CustomerName != other.CustomerName || o.CustomerPhone != other.CustomerPhone ||
		!o.TotalAmount.Equal(other.TotalAmount) || len(o.Items) != len(other.Items) {
		return false
	}
	for i, line := range o.Items {
		stored := other.Items[i]
		if line.ItemID != stored.ItemID || line.Quantity != stored.Quantity ||
			!line.Price.Equal(stored.Price) || !line.GSTPercentage.Equal(stored.GSTPercentage) {
			return false
		}
	}
	return true
}
