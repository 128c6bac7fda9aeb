package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CartLine — позиция меню и её количество в корзине.
type CartLine struct {
	Item     MenuItem
	Quantity int
}

// LineTotal возвращает price × quantity без округления.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Item.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineTax возвращает price × quantity × gst / 100 без округления.
func (l CartLine) LineTax() decimal.Decimal {
	return lineTax(l.LineTotal(), l.Item.GSTPercentage)
}

// Cart — неизменяемое значение корзины.
// Каждая операция возвращает новую корзину и не трогает исходную.
// На одну позицию меню приходится не больше одной строки, количество всегда ≥ 1.
type Cart struct {
	lines []CartLine
}

// NewCart собирает корзину из строк, например при чтении из хранилища.
// Строки с одинаковым ID сливаются, строки с количеством ≤ 0 отбрасываются.
func NewCart(lines ...CartLine) Cart {
	var c Cart
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		if i := c.indexOf(l.Item.ID); i >= 0 {
			c.lines[i].Quantity += l.Quantity
			continue
		}
		c.lines = append(c.lines, l)
	}
	return c
}

// Lines возвращает копию строк в порядке добавления.
func (c Cart) Lines() []CartLine {
	if len(c.lines) == 0 {
		return nil
	}
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len — число различных позиций.
func (c Cart) Len() int { return len(c.lines) }

// IsEmpty сообщает, что в корзине нет строк.
func (c Cart) IsEmpty() bool { return len(c.lines) == 0 }

// Quantity возвращает количество позиции или 0, если её нет.
func (c Cart) Quantity(itemID string) int {
	if i := c.indexOf(itemID); i >= 0 {
		return c.lines[i].Quantity
	}
	return 0
}

// AddItem увеличивает количество существующей строки на 1 или добавляет новую строку.
func (c Cart) AddItem(item MenuItem) Cart {
	next := c.clone()
	if i := next.indexOf(item.ID); i >= 0 {
		next.lines[i].Quantity++
		return next
	}
	next.lines = append(next.lines, CartLine{Item: item, Quantity: 1})
	return next
}

// ChangeQuantity прибавляет delta к количеству строки.
// Если итог ≤ 0, строка удаляется. Отсутствующий itemID ничего не меняет.
func (c Cart) ChangeQuantity(itemID string, delta int) Cart {
	i := c.indexOf(itemID)
	if i < 0 {
		return c
	}
	if c.lines[i].Quantity+delta <= 0 {
		return c.RemoveItem(itemID)
	}
	next := c.clone()
	next.lines[i].Quantity += delta
	return next
}

// RemoveItem удаляет строку целиком.
func (c Cart) RemoveItem(itemID string) Cart {
	i := c.indexOf(itemID)
	if i < 0 {
		return c
	}
	next := Cart{lines: make([]CartLine, 0, len(c.lines)-1)}
	next.lines = append(next.lines, c.lines[:i]...)
	next.lines = append(next.lines, c.lines[i+1:]...)
	return next
}

// Subtotal — Σ price × quantity.
func (c Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.LineTotal())
	}
	return sum
}

// TaxTotal — Σ price × quantity × gst / 100.
func (c Cart) TaxTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.LineTax())
	}
	return sum
}

// GrandTotal — Subtotal + TaxTotal.
func (c Cart) GrandTotal() decimal.Decimal {
	return c.Subtotal().Add(c.TaxTotal())
}

func (c Cart) indexOf(itemID string) int {
	for i, l := range c.lines {
		if l.Item.ID == itemID {
			return i
		}
	}
	return -1
}

func (c Cart) clone() Cart {
	lines := make([]CartLine, len(c.lines), len(c.lines)+1)
	copy(lines, c.lines)
	return Cart{lines: lines}
}

// ValidateForCheckout проверяет, что заказ можно оформить.
// Пустая корзина проверяется раньше имени клиента.
func ValidateForCheckout(cart Cart, customerName string) error {
	if cart.IsEmpty() {
		return ErrEmptyCart
	}
	if strings.TrimSpace(customerName) == "" {
		return ErrMissingCustomerName
	}
	return nil
}

// BuildOrderSnapshot формирует заказ из корзины. Заказ не сохраняется.
func BuildOrderSnapshot(cart Cart, customer CustomerInfo, numbers OrderNumberSource) (Order, error) {
	if err := ValidateForCheckout(cart, customer.Name); err != nil {
		return Order{}, err
	}

	items := make([]OrderLine, 0, cart.Len())
	for _, l := range cart.lines {
		items = append(items, OrderLine{
			ItemID:        l.Item.ID,
			Name:          l.Item.Name,
			Price:         l.Item.Price,
			GSTPercentage: l.Item.GSTPercentage,
			Quantity:      l.Quantity,
		})
	}

	return Order{
		Number:        numbers.NextOrderNumber(),
		CustomerName:  strings.TrimSpace(customer.Name),
		CustomerPhone: strings.TrimSpace(customer.Phone),
		Items:         items,
		TotalAmount:   cart.GrandTotal(),
		Status:        OrderStatusPaid,
	}, nil
}

func lineTax(total, gst decimal.Decimal) decimal.Decimal {
	if gst.IsZero() {
		return decimal.Zero
	}
	// Shift(-2) делит на 100 точно, без DivisionPrecision.
	return total.Mul(gst).Shift(-2)
}
