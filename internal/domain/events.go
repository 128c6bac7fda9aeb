package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderPaidEvent — полезная нагрузка события order.paid.
// Суммы сериализуются строками без потери точности.
type OrderPaidEvent struct {
	OrderNumber   string              `json:"order_number"`
	CustomerName  string              `json:"customer_name"`
	CustomerPhone string              `json:"customer_phone,omitempty"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	GSTTotal      decimal.Decimal     `json:"gst_total"`
	Total         decimal.Decimal     `json:"total"`
	Lines         []OrderPaidLineItem `json:"lines"`
	PaidAt        time.Time           `json:"paid_at"`
}

// OrderPaidLineItem — строка заказа в событии.
type OrderPaidLineItem struct {
	ItemID   string          `json:"item_id"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
	GST      decimal.Decimal `json:"gst"`
}

// NewOrderPaidEvent строит событие из сохранённого заказа.
func NewOrderPaidEvent(o Order) OrderPaidEvent {
	b := Breakdown(o)
	lines := make([]OrderPaidLineItem, 0, len(b.Lines))
	for _, l := range b.Lines {
		lines = append(lines, OrderPaidLineItem{
			ItemID:   l.Line.ItemID,
			Name:     l.Line.Name,
			Quantity: l.Line.Quantity,
			Total:    l.Total,
			GST:      l.GST,
		})
	}
	return OrderPaidEvent{
		OrderNumber:   o.Number,
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		Subtotal:      b.Subtotal,
		GSTTotal:      b.GSTTotal,
		Total:         o.TotalAmount,
		Lines:         lines,
		PaidAt:        o.CreatedAt,
	}
}

// NewOrderPaidMessage упаковывает событие order.paid в сообщение outbox.
func NewOrderPaidMessage(o Order) (OutboxMessage, error) {
	payload, err := json.Marshal(NewOrderPaidEvent(o))
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("marshal order.paid payload: %w", err)
	}
	return OutboxMessage{
		AggregateType: AggregateOrder,
		AggregateID:   o.Number,
		EventType:     EventTypeOrderPaid,
		Payload:       payload,
	}, nil
}
