package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// HistorySummary — сводка по отфильтрованному списку заказов.
type HistorySummary struct {
	Count   int
	Revenue decimal.Decimal
}

// FilterOrders оставляет заказы, у которых номер, имя или телефон клиента
// содержат query без учёта регистра. Пустой query возвращает всё.
func FilterOrders(orders []Order, query string) []Order {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return orders
	}
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if containsFold(o.Number, q) || containsFold(o.CustomerName, q) || containsFold(o.CustomerPhone, q) {
			out = append(out, o)
		}
	}
	return out
}

// Summarize считает количество заказов и выручку.
func Summarize(orders []Order) HistorySummary {
	revenue := decimal.Zero
	for _, o := range orders {
		revenue = revenue.Add(o.TotalAmount)
	}
	return HistorySummary{Count: len(orders), Revenue: revenue}
}

// LineBreakdown — строка заказа с посчитанными суммами.
type LineBreakdown struct {
	Line  OrderLine
	Total decimal.Decimal
	GST   decimal.Decimal
}

// OrderBreakdown раскладывает итог заказа по строкам.
type OrderBreakdown struct {
	Lines    []LineBreakdown
	Subtotal decimal.Decimal
	GSTTotal decimal.Decimal
	Total    decimal.Decimal
}

// Breakdown пересчитывает суммы по снимку строк.
// Total берётся из заказа, а не пересчитывается.
func Breakdown(o Order) OrderBreakdown {
	b := OrderBreakdown{
		Lines:    make([]LineBreakdown, 0, len(o.Items)),
		Subtotal: decimal.Zero,
		GSTTotal: decimal.Zero,
		Total:    o.TotalAmount,
	}
	for _, l := range o.Items {
		lb := LineBreakdown{Line: l, Total: l.LineTotal(), GST: l.LineTax()}
		b.Subtotal = b.Subtotal.Add(lb.Total)
		b.GSTTotal = b.GSTTotal.Add(lb.GST)
		b.Lines = append(b.Lines, lb)
	}
	return b
}

func containsFold(s, lowerQuery string) bool {
	return s != "" && strings.Contains(strings.ToLower(s), lowerQuery)
}
