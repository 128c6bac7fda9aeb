package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// SalesMetrics — проекция оплаченных заказов в счётчики выручки.
type SalesMetrics struct {
	orders  prometheus.Counter
	revenue prometheus.Counter
	tax     prometheus.Counter
	items   *prometheus.CounterVec
}

// NewSalesMetrics регистрирует метрики продаж в DefaultRegisterer.
func NewSalesMetrics() *SalesMetrics {
	return NewSalesMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewSalesMetricsWithRegisterer регистрирует метрики продаж в переданном реестре.
func NewSalesMetricsWithRegisterer(registerer prometheus.Registerer) *SalesMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &SalesMetrics{
		orders: registerCounter(registerer, prometheus.CounterOpts{
			Name: "cafe_sales_orders_total",
			Help: "Total number of paid orders seen on the event stream",
		}),
		revenue: registerCounter(registerer, prometheus.CounterOpts{
			Name: "cafe_sales_revenue_total",
			Help: "Sum of order totals including GST",
		}),
		tax: registerCounter(registerer, prometheus.CounterOpts{
			Name: "cafe_sales_gst_total",
			Help: "Sum of GST collected",
		}),
		items: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "cafe_sales_items_total",
			Help: "Units sold per menu item name",
		}, []string{"item"}),
	}
}

// RecordOrder учитывает один оплаченный заказ.
// Денежные суммы переводятся в float64 только на границе с Prometheus.
func (m *SalesMetrics) RecordOrder(total, gst decimal.Decimal) {
	m.orders.Inc()
	m.revenue.Add(total.InexactFloat64())
	m.tax.Add(gst.InexactFloat64())
}

// RecordItem учитывает проданные единицы позиции.
func (m *SalesMetrics) RecordItem(name string, quantity int) {
	if quantity <= 0 {
		return
	}
	m.items.WithLabelValues(name).Add(float64(quantity))
}
