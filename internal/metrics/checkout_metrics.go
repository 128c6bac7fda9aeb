package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Причины неудачного оформления для метки reason.
const (
	CheckoutFailureValidation = "validation"
	CheckoutFailureConflict   = "conflict"
	CheckoutFailurePersist    = "persist"
)

// CheckoutMetrics содержит метрики оформления заказов на кассе.
type CheckoutMetrics struct {
	completed prometheus.Counter
	failed    *prometheus.CounterVec
	retries   prometheus.Counter
	duration  prometheus.Histogram
	openCarts prometheus.Gauge
}

// NewCheckoutMetrics регистрирует метрики в DefaultRegisterer.
func NewCheckoutMetrics() *CheckoutMetrics {
	return NewCheckoutMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewCheckoutMetricsWithRegisterer регистрирует метрики в переданном реестре.
func NewCheckoutMetricsWithRegisterer(registerer prometheus.Registerer) *CheckoutMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CheckoutMetrics{
		completed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "cafe_checkout_completed_total",
			Help: "Total number of orders checked out and persisted",
		}),
		failed: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "cafe_checkout_failed_total",
			Help: "Total number of failed checkout attempts by reason",
		}, []string{"reason"}),
		retries: registerCounter(registerer, prometheus.CounterOpts{
			Name: "cafe_checkout_persist_retries_total",
			Help: "Total number of order persist retries",
		}),
		duration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "cafe_checkout_duration_seconds",
			Help:    "Duration of checkout including persistence in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		openCarts: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "cafe_open_cart_sessions",
			Help: "Number of cart sessions opened and not yet discarded",
		}),
	}
}

// RecordCompleted фиксирует успешное оформление и его длительность.
func (m *CheckoutMetrics) RecordCompleted(duration time.Duration) {
	m.completed.Inc()
	m.duration.Observe(duration.Seconds())
}

// RecordFailed увеличивает счётчик неудачных оформлений с указанной причиной.
func (m *CheckoutMetrics) RecordFailed(reason string) {
	m.failed.WithLabelValues(reason).Inc()
}

// RecordRetry увеличивает счётчик повторов записи заказа.
func (m *CheckoutMetrics) RecordRetry() {
	m.retries.Inc()
}

// RecordCartOpened увеличивает число открытых сессий.
func (m *CheckoutMetrics) RecordCartOpened() {
	m.openCarts.Inc()
}

// RecordCartClosed уменьшает число открытых сессий.
func (m *CheckoutMetrics) RecordCartClosed() {
	m.openCarts.Dec()
}
