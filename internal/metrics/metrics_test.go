package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	if err := c.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return metric.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	metric := &dto.Metric{}
	if err := g.Write(metric); err != nil {
		t.Fatalf("failed to write gauge: %v", err)
	}
	return metric.GetGauge().GetValue()
}

func TestCheckoutMetrics_Record(t *testing.T) {
	m := NewCheckoutMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordCompleted(20 * time.Millisecond)
	m.RecordCompleted(30 * time.Millisecond)
	m.RecordRetry()
	m.RecordFailed(CheckoutFailureValidation)
	m.RecordFailed(CheckoutFailureValidation)
	m.RecordFailed(CheckoutFailurePersist)
	m.RecordCartOpened()
	m.RecordCartOpened()
	m.RecordCartClosed()

	if got := counterValue(t, m.completed); got != 2 {
		t.Errorf("expected 2 completed, got %f", got)
	}
	if got := counterValue(t, m.retries); got != 1 {
		t.Errorf("expected 1 retry, got %f", got)
	}
	if got := counterValue(t, m.failed.WithLabelValues(CheckoutFailureValidation)); got != 2 {
		t.Errorf("expected 2 validation failures, got %f", got)
	}
	if got := counterValue(t, m.failed.WithLabelValues(CheckoutFailurePersist)); got != 1 {
		t.Errorf("expected 1 persist failure, got %f", got)
	}
	if got := gaugeValue(t, m.openCarts); got != 1 {
		t.Errorf("expected 1 open cart, got %f", got)
	}
}

func TestCheckoutMetrics_ReRegisterReturnsExisting(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewCheckoutMetricsWithRegisterer(reg)
	second := NewCheckoutMetricsWithRegisterer(reg)

	first.RecordRetry()
	if got := counterValue(t, second.retries); got != 1 {
		t.Errorf("expected shared collector, got %f", got)
	}
}

func TestRegisterCounter_PanicsOnConflictingDescriptor(t *testing.T) {
	reg := prometheus.NewRegistry()
	registerGauge(reg, prometheus.GaugeOpts{Name: "cafe_clash", Help: "gauge"})

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on conflicting descriptor")
		}
	}()
	registerCounter(reg, prometheus.CounterOpts{Name: "cafe_clash", Help: "counter"})
}

func TestSalesMetrics_RecordOrder(t *testing.T) {
	m := NewSalesMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordOrder(decimal.RequireFromString("11.44"), decimal.RequireFromString("1.04"))
	m.RecordItem("Latte", 2)
	m.RecordItem("Latte", 0)

	if got := counterValue(t, m.orders); got != 1 {
		t.Errorf("expected 1 order, got %f", got)
	}
	if got := counterValue(t, m.revenue); got != 11.44 {
		t.Errorf("expected revenue 11.44, got %f", got)
	}
	if got := counterValue(t, m.items.WithLabelValues("Latte")); got != 2 {
		t.Errorf("expected 2 lattes, got %f", got)
	}
}
