package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"google.golang.org/grpc/codes"
)

const (
	// scenarioMethod — псевдометод, под которым пишется весь сценарий целиком.
	scenarioMethod = "scenario"

	callsMetric   = "loadtest_calls_total"
	latencyMetric = "loadtest_latency_ms"
)

// Квантиль → допустимая погрешность ранга.
var latencyObjectives = map[float64]float64{0.5: 0.05, 0.95: 0.01, 0.99: 0.001}

// latencyMs — задержки в миллисекундах.
type latencyMs struct {
	Mean float64 `json:"mean"`
	P50  float64 `json:"p50"`
	P95  float64 `json:"p95"`
	P99  float64 `json:"p99"`
}

type rpcStats struct {
	Calls     int64            `json:"calls"`
	OK        int64            `json:"ok"`
	Errors    int64            `json:"errors"`
	ErrorRate float64          `json:"error_rate"`
	ByCode    map[string]int64 `json:"by_code"`
	Latency   latencyMs        `json:"latency_ms"`
}

func (s *rpcStats) add(code string, n int64) {
	if s.ByCode == nil {
		s.ByCode = make(map[string]int64)
	}
	s.ByCode[code] += n
	s.Calls += n
	if code == codes.OK.String() {
		s.OK += n
		return
	}
	s.Errors += n
}

type report struct {
	Started    time.Time           `json:"started"`
	Elapsed    float64             `json:"elapsed_seconds"`
	Throughput float64             `json:"scenarios_per_second"`
	Scenarios  rpcStats            `json:"scenarios"`
	RPCs       map[string]rpcStats `json:"rpcs"`
}

// collector пишет результаты вызовов в собственный prometheus.Registry:
// счётчик по (method, code) и summary задержек по method.
type collector struct {
	registry *prometheus.Registry
	calls    *prometheus.CounterVec
	latency  *prometheus.SummaryVec
}

func newCollector() *collector {
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: callsMetric,
		Help: "POS RPC calls issued by the load test, by gRPC code.",
	}, []string{"method", "code"})
	latency := prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name:       latencyMetric,
		Help:       "POS RPC latency in milliseconds.",
		Objectives: latencyObjectives,
		// Окно на весь прогон.
		MaxAge:     24 * time.Hour,
		AgeBuckets: 1,
	}, []string{"method"})

	registry := prometheus.NewRegistry()
	registry.MustRegister(calls, latency)
	return &collector{registry: registry, calls: calls, latency: latency}
}

func (c *collector) record(method string, took time.Duration, code codes.Code) {
	c.calls.WithLabelValues(method, code.String()).Inc()
	c.latency.WithLabelValues(method).Observe(float64(took.Microseconds()) / 1000)
}

// gather сводит содержимое реестра в статистику по методам.
func (c *collector) gather() (map[string]rpcStats, error) {
	families, err := c.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather loadtest metrics: %w", err)
	}

	stats := make(map[string]rpcStats)
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			method := label(metric, "method")
			s := stats[method]
			switch family.GetName() {
			case callsMetric:
				s.add(label(metric, "code"), int64(metric.GetCounter().GetValue()))
			case latencyMetric:
				s.Latency = quantiles(metric.GetSummary())
			}
			stats[method] = s
		}
	}
	for method, s := range stats {
		if s.Calls > 0 {
			s.ErrorRate = float64(s.Errors) / float64(s.Calls)
		}
		stats[method] = s
	}
	return stats, nil
}

func (c *collector) snapshot(method string) (rpcStats, bool) {
	stats, err := c.gather()
	if err != nil {
		return rpcStats{}, false
	}
	s, ok := stats[method]
	return s, ok
}

// buildReport отделяет сценарии от отдельных RPC.
func (c *collector) buildReport(started time.Time, elapsed time.Duration) (report, error) {
	stats, err := c.gather()
	if err != nil {
		return report{}, err
	}

	result := report{
		Started:   started.UTC(),
		Elapsed:   elapsed.Seconds(),
		Scenarios: stats[scenarioMethod],
		RPCs:      stats,
	}
	delete(result.RPCs, scenarioMethod)
	if elapsed > 0 {
		result.Throughput = float64(result.Scenarios.Calls) / elapsed.Seconds()
	}
	return result, nil
}

func quantiles(s *dto.Summary) latencyMs {
	var out latencyMs
	if s.GetSampleCount() == 0 {
		return out
	}
	out.Mean = s.GetSampleSum() / float64(s.GetSampleCount())
	for _, q := range s.GetQuantile() {
		switch q.GetQuantile() {
		case 0.5:
			out.P50 = q.GetValue()
		case 0.95:
			out.P95 = q.GetValue()
		case 0.99:
			out.P99 = q.GetValue()
		}
	}
	return out
}

func label(metric *dto.Metric, name string) string {
	for _, pair := range metric.GetLabel() {
		if pair.GetName() == name {
			return pair.GetValue()
		}
	}
	return ""
}

// saveReport пишет отчёт в JSON; относительный путь не выходит за рабочий каталог.
func saveReport(path string, result report) error {
	target := filepath.Clean(path)
	switch {
	case target == "." || target == string(filepath.Separator):
		return errors.New("output path must point to a file")
	case target == ".." || strings.HasPrefix(target, ".."+string(filepath.Separator)):
		return fmt.Errorf("output path escapes working directory: %s", path)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	// #nosec G306 -- в отчёте только счётчики.
	return os.WriteFile(target, append(data, '\n'), 0o644)
}

func printReport(result report, cfg config) {
	s := result.Scenarios
	fmt.Printf("loadtest %s (%s): items=%d lines=%d\n", cfg.mode, runTarget(cfg), len(cfg.itemIDs), cfg.linesPerCart)
	fmt.Printf("scenarios: %d ok, %d failed, error rate %.4f, %.2f/s over %.2fs\n",
		s.OK, s.Errors, s.ErrorRate, result.Throughput, result.Elapsed)
	fmt.Printf("scenario latency ms: mean=%.2f p50=%.2f p95=%.2f p99=%.2f\n",
		s.Latency.Mean, s.Latency.P50, s.Latency.P95, s.Latency.P99)

	names := make([]string, 0, len(result.RPCs))
	for name := range result.RPCs {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		rpc := result.RPCs[name]
		fmt.Printf("  %-14s calls=%d errors=%d p95=%.2fms\n", name, rpc.Calls, rpc.Errors, rpc.Latency.P95)
	}
}

func runTarget(cfg config) string {
	if cfg.duration <= 0 {
		return fmt.Sprintf("%d scenarios", cfg.total)
	}
	if cfg.totalSet {
		return fmt.Sprintf("%s, at most %d scenarios", cfg.duration, cfg.total)
	}
	return cfg.duration.String()
}
