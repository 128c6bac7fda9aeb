package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
)

func healthy(name string) Checker {
	return CheckFunc(name, func(context.Context) error { return nil })
}

func failing(name, msg string) Checker {
	return CheckFunc(name, func(context.Context) error { return errors.New(msg) })
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var response Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response
}

func TestHandler_Healthz(t *testing.T) {
	tests := []struct {
		name     string
		checkers map[string]Checker
		code     int
		status   Status
	}{
		{name: "no checks", checkers: nil, code: http.StatusOK, status: StatusHealthy},
		{
			name:     "all healthy",
			checkers: map[string]Checker{"postgres": healthy("postgres"), "redis": healthy("redis")},
			code:     http.StatusOK,
			status:   StatusHealthy,
		},
		{
			name:     "one unhealthy",
			checkers: map[string]Checker{"postgres": healthy("postgres"), "redis": failing("redis", "connection refused")},
			code:     http.StatusServiceUnavailable,
			status:   StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler("v1.2.0")
			for name, checker := range tt.checkers {
				handler.RegisterChecker(name, checker)
			}

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			require.Equal(t, tt.code, w.Code)
			require.Equal(t, "application/json", w.Header().Get("Content-Type"))
			response := decodeResponse(t, w)
			require.Equal(t, tt.status, response.Status)
			require.Equal(t, "v1.2.0", response.Version)
			require.Len(t, response.Checks, len(tt.checkers))
		})
	}
}

func TestHandler_UnhealthyCheckCarriesMessage(t *testing.T) {
	handler := NewHandler("dev")
	handler.RegisterChecker("redis", failing("redis", "connection refused"))

	status, checks := handler.Run(context.Background())
	require.Equal(t, StatusUnhealthy, status)
	require.Equal(t, "redis", checks["redis"].Name)
	require.Equal(t, "connection refused", checks["redis"].Message)
}

func TestLivenessHandler(t *testing.T) {
	w := httptest.NewRecorder()
	LivenessHandler(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", w.Body.String())
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name    string
		checker Checker
		code    int
		body    string
	}{
		{name: "ready", checker: healthy("postgres"), code: http.StatusOK, body: "ready"},
		{name: "not ready", checker: failing("postgres", "dial tcp: refused"), code: http.StatusServiceUnavailable, body: "not ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler("dev")
			handler.RegisterChecker("postgres", tt.checker)

			w := httptest.NewRecorder()
			handler.ReadinessHandler(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			require.Equal(t, tt.code, w.Code)
			require.Equal(t, tt.body, w.Body.String())
		})
	}
}

func TestHandler_RunsChecksConcurrentlyWithTimeout(t *testing.T) {
	handler := NewHandler("dev")
	handler.timeout = 100 * time.Millisecond

	hang := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	handler.RegisterChecker("postgres", CheckFunc("postgres", hang))
	handler.RegisterChecker("redis", CheckFunc("redis", hang))
	handler.RegisterChecker("outbox", CheckFunc("outbox", hang))
	handler.RegisterChecker("kafka", healthy("kafka"))

	start := time.Now()
	status, checks := handler.Run(context.Background())
	elapsed := time.Since(start)

	require.Equal(t, StatusUnhealthy, status)
	require.Len(t, checks, 4)
	require.Equal(t, StatusHealthy, checks["kafka"].Status)
	require.Equal(t, context.DeadlineExceeded.Error(), checks["postgres"].Message)
	require.Equal(t, StatusUnhealthy, checks["redis"].Status)
	require.Less(t, elapsed, 250*time.Millisecond, "hanging checks must run in parallel")
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestPingChecker(t *testing.T) {
	handler := NewHandler("dev")
	handler.RegisterChecker("postgres", NewPingChecker("postgres", pingerFunc(func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			return errors.New("ping without deadline")
		}
		return nil
	})))
	handler.RegisterChecker("redis", NewPingChecker("redis", pingerFunc(func(context.Context) error {
		return errors.New("connection refused")
	})))

	status, checks := handler.Run(context.Background())
	require.Equal(t, StatusUnhealthy, status)
	require.Equal(t, StatusHealthy, checks["postgres"].Status)
	require.Equal(t, "redis", checks["redis"].Name)
	require.Equal(t, "connection refused", checks["redis"].Message)
}

type stubOutboxStats struct {
	stats domain.OutboxStats
	err   error
}

func (s stubOutboxStats) Stats(context.Context) (domain.OutboxStats, error) { return s.stats, s.err }

func TestOutboxBacklogChecker(t *testing.T) {
	tests := []struct {
		name    string
		stats   stubOutboxStats
		limit   int
		status  Status
		message string
	}{
		{name: "under limit", stats: stubOutboxStats{stats: domain.OutboxStats{PendingCount: 3}}, limit: 10, status: StatusHealthy},
		{name: "no limit", stats: stubOutboxStats{stats: domain.OutboxStats{PendingCount: 500}}, limit: 0, status: StatusHealthy},
		{name: "over limit", stats: stubOutboxStats{stats: domain.OutboxStats{PendingCount: 11}}, limit: 10, status: StatusDegraded, message: "11 pending"},
		{name: "stats error", stats: stubOutboxStats{err: errors.New("db down")}, limit: 10, status: StatusUnhealthy, message: "db down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := NewOutboxBacklogChecker(tt.stats, tt.limit).Check(context.Background())
			require.Equal(t, "outbox", check.Name)
			require.Equal(t, tt.status, check.Status)
			require.Contains(t, check.Message, tt.message)
		})
	}
}

func TestHandler_DegradedStaysReady(t *testing.T) {
	handler := NewHandler("v1.0.0")
	handler.RegisterChecker("outbox", NewOutboxBacklogChecker(stubOutboxStats{stats: domain.OutboxStats{PendingCount: 50}}, 1))
	handler.RegisterChecker("postgres", healthy("postgres"))
	require.Equal(t, []string{"outbox", "postgres"}, handler.Names())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, StatusDegraded, decodeResponse(t, w).Status)

	ready := httptest.NewRecorder()
	handler.ReadinessHandler(ready, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, ready.Code)
}

func TestHandler_RegisterReplacesChecker(t *testing.T) {
	handler := NewHandler("dev")
	handler.RegisterChecker("redis", failing("redis", "down"))
	handler.RegisterChecker("redis", healthy("redis"))

	status, checks := handler.Run(context.Background())
	require.Equal(t, StatusHealthy, status)
	require.Len(t, checks, 1)
	require.Equal(t, []string{"redis"}, handler.Names())
}
