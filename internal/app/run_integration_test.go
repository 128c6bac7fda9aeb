package app

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	healthcheck "github.com/vladislavdragonenkov/cafepos/internal/health"
	"github.com/vladislavdragonenkov/cafepos/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/cafepos/internal/service/auth"
)

// localConfig — in-memory конфигурация на случайных портах.
func localConfig() Config {
	cfg := DefaultConfig()
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"
	return cfg
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- Run(ctx, localConfig()) }()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after the context was done")
	}
}

func TestRun_RejectsInvalidConfig(t *testing.T) {
	cfg := localConfig()
	cfg.StorageDriver = "invalid-driver"
	require.ErrorContains(t, Run(context.Background(), cfg), "unsupported storage driver")

	cfg = localConfig()
	cfg.AdminUsername = "admin"
	cfg.AdminPasswordHash = "not-a-bcrypt-hash"
	cfg.AuthSecret = "0123456789abcdef"
	require.ErrorContains(t, Run(context.Background(), cfg), "invalid password hash")
}

func TestInitAuth_DisabledWithoutUsername(t *testing.T) {
	svc, err := initAuth(DefaultConfig(), log.WithField("test", "auth-off"))
	require.NoError(t, err)
	require.Nil(t, svc)

	services := newServices(DefaultConfig(), mustMemoryDeps(t), nil, log.WithField("test", "auth-off"))
	require.Nil(t, services.Auth)
}

func TestInitAuth_WiresAuthenticator(t *testing.T) {
	logger := log.WithField("test", "auth-on")
	hash, err := auth.HashPassword("flat-white")
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.AdminUsername = "admin"
	cfg.AdminPasswordHash = hash
	cfg.AuthSecret = "short"
	_, err = initAuth(cfg, logger)
	require.ErrorContains(t, err, "at least 16 bytes")

	cfg.AuthSecret = "0123456789abcdef"
	svc, err := initAuth(cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, svc)

	services := newServices(cfg, mustMemoryDeps(t), svc, logger)
	require.NotNil(t, services.Auth)
}

func TestInitRuntimeDependencies_Postgres(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("CAFE_POSTGRES_TEST_DSN"))
	if dsn == "" {
		t.Skip("CAFE_POSTGRES_TEST_DSN is not set")
	}

	cfg := DefaultConfig()
	cfg.StorageDriver = StorageDriverPostgres
	cfg.PostgresDSN = dsn

	logger := log.WithField("test", "postgres-init")
	deps, err := initRuntimeDependencies(context.Background(), cfg, logger)
	if err != nil {
		t.Skipf("postgres is not reachable: %v", err)
	}
	t.Cleanup(func() { deps.close(logger) })

	assert.NotNil(t, deps.menuRepo)
	assert.NotNil(t, deps.orderRepo)
	assert.NotNil(t, deps.outboxRepo)
	assert.NotNil(t, deps.idempotencyRepo)
	require.Contains(t, deps.checkers, "postgres")
	require.Equal(t, healthcheck.StatusHealthy, deps.checkers["postgres"].Check(context.Background()).Status)
}

func TestShutdownBackground(t *testing.T) {
	logger := log.WithField("test", "shutdown")

	var (
		canceled bool
		wg       sync.WaitGroup
	)
	wg.Add(1)
	go wg.Done()

	shutdownBackground(func() { canceled = true }, &wg, logger)
	require.True(t, canceled)

	require.NotPanics(t, func() {
		shutdownBackground(nil, nil, logger)
		closeKafka(nil, logger)
	})
}

func TestCloseKafka_ClosesProducer(t *testing.T) {
	producer, err := kafka.NewProducer([]string{"localhost:9092"}, nil)
	if err != nil {
		t.Skipf("kafka is not reachable: %v", err)
	}
	require.NotPanics(t, func() { closeKafka(producer, log.WithField("test", "kafka-close")) })
}

func mustMemoryDeps(t *testing.T) *runtimeDependencies {
	t.Helper()
	deps, err := initRuntimeDependencies(context.Background(), DefaultConfig(), log.WithField("test", "memory"))
	require.NoError(t, err)
	return deps
}
