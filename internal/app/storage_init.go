package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/cafepos/internal/health"
	"github.com/vladislavdragonenkov/cafepos/internal/storage/memory"
	"github.com/vladislavdragonenkov/cafepos/internal/storage/postgres"
	cartredis "github.com/vladislavdragonenkov/cafepos/internal/storage/redis"
)

const redisConnectTimeout = 3 * time.Second

// runtimeDependencies — хранилища, выбранные конфигурацией, и их проверки здоровья.
type runtimeDependencies struct {
	menuRepo        domain.MenuRepository
	auditRepo       domain.AuditRepository
	orderRepo       domain.OrderRepository
	outboxRepo      domain.OutboxRepository
	idempotencyRepo domain.IdempotencyRepository
	cartStore       domain.CartStore

	checkers map[string]healthcheck.Checker
	closers  []func() error
}

func (d *runtimeDependencies) close(logger *log.Entry) {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}
	d.closers = nil
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	deps := &runtimeDependencies{checkers: make(map[string]healthcheck.Checker)}

	switch driver := strings.ToLower(strings.TrimSpace(cfg.StorageDriver)); driver {
	case "", StorageDriverMemory:
		deps.menuRepo = memory.NewMenuRepository()
		deps.auditRepo = memory.NewAuditRepository()
		deps.orderRepo = memory.NewOrderRepository()
		deps.outboxRepo = memory.NewOutboxRepository()
		deps.idempotencyRepo = memory.NewIdempotencyRepository()
		logger.Info("using in-memory storage")
	case StorageDriverPostgres:
		if err := initPostgres(ctx, cfg, deps, logger); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	if err := initCartStore(ctx, cfg, deps, logger); err != nil {
		deps.close(logger)
		return nil, err
	}

	deps.checkers["outbox"] = healthcheck.NewOutboxBacklogChecker(deps.outboxRepo, cfg.OutboxMaxPending)
	return deps, nil
}

func initPostgres(ctx context.Context, cfg Config, deps *runtimeDependencies, logger *log.Entry) error {
	dsn := strings.TrimSpace(cfg.PostgresDSN)
	if dsn == "" {
		return errors.New("postgres storage requires CAFE_POSTGRES_DSN")
	}

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return err
	}
	if cfg.PostgresAutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return fmt.Errorf("apply postgres migrations: %w", err)
		}
	}

	deps.menuRepo = postgres.NewMenuRepository(store)
	deps.auditRepo = postgres.NewAuditRepository(store)
	deps.orderRepo = postgres.NewOrderRepository(store)
	deps.outboxRepo = postgres.NewOutboxRepository(store)
	deps.idempotencyRepo = postgres.NewIdempotencyRepository(store)
	deps.checkers["postgres"] = healthcheck.NewPingChecker("postgres", store)
	deps.closers = append(deps.closers, store.Close)

	logger.WithField("auto_migrate", cfg.PostgresAutoMigrate).Info("using postgres storage")
	return nil
}

func initCartStore(ctx context.Context, cfg Config, deps *runtimeDependencies, logger *log.Entry) error {
	switch kind := strings.ToLower(strings.TrimSpace(cfg.CartStore)); kind {
	case "", CartStoreMemory:
		deps.cartStore = memory.NewCartStore()
		return nil
	case CartStoreRedis:
	default:
		return fmt.Errorf("unsupported cart store %q", cfg.CartStore)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	store := cartredis.NewCartStore(client, cfg.CartTTL)

	pingCtx, cancel := context.WithTimeout(ctx, redisConnectTimeout)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		_ = client.Close()
		return fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
	}

	deps.cartStore = store
	deps.checkers["redis"] = healthcheck.NewPingChecker("redis", store)
	deps.closers = append(deps.closers, client.Close)

	logger.WithFields(log.Fields{"addr": cfg.RedisAddr, "ttl": cfg.CartTTL}).Info("using redis cart store")
	return nil
}
