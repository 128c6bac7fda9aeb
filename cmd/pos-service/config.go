package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/cafepos/internal/app"
)

const (
	envGRPCAddr    = "CAFE_GRPC_ADDR"
	envMetricsAddr = "CAFE_METRICS_ADDR"

	envStorageDriver       = "CAFE_STORAGE_DRIVER"
	envPostgresDSN         = "CAFE_POSTGRES_DSN"
	envPostgresAutoMigrate = "CAFE_POSTGRES_AUTO_MIGRATE"

	envCartStore     = "CAFE_CART_STORE"
	envRedisAddr     = "CAFE_REDIS_ADDR"
	envRedisPassword = "CAFE_REDIS_PASSWORD"
	envRedisDB       = "CAFE_REDIS_DB"
	envCartTTL       = "CAFE_CART_TTL"

	envKafkaBrokers       = "CAFE_KAFKA_BROKERS"
	envKafkaOrderTopic    = "CAFE_KAFKA_ORDER_TOPIC"
	envKafkaConsumerGroup = "CAFE_KAFKA_CONSUMER_GROUP"
	envSalesProjector     = "CAFE_SALES_PROJECTOR"

	envOutboxPollInterval = "CAFE_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize    = "CAFE_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts  = "CAFE_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay   = "CAFE_OUTBOX_RETRY_DELAY"
	envOutboxMaxPending   = "CAFE_OUTBOX_MAX_PENDING"
	envOutboxRetention    = "CAFE_OUTBOX_RETENTION"

	envIdempotencyCleanupInterval  = "CAFE_IDEMPOTENCY_CLEANUP_INTERVAL"
	envIdempotencyCleanupBatchSize = "CAFE_IDEMPOTENCY_CLEANUP_BATCH_SIZE"

	envCheckoutMaxAttempts = "CAFE_CHECKOUT_MAX_ATTEMPTS"

	envAdminUsername     = "CAFE_ADMIN_USERNAME"
	envAdminPasswordHash = "CAFE_ADMIN_PASSWORD_HASH"
	envAuthSecret        = "CAFE_AUTH_SECRET"
	envAuthTokenTTL      = "CAFE_AUTH_TOKEN_TTL"

	envReceiptBaseURL = "CAFE_RECEIPT_BASE_URL"
)

// envLookup — сигнатура os.LookupEnv; в тестах подменяется картой.
type envLookup func(key string) (string, bool)

var (
	positive    = func(v int) bool { return v > 0 }
	nonNegative = func(v int) bool { return v >= 0 }

	positiveDuration    = func(v time.Duration) bool { return v > 0 }
	nonNegativeDuration = func(v time.Duration) bool { return v >= 0 }
)

// readConfigFromEnv накладывает переменные окружения на app.DefaultConfig.
// Некорректные значения не валят запуск: остаётся значение по умолчанию и
// возвращается предупреждение.
func readConfigFromEnv(lookup envLookup) (app.Config, []error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	r := configReader{lookup: lookup}
	cfg := app.DefaultConfig()

	r.str(envGRPCAddr, &cfg.GRPCAddr)
	r.str(envMetricsAddr, &cfg.MetricsAddr)

	if r.str(envStorageDriver, &cfg.StorageDriver) {
		cfg.StorageDriver = strings.ToLower(cfg.StorageDriver)
	}
	r.str(envPostgresDSN, &cfg.PostgresDSN)
	r.boolean(envPostgresAutoMigrate, &cfg.PostgresAutoMigrate)

	if r.str(envCartStore, &cfg.CartStore) {
		cfg.CartStore = strings.ToLower(cfg.CartStore)
	}
	r.str(envRedisAddr, &cfg.RedisAddr)
	r.str(envRedisPassword, &cfg.RedisPassword)
	r.integer(envRedisDB, &cfg.RedisDB, nonNegative, "must be >= 0")
	r.duration(envCartTTL, &cfg.CartTTL, positiveDuration, "must be > 0")

	r.str(envKafkaBrokers, &cfg.KafkaBrokers)
	r.str(envKafkaOrderTopic, &cfg.KafkaOrderTopic)
	r.str(envKafkaConsumerGroup, &cfg.KafkaConsumerGroup)
	r.boolean(envSalesProjector, &cfg.SalesProjector)

	r.duration(envOutboxPollInterval, &cfg.OutboxPollInterval, positiveDuration, "must be > 0")
	r.integer(envOutboxBatchSize, &cfg.OutboxBatchSize, positive, "must be > 0")
	r.integer(envOutboxMaxAttempts, &cfg.OutboxMaxAttempts, positive, "must be > 0")
	r.duration(envOutboxRetryDelay, &cfg.OutboxRetryDelay, nonNegativeDuration, "must be >= 0")
	r.integer(envOutboxMaxPending, &cfg.OutboxMaxPending, nonNegative, "must be >= 0")
	r.duration(envOutboxRetention, &cfg.OutboxRetention, nonNegativeDuration, "must be >= 0")

	r.duration(envIdempotencyCleanupInterval, &cfg.IdempotencyCleanupInterval, positiveDuration, "must be > 0")
	r.integer(envIdempotencyCleanupBatchSize, &cfg.IdempotencyCleanupBatchSize, positive, "must be > 0")

	r.integer(envCheckoutMaxAttempts, &cfg.CheckoutMaxAttempts, positive, "must be > 0")

	r.str(envAdminUsername, &cfg.AdminUsername)
	r.str(envAdminPasswordHash, &cfg.AdminPasswordHash)
	r.str(envAuthSecret, &cfg.AuthSecret)
	r.duration(envAuthTokenTTL, &cfg.AuthTokenTTL, positiveDuration, "must be > 0")

	r.str(envReceiptBaseURL, &cfg.ReceiptBaseURL)

	return cfg, r.warnings
}

type configReader struct {
	lookup   envLookup
	warnings []error
}

// str записывает непустое значение без пробелов по краям и сообщает, было ли оно.
func (r *configReader) str(key string, dst *string) bool {
	raw, ok := r.lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return false
	}
	*dst = strings.TrimSpace(raw)
	return true
}

func (r *configReader) boolean(key string, dst *bool) {
	raw, ok := r.lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return
	}
	v, err := parseBool(raw)
	if err != nil {
		r.warn(key, err)
		return
	}
	*dst = v
}

func (r *configReader) integer(key string, dst *int, validate func(int) bool, msg string) {
	raw, ok := r.lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return
	}
	v, err := parseInt(raw, validate, msg)
	if err != nil {
		r.warn(key, err)
		return
	}
	*dst = v
}

func (r *configReader) duration(key string, dst *time.Duration, validate func(time.Duration) bool, msg string) {
	raw, ok := r.lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return
	}
	v, err := parseDuration(raw, validate, msg)
	if err != nil {
		r.warn(key, err)
		return
	}
	*dst = v
}

func (r *configReader) warn(key string, err error) {
	r.warnings = append(r.warnings, fmt.Errorf("%s: %w, using default", key, err))
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "y", "yes", "on":
		return true, nil
	case "0", "f", "false", "n", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool %q", raw)
	}
}

func parseInt(raw string, validate func(int) bool, msg string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid int %q", raw)
	}
	if validate != nil && !validate(v) {
		return 0, fmt.Errorf("value %d %s", v, msg)
	}
	return v, nil
}

func parseDuration(raw string, validate func(time.Duration) bool, msg string) (time.Duration, error) {
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	if validate != nil && !validate(v) {
		return 0, fmt.Errorf("value %s %s", v, msg)
	}
	return v, nil
}
