package app

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Драйверы хранилища заказов и каталога.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Хранилища сессий кассы.
const (
	CartStoreMemory = "memory"
	CartStoreRedis  = "redis"
)

// Config описывает настройки запуска сервиса.
// Структура сравнима через ==, поэтому списки хранятся строками.
type Config struct {
	GRPCAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	CartStore     string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CartTTL       time.Duration

	// KafkaBrokers — адреса через запятую; пусто — события остаются в процессе.
	KafkaBrokers       string
	KafkaOrderTopic    string
	KafkaConsumerGroup string
	SalesProjector     bool

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
	OutboxMaxPending   int
	// OutboxRetention — сколько хранить отправленные события; 0 — не удалять.
	OutboxRetention time.Duration

	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int

	CheckoutMaxAttempts int

	// AdminUsername пустой — аутентификация выключена.
	AdminUsername     string
	AdminPasswordHash string
	AuthSecret        string
	AuthTokenTTL      time.Duration

	ReceiptBaseURL string
}

// DefaultConfig возвращает настройки для локального запуска без внешних зависимостей.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:    ":50051",
		MetricsAddr: ":9090",

		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,

		CartStore: CartStoreMemory,
		RedisAddr: "localhost:6379",
		CartTTL:   12 * time.Hour,

		KafkaOrderTopic:    "cafe.order.events",
		KafkaConsumerGroup: "cafepos-sales",
		SalesProjector:     true,

		OutboxPollInterval: time.Second,
		OutboxBatchSize:    100,
		OutboxMaxAttempts:  3,
		OutboxRetryDelay:   100 * time.Millisecond,
		OutboxMaxPending:   1000,
		OutboxRetention:    7 * 24 * time.Hour,

		IdempotencyCleanupInterval:  time.Hour,
		IdempotencyCleanupBatchSize: 500,

		CheckoutMaxAttempts: 3,
		AuthTokenTTL:        12 * time.Hour,
	}
}

// Validate проверяет сочетания настроек до открытия соединений.
func (c Config) Validate() error {
	var errs []error

	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			errs = append(errs, errors.New("postgres storage requires CAFE_POSTGRES_DSN"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}

	switch c.CartStore {
	case CartStoreMemory:
	case CartStoreRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			errs = append(errs, errors.New("redis cart store requires CAFE_REDIS_ADDR"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported cart store %q", c.CartStore))
	}

	if c.KafkaBrokers != "" && strings.TrimSpace(c.KafkaOrderTopic) == "" {
		errs = append(errs, errors.New("kafka order topic must not be empty"))
	}
	if strings.TrimSpace(c.AdminUsername) != "" && c.AdminPasswordHash == "" {
		errs = append(errs, errors.New("admin username is set without CAFE_ADMIN_PASSWORD_HASH"))
	}

	return errors.Join(errs...)
}
