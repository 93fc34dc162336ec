// Package app собирает зависимости и запускает back-office.
package app

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

// Поддерживаемые драйверы хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска приложения. Значения читаются из
// переменных окружения (с префиксом BACKOFFICE_) после необязательного .env.
type Config struct {
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8000"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	StorageDriver       string `envconfig:"STORAGE_DRIVER" default:"memory"`
	PostgresDSN         string `envconfig:"POSTGRES_DSN"`
	PostgresAutoMigrate bool   `envconfig:"POSTGRES_AUTO_MIGRATE" default:"true"`

	// StaticDir — каталог для изображений товаров, отдаётся под /static.
	StaticDir string `envconfig:"STATIC_DIR" default:"static"`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`

	OutboxPollInterval time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"1s"`
	OutboxBatchSize    int           `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
	OutboxMaxAttempts  int           `envconfig:"OUTBOX_MAX_ATTEMPTS" default:"3"`
	OutboxRetryDelay   time.Duration `envconfig:"OUTBOX_RETRY_DELAY" default:"50ms"`

	SessionAccessTTL        time.Duration `envconfig:"SESSION_ACCESS_TTL" default:"30m"`
	SessionRefreshTTL       time.Duration `envconfig:"SESSION_REFRESH_TTL" default:"168h"`
	SessionCleanupInterval  time.Duration `envconfig:"SESSION_CLEANUP_INTERVAL" default:"15m"`
	SessionCleanupBatchSize int           `envconfig:"SESSION_CLEANUP_BATCH_SIZE" default:"500"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// DefaultConfig возвращает конфигурацию по умолчанию без чтения окружения.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:                ":8000",
		MetricsAddr:             ":9090",
		StorageDriver:           StorageDriverMemory,
		PostgresAutoMigrate:     true,
		StaticDir:               "static",
		OutboxPollInterval:      time.Second,
		OutboxBatchSize:         100,
		OutboxMaxAttempts:       3,
		OutboxRetryDelay:        50 * time.Millisecond,
		SessionAccessTTL:        30 * time.Minute,
		SessionRefreshTTL:       7 * 24 * time.Hour,
		SessionCleanupInterval:  15 * time.Minute,
		SessionCleanupBatchSize: 500,
		LogLevel:                "info",
	}
}

// LoadConfig читает .env (если есть) и переменные окружения.
func LoadConfig(logger *log.Entry) (Config, error) {
	if logger == nil {
		logger = log.WithField("component", "config")
	}

	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			logger.WithError(err).Warn("failed to load .env file, continuing")
		}
	} else {
		logger.Info("configuration loaded from .env file")
	}

	var cfg Config
	if err := envconfig.Process("backoffice", &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate проверяет согласованность конфигурации.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres storage driver requires POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	return nil
}
