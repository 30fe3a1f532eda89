package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

type Config struct {
	CRDBDSN            string        `env:"CRDB_DSN"`
	MongoURI           string        `env:"MONGO_URI"`
	MongoDB            string        `env:"MONGO_DB" envDefault:"campus"`
	RedisAddr          string        `env:"REDIS_ADDR"`
	RabbitURL          string        `env:"RABBIT_URL"`
	OTLPEndpoint       string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	HTTPAddr           string        `env:"HTTP_ADDR" envDefault:":8080"`
	StoreTimeout       time.Duration `env:"STORE_TIMEOUT" envDefault:"3s"`
	StoreRetries       uint          `env:"STORE_RETRIES" envDefault:"3"`
	ScanGuardTTL       time.Duration `env:"SCAN_GUARD_TTL" envDefault:"5s"`
	ArchiveInterval    time.Duration `env:"ARCHIVE_INTERVAL" envDefault:"1m"`
	OutboxInterval     time.Duration `env:"OUTBOX_INTERVAL" envDefault:"5s"`
	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`
	ScannerAPIURL      string        `env:"SCANNER_API_URL" envDefault:"http://localhost:8080"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "parse env")
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 3 * time.Second
	}
	return &cfg, nil
}
