package config

import (
	"time"

	"github.com/Skotchmaster/storefront/pkg/config"
	"github.com/Skotchmaster/storefront/pkg/db"
)

type ServiceConfig struct {
	config.Config

	EventsTopic      string
	OutboxInterval   time.Duration
	OutboxBatch      int
	IdempotencyTTL   time.Duration
	IdempotencyLease time.Duration
	RunMigrations    bool
	DBPool           db.Pool
}

// FromEnv reads the settings without enforcing required ones.
func FromEnv() ServiceConfig {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "order"
	}

	return ServiceConfig{
		Config:           cfg,
		EventsTopic:      config.EnvDefault("ORDER_EVENTS_TOPIC", "order_events"),
		OutboxInterval:   config.EnvDurationDefault("OUTBOX_INTERVAL", time.Second),
		OutboxBatch:      config.EnvIntDefault("OUTBOX_BATCH", 100),
		IdempotencyTTL:   config.EnvDurationDefault("IDEMPOTENCY_TTL", 24*time.Hour),
		IdempotencyLease: config.EnvDurationDefault("IDEMPOTENCY_LEASE", 30*time.Second),
		RunMigrations:    config.EnvBoolDefault("RUN_MIGRATIONS", true),
		DBPool: db.Pool{
			MaxOpenConns:    config.EnvIntDefault("DB_MAX_OPEN_CONNS", 20),
			ConnMaxLifetime: config.EnvDurationDefault("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			SlowQuery:       config.EnvDurationDefault("DB_SLOW_QUERY", 200*time.Millisecond),
		},
	}
}

func Load() ServiceConfig {
	cfg := FromEnv()

	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	config.MustPositive(cfg.OutboxInterval, "OUTBOX_INTERVAL")

	return cfg
}
