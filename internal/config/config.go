package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/olga-ai/atendimento/internal/pg"
)

type Config struct {
	Server  ServerConfig
	PG      pg.Config
	Redis   RedisConfig
	Queue   QueueConfig
	Worker  WorkerConfig
	Webhook WebhookConfig
}

type ServerConfig struct {
	Address string `env:"SERVER_ADDRESS" envDefault:":8080"`
}

type RedisConfig struct {
	// Empty address disables the session store.
	Address    string        `env:"REDIS_ADDR"`
	Password   string        `env:"REDIS_PASSWORD"`
	DB         int           `env:"REDIS_DB" envDefault:"0"`
	SessionTTL time.Duration `env:"REDIS_SESSION_TTL" envDefault:"24h"`
}

func (c RedisConfig) Enabled() bool { return c.Address != "" }

type QueueConfig struct {
	MaxRetries     int           `env:"QUEUE_MAX_RETRIES" envDefault:"3"`
	AvgWaitPerItem time.Duration `env:"QUEUE_AVG_WAIT_PER_ITEM" envDefault:"60s"`
}

type WorkerConfig struct {
	Interval    time.Duration `env:"WORKER_INTERVAL" envDefault:"5s"`
	BatchSize   int           `env:"WORKER_BATCH_SIZE" envDefault:"5"`
	Concurrency int           `env:"WORKER_CONCURRENCY" envDefault:"4"`
	Autostart   bool          `env:"WORKER_AUTOSTART" envDefault:"true"`
}

type WebhookConfig struct {
	// Empty URL disables outgoing responses.
	URL string `env:"WEBHOOK_URL"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Queue.MaxRetries <= 0 {
		return errors.New("QUEUE_MAX_RETRIES must be > 0")
	}
	if cfg.Worker.BatchSize <= 0 {
		return errors.New("WORKER_BATCH_SIZE must be > 0")
	}
	if cfg.Worker.Interval <= 0 {
		return errors.New("WORKER_INTERVAL must be > 0")
	}
	if cfg.Worker.Concurrency <= 0 {
		return errors.New("WORKER_CONCURRENCY must be > 0")
	}
	return nil
}
