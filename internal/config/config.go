package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/cleanquest.db"`
	MediaDir string     `env:"MEDIA_DIR" envDefault:"data/media"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	// RedisURL enables the leaderboard cache; empty runs without Redis.
	RedisURL string `env:"REDIS_URL"`

	// ScorerMode selects the cleanliness scorer: "mock" or "model".
	ScorerMode    string        `env:"SCORER_MODE" envDefault:"mock"`
	ScorerURL     string        `env:"SCORER_URL" envDefault:"http://localhost:9090"`
	ScorerTimeout time.Duration `env:"SCORER_TIMEOUT" envDefault:"10s"`

	SeedDemo bool `env:"SEED_DEMO" envDefault:"false"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.ScorerMode != "mock" && cfg.ScorerMode != "model" {
		return nil, fmt.Errorf("invalid SCORER_MODE %q: want mock or model", cfg.ScorerMode)
	}
	return &cfg, nil
}
