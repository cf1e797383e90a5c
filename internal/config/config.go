package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/geohunt.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	// RedisURL is optional. When empty the sync broker stays in-process
	// and the server runs single-instance.
	RedisURL string `env:"REDIS_URL"`

	// PositionTTL is how old a team's last GPS fix may be before gates
	// and proximity treat the team as absent.
	PositionTTL time.Duration `env:"POSITION_TTL" envDefault:"15s"`

	// SeedDemo populates an empty database with a demo game on startup.
	SeedDemo bool `env:"SEED_DEMO" envDefault:"true"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
