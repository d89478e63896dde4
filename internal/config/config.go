package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the server configuration, loaded from the environment.
type Config struct {
	Env          string        `env:"APP_ENV" envDefault:"development"`
	ListenAddr   string        `env:"LISTEN_ADDR" envDefault:":8080"`
	DatabaseURL  string        `env:"DATABASE_URL"`
	JWTSecret    string        `env:"JWT_SECRET"`
	TokenTTL     time.Duration `env:"TOKEN_TTL" envDefault:"12h"`
	DossierDir   string        `env:"DOSSIER_DIR" envDefault:"./data/dossier"`
	LocalDBPath  string        `env:"LOCAL_DB_PATH" envDefault:"./data/field.db"`
	SyncInterval time.Duration `env:"SYNC_INTERVAL" envDefault:"30s"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
