package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const envPrefix = "NEXAMON_"

// Config holds the full runtime configuration, populated from NEXAMON_*
// environment variables.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":3001"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	// Metrics gateway (tier-1 snapshot source).
	GatewayURL     string        `env:"GATEWAY_URL" envDefault:"http://127.0.0.1:9900"`
	GatewayTimeout time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"4s"`

	// Snapshot history.
	StoreEngine    string `env:"STORE_ENGINE" envDefault:"file"` // "file" or "badger"
	DataDir        string `env:"DATA_DIR" envDefault:"./data/metrics-history"`
	RetentionLimit int    `env:"RETENTION_LIMIT" envDefault:"1440"` // entries per UTC day
	RetentionDays  int    `env:"RETENTION_DAYS" envDefault:"30"`    // day partitions kept on disk

	// Push channel.
	BroadcastInterval time.Duration `env:"BROADCAST_INTERVAL" envDefault:"30s"`

	// Socket auth. Leaving the secret empty disables token checks.
	JWTSecret   string        `env:"JWT_SECRET"`
	TokenExpiry time.Duration `env:"TOKEN_EXPIRY" envDefault:"2160h"`
}

// Load reads configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects configurations the services cannot run with.
func (c Config) Validate() error {
	if c.StoreEngine != "file" && c.StoreEngine != "badger" {
		return fmt.Errorf("unknown store engine %q", c.StoreEngine)
	}
	if c.RetentionLimit <= 0 {
		return errors.New("retention limit must be positive")
	}
	if c.GatewayTimeout <= 0 {
		return errors.New("gateway timeout must be positive")
	}
	if c.BroadcastInterval <= 0 {
		return errors.New("broadcast interval must be positive")
	}

	return nil
}
