package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// ServerConfig is the API process configuration, read from the environment.
type ServerConfig struct {
	Port             string        `env:"API_PORT"          envDefault:"8080"`
	Env              string        `env:"API_ENV"           envDefault:"development"`
	PresetDir        string        `env:"PRESET_DIR"        envDefault:"./presets"`
	CORSOrigins      []string      `env:"CORS_ORIGINS"      envSeparator:","`
	QuoteCacheTTL    time.Duration `env:"QUOTE_CACHE_TTL"   envDefault:"1h"`
	BatchConcurrency int           `env:"BATCH_CONCURRENCY" envDefault:"4"`
	// MaxGridCells caps (n_s+1)·n_t per request.
	MaxGridCells int `env:"MAX_GRID_CELLS" envDefault:"50000000"`
}

// LoadServerConfig parses the environment and checks the numeric limits.
func LoadServerConfig() (ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.BatchConcurrency < 1 {
		return ServerConfig{}, fmt.Errorf("BATCH_CONCURRENCY must be >= 1, got %d", cfg.BatchConcurrency)
	}
	if cfg.MaxGridCells < 1 {
		return ServerConfig{}, fmt.Errorf("MAX_GRID_CELLS must be >= 1, got %d", cfg.MaxGridCells)
	}
	if cfg.QuoteCacheTTL < 0 {
		return ServerConfig{}, fmt.Errorf("QUOTE_CACHE_TTL must be >= 0, got %s", cfg.QuoteCacheTTL)
	}
	return cfg, nil
}

func (c ServerConfig) Production() bool {
	return c.Env == "production"
}
