// Package config reads process settings from the environment, with an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/lueurxax/affiliate-link-bot/internal/core/errors"
)

const (
	// AppEnvLocal switches logging to the human-readable console writer.
	AppEnvLocal = "local"
)

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"local"`
	BotToken string `env:"BOT_TOKEN"`

	// Beneficiary documents
	AffiliateConfigPath  string        `env:"AFFILIATE_CONFIG_PATH" envDefault:"data/config.yaml"`
	CreatorsConfigPath   string        `env:"CREATORS_CONFIG_PATH" envDefault:"creators_affiliates.yaml"`
	ConfigReloadInterval time.Duration `env:"CONFIG_RELOAD_INTERVAL" envDefault:"24h"`

	// Outbound HTTP
	HTTPTimeout      time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
	ShortURLRPS      float64       `env:"SHORT_URL_RPS" envDefault:"2"`
	ShortURLCacheTTL time.Duration `env:"SHORT_URL_CACHE_TTL" envDefault:"24h"`

	// Short-URL cache shared through Redis; empty address keeps the cache in memory.
	RedisAddr     string `env:"REDIS_ADDR" envDefault:""`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// AliExpress affiliate API
	AliExpressAPIURL string  `env:"ALIEXPRESS_API_URL" envDefault:"https://api-sg.aliexpress.com/sync"`
	AliExpressRPS    float64 `env:"ALIEXPRESS_RPS" envDefault:"5"`

	HealthPort int `env:"HEALTH_PORT" envDefault:"8080"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	applyLegacyAliases(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.BotToken) == "":
		return fmt.Errorf("%w: BOT_TOKEN is required", errors.ErrInvalidConfig)
	case strings.TrimSpace(c.AffiliateConfigPath) == "":
		return fmt.Errorf("%w: AFFILIATE_CONFIG_PATH is required", errors.ErrInvalidConfig)
	case c.ConfigReloadInterval <= 0:
		return fmt.Errorf("%w: CONFIG_RELOAD_INTERVAL must be positive", errors.ErrInvalidConfig)
	case c.ShortURLRPS <= 0 || c.AliExpressRPS <= 0:
		return fmt.Errorf("%w: rate limits must be positive", errors.ErrInvalidConfig)
	}

	return nil
}

// IsLocal reports whether the process runs in a developer environment.
func (c *Config) IsLocal() bool {
	return c.AppEnv == AppEnvLocal
}

// applyLegacyAliases accepts the variable names used by older deployments when the current
// name is not set.
func applyLegacyAliases(cfg *Config) {
	if !hasEnv("BOT_TOKEN") {
		setStringFromEnv("TELEGRAM_BOT_TOKEN", &cfg.BotToken)
	}

	if !hasEnv("AFFILIATE_CONFIG_PATH") {
		setStringFromEnv("CONFIG_PATH", &cfg.AffiliateConfigPath)
	}

	if !hasEnv("CONFIG_RELOAD_INTERVAL") {
		setSecondsFromEnv("CONFIG_RELOAD_SECONDS", &cfg.ConfigReloadInterval)
	}
}

func hasEnv(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

func setStringFromEnv(key string, target *string) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	val = strings.TrimSpace(val)
	if val == "" {
		return
	}

	*target = val
}

func setSecondsFromEnv(key string, target *time.Duration) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	parsed, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil || parsed <= 0 {
		return
	}

	*target = time.Duration(parsed) * time.Second
}
