package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/affiliate-link-bot/internal/core/errors"
)

// Test environment variable keys.
const (
	testEnvBotToken       = "BOT_TOKEN"
	testEnvLegacyBotToken = "TELEGRAM_BOT_TOKEN"
)

const testBotToken = "123456:ABC-DEF"

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()

	for _, key := range keys {
		if val, ok := os.LookupEnv(key); ok {
			require.NoError(t, os.Unsetenv(key))
			t.Cleanup(func() { _ = os.Setenv(key, val) })
		}
	}
}

func TestLoad_MissingToken(t *testing.T) {
	unsetEnv(t, testEnvBotToken, testEnvLegacyBotToken)

	_, err := Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
}

func TestLoad_Defaults(t *testing.T) {
	unsetEnv(t, testEnvLegacyBotToken, "CONFIG_PATH", "CONFIG_RELOAD_SECONDS", "AFFILIATE_CONFIG_PATH",
		"CONFIG_RELOAD_INTERVAL", "APP_ENV", "REDIS_ADDR", "HEALTH_PORT")
	t.Setenv(testEnvBotToken, testBotToken)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, testBotToken, cfg.BotToken)
	assert.Equal(t, "data/config.yaml", cfg.AffiliateConfigPath)
	assert.Equal(t, 24*time.Hour, cfg.ConfigReloadInterval)
	assert.Equal(t, "https://api-sg.aliexpress.com/sync", cfg.AliExpressAPIURL)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 8080, cfg.HealthPort)
	assert.True(t, cfg.IsLocal())
}

func TestLoad_LegacyAliases(t *testing.T) {
	unsetEnv(t, testEnvBotToken, "AFFILIATE_CONFIG_PATH", "CONFIG_RELOAD_INTERVAL")
	t.Setenv(testEnvLegacyBotToken, testBotToken)
	t.Setenv("CONFIG_PATH", "/etc/bot/config.yaml")
	t.Setenv("CONFIG_RELOAD_SECONDS", "60")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, testBotToken, cfg.BotToken)
	assert.Equal(t, "/etc/bot/config.yaml", cfg.AffiliateConfigPath)
	assert.Equal(t, time.Minute, cfg.ConfigReloadInterval)
}

func TestLoad_CurrentNamesWinOverAliases(t *testing.T) {
	t.Setenv(testEnvBotToken, testBotToken)
	t.Setenv(testEnvLegacyBotToken, "legacy")
	t.Setenv("CONFIG_RELOAD_INTERVAL", "2h")
	t.Setenv("CONFIG_RELOAD_SECONDS", "60")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, testBotToken, cfg.BotToken)
	assert.Equal(t, 2*time.Hour, cfg.ConfigReloadInterval)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv(testEnvBotToken, testBotToken)
	t.Setenv("SHORT_URL_RPS", "0")

	_, err := Load()
	require.ErrorIs(t, err, errors.ErrInvalidConfig)

	t.Setenv("SHORT_URL_RPS", "2")
	t.Setenv("HEALTH_PORT", "not-a-number")

	_, err = Load()
	require.Error(t, err)
}
