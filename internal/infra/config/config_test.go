package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requiredEnv() map[string]string {
	return map[string]string{
		"TELEGRAM_TOKEN":      "token",
		"TELEGRAM_CHANNEL_ID": "-1001234",
		"ADMIN_TELEGRAM_ID":   "42",
		"DATABASE_URL":        "postgres://localhost/agent",
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := parse(env.Options{Environment: requiredEnv()})
	require.NoError(t, err)

	assert.Equal(t, int64(-1001234), cfg.TelegramChannelID)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 1, cfg.MinQueueSize)
	assert.Equal(t, 100, cfg.QueueCapacity)
	assert.Equal(t, 60*time.Second, cfg.OuterPollInterval)
	assert.Equal(t, 5*time.Second, cfg.TickInterval)
	assert.Equal(t, 5*time.Minute, cfg.ActionTimeout)
	assert.Equal(t, 0.3, cfg.MinEthBalance)
	assert.Equal(t, "*/30 * * * *", cfg.CronSpecBalanceCheck)
	assert.False(t, cfg.ChainEnabled())
	assert.False(t, cfg.PersistenceEnabled())
}

func TestParseOverridesAndNormalises(t *testing.T) {
	vars := requiredEnv()
	vars["LOG_LEVEL"] = "DEBUG"
	vars["ENVIRONMENT"] = "Production"
	vars["TICK_INTERVAL"] = "2s"
	vars["REDIS_ADDR"] = "localhost:6379"

	cfg, err := parse(env.Options{Environment: vars})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 2*time.Second, cfg.TickInterval)
	assert.True(t, cfg.PersistenceEnabled())
}

func TestParseMissingRequired(t *testing.T) {
	vars := requiredEnv()
	delete(vars, "DATABASE_URL")

	_, err := parse(env.Options{Environment: vars})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"zero min queue size", "MIN_QUEUE_SIZE", "0"},
		{"seen smaller than capacity", "SEEN_ID_CAPACITY", "10"},
		{"zero tick", "TICK_INTERVAL", "0s"},
		{"negative balance floor", "MIN_ETH_BALANCE", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := requiredEnv()
			vars[tt.key] = tt.val
			_, err := parse(env.Options{Environment: vars})
			assert.Error(t, err)
		})
	}
}
