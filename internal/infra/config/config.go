package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken     string `env:"TELEGRAM_TOKEN,required"`
	TelegramChannelID int64  `env:"TELEGRAM_CHANNEL_ID,required"` // where outward posts go
	AdminTelegramID   int64  `env:"ADMIN_TELEGRAM_ID,required"`
	DatabaseURL       string `env:"DATABASE_URL,required"`
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info"`
	Environment       string `env:"ENVIRONMENT" envDefault:"development"`

	EthRPCURL               string `env:"ETH_RPC_URL"`
	TeleportContractAddress string `env:"TELEPORT_CONTRACT_ADDRESS"`
	AgentPrivateKey         string `env:"AGENT_PRIVATE_KEY"` // hex, no 0x prefix required

	LLMAPIKey  string `env:"LLM_API_KEY"`
	LLMBaseURL string `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel   string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`

	RedisAddr     string `env:"REDIS_ADDR"` // empty disables state persistence
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisStateKey string `env:"REDIS_STATE_KEY" envDefault:"pacer_agent:behavior_state"`

	ActivityProfilePath string `env:"ACTIVITY_PROFILE_PATH"`

	MinQueueSize           int     `env:"MIN_QUEUE_SIZE" envDefault:"1"`
	QueueCapacity          int     `env:"QUEUE_CAPACITY" envDefault:"100"`
	SeenIDCapacity         int     `env:"SEEN_ID_CAPACITY" envDefault:"10000"`
	MinPostingSignificance int     `env:"MIN_POSTING_SIGNIFICANCE" envDefault:"3"`
	MinEthBalance          float64 `env:"MIN_ETH_BALANCE" envDefault:"0.3"`
	MaxTransferEth         float64 `env:"MAX_TRANSFER_ETH" envDefault:"0.01"`

	OuterPollInterval time.Duration `env:"OUTER_POLL_INTERVAL" envDefault:"60s"`
	TickInterval      time.Duration `env:"TICK_INTERVAL" envDefault:"5s"`
	ActionTimeout     time.Duration `env:"ACTION_TIMEOUT" envDefault:"5m"`
	ChainPollTimeout  time.Duration `env:"CHAIN_POLL_TIMEOUT" envDefault:"30s"`

	CronSpecBalanceCheck string `env:"CRON_SPEC_BALANCE_CHECK" envDefault:"*/30 * * * *"`
	CronSpecStatusReport string `env:"CRON_SPEC_STATUS_REPORT" envDefault:"0 * * * *"`
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables; a missing file is fine.
	_ = godotenv.Load()
	return parse(env.Options{})
}

func parse(opts env.Options) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Environment = strings.ToLower(cfg.Environment)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values the struct tags cannot express.
func (c *AppConfig) Validate() error {
	if c.MinQueueSize < 1 {
		return fmt.Errorf("MIN_QUEUE_SIZE must be at least 1, got %d", c.MinQueueSize)
	}
	if c.QueueCapacity < 1 {
		return fmt.Errorf("QUEUE_CAPACITY must be at least 1, got %d", c.QueueCapacity)
	}
	if c.SeenIDCapacity < c.QueueCapacity {
		return fmt.Errorf("SEEN_ID_CAPACITY (%d) must not be smaller than QUEUE_CAPACITY (%d)", c.SeenIDCapacity, c.QueueCapacity)
	}
	for name, d := range map[string]time.Duration{
		"OUTER_POLL_INTERVAL": c.OuterPollInterval,
		"TICK_INTERVAL":       c.TickInterval,
		"ACTION_TIMEOUT":      c.ActionTimeout,
		"CHAIN_POLL_TIMEOUT":  c.ChainPollTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.MinEthBalance < 0 || c.MaxTransferEth < 0 {
		return fmt.Errorf("MIN_ETH_BALANCE and MAX_TRANSFER_ETH must not be negative")
	}
	return nil
}

// ChainEnabled reports whether chain polling and the wallet can be wired.
func (c *AppConfig) ChainEnabled() bool {
	return c.EthRPCURL != "" && c.TeleportContractAddress != "" && c.AgentPrivateKey != ""
}

// PersistenceEnabled reports whether behavior state is snapshotted to Redis.
func (c *AppConfig) PersistenceEnabled() bool {
	return c.RedisAddr != ""
}
