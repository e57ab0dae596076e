// Package config loads and validates the engine's runtime configuration
// (spec §9): upstream credentials, store wiring, and the per-package
// tuning knobs for the collector, queue, sizer, risk manager, and
// decision service.
package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/marketwatch/anomaly-engine/internal/collector"
	"github.com/marketwatch/anomaly-engine/internal/decision"
	"github.com/marketwatch/anomaly-engine/internal/queue"
	"github.com/marketwatch/anomaly-engine/internal/risk"
	"github.com/marketwatch/anomaly-engine/internal/sizer"
)

// Config is the engine's full runtime configuration.
type Config struct {
	// Gamma/CLOB credentials. They are loaded but cmd/engine does not pass
	// them to any client: the CLOB client always runs unauthenticated and
	// no RequestSigner implementation exists.
	APIKey        string `yaml:"api_key"`
	APISecret     string `yaml:"api_secret"`
	APIPassphrase string `yaml:"api_passphrase"`

	// PolygonRPCURL is the JSON-RPC endpoint ChainExplorer reads on-chain
	// wallet facts from.
	PolygonRPCURL string `yaml:"polygon_rpc_url"`

	RedisAddr string `yaml:"redis_addr"`
	// InitialBankrollUSD seeds internal/portfolio.Tracker's paper bankroll on
	// first startup only; subsequent runs keep whatever the store holds.
	InitialBankrollUSD float64 `yaml:"initial_bankroll_usd"`
	// TradingMode is "paper", "shadow", or "live" (spec §9). "shadow" runs
	// the full pipeline and emits decisions but the engine downgrades every
	// approved one to a NO_TRADE rejection; "paper" and "live" both let
	// approved decisions through, tagged via Decision.PaperMode.
	TradingMode string `yaml:"trading_mode"`
	LogLevel    string `yaml:"log_level"`
	LogPretty   bool   `yaml:"log_pretty"`

	APIAddr string `yaml:"api_addr"`

	// Collector.Predicate isn't YAML-serializable and is always rebuilt from
	// Filter by the composition root via collector.DiscoveryFilter.
	Collector collector.Config       `yaml:"collector"`
	Filter    collector.FilterConfig `yaml:"filter"`
	Queue     queue.Config           `yaml:"queue"`
	Scheduler queue.SchedulerConfig  `yaml:"scheduler"`
	Sizer     sizer.Config           `yaml:"sizer"`
	Risk      risk.Config            `yaml:"risk"`
	Decision  decision.Config        `yaml:"decision"`

	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig configures the operator-alert Notifier.
type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// Default returns the spec's default configuration.
func Default() Config {
	return Config{
		RedisAddr:          "localhost:6379",
		InitialBankrollUSD: 10000,
		TradingMode:        "paper",
		LogLevel:           "info",
		APIAddr:            ":8080",

		Collector: collector.DefaultConfig(),
		Queue:     queue.DefaultConfig(),
		Scheduler: queue.DefaultSchedulerConfig(),
		Sizer:     sizer.DefaultConfig(),
		Risk:      risk.DefaultConfig(),
		Decision:  decision.DefaultConfig(),
	}
}

// LoadFile reads a YAML config file, overlaying it on Default().
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables on top of a loaded config
// (spec §9: credentials are never committed to file, only env or secret
// store).
func (c *Config) ApplyEnv() {
	if v := os.Getenv("POLYMARKET_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("POLYMARKET_API_SECRET"); v != "" {
		c.APISecret = v
	}
	if v := os.Getenv("POLYMARKET_API_PASSPHRASE"); v != "" {
		c.APIPassphrase = v
	}
	if v := os.Getenv("POLYGON_RPC_URL"); v != "" {
		c.PolygonRPCURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
		c.Telegram.Enabled = true
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_TRADING_MODE")); v != "" {
		c.TradingMode = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_LOG_LEVEL")); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
}

// ResolvePredicate rebuilds Collector.Predicate from Filter. Call after
// LoadFile/ApplyEnv, since Predicate is not YAML-serializable.
func (c *Config) ResolvePredicate() {
	c.Collector.Predicate = collector.DiscoveryFilter(c.Filter)
}

// schedulerMinInterval is the floor ApplyRolloutPhase clamps the token job
// interval to in the "live-small" phase (spec §9: a slower rollout phase
// trades discovery latency for upstream call volume).
const schedulerMinInterval = 5 * time.Second
