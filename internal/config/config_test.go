package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Default()
	if cfg.TradingMode != "paper" {
		t.Fatalf("expected trading_mode=paper by default, got %q", cfg.TradingMode)
	}
	if cfg.RedisAddr == "" {
		t.Fatal("expected non-empty default redis_addr")
	}
	if cfg.APIAddr == "" {
		t.Fatal("expected non-empty default api_addr")
	}
	if cfg.Risk.DailyLossLimitPct <= 0 {
		t.Fatal("expected positive default risk.daily_loss_limit_pct")
	}
	if cfg.Sizer.KellyFraction <= 0 {
		t.Fatal("expected positive default sizer.kelly_fraction")
	}
	if cfg.Queue.Concurrency <= 0 {
		t.Fatal("expected positive default queue.concurrency")
	}
	if cfg.Scheduler.TokenJobInterval <= 0 {
		t.Fatal("expected positive default scheduler.token_job_interval")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to validate: %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	yaml := `
trading_mode: live
redis_addr: redis:6380
filter:
  min_liquidity: 5000
  category_allow:
    - Politics
risk:
  daily_loss_limit_pct: 0.03
  max_drawdown_pct: 0.2
sizer:
  kelly_fraction: 0.3
queue:
  concurrency: 8
scheduler:
  token_job_interval: 10s
`
	f, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write([]byte(yaml)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	cfg, err := LoadFile(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TradingMode != "live" {
		t.Fatalf("expected trading_mode live, got %q", cfg.TradingMode)
	}
	if cfg.RedisAddr != "redis:6380" {
		t.Fatalf("expected redis_addr override, got %q", cfg.RedisAddr)
	}
	if cfg.Filter.MinLiquidity != 5000 {
		t.Fatalf("expected filter.min_liquidity 5000, got %f", cfg.Filter.MinLiquidity)
	}
	if len(cfg.Filter.CategoryAllow) != 1 || cfg.Filter.CategoryAllow[0] != "Politics" {
		t.Fatalf("expected filter.category_allow=[Politics], got %v", cfg.Filter.CategoryAllow)
	}
	if cfg.Risk.DailyLossLimitPct != 0.03 {
		t.Fatalf("expected risk.daily_loss_limit_pct 0.03, got %f", cfg.Risk.DailyLossLimitPct)
	}
	if cfg.Risk.MaxDrawdownPct != 0.2 {
		t.Fatalf("expected risk.max_drawdown_pct 0.2, got %f", cfg.Risk.MaxDrawdownPct)
	}
	if cfg.Sizer.KellyFraction != 0.3 {
		t.Fatalf("expected sizer.kelly_fraction 0.3, got %f", cfg.Sizer.KellyFraction)
	}
	if cfg.Queue.Concurrency != 8 {
		t.Fatalf("expected queue.concurrency 8, got %d", cfg.Queue.Concurrency)
	}
	if cfg.Scheduler.TokenJobInterval != 10*time.Second {
		t.Fatalf("expected scheduler.token_job_interval 10s, got %v", cfg.Scheduler.TokenJobInterval)
	}
}

func TestLoadFileInvalidPath(t *testing.T) {
	_, err := LoadFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for invalid path")
	}
}

func TestLoadFileInvalidYAML(t *testing.T) {
	f, err := os.CreateTemp("", "bad-config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write([]byte("{{invalid yaml")); err != nil {
		t.Fatal(err)
	}
	f.Close()

	_, err = LoadFile(f.Name())
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestApplyEnvCredentialsAndUpstream(t *testing.T) {
	t.Setenv("POLYMARKET_API_KEY", "test-key")
	t.Setenv("POLYMARKET_API_SECRET", "test-secret")
	t.Setenv("POLYMARKET_API_PASSPHRASE", "test-pass")
	t.Setenv("POLYGON_RPC_URL", "https://polygon-rpc.example/v1")
	t.Setenv("REDIS_ADDR", "redis.internal:6379")

	cfg := Default()
	cfg.ApplyEnv()

	if cfg.APIKey != "test-key" {
		t.Fatalf("expected APIKey test-key, got %s", cfg.APIKey)
	}
	if cfg.APISecret != "test-secret" {
		t.Fatalf("expected APISecret test-secret, got %s", cfg.APISecret)
	}
	if cfg.APIPassphrase != "test-pass" {
		t.Fatalf("expected APIPassphrase test-pass, got %s", cfg.APIPassphrase)
	}
	if cfg.PolygonRPCURL != "https://polygon-rpc.example/v1" {
		t.Fatalf("expected PolygonRPCURL override, got %s", cfg.PolygonRPCURL)
	}
	if cfg.RedisAddr != "redis.internal:6379" {
		t.Fatalf("expected RedisAddr override, got %s", cfg.RedisAddr)
	}
}

func TestApplyEnvTelegram(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "bot-token")
	t.Setenv("TELEGRAM_CHAT_ID", "chat-id")

	cfg := Default()
	cfg.ApplyEnv()

	if !cfg.Telegram.Enabled {
		t.Fatal("expected Telegram.Enabled=true once bot token is set")
	}
	if cfg.Telegram.BotToken != "bot-token" {
		t.Fatalf("expected bot token override, got %s", cfg.Telegram.BotToken)
	}
	if cfg.Telegram.ChatID != "chat-id" {
		t.Fatalf("expected chat id override, got %s", cfg.Telegram.ChatID)
	}
}

func TestApplyEnvTradingModeLowercased(t *testing.T) {
	t.Setenv("ENGINE_TRADING_MODE", "LIVE")
	cfg := Default()
	cfg.ApplyEnv()
	if cfg.TradingMode != "live" {
		t.Fatalf("expected trading mode from env to be lowercased to live, got %q", cfg.TradingMode)
	}
}

func TestApplyEnvLogLevelLowercased(t *testing.T) {
	t.Setenv("ENGINE_LOG_LEVEL", "DEBUG")
	cfg := Default()
	cfg.ApplyEnv()
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected log level lowercased to debug, got %q", cfg.LogLevel)
	}
}

func TestResolvePredicateRebuildsCollectorPredicate(t *testing.T) {
	cfg := Default()
	cfg.Filter.MinLiquidity = 1000
	cfg.ResolvePredicate()
	if cfg.Collector.Predicate == nil {
		t.Fatal("expected ResolvePredicate to set Collector.Predicate")
	}
}
