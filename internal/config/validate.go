package config

import (
	"fmt"
	"strings"
)

// Validate checks high-impact runtime configuration constraints.
func (c Config) Validate() error {
	mode := strings.ToLower(strings.TrimSpace(c.TradingMode))
	if mode != "" && mode != "paper" && mode != "shadow" && mode != "live" {
		return fmt.Errorf("trading_mode must be 'paper', 'shadow', or 'live', got %q", c.TradingMode)
	}

	if c.Risk.DailyLossLimitPct < 0 || c.Risk.DailyLossLimitPct > 1 {
		return fmt.Errorf("risk.daily_loss_limit_pct must be within [0,1], got %f", c.Risk.DailyLossLimitPct)
	}
	if c.Risk.MaxDrawdownPct < 0 || c.Risk.MaxDrawdownPct > 1 {
		return fmt.Errorf("risk.max_drawdown_pct must be within [0,1], got %f", c.Risk.MaxDrawdownPct)
	}
	if c.Risk.ConsecutiveLossLimit < 0 {
		return fmt.Errorf("risk.consecutive_loss_limit must be >= 0, got %d", c.Risk.ConsecutiveLossLimit)
	}
	if c.Risk.NoTradeZoneSeconds < 0 {
		return fmt.Errorf("risk.no_trade_zone_seconds must be >= 0, got %d", c.Risk.NoTradeZoneSeconds)
	}
	if c.Risk.MaxBetFraction <= 0 || c.Risk.MaxBetFraction > 1 {
		return fmt.Errorf("risk.max_bet_fraction must be within (0,1], got %f", c.Risk.MaxBetFraction)
	}
	if c.Risk.MaxExposureFraction <= 0 || c.Risk.MaxExposureFraction > 1 {
		return fmt.Errorf("risk.max_exposure_fraction must be within (0,1], got %f", c.Risk.MaxExposureFraction)
	}

	if c.Sizer.KellyFraction <= 0 || c.Sizer.KellyFraction > 1 {
		return fmt.Errorf("sizer.kelly_fraction must be within (0,1], got %f", c.Sizer.KellyFraction)
	}
	if c.Sizer.MaxBetFraction <= 0 {
		return fmt.Errorf("sizer.max_bet_fraction must be > 0, got %f", c.Sizer.MaxBetFraction)
	}
	if c.Sizer.MinBetSizeUSD < 0 {
		return fmt.Errorf("sizer.min_bet_size_usd must be >= 0, got %f", c.Sizer.MinBetSizeUSD)
	}

	if c.Queue.Concurrency <= 0 {
		return fmt.Errorf("queue.concurrency must be > 0, got %d", c.Queue.Concurrency)
	}
	if c.Queue.RatePerSec <= 0 {
		return fmt.Errorf("queue.rate_per_sec must be > 0, got %f", c.Queue.RatePerSec)
	}
	if c.Queue.MaxAttempts <= 0 {
		return fmt.Errorf("queue.max_attempts must be > 0, got %d", c.Queue.MaxAttempts)
	}

	if c.Scheduler.DiscoveryInterval <= 0 {
		return fmt.Errorf("scheduler.discovery_interval must be > 0, got %s", c.Scheduler.DiscoveryInterval)
	}
	if c.Scheduler.TokenJobInterval <= 0 {
		return fmt.Errorf("scheduler.token_job_interval must be > 0, got %s", c.Scheduler.TokenJobInterval)
	}

	if c.Collector.DiscoveryLimit <= 0 {
		return fmt.Errorf("collector.discovery_limit must be > 0, got %d", c.Collector.DiscoveryLimit)
	}
	if c.Collector.Horizon <= 0 {
		return fmt.Errorf("collector.horizon must be > 0, got %s", c.Collector.Horizon)
	}

	return nil
}
