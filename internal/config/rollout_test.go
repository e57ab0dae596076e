package config

import "testing"

func TestApplyRolloutPhaseEmptyIsNoop(t *testing.T) {
	cfg := Default()
	wantMode := cfg.TradingMode
	wantBetFrac := cfg.Risk.MaxBetFraction
	if err := ApplyRolloutPhase(&cfg, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TradingMode != wantMode || cfg.Risk.MaxBetFraction != wantBetFrac {
		t.Fatal("expected empty phase to leave config untouched")
	}
}

func TestApplyRolloutPhasePaper(t *testing.T) {
	cfg := Default()
	cfg.TradingMode = "live"
	if err := ApplyRolloutPhase(&cfg, "paper"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TradingMode != "paper" {
		t.Fatalf("expected trading_mode paper, got %q", cfg.TradingMode)
	}
}

func TestApplyRolloutPhaseShadow(t *testing.T) {
	cfg := Default()
	if err := ApplyRolloutPhase(&cfg, "Shadow"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TradingMode != "shadow" {
		t.Fatalf("expected trading_mode shadow, got %q", cfg.TradingMode)
	}
}

func TestApplyRolloutPhaseLiveSmallClampsRisk(t *testing.T) {
	cfg := Default()
	cfg.Risk.MaxBetFraction = 0.5
	cfg.Risk.MaxPositionFraction = 0.5
	cfg.Risk.MaxExposureFraction = 0.5
	cfg.Sizer.MaxBetFraction = 0.5
	cfg.Sizer.MaxPositionFrac = 0.5
	cfg.Scheduler.TokenJobInterval = 1

	if err := ApplyRolloutPhase(&cfg, "live-small"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TradingMode != "live" {
		t.Fatalf("expected trading_mode live, got %q", cfg.TradingMode)
	}
	if cfg.Risk.MaxBetFraction != 0.01 {
		t.Fatalf("expected risk.max_bet_fraction clamped to 0.01, got %f", cfg.Risk.MaxBetFraction)
	}
	if cfg.Risk.MaxPositionFraction != 0.02 {
		t.Fatalf("expected risk.max_position_fraction clamped to 0.02, got %f", cfg.Risk.MaxPositionFraction)
	}
	if cfg.Risk.MaxExposureFraction != 0.05 {
		t.Fatalf("expected risk.max_exposure_fraction clamped to 0.05, got %f", cfg.Risk.MaxExposureFraction)
	}
	if cfg.Sizer.MaxBetFraction != 0.01 {
		t.Fatalf("expected sizer.max_bet_fraction clamped to 0.01, got %f", cfg.Sizer.MaxBetFraction)
	}
	if cfg.Sizer.MaxPositionFrac != 0.02 {
		t.Fatalf("expected sizer.max_position_frac clamped to 0.02, got %f", cfg.Sizer.MaxPositionFrac)
	}
	if cfg.Scheduler.TokenJobInterval != schedulerMinInterval {
		t.Fatalf("expected token_job_interval floored to %s, got %s", schedulerMinInterval, cfg.Scheduler.TokenJobInterval)
	}
}

func TestApplyRolloutPhaseLiveSmallLeavesConservativeValuesAlone(t *testing.T) {
	cfg := Default()
	cfg.Risk.MaxBetFraction = 0.005
	if err := ApplyRolloutPhase(&cfg, "live-small"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Risk.MaxBetFraction != 0.005 {
		t.Fatalf("expected already-conservative value untouched, got %f", cfg.Risk.MaxBetFraction)
	}
}

func TestApplyRolloutPhaseLive(t *testing.T) {
	cfg := Default()
	cfg.Risk.MaxBetFraction = 0.2
	if err := ApplyRolloutPhase(&cfg, "live"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TradingMode != "live" {
		t.Fatalf("expected trading_mode live, got %q", cfg.TradingMode)
	}
	if cfg.Risk.MaxBetFraction != 0.2 {
		t.Fatal("expected live phase to leave risk fractions unclamped")
	}
}

func TestApplyRolloutPhaseUnknown(t *testing.T) {
	cfg := Default()
	if err := ApplyRolloutPhase(&cfg, "bogus"); err == nil {
		t.Fatal("expected error for unknown rollout phase")
	}
}
