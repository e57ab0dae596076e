package config

import (
	"fmt"
	"strings"
)

// ApplyRolloutPhase applies a staged rollout preset to the config (spec §9,
// a direct port of the teacher's dry-run phase semantics). Supported phases:
//   - paper:        paper mode, decisions flow through tagged Decision.PaperMode=true
//   - shadow:       runs the full pipeline but the caller must force every
//     approved decision back to NO_TRADE before acting on it (spec §9)
//   - live-small:   live mode with conservative, clamped risk/size caps
//   - live:         live mode using the configured values as-is
func ApplyRolloutPhase(cfg *Config, phase string) error {
	p := strings.ToLower(strings.TrimSpace(phase))
	if p == "" {
		return nil
	}

	switch p {
	case "paper":
		cfg.TradingMode = "paper"
	case "shadow":
		cfg.TradingMode = "shadow"
	case "live-small", "small":
		cfg.TradingMode = "live"

		clampMaxFloat(&cfg.Risk.MaxBetFraction, 0.01)
		clampMaxFloat(&cfg.Risk.MaxPositionFraction, 0.02)
		clampMaxFloat(&cfg.Risk.MaxExposureFraction, 0.05)
		clampMaxFloat(&cfg.Sizer.MaxBetFraction, 0.01)
		clampMaxFloat(&cfg.Sizer.MaxPositionFrac, 0.02)
		if cfg.Scheduler.TokenJobInterval < schedulerMinInterval {
			cfg.Scheduler.TokenJobInterval = schedulerMinInterval
		}
	case "live":
		cfg.TradingMode = "live"
	default:
		return fmt.Errorf("unknown rollout phase %q (supported: paper|shadow|live-small|live)", phase)
	}

	return nil
}

func clampMaxFloat(v *float64, max float64) {
	if max <= 0 {
		return
	}
	if *v <= 0 || *v > max {
		*v = max
	}
}
