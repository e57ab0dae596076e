// Package sizer computes fractional-Kelly position sizes with a
// conservative variance floor and hard caps (spec §4.5).
package sizer

import "github.com/marketwatch/anomaly-engine/internal/model"

// Defaults (spec §4.5).
const (
	DefaultEdgeCeiling       = 0.10
	DefaultVarianceFloor     = 0.25
	DefaultKellyFraction     = 0.25
	DefaultMaxBetFraction    = 0.02
	DefaultMaxPositionFrac   = 0.05
	DefaultMinBetSizeUSD     = 5.0
)

// Config holds the sizer's tunable fractions.
type Config struct {
	EdgeCeiling     float64
	KellyFraction   float64
	MaxBetFraction  float64
	MaxPositionFrac float64
	MinBetSizeUSD   float64
}

// DefaultConfig returns the spec's default sizer configuration.
func DefaultConfig() Config {
	return Config{
		EdgeCeiling:     DefaultEdgeCeiling,
		KellyFraction:   DefaultKellyFraction,
		MaxBetFraction:  DefaultMaxBetFraction,
		MaxPositionFrac: DefaultMaxPositionFrac,
		MinBetSizeUSD:   DefaultMinBetSizeUSD,
	}
}

// Input bundles everything the sizer needs for one decision.
type Input struct {
	Edge                model.EdgeScore
	Price               float64 // the price the size is denominated against
	Bankroll            float64
	ExistingPositionUSD float64
}

// Result is the sizer's deterministic output (spec §8: "given identical
// inputs the sizer is deterministic").
type Result struct {
	TargetSizeUSD float64
	TargetShares  float64
	ClampTags     []string
}

// Size computes the clamped target size for a YES (isYes=true) or NO side.
func Size(cfg Config, in Input, isYes bool) Result {
	edgeEstimate := in.Edge.Score * cfg.EdgeCeiling
	varianceProxy := in.Price * (1 - in.Price)
	if varianceProxy < DefaultVarianceFloor {
		varianceProxy = DefaultVarianceFloor
	}

	kellyRaw := edgeEstimate / varianceProxy
	kellyAdjusted := kellyRaw * cfg.KellyFraction
	targetUSD := kellyAdjusted * in.Bankroll

	var tags []string

	if maxBet := cfg.MaxBetFraction * in.Bankroll; targetUSD > maxBet {
		targetUSD = maxBet
		tags = append(tags, "max_bet_fraction")
	}

	maxPosition := cfg.MaxPositionFrac*in.Bankroll - in.ExistingPositionUSD
	if maxPosition < 0 {
		maxPosition = 0
	}
	if targetUSD > maxPosition {
		targetUSD = maxPosition
		tags = append(tags, "max_position_fraction")
	}

	if targetUSD < cfg.MinBetSizeUSD {
		targetUSD = 0
		tags = append(tags, "below_min_bet_size")
	}

	var shares float64
	if targetUSD > 0 {
		if isYes {
			shares = targetUSD / in.Price
		} else {
			shares = targetUSD / (1 - in.Price)
		}
	}

	return Result{TargetSizeUSD: targetUSD, TargetShares: shares, ClampTags: tags}
}
