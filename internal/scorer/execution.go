package scorer

import (
	"math"

	"github.com/marketwatch/anomaly-engine/internal/model"
)

// Execution score tuning constants (spec §4.4).
const (
	spreadScoreFloorBps = 10
	spreadScoreCeilBps  = 500
	maxSlippageBps      = 1000
)

// Execution computes the execution axis given a feature vector and the
// order size (USD) the decision is considering.
func Execution(fv model.FeatureVector, targetSizeUSD float64) model.ExecutionScore {
	depth := math.Min(fv.Orderbook.BidDepthUSD, fv.Orderbook.AskDepthUSD)
	depthScore := depthSaturation(depth, targetSizeUSD)

	spreadScore := 1 - clamp01((fv.Orderbook.SpreadBps-spreadScoreFloorBps)/(spreadScoreCeilBps-spreadScoreFloorBps))

	volatilityScore := clamp01(1 - (math.Abs(fv.Orderbook.Imbalance)*0.5 + clamp01(fv.Orderbook.SpreadBps/spreadScoreCeilBps)*0.5))

	timeScore := 0.0
	if fv.RampMultiplier > 0 {
		timeScore = 1 / fv.RampMultiplier
	}

	slippageBps := slippageEstimate(depth, targetSizeUSD)
	fillProbability := clamp01(0.5*depthScore + 0.5*spreadScore)

	score := 0.35*depthScore + 0.25*spreadScore + 0.20*volatilityScore + 0.20*timeScore

	return model.ExecutionScore{
		Score:           clamp01(score),
		DepthScore:      depthScore,
		SpreadScore:     spreadScore,
		VolatilityScore: volatilityScore,
		TimeScore:       timeScore,
		SlippageBps:     slippageBps,
		FillProbability: fillProbability,
	}
}

// depthSaturation rewards depth that comfortably exceeds the target size;
// saturates at depth >= 10x target.
func depthSaturation(depthUSD, targetSizeUSD float64) float64 {
	if targetSizeUSD <= 0 {
		targetSizeUSD = 1
	}
	ratio := depthUSD / targetSizeUSD
	return clamp01(ratio / 10)
}

// slippageEstimate grows as the target size approaches or exceeds available
// depth, capped at 1000bps (spec §4.4).
func slippageEstimate(depthUSD, targetSizeUSD float64) float64 {
	if depthUSD <= 0 {
		return maxSlippageBps
	}
	ratio := targetSizeUSD / depthUSD
	bps := ratio * 100
	if bps > maxSlippageBps {
		return maxSlippageBps
	}
	return bps
}
