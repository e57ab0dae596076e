package scorer

import (
	"math"

	"github.com/marketwatch/anomaly-engine/internal/model"
)

// edgeUnit caps a 10% estimated-vs-implied probability gap at score=1 (spec
// §9 open question: documented, testable edge construction).
const edgeUnit = 0.10

// maxPriceDelta bounds how far the estimated probability can move from the
// implied one, driven by the anomaly core score.
const maxPriceDelta = 0.08

// Edge computes the edge axis from anomaly core, orderbook imbalance sign,
// and impact direction (spec §9's resolved open question): the estimated
// probability is the implied mid nudged in the direction of the sign of the
// sum of the three signal signs (a single non-zero signal sets it when the
// other two are zero; a net sum of zero gives no nudge), scaled by the
// anomaly core's magnitude.
// Confidence grows with the number of aligned signals (of 3).
func Edge(fv model.FeatureVector, anomaly model.AnomalyScore) model.EdgeScore {
	implied := fv.Orderbook.MidPrice

	imbalanceSign := sign(fv.Orderbook.Imbalance)
	impactSign := 0
	if fv.HasImpact && (fv.Impact.Measured30s || fv.Impact.Measured60s) {
		impactSign = sign(fv.Impact.Drift30s + fv.Impact.Drift60s)
	}
	anomalySign := sign(anomaly.CoreScore - 0.5)

	aligned, direction := alignedSignals(imbalanceSign, impactSign, anomalySign)

	delta := maxPriceDelta * anomaly.CoreScore * float64(direction)
	estimated := clamp01(implied + delta)

	signedEdge := estimated - implied
	confidence := float64(aligned) / 3.0

	score := clamp01(math.Abs(signedEdge)/edgeUnit) * confidence

	return model.EdgeScore{
		Score:          score,
		ImpliedProb:    implied,
		EstimatedProb:  estimated,
		SignedEdge:     signedEdge,
		Confidence:     confidence,
		AlignedSignals: aligned,
	}
}

// alignedSignals returns how many of the three signs agree with the
// majority direction, and that majority direction (-1, 0, or +1).
func alignedSignals(a, b, c int) (count int, direction int) {
	sum := a + b + c
	direction = sign(float64(sum))
	if direction == 0 {
		return 0, 0
	}
	for _, s := range []int{a, b, c} {
		if s == direction {
			count++
		}
	}
	return count, direction
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
