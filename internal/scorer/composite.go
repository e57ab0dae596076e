package scorer

import "github.com/marketwatch/anomaly-engine/internal/model"

// Composite weights (spec §3).
const (
	weightAnomaly   = 0.35
	weightExecution = 0.25
	weightEdge      = 0.40
)

// Score runs all three axes and assembles the composite (spec §3, §4.4).
func Score(fv model.FeatureVector, targetSizeUSD float64) model.CompositeScore {
	anomaly := Anomaly(fv)
	execution := Execution(fv, targetSizeUSD)
	edge := Edge(fv, anomaly)

	composite := weightAnomaly*anomaly.Score + weightExecution*execution.Score + weightEdge*edge.Score
	ramped := composite * fv.RampMultiplier
	if ramped > 1 {
		ramped = 1
	}
	if ramped < 0 {
		ramped = 0
	}

	return model.CompositeScore{
		Anomaly:        anomaly,
		Execution:      execution,
		Edge:           edge,
		CompositeScore: clamp01(composite),
		RampedScore:    ramped,
		SignalStrength: model.Bucket(ramped),
	}
}
