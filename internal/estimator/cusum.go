package estimator

import "math"

// varianceFloor prevents a near-zero sample variance from exploding the
// standardized residual (spec §3, §9: "variance is floored to avoid NaN/Inf").
const varianceFloor = 1e-4

// DefaultCUSUMThreshold is used when a caller does not override it.
const DefaultCUSUMThreshold = 5.0

// CUSUM is a cumulative-sum change-point detector (spec §3, §4.2).
type CUSUM struct {
	N                int64
	SumX             float64
	SumX2            float64
	MaxStat          float64
	ChangePointIndex int64
	HasChangePoint   bool
	LastValue        float64
	HasLastValue     bool
	Threshold        float64
	PreMean          float64
	HasPreMean       bool
}

// NewCUSUM constructs a CUSUM with the given detection threshold.
func NewCUSUM(threshold float64) *CUSUM {
	if threshold <= 0 {
		threshold = DefaultCUSUMThreshold
	}
	return &CUSUM{Threshold: threshold}
}

// Result is the outcome of one Update call.
type Result struct {
	Detected         bool
	Statistic        float64
	ChangePointIndex int64
	HasChangePoint   bool
}

// Update standardizes x by the running (or fixed, via PreMean) mean and a
// variance-floored sample variance, accumulates S_n = max(0, S_{n-1} + z),
// and latches ChangePointIndex on the first crossing of Threshold.
func (c *CUSUM) Update(x float64) Result {
	c.N++
	c.SumX += x
	c.SumX2 += x * x
	c.LastValue = x
	c.HasLastValue = true

	mean := c.PreMean
	if !c.HasPreMean {
		mean = c.SumX / float64(c.N)
	}

	var variance float64
	if c.N > 1 {
		runMean := c.SumX / float64(c.N)
		variance = (c.SumX2 - float64(c.N)*runMean*runMean) / float64(c.N-1)
	}
	if variance < varianceFloor {
		variance = varianceFloor
	}
	stddev := math.Sqrt(variance)

	z := (x - mean) / stddev
	c.MaxStat = maxFloat(0, c.MaxStat+z)

	detected := c.MaxStat > c.Threshold
	if detected && !c.HasChangePoint {
		c.ChangePointIndex = c.N
		c.HasChangePoint = true
	}

	return Result{
		Detected:         detected,
		Statistic:        c.MaxStat,
		ChangePointIndex: c.ChangePointIndex,
		HasChangePoint:   c.HasChangePoint,
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
