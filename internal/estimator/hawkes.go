// Package estimator holds the per-token online estimators (spec §3, §4.2):
// Hawkes intensity, CUSUM change-point detection, robust z-score, a
// quantile sketch, and rolling statistics. Each is a small serializable
// value object, hydrated from and persisted back to the shared store
// within a single job (spec §5: "workers never share in-memory per-token
// state").
package estimator

import "math"

// HawkesDefaults are the defaults named in spec §4.2.
const (
	HawkesDefaultBaseline = 0.1
	HawkesDefaultAlpha    = 0.5
	HawkesDefaultBeta     = 0.1
)

// Hawkes is a self-exciting intensity process (spec §3): on each event the
// intensity jumps by alpha and decays exponentially back toward baseline at
// rate beta.
type Hawkes struct {
	Baseline      float64
	Alpha         float64
	Beta          float64
	Intensity     float64
	LastEventTime int64 // unix ms; 0 if never updated
	EventCount    int64
}

// NewHawkes constructs a Hawkes state at its baseline, using the spec's
// default parameters.
func NewHawkes() *Hawkes {
	return &Hawkes{
		Baseline:  HawkesDefaultBaseline,
		Alpha:     HawkesDefaultAlpha,
		Beta:      HawkesDefaultBeta,
		Intensity: HawkesDefaultBaseline,
	}
}

// Update records an event at time t (unix ms), decaying the intensity from
// the last event time and then adding alpha.
func (h *Hawkes) Update(tMs int64) {
	h.decayTo(tMs)
	h.Intensity += h.Alpha
	h.LastEventTime = tMs
	h.EventCount++
}

func (h *Hawkes) decayTo(tMs int64) {
	if h.LastEventTime == 0 {
		h.Intensity = h.Baseline
		return
	}
	dtSeconds := float64(tMs-h.LastEventTime) / 1000.0
	if dtSeconds < 0 {
		dtSeconds = 0
	}
	h.Intensity = h.Baseline + (h.Intensity-h.Baseline)*math.Exp(-h.Beta*dtSeconds)
}

// GetCurrentIntensity decays to t without recording an event.
func (h *Hawkes) GetCurrentIntensity(tMs int64) float64 {
	if h.LastEventTime == 0 {
		return h.Baseline
	}
	dtSeconds := float64(tMs-h.LastEventTime) / 1000.0
	if dtSeconds < 0 {
		dtSeconds = 0
	}
	return h.Baseline + (h.Intensity-h.Baseline)*math.Exp(-h.Beta*dtSeconds)
}

// IsBurst reports whether the decayed intensity at t exceeds k times baseline.
func (h *Hawkes) IsBurst(tMs int64, k float64) bool {
	if h.Baseline <= 0 {
		return h.GetCurrentIntensity(tMs) > 0
	}
	return h.GetCurrentIntensity(tMs) > k*h.Baseline
}

// GetBurstScore maps the intensity ratio to [0,1]: clamp((ratio-1)/4, 0, 1).
func (h *Hawkes) GetBurstScore(tMs int64) float64 {
	if h.Baseline <= 0 {
		return 0
	}
	ratio := h.GetCurrentIntensity(tMs) / h.Baseline
	score := (ratio - 1) / 4
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// PerHour converts an events/second intensity to events/hour.
func PerHour(perSecond float64) float64 { return perSecond * 3600 }
