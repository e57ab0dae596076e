// Package risk implements the ordered risk-guard pipeline (spec §4.6):
// latched circuit breakers, the no-trade zone, staleness/spread/depth
// gates, and successive size clamps. Adapted from the teacher's
// mutex-guarded Manager; the circuit-breaker latch now survives process
// restarts through the shared store instead of living only in process
// memory.
package risk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marketwatch/anomaly-engine/internal/store"
)

// Config holds the risk guard's tunable fractions and thresholds (spec §4.6).
type Config struct {
	DailyLossLimitPct    float64
	MaxDrawdownPct       float64
	ConsecutiveLossLimit int

	NoTradeZoneSeconds int64

	StaleBookThresholdMs int64

	MaxSpreadBps float64
	MinDepthUSD  float64

	MaxBetFraction      float64
	MaxPositionFraction float64
	MaxExposureFraction float64

	WarningFraction float64 // fraction of a threshold at which a warning fires
}

// DefaultConfig returns the spec's default thresholds.
func DefaultConfig() Config {
	return Config{
		DailyLossLimitPct:    0.05,
		MaxDrawdownPct:       0.15,
		ConsecutiveLossLimit: 5,
		NoTradeZoneSeconds:   120,
		StaleBookThresholdMs: 10000,
		MaxSpreadBps:         500,
		MinDepthUSD:          100,
		MaxBetFraction:       0.02,
		MaxPositionFraction:  0.05,
		MaxExposureFraction:  0.10,
		WarningFraction:      0.8,
	}
}

// Rejection reason codes (spec §7).
const (
	ReasonCircuitBreakerActive   = "circuit_breaker_active"
	ReasonDailyLossBreaker       = "daily_loss_circuit_breaker"
	ReasonDrawdownBreaker        = "drawdown_circuit_breaker"
	ReasonConsecutiveLossBreaker = "consecutive_loss_circuit_breaker"
	ReasonNoTradeZone            = "no_trade_zone"
	ReasonStaleBookData          = "stale_book_data"
	ReasonSpreadTooWide          = "spread_too_wide"
	ReasonInsufficientDepth      = "insufficient_depth"
	ReasonPositionLimitExceeded  = "position_limit_exceeded"
	ReasonExposureLimitExceeded  = "exposure_limit_exceeded"
)

// Input bundles every signal the guard pipeline needs for one decision
// (spec §4.6).
type Input struct {
	Now     time.Time
	CloseAt time.Time

	ProposedSizeUSD     float64
	Bankroll            float64
	TotalExposureUSD    float64
	ExistingPositionUSD float64

	DailyPnL          float64
	DrawdownPct       float64
	ConsecutiveLosses int

	SpreadBps         float64
	TopOfBookDepthUSD float64

	BookAgeMs   int64
	TradeAgeMs  int64
	HasTradeAge bool
}

// Result is the guard pipeline's verdict.
type Result struct {
	Approved           bool
	AdjustedSizeUSD    float64
	RejectionReason    string
	HasRejectionReason bool
	ChecksPerformed    []string
	Warnings           []string
}

func (r *Result) reject(reason string) {
	r.RejectionReason = reason
	r.HasRejectionReason = true
	r.Approved = false
}

func (r *Result) check(name string) {
	r.ChecksPerformed = append(r.ChecksPerformed, name)
}

func (r *Result) warn(w string) {
	r.Warnings = append(r.Warnings, w)
}

// Manager evaluates the risk guard pipeline and owns the circuit-breaker
// latch, which it persists through the shared store so it survives process
// restarts (spec §4.6: "the latch survives process restarts via the KV
// store with 24h TTL").
type Manager struct {
	mu    sync.Mutex
	cfg   Config
	store store.Store
}

func New(cfg Config, s store.Store) *Manager {
	return &Manager{cfg: cfg, store: s}
}

// Evaluate runs the ordered pipeline and returns its verdict. It may latch
// the circuit breaker as a side effect of observing a newly-crossed arming
// threshold.
func (m *Manager) Evaluate(ctx context.Context, in Input) (Result, error) {
	res := Result{Approved: true, AdjustedSizeUSD: in.ProposedSizeUSD}

	// 1. Circuit breaker active (latched).
	res.check("circuit_breaker")
	latch, err := m.loadLatch(ctx)
	if err != nil {
		return res, err
	}
	if latch.Active {
		res.reject(ReasonCircuitBreakerActive)
		return res, nil
	}

	// 2. Circuit breaker arming.
	res.check("circuit_breaker_arming")
	armedReason, err := m.arm(ctx, in)
	if err != nil {
		return res, err
	}
	if armedReason != "" {
		res.reject(armedReason)
		return res, nil
	}
	m.warnNearBreakers(&res, in)

	// 3. No-trade zone.
	res.check("no_trade_zone")
	ttcSeconds := int64(in.CloseAt.Sub(in.Now).Seconds())
	if ttcSeconds <= m.cfg.NoTradeZoneSeconds {
		res.reject(ReasonNoTradeZone)
		return res, nil
	}

	// 4. Staleness.
	res.check("staleness")
	if in.BookAgeMs > m.cfg.StaleBookThresholdMs {
		res.reject(ReasonStaleBookData)
		return res, nil
	}
	if in.HasTradeAge && in.TradeAgeMs > m.cfg.StaleBookThresholdMs {
		res.warn("stale_trade_data")
	}

	// 5. Spread.
	res.check("spread")
	if in.SpreadBps > m.cfg.MaxSpreadBps {
		res.reject(ReasonSpreadTooWide)
		return res, nil
	}

	// 6. Depth.
	res.check("depth")
	if in.TopOfBookDepthUSD < m.cfg.MinDepthUSD {
		res.reject(ReasonInsufficientDepth)
		return res, nil
	}

	// 7. Successive size caps.
	res.check("size_caps")
	adjusted := in.ProposedSizeUSD

	maxBet := m.cfg.MaxBetFraction * in.Bankroll
	if adjusted > maxBet {
		adjusted = maxBet
		res.warn("size_capped_bet_fraction")
	}

	maxPosition := m.cfg.MaxPositionFraction*in.Bankroll - in.ExistingPositionUSD
	if maxPosition < 0 {
		maxPosition = 0
	}
	if adjusted > maxPosition {
		adjusted = maxPosition
		if adjusted <= 0 {
			res.AdjustedSizeUSD = 0
			res.reject(ReasonPositionLimitExceeded)
			return res, nil
		}
		res.warn("size_capped_position_fraction")
	}

	maxExposure := m.cfg.MaxExposureFraction*in.Bankroll - in.TotalExposureUSD
	if maxExposure < 0 {
		maxExposure = 0
	}
	if adjusted > maxExposure {
		adjusted = maxExposure
		if adjusted <= 0 {
			res.AdjustedSizeUSD = 0
			res.reject(ReasonExposureLimitExceeded)
			return res, nil
		}
		res.warn("size_capped_exposure")
	}

	res.AdjustedSizeUSD = adjusted
	res.Approved = adjusted > 0
	return res, nil
}

func (m *Manager) warnNearBreakers(res *Result, in Input) {
	wf := m.cfg.WarningFraction
	if in.DailyPnL < 0 && -in.DailyPnL >= wf*m.cfg.DailyLossLimitPct*in.Bankroll {
		res.warn("daily_loss_warning")
	}
	if in.DrawdownPct >= wf*m.cfg.MaxDrawdownPct {
		res.warn("drawdown_warning")
	}
	if m.cfg.ConsecutiveLossLimit > 0 && float64(in.ConsecutiveLosses) >= wf*float64(m.cfg.ConsecutiveLossLimit) {
		res.warn("consecutive_losses_warning")
	}
}

// arm checks the three arming conditions and, if any newly breaches,
// persists the latch and returns its rejection reason.
func (m *Manager) arm(ctx context.Context, in Input) (string, error) {
	var reason string
	switch {
	case in.DailyPnL < -m.cfg.DailyLossLimitPct*in.Bankroll:
		reason = ReasonDailyLossBreaker
	case in.DrawdownPct > m.cfg.MaxDrawdownPct:
		reason = ReasonDrawdownBreaker
	case m.cfg.ConsecutiveLossLimit > 0 && in.ConsecutiveLosses >= m.cfg.ConsecutiveLossLimit:
		reason = ReasonConsecutiveLossBreaker
	default:
		return "", nil
	}
	if err := m.Latch(ctx, reason); err != nil {
		return "", err
	}
	return reason, nil
}

const latchTTL = 24 * time.Hour

// latchState is the persisted circuit-breaker record.
type latchState struct {
	Active bool
	Reason string
}

// Latch explicitly arms the circuit breaker with the given reason.
func (m *Manager) Latch(ctx context.Context, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.HSet(ctx, store.Keys.CircuitBreaker(), map[string]string{
		"active": "true",
		"reason": reason,
	}, latchTTL)
}

// Reset explicitly clears the circuit breaker (spec §4.6: "latched circuit
// breakers must be cleared explicitly").
func (m *Manager) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Del(ctx, store.Keys.CircuitBreaker())
}

func (m *Manager) loadLatch(ctx context.Context) (latchState, error) {
	fields, err := m.store.HGetAll(ctx, store.Keys.CircuitBreaker())
	if err != nil {
		return latchState{}, err
	}
	return latchState{Active: fields["active"] == "true", Reason: fields["reason"]}, nil
}

// Status reports the current latch state for observability.
func (m *Manager) Status(ctx context.Context) (bool, string, error) {
	l, err := m.loadLatch(ctx)
	if err != nil {
		return false, "", err
	}
	return l.Active, l.Reason, nil
}

func (l latchState) String() string {
	if !l.Active {
		return "clear"
	}
	return fmt.Sprintf("latched(%s)", l.Reason)
}
