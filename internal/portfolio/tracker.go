// Package portfolio tracks bankroll, exposure, daily P&L, drawdown, and
// consecutive-loss state fed by approved decisions (spec §3's decision
// lifecycle; its output feeds risk.Input and sizer.Input). Adapted from the
// teacher's PortfolioTracker: the mutex-guarded tracker shape survives, but
// the Data-API sync loop is gone — state is sourced from and written
// through the shared store so it outlives any one process, continuing the
// durability pattern risk.Manager uses for its circuit-breaker latch. This
// is explicitly not paper-engine P&L bookkeeping; it only tracks the
// exposure/P&L figures the risk guards and sizer need.
package portfolio

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/marketwatch/anomaly-engine/internal/store"
)

// Position is the per-token exposure record.
type Position struct {
	TokenID   string    `json:"tokenId"`
	SizeUSD   float64   `json:"sizeUsd"`
	Side      string    `json:"side"` // "YES" or "NO"
	UpdatedAt time.Time `json:"updatedAt"`
}

// Tracker reads and writes portfolio state through the shared store.
type Tracker struct {
	mu    sync.Mutex
	store store.Store
}

func New(s store.Store) *Tracker {
	return &Tracker{store: s}
}

// InitBankroll seeds the paper bankroll if it has never been set.
func (t *Tracker) InitBankroll(ctx context.Context, initial float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok, err := t.store.Get(ctx, store.Keys.PaperBankroll())
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return t.store.Set(ctx, store.Keys.PaperBankroll(), formatFloat(initial), 0)
}

func (t *Tracker) Bankroll(ctx context.Context) (float64, error) {
	raw, ok, err := t.store.Get(ctx, store.Keys.PaperBankroll())
	if err != nil || !ok {
		return 0, err
	}
	return parseFloat(raw), nil
}

// AdjustBankroll atomically adds delta (positive on a win, negative on a
// loss or fee) to the paper bankroll.
func (t *Tracker) AdjustBankroll(ctx context.Context, delta float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok, err := t.store.Get(ctx, store.Keys.PaperBankroll())
	if err != nil {
		return err
	}
	base := 0.0
	if ok {
		base = parseFloat(cur)
	}
	return t.store.Set(ctx, store.Keys.PaperBankroll(), formatFloat(base+delta), 0)
}

func (t *Tracker) Position(ctx context.Context, token string) (Position, bool, error) {
	raw, ok, err := t.store.Get(ctx, store.Keys.Position(token))
	if err != nil || !ok {
		return Position{}, false, err
	}
	var p Position
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Position{}, false, nil
	}
	return p, true, nil
}

// SetPosition overwrites the position record for a token (single-key
// last-writer-wins write; acceptable since one token is only ever decided
// on by one scheduler tick at a time per spec §5).
func (t *Tracker) SetPosition(ctx context.Context, p Position) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return t.store.Set(ctx, store.Keys.Position(p.TokenID), string(raw), 0)
}

func (t *Tracker) TotalExposure(ctx context.Context) (float64, error) {
	raw, ok, err := t.store.Get(ctx, store.Keys.ExposureTotal())
	if err != nil || !ok {
		return 0, err
	}
	return parseFloat(raw), nil
}

// AddExposure atomically adjusts total exposure by delta (positive to open
// a position, negative to close or trim one).
func (t *Tracker) AddExposure(ctx context.Context, delta float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok, err := t.store.Get(ctx, store.Keys.ExposureTotal())
	if err != nil {
		return err
	}
	base := 0.0
	if ok {
		base = parseFloat(cur)
	}
	next := base + delta
	if next < 0 {
		next = 0
	}
	return t.store.Set(ctx, store.Keys.ExposureTotal(), formatFloat(next), 0)
}

func (t *Tracker) DailyPnL(ctx context.Context) (float64, error) {
	raw, ok, err := t.store.Get(ctx, store.Keys.PnlDailyCurrent())
	if err != nil || !ok {
		return 0, err
	}
	return parseFloat(raw), nil
}

// RecordPnL atomically adds delta to today's realized P&L and updates the
// consecutive-loss counter: a loss increments it, a gain resets it to zero.
func (t *Tracker) RecordPnL(ctx context.Context, delta float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	curRaw, ok, err := t.store.Get(ctx, store.Keys.PnlDailyCurrent())
	if err != nil {
		return err
	}
	cur := 0.0
	if ok {
		cur = parseFloat(curRaw)
	}
	if err := t.store.Set(ctx, store.Keys.PnlDailyCurrent(), formatFloat(cur+delta), 24*time.Hour); err != nil {
		return err
	}

	streakRaw, ok, err := t.store.Get(ctx, store.Keys.ConsecutiveLosses())
	if err != nil {
		return err
	}
	streak := 0
	if ok {
		streak = parseInt(streakRaw)
	}
	switch {
	case delta < 0:
		streak++
	case delta > 0:
		streak = 0
	}
	return t.store.Set(ctx, store.Keys.ConsecutiveLosses(), strconv.Itoa(streak), 24*time.Hour)
}

func (t *Tracker) ConsecutiveLosses(ctx context.Context) (int, error) {
	raw, ok, err := t.store.Get(ctx, store.Keys.ConsecutiveLosses())
	if err != nil || !ok {
		return 0, err
	}
	return parseInt(raw), nil
}

func (t *Tracker) Drawdown(ctx context.Context) (float64, error) {
	raw, ok, err := t.store.Get(ctx, store.Keys.DrawdownCurrent())
	if err != nil || !ok {
		return 0, err
	}
	return parseFloat(raw), nil
}

// SetDrawdown overwrites the current drawdown fraction, computed upstream
// from peak-to-current bankroll by the caller.
func (t *Tracker) SetDrawdown(ctx context.Context, pct float64) error {
	return t.store.Set(ctx, store.Keys.DrawdownCurrent(), formatFloat(pct), 0)
}

// ResetDaily clears daily P&L and the consecutive-loss streak, leaving
// bankroll/exposure/drawdown untouched. Nothing in the module calls it; the
// scheduler runs no daily rollover.
func (t *Tracker) ResetDaily(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.store.Set(ctx, store.Keys.PnlDailyCurrent(), formatFloat(0), 24*time.Hour); err != nil {
		return err
	}
	return t.store.Set(ctx, store.Keys.ConsecutiveLosses(), "0", 24*time.Hour)
}

// Snapshot bundles the fields risk.Input and sizer.Input need for one
// token's decision, read in a single pass.
type Snapshot struct {
	Bankroll            float64
	TotalExposureUSD    float64
	ExistingPositionUSD float64
	DailyPnL            float64
	DrawdownPct         float64
	ConsecutiveLosses   int
}

// SnapshotFor reads every portfolio figure needed to evaluate a decision on
// the given token.
func (t *Tracker) SnapshotFor(ctx context.Context, token string) (Snapshot, error) {
	bankroll, err := t.Bankroll(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	exposure, err := t.TotalExposure(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	pos, _, err := t.Position(ctx, token)
	if err != nil {
		return Snapshot{}, err
	}
	dailyPnl, err := t.DailyPnL(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	drawdown, err := t.Drawdown(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	losses, err := t.ConsecutiveLosses(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Bankroll:            bankroll,
		TotalExposureUSD:    exposure,
		ExistingPositionUSD: pos.SizeUSD,
		DailyPnL:            dailyPnl,
		DrawdownPct:         drawdown,
		ConsecutiveLosses:   losses,
	}, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseInt(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}
