// Package feature builds per-(token,trigger) feature vectors by combining
// the latest book snapshot, the rolling trade window, and wallet enrichment
// (spec §4.3). It also owns the rolling-window storage shape (trade window,
// book window) that the collector appends to and the builder reads back.
package feature

import (
	"context"
	"encoding/json"
	"time"

	"github.com/marketwatch/anomaly-engine/internal/model"
	"github.com/marketwatch/anomaly-engine/internal/store"
)

// windowHorizon is the retention horizon for both rolling windows (spec §3).
const windowHorizon = time.Hour

// TradeWindow is the score-ordered (by timestamp ms) set of recent trades
// for a token.
type TradeWindow struct {
	store store.Store
}

func NewTradeWindow(s store.Store) *TradeWindow { return &TradeWindow{store: s} }

// Append inserts the trade (deduped by the caller keying on tradeId) and
// trims entries older than the retention horizon.
func (w *TradeWindow) Append(ctx context.Context, token string, trade model.Trade, nowMs int64) error {
	raw, err := json.Marshal(trade)
	if err != nil {
		return err
	}
	key := store.Keys.TradeWindow(token)
	if err := w.store.ZAdd(ctx, key, store.ZMember{Score: float64(trade.TimestampMs), Member: string(raw)}); err != nil {
		return err
	}
	if err := w.store.Expire(ctx, key, windowHorizon); err != nil {
		return err
	}
	return w.store.ZRemRangeByScore(ctx, key, store.NegInf, float64(nowMs-windowHorizon.Milliseconds()))
}

// Trades returns every trade currently retained in the window, oldest first.
func (w *TradeWindow) Trades(ctx context.Context, token string) ([]model.Trade, error) {
	raws, err := w.store.ZRangeByScore(ctx, store.Keys.TradeWindow(token), store.NegInf, store.PosInf)
	if err != nil {
		return nil, err
	}
	out := make([]model.Trade, 0, len(raws))
	for _, raw := range raws {
		var tr model.Trade
		if err := json.Unmarshal([]byte(raw), &tr); err != nil {
			continue // log-drop a single malformed entry (spec §7)
		}
		out = append(out, tr)
	}
	return out, nil
}

// BookEntry is one retained book-window record (spec §3: "{snapshot, metrics}").
type BookEntry struct {
	Snapshot model.OrderbookSnapshot
	Metrics  model.OrderbookMetrics
}

// BookWindow is the score-ordered set of recent book snapshots for a token.
type BookWindow struct {
	store store.Store
}

func NewBookWindow(s store.Store) *BookWindow { return &BookWindow{store: s} }

func (w *BookWindow) Append(ctx context.Context, token string, entry BookEntry, nowMs int64) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	key := store.Keys.BookWindow(token)
	if err := w.store.ZAdd(ctx, key, store.ZMember{Score: float64(entry.Snapshot.TimestampMs), Member: string(raw)}); err != nil {
		return err
	}
	if err := w.store.Expire(ctx, key, windowHorizon); err != nil {
		return err
	}
	return w.store.ZRemRangeByScore(ctx, key, store.NegInf, float64(nowMs-windowHorizon.Milliseconds()))
}

// Since returns every retained book entry with timestamp >= fromMs, ordered
// oldest first. Used by the impact feature to find the nearest later
// snapshot around a target offset.
func (w *BookWindow) Since(ctx context.Context, token string, fromMs int64) ([]BookEntry, error) {
	raws, err := w.store.ZRangeByScore(ctx, store.Keys.BookWindow(token), float64(fromMs), store.PosInf)
	if err != nil {
		return nil, err
	}
	out := make([]BookEntry, 0, len(raws))
	for _, raw := range raws {
		var e BookEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Latest caches the most recent normalized snapshot+metrics for a token
// under a short TTL (spec §6: "orderbook:{token}:state", 30s).
type Latest struct {
	store store.Store
}

func NewLatest(s store.Store) *Latest { return &Latest{store: s} }

const latestTTL = 30 * time.Second

func (l *Latest) Set(ctx context.Context, token string, entry BookEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return l.store.Set(ctx, store.Keys.OrderbookState(token), string(raw), latestTTL)
}

func (l *Latest) Get(ctx context.Context, token string) (BookEntry, bool, error) {
	raw, ok, err := l.store.Get(ctx, store.Keys.OrderbookState(token))
	if err != nil || !ok {
		return BookEntry{}, false, err
	}
	var e BookEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return BookEntry{}, false, nil
	}
	return e, true, nil
}
