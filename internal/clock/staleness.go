package clock

import (
	"context"
	"strconv"
	"time"

	"github.com/marketwatch/anomaly-engine/internal/store"
)

// Kind is a data kind tracked for freshness.
type Kind string

const (
	KindOrderbook Kind = "orderbook"
	KindTrade     Kind = "trade"
	KindMarket    Kind = "market"
	KindWallet    Kind = "wallet"
)

// lastUpdateTTL is the TTL applied to every staleness write (spec §4.1).
const lastUpdateTTL = time.Hour

// Status is a freshness bucket.
type Status string

const (
	StatusFresh    Status = "fresh"
	StatusWarning  Status = "warning"
	StatusStale    Status = "stale"
	StatusCritical Status = "critical"
	// StatusMissing means no record exists at all.
	StatusMissing Status = "missing"
)

// thresholds holds the four ascending cutoffs (ms) for a kind: fresh<w0,
// warning<w1, stale<w2, critical<w3; beyond w3 is still "critical".
type thresholds struct {
	warn, stale, critical, maxAge int64
}

var kindThresholds = map[Kind]thresholds{
	KindOrderbook: {warn: 2000, stale: 5000, critical: 10000, maxAge: 30000},
	KindTrade:     {warn: 5000, stale: 10000, critical: 30000, maxAge: 60000},
	KindMarket:    {warn: 60000, stale: 300000, critical: 600000, maxAge: 3600000},
	KindWallet:    {warn: 3600000, stale: 7200000, critical: 21600000, maxAge: 86400000},
}

func classify(ageMs int64, k Kind) Status {
	th := kindThresholds[k]
	switch {
	case ageMs < th.warn:
		return StatusFresh
	case ageMs < th.stale:
		return StatusWarning
	case ageMs < th.critical:
		return StatusStale
	default:
		return StatusCritical
	}
}

// IsTradeSafe reports whether a status is acceptable for trading decisions.
func IsTradeSafe(s Status) bool { return s == StatusFresh || s == StatusWarning }

// Tracker records and queries last-update timestamps via the shared store.
type Tracker struct {
	store store.Store
	clock Clock
}

func NewTracker(s store.Store, c Clock) *Tracker {
	return &Tracker{store: s, clock: c}
}

// Record marks (kind, entity) as updated at the clock's current time.
func (t *Tracker) Record(ctx context.Context, kind Kind, entity string) error {
	key := store.Keys.Staleness(string(kind), entity)
	return t.store.Set(ctx, key, strconv.FormatInt(t.clock.NowMs(), 10), lastUpdateTTL)
}

// Status returns the current freshness status for (kind, entity), and the
// age in ms. StatusMissing, age=-1 means no record was found (expired or
// never written).
func (t *Tracker) Status(ctx context.Context, kind Kind, entity string) (Status, int64, error) {
	key := store.Keys.Staleness(string(kind), entity)
	v, ok, err := t.store.Get(ctx, key)
	if err != nil {
		return StatusMissing, -1, err
	}
	if !ok {
		return StatusMissing, -1, nil
	}
	ts, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return StatusMissing, -1, nil
	}
	age := t.clock.NowMs() - ts
	if age < 0 {
		age = 0
	}
	return classify(age, kind), age, nil
}

// Freshness is the combined result of checkFreshness for a token (spec §4.1).
type Freshness struct {
	Orderbook       Status
	OrderbookAgeMs  int64
	HasTrade        bool
	Trade           Status
	TradeAgeMs      int64
	HasMarket       bool
	OK              bool
	RejectionReason string
}

// CheckFreshness combines orderbook (required), trade (stale only if present
// and exceeds threshold), and market metadata existence for a token.
func (t *Tracker) CheckFreshness(ctx context.Context, tokenID, conditionID string) (Freshness, error) {
	var f Freshness

	obStatus, obAge, err := t.Status(ctx, KindOrderbook, tokenID)
	if err != nil {
		return f, err
	}
	f.Orderbook, f.OrderbookAgeMs = obStatus, obAge
	if obStatus == StatusMissing {
		f.RejectionReason = "stale_book_data"
		return f, nil
	}
	if !IsTradeSafe(obStatus) {
		f.RejectionReason = "stale_book_data"
		return f, nil
	}

	// Trade freshness is informational here: the risk guards (spec §4.6) only
	// raise a stale_trade_data warning for it — absent or stale trade data
	// alone never blocks a token with a fresh book.
	tradeStatus, tradeAge, err := t.Status(ctx, KindTrade, tokenID)
	if err != nil {
		return f, err
	}
	if tradeStatus != StatusMissing {
		f.HasTrade = true
		f.Trade, f.TradeAgeMs = tradeStatus, tradeAge
	}

	_, marketAge, err := t.Status(ctx, KindMarket, conditionID)
	if err != nil {
		return f, err
	}
	f.HasMarket = marketAge >= 0

	f.OK = true
	return f, nil
}
