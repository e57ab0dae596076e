// Package collector runs the three periodic jobs that keep tracked-token
// state fresh: market discovery, per-token orderbook snapshots, and
// per-token trade polling (spec §4.8). Each job is a plain method the
// scheduler (internal/queue) invokes on a tick; the collector itself holds
// no goroutines or tickers of its own.
package collector

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/marketwatch/anomaly-engine/internal/adapter"
	"github.com/marketwatch/anomaly-engine/internal/clock"
	"github.com/marketwatch/anomaly-engine/internal/feature"
	"github.com/marketwatch/anomaly-engine/internal/model"
	"github.com/marketwatch/anomaly-engine/internal/store"
	"github.com/marketwatch/anomaly-engine/internal/wallet"
)

// Pagination bounds for market discovery (spec §4.8).
const (
	discoveryPageSize  = 100
	discoverySafetyCap = 5000
)

const (
	defaultHorizon      = 24 * time.Hour
	metadataTTL         = 24 * time.Hour
	cleanupGraceAfterEnd = 5 * time.Minute
)

// Event is a normalized observation handed to the features queue (spec
// §4.8: "{type, tokenId, conditionId, timestamp, data}").
type Event struct {
	Type        string
	TokenID     string
	ConditionID string
	TimestampMs int64
	Orderbook   *feature.BookEntry
	Trade       *model.Trade
}

const (
	EventOrderbook = "orderbook"
	EventTrade     = "trade"
)

// Emitter pushes a normalized event onto the features queue. Implemented by
// internal/engine.Engine in production; tests supply a slice-collecting stub.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// MarketPredicate decides whether a discovered market should be tracked
// (spec §4.8: "volume/liquidity floors, category whitelist, tag blacklist,
// question word-boundary scan").
type MarketPredicate func(m model.Market) bool

// Config bundles discovery/tracking tunables.
type Config struct {
	Horizon          time.Duration // only track markets closing within this window
	DiscoveryLimit   int           // page size
	DiscoverySafety  int           // total-item safety cap across pages
	Predicate        MarketPredicate
}

func DefaultConfig() Config {
	return Config{
		Horizon:         defaultHorizon,
		DiscoveryLimit:  discoveryPageSize,
		DiscoverySafety: discoverySafetyCap,
		Predicate:       func(model.Market) bool { return true },
	}
}

// Collector runs the discovery, orderbook-snapshot, and trade-poll jobs.
type Collector struct {
	cfg Config

	markets   adapter.MarketsFeed
	orderbook adapter.OrderbookFeed
	trades    adapter.TradeFeed

	store     store.Store
	latest    *feature.Latest
	bookWin   *feature.BookWindow
	tradeWin  *feature.TradeWindow
	wallet    *wallet.Enricher
	staleness *clock.Tracker
	clk       clock.Clock
	emitter   Emitter

	log zerolog.Logger
}

func New(
	cfg Config,
	markets adapter.MarketsFeed,
	orderbook adapter.OrderbookFeed,
	trades adapter.TradeFeed,
	s store.Store,
	latest *feature.Latest,
	bookWin *feature.BookWindow,
	tradeWin *feature.TradeWindow,
	enricher *wallet.Enricher,
	staleness *clock.Tracker,
	clk clock.Clock,
	emitter Emitter,
	log zerolog.Logger,
) *Collector {
	return &Collector{
		cfg:       cfg,
		markets:   markets,
		orderbook: orderbook,
		trades:    trades,
		store:     s,
		latest:    latest,
		bookWin:   bookWin,
		tradeWin:  tradeWin,
		wallet:    enricher,
		staleness: staleness,
		clk:       clk,
		emitter:   emitter,
		log:       log,
	}
}

// TrackedToken is the per-token tracking record the discovery job writes
// (spec §4.8: "{tokenId, conditionId, outcomeName, endDateIso}").
type TrackedToken struct {
	TokenID     string    `json:"tokenId"`
	ConditionID string    `json:"conditionId"`
	OutcomeName string    `json:"outcomeName"`
	EndDateIso  time.Time `json:"endDateIso"`
}

// DiscoverMarkets paginates the markets feed, filters to markets closing
// within the horizon and passing the predicate, and tracks both outcome
// tokens of each (spec §4.8). It then runs the cleanup pass.
func (c *Collector) DiscoverMarkets(ctx context.Context) error {
	now := time.UnixMilli(c.clk.NowMs())
	seen := 0
	offset := 0
	tracked := 0

	for seen < c.cfg.DiscoverySafety {
		dtos, err := c.markets.Markets(ctx, offset, c.cfg.DiscoveryLimit, true)
		if err != nil {
			return err
		}
		if len(dtos) == 0 {
			break
		}
		for _, dto := range dtos {
			seen++
			m, err := model.ParseMarket(dto)
			if err != nil {
				c.log.Warn().Err(err).Str("conditionId", dto.ConditionID).Msg("dropping malformed market")
				continue
			}
			if m.TimeToClose(now) <= 0 || m.TimeToClose(now) > c.cfg.Horizon {
				continue
			}
			if !c.cfg.Predicate(m) {
				continue
			}
			if err := c.trackMarket(ctx, m); err != nil {
				return err
			}
			tracked += 2
		}
		offset += len(dtos)
		if len(dtos) < c.cfg.DiscoveryLimit {
			break
		}
	}

	c.log.Info().Int("seen", seen).Int("tracked", tracked).Msg("market discovery complete")
	return c.cleanup(ctx, now)
}

func (c *Collector) trackMarket(ctx context.Context, m model.Market) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := c.store.Set(ctx, store.Keys.MarketMetadata(string(m.ConditionID)), string(raw), metadataTTL); err != nil {
		return err
	}

	for _, outcome := range m.Outcomes {
		tok := string(outcome.TokenID)
		rec := TrackedToken{
			TokenID:     tok,
			ConditionID: string(m.ConditionID),
			OutcomeName: outcome.Name,
			EndDateIso:  m.EndDateIso,
		}
		recRaw, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := c.store.Set(ctx, store.Keys.TokenTracking(tok), string(recRaw), metadataTTL); err != nil {
			return err
		}
		if err := c.store.Set(ctx, store.Keys.TokenCondition(tok), string(m.ConditionID), metadataTTL); err != nil {
			return err
		}
		if err := c.store.SAdd(ctx, store.Keys.TrackedTokens(), tok); err != nil {
			return err
		}
	}
	return nil
}

// cleanup removes tracked tokens whose markets ended more than five minutes
// ago, along with their derived state (spec §4.8).
func (c *Collector) cleanup(ctx context.Context, now time.Time) error {
	tokens, err := c.store.SMembers(ctx, store.Keys.TrackedTokens())
	if err != nil {
		return err
	}
	for _, tok := range tokens {
		raw, ok, err := c.store.Get(ctx, store.Keys.TokenTracking(tok))
		if err != nil {
			return err
		}
		if !ok {
			// tracking record already expired (TTL); drop membership too.
			if err := c.store.SRem(ctx, store.Keys.TrackedTokens(), tok); err != nil {
				return err
			}
			continue
		}
		var rec TrackedToken
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		if now.Sub(rec.EndDateIso) <= cleanupGraceAfterEnd {
			continue
		}
		if err := c.retireToken(ctx, tok); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) retireToken(ctx context.Context, tok string) error {
	if err := c.store.SRem(ctx, store.Keys.TrackedTokens(), tok); err != nil {
		return err
	}
	return c.store.Del(ctx,
		store.Keys.TokenTracking(tok),
		store.Keys.TokenCondition(tok),
		store.Keys.OrderbookState(tok),
		store.Keys.BookWindow(tok),
		store.Keys.TradeWindow(tok),
		store.Keys.TradeSince(tok),
		store.Keys.WalletsSeen(tok),
		store.Keys.FeaturesLatest(tok),
		store.Keys.ScoresLatest(tok),
		store.Keys.HawkesState(tok),
		store.Keys.TradeSizeDigest(tok),
	)
}

// SnapshotOrderbook fetches, normalizes, and caches one token's current
// book, appends it to the book window, and emits an orderbook event (spec
// §4.8).
func (c *Collector) SnapshotOrderbook(ctx context.Context, token, condition string) error {
	callCtx, cancel := context.WithTimeout(ctx, adapter.DefaultCallTimeout)
	defer cancel()

	dto, err := c.orderbook.Orderbook(callCtx, token)
	if err != nil {
		c.log.Warn().Err(err).Str("token", token).Msg("orderbook fetch failed")
		return err
	}

	nowMs := c.clk.NowMs()
	snap, err := model.ParseOrderbook(dto, nowMs)
	if err != nil {
		c.log.Warn().Err(err).Str("token", token).Msg("dropping malformed orderbook")
		return nil
	}
	metrics := model.ComputeMetrics(snap)
	entry := feature.BookEntry{Snapshot: snap, Metrics: metrics}

	if err := c.latest.Set(ctx, token, entry); err != nil {
		return err
	}
	if err := c.bookWin.Append(ctx, token, entry, nowMs); err != nil {
		return err
	}
	if err := c.staleness.Record(ctx, clock.KindOrderbook, token); err != nil {
		return err
	}

	if c.emitter != nil {
		if err := c.emitter.Emit(ctx, Event{
			Type:        EventOrderbook,
			TokenID:     token,
			ConditionID: condition,
			TimestampMs: snap.TimestampMs,
			Orderbook:   &entry,
		}); err != nil {
			return err
		}
	}
	return nil
}

// PollTrades fetches trades newer than the cached cursor, records the
// taker in the wallet-seen set, blockingly enriches any previously-unseen
// wallet, appends each to the trade window, and emits one event per new
// trade (spec §4.8).
func (c *Collector) PollTrades(ctx context.Context, token, condition string) error {
	sinceSec := c.sinceCursor(ctx, token)

	callCtx, cancel := context.WithTimeout(ctx, adapter.DefaultCallTimeout)
	defer cancel()

	dtos, err := c.trades.RecentTrades(callCtx, token, sinceSec)
	if err != nil {
		c.log.Warn().Err(err).Str("token", token).Msg("trade poll failed")
		return err
	}
	if len(dtos) == 0 {
		return nil
	}

	nowMs := c.clk.NowMs()
	latestSec := sinceSec
	for _, dto := range dtos {
		tr, err := model.ParseTrade(dto)
		if err != nil {
			c.log.Warn().Err(err).Str("token", token).Msg("dropping malformed trade")
			continue
		}
		if dto.TimestampSec <= sinceSec {
			continue
		}

		seenKey := store.Keys.WalletsSeen(token)
		isNew, err := c.markWalletSeen(ctx, seenKey, string(tr.TakerAddress))
		if err != nil {
			return err
		}
		if isNew {
			// Blocking on first sighting only (spec §4.8, §5); Enricher never
			// surfaces an error, so the emitting job is never failed by it.
			if _, err := c.wallet.Get(ctx, tr.TakerAddress); err != nil {
				c.log.Warn().Err(err).Str("wallet", string(tr.TakerAddress)).Msg("wallet enrichment failed")
			}
		}
		if err := c.wallet.RecordActivity(ctx, tr.TakerAddress, true, tr.Price*tr.Size); err != nil {
			return err
		}

		if err := c.tradeWin.Append(ctx, token, tr, nowMs); err != nil {
			return err
		}

		if dto.TimestampSec > latestSec {
			latestSec = dto.TimestampSec
		}

		if c.emitter != nil {
			if err := c.emitter.Emit(ctx, Event{
				Type:        EventTrade,
				TokenID:     token,
				ConditionID: condition,
				TimestampMs: tr.TimestampMs,
				Trade:       &tr,
			}); err != nil {
				return err
			}
		}
	}

	if latestSec > sinceSec {
		if err := c.store.Set(ctx, store.Keys.TradeSince(token), formatCursor(latestSec), metadataTTL); err != nil {
			return err
		}
		if err := c.staleness.Record(ctx, clock.KindTrade, token); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) sinceCursor(ctx context.Context, token string) int64 {
	raw, ok, err := c.store.Get(ctx, store.Keys.TradeSince(token))
	if err != nil || !ok {
		return 0
	}
	return parseCursor(raw)
}

func (c *Collector) markWalletSeen(ctx context.Context, setKey, addr string) (bool, error) {
	already, err := c.store.SIsMember(ctx, setKey, addr)
	if err != nil {
		return false, err
	}
	if already {
		return false, nil
	}
	if err := c.store.SAdd(ctx, setKey, addr); err != nil {
		return false, err
	}
	if err := c.store.Expire(ctx, setKey, time.Hour); err != nil {
		return false, err
	}
	return true, nil
}

func formatCursor(ms int64) string {
	return strconv.FormatInt(ms, 10)
}

func parseCursor(raw string) int64 {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
