// Package wallet resolves and caches on-chain wallet enrichment for trade
// takers (spec §4.9). First sighting blocks the emitting job; concurrent
// trade-poll jobs across tokens enriching the same new wallet coalesce
// onto one in-flight lookup via golang.org/x/sync/singleflight (already a
// pulled-in transitive dependency of the teacher's SDK, promoted here to a
// direct one).
package wallet

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/marketwatch/anomaly-engine/internal/adapter"
	"github.com/marketwatch/anomaly-engine/internal/model"
	"github.com/marketwatch/anomaly-engine/internal/store"
)

const (
	enrichedTTL  = 30 * 24 * time.Hour
	sentinelTTL  = time.Hour
	lookupTimeout = 30 * time.Second
)

// Enricher resolves model.WalletProfile, cache-first, falling back to the
// block explorer on miss. It satisfies feature.WalletLookup.
type Enricher struct {
	store    store.Store
	explorer adapter.BlockExplorer
	sf       singleflight.Group
}

func New(s store.Store, explorer adapter.BlockExplorer) *Enricher {
	return &Enricher{store: s, explorer: explorer}
}

// cachedProfile is the JSON shape persisted at wallet:{addr}:enriched.
type cachedProfile struct {
	FirstSeenAt    int64 `json:"firstSeenAtMs"`
	HasFirstSeenAt bool  `json:"hasFirstSeenAt"`
	FirstSeenBlock uint64 `json:"firstSeenBlock"`
	TxCount        uint64 `json:"txCount"`
	TradeCount     int    `json:"tradeCount"`
	MarketsTraded  int    `json:"marketsTraded"`
	TotalVolume    float64 `json:"totalVolume"`
	IsSentinel     bool   `json:"isSentinel"`
}

// Get resolves the enrichment for addr, reading the store cache first and
// coalescing concurrent first-sighting lookups for the same address (spec
// §5: "the job context carries a per-wallet single-flight token").
func (e *Enricher) Get(ctx context.Context, addr model.Address) (model.WalletProfile, error) {
	if raw, ok, err := e.store.Get(ctx, store.Keys.WalletEnriched(string(addr))); err == nil && ok {
		return decodeCached(addr, raw), nil
	}

	v, err, _ := e.sf.Do(string(addr), func() (interface{}, error) {
		return e.fetchAndCache(ctx, addr)
	})
	if err != nil {
		// Enrichment failures degrade to neutral scores; they never block
		// the pipeline (spec §7).
		return neutralProfile(addr), nil
	}
	return v.(model.WalletProfile), nil
}

func (e *Enricher) fetchAndCache(ctx context.Context, addr model.Address) (model.WalletProfile, error) {
	// Re-check the cache: another job may have populated it while this one
	// waited to acquire the singleflight key.
	if raw, ok, err := e.store.Get(ctx, store.Keys.WalletEnriched(string(addr))); err == nil && ok {
		return decodeCached(addr, raw), nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	profile, err := e.fetchFromExplorer(lookupCtx, addr)
	if err != nil {
		sentinel := cachedProfile{IsSentinel: true}
		raw, _ := json.Marshal(sentinel)
		_ = e.store.Set(ctx, store.Keys.WalletEnriched(string(addr)), string(raw), sentinelTTL)
		return neutralProfile(addr), err
	}

	cp := toCached(profile)
	raw, _ := json.Marshal(cp)
	_ = e.store.Set(ctx, store.Keys.WalletEnriched(string(addr)), string(raw), enrichedTTL)
	_ = e.store.Set(ctx, store.Keys.WalletFirstSeen(string(addr)), formatMs(profile.FirstSeenAt, profile.HasFirstSeenAt), enrichedTTL)
	return profile, nil
}

func (e *Enricher) fetchFromExplorer(ctx context.Context, addr model.Address) (model.WalletProfile, error) {
	block, at, found, err := e.explorer.EarliestTx(ctx, addr)
	if err != nil {
		return model.WalletProfile{}, err
	}
	txCount, err := e.explorer.TxCount(ctx, addr)
	if err != nil {
		return model.WalletProfile{}, err
	}

	return model.WalletProfile{
		Address:        addr,
		FirstSeenAt:    at,
		HasFirstSeenAt: found,
		FirstSeenBlock: block,
		TxCount:        txCount,
		LastEnrichedAt: time.Now(),
		TTL:            enrichedTTL,
	}, nil
}

// neutralProfile is the fallback used on enrichment failure: age-unknown
// (AgeDays returns -1, which the feature builder maps to ageScore=0.5) and
// zero activity counters (spec §4.9).
func neutralProfile(addr model.Address) model.WalletProfile {
	return model.WalletProfile{Address: addr, HasFirstSeenAt: false, TTL: sentinelTTL}
}

func decodeCached(addr model.Address, raw string) model.WalletProfile {
	var cp cachedProfile
	if err := json.Unmarshal([]byte(raw), &cp); err != nil || cp.IsSentinel {
		return neutralProfile(addr)
	}
	p := model.WalletProfile{
		Address:        addr,
		HasFirstSeenAt: cp.HasFirstSeenAt,
		FirstSeenBlock: cp.FirstSeenBlock,
		TxCount:        cp.TxCount,
		TradeCount:     cp.TradeCount,
		MarketsTraded:  cp.MarketsTraded,
		TotalVolume:    cp.TotalVolume,
		TTL:            enrichedTTL,
	}
	if cp.HasFirstSeenAt {
		p.FirstSeenAt = time.UnixMilli(cp.FirstSeenAt)
	}
	return p
}

func toCached(p model.WalletProfile) cachedProfile {
	cp := cachedProfile{
		HasFirstSeenAt: p.HasFirstSeenAt,
		FirstSeenBlock: p.FirstSeenBlock,
		TxCount:        p.TxCount,
		TradeCount:     p.TradeCount,
		MarketsTraded:  p.MarketsTraded,
		TotalVolume:    p.TotalVolume,
	}
	if p.HasFirstSeenAt {
		cp.FirstSeenAt = p.FirstSeenAt.UnixMilli()
	}
	return cp
}

func formatMs(t time.Time, has bool) string {
	if !has {
		return "unknown"
	}
	return t.Format(time.RFC3339)
}

// RecordActivity updates the cached profile's trade/market/volume counters
// after a trade-poll job observes a new trade from addr (so subsequent
// activity gates reflect it without a fresh on-chain fetch).
func (e *Enricher) RecordActivity(ctx context.Context, addr model.Address, marketSeen bool, volumeUSD float64) error {
	raw, ok, err := e.store.Get(ctx, store.Keys.WalletEnriched(string(addr)))
	if err != nil {
		return err
	}
	var cp cachedProfile
	if ok {
		if err := json.Unmarshal([]byte(raw), &cp); err != nil {
			cp = cachedProfile{}
		}
	}
	cp.TradeCount++
	if marketSeen {
		cp.MarketsTraded++
	}
	cp.TotalVolume += volumeUSD

	next, err := json.Marshal(cp)
	if err != nil {
		return err
	}
	return e.store.Set(ctx, store.Keys.WalletEnriched(string(addr)), string(next), enrichedTTL)
}
