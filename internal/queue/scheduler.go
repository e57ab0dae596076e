package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/marketwatch/anomaly-engine/internal/clock"
	"github.com/marketwatch/anomaly-engine/internal/store"
)

// Discoverer runs the market-discovery job; implemented by *collector.Collector.
type Discoverer interface {
	DiscoverMarkets(ctx context.Context) error
}

// TokenJobRunner runs a per-token job; implemented by *collector.Collector's
// SnapshotOrderbook and PollTrades methods.
type TokenJobRunner func(ctx context.Context, token, condition string) error

// SchedulerConfig tunes the periodic scheduler's tick intervals (spec §4.8).
type SchedulerConfig struct {
	DiscoveryInterval time.Duration
	TokenJobInterval  time.Duration
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		DiscoveryInterval: 5 * time.Minute,
		TokenJobInterval:  time.Second,
	}
}

// Scheduler is the single-owner periodic enqueuer (spec §5): it enqueues
// discovery once per DiscoveryInterval (and once at startup), and per-token
// orderbook + trade-poll jobs on every TokenJobInterval tick, reading token
// membership from the tracked-token set on every tick.
type Scheduler struct {
	cfg   SchedulerConfig
	store store.Store
	clk   clock.Clock
	log   zerolog.Logger

	discover   Discoverer
	orderbook  TokenJobRunner
	tradePoll  TokenJobRunner
	orderbookQ *Queue
	tradeQ     *Queue
	discoveryQ *Queue
}

func NewScheduler(
	cfg SchedulerConfig,
	s store.Store,
	clk clock.Clock,
	discover Discoverer,
	orderbook, tradePoll TokenJobRunner,
	discoveryQ, orderbookQ, tradeQ *Queue,
	log zerolog.Logger,
) *Scheduler {
	return &Scheduler{
		cfg:        cfg,
		store:      s,
		clk:        clk,
		log:        log.With().Str("component", "scheduler").Logger(),
		discover:   discover,
		orderbook:  orderbook,
		tradePoll:  tradePoll,
		discoveryQ: discoveryQ,
		orderbookQ: orderbookQ,
		tradeQ:     tradeQ,
	}
}

// Run enqueues discovery immediately, then drives both tickers until ctx is
// cancelled.
func (sch *Scheduler) Run(ctx context.Context) error {
	sch.enqueueDiscovery(ctx)

	discoveryTicker := time.NewTicker(sch.cfg.DiscoveryInterval)
	defer discoveryTicker.Stop()
	tokenTicker := time.NewTicker(sch.cfg.TokenJobInterval)
	defer tokenTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-discoveryTicker.C:
			sch.enqueueDiscovery(ctx)
		case <-tokenTicker.C:
			sch.enqueueTokenJobs(ctx)
		}
	}
}

func (sch *Scheduler) enqueueDiscovery(ctx context.Context) {
	nowMs := sch.clk.NowMs()
	jobID := fmt.Sprintf("discovery-%d", nowMs)
	sch.discoveryQ.Enqueue(Job{
		ID:   jobID,
		Kind: "discovery",
		Run:  sch.discover.DiscoverMarkets,
	})
}

func (sch *Scheduler) enqueueTokenJobs(ctx context.Context) {
	tokens, err := sch.store.SMembers(ctx, store.Keys.TrackedTokens())
	if err != nil {
		sch.log.Error().Err(err).Msg("failed to list tracked tokens")
		return
	}
	nowMs := sch.clk.NowMs()
	for _, token := range tokens {
		condition := sch.conditionFor(ctx, token)

		sch.orderbookQ.Enqueue(Job{
			ID:   fmt.Sprintf("orderbook-%s-%d", token, nowMs),
			Kind: "orderbook",
			Run: func(ctx context.Context) error {
				return sch.orderbook(ctx, token, condition)
			},
		})
		sch.tradeQ.Enqueue(Job{
			ID:   fmt.Sprintf("trade-%s-%d", token, nowMs),
			Kind: "trade",
			Run: func(ctx context.Context) error {
				return sch.tradePoll(ctx, token, condition)
			},
		})
	}
}

func (sch *Scheduler) conditionFor(ctx context.Context, token string) string {
	raw, ok, err := sch.store.Get(ctx, store.Keys.TokenCondition(token))
	if err != nil || !ok {
		return ""
	}
	return raw
}
