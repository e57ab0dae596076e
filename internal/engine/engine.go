// Package engine wires the leaf packages (collector, feature, scorer,
// sizer, risk, decision, queue) into one running system (spec §1 item (d),
// §2's data-flow "Market Discovery -> Feature Builder -> Scorer -> Decision
// -> Paper Queue"). Adapted from the teacher's internal/app.App: the same
// shape of "one struct owns every component and a Run(ctx) drives them
// concurrently until shutdown", but the teacher's maker/taker order-placement
// select loop is replaced by per-event decision evaluation fed through
// named queues, since this domain only ever produces a Decision, never a
// live order.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/marketwatch/anomaly-engine/internal/adapter"
	"github.com/marketwatch/anomaly-engine/internal/clock"
	"github.com/marketwatch/anomaly-engine/internal/collector"
	"github.com/marketwatch/anomaly-engine/internal/config"
	"github.com/marketwatch/anomaly-engine/internal/decision"
	"github.com/marketwatch/anomaly-engine/internal/feature"
	"github.com/marketwatch/anomaly-engine/internal/model"
	"github.com/marketwatch/anomaly-engine/internal/notify"
	"github.com/marketwatch/anomaly-engine/internal/obs"
	"github.com/marketwatch/anomaly-engine/internal/portfolio"
	"github.com/marketwatch/anomaly-engine/internal/queue"
	"github.com/marketwatch/anomaly-engine/internal/risk"
	"github.com/marketwatch/anomaly-engine/internal/scorer"
	"github.com/marketwatch/anomaly-engine/internal/sizer"
	"github.com/marketwatch/anomaly-engine/internal/store"
	"github.com/marketwatch/anomaly-engine/internal/telegramtmpl"
	"github.com/marketwatch/anomaly-engine/internal/wallet"
)

// shadowRejectionReason marks a decision that cleared every gate but was
// downgraded because the engine is running in "shadow" mode (spec §9:
// shadow runs the full pipeline and emits would-be decisions, but never
// lets one advance past NO_TRADE).
const shadowRejectionReason = "SHADOW_MODE"

// scoringSizeUSD is the proxy position size the scorer is evaluated against
// before the sizer has computed a risk-adjusted size (the two are
// circular: sizing needs a score, scoring wants a size). Using the sizer's
// own configured floor keeps the proxy grounded in a value the sizer
// itself would never clamp to zero.
func scoringSizeUSD(cfg sizer.Config) float64 {
	if cfg.MinBetSizeUSD > 0 {
		return cfg.MinBetSizeUSD
	}
	return sizer.DefaultMinBetSizeUSD
}

// Deps bundles every constructed dependency Engine composes. Built by the
// composition root (cmd/engine/main.go) so Engine itself takes no direct
// dependency on transport construction (polymarket-go-sdk clients,
// ethclient, go-redis).
type Deps struct {
	Store     store.Store
	Clock     clock.Clock
	Markets   adapter.MarketsFeed
	Orderbook adapter.OrderbookFeed
	Trades    adapter.TradeFeed
	Explorer  adapter.BlockExplorer
	Notifier  *notify.Notifier
}

// Engine owns every pipeline component and runs the scheduler/worker
// topology that binds them together.
type Engine struct {
	cfg config.Config
	log zerolog.Logger
	clk clock.Clock

	store     store.Store
	staleness *clock.Tracker

	latest   *feature.Latest
	bookWin  *feature.BookWindow
	tradeWin *feature.TradeWindow
	estStore *feature.EstimatorStore
	builder  *feature.Builder

	walletEnricher *wallet.Enricher
	portfolioT     *portfolio.Tracker
	riskMgr        *risk.Manager
	decisionSvc    *decision.Service
	collector      *collector.Collector
	notifier       *notify.Notifier

	discoveryQ *queue.Queue
	orderbookQ *queue.Queue
	tradeQ     *queue.Queue
	decisionQ  *queue.Queue
	scheduler  *queue.Scheduler

	mu      sync.Mutex
	running bool
}

// New composes every component from cfg and deps, following the teacher's
// App constructor: one place where every leaf package gets wired together.
func New(cfg config.Config, deps Deps) *Engine {
	log := obs.New(obs.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	staleness := clock.NewTracker(deps.Store, deps.Clock)
	latest := feature.NewLatest(deps.Store)
	bookWin := feature.NewBookWindow(deps.Store)
	tradeWin := feature.NewTradeWindow(deps.Store)
	estStore := feature.NewEstimatorStore(deps.Store)
	walletEnricher := wallet.New(deps.Store, deps.Explorer)
	builder := feature.NewBuilder(tradeWin, bookWin, latest, estStore, staleness, deps.Clock, walletEnricher)

	portfolioT := portfolio.New(deps.Store)
	riskMgr := risk.New(cfg.Risk, deps.Store)
	decisionSvc := decision.New(cfg.Decision, deps.Store, staleness, portfolioT, riskMgr, deps.Clock)

	e := &Engine{
		cfg:            cfg,
		log:            log,
		clk:            deps.Clock,
		store:          deps.Store,
		staleness:      staleness,
		latest:         latest,
		bookWin:        bookWin,
		tradeWin:       tradeWin,
		estStore:       estStore,
		builder:        builder,
		walletEnricher: walletEnricher,
		portfolioT:     portfolioT,
		riskMgr:        riskMgr,
		decisionSvc:    decisionSvc,
		notifier:       deps.Notifier,
	}

	e.discoveryQ = queue.New("discovery", cfg.Queue, log)
	e.orderbookQ = queue.New("orderbook", cfg.Queue, log)
	e.tradeQ = queue.New("trade", cfg.Queue, log)
	e.decisionQ = queue.New("decision", cfg.Queue, log)

	e.collector = collector.New(
		cfg.Collector,
		deps.Markets, deps.Orderbook, deps.Trades,
		deps.Store, latest, bookWin, tradeWin,
		walletEnricher, staleness, deps.Clock,
		e, // Engine implements collector.Emitter
		obs.Component(log, "collector"),
	)

	e.scheduler = queue.NewScheduler(
		cfg.Scheduler, deps.Store, deps.Clock,
		e.collector,
		e.collector.SnapshotOrderbook, e.collector.PollTrades,
		e.discoveryQ, e.orderbookQ, e.tradeQ,
		log,
	)

	return e
}

// Emit implements collector.Emitter: it enqueues the event for asynchronous
// decision processing rather than evaluating it inline, so a slow scoring
// pass never backs up the orderbook/trade poll jobs that produced it.
func (e *Engine) Emit(_ context.Context, event collector.Event) error {
	e.decisionQ.Enqueue(queue.Job{
		ID:   fmt.Sprintf("decision-%s-%d", event.TokenID, event.TimestampMs),
		Kind: "decision",
		Run: func(ctx context.Context) error {
			return e.processEvent(ctx, event)
		},
	})
	return nil
}

// processEvent runs one event through feature building, scoring, and the
// decision service, then notifies on an approved decision (spec §4.7, §4.10).
func (e *Engine) processEvent(ctx context.Context, event collector.Event) error {
	closeAt, err := e.closeAtFor(ctx, event.TokenID, event.ConditionID)
	if err != nil {
		return err
	}

	var fv model.FeatureVector
	switch event.Type {
	case collector.EventTrade:
		fv, err = e.builder.BuildForTrade(ctx, *event.Trade, closeAt)
	default:
		fv, err = e.builder.BuildForTick(ctx, model.TokenId(event.TokenID), model.ConditionId(event.ConditionID), event.TimestampMs, closeAt)
	}
	if err != nil {
		return err
	}

	cs := scorer.Score(fv, scoringSizeUSD(e.cfg.Sizer))

	d, err := e.decisionSvc.Evaluate(ctx, fv, cs, closeAt)
	if err != nil {
		return err
	}

	d = applyShadowMode(d, e.shadowMode())

	if d.Approved && e.notifier != nil {
		rationale := telegramtmpl.BuildRationaleLines(telegramtmpl.DecisionAdviceInput{
			AnomalyScore:     cs.Anomaly.Score,
			ExecutionScore:   cs.Execution.Score,
			EdgeScore:        cs.Edge.Score,
			Imbalance:        fv.Orderbook.Imbalance,
			SpreadBps:        fv.Orderbook.SpreadBps,
			RiskChecksPassed: d.RiskChecksPassed,
		})
		data := telegramtmpl.BuildDecisionData(
			string(d.TokenID), string(d.ConditionID), string(d.Action), string(d.Side), d.HasSide,
			d.TargetPrice, d.LimitPrice, d.TargetSizeUSD, d.PaperMode, rationale,
		)
		if err := e.notifier.NotifyDecision(ctx, data); err != nil {
			e.log.Warn().Err(err).Str("tokenId", string(d.TokenID)).Msg("decision notify failed")
		}
	}

	return nil
}

// shadowMode reports whether approved decisions must be downgraded before
// reaching notify (spec §9).
func (e *Engine) shadowMode() bool {
	return e.cfg.TradingMode == "shadow"
}

// applyShadowMode downgrades an otherwise-approved decision to a
// SHADOW_MODE rejection, leaving an already-rejected decision untouched.
// The decision service has already cached an approved decision's id before
// this runs (spec §4.7); that cache entry is a dedup aid for the decision
// pipeline, not an execution signal, so shadow mode only needs to stop the
// notification that would otherwise follow.
func applyShadowMode(d model.Decision, shadow bool) model.Decision {
	if shadow && d.Approved {
		d.Action = model.ActionNoTrade
		d.Approved = false
		d.HasRejectionReason = true
		d.RejectionReason = shadowRejectionReason
	}
	return d
}

// closeAtFor reads the tracked-token record the collector's discovery job
// wrote, to learn the market's close time for ramp/no-trade-zone/risk
// calculations.
func (e *Engine) closeAtFor(ctx context.Context, tokenID, _ string) (time.Time, error) {
	raw, ok, err := e.store.Get(ctx, store.Keys.TokenTracking(tokenID))
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, nil
	}
	var rec collector.TrackedToken
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return time.Time{}, nil
	}
	return rec.EndDateIso, nil
}

// Run starts every queue worker pool and the scheduler, blocking until ctx
// is cancelled or one of them returns a non-context error (spec §5).
func (e *Engine) Run(ctx context.Context) error {
	if err := e.portfolioT.InitBankroll(ctx, e.cfg.InitialBankrollUSD); err != nil {
		return fmt.Errorf("engine: init bankroll: %w", err)
	}

	e.setRunning(true)
	defer e.setRunning(false)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.discoveryQ.Run(ctx) })
	g.Go(func() error { return e.orderbookQ.Run(ctx) })
	g.Go(func() error { return e.tradeQ.Run(ctx) })
	g.Go(func() error { return e.decisionQ.Run(ctx) })
	g.Go(func() error { return e.scheduler.Run(ctx) })
	return g.Wait()
}

func (e *Engine) setRunning(v bool) {
	e.mu.Lock()
	e.running = v
	e.mu.Unlock()
}

// Running implements api.StatusProvider.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// TradingMode implements api.StatusProvider.
func (e *Engine) TradingMode() string { return e.cfg.TradingMode }

// StoreReady implements api.StatusProvider: the store is reachable if a
// plain read against the tracked-token set succeeds.
func (e *Engine) StoreReady(ctx context.Context) bool {
	_, err := e.store.SIsMember(ctx, store.Keys.TrackedTokens(), "")
	return err == nil
}
