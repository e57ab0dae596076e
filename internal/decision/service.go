// Package decision implements the decision service (spec §4.7): the final
// stage that turns a feature vector and its composite score into an
// immutable, cached trading decision (or a structured rejection).
package decision

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/marketwatch/anomaly-engine/internal/clock"
	"github.com/marketwatch/anomaly-engine/internal/model"
	"github.com/marketwatch/anomaly-engine/internal/portfolio"
	"github.com/marketwatch/anomaly-engine/internal/risk"
	"github.com/marketwatch/anomaly-engine/internal/scorer"
	"github.com/marketwatch/anomaly-engine/internal/sizer"
	"github.com/marketwatch/anomaly-engine/internal/store"
)

// Score gate thresholds (spec §4.7).
const (
	MinAnomalyScore   = 0.65
	MinExecutionScore = 0.55
	MinEdgeScore      = 0.05
	MinImbalanceMag   = 0.20
)

// Rejection reason codes distinct from the risk guard's snake_case reasons
// (spec §8's end-to-end scenarios).
const (
	ReasonStaleData               = "STALE_DATA"
	ReasonBelowAnomalyThreshold   = "BELOW_ANOMALY_THRESHOLD"
	ReasonBelowExecutionThreshold = "BELOW_EXECUTION_THRESHOLD"
	ReasonBelowEdgeThreshold      = "BELOW_EDGE_THRESHOLD"
	ReasonRiskCheckFailed         = "RISK_CHECK_FAILED"
)

// Config bundles the service's tunable thresholds and downstream configs.
type Config struct {
	MinAnomalyScore   float64
	MinExecutionScore float64
	MinEdgeScore      float64
	MinImbalanceMag   float64

	Sizer sizer.Config
	Risk  risk.Config

	PaperMode bool
}

func DefaultConfig() Config {
	return Config{
		MinAnomalyScore:   MinAnomalyScore,
		MinExecutionScore: MinExecutionScore,
		MinEdgeScore:      MinEdgeScore,
		MinImbalanceMag:   MinImbalanceMag,
		Sizer:             sizer.DefaultConfig(),
		Risk:              risk.DefaultConfig(),
		PaperMode:         true,
	}
}

// Service assembles decisions from feature vectors, gating on freshness,
// score thresholds, and the risk guard pipeline.
type Service struct {
	cfg       Config
	store     store.Store
	staleness *clock.Tracker
	portfolio *portfolio.Tracker
	risk      *risk.Manager
	clk       clock.Clock
}

func New(cfg Config, s store.Store, staleness *clock.Tracker, port *portfolio.Tracker, riskMgr *risk.Manager, clk clock.Clock) *Service {
	return &Service{cfg: cfg, store: s, staleness: staleness, portfolio: port, risk: riskMgr, clk: clk}
}

// Evaluate runs the full decision pipeline for one feature vector and its
// composite score (spec §4.7). The returned Decision is always non-nil;
// Approved and HasRejectionReason/RejectionReason communicate the verdict.
func (s *Service) Evaluate(ctx context.Context, fv model.FeatureVector, cs model.CompositeScore, closeAt time.Time) (model.Decision, error) {
	now := time.UnixMilli(s.clk.NowMs())
	d := model.Decision{
		ID:          uuid.NewString(),
		TokenID:     fv.TokenID,
		ConditionID: fv.ConditionID,
		TimestampMs: now.UnixMilli(),
		Action:      model.ActionNoTrade,
		Scores:      cs,
		Features:    fv,
		CreatedAt:   now,
		ExpiresAt:   now.Add(model.DecisionTTL),
		PaperMode:   s.cfg.PaperMode,
	}

	fresh, err := s.staleness.CheckFreshness(ctx, string(fv.TokenID), string(fv.ConditionID))
	if err != nil {
		return d, err
	}
	if !fresh.OK {
		return reject(d, ReasonStaleData), nil
	}

	if cs.Anomaly.Score < s.cfg.MinAnomalyScore {
		return reject(d, ReasonBelowAnomalyThreshold), nil
	}
	if cs.Execution.Score < s.cfg.MinExecutionScore {
		return reject(d, ReasonBelowExecutionThreshold), nil
	}
	if cs.Edge.Score < s.cfg.MinEdgeScore {
		return reject(d, ReasonBelowEdgeThreshold), nil
	}

	imbalance := fv.Orderbook.Imbalance
	if math.Abs(imbalance) < s.cfg.MinImbalanceMag {
		return reject(d, ReasonRiskCheckFailed), nil
	}
	isYes := imbalance > 0
	side := model.OutcomeNo
	action := model.ActionSell
	if isYes {
		side = model.OutcomeYes
		action = model.ActionBuy
	}

	snap, err := s.portfolio.SnapshotFor(ctx, string(fv.TokenID))
	if err != nil {
		return d, err
	}

	targetPrice, limitPrice := priceTargets(fv.Orderbook, isYes)

	sizeIn := sizer.Input{
		Edge:                cs.Edge,
		Price:               targetPrice,
		Bankroll:            snap.Bankroll,
		ExistingPositionUSD: snap.ExistingPositionUSD,
	}
	sizeRes := sizer.Size(s.cfg.Sizer, sizeIn, isYes)

	riskIn := risk.Input{
		Now:                 now,
		CloseAt:             closeAt,
		ProposedSizeUSD:     sizeRes.TargetSizeUSD,
		Bankroll:            snap.Bankroll,
		TotalExposureUSD:    snap.TotalExposureUSD,
		ExistingPositionUSD: snap.ExistingPositionUSD,
		DailyPnL:            snap.DailyPnL,
		DrawdownPct:         snap.DrawdownPct,
		ConsecutiveLosses:   snap.ConsecutiveLosses,
		SpreadBps:           fv.Orderbook.SpreadBps,
		TopOfBookDepthUSD:   math.Min(fv.Orderbook.BidDepthUSD, fv.Orderbook.AskDepthUSD),
		BookAgeMs:           fresh.OrderbookAgeMs,
		TradeAgeMs:          fresh.TradeAgeMs,
		HasTradeAge:         fresh.HasTrade,
	}
	riskRes, err := s.risk.Evaluate(ctx, riskIn)
	if err != nil {
		return d, err
	}
	d.RiskChecksPassed = riskRes.ChecksPerformed
	if !riskRes.Approved {
		return reject(d, riskRes.RejectionReason), nil
	}

	d.Action = action
	d.HasSide = true
	d.Side = side
	d.HasTargetPrice = true
	d.TargetPrice = targetPrice
	d.HasLimitPrice = true
	d.LimitPrice = limitPrice
	d.HasSizing = true
	d.TargetSizeUSD = riskRes.AdjustedSizeUSD
	if targetPrice > 0 {
		d.TargetShares = riskRes.AdjustedSizeUSD / targetPrice
	}
	d.Approved = true

	if err := s.cache(ctx, d); err != nil {
		return d, err
	}
	return d, nil
}

func reject(d model.Decision, reason string) model.Decision {
	d.Approved = false
	d.RejectionReason = reason
	d.HasRejectionReason = true
	return d
}

// priceTargets computes targetPrice (bestAsk for YES, bestBid for NO) and a
// limit improved toward mid by half the spread fraction, clamped to
// [0.01, 0.99] (spec §4.7).
func priceTargets(ob model.OrderbookFeature, isYes bool) (target, limit float64) {
	spreadFraction := ob.SpreadBps / 10000
	halfSpreadAbs := spreadFraction * ob.MidPrice / 2

	if isYes {
		target = ob.MidPrice + halfSpreadAbs // bestAsk
		limit = target - spreadFraction*0.5  // improve toward mid
	} else {
		target = ob.MidPrice - halfSpreadAbs // bestBid
		limit = target + spreadFraction*0.5  // improve toward mid
	}
	return clampPrice(target), clampPrice(limit)
}

func clampPrice(p float64) float64 {
	if p < 0.01 {
		return 0.01
	}
	if p > 0.99 {
		return 0.99
	}
	return p
}

// cache records the approved decision's id at decisions:{token}:cache for
// 60s (spec §4.7).
func (s *Service) cache(ctx context.Context, d model.Decision) error {
	key := store.Keys.DecisionCache(string(d.TokenID))
	return s.store.Set(ctx, key, d.ID, 60*time.Second)
}
