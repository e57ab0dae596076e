package decision

import (
	"context"
	"testing"
	"time"

	"github.com/marketwatch/anomaly-engine/internal/clock"
	"github.com/marketwatch/anomaly-engine/internal/model"
	"github.com/marketwatch/anomaly-engine/internal/portfolio"
	"github.com/marketwatch/anomaly-engine/internal/risk"
	"github.com/marketwatch/anomaly-engine/internal/store"
)

func newHarness(t *testing.T, nowMs int64) (*Service, *store.MemoryStore, *clock.Fixed) {
	t.Helper()
	s := store.NewMemoryStore()
	clk := &clock.Fixed{Ms: nowMs}
	staleness := clock.NewTracker(s, clk)
	port := portfolio.New(s)
	ctx := context.Background()
	if err := port.InitBankroll(ctx, 10000); err != nil {
		t.Fatalf("InitBankroll: %v", err)
	}
	riskMgr := risk.New(risk.DefaultConfig(), s)
	svc := New(DefaultConfig(), s, staleness, port, riskMgr, clk)
	return svc, s, clk
}

func markFresh(t *testing.T, ctx context.Context, staleness *clock.Tracker, token, condition string) {
	t.Helper()
	if err := staleness.Record(ctx, clock.KindOrderbook, token); err != nil {
		t.Fatalf("Record orderbook: %v", err)
	}
	if err := staleness.Record(ctx, clock.KindMarket, condition); err != nil {
		t.Fatalf("Record market: %v", err)
	}
}

func strongFeatureVector() model.FeatureVector {
	return model.FeatureVector{
		TokenID:        "tok1",
		ConditionID:    "cond1",
		RampMultiplier: 1.0,
		Orderbook: model.OrderbookFeature{
			BidDepthUSD: 2000,
			AskDepthUSD: 500,
			Imbalance:   0.5,
			SpreadBps:   150,
			MidPrice:    0.55,
		},
	}
}

func strongScore() model.CompositeScore {
	return model.CompositeScore{
		Anomaly:   model.AnomalyScore{Score: 0.9},
		Execution: model.ExecutionScore{Score: 0.8},
		Edge:      model.EdgeScore{Score: 0.5},
	}
}

func TestEvaluateRejectsOnStaleData(t *testing.T) {
	svc, s, _ := newHarness(t, 1_000_000)
	_ = s
	fv := strongFeatureVector()
	d, err := svc.Evaluate(context.Background(), fv, strongScore(), time.UnixMilli(1_000_000).Add(time.Hour))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Approved || d.RejectionReason != ReasonStaleData {
		t.Fatalf("expected STALE_DATA rejection, got %+v", d)
	}
}

func TestEvaluateRejectsBelowAnomalyThreshold(t *testing.T) {
	svc, s, clk := newHarness(t, 1_000_000)
	ctx := context.Background()
	staleness := clock.NewTracker(s, clk)
	markFresh(t, ctx, staleness, "tok1", "cond1")

	fv := strongFeatureVector()
	score := strongScore()
	score.Anomaly.Score = 0.3

	d, err := svc.Evaluate(ctx, fv, score, time.UnixMilli(1_000_000).Add(time.Hour))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Approved || d.RejectionReason != ReasonBelowAnomalyThreshold {
		t.Fatalf("expected BELOW_ANOMALY_THRESHOLD, got %+v", d)
	}
}

func TestEvaluateRejectsOnWeakImbalance(t *testing.T) {
	svc, s, clk := newHarness(t, 1_000_000)
	ctx := context.Background()
	staleness := clock.NewTracker(s, clk)
	markFresh(t, ctx, staleness, "tok1", "cond1")

	fv := strongFeatureVector()
	fv.Orderbook.Imbalance = 0.05 // below the 0.2 magnitude gate

	d, err := svc.Evaluate(ctx, fv, strongScore(), time.UnixMilli(1_000_000).Add(time.Hour))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Approved || d.RejectionReason != ReasonRiskCheckFailed {
		t.Fatalf("expected RISK_CHECK_FAILED, got %+v", d)
	}
}

func TestEvaluateApprovesBuyYes(t *testing.T) {
	svc, s, clk := newHarness(t, 1_000_000)
	ctx := context.Background()
	staleness := clock.NewTracker(s, clk)
	markFresh(t, ctx, staleness, "tok1", "cond1")

	fv := strongFeatureVector()
	d, err := svc.Evaluate(ctx, fv, strongScore(), time.UnixMilli(1_000_000).Add(time.Hour))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !d.Approved {
		t.Fatalf("expected approval, got rejection %q", d.RejectionReason)
	}
	if d.Action != model.ActionBuy || d.Side != model.OutcomeYes {
		t.Fatalf("expected BUY YES, got action=%s side=%s", d.Action, d.Side)
	}
	if d.TargetSizeUSD <= 0 {
		t.Fatalf("expected positive sizing, got %f", d.TargetSizeUSD)
	}
	if d.TargetSizeUSD > 0.02*10000+1e-9 {
		t.Fatalf("expected size within 2%% bet fraction cap, got %f", d.TargetSizeUSD)
	}
	if d.LimitPrice <= 0 || d.LimitPrice >= d.TargetPrice {
		t.Fatalf("expected limit price improved below target (closer to mid), got target=%f limit=%f", d.TargetPrice, d.LimitPrice)
	}

	cached, ok, err := s.Get(ctx, store.Keys.DecisionCache("tok1"))
	if err != nil {
		t.Fatalf("Get cache: %v", err)
	}
	if !ok || cached != d.ID {
		t.Fatalf("expected decision cached under its id, got %q ok=%v", cached, ok)
	}
}

func TestEvaluateRejectsOnNoTradeZone(t *testing.T) {
	svc, s, clk := newHarness(t, 1_000_000)
	ctx := context.Background()
	staleness := clock.NewTracker(s, clk)
	markFresh(t, ctx, staleness, "tok1", "cond1")

	fv := strongFeatureVector()
	d, err := svc.Evaluate(ctx, fv, strongScore(), time.UnixMilli(1_000_000).Add(60*time.Second))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Approved || d.RejectionReason != risk.ReasonNoTradeZone {
		t.Fatalf("expected no_trade_zone, got %+v", d)
	}
}
