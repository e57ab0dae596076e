package feature

import (
	"context"
	"math"
	"time"

	"github.com/marketwatch/anomaly-engine/internal/clock"
	"github.com/marketwatch/anomaly-engine/internal/estimator"
	"github.com/marketwatch/anomaly-engine/internal/model"
)

// Ramp defaults (spec §4.3).
const (
	rampAlpha  = 2.0
	rampBeta   = 0.1
	rampMaxMul = 5.0
)

// noTradeZoneSeconds is the terminal window near close during which no new
// positions are opened (spec §4.3, §4.6).
const noTradeZoneSeconds = 120

// Dollar-floor tiers for the size-tail adjustment (spec §4.3).
const (
	tailFloorLow  = 5000.0
	tailFloorMid  = 10000.0
	tailFloorHigh = 25000.0
)

// Wallet score normalizers (spec §4.3).
const (
	walletTradesNormalizer = 100.0
	walletMarketsNormalizer = 20.0
	walletVolumeNormalizer  = 10000.0
)

// WalletLookup resolves a wallet's enrichment, blocking the caller (spec
// §4.9); implemented by internal/wallet.Enricher.
type WalletLookup interface {
	Get(ctx context.Context, addr model.Address) (model.WalletProfile, error)
}

// Builder assembles feature vectors from the book, trade window, wallet
// enrichment, and online estimators (spec §4.3).
type Builder struct {
	tradeWindow *TradeWindow
	bookWindow  *BookWindow
	latest      *Latest
	estimators  *EstimatorStore
	staleness   *clock.Tracker
	clk         clock.Clock
	wallet      WalletLookup
}

func NewBuilder(tw *TradeWindow, bw *BookWindow, latest *Latest, est *EstimatorStore, staleness *clock.Tracker, clk clock.Clock, wallet WalletLookup) *Builder {
	return &Builder{tradeWindow: tw, bookWindow: bw, latest: latest, estimators: est, staleness: staleness, clk: clk, wallet: wallet}
}

// BuildForTrade produces a feature vector triggered by a newly observed trade.
func (b *Builder) BuildForTrade(ctx context.Context, trade model.Trade, closeAt time.Time) (model.FeatureVector, error) {
	fv, err := b.base(ctx, trade.TokenID, trade.ConditionID, trade.TimestampMs, closeAt)
	if err != nil {
		return model.FeatureVector{}, err
	}

	trades, err := b.tradeWindow.Trades(ctx, string(trade.TokenID))
	if err != nil {
		return model.FeatureVector{}, err
	}
	sizes := make([]float64, 0, len(trades))
	for _, tr := range trades {
		sizes = append(sizes, tr.Size)
	}

	z := estimator.ClampExtreme(estimator.RobustZScore(sizes, trade.Size), 10)
	pct := estimator.Percentile(sizes, trade.Size)

	digest, err := b.estimators.LoadDigest(ctx, string(trade.TokenID))
	if err != nil {
		return model.FeatureVector{}, err
	}
	digest.Add(trade.Size)
	if err := b.estimators.SaveDigest(ctx, string(trade.TokenID), digest); err != nil {
		return model.FeatureVector{}, err
	}

	rawTail := tailScoreFromQuantile(digest, trade.Size)
	fv.HasTradeSize = true
	fv.TradeSize = model.TradeSizeFeature{
		Size:          trade.Size,
		RobustZScore:  z,
		Percentile:    pct,
		SizeTailScore: dollarFloorAdjust(trade.Size, rawTail),
	}

	wallet, err := b.wallet.Get(ctx, trade.TakerAddress)
	if err == nil {
		fv.HasWallet = true
		fv.Wallet = walletFeatureFrom(wallet, time.UnixMilli(trade.TimestampMs))
	}

	hawkes, err := b.estimators.LoadHawkes(ctx, string(trade.TokenID))
	if err != nil {
		return model.FeatureVector{}, err
	}
	hawkes.Update(trade.TimestampMs)
	if err := b.estimators.SaveHawkes(ctx, string(trade.TokenID), hawkes); err != nil {
		return model.FeatureVector{}, err
	}
	fv.Burst = model.BurstFeature{
		Intensity:     hawkes.GetCurrentIntensity(trade.TimestampMs),
		BaselineRatio: safeDiv(hawkes.GetCurrentIntensity(trade.TimestampMs), hawkes.Baseline),
		Score:         hawkes.GetBurstScore(trade.TimestampMs),
	}

	cusum, err := b.estimators.LoadCUSUM(ctx, string(trade.TokenID), "size")
	if err != nil {
		return model.FeatureVector{}, err
	}
	res := cusum.Update(trade.Size)
	if err := b.estimators.SaveCUSUM(ctx, string(trade.TokenID), "size", cusum); err != nil {
		return model.FeatureVector{}, err
	}
	fv.ChangePoint = changePointFeatureFrom(res)

	impact, err := b.computeImpact(ctx, trade)
	if err == nil {
		fv.HasImpact = true
		fv.Impact = impact
	}

	return fv, nil
}

// BuildForTick produces a feature vector triggered by a scheduled orderbook
// snapshot, with no trade-size/wallet/impact sub-features.
func (b *Builder) BuildForTick(ctx context.Context, token model.TokenId, condition model.ConditionId, nowMs int64, closeAt time.Time) (model.FeatureVector, error) {
	fv, err := b.base(ctx, token, condition, nowMs, closeAt)
	if err != nil {
		return model.FeatureVector{}, err
	}

	entry, ok, err := b.latest.Get(ctx, string(token))
	if err != nil {
		return model.FeatureVector{}, err
	}
	if ok {
		_, bps, _ := entry.Snapshot.Spread()
		cusum, err := b.estimators.LoadCUSUM(ctx, string(token), "spread")
		if err != nil {
			return model.FeatureVector{}, err
		}
		res := cusum.Update(bps)
		if err := b.estimators.SaveCUSUM(ctx, string(token), "spread", cusum); err != nil {
			return model.FeatureVector{}, err
		}
		fv.ChangePoint = changePointFeatureFrom(res)
	}

	hawkes, err := b.estimators.LoadHawkes(ctx, string(token))
	if err == nil {
		fv.Burst = model.BurstFeature{
			Intensity:     hawkes.GetCurrentIntensity(nowMs),
			BaselineRatio: safeDiv(hawkes.GetCurrentIntensity(nowMs), hawkes.Baseline),
			Score:         hawkes.GetBurstScore(nowMs),
		}
	}

	return fv, nil
}

func (b *Builder) base(ctx context.Context, token model.TokenId, condition model.ConditionId, nowMs int64, closeAt time.Time) (model.FeatureVector, error) {
	fv := model.FeatureVector{
		TokenID:     token,
		ConditionID: condition,
		TimestampMs: nowMs,
	}

	ttc := closeAt.Sub(time.UnixMilli(nowMs))
	fv.TimeToClose = ttc
	fv.RampMultiplier = rampMultiplier(ttc)
	ttcSeconds := ttc.Seconds()
	fv.InNoTradeZone = ttcSeconds > 0 && ttcSeconds <= noTradeZoneSeconds

	entry, ok, err := b.latest.Get(ctx, string(token))
	if err != nil {
		return model.FeatureVector{}, err
	}
	if ok {
		fv.Orderbook = orderbookFeatureFrom(entry)
	}

	fresh, err := b.staleness.CheckFreshness(ctx, string(token), string(condition))
	if err != nil {
		return model.FeatureVector{}, err
	}
	fv.DataComplete = ok && fresh.HasMarket
	fv.DataStale = !clock.IsTradeSafe(fresh.Orderbook)
	fv.BookAgeMs = fresh.OrderbookAgeMs
	if fresh.HasTrade {
		fv.HasTradeAge = true
		fv.TradeAgeMs = fresh.TradeAgeMs
	}

	return fv, nil
}

// rampMultiplier = min(maxMult, 1 + alpha*exp(-beta*ttc_hours)) (spec §4.3).
func rampMultiplier(ttc time.Duration) float64 {
	hours := ttc.Hours()
	if hours < 0 {
		hours = 0
	}
	m := 1 + rampAlpha*math.Exp(-rampBeta*hours)
	if m > rampMaxMul {
		return rampMaxMul
	}
	return m
}

func orderbookFeatureFrom(e BookEntry) model.OrderbookFeature {
	mid, _ := e.Snapshot.Mid()
	_, bps, _ := e.Snapshot.Spread()
	return model.OrderbookFeature{
		BidDepthUSD:        e.Metrics.BidDepth10Pct * mid,
		AskDepthUSD:        e.Metrics.AskDepth10Pct * mid,
		Imbalance:          e.Metrics.Imbalance,
		BookImbalanceScore: sigmoidLike(math.Abs(e.Metrics.Imbalance)),
		ThinOppositeScore:  clamp01(1 - e.Metrics.ThinSideRatio),
		SpreadBps:          bps,
		MidPrice:           mid,
	}
}

// sigmoidLike maps |imbalance| in [0,1] to [0,1] with accelerating slope
// near 1, used for bookImbalanceScore (spec §4.3).
func sigmoidLike(x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	return x / (x + (1 - x) * 0.5)
}

func dollarFloorAdjust(size, rawScore float64) float64 {
	switch {
	case size < tailFloorLow:
		return 0
	case size < tailFloorMid:
		return rawScore * 0.5
	case size < tailFloorHigh:
		return rawScore * 0.75
	default:
		return rawScore
	}
}

// tailScoreFromQuantile derives a [0,1] statistical tail score for x from the
// digest's quantile curve as a step function: 0 below p50, 0.3 from p50,
// 0.7 from p95, 0.9 from p99, and 1.0 from p999.
func tailScoreFromQuantile(d *estimator.Digest, x float64) float64 {
	q := d.StandardQuantiles()
	switch {
	case x >= q.P999:
		return 1.0
	case x >= q.P99:
		return 0.9
	case x >= q.P95:
		return 0.7
	case x >= q.P50:
		return 0.3
	default:
		return 0.0
	}
}

func walletFeatureFrom(w model.WalletProfile, at time.Time) model.WalletFeature {
	age := w.AgeDays(at)
	return model.WalletFeature{
		AgeDays:        age,
		WalletNewScore: walletNewScore(age),
		ActivityScore:  walletActivityScore(w),
		IsLowActivity:  w.IsLowActivity(),
		TradeCount:     w.TradeCount,
		MarketsTraded:  w.MarketsTraded,
		TotalVolume:    w.TotalVolume,
	}
}

// walletNewScore is a step function at {7, 30, 180} days (spec §4.3). An
// unknown age (-1) scores a neutral 0.5.
func walletNewScore(ageDays float64) float64 {
	switch {
	case ageDays < 0:
		return 0.5
	case ageDays < 7:
		return 1.0
	case ageDays < 30:
		return 0.7
	case ageDays < 180:
		return 0.3
	default:
		return 0.0
	}
}

func walletActivityScore(w model.WalletProfile) float64 {
	tradesGate := math.Max(0, 1-float64(w.TradeCount)/walletTradesNormalizer)
	marketsGate := math.Max(0, 1-float64(w.MarketsTraded)/walletMarketsNormalizer)
	volumeGate := math.Max(0, 1-w.TotalVolume/walletVolumeNormalizer)
	return 0.4*tradesGate + 0.3*marketsGate + 0.3*volumeGate
}

func changePointFeatureFrom(r estimator.Result) model.ChangePointFeature {
	score := 0.0
	if r.Detected {
		score = clamp01(r.Statistic / (estimator.DefaultCUSUMThreshold * 2))
	}
	return model.ChangePointFeature{
		Detected:         r.Detected,
		Statistic:        r.Statistic,
		ChangePointIndex: int(r.ChangePointIndex),
		HasChangePoint:   r.HasChangePoint,
		Score:            score,
	}
}

// computeImpact measures mid-drift at +30s/+60s using the best-effort rule
// from spec §9: nearest later snapshot within ±1s of the target offset.
func (b *Builder) computeImpact(ctx context.Context, trade model.Trade) (model.ImpactFeature, error) {
	entries, err := b.bookWindow.Since(ctx, string(trade.TokenID), trade.TimestampMs)
	if err != nil {
		return model.ImpactFeature{}, err
	}
	baseline, hasBaseline, err := b.latest.Get(ctx, string(trade.TokenID))
	if err != nil || !hasBaseline {
		return model.ImpactFeature{}, err
	}
	baseMid, ok := baseline.Snapshot.Mid()
	if !ok {
		return model.ImpactFeature{}, nil
	}

	var out model.ImpactFeature
	if mid, ok := nearestMidAt(entries, trade.TimestampMs+30000); ok {
		out.Drift30s = mid - baseMid
		out.Measured30s = true
	}
	if mid, ok := nearestMidAt(entries, trade.TimestampMs+60000); ok {
		out.Drift60s = mid - baseMid
		out.Measured60s = true
	}
	if out.Measured30s || out.Measured60s {
		maxAbs := math.Max(math.Abs(out.Drift30s), math.Abs(out.Drift60s))
		out.Score = clamp01(maxAbs * 20) // 5% drift saturates the score
	}
	return out, nil
}

const impactToleranceMs = 1000

func nearestMidAt(entries []BookEntry, targetMs int64) (float64, bool) {
	var (
		best    float64
		bestGap int64 = -1
		found   bool
	)
	for _, e := range entries {
		if e.Snapshot.TimestampMs < targetMs {
			continue
		}
		gap := e.Snapshot.TimestampMs - targetMs
		if gap > impactToleranceMs {
			continue
		}
		if !found || gap < bestGap {
			if mid, ok := e.Snapshot.Mid(); ok {
				best, bestGap, found = mid, gap, true
			}
		}
	}
	return best, found
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
