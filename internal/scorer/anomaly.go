// Package scorer transforms a feature vector into the anomaly, execution,
// and edge axes plus the ramped composite and signal-strength tag (spec §3,
// §4.4).
package scorer

import (
	"math"

	"github.com/marketwatch/anomaly-engine/internal/model"
)

// Anomaly thresholds (spec §4.4).
const (
	TriggeredThreshold = 0.65

	tripleSignalSizeTail      = 0.90
	tripleSignalBookImbalance = 0.70
	tripleSignalThinOpposite  = 0.70
	tripleSignalWalletNew     = 0.80
	tripleSignalWalletActive  = 0.70
)

// Anomaly computes the anomaly axis from a feature vector.
func Anomaly(fv model.FeatureVector) model.AnomalyScore {
	var (
		sizeTail, bookImbalance, thinOpposite, wallet, impact float64
		present                                                int
	)

	if fv.HasTradeSize {
		sizeTail = fv.TradeSize.SizeTailScore
		present++
	}

	// Book state is required upstream of scoring (freshness gate), so both
	// orderbook sub-components count as present whenever a book was loaded.
	bookPresent := fv.Orderbook.MidPrice > 0
	if bookPresent {
		bookImbalance = fv.Orderbook.BookImbalanceScore
		thinOpposite = fv.Orderbook.ThinOppositeScore
		present += 2
	}

	if fv.HasWallet {
		wallet = combinedWalletScore(fv.Wallet)
		present++
	}

	if fv.HasImpact && (fv.Impact.Measured30s || fv.Impact.Measured60s) {
		impact = fv.Impact.Score
		present++
	}

	orderbookComponent := 0.6*bookImbalance + 0.4*thinOpposite

	core := 0.35*sizeTail + 0.30*orderbookComponent + 0.20*wallet + 0.15*impact

	context := math.Max(fv.Burst.Score, fv.ChangePoint.Score)
	score := (core + 0.15*context) * fv.RampMultiplier
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}

	confidence := float64(present) / 5.0

	triggered := score >= TriggeredThreshold
	triple := sizeTail >= tripleSignalSizeTail &&
		bookImbalance >= tripleSignalBookImbalance &&
		thinOpposite >= tripleSignalThinOpposite &&
		(walletNewScore(fv) >= tripleSignalWalletNew || walletActivityScore(fv) >= tripleSignalWalletActive)

	return model.AnomalyScore{
		Score: score,
		Components: model.AnomalyComponents{
			SizeTail:      sizeTail,
			BookImbalance: bookImbalance,
			ThinOpposite:  thinOpposite,
			Orderbook:     orderbookComponent,
			Wallet:        wallet,
			Impact:        impact,
			Burst:         fv.Burst.Score,
			ChangePoint:   fv.ChangePoint.Score,
		},
		CoreScore:    clamp01(core),
		ContextScore: context,
		Confidence:   confidence,
		Triggered:    triggered,
		TripleSignal: triple,
	}
}

func combinedWalletScore(w model.WalletFeature) float64 {
	return math.Max(w.WalletNewScore, w.ActivityScore)
}

func walletNewScore(fv model.FeatureVector) float64 {
	if !fv.HasWallet {
		return 0
	}
	return fv.Wallet.WalletNewScore
}

func walletActivityScore(fv model.FeatureVector) float64 {
	if !fv.HasWallet {
		return 0
	}
	return fv.Wallet.ActivityScore
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
