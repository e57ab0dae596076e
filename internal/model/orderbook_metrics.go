package model

import "math"

// ThinSide tags which side of the book is materially thinner.
type ThinSide string

const (
	ThinBid      ThinSide = "bid"
	ThinAsk      ThinSide = "ask"
	ThinBalanced ThinSide = "balanced"
)

// OrderbookMetrics are the derived depth/imbalance figures for a snapshot (spec §3).
type OrderbookMetrics struct {
	BidDepth5Pct   float64
	AskDepth5Pct   float64
	BidDepth10Pct  float64
	AskDepth10Pct  float64
	BidDepthTop5   float64
	AskDepthTop5   float64
	Imbalance      float64 // (bidDepth - askDepth) / (bidDepth + askDepth), within 10%, in [-1,1]
	ThinSide       ThinSide
	ThinSideRatio  float64 // thin/thick, within 10% depth
	DepthAdequate  bool    // both sides >= $100 within 10%
}

// thinSideMargin is the |imbalance| threshold above which a side is called thin;
// at or below it the book is treated as balanced (spec §9 open question).
const thinSideMargin = 0.3

const depthAdequateFloorUSD = 100.0

// ComputeMetrics derives OrderbookMetrics from a normalized snapshot.
func ComputeMetrics(s OrderbookSnapshot) OrderbookMetrics {
	mid, hasMid := s.Mid()

	var m OrderbookMetrics
	if hasMid && mid > 0 {
		m.BidDepth5Pct = depthWithinPct(s.Bids, mid, 0.05, true)
		m.AskDepth5Pct = depthWithinPct(s.Asks, mid, 0.05, false)
		m.BidDepth10Pct = depthWithinPct(s.Bids, mid, 0.10, true)
		m.AskDepth10Pct = depthWithinPct(s.Asks, mid, 0.10, false)
	}
	m.BidDepthTop5 = depthTopN(s.Bids, 5)
	m.AskDepthTop5 = depthTopN(s.Asks, 5)

	total := m.BidDepth10Pct + m.AskDepth10Pct
	if total > 0 {
		m.Imbalance = (m.BidDepth10Pct - m.AskDepth10Pct) / total
	}

	switch {
	case math.Abs(m.Imbalance) <= thinSideMargin:
		m.ThinSide = ThinBalanced
		m.ThinSideRatio = 1
	case m.Imbalance > thinSideMargin:
		// bid side is relatively thicker => ask is thin
		m.ThinSide = ThinAsk
		m.ThinSideRatio = safeRatio(m.AskDepth10Pct, m.BidDepth10Pct)
	default:
		m.ThinSide = ThinBid
		m.ThinSideRatio = safeRatio(m.BidDepth10Pct, m.AskDepth10Pct)
	}

	m.DepthAdequate = m.BidDepth10Pct*mid >= depthAdequateFloorUSD && m.AskDepth10Pct*mid >= depthAdequateFloorUSD

	return m
}

func depthWithinPct(levels []Level, mid, pct float64, isBid bool) float64 {
	bound := mid * (1 + pct)
	if isBid {
		bound = mid * (1 - pct)
	}
	var total float64
	for _, l := range levels {
		if isBid {
			if l.Price < bound {
				break // bids sorted desc; once below bound the rest are further below
			}
		} else {
			if l.Price > bound {
				break // asks sorted asc
			}
		}
		total += l.Size
	}
	return total
}

func depthTopN(levels []Level, n int) float64 {
	var total float64
	for i := 0; i < n && i < len(levels); i++ {
		total += levels[i].Size
	}
	return total
}

func safeRatio(numerator, denominator float64) float64 {
	if denominator <= 0 {
		if numerator <= 0 {
			return 1
		}
		return 0
	}
	return numerator / denominator
}
