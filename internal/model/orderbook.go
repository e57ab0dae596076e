package model

import "sort"

// Level is a single price/size pair on one side of the book.
type Level struct {
	Price float64
	Size  float64
}

// OrderbookSnapshot is the canonical normalized book (spec §3).
type OrderbookSnapshot struct {
	TokenID     TokenId
	TimestampMs int64
	Bids        []Level // sorted desc by price, size > 0 only
	Asks        []Level // sorted asc by price, size > 0 only
}

// NormalizeLevels filters zero/negative-size levels and sorts bids desc / asks asc.
func NormalizeLevels(bids, asks []Level) (outBids, outAsks []Level) {
	outBids = filterPositive(bids)
	outAsks = filterPositive(asks)
	sort.Slice(outBids, func(i, j int) bool { return outBids[i].Price > outBids[j].Price })
	sort.Slice(outAsks, func(i, j int) bool { return outAsks[i].Price < outAsks[j].Price })
	return outBids, outAsks
}

func filterPositive(levels []Level) []Level {
	out := make([]Level, 0, len(levels))
	for _, l := range levels {
		if l.Size > 0 {
			out = append(out, l)
		}
	}
	return out
}

// BestBid returns the top bid level, if any.
func (s OrderbookSnapshot) BestBid() (Level, bool) {
	if len(s.Bids) == 0 {
		return Level{}, false
	}
	return s.Bids[0], true
}

// BestAsk returns the top ask level, if any.
func (s OrderbookSnapshot) BestAsk() (Level, bool) {
	if len(s.Asks) == 0 {
		return Level{}, false
	}
	return s.Asks[0], true
}

// Mid returns the midpoint price when both sides are present.
func (s OrderbookSnapshot) Mid() (float64, bool) {
	bb, okB := s.BestBid()
	ba, okA := s.BestAsk()
	if !okB || !okA {
		return 0, false
	}
	return (bb.Price + ba.Price) / 2, true
}

// Spread returns the absolute and bps spread when both sides are present.
func (s OrderbookSnapshot) Spread() (abs float64, bps float64, ok bool) {
	bb, okB := s.BestBid()
	ba, okA := s.BestAsk()
	if !okB || !okA {
		return 0, 0, false
	}
	mid, _ := s.Mid()
	abs = ba.Price - bb.Price
	if mid > 0 {
		bps = abs / mid * 10000
	}
	return abs, bps, true
}
