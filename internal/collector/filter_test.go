package collector

import (
	"testing"
	"time"

	"github.com/marketwatch/anomaly-engine/internal/model"
)

func sampleMarket() model.Market {
	return model.Market{
		ConditionID: "cond1",
		Question:    "Will the Fed cut rates in March?",
		EndDateIso:  time.Now().Add(24 * time.Hour),
		Active:      true,
		Volume:      5000,
		Liquidity:   2000,
		Outcomes:    [2]model.Outcome{{Name: "Yes", TokenID: "tok1"}, {Name: "No", TokenID: "tok2"}},
		Tags:        []string{"macro", "fed"},
		Category:    "Economics",
	}
}

func TestDiscoveryFilterZeroValueAcceptsEverything(t *testing.T) {
	pred := DiscoveryFilter(FilterConfig{})
	if !pred(sampleMarket()) {
		t.Fatal("expected zero-value filter to accept")
	}
}

func TestDiscoveryFilterRejectsBelowLiquidityFloor(t *testing.T) {
	pred := DiscoveryFilter(FilterConfig{MinLiquidity: 10000})
	if pred(sampleMarket()) {
		t.Fatal("expected rejection below liquidity floor")
	}
}

func TestDiscoveryFilterRejectsBelowVolumeFloor(t *testing.T) {
	pred := DiscoveryFilter(FilterConfig{MinVolume24hr: 10000})
	if pred(sampleMarket()) {
		t.Fatal("expected rejection below volume floor")
	}
}

func TestDiscoveryFilterCategoryAllowlist(t *testing.T) {
	pred := DiscoveryFilter(FilterConfig{CategoryAllow: []string{"Sports"}})
	if pred(sampleMarket()) {
		t.Fatal("expected rejection outside category allowlist")
	}
	pred = DiscoveryFilter(FilterConfig{CategoryAllow: []string{"economics"}})
	if !pred(sampleMarket()) {
		t.Fatal("expected acceptance for case-insensitive category match")
	}
}

func TestDiscoveryFilterTagDenylist(t *testing.T) {
	pred := DiscoveryFilter(FilterConfig{TagDeny: []string{"FED"}})
	if pred(sampleMarket()) {
		t.Fatal("expected rejection for denied tag")
	}
}

func TestDiscoveryFilterQuestionDenyWordBoundary(t *testing.T) {
	pred := DiscoveryFilter(FilterConfig{QuestionDeny: []string{"cut"}})
	if pred(sampleMarket()) {
		t.Fatal("expected rejection for denied word in question")
	}

	// "cutting" should not match the word-boundary pattern for "cut".
	m := sampleMarket()
	m.Question = "Will the Fed start cutting rates in March?"
	if !pred(m) {
		t.Fatal("expected word-boundary match to avoid rejecting substrings")
	}
}
