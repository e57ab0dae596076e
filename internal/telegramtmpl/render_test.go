package telegramtmpl

import (
	"strings"
	"testing"
)

func TestRenderDecisionAlert(t *testing.T) {
	data := BuildDecisionData(
		"tok1", "cond1", "buy", "yes", true,
		0.55, 0.54, 50.0, true,
		BuildRationaleLines(DecisionAdviceInput{
			AnomalyScore:     0.9,
			ExecutionScore:   0.8,
			EdgeScore:        0.5,
			Imbalance:        0.5,
			SpreadBps:        150,
			RiskChecksPassed: []string{"no_trade_zone", "spread_too_wide"},
		}),
	)
	msg := RenderDecisionAlert(data)

	if !strings.Contains(msg, "Decision: BUY") {
		t.Fatalf("expected action in title, got %q", msg)
	}
	if !strings.Contains(msg, "[PAPER]") {
		t.Fatalf("expected paper mode tag, got %q", msg)
	}
	if !strings.Contains(msg, "Side: YES") {
		t.Fatalf("expected uppercased side, got %q", msg)
	}
	if !strings.Contains(msg, "Rationale") {
		t.Fatalf("expected rationale section, got %q", msg)
	}
	if !strings.Contains(msg, "no_trade_zone") {
		t.Fatalf("expected risk checks listed, got %q", msg)
	}
}

func TestRenderDecisionAlertWithoutSide(t *testing.T) {
	data := BuildDecisionData("tok1", "cond1", "no_trade", "", false, 0, 0, 0, false, nil)
	msg := RenderDecisionAlert(data)
	if strings.Contains(msg, "Side:") {
		t.Fatalf("expected no side section for a no-trade decision, got %q", msg)
	}
	if !strings.Contains(msg, "[LIVE]") {
		t.Fatalf("expected live mode tag, got %q", msg)
	}
}

func TestRenderDailySummary(t *testing.T) {
	data := BuildDailySummaryData(
		true, 5, 12, 1, -25.5,
		[]string{"Review the 1 circuit breaker trip(s) before resuming."},
		[]string{"Daily loss usage is high (85.0%)."},
	)
	msg := RenderDailySummary(data)

	if !strings.Contains(msg, "Daily Summary") {
		t.Fatalf("expected summary title, got %q", msg)
	}
	if !strings.Contains(msg, "Approved: 5") || !strings.Contains(msg, "Rejected: 12") {
		t.Fatalf("expected approved/rejected counts, got %q", msg)
	}
	if !strings.Contains(msg, "Top Actions") {
		t.Fatalf("expected actions section, got %q", msg)
	}
	if !strings.Contains(msg, "Risk Hints") {
		t.Fatalf("expected risk hints section, got %q", msg)
	}
}

func TestBuildDailySummaryDataLimitsActions(t *testing.T) {
	data := BuildDailySummaryData(false, 0, 0, 0, 0, []string{"a1", "a2", "a3", "a4"}, nil)
	if len(data.Actions) != 3 {
		t.Fatalf("expected actions limited to 3, got %d", len(data.Actions))
	}
}
