// Package telegramtmpl builds the plain-data inputs and renders the HTML
// message bodies notify.Notifier sends (spec §4.10), kept separate from the
// Telegram transport so formatting is covered directly by tests.
package telegramtmpl

import (
	"fmt"
	"strings"
	"time"
)

// DecisionAdviceInput describes the facts behind one approved decision that
// are worth surfacing beyond the raw numbers.
type DecisionAdviceInput struct {
	AnomalyScore     float64
	ExecutionScore   float64
	EdgeScore        float64
	Imbalance        float64
	SpreadBps        float64
	RiskChecksPassed []string
}

// BuildRationaleLines summarizes why a decision cleared every gate, in the
// order a reviewer would check them: anomaly first, then execution quality,
// then edge, then the risk checks it passed.
func BuildRationaleLines(in DecisionAdviceInput) []string {
	lines := make([]string, 0, 3)
	lines = append(lines, fmt.Sprintf("Anomaly %.2f / Execution %.2f / Edge %.2f", in.AnomalyScore, in.ExecutionScore, in.EdgeScore))
	lines = append(lines, fmt.Sprintf("Book imbalance %.2f, spread %.0fbps", in.Imbalance, in.SpreadBps))
	if len(in.RiskChecksPassed) > 0 {
		lines = append(lines, "Risk checks passed: "+strings.Join(in.RiskChecksPassed, ", "))
	}
	return lines
}

// DailyAdviceInput describes inputs for the daily operator summary.
type DailyAdviceInput struct {
	PaperMode           bool
	Approved            int
	Rejected            int
	TopRejectionReasons []string
	CircuitBreakerTrips int
	NetExposureUSD      float64
	RiskUsagePct        float64
	CooldownRemaining   time.Duration
}

// BuildDailyActions generates the prioritized list of things an operator
// should check before the next trading day.
func BuildDailyActions(in DailyAdviceInput) []string {
	actions := make([]string, 0, 4)
	if in.CircuitBreakerTrips > 0 {
		actions = append(actions, fmt.Sprintf("Review the %d circuit breaker trip(s) before resuming.", in.CircuitBreakerTrips))
	}
	if in.Approved == 0 && in.Rejected > 0 {
		actions = append(actions, "No decisions cleared all gates today; check whether thresholds are too strict.")
	}
	if len(in.TopRejectionReasons) > 0 {
		actions = append(actions, "Most common rejection reason: "+in.TopRejectionReasons[0]+".")
	}
	if len(actions) == 0 {
		actions = append(actions, "No action needed; pipeline ran within expected bounds.")
	}
	if len(actions) > 3 {
		actions = actions[:3]
	}
	return actions
}

// BuildRiskHints generates the risk hints shown in the daily summary.
func BuildRiskHints(in DailyAdviceInput) []string {
	hints := make([]string, 0, 4)
	if in.RiskUsagePct >= 80 {
		hints = append(hints, fmt.Sprintf("Daily loss usage is high (%.1f%%).", in.RiskUsagePct))
	}
	if in.CircuitBreakerTrips > 0 {
		hints = append(hints, fmt.Sprintf("Circuit breaker tripped %d time(s).", in.CircuitBreakerTrips))
	}
	if in.CooldownRemaining > 0 {
		hints = append(hints, fmt.Sprintf("Cooldown remaining: %.0fs.", in.CooldownRemaining.Seconds()))
	}
	if in.NetExposureUSD < 0 {
		hints = append(hints, fmt.Sprintf("Net exposure negative: %.2f USDC.", in.NetExposureUSD))
	}
	return hints
}
