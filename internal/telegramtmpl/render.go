package telegramtmpl

import (
	"fmt"
	"strings"
)

// DecisionData describes the data required to render a decision alert.
type DecisionData struct {
	TokenID       string
	ConditionID   string
	Action        string
	Side          string
	HasSide       bool
	TargetPrice   float64
	LimitPrice    float64
	TargetSizeUSD float64
	PaperMode     bool
	Rationale     []string
}

// BuildDecisionData normalizes a decision into a renderable payload.
func BuildDecisionData(
	tokenID, conditionID, action, side string,
	hasSide bool,
	targetPrice, limitPrice, targetSizeUSD float64,
	paperMode bool,
	rationale []string,
) DecisionData {
	return DecisionData{
		TokenID:       tokenID,
		ConditionID:   conditionID,
		Action:        strings.ToUpper(strings.TrimSpace(action)),
		Side:          strings.ToUpper(strings.TrimSpace(side)),
		HasSide:       hasSide,
		TargetPrice:   targetPrice,
		LimitPrice:    limitPrice,
		TargetSizeUSD: targetSizeUSD,
		PaperMode:     paperMode,
		Rationale:     rationale,
	}
}

// RenderDecisionAlert renders a decision alert in Telegram HTML parse mode.
func RenderDecisionAlert(d DecisionData) string {
	var b strings.Builder
	mode := "LIVE"
	if d.PaperMode {
		mode = "PAPER"
	}
	b.WriteString(fmt.Sprintf("<b>Decision: %s</b> [%s]\n", d.Action, mode))
	b.WriteString(fmt.Sprintf("Token: <code>%s</code>\nCondition: <code>%s</code>\n", d.TokenID, d.ConditionID))
	if d.HasSide {
		b.WriteString(fmt.Sprintf("Side: %s\nTarget: %.4f  Limit: %.4f\nSize: %.2f USDC\n", d.Side, d.TargetPrice, d.LimitPrice, d.TargetSizeUSD))
	}
	if len(d.Rationale) > 0 {
		b.WriteString("\n<b>Rationale</b>\n")
		for _, r := range d.Rationale {
			b.WriteString("- " + r + "\n")
		}
	}
	return strings.TrimSpace(b.String())
}

// DailySummaryData describes the data required to render the daily operator summary.
type DailySummaryData struct {
	PaperMode           bool
	Approved            int
	Rejected            int
	CircuitBreakerTrips int
	NetExposureUSD      float64
	Actions             []string
	RiskHints           []string
}

// BuildDailySummaryData normalizes daily summary inputs into a renderable payload.
func BuildDailySummaryData(paperMode bool, approved, rejected, circuitBreakerTrips int, netExposureUSD float64, actions, riskHints []string) DailySummaryData {
	if len(actions) > 3 {
		actions = actions[:3]
	}
	return DailySummaryData{
		PaperMode:           paperMode,
		Approved:            approved,
		Rejected:            rejected,
		CircuitBreakerTrips: circuitBreakerTrips,
		NetExposureUSD:      netExposureUSD,
		Actions:             actions,
		RiskHints:           riskHints,
	}
}

// RenderDailySummary renders the daily operator summary in Telegram HTML parse mode.
func RenderDailySummary(d DailySummaryData) string {
	var b strings.Builder
	mode := "LIVE"
	if d.PaperMode {
		mode = "PAPER"
	}
	b.WriteString(fmt.Sprintf("<b>Daily Summary</b> [%s]\n", mode))
	b.WriteString(fmt.Sprintf("Approved: %d\nRejected: %d\nCircuit Breaker Trips: %d\nNet Exposure: %.2f USDC\n",
		d.Approved, d.Rejected, d.CircuitBreakerTrips, d.NetExposureUSD))
	if len(d.Actions) > 0 {
		b.WriteString("\n<b>Top Actions</b>\n")
		for _, a := range d.Actions {
			b.WriteString("- " + a + "\n")
		}
	}
	if len(d.RiskHints) > 0 {
		b.WriteString("\n<b>Risk Hints</b>\n")
		for _, h := range d.RiskHints {
			b.WriteString("- " + h + "\n")
		}
	}
	return strings.TrimSpace(b.String())
}
