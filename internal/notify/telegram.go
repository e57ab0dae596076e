// Package notify delivers decision and risk alerts to a Telegram chat via
// the Bot API (spec §4.10: operators are notified of approved decisions,
// risk guard trips, and degraded/stale-feed conditions).
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/marketwatch/anomaly-engine/internal/telegramtmpl"
)

// Notifier sends alerts to a Telegram chat via the Bot API.
type Notifier struct {
	botToken   string
	chatID     string
	httpClient *http.Client
	enabled    bool
	baseURL    string // overridable for testing; defaults to Telegram API
}

// NewNotifier creates a Notifier. Notifications are enabled only when both
// botToken and chatID are non-empty.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken:   botToken,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		enabled:    botToken != "" && chatID != "",
	}
}

// Enabled reports whether the notifier is active.
func (n *Notifier) Enabled() bool { return n.enabled }

// Send posts a message to the configured Telegram chat.
func (n *Notifier) Send(ctx context.Context, msg string) error {
	if !n.enabled {
		return nil
	}

	endpoint := n.baseURL
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.botToken)
	}
	vals := url.Values{
		"chat_id":    {n.chatID},
		"text":       {msg},
		"parse_mode": {"HTML"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.URL.RawQuery = vals.Encode()

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Description string `json:"description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("notify: telegram %d: %s", resp.StatusCode, body.Description)
	}
	return nil
}

// NotifyDecision sends an alert for an approved trading decision.
func (n *Notifier) NotifyDecision(ctx context.Context, d telegramtmpl.DecisionData) error {
	return n.Send(ctx, telegramtmpl.RenderDecisionAlert(d))
}

// NotifyCircuitBreaker sends an alert when a risk guard trips the circuit
// breaker and halts new decisions.
func (n *Notifier) NotifyCircuitBreaker(ctx context.Context, reason string, cooldownRemaining time.Duration) error {
	msg := fmt.Sprintf(
		"<b>CIRCUIT BREAKER TRIPPED</b>\nReason: %s\nCooldown Remaining: %.0fs\nNew decisions are halted until cleared.",
		reason, cooldownRemaining.Seconds(),
	)
	return n.Send(ctx, msg)
}

// NotifyDrawdownHalt sends an alert when the drawdown guard halts trading.
func (n *Notifier) NotifyDrawdownHalt(ctx context.Context, drawdownPct, limitPct float64) error {
	msg := fmt.Sprintf(
		"<b>DRAWDOWN HALT</b>\nDrawdown: %.2f%%\nLimit: %.2f%%\nAll new decisions are blocked until the circuit breaker is reset.",
		drawdownPct, limitPct,
	)
	return n.Send(ctx, msg)
}

// NotifyStaleFeed sends an alert when a token's upstream feed goes stale
// past the threshold staleness tracking allows.
func (n *Notifier) NotifyStaleFeed(ctx context.Context, tokenID string, staleDuration time.Duration) error {
	msg := fmt.Sprintf(
		"<b>Feed Stale</b>\nToken: <code>%s</code>\nStale for: %.0fs\nDecisions on this token are suppressed.",
		tokenID, staleDuration.Seconds(),
	)
	return n.Send(ctx, msg)
}

// NotifyDailySummary sends a daily summary of decisions emitted and rejected.
func (n *Notifier) NotifyDailySummary(ctx context.Context, s telegramtmpl.DailySummaryData) error {
	return n.Send(ctx, telegramtmpl.RenderDailySummary(s))
}
