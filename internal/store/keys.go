package store

import "fmt"

// Keys centralizes construction of every key named in spec §6, so no caller
// inlines fmt.Sprintf against the keyspace directly (grounded on the teacher's
// habit of centralizing state shape once behind typed accessors, e.g.
// execution.Tracker / portfolio.Tracker).
var Keys = keyBuilder{}

type keyBuilder struct{}

func (keyBuilder) TradeWindow(token string) string   { return fmt.Sprintf("trades:%s:window:60m", token) }
func (keyBuilder) BookWindow(token string) string    { return fmt.Sprintf("book:%s:window:60m", token) }
func (keyBuilder) OrderbookState(token string) string { return fmt.Sprintf("orderbook:%s:state", token) }
func (keyBuilder) FeaturesLatest(token string) string { return fmt.Sprintf("features:%s:latest", token) }
func (keyBuilder) ScoresLatest(token string) string   { return fmt.Sprintf("scores:%s:latest", token) }

func (keyBuilder) MarketMetadata(condition string) string { return fmt.Sprintf("market:%s:metadata", condition) }
func (keyBuilder) TokenCondition(token string) string     { return fmt.Sprintf("token:%s:condition", token) }

func (keyBuilder) TradeSizeDigest(token string) string  { return fmt.Sprintf("digest:%s:trade_size", token) }
func (keyBuilder) HawkesState(token string) string      { return fmt.Sprintf("hawkes:%s:state", token) }
func (keyBuilder) CUSUMState(token, metric string) string {
	return fmt.Sprintf("cpd:%s:%s:state", token, metric)
}
func (keyBuilder) RollingStats(token string) string { return fmt.Sprintf("stats:%s:rolling:60m", token) }

func (keyBuilder) WalletEnriched(addr string) string { return fmt.Sprintf("wallet:%s:enriched", addr) }
func (keyBuilder) WalletFirstSeen(addr string) string { return fmt.Sprintf("wallet:%s:first_seen", addr) }
func (keyBuilder) WalletsSeen(token string) string    { return fmt.Sprintf("wallets:%s:60m", token) }

func (keyBuilder) Staleness(service, entity string) string {
	return fmt.Sprintf("staleness:%s:%s:last_update", service, entity)
}

func (keyBuilder) CircuitBreaker() string { return "risk:circuit_breaker" }
func (keyBuilder) ExposureTotal() string  { return "risk:exposure:total" }
func (keyBuilder) ExposureCurrent() string { return "risk:exposure:current" }
func (keyBuilder) PnlDailyCurrent() string { return "risk:pnl:daily:current" }
func (keyBuilder) PnlDailyFor(ymd string) string { return fmt.Sprintf("risk:pnl:daily:%s", ymd) }
func (keyBuilder) DrawdownCurrent() string       { return "risk:drawdown:current" }
func (keyBuilder) ConsecutiveLosses() string     { return "risk:consecutive_losses" }

func (keyBuilder) PaperBankroll() string { return "paper:bankroll" }
func (keyBuilder) Position(token string) string { return fmt.Sprintf("positions:%s", token) }
func (keyBuilder) DecisionPending(token string) string { return fmt.Sprintf("decisions:%s:pending", token) }
func (keyBuilder) DecisionCache(token string) string   { return fmt.Sprintf("decisions:%s:cache", token) }

func (keyBuilder) TrackedTokens() string { return "config:tracked_tokens" }
func (keyBuilder) TokenTracking(token string) string { return fmt.Sprintf("token:%s:tracking", token) }
func (keyBuilder) TradeSince(token string) string    { return fmt.Sprintf("trades:%s:since", token) }
