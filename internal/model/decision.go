package model

import "time"

// Action is the decision's trading action.
type Action string

const (
	ActionNoTrade Action = "NO_TRADE"
	ActionHold    Action = "HOLD"
	ActionBuy     Action = "BUY"
	ActionSell    Action = "SELL"
)

// OutcomeSide is the binary outcome a decision targets.
type OutcomeSide string

const (
	OutcomeYes OutcomeSide = "YES"
	OutcomeNo  OutcomeSide = "NO"
)

// DecisionTTL is how long a decision stays valid after creation (spec §3).
const DecisionTTL = 30 * time.Second

// DecisionCacheTTL is how long an emitted decision is cached per token (spec §3).
const DecisionCacheTTL = 60 * time.Second

// Decision is the immutable output of the decision service (spec §3).
type Decision struct {
	ID          string
	TokenID     TokenId
	ConditionID ConditionId
	TimestampMs int64

	Action Action

	HasSide bool
	Side    OutcomeSide

	HasTargetPrice bool
	TargetPrice    float64
	HasLimitPrice  bool
	LimitPrice     float64

	HasSizing     bool
	TargetSizeUSD float64
	TargetShares  float64

	Scores   CompositeScore
	Features FeatureVector

	Approved          bool
	RejectionReason    string
	HasRejectionReason bool
	RiskChecksPassed   []string

	CreatedAt time.Time
	ExpiresAt time.Time
	PaperMode bool
}
