package model

import "fmt"

// Side is a trade direction.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Trade is the canonical normalized trade record (spec §3).
type Trade struct {
	TradeID         string
	TokenID         TokenId
	ConditionID     ConditionId
	TimestampMs     int64
	Side            Side
	Price           float64
	Size            float64
	MakerAddress    Address
	TakerAddress    Address
	FeeRateBps      float64
	HasFeeRate      bool
	TransactionHash TxHash
	HasTxHash       bool
}

// Valid checks the invariants a canonical trade must hold.
func (t Trade) Valid() error {
	if t.TokenID.Empty() {
		return invalid("tokenId", "empty")
	}
	if t.Side != Buy && t.Side != Sell {
		return invalid("side", "must be BUY or SELL")
	}
	if t.Price < 0 || t.Price > 1 {
		return invalid("price", "must be within [0,1]")
	}
	if t.Size <= 0 {
		return invalid("size", "must be > 0")
	}
	return nil
}

// DeriveTradeID computes the trade id used when the upstream hash is absent:
// "{conditionId}-{unixSec}-{takerAddress}" (spec §3).
func DeriveTradeID(conditionID ConditionId, timestampMs int64, taker Address) string {
	return fmt.Sprintf("%s-%d-%s", conditionID, timestampMs/1000, taker)
}
