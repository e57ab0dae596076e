package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MarketDTO mirrors the markets-feed page item shape (spec §6). Tags/events
// are permissive because upstream JSON frequently omits optional fields.
type MarketDTO struct {
	ConditionID    string          `json:"conditionId"`
	Question       string          `json:"question"`
	EndDate        string          `json:"endDate"`
	EndDateIso     string          `json:"endDateIso"`
	Active         bool            `json:"active"`
	Closed         bool            `json:"closed"`
	Archived       bool            `json:"archived"`
	Volume         string          `json:"volume"`
	Liquidity      string          `json:"liquidity"`
	Outcomes       json.RawMessage `json:"outcomes"`       // JSON array of 2 names
	OutcomePrices  json.RawMessage `json:"outcomePrices"`  // JSON array of 2 "0".."1"
	ClobTokenIds   json.RawMessage `json:"clobTokenIds"`   // JSON array of 2 ids
	NegRisk        bool            `json:"negRisk"`
	Tags           []string        `json:"tags"`
	Category       string          `json:"category"`
}

// ParseMarket converts a MarketDTO into a canonical Market, validating the
// two-outcome invariant. Returns a *ValidationError (never panics) on
// malformed input so the caller can log-and-drop.
func ParseMarket(dto MarketDTO) (Market, error) {
	var names [2]string
	if err := unmarshalPair(dto.Outcomes, &names); err != nil {
		return Market{}, invalid("outcomes", err.Error())
	}
	var tokenIDs [2]string
	if err := unmarshalPair(dto.ClobTokenIds, &tokenIDs); err != nil {
		return Market{}, invalid("clobTokenIds", err.Error())
	}

	endDate, ok := parseMarketTime(dto.EndDateIso, dto.EndDate)
	if !ok {
		return Market{}, invalid("endDate", "unparseable timestamp")
	}

	vol, _ := decimal.NewFromString(strings.TrimSpace(dto.Volume))
	liq, _ := decimal.NewFromString(strings.TrimSpace(dto.Liquidity))

	m := Market{
		ConditionID: ConditionId(strings.TrimSpace(dto.ConditionID)),
		Question:    dto.Question,
		EndDateIso:  endDate,
		Active:      dto.Active,
		Closed:      dto.Closed || dto.Archived,
		Volume:      vol.InexactFloat64(),
		Liquidity:   liq.InexactFloat64(),
		Outcomes: [2]Outcome{
			{Name: names[0], TokenID: TokenId(tokenIDs[0])},
			{Name: names[1], TokenID: TokenId(tokenIDs[1])},
		},
		Tags:     dto.Tags,
		Category: dto.Category,
	}
	if err := m.Valid(); err != nil {
		return Market{}, err
	}
	return m, nil
}

func parseMarketTime(primary, fallback string) (time.Time, bool) {
	for _, s := range []string{primary, fallback} {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func unmarshalPair(raw json.RawMessage, out *[2]string) error {
	if len(raw) == 0 {
		return errEmptyPair
	}
	var arr []string
	if err := json.Unmarshal(raw, &arr); err != nil {
		// Upstream sometimes double-encodes these fields as a JSON string
		// containing JSON; retry once.
		var inner string
		if err2 := json.Unmarshal(raw, &inner); err2 != nil {
			return err
		}
		if err := json.Unmarshal([]byte(inner), &arr); err != nil {
			return err
		}
	}
	if len(arr) != 2 {
		return errEmptyPair
	}
	out[0], out[1] = arr[0], arr[1]
	return nil
}

var errEmptyPair = invalid("pair", "expected exactly 2 elements")

// OrderbookLevelDTO mirrors one {price,size} string-encoded level (spec §6).
type OrderbookLevelDTO struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// OrderbookDTO mirrors the orderbook-feed shape (spec §6).
type OrderbookDTO struct {
	Market    string              `json:"market"`
	AssetID   string              `json:"asset_id"`
	Bids      []OrderbookLevelDTO `json:"bids"`
	Asks      []OrderbookLevelDTO `json:"asks"`
	Hash      string              `json:"hash"`
	Timestamp string              `json:"timestamp"`
}

// ParseOrderbook converts an OrderbookDTO into a canonical, normalized
// OrderbookSnapshot (bids desc, asks asc, zero-size levels filtered).
func ParseOrderbook(dto OrderbookDTO, nowMs int64) (OrderbookSnapshot, error) {
	if strings.TrimSpace(dto.AssetID) == "" {
		return OrderbookSnapshot{}, invalid("asset_id", "empty")
	}
	bids := parseLevels(dto.Bids)
	asks := parseLevels(dto.Asks)
	nb, na := NormalizeLevels(bids, asks)

	ts := nowMs
	if dto.Timestamp != "" {
		if v, err := decimal.NewFromString(strings.TrimSpace(dto.Timestamp)); err == nil {
			ts = v.IntPart()
		}
	}

	return OrderbookSnapshot{
		TokenID:     TokenId(dto.AssetID),
		TimestampMs: ts,
		Bids:        nb,
		Asks:        na,
	}, nil
}

func parseLevels(raw []OrderbookLevelDTO) []Level {
	out := make([]Level, 0, len(raw))
	for _, r := range raw {
		p, errP := decimal.NewFromString(strings.TrimSpace(r.Price))
		s, errS := decimal.NewFromString(strings.TrimSpace(r.Size))
		if errP != nil || errS != nil {
			continue // log-drop a single malformed level, keep the rest
		}
		out = append(out, Level{Price: p.InexactFloat64(), Size: s.InexactFloat64()})
	}
	return out
}

// TradeDTO mirrors the public trade-feed shape (spec §6). Timestamp is seconds.
type TradeDTO struct {
	ProxyWallet     string `json:"proxyWallet"`
	Side            string `json:"side"`
	Asset           string `json:"asset"`
	ConditionID     string `json:"conditionId"`
	Size            string `json:"size"`
	Price           string `json:"price"`
	TimestampSec    int64  `json:"timestamp"`
	TransactionHash string `json:"transactionHash"`
}

// ParseTrade converts a TradeDTO into a canonical Trade, deriving a trade id
// from the tx hash when present, else from conditionId/timestamp/taker (spec §3).
func ParseTrade(dto TradeDTO) (Trade, error) {
	if strings.TrimSpace(dto.Asset) == "" {
		return Trade{}, invalid("asset", "empty")
	}
	side := Side(strings.ToUpper(strings.TrimSpace(dto.Side)))
	if side != Buy && side != Sell {
		return Trade{}, invalid("side", "must be BUY or SELL")
	}
	price, errP := decimal.NewFromString(strings.TrimSpace(dto.Price))
	size, errS := decimal.NewFromString(strings.TrimSpace(dto.Size))
	if errP != nil || errS != nil {
		return Trade{}, invalid("price/size", "unparseable decimal")
	}

	taker, okTaker := NewAddress(dto.ProxyWallet)
	if !okTaker {
		return Trade{}, invalid("proxyWallet", "invalid address")
	}

	timestampMs := dto.TimestampSec * 1000

	var (
		tradeID string
		txHash  TxHash
		hasTx   bool
	)
	if h, ok := NewTxHash(dto.TransactionHash); ok {
		txHash, hasTx = h, true
		tradeID = string(h)
	} else {
		tradeID = DeriveTradeID(ConditionId(dto.ConditionID), timestampMs, taker)
	}

	t := Trade{
		TradeID:         tradeID,
		TokenID:         TokenId(dto.Asset),
		ConditionID:     ConditionId(dto.ConditionID),
		TimestampMs:     timestampMs,
		Side:            side,
		Price:           price.InexactFloat64(),
		Size:            size.InexactFloat64(),
		TakerAddress:    taker,
		TransactionHash: txHash,
		HasTxHash:       hasTx,
	}
	if err := t.Valid(); err != nil {
		return Trade{}, err
	}
	return t, nil
}
