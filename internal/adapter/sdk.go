package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net"

	"github.com/GoPolymarket/polymarket-go-sdk/pkg/clob"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/clob/clobtypes"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/gamma"

	"github.com/marketwatch/anomaly-engine/internal/model"
)

// GammaMarketsFeed adapts gamma.Client to MarketsFeed.
type GammaMarketsFeed struct {
	client gamma.Client
}

func NewGammaMarketsFeed(client gamma.Client) *GammaMarketsFeed {
	return &GammaMarketsFeed{client: client}
}

func (f *GammaMarketsFeed) Markets(ctx context.Context, offset, limit int, activeOnly bool) ([]model.MarketDTO, error) {
	closed := false
	markets, err := f.client.Markets(ctx, &gamma.MarketsRequest{
		Active: &activeOnly,
		Closed: &closed,
		Order:  "volume",
		Limit:  intPtr(limit),
		Offset: intPtr(offset),
	})
	if err != nil {
		return nil, wrapTransport(ctx, "gamma.Markets", err)
	}

	out := make([]model.MarketDTO, 0, len(markets))
	for _, m := range markets {
		tokenIDs := make([]string, 0, 2)
		names := make([]string, 0, 2)
		for _, tok := range m.ParsedTokens() {
			tokenIDs = append(tokenIDs, tok.TokenID)
			names = append(names, tok.Outcome)
		}
		if len(tokenIDs) != 2 {
			continue // log-drop a single malformed market, keep paginating
		}
		tokenIDsJSON, _ := json.Marshal(tokenIDs)
		outcomesJSON, _ := json.Marshal(names)
		out = append(out, model.MarketDTO{
			ConditionID:  m.ConditionID,
			Question:     m.Question,
			EndDate:      m.EndDate,
			EndDateIso:   m.EndDate,
			Active:       m.Active,
			Closed:       m.Closed,
			Volume:       m.Volume24hr,
			Liquidity:    m.Liquidity,
			Outcomes:     outcomesJSON,
			ClobTokenIds: tokenIDsJSON,
			Tags:         m.Tags,
			Category:     m.Category,
		})
	}
	return out, nil
}

func intPtr(v int) *int { return &v }

// ClobOrderbookFeed adapts clob.Client to OrderbookFeed.
type ClobOrderbookFeed struct {
	client clob.Client
}

func NewClobOrderbookFeed(client clob.Client) *ClobOrderbookFeed {
	return &ClobOrderbookFeed{client: client}
}

func (f *ClobOrderbookFeed) Orderbook(ctx context.Context, assetID string) (model.OrderbookDTO, error) {
	book, err := f.client.OrderBook(ctx, &clobtypes.BookRequest{TokenID: assetID})
	if err != nil {
		return model.OrderbookDTO{}, wrapTransport(ctx, "clob.OrderBook", err)
	}
	return model.OrderbookDTO{
		AssetID: assetID,
		Bids:    convertLevels(book.Bids),
		Asks:    convertLevels(book.Asks),
		Hash:    book.Hash,
	}, nil
}

func convertLevels(levels []clobtypes.PriceLevel) []model.OrderbookLevelDTO {
	out := make([]model.OrderbookLevelDTO, 0, len(levels))
	for _, l := range levels {
		out = append(out, model.OrderbookLevelDTO{Price: l.Price, Size: l.Size})
	}
	return out
}

// ClobTradeFeed adapts clob.Client's public trade history to TradeFeed.
type ClobTradeFeed struct {
	client clob.Client
}

func NewClobTradeFeed(client clob.Client) *ClobTradeFeed {
	return &ClobTradeFeed{client: client}
}

func (f *ClobTradeFeed) RecentTrades(ctx context.Context, assetID string, sinceUnixSec int64) ([]model.TradeDTO, error) {
	trades, err := f.client.Trades(ctx, &clobtypes.TradesRequest{Market: assetID})
	if err != nil {
		return nil, wrapTransport(ctx, "clob.Trades", err)
	}

	out := make([]model.TradeDTO, 0, len(trades))
	for _, tr := range trades {
		if tr.Timestamp <= sinceUnixSec {
			continue
		}
		out = append(out, model.TradeDTO{
			ProxyWallet:     tr.ProxyWallet,
			Side:            tr.Side,
			Asset:           assetID,
			ConditionID:     tr.ConditionID,
			Size:            tr.Size,
			Price:           tr.Price,
			TimestampSec:    tr.Timestamp,
			TransactionHash: tr.TransactionHash,
		})
	}
	return out, nil
}

// wrapTransport classifies an SDK-level error as a TimeoutError or a
// TransportError (spec §7). Context deadline exceeded (from the per-call
// timeout the caller sets up) and net.Error.Timeout() both count as timeouts.
func wrapTransport(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Op: op, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Op: op, Err: err}
	}

	var statusErr interface{ StatusCode() int }
	if errors.As(err, &statusErr) {
		return &TransportError{Op: op, StatusCode: statusErr.StatusCode(), HasStatus: true, Err: err}
	}
	return &TransportError{Op: op, Err: err}
}
