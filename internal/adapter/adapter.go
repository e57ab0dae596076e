// Package adapter defines the upstream feed interfaces by semantics, not
// transport (spec §6): a page-based markets feed, an orderbook snapshot
// feed, a public trade feed, an optional request signer for authenticated
// venue calls, and a block-explorer lookup used by the wallet enricher.
// Concrete implementations wrap the same polymarket-go-sdk clients the
// teacher wires into internal/app.App.
package adapter

import (
	"context"
	"strconv"
	"time"

	"github.com/marketwatch/anomaly-engine/internal/model"
)

// DefaultCallTimeout is the per-HTTP-call timeout (spec §5: "default 30s").
const DefaultCallTimeout = 30 * time.Second

// MarketsFeed lists markets a page at a time (spec §6: limit 100, safety
// cap 5000 total items across pages).
type MarketsFeed interface {
	Markets(ctx context.Context, offset, limit int, activeOnly bool) ([]model.MarketDTO, error)
}

// OrderbookFeed fetches one token's current book snapshot.
type OrderbookFeed interface {
	Orderbook(ctx context.Context, assetID string) (model.OrderbookDTO, error)
}

// TradeFeed fetches trades for a token newer than sinceUnixSec (spec §6:
// public trade feed, no auth).
type TradeFeed interface {
	RecentTrades(ctx context.Context, assetID string, sinceUnixSec int64) ([]model.TradeDTO, error)
}

// SignableRequest is one outbound authenticated venue call (spec §6).
type SignableRequest struct {
	Method      string
	PathAndQuery string
	Body        string // raw JSON body, empty for bodyless requests
}

// SignedHeaders are the venue's required authentication headers.
type SignedHeaders struct {
	Address    string
	Signature  string
	Timestamp  string
	APIKey     string
	Passphrase string
}

// RequestSigner HMAC-signs authenticated venue requests (spec §6): signs
// over timestamp(sec, clock skew -5s) || method || pathWithQuery || body
// using a base64 (URL-safe tolerant) secret, producing a URL-safe base64
// signature. Only exercised when credentials are configured.
type RequestSigner interface {
	Sign(req SignableRequest) (SignedHeaders, error)
}

// BlockExplorer resolves on-chain wallet facts for enrichment (spec §4.9,
// §6): earliest transaction, total transaction count, balance, and
// contract-vs-EOA classification.
type BlockExplorer interface {
	EarliestTx(ctx context.Context, addr model.Address) (block uint64, at time.Time, found bool, err error)
	TxCount(ctx context.Context, addr model.Address) (uint64, error)
	IsContract(ctx context.Context, addr model.Address) (bool, error)
}

// TransportError wraps a recoverable adapter-level failure (connection
// refused, DNS, non-2xx) with the upstream status code when known (spec
// §7: "adapter-level errors are wrapped with status code and message").
// The queue retries jobs that fail with a TransportError.
type TransportError struct {
	Op         string
	StatusCode int
	HasStatus  bool
	Err        error
}

func (e *TransportError) Error() string {
	if e.HasStatus {
		return e.Op + ": transport error (status " + strconv.Itoa(e.StatusCode) + "): " + e.Err.Error()
	}
	return e.Op + ": transport error: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutError is a distinct kind from TransportError (spec §7: "timeouts
// surface as a distinct kind (HTTP 408 analog)").
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string { return e.Op + ": timed out: " + e.Err.Error() }
func (e *TimeoutError) Unwrap() error  { return e.Err }
