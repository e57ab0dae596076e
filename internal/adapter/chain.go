package adapter

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/marketwatch/anomaly-engine/internal/model"
)

// ChainClient is the subset of ethclient.Client the explorer needs, narrowed
// for testability.
type ChainClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	TransactionCount(ctx context.Context, account common.Address) (uint64, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

var _ ChainClient = (*ethclient.Client)(nil)

// ChainExplorer implements BlockExplorer against a Polygon JSON-RPC endpoint
// (spec §4.9, §6). Polymarket settles on Polygon; wallet age and activity are
// read directly off-chain rather than through a third-party explorer API, so
// the only dependency is an RPC client.
//
// EarliestTx has no direct JSON-RPC equivalent (no "first tx" query), so it
// binary-searches the account's nonce across block height: the nonce is 0
// before the account's first outbound transaction and >=1 at and after it.
// This only finds the first *outbound* transaction; a wallet that has only
// ever received transfers reports found=false, which the caller treats as
// "age unknown" (spec §4.9: unresolvable wallet facts degrade the enrichment
// gracefully rather than blocking the decision).
type ChainExplorer struct {
	client ChainClient
}

func NewChainExplorer(client ChainClient) *ChainExplorer {
	return &ChainExplorer{client: client}
}

func (e *ChainExplorer) EarliestTx(ctx context.Context, addr model.Address) (uint64, time.Time, bool, error) {
	account := common.HexToAddress(string(addr))

	head, err := e.client.BlockNumber(ctx)
	if err != nil {
		return 0, time.Time{}, false, wrapTransport(ctx, "chain.BlockNumber", err)
	}

	nonceAtHead, err := e.client.NonceAt(ctx, account, nil)
	if err != nil {
		return 0, time.Time{}, false, wrapTransport(ctx, "chain.NonceAt", err)
	}
	if nonceAtHead == 0 {
		return 0, time.Time{}, false, nil // never sent a transaction
	}

	lo, hi := uint64(0), head
	for lo < hi {
		mid := lo + (hi-lo)/2
		nonce, err := e.client.NonceAt(ctx, account, new(big.Int).SetUint64(mid))
		if err != nil {
			return 0, time.Time{}, false, wrapTransport(ctx, "chain.NonceAt", err)
		}
		if nonce > 0 {
			hi = mid
		} else {
			lo = mid + 1
		}
	}

	header, err := e.client.HeaderByNumber(ctx, new(big.Int).SetUint64(lo))
	if err != nil {
		return 0, time.Time{}, false, wrapTransport(ctx, "chain.HeaderByNumber", err)
	}
	return lo, time.Unix(int64(header.Time), 0).UTC(), true, nil
}

func (e *ChainExplorer) TxCount(ctx context.Context, addr model.Address) (uint64, error) {
	account := common.HexToAddress(string(addr))
	n, err := e.client.TransactionCount(ctx, account)
	if err != nil {
		return 0, wrapTransport(ctx, "chain.TransactionCount", err)
	}
	return n, nil
}

func (e *ChainExplorer) IsContract(ctx context.Context, addr model.Address) (bool, error) {
	account := common.HexToAddress(string(addr))
	code, err := e.client.CodeAt(ctx, account, nil)
	if err != nil {
		return false, wrapTransport(ctx, "chain.CodeAt", err)
	}
	return len(code) > 0, nil
}
