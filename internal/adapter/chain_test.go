package adapter

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/marketwatch/anomaly-engine/internal/model"
)

// fakeChainClient models an account whose nonce flips from 0 to nonzero at
// firstNonceBlock, so EarliestTx's binary search has a single answer to find.
type fakeChainClient struct {
	head            uint64
	firstNonceBlock uint64
	nonceAtHead     uint64
	blockTimes      map[uint64]uint64
	code            []byte
}

func (f *fakeChainClient) BlockNumber(ctx context.Context) (uint64, error) { return f.head, nil }

func (f *fakeChainClient) NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error) {
	if blockNumber == nil {
		return f.nonceAtHead, nil
	}
	if blockNumber.Uint64() >= f.firstNonceBlock {
		return 1, nil
	}
	return 0, nil
}

func (f *fakeChainClient) TransactionCount(ctx context.Context, account common.Address) (uint64, error) {
	return f.nonceAtHead, nil
}

func (f *fakeChainClient) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return f.code, nil
}

func (f *fakeChainClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Time: f.blockTimes[number.Uint64()]}, nil
}

func TestEarliestTxFindsFirstOutboundBlock(t *testing.T) {
	client := &fakeChainClient{
		head:            1000,
		firstNonceBlock: 250,
		nonceAtHead:     7,
		blockTimes:      map[uint64]uint64{250: 1700000000},
	}
	e := NewChainExplorer(client)
	addr, ok := model.NewAddress("0xabababababababababababababababababababab")
	if !ok {
		t.Fatal("invalid fixture address")
	}

	block, at, found, err := e.EarliestTx(context.Background(), addr)
	if err != nil {
		t.Fatalf("EarliestTx: %v", err)
	}
	if !found {
		t.Fatal("expected found=true")
	}
	if block != 250 {
		t.Fatalf("expected block 250, got %d", block)
	}
	if at.Unix() != 1700000000 {
		t.Fatalf("unexpected timestamp: %v", at)
	}
}

func TestEarliestTxReportsNotFoundForUntouchedAccount(t *testing.T) {
	client := &fakeChainClient{head: 1000, nonceAtHead: 0}
	e := NewChainExplorer(client)
	addr, _ := model.NewAddress("0xabababababababababababababababababababab")

	_, _, found, err := e.EarliestTx(context.Background(), addr)
	if err != nil {
		t.Fatalf("EarliestTx: %v", err)
	}
	if found {
		t.Fatal("expected found=false for a wallet with zero outbound nonce")
	}
}

func TestIsContractReflectsCodeSize(t *testing.T) {
	addr, _ := model.NewAddress("0xabababababababababababababababababababab")

	withCode := &fakeChainClient{code: []byte{0x60, 0x80}}
	e := NewChainExplorer(withCode)
	isContract, err := e.IsContract(context.Background(), addr)
	if err != nil || !isContract {
		t.Fatalf("expected contract, got %v err=%v", isContract, err)
	}

	noCode := &fakeChainClient{}
	e2 := NewChainExplorer(noCode)
	isContract, err = e2.IsContract(context.Background(), addr)
	if err != nil || isContract {
		t.Fatalf("expected EOA, got %v err=%v", isContract, err)
	}
}
