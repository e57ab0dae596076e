package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/marketwatch/anomaly-engine/internal/clock"
	"github.com/marketwatch/anomaly-engine/internal/store"
)

type fakeDiscoverer struct{ calls int32 }

func (d *fakeDiscoverer) DiscoverMarkets(ctx context.Context) error {
	atomic.AddInt32(&d.calls, 1)
	return nil
}

func TestSchedulerEnqueuesDiscoveryImmediatelyAndOnTicker(t *testing.T) {
	s := store.NewMemoryStore()
	clk := &clock.System{}
	cfg := DefaultSchedulerConfig()
	cfg.DiscoveryInterval = 30 * time.Millisecond
	cfg.TokenJobInterval = time.Hour

	discoverer := &fakeDiscoverer{}
	noop := func(ctx context.Context, token, condition string) error { return nil }

	discoveryQ := New("discovery", fastConfig(), zerolog.Nop())
	orderbookQ := New("orderbook", fastConfig(), zerolog.Nop())
	tradeQ := New("trade", fastConfig(), zerolog.Nop())

	sch := NewScheduler(cfg, s, clk, discoverer, noop, noop, discoveryQ, orderbookQ, tradeQ, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(4)
	go func() { defer wg.Done(); _ = discoveryQ.Run(ctx) }()
	go func() { defer wg.Done(); _ = orderbookQ.Run(ctx) }()
	go func() { defer wg.Done(); _ = tradeQ.Run(ctx) }()
	go func() { defer wg.Done(); _ = sch.Run(ctx) }()
	wg.Wait()

	if atomic.LoadInt32(&discoverer.calls) < 2 {
		t.Fatalf("expected at least 2 discovery runs (startup + ticker), got %d", discoverer.calls)
	}
}

func TestSchedulerEnqueuesPerTokenJobsFromTrackedSet(t *testing.T) {
	s := store.NewMemoryStore()
	clk := &clock.System{}
	ctx := context.Background()
	if err := s.SAdd(ctx, store.Keys.TrackedTokens(), "tok1", "tok2"); err != nil {
		t.Fatalf("seed tracked tokens: %v", err)
	}
	if err := s.Set(ctx, store.Keys.TokenCondition("tok1"), "cond1", time.Hour); err != nil {
		t.Fatalf("seed condition: %v", err)
	}

	cfg := DefaultSchedulerConfig()
	cfg.DiscoveryInterval = time.Hour
	cfg.TokenJobInterval = 20 * time.Millisecond

	var obCalls, tradeCalls int32
	var seenConditions sync.Map
	ob := func(ctx context.Context, token, condition string) error {
		atomic.AddInt32(&obCalls, 1)
		seenConditions.Store(token, condition)
		return nil
	}
	trade := func(ctx context.Context, token, condition string) error {
		atomic.AddInt32(&tradeCalls, 1)
		return nil
	}

	discoveryQ := New("discovery", fastConfig(), zerolog.Nop())
	orderbookQ := New("orderbook", fastConfig(), zerolog.Nop())
	tradeQ := New("trade", fastConfig(), zerolog.Nop())
	sch := NewScheduler(cfg, s, clk, &fakeDiscoverer{}, ob, trade, discoveryQ, orderbookQ, tradeQ, zerolog.Nop())

	runCtx, cancel := context.WithTimeout(context.Background(), 90*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(4)
	go func() { defer wg.Done(); _ = discoveryQ.Run(runCtx) }()
	go func() { defer wg.Done(); _ = orderbookQ.Run(runCtx) }()
	go func() { defer wg.Done(); _ = tradeQ.Run(runCtx) }()
	go func() { defer wg.Done(); _ = sch.Run(runCtx) }()
	wg.Wait()

	if atomic.LoadInt32(&obCalls) < 2 || atomic.LoadInt32(&tradeCalls) < 2 {
		t.Fatalf("expected repeated per-token job enqueues, got ob=%d trade=%d", obCalls, tradeCalls)
	}
	if cond, ok := seenConditions.Load("tok1"); !ok || cond != "cond1" {
		t.Fatalf("expected tok1 resolved to cond1, got %v ok=%v", cond, ok)
	}
}
