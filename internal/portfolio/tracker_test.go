package portfolio

import (
	"context"
	"testing"

	"github.com/marketwatch/anomaly-engine/internal/store"
)

func TestInitBankrollSeedsOnce(t *testing.T) {
	tr := New(store.NewMemoryStore())
	ctx := context.Background()

	if err := tr.InitBankroll(ctx, 10000); err != nil {
		t.Fatalf("InitBankroll: %v", err)
	}
	if err := tr.AdjustBankroll(ctx, 500); err != nil {
		t.Fatalf("AdjustBankroll: %v", err)
	}
	// A second InitBankroll must not clobber the adjusted value.
	if err := tr.InitBankroll(ctx, 10000); err != nil {
		t.Fatalf("InitBankroll (second): %v", err)
	}

	got, err := tr.Bankroll(ctx)
	if err != nil {
		t.Fatalf("Bankroll: %v", err)
	}
	if got != 10500 {
		t.Fatalf("expected 10500, got %f", got)
	}
}

func TestAddExposureAccumulatesAndFloors(t *testing.T) {
	tr := New(store.NewMemoryStore())
	ctx := context.Background()

	if err := tr.AddExposure(ctx, 200); err != nil {
		t.Fatalf("AddExposure: %v", err)
	}
	if err := tr.AddExposure(ctx, 150); err != nil {
		t.Fatalf("AddExposure: %v", err)
	}
	got, _ := tr.TotalExposure(ctx)
	if got != 350 {
		t.Fatalf("expected 350, got %f", got)
	}

	if err := tr.AddExposure(ctx, -1000); err != nil {
		t.Fatalf("AddExposure: %v", err)
	}
	got, _ = tr.TotalExposure(ctx)
	if got != 0 {
		t.Fatalf("expected floor at 0, got %f", got)
	}
}

func TestSetAndGetPosition(t *testing.T) {
	tr := New(store.NewMemoryStore())
	ctx := context.Background()

	p := Position{TokenID: "tok1", SizeUSD: 250, Side: "YES"}
	if err := tr.SetPosition(ctx, p); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}

	got, ok, err := tr.Position(ctx, "tok1")
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if !ok {
		t.Fatal("expected position to exist")
	}
	if got.SizeUSD != 250 || got.Side != "YES" {
		t.Fatalf("unexpected position: %+v", got)
	}

	_, ok, err = tr.Position(ctx, "tok-missing")
	if err != nil {
		t.Fatalf("Position (missing): %v", err)
	}
	if ok {
		t.Fatal("expected missing position to report ok=false")
	}
}

func TestRecordPnLTracksConsecutiveLosses(t *testing.T) {
	tr := New(store.NewMemoryStore())
	ctx := context.Background()

	for _, delta := range []float64{-10, -5, -1} {
		if err := tr.RecordPnL(ctx, delta); err != nil {
			t.Fatalf("RecordPnL: %v", err)
		}
	}
	streak, err := tr.ConsecutiveLosses(ctx)
	if err != nil {
		t.Fatalf("ConsecutiveLosses: %v", err)
	}
	if streak != 3 {
		t.Fatalf("expected streak of 3 losses, got %d", streak)
	}

	pnl, err := tr.DailyPnL(ctx)
	if err != nil {
		t.Fatalf("DailyPnL: %v", err)
	}
	if pnl != -16 {
		t.Fatalf("expected daily pnl -16, got %f", pnl)
	}

	// A win resets the streak but does not wipe the accumulated P&L.
	if err := tr.RecordPnL(ctx, 20); err != nil {
		t.Fatalf("RecordPnL: %v", err)
	}
	streak, _ = tr.ConsecutiveLosses(ctx)
	if streak != 0 {
		t.Fatalf("expected streak reset to 0, got %d", streak)
	}
	pnl, _ = tr.DailyPnL(ctx)
	if pnl != 4 {
		t.Fatalf("expected daily pnl 4, got %f", pnl)
	}
}

func TestResetDailyClearsPnlAndStreakOnly(t *testing.T) {
	tr := New(store.NewMemoryStore())
	ctx := context.Background()

	if err := tr.InitBankroll(ctx, 5000); err != nil {
		t.Fatalf("InitBankroll: %v", err)
	}
	if err := tr.AddExposure(ctx, 100); err != nil {
		t.Fatalf("AddExposure: %v", err)
	}
	if err := tr.RecordPnL(ctx, -50); err != nil {
		t.Fatalf("RecordPnL: %v", err)
	}

	if err := tr.ResetDaily(ctx); err != nil {
		t.Fatalf("ResetDaily: %v", err)
	}

	pnl, _ := tr.DailyPnL(ctx)
	if pnl != 0 {
		t.Fatalf("expected pnl reset to 0, got %f", pnl)
	}
	streak, _ := tr.ConsecutiveLosses(ctx)
	if streak != 0 {
		t.Fatalf("expected streak reset to 0, got %d", streak)
	}
	bankroll, _ := tr.Bankroll(ctx)
	if bankroll != 5000 {
		t.Fatalf("expected bankroll untouched at 5000, got %f", bankroll)
	}
	exposure, _ := tr.TotalExposure(ctx)
	if exposure != 100 {
		t.Fatalf("expected exposure untouched at 100, got %f", exposure)
	}
}

func TestSnapshotForBundlesState(t *testing.T) {
	tr := New(store.NewMemoryStore())
	ctx := context.Background()

	if err := tr.InitBankroll(ctx, 8000); err != nil {
		t.Fatalf("InitBankroll: %v", err)
	}
	if err := tr.AddExposure(ctx, 300); err != nil {
		t.Fatalf("AddExposure: %v", err)
	}
	if err := tr.SetPosition(ctx, Position{TokenID: "tok1", SizeUSD: 120, Side: "NO"}); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}
	if err := tr.RecordPnL(ctx, -40); err != nil {
		t.Fatalf("RecordPnL: %v", err)
	}
	if err := tr.SetDrawdown(ctx, 0.02); err != nil {
		t.Fatalf("SetDrawdown: %v", err)
	}

	snap, err := tr.SnapshotFor(ctx, "tok1")
	if err != nil {
		t.Fatalf("SnapshotFor: %v", err)
	}
	if snap.Bankroll != 8000 {
		t.Fatalf("expected bankroll 8000, got %f", snap.Bankroll)
	}
	if snap.TotalExposureUSD != 300 {
		t.Fatalf("expected exposure 300, got %f", snap.TotalExposureUSD)
	}
	if snap.ExistingPositionUSD != 120 {
		t.Fatalf("expected existing position 120, got %f", snap.ExistingPositionUSD)
	}
	if snap.DailyPnL != -40 {
		t.Fatalf("expected daily pnl -40, got %f", snap.DailyPnL)
	}
	if snap.DrawdownPct != 0.02 {
		t.Fatalf("expected drawdown 0.02, got %f", snap.DrawdownPct)
	}
	if snap.ConsecutiveLosses != 1 {
		t.Fatalf("expected 1 consecutive loss, got %d", snap.ConsecutiveLosses)
	}
}
