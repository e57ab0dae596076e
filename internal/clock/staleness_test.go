package clock

import (
	"context"
	"testing"

	"github.com/marketwatch/anomaly-engine/internal/store"
)

func TestTrackerStatusBuckets(t *testing.T) {
	fc := &Fixed{Ms: 1_000_000}
	tr := NewTracker(store.NewMemoryStore(), fc)
	ctx := context.Background()

	if err := tr.Record(ctx, KindOrderbook, "tok1"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	cases := []struct {
		advanceMs int64
		want      Status
	}{
		{0, StatusFresh},
		{1999, StatusFresh},
		{2000, StatusWarning},
		{4999, StatusWarning},
		{5000, StatusStale},
		{9999, StatusStale},
		{10000, StatusCritical},
	}
	for _, c := range cases {
		fc.Ms = 1_000_000 + c.advanceMs
		got, _, err := tr.Status(ctx, KindOrderbook, "tok1")
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if got != c.want {
			t.Errorf("age=%dms: got %s, want %s", c.advanceMs, got, c.want)
		}
	}
}

func TestTrackerStatusMissing(t *testing.T) {
	fc := &Fixed{Ms: 0}
	tr := NewTracker(store.NewMemoryStore(), fc)
	status, age, err := tr.Status(context.Background(), KindOrderbook, "unknown")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != StatusMissing || age != -1 {
		t.Fatalf("got %s, %d", status, age)
	}
}

func TestCheckFreshnessRequiresOrderbook(t *testing.T) {
	fc := &Fixed{Ms: 0}
	tr := NewTracker(store.NewMemoryStore(), fc)
	f, err := tr.CheckFreshness(context.Background(), "tok1", "cond1")
	if err != nil {
		t.Fatalf("CheckFreshness: %v", err)
	}
	if f.OK {
		t.Fatal("expected not OK with no orderbook record")
	}
	if f.RejectionReason != "stale_book_data" {
		t.Fatalf("got reason %q", f.RejectionReason)
	}
}

func TestCheckFreshnessOKWithFreshBookNoTrade(t *testing.T) {
	fc := &Fixed{Ms: 1000}
	tr := NewTracker(store.NewMemoryStore(), fc)
	ctx := context.Background()
	if err := tr.Record(ctx, KindOrderbook, "tok1"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	f, err := tr.CheckFreshness(ctx, "tok1", "cond1")
	if err != nil {
		t.Fatalf("CheckFreshness: %v", err)
	}
	if !f.OK {
		t.Fatalf("expected OK, got reason %q", f.RejectionReason)
	}
	if f.HasTrade {
		t.Fatal("expected no trade record")
	}
}

func TestIsTradeSafe(t *testing.T) {
	if !IsTradeSafe(StatusFresh) || !IsTradeSafe(StatusWarning) {
		t.Fatal("fresh/warning must be trade-safe")
	}
	if IsTradeSafe(StatusStale) || IsTradeSafe(StatusCritical) {
		t.Fatal("stale/critical must not be trade-safe")
	}
}
