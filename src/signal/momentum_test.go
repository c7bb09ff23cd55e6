package signal

import (
	"testing"
	"time"

	"papertrader/src/marketdata"
)

func TestTickEntry(t *testing.T) {
	snap := &marketdata.Snapshot{
		Symbol:  "BTC",
		Close:   100,
		Score:   90,
		BuyOK:   true,
		Reasons: []string{"above ema20", "rising ema", "volume spike", "rsi strong"},
	}

	sig := TickEntry(snap, 1.0, 1.5)
	if sig.Action != ActionBuy {
		t.Fatalf("expected BUY, got %s", sig.Action)
	}
	if sig.Confidence != 0.9 {
		t.Fatalf("expected confidence 0.9, got %.2f", sig.Confidence)
	}
	if !approxEqual(sig.StopLoss, 99) {
		t.Fatalf("stop mismatch. got=%.4f want=99", sig.StopLoss)
	}
	if !approxEqual(sig.TakeProfit, 101.5) {
		t.Fatalf("target mismatch. got=%.4f want=101.5", sig.TakeProfit)
	}
}

func TestTickEntryGateNotMet(t *testing.T) {
	snap := &marketdata.Snapshot{Symbol: "BTC", Close: 100, Score: 45, BuyOK: false}

	sig := TickEntry(snap, 1.0, 1.5)
	if sig.Action != ActionHold {
		t.Fatalf("expected HOLD when gate fails, got %s", sig.Action)
	}
}

func TestTickExit(t *testing.T) {
	morning := time.Date(2026, time.March, 2, 11, 0, 0, 0, time.UTC)
	late := time.Date(2026, time.March, 2, 15, 25, 0, 0, time.UTC)

	tests := []struct {
		name        string
		last        float64
		stop        float64
		target      float64
		now         time.Time
		cutoff      string
		wantAction  string
		wantReasons []string
	}{
		{"holding", 100, 95, 110, morning, "15:20", ActionHold, nil},
		{"stop hit", 94, 95, 110, morning, "15:20", ActionExit, []string{"stop_loss"}},
		{"target hit", 111, 95, 110, morning, "15:20", ActionExit, []string{"target"}},
		{"time exit", 100, 95, 110, late, "15:20", ActionExit, []string{"time_exit"}},
		{"all at once", 111, 120, 110, late, "15:20", ActionExit, []string{"stop_loss", "target", "time_exit"}},
		{"malformed cutoff falls back to default", 100, 95, 110, late, "not-a-time", ActionExit, []string{"time_exit"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := TickExit(tt.last, tt.stop, tt.target, tt.now, tt.cutoff)
			if sig.Action != tt.wantAction {
				t.Fatalf("action mismatch. got=%s want=%s (%s)", sig.Action, tt.wantAction, sig.Rationale)
			}
			if len(sig.Reasons) != len(tt.wantReasons) {
				t.Fatalf("reasons mismatch. got=%v want=%v", sig.Reasons, tt.wantReasons)
			}
			for i, reason := range tt.wantReasons {
				if sig.Reasons[i] != reason {
					t.Fatalf("reasons mismatch. got=%v want=%v", sig.Reasons, tt.wantReasons)
				}
			}
		})
	}
}
