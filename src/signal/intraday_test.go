package signal

import (
	"testing"

	"papertrader/src/marketdata"
)

func TestIntraday(t *testing.T) {
	tests := []struct {
		name       string
		trend      string
		rsi        float64
		wantAction string
		wantConf   float64
	}{
		{"uptrend below overbought", marketdata.TrendUp, 65, ActionBuy, 0.7},
		{"uptrend overbought", marketdata.TrendUp, 72, ActionHold, 0.5},
		{"downtrend above oversold", marketdata.TrendDown, 40, ActionSell, 0.7},
		{"downtrend oversold", marketdata.TrendDown, 25, ActionHold, 0.5},
		{"sideways", marketdata.TrendSideways, 50, ActionHold, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := &marketdata.Snapshot{Symbol: "BTC", Trend: tt.trend, RSI14: tt.rsi}

			sig := Intraday(snap)
			if sig.Action != tt.wantAction {
				t.Fatalf("action mismatch. got=%s want=%s", sig.Action, tt.wantAction)
			}
			if sig.Confidence != tt.wantConf {
				t.Fatalf("confidence mismatch. got=%.2f want=%.2f", sig.Confidence, tt.wantConf)
			}
			if sig.Rationale == "" {
				t.Fatal("expected a rationale")
			}
		})
	}
}
