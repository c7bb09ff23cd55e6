package signal

import (
	"fmt"
	"strings"
	"time"

	"papertrader/src/marketdata"
	"papertrader/src/utils"
)

const defaultTimeExit = "15:20"

// TickEntry evaluates the per-minute momentum entry. All four gate
// conditions must hold; the additive score drives ranking, not entry.
func TickEntry(snap *marketdata.Snapshot, stopPct, targetPct float64) Signal {
	if !snap.BuyOK {
		return hold(0.5, fmt.Sprintf("momentum gate not met (score=%.0f)", snap.Score))
	}
	return Signal{
		Action:     ActionBuy,
		Confidence: snap.Score / 100,
		Rationale:  fmt.Sprintf("momentum entry: %s", strings.Join(snap.Reasons, ", ")),
		StopLoss:   snap.Close * (1 - stopPct/100),
		TakeProfit: snap.Close * (1 + targetPct/100),
	}
}

// TickExit checks an open tick-based position against its stop, target
// and the daily time-exit cutoff. Every condition that fires is
// recorded; any one is sufficient to exit.
func TickExit(lastPrice, stopPrice, targetPrice float64, now time.Time, timeExit string) Signal {
	reasons := make([]string, 0, 3)

	if stopPrice > 0 && lastPrice <= stopPrice {
		reasons = append(reasons, "stop_loss")
	}
	if targetPrice > 0 && lastPrice >= targetPrice {
		reasons = append(reasons, "target")
	}
	if afterTimeExit(now, timeExit) {
		reasons = append(reasons, "time_exit")
	}

	if len(reasons) == 0 {
		return hold(0.5, fmt.Sprintf("holding: last=%.2f stop=%.2f target=%.2f", lastPrice, stopPrice, targetPrice))
	}
	return Signal{
		Action:     ActionExit,
		Confidence: 1,
		Rationale:  fmt.Sprintf("exit conditions: %s", strings.Join(reasons, ", ")),
		Reasons:    reasons,
	}
}

// afterTimeExit reports whether now is at or past the HH:MM cutoff in
// now's own location. Malformed cutoffs fall back to the default.
func afterTimeExit(now time.Time, timeExit string) bool {
	cutoff, err := time.Parse("15:04", timeExit)
	if err != nil {
		cutoff, _ = time.Parse("15:04", defaultTimeExit)
	}
	return utils.MinuteOfDay(now) >= utils.MinuteOfDay(cutoff)
}
