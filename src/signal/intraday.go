package signal

import (
	"fmt"

	"papertrader/src/marketdata"
)

// Intraday applies the coarse trend-plus-RSI gate to one snapshot.
// Confidence is a fixed constant per branch, not derived from magnitude.
func Intraday(snap *marketdata.Snapshot) Signal {
	switch {
	case snap.Trend == marketdata.TrendUp && snap.RSI14 < 70:
		return Signal{
			Action:     ActionBuy,
			Confidence: 0.7,
			Rationale:  fmt.Sprintf("uptrend with rsi14=%.2f below overbought", snap.RSI14),
		}
	case snap.Trend == marketdata.TrendDown && snap.RSI14 > 30:
		return Signal{
			Action:     ActionSell,
			Confidence: 0.7,
			Rationale:  fmt.Sprintf("downtrend with rsi14=%.2f above oversold", snap.RSI14),
		}
	default:
		return hold(0.5, fmt.Sprintf("no actionable trend (%s, rsi14=%.2f)", snap.Trend, snap.RSI14))
	}
}
