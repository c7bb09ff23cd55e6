package signal

import (
	"fmt"
	"math"

	"papertrader/src/marketdata"
)

const (
	swingMinBars = 60

	breakoutTriggerFactor = 1.002
	pullbackTriggerFactor = 1.001
	pullbackBandPct       = 0.012

	stopATRMultiple   = 1.5
	targetATRMultiple = 2.0

	defaultHorizonDays = 20
)

// SwingEntry evaluates the daily breakout-then-pullback setup rules.
// Breakout is checked first; the first matching rule wins.
func SwingEntry(frame *marketdata.SwingFrame) Signal {
	if frame.Bars < swingMinBars {
		return hold(0.4, fmt.Sprintf("insufficient history: %d of %d daily candles", frame.Bars, swingMinBars))
	}

	uptrend := frame.Close > frame.SMA50 && frame.SMA50 > frame.PrevSMA50

	if uptrend && frame.Close > frame.High20 && frame.RSI14 >= 50 && frame.RSI14 <= 70 {
		trigger := breakoutTriggerFactor * frame.High20
		return Signal{
			Action:      ActionBuySetup,
			Confidence:  0.75,
			Rationale:   fmt.Sprintf("breakout above 20d high %.2f in uptrend, rsi14=%.2f", frame.High20, frame.RSI14),
			Trigger:     trigger,
			StopLoss:    trigger - stopATRMultiple*frame.ATR14,
			TakeProfit:  trigger + targetATRMultiple*frame.ATR14,
			EntryStyle:  EntryBreakout,
			HorizonDays: defaultHorizonDays,
		}
	}

	nearEMA := frame.EMA20 > 0 && math.Abs(frame.Close-frame.EMA20)/frame.EMA20 <= pullbackBandPct
	if uptrend && nearEMA && frame.RSI14 > 45 {
		trigger := math.Max(pullbackTriggerFactor*frame.EMA20, pullbackTriggerFactor*frame.Close)
		return Signal{
			Action:      ActionBuySetup,
			Confidence:  0.65,
			Rationale:   fmt.Sprintf("pullback near ema20 %.2f in uptrend, rsi14=%.2f", frame.EMA20, frame.RSI14),
			Trigger:     trigger,
			StopLoss:    trigger - stopATRMultiple*frame.ATR14,
			TakeProfit:  trigger + targetATRMultiple*frame.ATR14,
			EntryStyle:  EntryPullback,
			HorizonDays: defaultHorizonDays,
		}
	}

	return hold(0.5, "no swing setup")
}

// SwingExit evaluates exit conditions for an open swing position and
// returns the updated trailing stop. The trailing stop only ratchets
// upward. Exit precedence: time-stop, then take-profit, then trailing.
func SwingExit(frame *marketdata.SwingFrame, holdingDays, horizonDays int, currentTrailing, takeProfit float64) Signal {
	trailing := math.Max(currentTrailing, frame.Close-stopATRMultiple*frame.ATR14)

	switch {
	case holdingDays > horizonDays:
		return Signal{
			Action:     ActionExit,
			Confidence: 1,
			Rationale:  fmt.Sprintf("time-stop: held %d days over %d-day horizon", holdingDays, horizonDays),
			Trailing:   trailing,
			Reasons:    []string{"time_stop"},
		}
	case takeProfit > 0 && frame.Close >= takeProfit:
		return Signal{
			Action:     ActionExit,
			Confidence: 1,
			Rationale:  fmt.Sprintf("take-profit reached: close=%.2f target=%.2f", frame.Close, takeProfit),
			Trailing:   trailing,
			Reasons:    []string{"take_profit"},
		}
	case frame.Close < trailing:
		return Signal{
			Action:     ActionExit,
			Confidence: 1,
			Rationale:  fmt.Sprintf("trailing stop breached: close=%.2f stop=%.2f", frame.Close, trailing),
			Trailing:   trailing,
			Reasons:    []string{"trailing_stop"},
		}
	default:
		sig := hold(0.5, fmt.Sprintf("holding: close=%.2f trailing=%.2f", frame.Close, trailing))
		sig.Trailing = trailing
		return sig
	}
}
