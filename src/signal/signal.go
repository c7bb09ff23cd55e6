package signal

// Signal actions. BUY/SELL fill immediately at the reference price,
// BUY_SETUP arms a conditional entry, EXIT closes an open position.
const (
	ActionBuy      = "BUY"
	ActionSell     = "SELL"
	ActionHold     = "HOLD"
	ActionBuySetup = "BUY_SETUP"
	ActionExit     = "EXIT"
)

// Entry styles recorded on swing setups.
const (
	EntryBreakout = "breakout"
	EntryPullback = "pullback"
)

// Signal is the outcome of one rule evaluation for one symbol. It is
// consumed immediately by sizing and execution and persisted only as
// part of the decision audit trail.
type Signal struct {
	Action     string
	Confidence float64
	Rationale  string

	// Set on swing setups.
	Trigger     float64
	StopLoss    float64
	TakeProfit  float64
	EntryStyle  string
	HorizonDays int

	// Set on exit evaluations. Reasons lists every condition that
	// fired, not just the first.
	Trailing float64
	Reasons  []string
}

func hold(confidence float64, rationale string) Signal {
	return Signal{Action: ActionHold, Confidence: confidence, Rationale: rationale}
}
