package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"papertrader/src/calendar"
	"papertrader/src/model"
	"papertrader/src/signal"
	"papertrader/src/sizing"
)

// SwingSummary reports one daily swing cycle.
type SwingSummary struct {
	RunID     string `json:"run_id"`
	Date      string `json:"date"`
	NoOp      bool   `json:"no_op"`
	Triggered int    `json:"triggered"`
	Closed    int    `json:"closed"`
	NewSetups int    `json:"new_setups"`
	Skipped   int    `json:"skipped"`
}

// SwingCycle runs the daily swing pass: fire pending entry triggers,
// re-evaluate open positions, then scan for new setups. A symbol with
// an active swing plan is never given a second one.
func (e *Engine) SwingCycle(ctx context.Context, date time.Time) (*SwingSummary, error) {
	if date.IsZero() {
		date = calendar.Today()
	}
	date = calendar.Midnight(date)

	summary := &SwingSummary{
		RunID: uuid.NewString(),
		Date:  date.Format("2006-01-02"),
	}

	if !calendar.IsTradingDay(date) {
		summary.NoOp = true
		e.log.WithField("date", summary.Date).Info("Non-trading day, swing cycle skipped")
		return summary, nil
	}

	cfg, err := e.configs.GetActive(ctx)
	if err != nil {
		return nil, err
	}

	triggered, err := e.gtt.ProcessPendingEntries(ctx)
	if err != nil {
		e.log.WithError(err).Error("Pending swing entries failed")
	}
	summary.Triggered = triggered

	closed, err := e.gtt.ProcessOpenPlans(ctx)
	if err != nil {
		e.log.WithError(err).Error("Open swing plans failed")
	}
	summary.Closed = closed

	for _, symbol := range e.config.Universe() {
		created, err := e.scanSwingSetup(ctx, cfg, date, summary.RunID, symbol)
		if err != nil {
			summary.Skipped++
			e.log.WithError(err).WithField("symbol", symbol).
				Warn("Skipping swing setup scan")
			continue
		}
		if created {
			summary.NewSetups++
		}
	}

	return summary, nil
}

func (e *Engine) scanSwingSetup(ctx context.Context, cfg *model.StrategyConfig, date time.Time, runID, symbol string) (bool, error) {
	active, err := e.plans.FindActiveSwingBySymbol(ctx, symbol)
	if err != nil {
		return false, err
	}
	if active != nil {
		return false, nil
	}

	activePlans, err := e.plans.FindByModeAndStatus(ctx, model.ModeSwing,
		model.PlanStatusGTTPlaced, model.PlanStatusOpen)
	if err != nil {
		return false, err
	}
	if len(activePlans) >= cfg.MaxPositions {
		return false, nil
	}

	frame, err := e.analyzer.AnalyzeSwing(symbol)
	if err != nil {
		return false, err
	}

	sig := signal.SwingEntry(frame)
	if sig.Action != signal.ActionBuySetup {
		return false, nil
	}

	budget, err := e.ledger.Budget(ctx, date, model.ModeSwing)
	if err != nil {
		return false, err
	}
	qty := sizing.Quantity(sig.Trigger, budget.Remaining, e.ledger.TradeCap(model.ModeSwing))

	horizon := sig.HorizonDays
	plan := &model.TradePlan{
		RunID:              runID,
		Date:               date,
		Symbol:             symbol,
		Mode:               model.ModeSwing,
		PlanType:           model.PlanTypeGTT,
		Side:               model.SideBuy,
		Qty:                qty,
		PriceRef:           frame.Close,
		StopLoss:           sig.StopLoss,
		TakeProfit:         sig.TakeProfit,
		GTTBuyTrigger:      &sig.Trigger,
		HoldingHorizonDays: &horizon,
		ExitRules: map[string]any{
			"trailing_atr_multiple": 1.5,
			"horizon_days":          horizon,
			"entry_style":           sig.EntryStyle,
		},
		Confidence: sig.Confidence,
		Rationale:  sig.Rationale,
		Status:     model.PlanStatusPlanned,
	}
	if err := e.plans.Create(ctx, plan); err != nil {
		return false, err
	}

	if qty <= 0 {
		if err := e.plans.UpdateStatus(ctx, plan.ID, model.PlanStatusCancelled, "sizing yielded zero quantity"); err != nil {
			return false, err
		}
		return false, nil
	}

	if _, err := e.gtt.PlaceEntry(ctx, plan, sig.Trigger); err != nil {
		return false, err
	}

	e.log.WithFields(map[string]interface{}{
		"symbol":  symbol,
		"style":   sig.EntryStyle,
		"trigger": sig.Trigger,
		"stop":    sig.StopLoss,
		"target":  sig.TakeProfit,
		"qty":     qty,
	}).Info("Swing setup armed")

	return true, nil
}
