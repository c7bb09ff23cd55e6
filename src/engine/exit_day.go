package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"papertrader/src/calendar"
	"papertrader/src/model"
)

// ExitSummary reports a forced end-of-day liquidation.
type ExitSummary struct {
	RunID           string   `json:"run_id"`
	Date            string   `json:"date"`
	NoOp            bool     `json:"no_op"`
	ClosedPositions []string `json:"closed_positions"`
	ClosedPlans     []uint   `json:"closed_plans"`
}

// ExitDay force-closes every open tick position and every open intraday
// plan at the last known price. When data for a symbol is unavailable
// the exit falls back to the entry price, booking flat.
func (e *Engine) ExitDay(ctx context.Context, date time.Time) (*ExitSummary, error) {
	if date.IsZero() {
		date = calendar.Today()
	}
	date = calendar.Midnight(date)

	summary := &ExitSummary{
		RunID: uuid.NewString(),
		Date:  date.Format("2006-01-02"),
	}

	if !calendar.IsTradingDay(date) {
		summary.NoOp = true
		e.log.WithField("date", summary.Date).Info("Non-trading day, exit skipped")
		return summary, nil
	}

	tick := &model.RunTick{
		RunID:    summary.RunID,
		Date:     date,
		TickTime: e.now(),
		Interval: "exit_day",
	}
	if err := e.decisions.CreateTick(ctx, tick); err != nil {
		return nil, err
	}

	open, err := e.positions.FindOpen(ctx)
	if err != nil {
		return nil, err
	}
	for i := range open {
		pos := &open[i]
		price := e.exitPrice(pos.Symbol, pos.EntryPrice)
		if err := e.closePosition(ctx, tick, pos, pos.Qty, price, "forced day exit"); err != nil {
			e.log.WithError(err).WithField("symbol", pos.Symbol).
				Error("Failed to force-close position")
			continue
		}
		summary.ClosedPositions = append(summary.ClosedPositions, pos.Symbol)
	}

	plans, err := e.plans.FindByModeAndStatus(ctx, model.ModeIntraday, model.PlanStatusOpen)
	if err != nil {
		return nil, err
	}
	for i := range plans {
		plan := &plans[i]
		price := e.exitPrice(plan.Symbol, plan.PriceRef)
		txn, err := e.exec.ExecuteSell(ctx, plan, plan.Qty, price, nil, "forced day exit")
		if err != nil {
			e.log.WithError(err).WithField("plan_id", plan.ID).
				Error("Failed to force-close intraday plan")
			continue
		}
		if txn != nil {
			summary.ClosedPlans = append(summary.ClosedPlans, plan.ID)
		}
	}

	e.notifier.Notify(ctx, "day exited", fmt.Sprintf(
		"date=%s positions_closed=%d plans_closed=%d",
		summary.Date, len(summary.ClosedPositions), len(summary.ClosedPlans)))

	return summary, nil
}

// exitPrice fetches the latest close for a forced exit, falling back to
// the given entry-side price when data is unavailable.
func (e *Engine) exitPrice(symbol string, fallback float64) float64 {
	snap, err := e.analyzer.Analyze(symbol, e.config.Interval)
	if err != nil {
		e.log.WithError(err).WithField("symbol", symbol).
			Warn("Exit price unavailable, falling back to entry price")
		return fallback
	}
	return e.lastPrice(symbol, snap.Close)
}
