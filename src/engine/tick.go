package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"papertrader/src/calendar"
	"papertrader/src/marketdata"
	"papertrader/src/model"
	"papertrader/src/signal"
	"papertrader/src/sizing"
)

// TickSummary is what one pipeline invocation reports back.
type TickSummary struct {
	RunID          string `json:"run_id"`
	Date           string `json:"date"`
	NoOp           bool   `json:"no_op"`
	Buys           int    `json:"buys"`
	Sells          int    `json:"sells"`
	Holds          int    `json:"holds"`
	Rebalances     int    `json:"rebalances"`
	SwingTriggers  int    `json:"swing_triggers"`
	SwingExits     int    `json:"swing_exits"`
	SymbolsChecked int    `json:"symbols_checked"`
	SymbolsSkipped int    `json:"symbols_skipped"`
}

// RunTick executes one full decision pass. Fixed ordering inside a
// tick: pending swing entry triggers, then open swing exits, then
// tick-based entries and exits per symbol, rebalancing last. Non-trading
// days are a flagged no-op.
func (e *Engine) RunTick(ctx context.Context, date time.Time, interval string) (*TickSummary, error) {
	if date.IsZero() {
		date = calendar.Today()
	}
	date = calendar.Midnight(date)
	if interval == "" {
		interval = e.config.Interval
	}

	summary := &TickSummary{
		RunID: uuid.NewString(),
		Date:  date.Format("2006-01-02"),
	}

	if !calendar.IsTradingDay(date) {
		summary.NoOp = true
		e.log.WithField("date", summary.Date).Info("Non-trading day, tick skipped")
		return summary, nil
	}

	cfg, err := e.configs.GetActive(ctx)
	if err != nil {
		return nil, err
	}

	tick := &model.RunTick{
		RunID:    summary.RunID,
		Date:     date,
		TickTime: e.now(),
		Interval: interval,
	}
	if err := e.decisions.CreateTick(ctx, tick); err != nil {
		return nil, err
	}

	// Swing conditional orders run first so a position cannot be armed
	// and unwound inconsistently in the same pass.
	if triggered, err := e.gtt.ProcessPendingEntries(ctx); err != nil {
		e.log.WithError(err).Error("Pending swing entries failed")
	} else {
		summary.SwingTriggers = triggered
	}
	if closed, err := e.gtt.ProcessOpenPlans(ctx); err != nil {
		e.log.WithError(err).Error("Open swing plans failed")
	} else {
		summary.SwingExits = closed
	}

	symbols, err := e.daySymbols(ctx, date)
	if err != nil {
		return nil, err
	}

	snapshots := make(map[string]*marketdata.Snapshot, len(symbols))
	for _, symbol := range symbols {
		summary.SymbolsChecked++

		snap, err := e.analyzer.Analyze(symbol, interval)
		if err != nil {
			summary.SymbolsSkipped++
			e.log.WithError(err).WithField("symbol", symbol).
				Warn("Skipping symbol: analysis failed")
			continue
		}
		snapshots[symbol] = snap

		e.persistSnapshot(ctx, tick, snap, interval)

		if err := e.processSymbol(ctx, tick, cfg, date, snap, summary); err != nil {
			summary.SymbolsSkipped++
			e.log.WithError(err).WithField("symbol", symbol).
				Error("Symbol processing failed, state untouched")
		}
	}

	// Rebalance last, over the scores this tick just computed.
	action, err := e.Rebalance(ctx, tick, cfg, date, snapshots)
	if err != nil {
		e.log.WithError(err).Error("Rebalance pass failed")
	} else if action != rebalanceNone {
		summary.Rebalances = 1
	}

	e.notifier.Notify(ctx, "tick completed", fmt.Sprintf(
		"run=%s date=%s buys=%d sells=%d holds=%d rebalances=%d checked=%d skipped=%d",
		summary.RunID, summary.Date, summary.Buys, summary.Sells, summary.Holds,
		summary.Rebalances, summary.SymbolsChecked, summary.SymbolsSkipped))

	return summary, nil
}

// daySymbols prefers the day's planned watchlist. When no plan exists
// yet the first tick plans the day itself, so bootstrap ticks still get
// ranked top-N selection and audit rows. The raw configured universe is
// the last resort when planning yields nothing.
func (e *Engine) daySymbols(ctx context.Context, date time.Time) ([]string, error) {
	entries, err := e.watchlist.FindForDate(ctx, date, model.ModeIntraday)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		entries, err = e.PlanDay(ctx, date, false)
		if err != nil {
			return nil, err
		}
	}
	if len(entries) == 0 {
		return e.config.Universe(), nil
	}
	symbols := make([]string, 0, len(entries))
	for _, entry := range entries {
		symbols = append(symbols, entry.Symbol)
	}
	return symbols, nil
}

func (e *Engine) persistSnapshot(ctx context.Context, tick *model.RunTick, snap *marketdata.Snapshot, interval string) {
	row := &model.MarketSnapshot{
		RunID:      tick.RunID,
		RunTickID:  &tick.ID,
		Date:       tick.Date,
		Symbol:     snap.Symbol,
		Timestamp:  snap.CandleTime,
		Interval:   interval,
		Mode:       model.ModeIntraday,
		Open:       snap.Open,
		High:       snap.High,
		Low:        snap.Low,
		Close:      snap.Close,
		Volume:     snap.Volume,
		SMA20:      snap.SMA20,
		EMA20:      snap.EMA20,
		RSI14:      snap.RSI14,
		ATR14:      snap.ATR14,
		VolAvg20:   snap.VolAvg20,
		EMASlope:   snap.EMASlope,
		Score:      snap.Score,
		Trend:      snap.Trend,
		Indicators: snap.Features,
	}
	if err := e.decisions.CreateSnapshot(ctx, row); err != nil {
		e.log.WithError(err).WithField("symbol", snap.Symbol).
			Warn("Failed to persist market snapshot")
	}
}

// processSymbol runs the per-symbol gate sequence: open positions get
// an exit check; flat symbols walk the entry gates in fixed order
// (time cutoff, per-symbol entry cap, position cap, buy rules, sizing).
func (e *Engine) processSymbol(ctx context.Context, tick *model.RunTick, cfg *model.StrategyConfig, date time.Time, snap *marketdata.Snapshot, summary *TickSummary) error {
	open, err := e.positions.FindOpenBySymbol(ctx, snap.Symbol)
	if err != nil {
		return err
	}

	if open != nil {
		return e.checkExit(ctx, tick, cfg, snap, open, summary)
	}
	return e.checkEntry(ctx, tick, cfg, date, snap, summary)
}

func (e *Engine) checkExit(ctx context.Context, tick *model.RunTick, cfg *model.StrategyConfig, snap *marketdata.Snapshot, pos *model.PaperPosition, summary *TickSummary) error {
	last := e.lastPrice(snap.Symbol, snap.Close)
	sig := signal.TickExit(last, pos.StopPrice, pos.TargetPrice, e.now().In(calendar.Location()), cfg.TimeExitHHMM)

	if sig.Action != signal.ActionExit {
		summary.Holds++
		e.recordDecision(ctx, tick, snap, model.ActionHold, pos.Qty, last, nil, nil, sig)
		return nil
	}

	if err := e.closePosition(ctx, tick, pos, pos.Qty, last, sig.Rationale); err != nil {
		return err
	}
	summary.Sells++
	e.recordDecision(ctx, tick, snap, model.ActionSell, pos.Qty, last, &pos.StopPrice, &pos.TargetPrice, sig)
	return nil
}

func (e *Engine) checkEntry(ctx context.Context, tick *model.RunTick, cfg *model.StrategyConfig, date time.Time, snap *marketdata.Snapshot, summary *TickSummary) error {
	now := e.now().In(calendar.Location())

	// Past the daily exit cutoff no new risk goes on.
	if exitSig := signal.TickExit(snap.Close, 0, 0, now, cfg.TimeExitHHMM); exitSig.Action == signal.ActionExit {
		summary.Holds++
		e.recordDecision(ctx, tick, snap, model.ActionHold, 0, snap.Close, nil, nil,
			holdSignal("entry window closed for the day"))
		return nil
	}

	entries, err := e.positions.CountEntriesForSymbolOnDate(ctx, snap.Symbol, date)
	if err != nil {
		return err
	}
	if entries >= int64(cfg.MaxEntriesPerSymbolPerDay) {
		summary.Holds++
		e.recordDecision(ctx, tick, snap, model.ActionHold, 0, snap.Close, nil, nil,
			holdSignal("per-symbol daily entry cap reached"))
		return nil
	}

	openCount, err := e.positions.CountOpen(ctx)
	if err != nil {
		return err
	}
	if openCount >= int64(cfg.MaxPositions) {
		summary.Holds++
		e.recordDecision(ctx, tick, snap, model.ActionHold, 0, snap.Close, nil, nil,
			holdSignal("max open positions reached"))
		return nil
	}

	sig := signal.TickEntry(snap, cfg.StopPct, cfg.TargetPct)
	if sig.Action != signal.ActionBuy {
		summary.Holds++
		e.recordDecision(ctx, tick, snap, model.ActionHold, 0, snap.Close, nil, nil, sig)
		return nil
	}

	budget, err := e.ledger.Budget(ctx, date, model.ModeIntraday)
	if err != nil {
		return err
	}
	alloc := sizing.SlotAllocation(budget.Remaining, cfg.MaxPositions, int(openCount))
	qty := sizing.QtyFromCash(snap.Close, alloc)
	if qty <= 0 {
		summary.Holds++
		e.recordDecision(ctx, tick, snap, model.ActionHold, 0, snap.Close, nil, nil,
			holdSignal("sizing yielded zero quantity"))
		return nil
	}

	if err := e.openPosition(ctx, tick, date, snap, qty, sig); err != nil {
		return err
	}
	summary.Buys++
	e.recordDecision(ctx, tick, snap, model.ActionBuy, qty, snap.Close, &sig.StopLoss, &sig.TakeProfit, sig)
	return nil
}

// openPosition books the entry atomically: position row, fill row and
// ledger debit commit together or not at all.
func (e *Engine) openPosition(ctx context.Context, tick *model.RunTick, date time.Time, snap *marketdata.Snapshot, qty float64, sig signal.Signal) error {
	cost := snap.Close * qty

	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pos := &model.PaperPosition{
			Date:        date,
			Symbol:      snap.Symbol,
			Status:      model.PositionStatusOpen,
			EntryTime:   e.now(),
			EntryPrice:  snap.Close,
			Qty:         qty,
			StopPrice:   sig.StopLoss,
			TargetPrice: sig.TakeProfit,
		}
		if err := e.positions.WithDB(tx).Create(ctx, pos); err != nil {
			return err
		}

		fill := &model.PaperTransaction{
			PositionID: pos.ID,
			Date:       date,
			Symbol:     snap.Symbol,
			Side:       model.SideBuy,
			Qty:        qty,
			Price:      snap.Close,
			Timestamp:  e.now(),
		}
		if err := e.positions.WithDB(tx).CreateFill(ctx, fill); err != nil {
			return err
		}

		_, err := e.ledger.WithDB(tx).Debit(ctx, date, model.ModeIntraday, cost)
		return err
	})
}

// closePosition books a full or partial exit atomically and credits the
// proceeds back to the ledger. Partial exits shrink the position; full
// exits close it with realized PnL.
func (e *Engine) closePosition(ctx context.Context, tick *model.RunTick, pos *model.PaperPosition, qty float64, price float64, reason string) error {
	if qty <= 0 || qty > pos.Qty {
		qty = pos.Qty
	}
	proceeds := price * qty
	pnl := (price - pos.EntryPrice) * qty

	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fill := &model.PaperTransaction{
			PositionID: pos.ID,
			Date:       tick.Date,
			Symbol:     pos.Symbol,
			Side:       model.SideSell,
			Qty:        qty,
			Price:      price,
			Timestamp:  e.now(),
		}
		if err := e.positions.WithDB(tx).CreateFill(ctx, fill); err != nil {
			return err
		}

		if qty < pos.Qty {
			pos.Qty -= qty
			pos.Pnl += pnl
		} else {
			now := e.now()
			exitPrice := price
			pos.Status = model.PositionStatusClosed
			pos.ExitTime = &now
			pos.ExitPrice = &exitPrice
			pos.ExitReason = reason
			pos.Pnl += pnl
		}
		if err := e.positions.WithDB(tx).Save(ctx, pos); err != nil {
			return err
		}

		_, err := e.ledger.WithDB(tx).Credit(ctx, tick.Date, model.ModeIntraday, proceeds)
		return err
	})
}

func (e *Engine) recordDecision(ctx context.Context, tick *model.RunTick, snap *marketdata.Snapshot, action string, qty float64, price float64, stop, target *float64, sig signal.Signal) {
	reasons := map[string]any{"rationale": sig.Rationale}
	if len(sig.Reasons) > 0 {
		reasons["conditions"] = sig.Reasons
	}

	decision := &model.TradeDecision{
		RunTickID:     tick.ID,
		Symbol:        snap.Symbol,
		Action:        action,
		IntendedQty:   qty,
		IntendedPrice: price,
		StopPrice:     stop,
		TargetPrice:   target,
		Reasons:       reasons,
		Features:      snap.Features,
		Summary:       snap.Summary,
	}
	if err := e.decisions.CreateDecision(ctx, decision); err != nil {
		e.log.WithError(err).WithField("symbol", snap.Symbol).
			Warn("Failed to record trade decision")
	}
}

func holdSignal(rationale string) signal.Signal {
	return signal.Signal{Action: signal.ActionHold, Confidence: 0.5, Rationale: rationale}
}
