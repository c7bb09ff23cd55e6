package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"papertrader/src/marketdata"
	"papertrader/src/model"
	"papertrader/src/signal"
	"papertrader/src/sizing"
)

// Rebalance action codes.
const (
	rebalanceNone     = 0
	rebalanceSellOnly = 1
	rebalanceSwap     = 2
)

// Rebalance compares open positions against the tick's unheld
// candidates and conditionally swaps out the globally weakest holding.
// Returns the number of rebalance actions taken (0 or 1 per tick).
func (e *Engine) Rebalance(ctx context.Context, tick *model.RunTick, cfg *model.StrategyConfig, date time.Time, snapshots map[string]*marketdata.Snapshot) (int, error) {
	open, err := e.positions.FindOpen(ctx)
	if err != nil {
		return 0, err
	}
	if len(open) == 0 {
		return 0, nil
	}

	held := make(map[string]bool, len(open))
	for _, pos := range open {
		held[pos.Symbol] = true
	}

	// Candidates must pass the momentum gate and not already be held.
	// Symbols are walked in sorted order so score ties resolve the same
	// way every tick.
	symbols := make([]string, 0, len(snapshots))
	for symbol := range snapshots {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	var best *marketdata.Snapshot
	for _, symbol := range symbols {
		snap := snapshots[symbol]
		if held[snap.Symbol] || !snap.BuyOK {
			continue
		}
		if best == nil || snap.Score > best.Score {
			best = snap
		}
	}
	if best == nil {
		return 0, nil
	}

	// Weakest by score; a holding with no snapshot this tick scores 0,
	// so stale positions are always first out. Ties resolve to the
	// earliest-opened position because FindOpen returns holding order
	// and the comparison is strict.
	var weakest *model.PaperPosition
	weakestScore := 0.0
	for i := range open {
		score := 0.0
		if snap, ok := snapshots[open[i].Symbol]; ok {
			score = snap.Score
		}
		if weakest == nil || score < weakestScore {
			weakest = &open[i]
			weakestScore = score
		}
	}

	improvement := improvementPct(weakestScore, best.Score)
	if improvement <= cfg.RebalancePartialThreshold {
		return 0, nil
	}

	full := improvement > cfg.RebalanceFullThreshold
	sellQty := weakest.Qty
	if !full {
		sellQty = weakest.Qty * cfg.RebalancePartialFraction
		// A partial sell keeps the weak position open, so adding the
		// candidate must not push us above the position cap.
		if len(held)+1 > cfg.MaxPositions {
			e.log.WithFields(map[string]interface{}{
				"weakest":     weakest.Symbol,
				"candidate":   best.Symbol,
				"improvement": improvement,
			}).Info("Partial rebalance skipped: would exceed max positions")
			return 0, nil
		}
	}

	// No snapshot for the weakest means no current price; the exit
	// falls back to the entry price, booking flat.
	weakSnap := snapshots[weakest.Symbol]
	sellPrice := weakest.EntryPrice
	if weakSnap != nil {
		sellPrice = e.lastPrice(weakest.Symbol, weakSnap.Close)
	} else {
		weakSnap = &marketdata.Snapshot{Symbol: weakest.Symbol, Close: sellPrice}
	}
	proceeds := sellPrice * sellQty

	reason := fmt.Sprintf("rebalance: score %.1f vs candidate %s %.1f (%.1f%% improvement)",
		weakestScore, best.Symbol, best.Score, improvement)
	if err := e.closePosition(ctx, tick, weakest, sellQty, sellPrice, reason); err != nil {
		return 0, err
	}
	e.recordDecision(ctx, tick, weakSnap, model.ActionSell, sellQty, sellPrice, nil, nil,
		holdSignalWithAction(signal.ActionSell, reason))

	// Per-symbol daily entry cap still applies to the funded buy.
	entries, err := e.positions.CountEntriesForSymbolOnDate(ctx, best.Symbol, date)
	if err != nil {
		return rebalanceSellOnly, err
	}
	if entries >= int64(cfg.MaxEntriesPerSymbolPerDay) {
		e.log.WithField("symbol", best.Symbol).
			Info("Rebalance buy skipped: daily entry cap reached, sell stands")
		return rebalanceSellOnly, nil
	}

	buyPrice := e.lastPrice(best.Symbol, best.Close)
	buyQty := sizing.QtyFromCash(buyPrice, proceeds)
	if buyQty <= 0 {
		e.log.WithField("symbol", best.Symbol).
			Info("Rebalance proceeds buy zero quantity, sell stands")
		return rebalanceSellOnly, nil
	}

	buySig := signal.TickEntry(best, cfg.StopPct, cfg.TargetPct)
	if buySig.Action != signal.ActionBuy {
		// Gate passed earlier via BuyOK; recompute only for risk prices.
		buySig.StopLoss = buyPrice * (1 - cfg.StopPct/100)
		buySig.TakeProfit = buyPrice * (1 + cfg.TargetPct/100)
	}
	if err := e.openPosition(ctx, tick, date, best, buyQty, buySig); err != nil {
		return rebalanceSellOnly, err
	}
	e.recordDecision(ctx, tick, best, model.ActionBuy, buyQty, buyPrice, &buySig.StopLoss, &buySig.TakeProfit,
		holdSignalWithAction(signal.ActionBuy, reason))

	e.log.WithFields(map[string]interface{}{
		"sold":        weakest.Symbol,
		"bought":      best.Symbol,
		"full":        full,
		"improvement": improvement,
		"proceeds":    proceeds,
	}).Info("Rebalance executed")

	return rebalanceSwap, nil
}

// improvementPct measures how much stronger the candidate scores than
// the weakest holding, as a percentage of the weakest score.
func improvementPct(weakest, best float64) float64 {
	if weakest <= 0 {
		if best > 0 {
			return 100
		}
		return 0
	}
	return (best - weakest) / weakest * 100
}

func holdSignalWithAction(action, rationale string) signal.Signal {
	return signal.Signal{Action: action, Confidence: 1, Rationale: rationale}
}
