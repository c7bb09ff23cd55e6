package gtt

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"

	"papertrader/src/execution"
	"papertrader/src/marketdata"
	"papertrader/src/model"
	"papertrader/src/repository"
	"papertrader/src/signal"
)

// Service drives the conditional-order side of swing plans: arming
// entry triggers, firing them against daily candles, and trailing the
// protective sell order of open positions.
type Service struct {
	plans    *repository.TradePlanRepository
	orders   *repository.GTTOrderRepository
	txns     *repository.TransactionRepository
	exec     *execution.Service
	analyzer *marketdata.Analyzer
	now      func() time.Time
	log      *logger.Entry
}

func NewService(plans *repository.TradePlanRepository, orders *repository.GTTOrderRepository, txns *repository.TransactionRepository, exec *execution.Service, analyzer *marketdata.Analyzer) *Service {
	return &Service{
		plans:    plans,
		orders:   orders,
		txns:     txns,
		exec:     exec,
		analyzer: analyzer,
		now:      time.Now,
		log:      logger.WithField("component", "GTTService"),
	}
}

// PlaceEntry arms a conditional BUY for a planned swing setup. The plan
// flips to GTT_PLACED. If a pending BUY already exists for the plan it
// is reused; one PENDING order per (plan, side) is the invariant.
func (s *Service) PlaceEntry(ctx context.Context, plan *model.TradePlan, trigger float64) (*model.GTTOrder, error) {
	existing, err := s.orders.FindPendingForPlan(ctx, plan.ID, model.SideBuy)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	order := &model.GTTOrder{
		DateCreated:  plan.Date,
		Symbol:       plan.Symbol,
		Side:         model.SideBuy,
		Qty:          plan.Qty,
		TriggerPrice: trigger,
		Status:       model.GTTStatusPending,
		TradePlanID:  plan.ID,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}
	if err := s.plans.UpdateStatus(ctx, plan.ID, model.PlanStatusGTTPlaced, ""); err != nil {
		return nil, err
	}
	plan.Status = model.PlanStatusGTTPlaced

	s.log.WithFields(map[string]interface{}{
		"plan_id": plan.ID,
		"symbol":  plan.Symbol,
		"trigger": trigger,
		"qty":     plan.Qty,
	}).Info("Entry GTT placed")

	return order, nil
}

// ProcessPendingEntries checks every pending BUY trigger against the
// latest daily candle. A trigger fires when the candle high crosses it;
// the fill books at the trigger price, not the close. After the entry
// fills, a pending SELL is armed at the plan's stop-loss.
func (s *Service) ProcessPendingEntries(ctx context.Context) (int, error) {
	pending, err := s.orders.FindPendingBySide(ctx, model.SideBuy)
	if err != nil {
		return 0, err
	}

	triggered := 0
	for i := range pending {
		order := &pending[i]

		plan, err := s.plans.FindByID(ctx, order.TradePlanID)
		if err != nil {
			return triggered, err
		}
		if plan == nil || plan.Status != model.PlanStatusGTTPlaced {
			continue
		}

		frame, err := s.analyzer.AnalyzeSwing(order.Symbol)
		if err != nil {
			s.log.WithError(err).WithField("symbol", order.Symbol).
				Warn("Skipping pending entry: market data unavailable")
			continue
		}
		if frame.High < order.TriggerPrice {
			continue
		}

		txn, err := s.exec.ExecuteBuy(ctx, plan, order.Qty, order.TriggerPrice, &order.ID)
		if err != nil {
			s.log.WithError(err).WithField("plan_id", plan.ID).Error("Entry trigger fill failed")
			continue
		}
		if txn == nil {
			// plan was cancelled by the rejection path
			if err := s.orders.CancelPendingForPlan(ctx, plan.ID); err != nil {
				return triggered, err
			}
			continue
		}

		now := s.now()
		order.Status = model.GTTStatusTriggered
		order.TriggeredAt = &now
		order.ExecutedPrice = &order.TriggerPrice
		if err := s.orders.Save(ctx, order); err != nil {
			return triggered, err
		}

		if _, err := s.placeExit(ctx, plan, plan.StopLoss); err != nil {
			return triggered, err
		}
		triggered++
	}

	return triggered, nil
}

func (s *Service) placeExit(ctx context.Context, plan *model.TradePlan, trigger float64) (*model.GTTOrder, error) {
	existing, err := s.orders.FindPendingForPlan(ctx, plan.ID, model.SideSell)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	order := &model.GTTOrder{
		DateCreated:  plan.Date,
		Symbol:       plan.Symbol,
		Side:         model.SideSell,
		Qty:          plan.Qty,
		TriggerPrice: trigger,
		Status:       model.GTTStatusPending,
		TradePlanID:  plan.ID,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}

	s.log.WithFields(map[string]interface{}{
		"plan_id": plan.ID,
		"symbol":  plan.Symbol,
		"trigger": trigger,
	}).Info("Protective sell GTT placed")

	return order, nil
}

// ProcessOpenPlans re-evaluates every OPEN swing plan: the trailing
// stop ratchets up on the existing pending SELL (mutated in place,
// never recreated), then the conditional trigger is checked before the
// unconditional exit signal. Whichever fires first closes the plan.
func (s *Service) ProcessOpenPlans(ctx context.Context) (int, error) {
	plans, err := s.plans.FindByModeAndStatus(ctx, model.ModeSwing, model.PlanStatusOpen)
	if err != nil {
		return 0, err
	}

	closed := 0
	for i := range plans {
		plan := &plans[i]

		frame, err := s.analyzer.AnalyzeSwing(plan.Symbol)
		if err != nil {
			s.log.WithError(err).WithField("symbol", plan.Symbol).
				Warn("Skipping open plan: market data unavailable")
			continue
		}

		didClose, err := s.evaluateOpenPlan(ctx, plan, frame)
		if err != nil {
			s.log.WithError(err).WithField("plan_id", plan.ID).Error("Open plan evaluation failed")
			continue
		}
		if didClose {
			closed++
		}
	}

	return closed, nil
}

func (s *Service) evaluateOpenPlan(ctx context.Context, plan *model.TradePlan, frame *marketdata.SwingFrame) (bool, error) {
	entry, err := s.txns.FindEntryByPlan(ctx, plan.ID)
	if err != nil {
		return false, err
	}

	holdingDays := 0
	if entry != nil {
		holdingDays = int(s.now().Sub(entry.CreatedAt).Hours() / 24)
	}
	horizon := 20
	if plan.HoldingHorizonDays != nil {
		horizon = *plan.HoldingHorizonDays
	}

	sellOrder, err := s.orders.FindPendingForPlan(ctx, plan.ID, model.SideSell)
	if err != nil {
		return false, err
	}

	trailing := plan.StopLoss
	if sellOrder != nil {
		trailing = sellOrder.TriggerPrice
	}

	sig := signal.SwingExit(frame, holdingDays, horizon, trailing, plan.TakeProfit)

	// Ratchet the trailing stop on the existing order. Same row, new
	// trigger; an unchanged candle leaves it untouched.
	if sellOrder != nil && sig.Trailing > sellOrder.TriggerPrice {
		if err := s.orders.UpdateTriggerPrice(ctx, sellOrder.ID, sig.Trailing); err != nil {
			return false, err
		}
		sellOrder.TriggerPrice = sig.Trailing
	}

	// Conditional trigger first: candle low crossing the stop fills at
	// the trigger price.
	if sellOrder != nil && frame.Low <= sellOrder.TriggerPrice {
		txn, err := s.exec.ExecuteSell(ctx, plan, sellOrder.Qty, sellOrder.TriggerPrice, &sellOrder.ID, "stop trigger")
		if err != nil {
			return false, err
		}
		now := s.now()
		sellOrder.Status = model.GTTStatusTriggered
		sellOrder.TriggeredAt = &now
		sellOrder.ExecutedPrice = &sellOrder.TriggerPrice
		if err := s.orders.Save(ctx, sellOrder); err != nil {
			return false, err
		}
		if err := s.orders.CancelPendingForPlan(ctx, plan.ID); err != nil {
			return false, err
		}
		return txn != nil, nil
	}

	if sig.Action == signal.ActionExit {
		txn, err := s.exec.ExecuteSell(ctx, plan, plan.Qty, frame.Close, nil, sig.Rationale)
		if err != nil {
			return false, err
		}
		if err := s.orders.CancelPendingForPlan(ctx, plan.ID); err != nil {
			return false, err
		}
		return txn != nil, nil
	}

	return false, nil
}
