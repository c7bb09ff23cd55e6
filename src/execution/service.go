package execution

import (
	"context"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"papertrader/src/ledger"
	"papertrader/src/model"
	"papertrader/src/repository"
)

// Service books simulated fills. Every fill commits its transaction
// row, ledger mutation and plan status flip atomically; a failure in
// any of the three rolls back all of them.
type Service struct {
	db     *gorm.DB
	plans  *repository.TradePlanRepository
	txns   *repository.TransactionRepository
	ledger *ledger.Ledger
	broker Broker
	log    *logger.Entry
}

func NewService(db *gorm.DB, plans *repository.TradePlanRepository, txns *repository.TransactionRepository, led *ledger.Ledger, broker Broker) *Service {
	return &Service{
		db:     db,
		plans:  plans,
		txns:   txns,
		ledger: led,
		broker: broker,
		log:    logger.WithField("component", "ExecutionService"),
	}
}

// ExecuteBuy fills a BUY plan at the reference price, debits the ledger
// by qty*price and flips the plan to OPEN. A non-positive quantity
// cancels the plan instead; this is a reported rejection, not an error.
func (s *Service) ExecuteBuy(ctx context.Context, plan *model.TradePlan, qty int, price float64, gttOrderID *uint) (*model.Transaction, error) {
	if qty <= 0 {
		s.log.WithFields(map[string]interface{}{
			"plan_id": plan.ID,
			"symbol":  plan.Symbol,
		}).Warn("Buy rejected: zero quantity, cancelling plan")

		if err := s.plans.UpdateStatus(ctx, plan.ID, model.PlanStatusCancelled, "sizing yielded zero quantity"); err != nil {
			return nil, err
		}
		plan.Status = model.PlanStatusCancelled
		return nil, nil
	}

	fill, err := s.broker.Buy(ctx, plan.Symbol, qty, price)
	if err != nil {
		return nil, err
	}

	orderType := model.OrderTypeMarket
	if gttOrderID != nil {
		orderType = model.OrderTypeGTTTrigger
	}

	txn := &model.Transaction{
		TradePlanID: plan.ID,
		Date:        plan.Date,
		Symbol:      plan.Symbol,
		Side:        model.SideBuy,
		Qty:         fill.Qty,
		Mode:        plan.Mode,
		OrderType:   orderType,
		GTTOrderID:  gttOrderID,
		EntryPrice:  fill.Price,
	}

	cost := mulRound(fill.Price, fill.Qty)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.txns.WithDB(tx).Create(ctx, txn); err != nil {
			return err
		}
		if _, err := s.ledger.WithDB(tx).Debit(ctx, plan.Date, plan.Mode, cost); err != nil {
			return err
		}
		return s.plans.WithDB(tx).UpdateStatus(ctx, plan.ID, model.PlanStatusOpen, "")
	})
	if err != nil {
		s.log.WithError(err).WithField("plan_id", plan.ID).Error("Buy fill aborted")
		return nil, err
	}

	plan.Status = model.PlanStatusOpen

	s.log.WithFields(map[string]interface{}{
		"plan_id": plan.ID,
		"symbol":  plan.Symbol,
		"qty":     fill.Qty,
		"price":   fill.Price,
		"cost":    cost,
	}).Info("Buy executed")

	return txn, nil
}

// ExecuteSell closes a plan's position at the reference price. The
// matching entry is the plan's own BUY for swing mode and the latest
// open BUY for the symbol in intraday mode. Quantity is capped at the
// open quantity; a sell with no matching entry cancels the plan and
// returns nil without booking anything.
func (s *Service) ExecuteSell(ctx context.Context, plan *model.TradePlan, qty int, price float64, gttOrderID *uint, reason string) (*model.Transaction, error) {
	entry, err := s.matchEntry(ctx, plan)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		s.log.WithFields(map[string]interface{}{
			"plan_id": plan.ID,
			"symbol":  plan.Symbol,
		}).Warn("Sell rejected: no matching open position, cancelling plan")

		if err := s.plans.UpdateStatus(ctx, plan.ID, model.PlanStatusCancelled, "no matching open position for sell"); err != nil {
			return nil, err
		}
		plan.Status = model.PlanStatusCancelled
		return nil, nil
	}

	if qty <= 0 || qty > entry.Qty {
		qty = entry.Qty
	}

	fill, err := s.broker.Sell(ctx, plan.Symbol, qty, price)
	if err != nil {
		return nil, err
	}

	pnl := round4(decimal.NewFromFloat(fill.Price).
		Sub(decimal.NewFromFloat(entry.EntryPrice)).
		Mul(decimal.NewFromInt(int64(fill.Qty))))
	exitPrice := fill.Price

	orderType := model.OrderTypeMarket
	if gttOrderID != nil {
		orderType = model.OrderTypeGTTTrigger
	}

	txn := &model.Transaction{
		TradePlanID: plan.ID,
		Date:        plan.Date,
		Symbol:      plan.Symbol,
		Side:        model.SideSell,
		Qty:         fill.Qty,
		Mode:        plan.Mode,
		OrderType:   orderType,
		GTTOrderID:  gttOrderID,
		EntryPrice:  entry.EntryPrice,
		ExitPrice:   &exitPrice,
		Pnl:         &pnl,
		Notes:       reason,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.txns.WithDB(tx).Create(ctx, txn); err != nil {
			return err
		}
		return s.plans.WithDB(tx).UpdateStatus(ctx, plan.ID, model.PlanStatusClosed, reason)
	})
	if err != nil {
		s.log.WithError(err).WithField("plan_id", plan.ID).Error("Sell fill aborted")
		return nil, err
	}

	plan.Status = model.PlanStatusClosed

	s.log.WithFields(map[string]interface{}{
		"plan_id": plan.ID,
		"symbol":  plan.Symbol,
		"qty":     fill.Qty,
		"entry":   entry.EntryPrice,
		"exit":    fill.Price,
		"pnl":     pnl,
	}).Info("Sell executed")

	return txn, nil
}

func (s *Service) matchEntry(ctx context.Context, plan *model.TradePlan) (*model.Transaction, error) {
	if plan.Mode == model.ModeSwing {
		return s.txns.FindEntryByPlan(ctx, plan.ID)
	}
	return s.txns.FindLatestOpenBuy(ctx, plan.Symbol)
}

func mulRound(price float64, qty int) float64 {
	v, _ := decimal.NewFromFloat(price).
		Mul(decimal.NewFromInt(int64(qty))).
		Round(2).Float64()
	return v
}

func round4(d decimal.Decimal) float64 {
	v, _ := d.Round(4).Float64()
	return v
}
