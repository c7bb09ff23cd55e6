package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"papertrader/src/model"
	"papertrader/src/repository"
)

// Ledger tracks per-day, per-mode capital. Every mutation keeps the
// conservation invariant: remaining == max(0, total - spent). Spent may
// exceed total; only remaining is floored.
type Ledger struct {
	budgets *repository.BudgetRepository
	config  Config
	log     *logger.Entry
}

func New(budgets *repository.BudgetRepository, config Config) *Ledger {
	return &Ledger{
		budgets: budgets,
		config:  config,
		log:     logger.WithField("component", "Ledger"),
	}
}

// WithDB rebinds the ledger onto another handle, usually a transaction,
// so a fill's debit commits atomically with its plan and fill rows.
func (l *Ledger) WithDB(db *gorm.DB) *Ledger {
	return &Ledger{budgets: l.budgets.WithDB(db), config: l.config, log: l.log}
}

func (l *Ledger) defaultTotal(mode string) float64 {
	if mode == model.ModeSwing {
		return l.config.SwingDailyTotal
	}
	return l.config.IntradayDailyTotal
}

// TradeCap returns the per-trade allocation cap for a mode.
func (l *Ledger) TradeCap(mode string) float64 {
	if mode == model.ModeSwing {
		return l.config.SwingTradeCap
	}
	return l.config.IntradayTradeCap
}

// Budget returns the (date, mode) ledger row, creating it on first use.
func (l *Ledger) Budget(ctx context.Context, date time.Time, mode string) (*model.DailyBudget, error) {
	return l.budgets.GetOrCreate(ctx, date, mode, l.defaultTotal(mode))
}

// Debit books a buy against the day's budget.
func (l *Ledger) Debit(ctx context.Context, date time.Time, mode string, amount float64) (*model.DailyBudget, error) {
	if amount < 0 {
		return nil, fmt.Errorf("debit amount must be non-negative, got %.2f", amount)
	}

	budget, err := l.Budget(ctx, date, mode)
	if err != nil {
		return nil, err
	}

	budget.Spent = round2(decimal.NewFromFloat(budget.Spent).Add(decimal.NewFromFloat(amount)))
	budget.Remaining = clampRemaining(budget.Total, budget.Spent)

	if err := l.budgets.Save(ctx, budget); err != nil {
		return nil, err
	}

	l.log.WithFields(map[string]interface{}{
		"mode":      mode,
		"amount":    amount,
		"spent":     budget.Spent,
		"remaining": budget.Remaining,
	}).Info("Budget debited")

	return budget, nil
}

// Credit books sell proceeds back into the day's budget. Only the
// tick-based model returns capital intraday.
func (l *Ledger) Credit(ctx context.Context, date time.Time, mode string, amount float64) (*model.DailyBudget, error) {
	if amount < 0 {
		return nil, fmt.Errorf("credit amount must be non-negative, got %.2f", amount)
	}

	budget, err := l.Budget(ctx, date, mode)
	if err != nil {
		return nil, err
	}

	budget.Spent = round2(decimal.NewFromFloat(budget.Spent).Sub(decimal.NewFromFloat(amount)))
	if budget.Spent < 0 {
		budget.Spent = 0
	}
	budget.Remaining = clampRemaining(budget.Total, budget.Spent)

	if err := l.budgets.Save(ctx, budget); err != nil {
		return nil, err
	}

	l.log.WithFields(map[string]interface{}{
		"mode":      mode,
		"amount":    amount,
		"spent":     budget.Spent,
		"remaining": budget.Remaining,
	}).Info("Budget credited")

	return budget, nil
}

func clampRemaining(total, spent float64) float64 {
	remaining := round2(decimal.NewFromFloat(total).Sub(decimal.NewFromFloat(spent)))
	if remaining < 0 {
		return 0
	}
	return remaining
}

func round2(d decimal.Decimal) float64 {
	v, _ := d.Round(2).Float64()
	return v
}
