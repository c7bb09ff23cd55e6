package repository

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"papertrader/src/database"
	"papertrader/src/model"
)

// TransactionRepository handles the append-only fill records.
type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository() *TransactionRepository {
	logger.WithField("component", "TransactionRepository").
		Info("Creating new TransactionRepository with MainDB")

	return &TransactionRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *TransactionRepository) WithDB(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create books a simulated fill. Rows are never mutated afterwards.
func (r *TransactionRepository) Create(ctx context.Context, txn *model.Transaction) error {
	logger.WithFields(map[string]interface{}{
		"repo":    "TransactionRepository",
		"op":      "Create",
		"symbol":  txn.Symbol,
		"side":    txn.Side,
		"qty":     txn.Qty,
		"plan_id": txn.TradePlanID,
	}).Debug("Booking transaction")

	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TransactionRepository",
			"op":   "Create",
		}).WithError(err).Error("Failed to book transaction")
		return err
	}
	return nil
}

// FindEntryByPlan returns the BUY fill booked for a plan, nil when the
// plan never filled. Swing sells match against their own entry.
func (r *TransactionRepository) FindEntryByPlan(ctx context.Context, planID uint) (*model.Transaction, error) {
	var txn model.Transaction
	err := r.db.WithContext(ctx).
		Where("trade_plan_id = ? AND side = ?", planID, model.SideBuy).
		Order("id ASC").
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// FindLatestOpenBuy returns the most recent BUY for symbol whose plan is
// still OPEN. Intraday sells match against the latest open entry.
func (r *TransactionRepository) FindLatestOpenBuy(ctx context.Context, symbol string) (*model.Transaction, error) {
	var txn model.Transaction
	err := r.db.WithContext(ctx).
		Joins("JOIN trade_plans ON trade_plans.id = transactions.trade_plan_id").
		Where("transactions.symbol = ? AND transactions.side = ? AND trade_plans.status = ?",
			symbol, model.SideBuy, model.PlanStatusOpen).
		Order("transactions.id DESC").
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithFields(map[string]interface{}{
			"repo":   "TransactionRepository",
			"op":     "FindLatestOpenBuy",
			"symbol": symbol,
		}).WithError(err).Error("Failed to find open entry")
		return nil, err
	}
	return &txn, nil
}

// FindByDate lists fills booked on one trading day, oldest first.
func (r *TransactionRepository) FindByDate(ctx context.Context, date time.Time) ([]model.Transaction, error) {
	from, to := dayRange(date)
	var txns []model.Transaction
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date < ?", from, to).
		Order("id ASC").
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}
