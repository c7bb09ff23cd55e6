package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"papertrader/src/database"
	"papertrader/src/model"
)

// GTTOrderRepository handles persistence for conditional orders.
type GTTOrderRepository struct {
	db *gorm.DB
}

func NewGTTOrderRepository() *GTTOrderRepository {
	logger.WithField("component", "GTTOrderRepository").
		Info("Creating new GTTOrderRepository with MainDB")

	return &GTTOrderRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *GTTOrderRepository) WithDB(db *gorm.DB) *GTTOrderRepository {
	return &GTTOrderRepository{db: db}
}

// Create inserts a new conditional order.
func (r *GTTOrderRepository) Create(ctx context.Context, order *model.GTTOrder) error {
	logger.WithFields(map[string]interface{}{
		"repo":    "GTTOrderRepository",
		"op":      "Create",
		"plan_id": order.TradePlanID,
		"side":    order.Side,
		"trigger": order.TriggerPrice,
	}).Debug("Creating GTT order")

	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "GTTOrderRepository",
			"op":   "Create",
		}).WithError(err).Error("Failed to create GTT order")
		return err
	}
	return nil
}

// Save persists all mutated fields of an existing order.
func (r *GTTOrderRepository) Save(ctx context.Context, order *model.GTTOrder) error {
	return r.db.WithContext(ctx).Save(order).Error
}

// FindPendingForPlan returns the single PENDING order for (plan, side),
// nil when none exists.
func (r *GTTOrderRepository) FindPendingForPlan(ctx context.Context, planID uint, side string) (*model.GTTOrder, error) {
	var order model.GTTOrder
	err := r.db.WithContext(ctx).
		Where("trade_plan_id = ? AND side = ? AND status = ?", planID, side, model.GTTStatusPending).
		Order("id DESC").
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// FindPendingBySide lists all PENDING orders for one side, oldest first.
func (r *GTTOrderRepository) FindPendingBySide(ctx context.Context, side string) ([]model.GTTOrder, error) {
	var orders []model.GTTOrder
	err := r.db.WithContext(ctx).
		Where("side = ? AND status = ?", side, model.GTTStatusPending).
		Order("id ASC").
		Find(&orders).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "GTTOrderRepository",
			"op":   "FindPendingBySide",
			"side": side,
		}).WithError(err).Error("Failed to list pending GTT orders")
		return nil, err
	}
	return orders, nil
}

// UpdateTriggerPrice mutates the trigger level of a pending order in
// place. Trailing-stop recomputes reuse the same row.
func (r *GTTOrderRepository) UpdateTriggerPrice(ctx context.Context, id uint, trigger float64) error {
	logger.WithFields(map[string]interface{}{
		"repo":    "GTTOrderRepository",
		"op":      "UpdateTriggerPrice",
		"id":      id,
		"trigger": trigger,
	}).Debug("Updating GTT trigger price")

	return r.db.WithContext(ctx).
		Model(&model.GTTOrder{}).
		Where("id = ? AND status = ?", id, model.GTTStatusPending).
		Update("trigger_price", trigger).Error
}

// CancelPendingForPlan cancels every PENDING order attached to a plan.
func (r *GTTOrderRepository) CancelPendingForPlan(ctx context.Context, planID uint) error {
	return r.db.WithContext(ctx).
		Model(&model.GTTOrder{}).
		Where("trade_plan_id = ? AND status = ?", planID, model.GTTStatusPending).
		Update("status", model.GTTStatusCancelled).Error
}
