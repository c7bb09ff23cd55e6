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

// TradePlanRepository handles persistence for TradePlan entities.
type TradePlanRepository struct {
	db *gorm.DB
}

// NewTradePlanRepository creates a new repository instance using the main read/write database.
func NewTradePlanRepository() *TradePlanRepository {
	logger.WithField("component", "TradePlanRepository").
		Info("Creating new TradePlanRepository with MainDB")

	return &TradePlanRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *TradePlanRepository) WithDB(db *gorm.DB) *TradePlanRepository {
	return &TradePlanRepository{db: db}
}

// DB exposes the underlying handle for multi-repository transactions.
func (r *TradePlanRepository) DB() *gorm.DB {
	return r.db
}

// Create inserts a new trade plan.
func (r *TradePlanRepository) Create(ctx context.Context, plan *model.TradePlan) error {
	logger.WithFields(map[string]interface{}{
		"repo":   "TradePlanRepository",
		"op":     "Create",
		"symbol": plan.Symbol,
		"mode":   plan.Mode,
		"side":   plan.Side,
		"status": plan.Status,
	}).Debug("Creating trade plan")

	if err := r.db.WithContext(ctx).Create(plan).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradePlanRepository",
			"op":   "Create",
		}).WithError(err).Error("Failed to create trade plan")
		return err
	}
	return nil
}

// Save persists all mutated fields of an existing plan.
func (r *TradePlanRepository) Save(ctx context.Context, plan *model.TradePlan) error {
	return r.db.WithContext(ctx).Save(plan).Error
}

// FindByID fetches a plan by primary key, nil when absent.
func (r *TradePlanRepository) FindByID(ctx context.Context, id uint) (*model.TradePlan, error) {
	var plan model.TradePlan
	err := r.db.WithContext(ctx).First(&plan, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithFields(map[string]interface{}{
			"repo": "TradePlanRepository",
			"op":   "FindByID",
			"id":   id,
		}).WithError(err).Error("Failed to fetch trade plan")
		return nil, err
	}
	return &plan, nil
}

// FindActiveSwingBySymbol returns the single GTT_PLACED or OPEN swing
// plan for symbol, if one exists. At most one is ever active.
func (r *TradePlanRepository) FindActiveSwingBySymbol(ctx context.Context, symbol string) (*model.TradePlan, error) {
	var plan model.TradePlan
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND mode = ? AND status IN ?",
			symbol, model.ModeSwing,
			[]string{model.PlanStatusGTTPlaced, model.PlanStatusOpen}).
		Order("id DESC").
		First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

// FindByModeAndStatus lists plans for one mode in any of the given statuses.
func (r *TradePlanRepository) FindByModeAndStatus(ctx context.Context, mode string, statuses ...string) ([]model.TradePlan, error) {
	var plans []model.TradePlan
	err := r.db.WithContext(ctx).
		Where("mode = ? AND status IN ?", mode, statuses).
		Order("id ASC").
		Find(&plans).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "TradePlanRepository",
			"op":       "FindByModeAndStatus",
			"mode":     mode,
			"statuses": statuses,
		}).WithError(err).Error("Failed to list trade plans")
		return nil, err
	}
	return plans, nil
}

// FindByDate lists plans created for one trading day, oldest first.
func (r *TradePlanRepository) FindByDate(ctx context.Context, date time.Time) ([]model.TradePlan, error) {
	from, to := dayRange(date)
	var plans []model.TradePlan
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date < ?", from, to).
		Order("id ASC").
		Find(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}

// UpdateStatus flips a plan's status and records the reason as rationale
// when one is given. Terminal plans are never reopened by this path.
func (r *TradePlanRepository) UpdateStatus(ctx context.Context, id uint, status string, reason string) error {
	updates := map[string]interface{}{"status": status}
	if reason != "" {
		updates["rationale"] = reason
	}

	logger.WithFields(map[string]interface{}{
		"repo":   "TradePlanRepository",
		"op":     "UpdateStatus",
		"id":     id,
		"status": status,
	}).Debug("Updating trade plan status")

	return r.db.WithContext(ctx).
		Model(&model.TradePlan{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// CountEntriesForSymbolOnDate counts non-cancelled BUY plans booked for
// a symbol on a trading day. Feeds the per-symbol daily entry cap.
func (r *TradePlanRepository) CountEntriesForSymbolOnDate(ctx context.Context, symbol string, date time.Time) (int64, error) {
	from, to := dayRange(date)
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.TradePlan{}).
		Where("symbol = ? AND date >= ? AND date < ? AND side = ? AND status <> ?",
			symbol, from, to, model.SideBuy, model.PlanStatusCancelled).
		Count(&count).Error
	return count, err
}
