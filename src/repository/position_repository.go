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

// PositionRepository handles the tick-engine position book and its
// paper fills.
type PositionRepository struct {
	db *gorm.DB
}

func NewPositionRepository() *PositionRepository {
	logger.WithField("component", "PositionRepository").
		Info("Creating new PositionRepository with MainDB")

	return &PositionRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *PositionRepository) WithDB(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// Create opens a new paper position.
func (r *PositionRepository) Create(ctx context.Context, pos *model.PaperPosition) error {
	logger.WithFields(map[string]interface{}{
		"repo":   "PositionRepository",
		"op":     "Create",
		"symbol": pos.Symbol,
		"qty":    pos.Qty,
		"price":  pos.EntryPrice,
	}).Debug("Opening paper position")

	if err := r.db.WithContext(ctx).Create(pos).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "Create",
		}).WithError(err).Error("Failed to open paper position")
		return err
	}
	return nil
}

// Save persists a mutated position row.
func (r *PositionRepository) Save(ctx context.Context, pos *model.PaperPosition) error {
	return r.db.WithContext(ctx).Save(pos).Error
}

// FindOpen lists all open positions in the order they were opened.
// Rebalance tie-breaking relies on this ordering.
func (r *PositionRepository) FindOpen(ctx context.Context) ([]model.PaperPosition, error) {
	var positions []model.PaperPosition
	err := r.db.WithContext(ctx).
		Where("status = ?", model.PositionStatusOpen).
		Order("id ASC").
		Find(&positions).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "FindOpen",
		}).WithError(err).Error("Failed to list open positions")
		return nil, err
	}
	return positions, nil
}

// FindOpenBySymbol returns the open position for symbol, nil when flat.
func (r *PositionRepository) FindOpenBySymbol(ctx context.Context, symbol string) (*model.PaperPosition, error) {
	var pos model.PaperPosition
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND status = ?", symbol, model.PositionStatusOpen).
		Order("id DESC").
		First(&pos).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pos, nil
}

// CountOpen returns how many positions are currently open.
func (r *PositionRepository) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.PaperPosition{}).
		Where("status = ?", model.PositionStatusOpen).
		Count(&count).Error
	return count, err
}

// FindByDate lists positions opened on one trading day.
func (r *PositionRepository) FindByDate(ctx context.Context, date time.Time) ([]model.PaperPosition, error) {
	from, to := dayRange(date)
	var positions []model.PaperPosition
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date < ?", from, to).
		Order("id ASC").
		Find(&positions).Error
	if err != nil {
		return nil, err
	}
	return positions, nil
}

// CountEntriesForSymbolOnDate counts BUY fills for symbol on a day.
// Feeds the per-symbol daily entry cap in the tick engine.
func (r *PositionRepository) CountEntriesForSymbolOnDate(ctx context.Context, symbol string, date time.Time) (int64, error) {
	from, to := dayRange(date)
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.PaperTransaction{}).
		Where("symbol = ? AND side = ? AND date >= ? AND date < ?",
			symbol, model.SideBuy, from, to).
		Count(&count).Error
	return count, err
}

// CreateFill books a paper fill row for a position.
func (r *PositionRepository) CreateFill(ctx context.Context, fill *model.PaperTransaction) error {
	logger.WithFields(map[string]interface{}{
		"repo":        "PositionRepository",
		"op":          "CreateFill",
		"symbol":      fill.Symbol,
		"side":        fill.Side,
		"qty":         fill.Qty,
		"position_id": fill.PositionID,
	}).Debug("Booking paper fill")

	return r.db.WithContext(ctx).Create(fill).Error
}
