package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"papertrader/src/database"
	"papertrader/src/model"
)

// StrategyConfigRepository handles the engine's DB-backed knob set.
type StrategyConfigRepository struct {
	db *gorm.DB
}

func NewStrategyConfigRepository() *StrategyConfigRepository {
	return &StrategyConfigRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *StrategyConfigRepository) WithDB(db *gorm.DB) *StrategyConfigRepository {
	return &StrategyConfigRepository{db: db}
}

// GetActive returns the single active configuration, creating the
// default row when the table is empty.
func (r *StrategyConfigRepository) GetActive(ctx context.Context) (*model.StrategyConfig, error) {
	var config model.StrategyConfig
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("id DESC").
		First(&config).Error
	if err == nil {
		return &config, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.WithFields(map[string]interface{}{
			"repo": "StrategyConfigRepository",
			"op":   "GetActive",
		}).WithError(err).Error("Failed to fetch active strategy config")
		return nil, err
	}

	config = model.StrategyConfig{
		Active:                    true,
		Mode:                      model.ModeIntraday,
		StrategyVersion:           "momentum_v1",
		BudgetDaily:               10000,
		MaxPositions:              2,
		MonitorIntervalMin:        5,
		WarmupMinutes:             20,
		MaxEntriesPerSymbolPerDay: 1,
		TargetPct:                 1.5,
		StopPct:                   1.0,
		TimeExitHHMM:              "15:20",
		RebalancePartialThreshold: 15,
		RebalanceFullThreshold:    20,
		RebalancePartialFraction:  0.5,
		FillModel:                 "close",
	}
	if err := r.db.WithContext(ctx).Create(&config).Error; err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"repo":      "StrategyConfigRepository",
		"op":        "GetActive",
		"config_id": config.ID,
	}).Info("Default strategy config created")

	return &config, nil
}

// Activate makes one configuration row the active one. All other rows
// are deactivated in the same transaction so exactly one stays active.
func (r *StrategyConfigRepository) Activate(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.StrategyConfig{}).
			Where("active = ?", true).
			Update("active", false).Error; err != nil {
			return err
		}
		return tx.Model(&model.StrategyConfig{}).
			Where("id = ?", id).
			Update("active", true).Error
	})
}

// Save persists a mutated configuration row.
func (r *StrategyConfigRepository) Save(ctx context.Context, config *model.StrategyConfig) error {
	return r.db.WithContext(ctx).Save(config).Error
}
