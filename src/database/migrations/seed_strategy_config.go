package migrations

import (
	"fmt"

	"gorm.io/gorm"

	"papertrader/src/model"
)

// seedDefaultStrategyConfig makes sure a fresh database starts with one
// active configuration row so the engine can run without manual setup.
func seedDefaultStrategyConfig(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.StrategyConfig{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count strategy configs: %w", err)
	}
	if count > 0 {
		return nil
	}

	config := model.StrategyConfig{
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
	if err := db.Create(&config).Error; err != nil {
		return fmt.Errorf("seed default strategy config: %w", err)
	}
	return nil
}
