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

// BudgetRepository handles persistence for per-day, per-mode budgets.
type BudgetRepository struct {
	db *gorm.DB
}

func NewBudgetRepository() *BudgetRepository {
	logger.WithField("component", "BudgetRepository").
		Info("Creating new BudgetRepository with MainDB")

	return &BudgetRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *BudgetRepository) WithDB(db *gorm.DB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

// GetOrCreate returns the budget row for (date, mode), creating it with
// the given total on first touch of the day.
func (r *BudgetRepository) GetOrCreate(ctx context.Context, date time.Time, mode string, total float64) (*model.DailyBudget, error) {
	day := date.Format("2006-01-02")
	from, to := dayRange(date)

	var budget model.DailyBudget
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date < ? AND mode = ?", from, to, mode).
		First(&budget).Error
	if err == nil {
		return &budget, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.WithFields(map[string]interface{}{
			"repo": "BudgetRepository",
			"op":   "GetOrCreate",
			"date": day,
			"mode": mode,
		}).WithError(err).Error("Failed to fetch daily budget")
		return nil, err
	}

	budget = model.DailyBudget{
		Date:      date,
		Mode:      mode,
		Total:     total,
		Spent:     0,
		Remaining: total,
	}
	if err := r.db.WithContext(ctx).Create(&budget).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "BudgetRepository",
			"op":   "GetOrCreate",
			"date": day,
			"mode": mode,
		}).WithError(err).Error("Failed to create daily budget")
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"repo":  "BudgetRepository",
		"op":    "GetOrCreate",
		"date":  day,
		"mode":  mode,
		"total": total,
	}).Info("Daily budget created")

	return &budget, nil
}

// Save persists a mutated budget row.
func (r *BudgetRepository) Save(ctx context.Context, budget *model.DailyBudget) error {
	return r.db.WithContext(ctx).Save(budget).Error
}

// FindByDate returns all budget rows for one trading day.
func (r *BudgetRepository) FindByDate(ctx context.Context, date time.Time) ([]model.DailyBudget, error) {
	from, to := dayRange(date)
	var budgets []model.DailyBudget
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date < ?", from, to).
		Find(&budgets).Error
	if err != nil {
		return nil, err
	}
	return budgets, nil
}
