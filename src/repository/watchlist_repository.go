package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"papertrader/src/database"
	"papertrader/src/model"
)

// WatchlistRepository handles the per-day ranked symbol list.
type WatchlistRepository struct {
	db *gorm.DB
}

func NewWatchlistRepository() *WatchlistRepository {
	return &WatchlistRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *WatchlistRepository) WithDB(db *gorm.DB) *WatchlistRepository {
	return &WatchlistRepository{db: db}
}

// ReplaceForDate swaps the day's watchlist atomically. An empty entry
// slice just clears the day.
func (r *WatchlistRepository) ReplaceForDate(ctx context.Context, date time.Time, mode string, entries []model.WatchlistDaily) error {
	from, to := dayRange(date)

	logger.WithFields(map[string]interface{}{
		"repo":    "WatchlistRepository",
		"op":      "ReplaceForDate",
		"date":    date.Format("2006-01-02"),
		"mode":    mode,
		"entries": len(entries),
	}).Info("Replacing daily watchlist")

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("date >= ? AND date < ? AND mode = ?", from, to, mode).
			Delete(&model.WatchlistDaily{}).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		return tx.Create(&entries).Error
	})
}

// FindForDate returns the day's watchlist ordered by rank.
func (r *WatchlistRepository) FindForDate(ctx context.Context, date time.Time, mode string) ([]model.WatchlistDaily, error) {
	from, to := dayRange(date)
	var entries []model.WatchlistDaily
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date < ? AND mode = ?", from, to, mode).
		Order("rank ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
