package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"papertrader/src/database"
	"papertrader/src/model"
)

// RankAuditRepository handles the ranking audit rows and their
// retention purge.
type RankAuditRepository struct {
	db *gorm.DB
}

func NewRankAuditRepository() *RankAuditRepository {
	return &RankAuditRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *RankAuditRepository) WithDB(db *gorm.DB) *RankAuditRepository {
	return &RankAuditRepository{db: db}
}

// Upsert writes one audit row, replacing any previous row for the same
// (date, mode, symbol).
func (r *RankAuditRepository) Upsert(ctx context.Context, audit *model.RankAudit) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "date"}, {Name: "mode"}, {Name: "symbol"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"rank", "score", "metric", "details", "updated_at",
			}),
		}).
		Create(audit).Error
}

// FindForDate returns the day's audit rows ordered by rank.
func (r *RankAuditRepository) FindForDate(ctx context.Context, date time.Time, mode string) ([]model.RankAudit, error) {
	from, to := dayRange(date)
	var audits []model.RankAudit
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date < ? AND mode = ?", from, to, mode).
		Order("rank ASC").
		Find(&audits).Error
	if err != nil {
		return nil, err
	}
	return audits, nil
}

// DeleteOlderThan purges audit rows past the retention window and
// returns how many rows went away.
func (r *RankAuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoffDay, _ := dayRange(cutoff)
	result := r.db.WithContext(ctx).
		Where("date < ?", cutoffDay).
		Delete(&model.RankAudit{})
	if result.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "RankAuditRepository",
			"op":     "DeleteOlderThan",
			"cutoff": cutoff.Format("2006-01-02"),
		}).WithError(result.Error).Error("Failed to purge rank audits")
		return 0, result.Error
	}

	logger.WithFields(map[string]interface{}{
		"repo":         "RankAuditRepository",
		"op":           "DeleteOlderThan",
		"cutoff":       cutoff.Format("2006-01-02"),
		"rows_deleted": result.RowsAffected,
	}).Info("Rank audit retention purge completed")

	return result.RowsAffected, nil
}
