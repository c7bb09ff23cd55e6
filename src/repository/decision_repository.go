package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"papertrader/src/database"
	"papertrader/src/model"
)

// DecisionRepository handles the per-tick audit trail: the tick record
// itself, every decision taken, and the indicator snapshots behind them.
type DecisionRepository struct {
	db *gorm.DB
}

func NewDecisionRepository() *DecisionRepository {
	return &DecisionRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *DecisionRepository) WithDB(db *gorm.DB) *DecisionRepository {
	return &DecisionRepository{db: db}
}

// CreateTick records the start of one pipeline invocation.
func (r *DecisionRepository) CreateTick(ctx context.Context, tick *model.RunTick) error {
	logger.WithFields(map[string]interface{}{
		"repo":   "DecisionRepository",
		"op":     "CreateTick",
		"run_id": tick.RunID,
	}).Debug("Recording run tick")

	return r.db.WithContext(ctx).Create(tick).Error
}

// CreateDecision appends one decision to the audit trail.
func (r *DecisionRepository) CreateDecision(ctx context.Context, decision *model.TradeDecision) error {
	if err := r.db.WithContext(ctx).Create(decision).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "DecisionRepository",
			"op":     "CreateDecision",
			"symbol": decision.Symbol,
			"action": decision.Action,
		}).WithError(err).Error("Failed to record trade decision")
		return err
	}
	return nil
}

// CreateSnapshot persists the indicator view behind a decision.
func (r *DecisionRepository) CreateSnapshot(ctx context.Context, snap *model.MarketSnapshot) error {
	return r.db.WithContext(ctx).Create(snap).Error
}

// FindDecisionsByDate returns the day's decisions joined through their ticks.
func (r *DecisionRepository) FindDecisionsByDate(ctx context.Context, date time.Time) ([]model.TradeDecision, error) {
	var decisions []model.TradeDecision
	from, to := dayRange(date)
	err := r.db.WithContext(ctx).
		Joins("JOIN run_ticks ON run_ticks.id = trade_decisions.run_tick_id").
		Where("run_ticks.date >= ? AND run_ticks.date < ?", from, to).
		Order("trade_decisions.id ASC").
		Find(&decisions).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "DecisionRepository",
			"op":   "FindDecisionsByDate",
			"date": date.Format("2006-01-02"),
		}).WithError(err).Error("Failed to list trade decisions")
		return nil, err
	}
	return decisions, nil
}
