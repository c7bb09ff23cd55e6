package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	logger "github.com/sirupsen/logrus"

	"papertrader/src/repository"
)

type Config struct {
	RetentionDays int           `envconfig:"CLEANUP_RETENTION_DAYS" default:"30"`
	Interval      time.Duration `envconfig:"CLEANUP_INTERVAL" default:"6h"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

// Scheduler purges aged rank-audit rows on its own timer, fully
// decoupled from the decision pipeline. It never touches trading state.
type Scheduler struct {
	audits *repository.RankAuditRepository
	config Config
	log    *logger.Entry
}

func NewScheduler(audits *repository.RankAuditRepository, config Config) *Scheduler {
	return &Scheduler{
		audits: audits,
		config: config,
		log:    logger.WithField("component", "CleanupScheduler"),
	}
}

// Start runs the purge loop until ctx is cancelled. One purge fires
// immediately so a long-stopped instance catches up on startup.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.WithFields(map[string]interface{}{
		"retention_days": s.config.RetentionDays,
		"interval":       s.config.Interval.String(),
	}).Info("Cleanup scheduler started")

	s.purge(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Cleanup scheduler stopping")
			return
		case <-ticker.C:
			s.purge(ctx)
		}
	}
}

func (s *Scheduler) purge(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -s.config.RetentionDays)
	deleted, err := s.audits.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.log.WithError(err).Error("Retention purge failed")
		return
	}
	if deleted > 0 {
		s.log.WithField("rows_deleted", deleted).Info("Retention purge removed aged audit rows")
	}
}
