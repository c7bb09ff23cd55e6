package executors

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"

	"papertrader/src/calendar"
	"papertrader/src/database"
	"papertrader/src/engine"
	"papertrader/src/execution"
	"papertrader/src/gtt"
	"papertrader/src/ledger"
	"papertrader/src/marketdata"
	"papertrader/src/notify"
	"papertrader/src/ranking"
	"papertrader/src/repository"
	"papertrader/src/utils"
)

// BuildEngine wires the full decision pipeline from configuration.
// Every collaborator is constructed here and injected; nothing inside
// the engine reaches for globals beyond the shared DB handle.
func BuildEngine() (*engine.Engine, error) {
	engineConfig := engine.GetConfig()

	provider := marketdata.NewBinanceClient()
	analyzer := marketdata.NewAnalyzer(provider)
	ranker := ranking.NewRanker(analyzer)

	plans := repository.NewTradePlanRepository()
	orders := repository.NewGTTOrderRepository()
	txns := repository.NewTransactionRepository()
	budgets := repository.NewBudgetRepository()
	positions := repository.NewPositionRepository()

	led := ledger.New(budgets, ledger.GetConfig())

	broker, err := execution.NewBroker(engineConfig.Broker)
	if err != nil {
		return nil, err
	}
	exec := execution.NewService(database.MainDB, plans, txns, led, broker)
	gttService := gtt.NewService(plans, orders, txns, exec, analyzer)

	notifier, err := notify.NewNotifier(notify.GetConfig())
	if err != nil {
		return nil, err
	}

	var stream *marketdata.QuoteStream
	marketConfig := marketdata.GetConfig()
	if marketConfig.StreamEnabled {
		stream = marketdata.NewQuoteStream(marketConfig.StreamURL, marketConfig.QuoteCurrency, engineConfig.Universe())
	}

	return engine.New(engine.Deps{
		DB:        database.MainDB,
		Analyzer:  analyzer,
		Ranker:    ranker,
		Plans:     plans,
		Positions: positions,
		Decisions: repository.NewDecisionRepository(),
		Watchlist: repository.NewWatchlistRepository(),
		Audits:    repository.NewRankAuditRepository(),
		Configs:   repository.NewStrategyConfigRepository(),
		Ledger:    led,
		Execution: exec,
		GTT:       gttService,
		Notifier:  notifier,
		Stream:    stream,
	}, engineConfig), nil
}

// StartLoop ticks the engine periodically until ctx is cancelled. The
// active configuration is re-read every tick so an operator can pause
// the engine from the database without a restart.
func StartLoop(ctx context.Context, eng *engine.Engine) error {
	config := GetConfig()

	ticker := time.NewTicker(config.LoopPeriod)
	defer ticker.Stop()

	swingTicker := time.NewTicker(config.SwingPeriod)
	defer swingTicker.Stop()

	configs := repository.NewStrategyConfigRepository()

	for {
		select {
		case <-ctx.Done():
			logger.Info("loop stopped")
			return nil

		case <-swingTicker.C:
			summary, err := eng.SwingCycle(ctx, time.Time{})
			if err != nil {
				logger.WithError(err).Error("Swing cycle failed")
				continue
			}
			logger.WithFields(map[string]interface{}{
				"run_id":     summary.RunID,
				"triggered":  summary.Triggered,
				"closed":     summary.Closed,
				"new_setups": summary.NewSetups,
			}).Info("Swing cycle completed")

		case <-ticker.C:
			tickTime := utils.AlignToMinute(calendar.Now())
			logger.WithField("tick_time", tickTime.Format(time.RFC3339)).Info("loop tick")

			cfg, err := configs.GetActive(ctx)
			if err != nil {
				logger.WithError(err).Error("Failed to load strategy config")
				continue
			}
			if !cfg.Active {
				logger.Warn("strategy disabled, skipping")
				continue
			}

			summary, err := eng.RunTick(ctx, time.Time{}, "")
			if err != nil {
				logger.WithError(err).Error("Tick failed")
				continue
			}
			logger.WithFields(map[string]interface{}{
				"run_id":     summary.RunID,
				"buys":       summary.Buys,
				"sells":      summary.Sells,
				"holds":      summary.Holds,
				"rebalances": summary.Rebalances,
				"checked":    summary.SymbolsChecked,
				"skipped":    summary.SymbolsSkipped,
			}).Info("Tick completed")
		}
	}
}
