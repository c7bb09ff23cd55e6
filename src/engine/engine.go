package engine

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"papertrader/src/execution"
	"papertrader/src/gtt"
	"papertrader/src/ledger"
	"papertrader/src/marketdata"
	"papertrader/src/notify"
	"papertrader/src/ranking"
	"papertrader/src/repository"
)

// Engine is the decision pipeline: one synchronous pass per tick over
// the day's symbols, swing conditional orders first, then tick-based
// entries and exits, rebalancing last. Symbols are processed one after
// another; a single symbol's failure is skipped, never fatal.
type Engine struct {
	db        *gorm.DB
	analyzer  *marketdata.Analyzer
	ranker    *ranking.Ranker
	plans     *repository.TradePlanRepository
	positions *repository.PositionRepository
	decisions *repository.DecisionRepository
	watchlist *repository.WatchlistRepository
	audits    *repository.RankAuditRepository
	configs   *repository.StrategyConfigRepository
	ledger    *ledger.Ledger
	exec      *execution.Service
	gtt       *gtt.Service
	notifier  notify.Notifier
	stream    *marketdata.QuoteStream
	config    Config
	now       func() time.Time
	log       *logger.Entry
}

// Deps bundles the engine's collaborators. Everything is injected; the
// engine holds no global state of its own.
type Deps struct {
	DB        *gorm.DB
	Analyzer  *marketdata.Analyzer
	Ranker    *ranking.Ranker
	Plans     *repository.TradePlanRepository
	Positions *repository.PositionRepository
	Decisions *repository.DecisionRepository
	Watchlist *repository.WatchlistRepository
	Audits    *repository.RankAuditRepository
	Configs   *repository.StrategyConfigRepository
	Ledger    *ledger.Ledger
	Execution *execution.Service
	GTT       *gtt.Service
	Notifier  notify.Notifier
	Stream    *marketdata.QuoteStream
}

func New(deps Deps, config Config) *Engine {
	return &Engine{
		db:        deps.DB,
		analyzer:  deps.Analyzer,
		ranker:    deps.Ranker,
		plans:     deps.Plans,
		positions: deps.Positions,
		decisions: deps.Decisions,
		watchlist: deps.Watchlist,
		audits:    deps.Audits,
		configs:   deps.Configs,
		ledger:    deps.Ledger,
		exec:      deps.Execution,
		gtt:       deps.GTT,
		notifier:  deps.Notifier,
		stream:    deps.Stream,
		config:    config,
		now:       time.Now,
		log:       logger.WithField("component", "Engine"),
	}
}

// StartStream launches the live quote stream when one is configured.
// It returns immediately; the stream redials on its own until ctx is
// cancelled.
func (e *Engine) StartStream(ctx context.Context) {
	if e.stream == nil {
		return
	}
	go e.stream.Run(ctx)
}

// lastPrice prefers the streamed quote when one exists and falls back
// to the latest candle close.
func (e *Engine) lastPrice(symbol string, candleClose float64) float64 {
	if e.stream != nil {
		if price, ok := e.stream.LastPrice(symbol); ok && price > 0 {
			return price
		}
	}
	return candleClose
}
