package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"papertrader/src/database"
	"papertrader/src/execution"
	"papertrader/src/gtt"
	"papertrader/src/ledger"
	"papertrader/src/marketdata"
	"papertrader/src/model"
	"papertrader/src/notify"
	"papertrader/src/ranking"
	"papertrader/src/repository"
)

type fakeProvider struct {
	series map[string]marketdata.Series
}

func (p *fakeProvider) FetchOHLCV(symbol, interval string, limit int) (marketdata.Series, error) {
	series, ok := p.series[symbol]
	if !ok {
		return nil, marketdata.ErrNoData
	}
	return series, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

func newTestEngine(t *testing.T, db *gorm.DB, provider marketdata.Provider) *Engine {
	t.Helper()

	analyzer := marketdata.NewAnalyzer(provider)
	plans := (&repository.TradePlanRepository{}).WithDB(db)
	orders := (&repository.GTTOrderRepository{}).WithDB(db)
	txns := (&repository.TransactionRepository{}).WithDB(db)
	led := ledger.New((&repository.BudgetRepository{}).WithDB(db), ledger.Config{
		IntradayDailyTotal: 10000,
		SwingDailyTotal:    50000,
		IntradayTradeCap:   5000,
		SwingTradeCap:      10000,
	})
	exec := execution.NewService(db, plans, txns, led, execution.NewPaperBroker())

	return New(Deps{
		DB:        db,
		Analyzer:  analyzer,
		Ranker:    ranking.NewRanker(analyzer),
		Plans:     plans,
		Positions: (&repository.PositionRepository{}).WithDB(db),
		Decisions: (&repository.DecisionRepository{}).WithDB(db),
		Watchlist: (&repository.WatchlistRepository{}).WithDB(db),
		Audits:    (&repository.RankAuditRepository{}).WithDB(db),
		Configs:   (&repository.StrategyConfigRepository{}).WithDB(db),
		Ledger:    led,
		Execution: exec,
		GTT:       gtt.NewService(plans, orders, txns, exec, analyzer),
		Notifier:  notify.NewLogNotifier(),
	}, Config{Symbols: "AAA,BBB,CCC", Interval: "5m", WatchlistSize: 5, Broker: "paper"})
}

func testStrategyConfig() *model.StrategyConfig {
	return &model.StrategyConfig{
		Active:                    true,
		Mode:                      model.ModeIntraday,
		BudgetDaily:               10000,
		MaxPositions:              2,
		MaxEntriesPerSymbolPerDay: 1,
		TargetPct:                 1.5,
		StopPct:                   1.0,
		TimeExitHHMM:              "15:20",
		RebalancePartialThreshold: 15,
		RebalanceFullThreshold:    20,
		RebalancePartialFraction:  0.5,
	}
}

func seedTick(t *testing.T, db *gorm.DB, date time.Time) *model.RunTick {
	t.Helper()

	tick := &model.RunTick{RunID: "run-1", Date: date, TickTime: date, Interval: "5m"}
	if err := db.Create(tick).Error; err != nil {
		t.Fatalf("failed to seed tick: %v", err)
	}
	return tick
}

func seedOpenPosition(t *testing.T, db *gorm.DB, date time.Time, symbol string, qty, entry float64) *model.PaperPosition {
	t.Helper()

	pos := &model.PaperPosition{
		Date:        date,
		Symbol:      symbol,
		Status:      model.PositionStatusOpen,
		EntryTime:   date,
		EntryPrice:  entry,
		Qty:         qty,
		StopPrice:   entry * 0.99,
		TargetPrice: entry * 1.015,
	}
	if err := db.Create(pos).Error; err != nil {
		t.Fatalf("failed to seed position: %v", err)
	}
	return pos
}

func snap(symbol string, score, close float64, buyOK bool) *marketdata.Snapshot {
	return &marketdata.Snapshot{
		Symbol: symbol,
		Close:  close,
		Score:  score,
		BuyOK:  buyOK,
	}
}

func TestImprovementPct(t *testing.T) {
	tests := []struct {
		name    string
		weakest float64
		best    float64
		want    float64
	}{
		{"normal", 40, 70, 75},
		{"weakest zero", 0, 70, 100},
		{"both zero", 0, 0, 0},
		{"no improvement", 60, 60, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := improvementPct(tt.weakest, tt.best)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("improvement mismatch. got=%.4f want=%.4f", got, tt.want)
			}
		})
	}
}

func TestRebalanceFullSwap(t *testing.T) {
	db := newTestDB(t)
	eng := newTestEngine(t, db, &fakeProvider{})
	ctx := context.Background()
	date := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

	tick := seedTick(t, db, date)
	weak := seedOpenPosition(t, db, date, "AAA", 2, 100)
	seedOpenPosition(t, db, date, "BBB", 3, 50)

	snapshots := map[string]*marketdata.Snapshot{
		"AAA": snap("AAA", 40, 100, false),
		"BBB": snap("BBB", 60, 50, false),
		"CCC": snap("CCC", 70, 10, true),
	}

	// 40 -> 70 is a 75% improvement, past the full threshold.
	action, err := eng.Rebalance(ctx, tick, testStrategyConfig(), date, snapshots)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action != rebalanceSwap {
		t.Fatalf("expected swap (2), got %d", action)
	}

	var sold model.PaperPosition
	if err := db.First(&sold, weak.ID).Error; err != nil {
		t.Fatalf("failed to reload weak position: %v", err)
	}
	if sold.Status != model.PositionStatusClosed {
		t.Fatalf("expected weakest closed, got %s", sold.Status)
	}

	var bought model.PaperPosition
	err = db.Where("symbol = ? AND status = ?", "CCC", model.PositionStatusOpen).First(&bought).Error
	if err != nil {
		t.Fatalf("expected a funded CCC position: %v", err)
	}
	// Proceeds 2*100 buy 20 units at 10.
	if math.Abs(bought.Qty-20) > 1e-9 {
		t.Fatalf("expected qty 20 from proceeds, got %.6f", bought.Qty)
	}

	var decisions int64
	if err := db.Model(&model.TradeDecision{}).Where("run_tick_id = ?", tick.ID).Count(&decisions).Error; err != nil {
		t.Fatalf("failed to count decisions: %v", err)
	}
	if decisions != 2 {
		t.Fatalf("expected a SELL and a BUY decision, got %d", decisions)
	}
}

func TestRebalancePartialSkippedAtPositionCap(t *testing.T) {
	db := newTestDB(t)
	eng := newTestEngine(t, db, &fakeProvider{})
	ctx := context.Background()
	date := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

	tick := seedTick(t, db, date)
	seedOpenPosition(t, db, date, "AAA", 2, 100)
	seedOpenPosition(t, db, date, "BBB", 3, 50)

	// 40 -> 47 is 17.5%: above partial, below full. A partial sell
	// keeps AAA open, so the funded buy would be a third position.
	snapshots := map[string]*marketdata.Snapshot{
		"AAA": snap("AAA", 40, 100, false),
		"BBB": snap("BBB", 60, 50, false),
		"CCC": snap("CCC", 47, 10, true),
	}

	action, err := eng.Rebalance(ctx, tick, testStrategyConfig(), date, snapshots)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action != rebalanceNone {
		t.Fatalf("expected no action at position cap, got %d", action)
	}

	var open int64
	if err := db.Model(&model.PaperPosition{}).Where("status = ?", model.PositionStatusOpen).Count(&open).Error; err != nil {
		t.Fatalf("failed to count positions: %v", err)
	}
	if open != 2 {
		t.Fatalf("expected both positions untouched, got %d open", open)
	}
}

func TestRebalanceBelowThresholdDoesNothing(t *testing.T) {
	db := newTestDB(t)
	eng := newTestEngine(t, db, &fakeProvider{})
	ctx := context.Background()
	date := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

	tick := seedTick(t, db, date)
	seedOpenPosition(t, db, date, "AAA", 2, 100)

	snapshots := map[string]*marketdata.Snapshot{
		"AAA": snap("AAA", 60, 100, false),
		"CCC": snap("CCC", 65, 10, true), // 8.3% improvement
	}

	action, err := eng.Rebalance(ctx, tick, testStrategyConfig(), date, snapshots)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action != rebalanceNone {
		t.Fatalf("expected no action, got %d", action)
	}
}

func TestRunTickNonTradingDayIsNoOp(t *testing.T) {
	db := newTestDB(t)
	eng := newTestEngine(t, db, &fakeProvider{})

	// A Sunday.
	sunday := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	summary, err := eng.RunTick(context.Background(), sunday, "5m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !summary.NoOp {
		t.Fatal("expected a no-op tick")
	}

	var ticks int64
	if err := db.Model(&model.RunTick{}).Count(&ticks).Error; err != nil {
		t.Fatalf("failed to count ticks: %v", err)
	}
	if ticks != 0 {
		t.Fatalf("expected no tick row on a non-trading day, got %d", ticks)
	}
}

func TestRebalanceStaleHoldingWithoutSnapshot(t *testing.T) {
	db := newTestDB(t)
	eng := newTestEngine(t, db, &fakeProvider{})
	ctx := context.Background()
	date := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

	tick := seedTick(t, db, date)
	// AAA produced no snapshot this tick: it scores 0 and is always the
	// weakest, and its exit falls back to the entry price.
	stale := seedOpenPosition(t, db, date, "AAA", 2, 100)

	snapshots := map[string]*marketdata.Snapshot{
		"CCC": snap("CCC", 70, 10, true),
	}

	action, err := eng.Rebalance(ctx, tick, testStrategyConfig(), date, snapshots)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action != rebalanceSwap {
		t.Fatalf("expected the stale holding swapped out, got %d", action)
	}

	var sold model.PaperPosition
	if err := db.First(&sold, stale.ID).Error; err != nil {
		t.Fatalf("failed to reload stale position: %v", err)
	}
	if sold.Status != model.PositionStatusClosed {
		t.Fatalf("expected stale holding closed, got %s", sold.Status)
	}
	if sold.ExitPrice == nil || *sold.ExitPrice != 100 {
		t.Fatalf("expected exit at entry price, got %v", sold.ExitPrice)
	}
	if sold.Pnl != 0 {
		t.Fatalf("expected a flat fallback exit, got pnl %.2f", sold.Pnl)
	}

	var bought model.PaperPosition
	err = db.Where("symbol = ? AND status = ?", "CCC", model.PositionStatusOpen).First(&bought).Error
	if err != nil {
		t.Fatalf("expected a funded CCC position: %v", err)
	}
	if math.Abs(bought.Qty-20) > 1e-9 {
		t.Fatalf("expected qty 20 from proceeds, got %.6f", bought.Qty)
	}
}

func TestRebalancePartialExecutes(t *testing.T) {
	db := newTestDB(t)
	eng := newTestEngine(t, db, &fakeProvider{})
	ctx := context.Background()
	date := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

	tick := seedTick(t, db, date)
	weak := seedOpenPosition(t, db, date, "AAA", 2, 100)

	// 40 -> 47 is 17.5%: above partial, below full, and with a single
	// holding there is a free slot for the funded buy.
	snapshots := map[string]*marketdata.Snapshot{
		"AAA": snap("AAA", 40, 100, false),
		"CCC": snap("CCC", 47, 10, true),
	}

	action, err := eng.Rebalance(ctx, tick, testStrategyConfig(), date, snapshots)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action != rebalanceSwap {
		t.Fatalf("expected a partial swap, got %d", action)
	}

	var trimmed model.PaperPosition
	if err := db.First(&trimmed, weak.ID).Error; err != nil {
		t.Fatalf("failed to reload weak position: %v", err)
	}
	if trimmed.Status != model.PositionStatusOpen {
		t.Fatalf("expected weak position still open, got %s", trimmed.Status)
	}
	if math.Abs(trimmed.Qty-1) > 1e-9 {
		t.Fatalf("expected half the position sold, got qty %.6f", trimmed.Qty)
	}

	var bought model.PaperPosition
	err = db.Where("symbol = ? AND status = ?", "CCC", model.PositionStatusOpen).First(&bought).Error
	if err != nil {
		t.Fatalf("expected a funded CCC position: %v", err)
	}
	// Proceeds 1*100 buy 10 units at 10.
	if math.Abs(bought.Qty-10) > 1e-9 {
		t.Fatalf("expected qty 10 from proceeds, got %.6f", bought.Qty)
	}
}

func TestRebalanceCandidateTieIsDeterministic(t *testing.T) {
	db := newTestDB(t)
	eng := newTestEngine(t, db, &fakeProvider{})
	ctx := context.Background()
	date := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

	tick := seedTick(t, db, date)
	seedOpenPosition(t, db, date, "AAA", 2, 100)

	// Equal-scoring candidates: the first in symbol order wins.
	snapshots := map[string]*marketdata.Snapshot{
		"AAA": snap("AAA", 40, 100, false),
		"BBB": snap("BBB", 70, 10, true),
		"CCC": snap("CCC", 70, 10, true),
	}

	action, err := eng.Rebalance(ctx, tick, testStrategyConfig(), date, snapshots)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action != rebalanceSwap {
		t.Fatalf("expected a swap, got %d", action)
	}

	var bought model.PaperPosition
	err = db.Where("status = ? AND symbol != ?", model.PositionStatusOpen, "AAA").First(&bought).Error
	if err != nil {
		t.Fatalf("expected a funded candidate position: %v", err)
	}
	if bought.Symbol != "BBB" {
		t.Fatalf("expected the tie broken toward BBB, got %s", bought.Symbol)
	}
}
