package gtt

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"papertrader/src/database"
	"papertrader/src/execution"
	"papertrader/src/ledger"
	"papertrader/src/marketdata"
	"papertrader/src/model"
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

// risingSeries builds n daily bars climbing one point per bar with a
// constant two-point range, so ATR14 settles at exactly 2.
func risingSeries(n int, start float64) marketdata.Series {
	series := make(marketdata.Series, 0, n)
	day := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		close := start + float64(i)
		series = append(series, marketdata.Candle{
			Timestamp: day.AddDate(0, 0, i),
			Open:      close - 0.5,
			High:      close + 1,
			Low:       close - 1,
			Close:     close,
			Volume:    1000,
		})
	}
	return series
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

func newTestService(t *testing.T, db *gorm.DB, provider marketdata.Provider) *Service {
	t.Helper()

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
	return NewService(plans, orders, txns, exec, marketdata.NewAnalyzer(provider))
}

func seedSwingPlan(t *testing.T, db *gorm.DB, symbol string, trigger, stop, target float64) *model.TradePlan {
	t.Helper()

	horizon := 20
	plan := &model.TradePlan{
		RunID:              "run-1",
		Date:               time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
		Symbol:             symbol,
		Mode:               model.ModeSwing,
		PlanType:           model.PlanTypeGTT,
		Side:               model.SideBuy,
		Qty:                5,
		PriceRef:           trigger,
		StopLoss:           stop,
		TakeProfit:         target,
		GTTBuyTrigger:      &trigger,
		HoldingHorizonDays: &horizon,
		Status:             model.PlanStatusPlanned,
	}
	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("failed to seed plan: %v", err)
	}
	return plan
}

func TestPlaceEntryIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, &fakeProvider{})
	ctx := context.Background()

	plan := seedSwingPlan(t, db, "BTC", 104.2, 101.2, 112.2)

	first, err := svc.PlaceEntry(ctx, plan, 104.2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Status != model.PlanStatusGTTPlaced {
		t.Fatalf("expected GTT_PLACED, got %s", plan.Status)
	}

	second, err := svc.PlaceEntry(ctx, plan, 104.2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected the pending order to be reused, got %d and %d", first.ID, second.ID)
	}

	var count int64
	if err := db.Model(&model.GTTOrder{}).Where("trade_plan_id = ?", plan.ID).Count(&count).Error; err != nil {
		t.Fatalf("failed to count orders: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one order, got %d", count)
	}
}

func TestProcessPendingEntriesFiresOnHighCross(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{series: map[string]marketdata.Series{
		"BTC": risingSeries(70, 100), // final high 170
	}}
	svc := newTestService(t, db, provider)
	ctx := context.Background()

	plan := seedSwingPlan(t, db, "BTC", 104.2, 101.2, 112.2)
	if _, err := svc.PlaceEntry(ctx, plan, 104.2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	triggered, err := svc.ProcessPendingEntries(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if triggered != 1 {
		t.Fatalf("expected 1 trigger, got %d", triggered)
	}

	var stored model.TradePlan
	if err := db.First(&stored, plan.ID).Error; err != nil {
		t.Fatalf("failed to reload plan: %v", err)
	}
	if stored.Status != model.PlanStatusOpen {
		t.Fatalf("expected plan OPEN, got %s", stored.Status)
	}

	// The fill books at the trigger price, never the close.
	var txn model.Transaction
	if err := db.Where("trade_plan_id = ?", plan.ID).First(&txn).Error; err != nil {
		t.Fatalf("expected a booked entry: %v", err)
	}
	if txn.EntryPrice != 104.2 || txn.OrderType != model.OrderTypeGTTTrigger {
		t.Fatalf("unexpected entry fill: %+v", txn)
	}

	// A protective sell is armed at the plan's stop.
	var sell model.GTTOrder
	err = db.Where("trade_plan_id = ? AND side = ? AND status = ?",
		plan.ID, model.SideSell, model.GTTStatusPending).First(&sell).Error
	if err != nil {
		t.Fatalf("expected a pending protective sell: %v", err)
	}
	if sell.TriggerPrice != 101.2 {
		t.Fatalf("expected sell trigger at stop 101.2, got %.2f", sell.TriggerPrice)
	}
}

func TestProcessPendingEntriesSkipsBelowTrigger(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{series: map[string]marketdata.Series{
		"BTC": risingSeries(70, 100),
	}}
	svc := newTestService(t, db, provider)
	ctx := context.Background()

	plan := seedSwingPlan(t, db, "BTC", 500, 490, 520)
	if _, err := svc.PlaceEntry(ctx, plan, 500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	triggered, err := svc.ProcessPendingEntries(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if triggered != 0 {
		t.Fatalf("expected no triggers, got %d", triggered)
	}

	var stored model.TradePlan
	if err := db.First(&stored, plan.ID).Error; err != nil {
		t.Fatalf("failed to reload plan: %v", err)
	}
	if stored.Status != model.PlanStatusGTTPlaced {
		t.Fatalf("expected plan still GTT_PLACED, got %s", stored.Status)
	}
}

func TestProcessOpenPlansRatchetsTrailingInPlace(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{series: map[string]marketdata.Series{
		"ETH": risingSeries(70, 100), // final close 169, ATR14 = 2
	}}
	svc := newTestService(t, db, provider)
	ctx := context.Background()

	plan := seedSwingPlan(t, db, "ETH", 104.2, 96, 1000)
	if _, err := svc.PlaceEntry(ctx, plan, 104.2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.ProcessPendingEntries(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var before model.GTTOrder
	err := db.Where("trade_plan_id = ? AND side = ?", plan.ID, model.SideSell).First(&before).Error
	if err != nil {
		t.Fatalf("expected a pending sell: %v", err)
	}

	closed, err := svc.ProcessOpenPlans(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if closed != 0 {
		t.Fatalf("expected no close, got %d", closed)
	}

	// Same order row, new trigger: close 169 minus 1.5*ATR gives 166.
	var after model.GTTOrder
	err = db.Where("trade_plan_id = ? AND side = ?", plan.ID, model.SideSell).First(&after).Error
	if err != nil {
		t.Fatalf("expected the pending sell to survive: %v", err)
	}
	if after.ID != before.ID {
		t.Fatalf("trailing stop was recreated: order %d became %d", before.ID, after.ID)
	}
	if after.Status != model.GTTStatusPending {
		t.Fatalf("expected sell still PENDING, got %s", after.Status)
	}
	if diff := after.TriggerPrice - 166; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("expected trailing raised to 166, got %.4f", after.TriggerPrice)
	}

	var count int64
	if err := db.Model(&model.GTTOrder{}).
		Where("trade_plan_id = ? AND side = ?", plan.ID, model.SideSell).
		Count(&count).Error; err != nil {
		t.Fatalf("failed to count sell orders: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one sell order, got %d", count)
	}
}

func TestProcessOpenPlansStopTriggerClosesPlan(t *testing.T) {
	db := newTestDB(t)
	series := risingSeries(70, 100)
	// Final bar collapses: the low sweeps through any trailing stop.
	series[69].Close = 100
	series[69].High = 101
	series[69].Low = 90
	provider := &fakeProvider{series: map[string]marketdata.Series{"SOL": series}}
	svc := newTestService(t, db, provider)
	ctx := context.Background()

	plan := seedSwingPlan(t, db, "SOL", 104.2, 96, 1000)
	if _, err := svc.PlaceEntry(ctx, plan, 104.2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.ProcessPendingEntries(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	closed, err := svc.ProcessOpenPlans(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if closed != 1 {
		t.Fatalf("expected 1 close, got %d", closed)
	}

	var stored model.TradePlan
	if err := db.First(&stored, plan.ID).Error; err != nil {
		t.Fatalf("failed to reload plan: %v", err)
	}
	if stored.Status != model.PlanStatusClosed {
		t.Fatalf("expected plan CLOSED, got %s", stored.Status)
	}

	var sell model.Transaction
	err = db.Where("trade_plan_id = ? AND side = ?", plan.ID, model.SideSell).First(&sell).Error
	if err != nil {
		t.Fatalf("expected a booked sell: %v", err)
	}
	if sell.ExitPrice == nil || sell.OrderType != model.OrderTypeGTTTrigger {
		t.Fatalf("unexpected sell fill: %+v", sell)
	}
}
