package execution

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
	"papertrader/src/ledger"
	"papertrader/src/model"
	"papertrader/src/repository"
)

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

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	plans := (&repository.TradePlanRepository{}).WithDB(db)
	txns := (&repository.TransactionRepository{}).WithDB(db)
	led := ledger.New((&repository.BudgetRepository{}).WithDB(db), ledger.Config{
		IntradayDailyTotal: 10000,
		SwingDailyTotal:    50000,
		IntradayTradeCap:   5000,
		SwingTradeCap:      10000,
	})
	return NewService(db, plans, txns, led, NewPaperBroker()), db
}

func newIntradayPlan(t *testing.T, db *gorm.DB, symbol string) *model.TradePlan {
	t.Helper()

	plan := &model.TradePlan{
		RunID:    "run-1",
		Date:     time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
		Symbol:   symbol,
		Mode:     model.ModeIntraday,
		PlanType: model.PlanTypeMarket,
		Side:     model.SideBuy,
		Qty:      4,
		PriceRef: 100,
		Status:   model.PlanStatusPlanned,
	}
	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("failed to seed plan: %v", err)
	}
	return plan
}

func TestExecuteBuyOpensPlanAndDebitsLedger(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	plan := newIntradayPlan(t, db, "BTC")

	txn, err := svc.ExecuteBuy(ctx, plan, 4, 100, nil)
	if err != nil {
		t.Fatalf("unexpected buy error: %v", err)
	}
	if txn == nil || txn.Qty != 4 || txn.EntryPrice != 100 {
		t.Fatalf("unexpected fill: %+v", txn)
	}
	if plan.Status != model.PlanStatusOpen {
		t.Fatalf("expected plan OPEN, got %s", plan.Status)
	}

	budget, err := svc.ledger.Budget(ctx, plan.Date, model.ModeIntraday)
	if err != nil {
		t.Fatalf("unexpected budget error: %v", err)
	}
	if budget.Spent != 400 || budget.Remaining != 9600 {
		t.Fatalf("ledger not debited: %+v", budget)
	}
}

func TestExecuteBuyZeroQtyCancelsPlan(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	plan := newIntradayPlan(t, db, "BTC")

	txn, err := svc.ExecuteBuy(ctx, plan, 0, 100, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txn != nil {
		t.Fatalf("expected no fill, got %+v", txn)
	}

	var stored model.TradePlan
	if err := db.First(&stored, plan.ID).Error; err != nil {
		t.Fatalf("failed to reload plan: %v", err)
	}
	if stored.Status != model.PlanStatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", stored.Status)
	}
}

func TestExecuteSellRoundTripPnl(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	plan := newIntradayPlan(t, db, "ETH")

	if _, err := svc.ExecuteBuy(ctx, plan, 4, 100, nil); err != nil {
		t.Fatalf("unexpected buy error: %v", err)
	}

	sell, err := svc.ExecuteSell(ctx, plan, 4, 103, nil, "target")
	if err != nil {
		t.Fatalf("unexpected sell error: %v", err)
	}
	if sell == nil || sell.Pnl == nil {
		t.Fatalf("expected a booked sell with pnl, got %+v", sell)
	}
	if *sell.Pnl != 12 {
		t.Fatalf("expected pnl 12, got %.4f", *sell.Pnl)
	}
	if plan.Status != model.PlanStatusClosed {
		t.Fatalf("expected plan CLOSED, got %s", plan.Status)
	}
}

func TestExecuteSellFlatPriceIsZeroPnl(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	plan := newIntradayPlan(t, db, "ETH")

	if _, err := svc.ExecuteBuy(ctx, plan, 4, 100, nil); err != nil {
		t.Fatalf("unexpected buy error: %v", err)
	}
	sell, err := svc.ExecuteSell(ctx, plan, 4, 100, nil, "time_exit")
	if err != nil {
		t.Fatalf("unexpected sell error: %v", err)
	}
	if *sell.Pnl != 0 {
		t.Fatalf("expected flat round trip pnl 0, got %.4f", *sell.Pnl)
	}
}

func TestExecuteSellCapsQtyAtOpenQty(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	plan := newIntradayPlan(t, db, "SOL")

	if _, err := svc.ExecuteBuy(ctx, plan, 4, 100, nil); err != nil {
		t.Fatalf("unexpected buy error: %v", err)
	}
	sell, err := svc.ExecuteSell(ctx, plan, 99, 101, nil, "stop_loss")
	if err != nil {
		t.Fatalf("unexpected sell error: %v", err)
	}
	if sell.Qty != 4 {
		t.Fatalf("expected sell qty capped at 4, got %d", sell.Qty)
	}
}

func TestExecuteSellWithoutEntryCancelsPlan(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	plan := newIntradayPlan(t, db, "XRP")

	sell, err := svc.ExecuteSell(ctx, plan, 1, 100, nil, "stop_loss")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sell != nil {
		t.Fatalf("expected no fill, got %+v", sell)
	}

	var stored model.TradePlan
	if err := db.First(&stored, plan.ID).Error; err != nil {
		t.Fatalf("failed to reload plan: %v", err)
	}
	if stored.Status != model.PlanStatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", stored.Status)
	}
}
