package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"papertrader/src/model"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open gorm over sqlmock: %v", err)
	}
	return gormDB, mock
}

func TestTradePlanRepositoryFindByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := (&TradePlanRepository{}).WithDB(db)

	mock.ExpectQuery(`SELECT \* FROM "trade_plans"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	plan, err := repo.FindByID(context.Background(), 42)
	if err != nil {
		t.Fatalf("expected missing rows to map to nil, got %v", err)
	}
	if plan != nil {
		t.Fatalf("expected nil plan, got %+v", plan)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTradePlanRepositoryFindActiveSwingBySymbol(t *testing.T) {
	db, mock := newMockDB(t)
	repo := (&TradePlanRepository{}).WithDB(db)

	created := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "symbol", "mode", "status", "created_at"}).
		AddRow(7, "BTC", model.ModeSwing, model.PlanStatusGTTPlaced, created)

	mock.ExpectQuery(`SELECT \* FROM "trade_plans" WHERE symbol = \$1 AND mode = \$2 AND status IN \(\$3,\$4\)`).
		WithArgs("BTC", model.ModeSwing, model.PlanStatusGTTPlaced, model.PlanStatusOpen, 1).
		WillReturnRows(rows)

	plan, err := repo.FindActiveSwingBySymbol(context.Background(), "BTC")
	if err != nil || plan == nil {
		t.Fatalf("expected the active plan, got %+v err=%v", plan, err)
	}
	if plan.ID != 7 || plan.Status != model.PlanStatusGTTPlaced {
		t.Fatalf("unexpected plan: %+v", plan)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTradePlanRepositoryUpdateStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := (&TradePlanRepository{}).WithDB(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "trade_plans" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateStatus(context.Background(), 7, model.PlanStatusCancelled, "sizing yielded zero quantity")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
