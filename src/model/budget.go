package model

import "time"

// DailyBudget is the capital ledger row for one (date, mode).
// Invariant: Remaining == max(0, Total - Spent) after every update. Spent may
// exceed Total; the floor on Remaining is deliberate and covered by tests.
type DailyBudget struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Date      time.Time `gorm:"type:date;index:idx_budget_date_mode,unique" json:"date"`
	Mode      string    `gorm:"size:16;not null;index:idx_budget_date_mode,unique" json:"mode"`
	Total     float64   `gorm:"not null" json:"total"`
	Spent     float64   `gorm:"not null;default:0" json:"spent"`
	Remaining float64   `gorm:"not null" json:"remaining"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (DailyBudget) TableName() string {
	return "daily_budgets"
}
