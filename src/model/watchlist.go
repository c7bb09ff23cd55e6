package model

import "time"

// WatchlistDaily pins a symbol to a trading day and mode. PlanDay writes the
// top-N ranked symbols here; RunTick reads them back.
type WatchlistDaily struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Date        time.Time `gorm:"type:date;index:idx_watchlist_date_symbol_mode,unique" json:"date"`
	Symbol      string    `gorm:"size:30;index:idx_watchlist_date_symbol_mode,unique" json:"symbol"`
	Mode        string    `gorm:"size:16;not null;default:INTRADAY;index:idx_watchlist_date_symbol_mode,unique" json:"mode"`
	Reason      string    `gorm:"size:120;default:manual" json:"reason"`
	Rank        int       `gorm:"not null;default:0" json:"rank"`
	Score       float64   `gorm:"not null;default:0" json:"score"`
	HorizonDays *int      `json:"horizon_days,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (WatchlistDaily) TableName() string {
	return "watchlist_daily"
}
