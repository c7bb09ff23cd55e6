package model

import "time"

const (
	OrderTypeMarket     = "MARKET"
	OrderTypeGTTTrigger = "GTT_TRIGGER"
)

// Transaction is an immutable record of a simulated fill. PnL is set only on
// the exit transaction; the matching entry row is never rewritten.
type Transaction struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	TradePlanID     uint           `gorm:"index;not null" json:"trade_plan_id"`
	Date            time.Time      `gorm:"type:date;index" json:"date"`
	Symbol          string         `gorm:"size:30;index" json:"symbol"`
	Side            string         `gorm:"size:10;not null" json:"side"`
	Qty             int            `gorm:"not null" json:"qty"`
	Mode            string         `gorm:"size:16;not null;default:INTRADAY;index" json:"mode"`
	OrderType       string         `gorm:"size:20;not null;default:MARKET" json:"order_type"`
	SourcePortal    string         `gorm:"size:32;not null;default:binance;index" json:"source_portal"`
	ExecutionPortal string         `gorm:"size:32;not null;default:paper;index" json:"execution_portal"`
	GTTOrderID      *uint          `gorm:"index" json:"gtt_order_id,omitempty"`
	EntryPrice      float64        `gorm:"not null" json:"entry_price"`
	ExitPrice       *float64       `json:"exit_price,omitempty"`
	Pnl             *float64       `json:"pnl,omitempty"`
	Notes           string         `gorm:"type:text" json:"notes,omitempty"`
	Features        map[string]any `gorm:"serializer:json" json:"features,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}
