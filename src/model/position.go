package model

import "time"

const (
	PositionStatusOpen   = "OPEN"
	PositionStatusClosed = "CLOSED"
)

// PaperPosition is an open or closed holding of the tick-based intraday
// engine. Quantities are fractional; partial rebalance sells shrink Qty.
type PaperPosition struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Date        time.Time  `gorm:"type:date;index" json:"date"`
	Symbol      string     `gorm:"size:30;index" json:"symbol"`
	Status      string     `gorm:"size:20;not null;default:OPEN;index" json:"status"`
	EntryTime   time.Time  `json:"entry_time"`
	EntryPrice  float64    `gorm:"not null" json:"entry_price"`
	Qty         float64    `gorm:"not null" json:"qty"`
	StopPrice   float64    `gorm:"not null" json:"stop_price"`
	TargetPrice float64    `gorm:"not null" json:"target_price"`
	ExitTime    *time.Time `json:"exit_time,omitempty"`
	ExitPrice   *float64   `json:"exit_price,omitempty"`
	ExitReason  string     `gorm:"size:120" json:"exit_reason,omitempty"`
	Pnl         float64    `gorm:"not null;default:0" json:"pnl"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (PaperPosition) TableName() string {
	return "paper_positions"
}

// PaperTransaction is one simulated fill against a PaperPosition.
type PaperTransaction struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PositionID uint      `gorm:"index;not null" json:"position_id"`
	DecisionID *uint     `gorm:"index" json:"decision_id,omitempty"`
	Date       time.Time `gorm:"type:date;index" json:"date"`
	Symbol     string    `gorm:"size:30;index" json:"symbol"`
	Side       string    `gorm:"size:10;not null" json:"side"`
	Qty        float64   `gorm:"not null" json:"qty"`
	Price      float64   `gorm:"not null" json:"price"`
	Timestamp  time.Time `json:"timestamp"`
	Mode       string    `gorm:"size:16;not null;default:paper" json:"mode"`
	CreatedAt  time.Time `json:"created_at"`
}

func (PaperTransaction) TableName() string {
	return "paper_transactions"
}
