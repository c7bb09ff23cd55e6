package model

import "time"

const (
	GTTStatusPending   = "PENDING"
	GTTStatusTriggered = "TRIGGERED"
	GTTStatusCancelled = "CANCELLED"
)

// GTTOrder is a good-till-triggered conditional order linked to a TradePlan.
// At most one PENDING order exists per (plan, side); the trailing-stop
// recompute mutates the pending SELL order's trigger price in place.
type GTTOrder struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	DateCreated   time.Time  `gorm:"type:date;index" json:"date_created"`
	Symbol        string     `gorm:"size:30;index" json:"symbol"`
	Side          string     `gorm:"size:10;not null" json:"side"`
	Qty           int        `gorm:"not null" json:"qty"`
	TriggerPrice  float64    `gorm:"not null" json:"trigger_price"`
	LimitPrice    *float64   `json:"limit_price,omitempty"`
	Status        string     `gorm:"size:20;not null;default:PENDING;index" json:"status"`
	TradePlanID   uint       `gorm:"index;not null" json:"trade_plan_id"`
	TriggeredAt   *time.Time `json:"triggered_at,omitempty"`
	ExecutedPrice *float64   `json:"executed_price,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (GTTOrder) TableName() string {
	return "gtt_orders"
}
