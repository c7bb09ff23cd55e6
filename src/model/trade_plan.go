package model

import "time"

const (
	ModeIntraday = "INTRADAY"
	ModeSwing    = "SWING"
)

const (
	SideBuy  = "BUY"
	SideSell = "SELL"
	SideHold = "HOLD"
)

const (
	PlanStatusPlanned   = "PLANNED"
	PlanStatusCancelled = "CANCELLED"
	PlanStatusGTTPlaced = "GTT_PLACED"
	PlanStatusOpen      = "OPEN"
	PlanStatusClosed    = "CLOSED"
)

const (
	PlanTypeMarket = "MARKET"
	PlanTypeGTT    = "GTT"
)

// TradePlan is the authoritative lifecycle record for an intended trade.
// A symbol has at most one active (GTT_PLACED or OPEN) SWING plan; INTRADAY
// plans are scoped to their trading day.
type TradePlan struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	RunID              string         `gorm:"size:64;index" json:"run_id"`
	Date               time.Time      `gorm:"type:date;index" json:"date"`
	Symbol             string         `gorm:"size:30;index" json:"symbol"`
	Mode               string         `gorm:"size:16;not null;default:INTRADAY;index" json:"mode"`
	PlanType           string         `gorm:"size:16;not null;default:MARKET" json:"plan_type"`
	Side               string         `gorm:"size:12;not null" json:"side"`
	Qty                int            `gorm:"not null" json:"qty"`
	PriceRef           float64        `gorm:"not null" json:"price_ref"`
	StopLoss           float64        `gorm:"not null" json:"stop_loss"`
	TakeProfit         float64        `gorm:"not null" json:"take_profit"`
	GTTBuyTrigger      *float64       `json:"gtt_buy_trigger,omitempty"`
	GTTSellTrigger     *float64       `json:"gtt_sell_trigger,omitempty"`
	HoldingHorizonDays *int           `json:"holding_horizon_days,omitempty"`
	ExitRules          map[string]any `gorm:"serializer:json" json:"exit_rules,omitempty"`
	Confidence         float64        `gorm:"not null" json:"confidence"`
	Rationale          string         `gorm:"type:text;not null" json:"rationale"`
	SourcePortal       string         `gorm:"size:32;not null;default:binance;index" json:"source_portal"`
	Status             string         `gorm:"size:30;not null;default:PLANNED" json:"status"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func (TradePlan) TableName() string {
	return "trade_plans"
}

// Active reports whether the plan still holds or may still claim capital.
func (p *TradePlan) Active() bool {
	return p.Status == PlanStatusGTTPlaced || p.Status == PlanStatusOpen
}

// Terminal reports whether the plan may never mutate again.
func (p *TradePlan) Terminal() bool {
	return p.Status == PlanStatusClosed || p.Status == PlanStatusCancelled
}

// ExitRuleFloat reads a numeric entry from the exit-rule bag.
func (p *TradePlan) ExitRuleFloat(key string, fallback float64) float64 {
	if p.ExitRules == nil {
		return fallback
	}
	switch v := p.ExitRules[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return fallback
	}
}
