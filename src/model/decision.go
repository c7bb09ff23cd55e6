package model

import "time"

const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
	ActionHold = "HOLD"
)

// RunTick is one invocation of the tick-based decision pipeline.
type RunTick struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RunID     string    `gorm:"size:64;index" json:"run_id"`
	Date      time.Time `gorm:"type:date;index" json:"date"`
	TickTime  time.Time `json:"tick_time"`
	Interval  string    `gorm:"size:16" json:"interval"`
	CreatedAt time.Time `json:"created_at"`
}

func (RunTick) TableName() string {
	return "run_ticks"
}

// TradeDecision is the audit record for every BUY/SELL/HOLD the engine takes,
// including the rejections that never became fills.
type TradeDecision struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	RunTickID     uint           `gorm:"index;not null" json:"run_tick_id"`
	Symbol        string         `gorm:"size:30;index" json:"symbol"`
	Action        string         `gorm:"size:10;not null" json:"action"`
	IntendedQty   float64        `gorm:"not null" json:"intended_qty"`
	IntendedPrice float64        `gorm:"not null" json:"intended_price"`
	StopPrice     *float64       `json:"stop_price,omitempty"`
	TargetPrice   *float64       `json:"target_price,omitempty"`
	Reasons       map[string]any `gorm:"serializer:json" json:"reasons,omitempty"`
	Features      map[string]any `gorm:"serializer:json" json:"features,omitempty"`
	Summary       string         `gorm:"type:text" json:"summary"`
	CreatedAt     time.Time      `json:"created_at"`
}

func (TradeDecision) TableName() string {
	return "trade_decisions"
}

// MarketSnapshot persists the indicator view of one symbol at one tick.
type MarketSnapshot struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	RunID      string         `gorm:"size:64;index" json:"run_id"`
	RunTickID  *uint          `gorm:"index" json:"run_tick_id,omitempty"`
	Date       time.Time      `gorm:"type:date;index" json:"date"`
	Symbol     string         `gorm:"size:30;index" json:"symbol"`
	Timestamp  time.Time      `json:"timestamp"`
	Interval   string         `gorm:"size:10" json:"interval"`
	Mode       string         `gorm:"size:16;not null;default:INTRADAY;index" json:"mode"`
	Open       float64        `json:"open"`
	High       float64        `json:"high"`
	Low        float64        `json:"low"`
	Close      float64        `gorm:"not null" json:"close"`
	Volume     float64        `json:"volume"`
	SMA20      float64        `gorm:"column:sma20" json:"sma20"`
	EMA20      float64        `gorm:"column:ema20" json:"ema20"`
	SMA50      *float64       `gorm:"column:sma50" json:"sma50,omitempty"`
	EMA50      *float64       `gorm:"column:ema50" json:"ema50,omitempty"`
	RSI14      float64        `gorm:"column:rsi14" json:"rsi14"`
	ATR14      float64        `gorm:"column:atr14" json:"atr14"`
	MACD       *float64       `json:"macd,omitempty"`
	MACDSignal *float64       `json:"macd_signal,omitempty"`
	VolAvg20   float64        `gorm:"column:vol_avg20" json:"vol_avg20"`
	EMASlope   float64        `gorm:"column:ema_slope" json:"ema_slope"`
	Score      float64        `gorm:"not null;default:0" json:"score"`
	Trend      string         `gorm:"size:20" json:"trend"`
	Indicators map[string]any `gorm:"serializer:json" json:"indicators,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (MarketSnapshot) TableName() string {
	return "market_snapshots"
}
