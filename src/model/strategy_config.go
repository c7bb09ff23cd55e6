package model

import "time"

// StrategyConfig is the DB-backed knob set for the tick-based engine.
// Exactly one row is active at a time; GetActive creates the default row on
// first use.
type StrategyConfig struct {
	ID                        uint      `gorm:"primaryKey" json:"id"`
	Active                    bool      `gorm:"not null;default:true;index" json:"active"`
	Mode                      string    `gorm:"size:16;not null;default:INTRADAY" json:"mode"`
	StrategyVersion           string    `gorm:"size:40;not null;default:momentum_v1" json:"strategy_version"`
	BudgetDaily               float64   `gorm:"not null" json:"budget_daily"`
	MaxPositions              int       `gorm:"not null;default:2" json:"max_positions"`
	MonitorIntervalMin        int       `gorm:"not null;default:5" json:"monitor_interval_min"`
	WarmupMinutes             int       `gorm:"not null;default:20" json:"warmup_minutes"`
	MaxEntriesPerSymbolPerDay int       `gorm:"not null;default:1" json:"max_entries_per_symbol_per_day"`
	TargetPct                 float64   `gorm:"not null;default:1.5" json:"target_pct"`
	StopPct                   float64   `gorm:"not null;default:1.0" json:"stop_pct"`
	TimeExitHHMM              string    `gorm:"size:5;not null;default:15:20" json:"time_exit_hhmm"`
	RebalancePartialThreshold float64   `gorm:"not null;default:15" json:"rebalance_partial_threshold"`
	RebalanceFullThreshold    float64   `gorm:"not null;default:20" json:"rebalance_full_threshold"`
	RebalancePartialFraction  float64   `gorm:"not null;default:0.5" json:"rebalance_partial_fraction"`
	FillModel                 string    `gorm:"size:20;not null;default:close" json:"fill_model"`
	CreatedAt                 time.Time `json:"created_at"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

func (StrategyConfig) TableName() string {
	return "strategy_configs"
}
