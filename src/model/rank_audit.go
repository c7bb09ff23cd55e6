package model

import "time"

// RankAudit stores one ranked row of a day's universe scan. Rows are purged
// by the retention scheduler and never referenced by trading state.
type RankAudit struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Date      time.Time      `gorm:"type:date;index:idx_rank_audit_date_mode_symbol,unique" json:"date"`
	Mode      string         `gorm:"size:16;index:idx_rank_audit_date_mode_symbol,unique" json:"mode"`
	Symbol    string         `gorm:"size:30;index:idx_rank_audit_date_mode_symbol,unique" json:"symbol"`
	Rank      int            `gorm:"not null" json:"rank"`
	Score     float64        `gorm:"not null;default:0" json:"score"`
	Metric    string         `gorm:"size:40;not null" json:"metric"`
	Details   map[string]any `gorm:"serializer:json" json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (RankAudit) TableName() string {
	return "rank_audits"
}
