package model

import (
	"time"

	"github.com/lib/pq"
)

type ReportKind string

const (
	ReportLowStock   ReportKind = "low_stock"
	ReportDailySales ReportKind = "daily_sales"
)

// ReportSubscription configures who receives a scheduled report email
type ReportSubscription struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	Kind       ReportKind     `gorm:"type:varchar(30);uniqueIndex;not null" json:"kind"`
	Recipients pq.StringArray `gorm:"type:text[];default:'{}';not null" json:"recipients"`
	Enabled    bool           `gorm:"default:true" json:"enabled"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (ReportSubscription) TableName() string {
	return "report_subscriptions"
}
