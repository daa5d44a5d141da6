package models

import "time"

// CreatorSummary is the cached financial aggregate of a creator (or of the
// platform sentinel). It is maintained by atomic increments and can be rebuilt
// from the transaction log.
type CreatorSummary struct {
	CreatorID        string    `gorm:"primaryKey;type:varchar(191)" json:"creator_id"`
	AvailableBalance int64     `gorm:"not null;default:0" json:"available_balance"`
	TotalEarnings    int64     `gorm:"not null;default:0" json:"total_earnings"`
	MonthlyRevenue   int64     `gorm:"not null;default:0" json:"monthly_revenue"`
	DirectEarnings   int64     `gorm:"not null;default:0" json:"direct_earnings"`
	NetworkEarnings  int64     `gorm:"not null;default:0" json:"network_earnings"`
	RevenueMonth     string    `gorm:"type:varchar(7);not null;default:''" json:"revenue_month"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
