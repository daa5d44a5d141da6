package models

import "time"

// ReferralEdge records who referred a creator. A nil ReferredBy marks a root.
type ReferralEdge struct {
	CreatorID    string    `gorm:"primaryKey;type:varchar(191)" json:"creator_id"`
	ReferredBy   *string   `gorm:"type:varchar(191);default:null;index" json:"referred_by,omitempty"`
	ReferralCode string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"referral_code"`
	Depth        int       `gorm:"not null;default:0" json:"depth"`
	Active       bool      `gorm:"not null;index" json:"active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Referrer returns the direct referrer of the creator, if any.
func (r *ReferralEdge) Referrer() (string, bool) {
	if r == nil || r.ReferredBy == nil || *r.ReferredBy == "" {
		return "", false
	}
	return *r.ReferredBy, true
}
