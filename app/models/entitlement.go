package models

import "time"

const (
	EntitlementStatusActive   = "active"
	EntitlementStatusPastDue  = "past_due"
	EntitlementStatusCanceled = "canceled"
	EntitlementStatusInactive = "inactive"
)

// Entitlement is the authoritative tier/status record of a subscriber. It is
// only written by the reconciliation handlers.
type Entitlement struct {
	SubscriberID            string     `gorm:"primaryKey;type:varchar(191)" json:"subscriber_id"`
	CreatorID               string     `gorm:"type:varchar(191);index" json:"creator_id"`
	Tier                    string     `gorm:"type:varchar(20);not null;default:'free'" json:"tier"`
	Status                  string     `gorm:"type:varchar(20);not null;default:'inactive';index" json:"status"`
	ProcessorCustomerID     string     `gorm:"type:varchar(191);default:''" json:"processor_customer_id"`
	ProcessorSubscriptionID string     `gorm:"type:varchar(191);default:'';index" json:"processor_subscription_id"`
	LastEventAt             *time.Time `gorm:"type:timestamp;default:null" json:"last_event_at,omitempty"`
	CreatedAt               time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsStale reports whether an event created at eventAt is older than the last
// event already applied to this record.
func (e *Entitlement) IsStale(eventAt time.Time) bool {
	if e.LastEventAt == nil || eventAt.IsZero() {
		return false
	}
	return eventAt.Before(*e.LastEventAt)
}

// Touch records eventAt as the newest applied event.
func (e *Entitlement) Touch(eventAt time.Time) {
	if eventAt.IsZero() {
		return
	}
	if e.LastEventAt == nil || eventAt.After(*e.LastEventAt) {
		t := eventAt.UTC()
		e.LastEventAt = &t
	}
}
