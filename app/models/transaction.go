package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlatformOwnerID is the ledger owner used for the platform's own revenue.
const PlatformOwnerID = "platform"

const (
	TransactionKindSubscriptionRevenue = "subscription_revenue"
	TransactionKindPlatformRevenue     = "platform_revenue"
	transactionKindCommissionPrefix    = "commission_depth_"
)

const (
	TransactionStatusCompleted = "completed"
	TransactionStatusPending   = "pending"
	TransactionStatusFailed    = "failed"
)

// Transaction is an append-only ledger entry. EntryKey is unique per
// (event, kind, owner) so that re-applying an event never appends twice.
type Transaction struct {
	ID           string    `gorm:"primaryKey;type:char(36)" json:"id"`
	EntryKey     string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_transactions_entry_key" json:"-"`
	OwnerID      string    `gorm:"type:varchar(191);not null;index:idx_transactions_owner_status,priority:1" json:"owner_id" validate:"required"`
	Kind         string    `gorm:"type:varchar(40);not null;index" json:"kind" validate:"required"`
	Depth        int       `gorm:"not null;default:0" json:"depth" validate:"min=0,max=4"`
	Amount       int64     `gorm:"not null" json:"amount" validate:"min=0"`
	Gross        int64     `gorm:"not null;default:0" json:"gross" validate:"min=0"`
	RevenueMonth string    `gorm:"type:varchar(7);not null;default:'';index" json:"revenue_month"`
	Description  string    `gorm:"type:varchar(255);default:''" json:"description"`
	SubscriberID string    `gorm:"type:varchar(191);index" json:"subscriber_id"`
	EventID      string    `gorm:"type:varchar(191);not null;index" json:"event_id" validate:"required"`
	Status       string    `gorm:"type:varchar(20);not null;default:'completed';index:idx_transactions_owner_status,priority:2" json:"status" validate:"oneof=completed pending failed"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// CommissionKind returns the ledger kind for a commission paid at depth.
func CommissionKind(depth int) string {
	return fmt.Sprintf("%s%d", transactionKindCommissionPrefix, depth)
}

// IsCommissionKind reports whether kind is a commission payout kind.
func IsCommissionKind(kind string) bool {
	return strings.HasPrefix(kind, transactionKindCommissionPrefix)
}

// TransactionEntryKey builds the idempotency key of a ledger entry.
func TransactionEntryKey(eventID, kind, ownerID string) string {
	return eventID + ":" + kind + ":" + ownerID
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = TransactionStatusCompleted
	}
	if t.EntryKey == "" {
		t.EntryKey = TransactionEntryKey(t.EventID, t.Kind, t.OwnerID)
	}
	return nil
}

var transactionValidator = validator.New()

// Validate checks the field constraints of a ledger entry before it is appended.
func (t *Transaction) Validate() error {
	return transactionValidator.Struct(t)
}
