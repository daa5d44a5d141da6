package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	NotificationTypeSubscriptionActive = "subscription_active"
	NotificationTypeDowngrade          = "downgrade"
	NotificationTypePaymentFailed      = "payment_failed"
	NotificationTypeSystem             = "system"
)

// Notification is an in-app message shown to a subscriber.
type Notification struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      string         `gorm:"type:varchar(191);index" json:"user_id" validate:"required"`
	Type        string         `gorm:"type:varchar(50)" json:"type" validate:"oneof=subscription_active downgrade payment_failed system"`
	Title       string         `gorm:"type:varchar(200)" json:"title"`
	Content     string         `gorm:"type:text" json:"content"`
	IsRead      bool           `gorm:"default:false" json:"is_read"`
	ReferenceID string         `gorm:"type:varchar(191)" json:"reference_id"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (n *Notification) Validate() error {
	return validator.New().Struct(n)
}

// MarkAsRead marks the notification as read.
func (n *Notification) MarkAsRead(db *gorm.DB) error {
	n.IsRead = true
	return db.Model(n).Update("is_read", true).Error
}

// CreateNotification stores a new unread notification.
func CreateNotification(db *gorm.DB, userID, notificationType, title, content, referenceID string) error {
	notification := Notification{
		UserID:      userID,
		Type:        notificationType,
		Title:       title,
		Content:     content,
		ReferenceID: referenceID,
	}
	if err := notification.Validate(); err != nil {
		return err
	}

	return db.Create(&notification).Error
}
