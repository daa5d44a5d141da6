// Package notify delivers subscriber-facing notifications produced by the
// reconciliation handlers.
package notify

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ManuelReschke/CreatorPay/app/models"
)

// Message is a notification addressed to one subscriber.
type Message struct {
	UserID      string `json:"user_id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	ReferenceID string `json:"reference_id,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, msg Message) error

func (f NotifierFunc) Notify(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Nop discards every message.
var Nop Notifier = NotifierFunc(func(context.Context, Message) error { return nil })

// StoreNotifier persists in-app notifications.
type StoreNotifier struct {
	db *gorm.DB
}

func NewStoreNotifier(db *gorm.DB) *StoreNotifier {
	return &StoreNotifier{db: db}
}

func (s *StoreNotifier) Notify(ctx context.Context, msg Message) error {
	return models.CreateNotification(s.db.WithContext(ctx), msg.UserID, msg.Type, msg.Title, msg.Content, msg.ReferenceID)
}

// Fanout delivers to every notifier and joins their errors.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
