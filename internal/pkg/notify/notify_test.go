package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CreatorPay/app/models"
)

type fakeChannel struct {
	declared  []string
	published []amqp.Publishing
	keys      []string
	err       error
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	f.declared = append(f.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func TestPushPublisherDeclaresOnceAndPublishesJSON(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPushPublisher(ch)

	msg := Message{UserID: "sub_1", Type: models.NotificationTypeDowngrade, Title: "Subscription ended"}
	require.NoError(t, p.Notify(context.Background(), msg))
	require.NoError(t, p.Notify(context.Background(), msg))

	assert.Equal(t, []string{PushQueue}, ch.declared)
	require.Len(t, ch.published, 2)
	assert.Equal(t, PushQueue, ch.keys[0])
	assert.Equal(t, amqp.Persistent, ch.published[0].DeliveryMode)

	var decoded Message
	require.NoError(t, json.Unmarshal(ch.published[0].Body, &decoded))
	assert.Equal(t, msg, decoded)
}

func TestFanoutJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	var delivered int
	f := Fanout{
		NotifierFunc(func(context.Context, Message) error { delivered++; return nil }),
		NotifierFunc(func(context.Context, Message) error { return boom }),
		nil,
		NotifierFunc(func(context.Context, Message) error { delivered++; return nil }),
	}
	err := f.Notify(context.Background(), Message{UserID: "u"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, delivered)
}

func TestStoreNotifierPersistsRow(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Notification{}))

	n := NewStoreNotifier(db)
	require.NoError(t, n.Notify(context.Background(), Message{
		UserID: "sub_1", Type: models.NotificationTypePaymentFailed, Title: "Payment failed", ReferenceID: "in_1",
	}))

	var rows []models.Notification
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "sub_1", rows[0].UserID)
	assert.False(t, rows[0].IsRead)

	err = n.Notify(context.Background(), Message{UserID: "sub_1", Type: "bogus"})
	assert.Error(t, err)
}
