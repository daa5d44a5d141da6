package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	amqp "github.com/rabbitmq/amqp091-go"
)

// PushQueue is the queue consumed by the push delivery service.
const PushQueue = "creatorpay_push_notifications"

// Channel is the subset of *amqp.Channel used for publishing.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitMQConfig holds broker connection settings.
type RabbitMQConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	VHost    string
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/%s", c.Username, c.Password, c.Host, c.Port, c.VHost)
}

// Connection holds the RabbitMQ connection and channel.
type Connection struct {
	Connection *amqp.Connection
	Channel    *amqp.Channel
}

// ConnectRabbitMQ establishes a connection to RabbitMQ.
func ConnectRabbitMQ(cfg RabbitMQConfig) (*Connection, error) {
	conn, err := amqp.Dial(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	log.Infof("[Notify] connected to RabbitMQ at %s:%s", cfg.Host, cfg.Port)
	return &Connection{Connection: conn, Channel: ch}, nil
}

func (c *Connection) Close() error {
	if c.Channel != nil {
		if err := c.Channel.Close(); err != nil {
			log.Errorf("[Notify] failed to close RabbitMQ channel: %v", err)
		}
	}
	if c.Connection != nil {
		return c.Connection.Close()
	}
	return nil
}

// PushPublisher publishes notifications to the push queue.
type PushPublisher struct {
	ch       Channel
	queue    string
	declared bool
}

func NewPushPublisher(ch Channel) *PushPublisher {
	return &PushPublisher{ch: ch, queue: PushQueue}
}

func (p *PushPublisher) Notify(ctx context.Context, msg Message) error {
	if !p.declared {
		if _, err := p.ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue: %w", err)
		}
		p.declared = true
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Body:         body,
		Timestamp:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}
