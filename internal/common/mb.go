package common

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Exchange string

type Queue string

type BindingKey string

type MessageProducer interface {
	Publish(ctx context.Context, msg []byte, key BindingKey, exchange Exchange) error
}

type MessageConsumer interface {
	Consume(queue Queue, consumer string) (<-chan amqp.Delivery, error)
}

const (
	BloglistExchange  Exchange   = "bloglist_exchange"
	NotificationQueue Queue      = "notification_queue"
	BlogCreatedKey    BindingKey = "blog.created"
	UserCreatedKey    BindingKey = "user.created"
)

// Event is the body of every message published on BloglistExchange.
type Event struct {
	Kind      BindingKey `json:"kind"`
	ID        string     `json:"id"`
	Summary   string     `json:"summary"`
	CreatedAt time.Time  `json:"created_at"`
}

// PublishEvent encodes an Event and publishes it with the kind as routing key.
func PublishEvent(ctx context.Context, p MessageProducer, kind BindingKey, id, summary string) error {
	msg, err := json.Marshal(Event{Kind: kind, ID: id, Summary: summary, CreatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	return p.Publish(ctx, msg, kind, BloglistExchange)
}

type MessageBroker struct {
	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewMessageBroker(URI string) (*MessageBroker, error) {
	conn, ch, err := connectAMQP(URI)
	if err != nil {
		return nil, err
	}

	return &MessageBroker{
		conn: conn,
		ch:   ch,
	}, nil
}

func AMQPURI(user, password, host, port string) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", user, password, host, port)
}

func connectAMQP(URI string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(URI)
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("could not open channel: %w", err)
	}

	return conn, ch, nil
}

// Close closes the connection and channel of the message broker.
func (mb *MessageBroker) Close() error {
	err := mb.ch.Close()
	if err != nil {
		return err
	}

	err = mb.conn.Close()
	if err != nil {
		return err
	}

	return nil
}

// SetupBloglistExchange declares the exchange and binds the notification queue to every created-event key.
func SetupBloglistExchange(mb *MessageBroker) error {
	err := mb.ch.ExchangeDeclare(string(BloglistExchange), "direct", true, false, false, false, nil)
	if err != nil {
		return err
	}

	_, err = mb.ch.QueueDeclare(string(NotificationQueue), true, false, false, false, nil)
	if err != nil {
		return err
	}

	for _, key := range []BindingKey{BlogCreatedKey, UserCreatedKey} {
		err = mb.ch.QueueBind(string(NotificationQueue), string(key), string(BloglistExchange), false, nil)
		if err != nil {
			return err
		}
	}

	return nil
}

func (mb *MessageBroker) Publish(ctx context.Context, msg []byte, key BindingKey, exchange Exchange) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	err := mb.ch.PublishWithContext(ctx, string(exchange), string(key), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         msg,
	})
	if err != nil {
		return fmt.Errorf("could not publish message: %w", err)
	}

	return nil
}

func (mb *MessageBroker) Consume(queue Queue, consumer string) (<-chan amqp.Delivery, error) {
	msgs, err := mb.ch.Consume(string(queue), consumer, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("could not consume message: %w", err)
	}

	return msgs, nil
}
