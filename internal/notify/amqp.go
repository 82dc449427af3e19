package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/abrezinsky/chanceraffle/internal/logger"
)

// Queue names for raffle events
const (
	QueueEntryConfirmed = "entry.confirmed"
	QueueWinnerDrawn    = "winner.drawn"
)

// Publisher emits raffle events to RabbitMQ. Each publish opens its own
// connection, so a broker outage only costs the event being sent.
type Publisher struct {
	url string
	log logger.Logger
}

// NewPublisher creates a Publisher for the broker at url
func NewPublisher(log logger.Logger, url string) *Publisher {
	return &Publisher{url: url, log: log}
}

func (p *Publisher) NotifyEntryConfirmed(ctx context.Context, n EntryNotice) error {
	return p.publish(ctx, QueueEntryConfirmed, n)
}

func (p *Publisher) NotifyWinner(ctx context.Context, n WinnerNotice) error {
	return p.publish(ctx, QueueWinnerDrawn, n)
}

// publishing builds a persistent JSON message for event
func publishing(event any, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    now.UTC(),
		Body:         body,
	}, nil
}

func (p *Publisher) publish(ctx context.Context, queue string, event any) error {
	msg, err := publishing(event, time.Now())
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal %s event: %w", queue, err)
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq: open channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		return fmt.Errorf("rabbitmq: declare %s: %w", queue, err)
	}

	if err := ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		return fmt.Errorf("rabbitmq: publish %s: %w", queue, err)
	}
	p.log.Debug("Event published", "queue", queue)
	return nil
}

var _ Notifier = (*Publisher)(nil)
