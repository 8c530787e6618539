package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// dialTimeout bounds connection setup so an unreachable broker cannot stall
// a publication for the library default of 30 seconds.
const dialTimeout = 5 * time.Second

// Publisher publishes booking events to RabbitMQ.  A connection is dialled
// per message; booking traffic is low and this keeps the publisher free of
// reconnect state.  Errors are logged and returned so callers can choose
// to ignore them without interrupting the main request flow.
type Publisher struct {
	url string
	log logrus.FieldLogger
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, log logrus.FieldLogger) *Publisher {
	return &Publisher{url: url, log: log}
}

// PublishBookingConfirmed publishes ev to the booking.confirmed queue.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, ev BookingEvent) error {
	return p.publish(ctx, QueueBookingConfirmed, ev)
}

// PublishBookingCancelled publishes ev to the booking.cancelled queue.
func (p *Publisher) PublishBookingCancelled(ctx context.Context, ev BookingEvent) error {
	return p.publish(ctx, QueueBookingCancelled, ev)
}

func (p *Publisher) publish(ctx context.Context, queueName string, ev BookingEvent) error {
	log := p.log.WithFields(logrus.Fields{"queue": queueName, "booking_id": ev.BookingID})

	body, err := json.Marshal(ev)
	if err != nil {
		log.WithError(err).Error("rabbitmq: marshal event failed")
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
	if err != nil {
		log.WithError(err).Warn("rabbitmq: dial failed")
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.WithError(err).Warn("rabbitmq: channel open failed")
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := declareQueue(ch, queueName); err != nil {
		log.WithError(err).Warn("rabbitmq: queue declare failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",        // default exchange
		queueName, // routing key = queue name
		false,     // mandatory
		false,     // immediate
		pub,
	); err != nil {
		log.WithError(err).Warn("rabbitmq: publish failed")
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func declareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		name,  // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return q, fmt.Errorf("queue declare %s: %w", name, err)
	}
	return q, nil
}

// NopPublisher discards events.  It is used when event publishing is
// disabled by configuration.
type NopPublisher struct{}

// PublishBookingConfirmed does nothing.
func (NopPublisher) PublishBookingConfirmed(context.Context, BookingEvent) error { return nil }

// PublishBookingCancelled does nothing.
func (NopPublisher) PublishBookingCancelled(context.Context, BookingEvent) error { return nil }
