package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// BookingLogFile is the file, inside the consumer's log directory, that
// booking events are appended to.
const BookingLogFile = "booking.log"

// Consumer listens to the booking queues and appends one line per event to
// <LogDir>/booking.log.
type Consumer struct {
	URL    string
	LogDir string
	Log    logrus.FieldLogger
}

// Run connects to RabbitMQ, declares both booking queues and consumes them
// until ctx is cancelled.  Broken connections are redialled with
// exponential backoff capped at 30 seconds.  Messages that cannot be
// handled are rejected without requeueing so a poison message cannot spin.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.WithError(err).WithField("retry_in", backoff.String()).Warn("booking-consumer: failed to dial broker")
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.WithError(err).Warn("booking-consumer: consume loop ended; reconnecting")
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.WithError(err).Warn("booking-consumer: set QoS failed")
	}

	confirmed, err := c.consume(ch, QueueBookingConfirmed)
	if err != nil {
		return err
	}
	cancelled, err := c.consume(ch, QueueBookingCancelled)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-confirmed:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.deliver(QueueBookingConfirmed, d)
		case d, ok := <-cancelled:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.deliver(QueueBookingCancelled, d)
		}
	}
}

func (c *Consumer) consume(ch *amqp.Channel, queueName string) (<-chan amqp.Delivery, error) {
	if _, err := declareQueue(ch, queueName); err != nil {
		return nil, err
	}
	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("queue consume %s: %w", queueName, err)
	}
	return msgs, nil
}

func (c *Consumer) deliver(queueName string, d amqp.Delivery) {
	if err := c.HandleMessage(queueName, d.Body); err != nil {
		c.Log.WithError(err).WithField("queue", queueName).Error("booking-consumer: handle message failed")
		_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
		return
	}
	_ = d.Ack(false)
}

// HandleMessage decodes one event body received from queueName and
// appends it to the booking log.
func (c *Consumer) HandleMessage(queueName string, body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	var action string
	switch queueName {
	case QueueBookingConfirmed:
		action = "Booking confirmed"
	case QueueBookingCancelled:
		action = "Booking cancelled"
	default:
		return fmt.Errorf("unexpected queue %q", queueName)
	}

	if err := os.MkdirAll(c.LogDir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(c.LogDir, BookingLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] %s | booking_id=%d | ref=%s | user_id=%d | show_id=%d | theatre_id=%d | screen=%d | movie=%q | when=%s %s | seats=[%s]\n",
		ev.OccurredAt.UTC().Format(time.RFC3339), action, ev.BookingID, ev.Reference, ev.UserID, ev.ShowID,
		ev.TheatreID, ev.ScreenNumber, ev.MovieName, ev.ShowDate, ev.ShowTime, strings.Join(ev.Seats, ","))

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	c.Log.WithFields(logrus.Fields{"queue": queueName, "booking_id": ev.BookingID}).Info("booking-consumer: event recorded")
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
