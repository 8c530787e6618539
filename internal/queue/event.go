// Package queue defines message payloads exchanged over the message broker
// and the RabbitMQ publisher and consumer that carry them.
package queue

import "time"

// Queue names.  Each event type has its own durable queue and is published
// through the default exchange with the queue name as routing key.
const (
	QueueBookingConfirmed = "booking.confirmed"
	QueueBookingCancelled = "booking.cancelled"
)

// BookingEvent is published after a booking is committed or cancelled.
// It contains enough information for downstream consumers to log, notify,
// or trigger analytics without querying the primary database.
type BookingEvent struct {
	BookingID    uint64    `json:"booking_id"`
	Reference    string    `json:"reference"`
	UserID       uint64    `json:"user_id"`
	ShowID       uint64    `json:"show_id"`
	TheatreID    uint64    `json:"theatre_id"`
	ScreenNumber int       `json:"screen_number"`
	MovieName    string    `json:"movie_name"`
	ShowDate     string    `json:"show_date"`
	ShowTime     string    `json:"show_time"`
	Seats        []string  `json:"seats"`
	OccurredAt   time.Time `json:"occurred_at"`
}
