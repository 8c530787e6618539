package model

import "time"

// Booking records one user's confirmed claim on a non-empty, ordered set
// of seats for a show.  Bookings are never deleted: cancellation flips
// IsCancelled and releases the claims while Seats stays populated for
// ticket display and audit.
//
// Fields:
//  ID          – primary key identifier.
//  Reference   – opaque public reference printed on the ticket.
//  UserID      – user who made the booking.
//  ShowID      – show being booked.
//  Seats       – seat labels in request order.
//  IsCancelled – whether the booking has been cancelled.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
//  CancelledAt – when the booking was first cancelled, nil while active.
type Booking struct {
	ID          uint64     // bookings.id
	Reference   string     // bookings.reference
	UserID      uint64     // bookings.user_id
	ShowID      uint64     // bookings.show_id
	Seats       []string   // booking_seats.seat_label ordered by position
	IsCancelled bool       // bookings.is_cancelled
	CreatedAt   time.Time  // bookings.created_at
	UpdatedAt   time.Time  // bookings.updated_at
	CancelledAt *time.Time // bookings.cancelled_at (nullable)
}
