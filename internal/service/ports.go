package service

import (
	"context"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
	"github.com/iliyamo/cinema-seat-booking/internal/queue"
)

// ScreenLookup resolves a screen by its theatre and number.  Implementations
// return ErrScreenNotFound when there is no such screen.
type ScreenLookup interface {
	GetScreen(ctx context.Context, theatreID uint64, screenNumber int) (*model.Screen, error)
}

// ShowLookup resolves a show.  Implementations return ErrShowNotFound when
// the show does not exist.
type ShowLookup interface {
	GetShow(ctx context.Context, showID uint64) (*model.Show, error)
}

// BookingStore persists bookings.  InsertBooking is the commit point of a
// reservation: it must refuse (with repository.ErrSeatTaken) any write
// that would leave a seat with two live claims, and must leave nothing
// behind when it fails.  It may also fail with repository.ErrWriteConflict
// when the write lost a deadlock and can be retried.  UpdateCancellation
// reports changed only to the caller that actually cancelled the booking.
type BookingStore interface {
	InsertBooking(ctx context.Context, showID, userID uint64, labels []string) (*model.Booking, error)
	FindBookingsByShow(ctx context.Context, showID uint64, includeCancelled bool) ([]model.Booking, error)
	FindBookingByID(ctx context.Context, id uint64) (*model.Booking, error)
	UpdateCancellation(ctx context.Context, id uint64) (booking *model.Booking, changed bool, err error)
	ListBookingsByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
}

// EventPublisher announces committed booking changes to other systems.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingEvent) error
	PublishBookingCancelled(ctx context.Context, ev queue.BookingEvent) error
}
