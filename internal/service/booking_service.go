package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
	"github.com/iliyamo/cinema-seat-booking/internal/queue"
	"github.com/iliyamo/cinema-seat-booking/internal/repository"
	"github.com/iliyamo/cinema-seat-booking/internal/seat"
)

// publishTimeout bounds a single event publication.
const publishTimeout = 10 * time.Second

// maxInsertAttempts is how often a booking write aborted by a deadlock is
// tried in total.
const maxInsertAttempts = 2

// BookingService admits reservations and cancels bookings.
type BookingService struct {
	shows   ShowLookup
	screens ScreenLookup
	store   BookingStore
	ledger  *Ledger
	events  EventPublisher
	log     logrus.FieldLogger

	// pending tracks in-flight event publications.
	pending sync.WaitGroup
}

// NewBookingService wires a BookingService.  A nil events publisher
// disables event publishing.
func NewBookingService(shows ShowLookup, screens ScreenLookup, store BookingStore, events EventPublisher, log logrus.FieldLogger) *BookingService {
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &BookingService{
		shows:   shows,
		screens: screens,
		store:   store,
		ledger:  NewLedger(store),
		events:  events,
		log:     log,
	}
}

// Ledger exposes the service's view of claimed seats.
func (s *BookingService) Ledger() *Ledger { return s.ledger }

// ReserveInput is a reservation request.  Seats are zero-based
// coordinates in the order the user picked them.
type ReserveInput struct {
	ShowID uint64
	UserID uint64
	Seats  []seat.Coordinate
}

// Reserve books the requested seats for the user or fails without
// persisting anything.  All validation happens before the single write:
// the seats must be non-empty, address the show's screen, be distinct and
// be unclaimed.  A conflict detected by the store at commit time is
// reported the same way as one found by the ledger, as a
// *SeatConflictError.
func (s *BookingService) Reserve(ctx context.Context, in ReserveInput) (*model.Booking, error) {
	if len(in.Seats) == 0 {
		return nil, ErrEmptyRequest
	}
	show, err := s.shows.GetShow(ctx, in.ShowID)
	if err != nil {
		return nil, err
	}
	screen, err := s.screenFor(ctx, show)
	if err != nil {
		return nil, err
	}

	bounds := screen.Bounds()
	labels := make([]string, 0, len(in.Seats))
	for _, c := range in.Seats {
		if !seat.IsWithinBounds(bounds, c.Row, c.Col) {
			return nil, &SeatOutOfRangeError{Seat: c.String(), Rows: bounds.Rows, Cols: bounds.Cols}
		}
		label, err := seat.CoordinateToLabel(c.Row, c.Col)
		if err != nil {
			// Screens taller than the label alphabet.
			return nil, &SeatOutOfRangeError{Seat: c.String(), Rows: bounds.Rows, Cols: bounds.Cols}
		}
		labels = append(labels, label)
	}
	if dup := firstDuplicate(labels); dup != "" {
		return nil, &DuplicateSeatError{Label: dup}
	}

	conflicts, err := s.ledger.Conflicts(ctx, show.ID, labels)
	if err != nil {
		return nil, fmt.Errorf("read claimed seats: %w", err)
	}
	if len(conflicts) > 0 {
		return nil, &SeatConflictError{Labels: conflicts}
	}

	booking, err := s.commit(ctx, show.ID, in.UserID, labels)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"show_id":    show.ID,
		"user_id":    in.UserID,
		"seats":      labels,
	}).Info("booking confirmed")
	s.publish(show, booking, s.events.PublishBookingConfirmed)
	return booking, nil
}

// commit inserts the booking.  A write aborted by a deadlock is retried
// once, unless a re-read shows seats that are now taken.
func (s *BookingService) commit(ctx context.Context, showID, userID uint64, labels []string) (*model.Booking, error) {
	for attempt := 1; ; attempt++ {
		booking, err := s.store.InsertBooking(ctx, showID, userID, labels)
		switch {
		case err == nil:
			return booking, nil
		case errors.Is(err, repository.ErrSeatTaken):
			return nil, s.lostRace(ctx, showID, labels)
		case !errors.Is(err, repository.ErrWriteConflict):
			return nil, fmt.Errorf("insert booking: %w", err)
		case attempt >= maxInsertAttempts:
			return nil, s.lostRace(ctx, showID, labels)
		}

		conflicts, cerr := s.ledger.Conflicts(ctx, showID, labels)
		if cerr != nil {
			return nil, fmt.Errorf("read claimed seats: %w", cerr)
		}
		if len(conflicts) > 0 {
			return nil, &SeatConflictError{Labels: conflicts}
		}
		s.log.WithFields(logrus.Fields{"show_id": showID, "seats": labels, "attempt": attempt}).Warn("booking write deadlocked, retrying")
	}
}

// lostRace builds the conflict error for a booking that passed the ledger
// check but was refused by the store because a concurrent booking
// committed first.
func (s *BookingService) lostRace(ctx context.Context, showID uint64, labels []string) error {
	conflicts, err := s.ledger.Conflicts(ctx, showID, labels)
	if err != nil || len(conflicts) == 0 {
		// The winner may already have been cancelled again; all we know
		// is that the request as a whole collided.
		conflicts = labels
	}
	s.log.WithFields(logrus.Fields{"show_id": showID, "seats": conflicts}).Info("booking lost seat race")
	return &SeatConflictError{Labels: conflicts}
}

// Cancel marks a booking cancelled, releasing its seats.  A non-zero
// userID must own the booking; zero skips the ownership check.
// Cancelling an already cancelled booking succeeds and changes nothing;
// the cancellation event is published only by the call that cancelled.
func (s *BookingService) Cancel(ctx context.Context, bookingID, userID uint64) (*model.Booking, error) {
	current, err := s.store.FindBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if userID != 0 && current.UserID != userID {
		return nil, ErrForbidden
	}

	booking, changed, err := s.store.UpdateCancellation(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}
	if !changed {
		return booking, nil
	}
	s.log.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"show_id":    booking.ShowID,
		"seats":      booking.Seats,
	}).Info("booking cancelled")

	if show, err := s.shows.GetShow(ctx, booking.ShowID); err == nil {
		s.publish(show, booking, s.events.PublishBookingCancelled)
	} else {
		s.log.WithError(err).WithField("booking_id", booking.ID).Warn("cancel: show lookup for event failed")
	}
	return booking, nil
}

// GetBooking returns a booking of the user.  A non-zero userID must own
// the booking.
func (s *BookingService) GetBooking(ctx context.Context, bookingID, userID uint64) (*model.Booking, error) {
	b, err := s.store.FindBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if userID != 0 && b.UserID != userID {
		return nil, ErrForbidden
	}
	return b, nil
}

// ListUserBookings returns all bookings of the user, newest first.
func (s *BookingService) ListUserBookings(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return s.store.ListBookingsByUser(ctx, userID)
}

// ShowSeatMap is the seat availability of one show.
type ShowSeatMap struct {
	Show      *model.Show
	Screen    *model.Screen
	Booked    []string
	Available []string
}

// ShowSeats returns the booked and available seats of a show.  Seats of
// cancelled bookings count as available.
func (s *BookingService) ShowSeats(ctx context.Context, showID uint64) (*ShowSeatMap, error) {
	show, err := s.shows.GetShow(ctx, showID)
	if err != nil {
		return nil, err
	}
	screen, err := s.screenFor(ctx, show)
	if err != nil {
		return nil, err
	}
	claimed, err := s.ledger.ClaimedSeats(ctx, show.ID)
	if err != nil {
		return nil, fmt.Errorf("read claimed seats: %w", err)
	}
	booked, available := seat.Availability(screen.Bounds(), claimed)
	return &ShowSeatMap{Show: show, Screen: screen, Booked: booked, Available: available}, nil
}

// Wait blocks until every event publication started so far has finished.
func (s *BookingService) Wait() {
	s.pending.Wait()
}

func (s *BookingService) screenFor(ctx context.Context, show *model.Show) (*model.Screen, error) {
	screen, err := s.screens.GetScreen(ctx, show.TheatreID, show.ScreenNumber)
	if err != nil {
		if errors.Is(err, ErrScreenNotFound) {
			s.log.WithFields(logrus.Fields{
				"show_id":       show.ID,
				"theatre_id":    show.TheatreID,
				"screen_number": show.ScreenNumber,
			}).Error("show references a missing screen")
			return nil, fmt.Errorf("show %d: %w", show.ID, ErrScreenNotFound)
		}
		return nil, err
	}
	return screen, nil
}

// publish sends the event in the background.  The booking is already
// committed, so failures are logged and otherwise ignored.
func (s *BookingService) publish(show *model.Show, b *model.Booking, send func(context.Context, queue.BookingEvent) error) {
	ev := queue.BookingEvent{
		BookingID:    b.ID,
		Reference:    b.Reference,
		UserID:       b.UserID,
		ShowID:       show.ID,
		TheatreID:    show.TheatreID,
		ScreenNumber: show.ScreenNumber,
		MovieName:    show.MovieName,
		ShowDate:     show.Date.Format("2006-01-02"),
		ShowTime:     show.Time,
		Seats:        append([]string(nil), b.Seats...),
		OccurredAt:   time.Now().UTC(),
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := send(ctx, ev); err != nil {
			s.log.WithError(err).WithField("booking_id", ev.BookingID).Warn("publish booking event failed")
		}
	}()
}

func firstDuplicate(labels []string) string {
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			return l
		}
		seen[l] = struct{}{}
	}
	return ""
}
