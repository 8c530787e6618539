package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/cinema-seat-booking/internal/repository"
)

// Sentinel errors.  The not-found values are shared with the repository
// package so lookups can return them unchanged.
var (
	// ErrEmptyRequest is returned when a reservation names no seats.
	ErrEmptyRequest = errors.New("no seats requested")
	// ErrShowNotFound is returned when the referenced show does not exist.
	ErrShowNotFound = repository.ErrShowNotFound
	// ErrScreenNotFound means a show points at a screen its theatre does not
	// have.  This is a data integrity fault, not a client error.
	ErrScreenNotFound = repository.ErrScreenNotFound
	// ErrBookingNotFound is returned when the referenced booking does not exist.
	ErrBookingNotFound = repository.ErrBookingNotFound
	// ErrForbidden is returned when a user acts on another user's booking.
	ErrForbidden = errors.New("forbidden")
)

// SeatOutOfRangeError identifies a requested coordinate that does not
// address a seat of the show's screen.  Rows and Cols are zero when the
// coordinate was rejected before the screen was known (for example a
// fractional index).
type SeatOutOfRangeError struct {
	Seat string // coordinate as sent by the client, e.g. "[10,10]"
	Rows int
	Cols int
}

func (e *SeatOutOfRangeError) Error() string {
	if e.Rows == 0 && e.Cols == 0 {
		return fmt.Sprintf("seat %s is not a valid coordinate", e.Seat)
	}
	return fmt.Sprintf("seat %s is outside the screen (%d rows x %d cols)", e.Seat, e.Rows, e.Cols)
}

// SeatConflictError lists every requested seat that is already held by a
// live booking for the show.
type SeatConflictError struct {
	Labels []string
}

func (e *SeatConflictError) Error() string {
	return "seats already booked: " + strings.Join(e.Labels, ", ")
}

// DuplicateSeatError is returned when one request names the same seat
// twice.
type DuplicateSeatError struct {
	Label string
}

func (e *DuplicateSeatError) Error() string {
	return fmt.Sprintf("seat %s requested more than once", e.Label)
}
