package model

import (
	"time"

	"github.com/iliyamo/cinema-seat-booking/internal/seat"
)

// Theatre represents a movie theatre venue.  A theatre owns one or more
// screens, each identified by a number that is unique within the theatre.
// This struct corresponds to a row in the `theatres` table.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – display name of the theatre.
//  Location  – free-form address or city.
//  CreatedAt – timestamp when the theatre was created.
//  UpdatedAt – timestamp of last update.
type Theatre struct {
	ID        uint64    // theatres.id
	Name      string    // theatres.name
	Location  string    // theatres.location
	CreatedAt time.Time // theatres.created_at
	UpdatedAt time.Time // theatres.updated_at
}

// Screen is one auditorium of a theatre with a fixed rows x cols seating
// grid.  Booking logic assumes the grid does not change while bookings
// for its shows are outstanding.
//
// Fields:
//  ID        – primary key identifier.
//  TheatreID – owning theatre.
//  Number    – screen number, unique within the theatre.
//  Rows      – number of seat rows (>= 1).
//  Cols      – number of seats per row (>= 1).
type Screen struct {
	ID        uint64 // screens.id
	TheatreID uint64 // screens.theatre_id
	Number    int    // screens.screen_number
	Rows      int    // screens.seat_rows
	Cols      int    // screens.seat_cols
}

// Bounds returns the seating bounds used by the seat package.
func (s Screen) Bounds() seat.Screen {
	return seat.Screen{Number: s.Number, Rows: s.Rows, Cols: s.Cols}
}
