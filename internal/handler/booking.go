// Package handler exposes HTTP handlers for both authenticated and public
// endpoints.  Handlers bind and validate requests, call the booking service
// and translate its errors into status codes; no booking rule lives here.
package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/jinzhu/copier"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-seat-booking/internal/middleware"
	"github.com/iliyamo/cinema-seat-booking/internal/model"
	"github.com/iliyamo/cinema-seat-booking/internal/seat"
	"github.com/iliyamo/cinema-seat-booking/internal/service"
)

// BookingHandler serves the customer booking endpoints.  All methods
// assume that JWT authentication and role validation has already been
// performed by middleware.
type BookingHandler struct {
	Bookings *service.BookingService
	Log      logrus.FieldLogger
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(bookings *service.BookingService, log logrus.FieldLogger) *BookingHandler {
	if bookings == nil {
		panic("nil booking service passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: bookings, Log: log}
}

// reserveRequest is the body of POST /v1/bookings.  Seat indices are kept
// as raw JSON so only bare integer literals are accepted; fractions,
// exponents and quoted numbers are rejected instead of being coerced.
type reserveRequest struct {
	ShowID uint64              `json:"show_id" validate:"required"`
	Seats  [][]json.RawMessage `json:"seats" validate:"dive,len=2"`
}

// BookingView is the JSON representation of a booking.
type BookingView struct {
	ID          uint64     `json:"id"`
	Reference   string     `json:"reference"`
	UserID      uint64     `json:"user_id"`
	ShowID      uint64     `json:"show_id"`
	Seats       []string   `json:"seats"`
	IsCancelled bool       `json:"is_cancelled"`
	CreatedAt   time.Time  `json:"created_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

func newBookingView(b *model.Booking) (BookingView, error) {
	var v BookingView
	if err := copier.Copy(&v, b); err != nil {
		return BookingView{}, fmt.Errorf("copy booking: %w", err)
	}
	return v, nil
}

// Reserve handles POST /v1/bookings.  It books every requested seat for
// the authenticated user or none of them.  On success it returns 201 with
// the booking and the booked seats as [row, col] pairs.
func (h *BookingHandler) Reserve(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req reserveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request", "details": err.Error()})
	}
	coords, err := parseSeats(req.Seats)
	if err != nil {
		return writeError(c, h.Log, err)
	}

	booking, err := h.Bookings.Reserve(c.Request().Context(), service.ReserveInput{
		ShowID: req.ShowID,
		UserID: userID,
		Seats:  coords,
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	view, err := newBookingView(booking)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"booking": view,
		"seats":   seatPairs(booking.Seats),
	})
}

// Cancel handles POST /v1/bookings/:id/cancel.  Only the owner may cancel
// a booking; cancelling twice is not an error.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	booking, err := h.Bookings.Cancel(c.Request().Context(), id, userID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	view, err := newBookingView(booking)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, view)
}

// Get handles GET /v1/bookings/:id for the booking's owner.
func (h *BookingHandler) Get(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	booking, err := h.Bookings.GetBooking(c.Request().Context(), id, userID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	view, err := newBookingView(booking)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, view)
}

// ListMine handles GET /v1/my-bookings.  Bookings are returned newest
// first and include cancelled ones.
func (h *BookingHandler) ListMine(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := h.Bookings.ListUserBookings(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	items := make([]BookingView, 0, len(list))
	if err := copier.Copy(&items, &list); err != nil {
		return writeError(c, h.Log, fmt.Errorf("copy bookings: %w", err))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ShowSeats handles GET /v1/shows/:id/seats.  It is public and never
// cached so availability reflects the latest committed bookings.
func (h *BookingHandler) ShowSeats(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	m, err := h.Bookings.ShowSeats(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"show_id": m.Show.ID,
		"screen": echo.Map{
			"number": m.Screen.Number,
			"rows":   m.Screen.Rows,
			"cols":   m.Screen.Cols,
		},
		"booked_seats":    m.Booked,
		"available_seats": m.Available,
	})
}

// parseSeats turns [row, col] pairs into coordinates.  Indices must be
// non-negative JSON integers; anything else is reported as out of range.
func parseSeats(pairs [][]json.RawMessage) ([]seat.Coordinate, error) {
	out := make([]seat.Coordinate, 0, len(pairs))
	for _, p := range pairs {
		row, okRow := seatIndex(p[0])
		col, okCol := seatIndex(p[1])
		if !okRow || !okCol {
			return nil, &service.SeatOutOfRangeError{Seat: fmt.Sprintf("[%s,%s]", bytes.TrimSpace(p[0]), bytes.TrimSpace(p[1]))}
		}
		out = append(out, seat.Coordinate{Row: row, Col: col})
	}
	return out, nil
}

// seatIndex parses a bare JSON integer literal.  Strings, fractions,
// exponents and null do not qualify.
func seatIndex(raw json.RawMessage) (int, bool) {
	n, err := strconv.Atoi(string(bytes.TrimSpace(raw)))
	return n, err == nil && n >= 0
}

// seatPairs renders labels back as [row, col] pairs for the response.
func seatPairs(labels []string) [][2]int {
	out := make([][2]int, 0, len(labels))
	for _, l := range labels {
		c, err := seat.LabelToCoordinate(l)
		if err != nil {
			continue
		}
		out = append(out, [2]int{c.Row, c.Col})
	}
	return out
}
