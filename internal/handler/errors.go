package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-seat-booking/internal/service"
)

// writeError maps service errors onto HTTP responses.  Anything not
// recognised, including a show whose screen is missing, is a server error
// and is logged; the client only sees a generic message.
func writeError(c echo.Context, log logrus.FieldLogger, err error) error {
	var (
		outOfRange *service.SeatOutOfRangeError
		conflict   *service.SeatConflictError
		duplicate  *service.DuplicateSeatError
	)
	switch {
	case errors.Is(err, service.ErrEmptyRequest):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.As(err, &outOfRange):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error(), "seat": outOfRange.Seat})
	case errors.As(err, &duplicate):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error(), "seat": duplicate.Label})
	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seats already booked", "conflicts": conflict.Labels})
	case errors.Is(err, service.ErrShowNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
	case errors.Is(err, service.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	log.WithError(err).WithFields(logrus.Fields{
		"method": c.Request().Method,
		"path":   c.Path(),
	}).Error("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
