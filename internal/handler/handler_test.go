package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-seat-booking/internal/seat"
	"github.com/iliyamo/cinema-seat-booking/internal/service"
)

func rawPair(row, col string) []json.RawMessage {
	return []json.RawMessage{json.RawMessage(row), json.RawMessage(col)}
}

func TestParseSeats(t *testing.T) {
	got, err := parseSeats([][]json.RawMessage{rawPair("0", "0"), rawPair("4", " 2")})
	require.NoError(t, err)
	assert.Equal(t, []seat.Coordinate{{Row: 0, Col: 0}, {Row: 4, Col: 2}}, got)

	tests := []struct {
		name     string
		row, col string
		seat     string
	}{
		{name: "fraction", row: "1.5", col: "0", seat: "[1.5,0]"},
		{name: "negative", row: "0", col: "-1", seat: "[0,-1]"},
		{name: "exponent", row: "1e2", col: "0", seat: "[1e2,0]"},
		{name: "quoted", row: `"0"`, col: `"1"`, seat: `["0","1"]`},
		{name: "null", row: "null", col: "0", seat: "[null,0]"},
		{name: "boolean", row: "true", col: "0", seat: "[true,0]"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseSeats([][]json.RawMessage{rawPair(tc.row, tc.col)})
			var oor *service.SeatOutOfRangeError
			require.ErrorAs(t, err, &oor)
			assert.Equal(t, tc.seat, oor.Seat)
		})
	}
}

func TestSeatPairs(t *testing.T) {
	assert.Equal(t, [][2]int{{0, 0}, {1, 4}}, seatPairs([]string{"A1", "B5"}))
}

func TestWriteErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{service.ErrEmptyRequest, http.StatusBadRequest},
		{&service.SeatOutOfRangeError{Seat: "[9,9]", Rows: 5, Cols: 5}, http.StatusBadRequest},
		{&service.DuplicateSeatError{Label: "A1"}, http.StatusBadRequest},
		{&service.SeatConflictError{Labels: []string{"A1"}}, http.StatusConflict},
		{fmt.Errorf("lookup: %w", service.ErrShowNotFound), http.StatusNotFound},
		{service.ErrBookingNotFound, http.StatusNotFound},
		{service.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("show 3: %w", service.ErrScreenNotFound), http.StatusInternalServerError},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			logger, hook := test.NewNullLogger()
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

			require.NoError(t, writeError(c, logger, tc.err))
			assert.Equal(t, tc.code, rec.Code)
			if tc.code == http.StatusInternalServerError {
				require.NotNil(t, hook.LastEntry())
				assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
				assert.NotContains(t, rec.Body.String(), "connection reset")
			}
		})
	}
}

func TestRequestValidator(t *testing.T) {
	v := NewRequestValidator()
	assert.Error(t, v.Validate(&reserveRequest{}))
	assert.NoError(t, v.Validate(&reserveRequest{ShowID: 1}))
	assert.Error(t, v.Validate(&reserveRequest{ShowID: 1, Seats: [][]json.RawMessage{{json.RawMessage("1")}}}))
	assert.NoError(t, v.Validate(&reserveRequest{ShowID: 1, Seats: [][]json.RawMessage{rawPair("1", "2")}}))
}
