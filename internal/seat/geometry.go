// Package seat converts between zero-based seat coordinates and the
// human-readable labels printed on tickets ("A1", "B5", ...), and derives
// the seat map of a screen from its row/column bounds.  Everything in this
// package is pure; no I/O happens here.
package seat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxRows is the number of rows addressable by a single-letter label (A-Z).
const MaxRows = 26

var (
	// ErrInvalidCoordinate is returned when a coordinate cannot be turned
	// into a label (negative index or a row past 'Z').
	ErrInvalidCoordinate = errors.New("invalid seat coordinate")
	// ErrMalformedLabel is returned when a label does not have the shape
	// <letter><1-based column>.
	ErrMalformedLabel = errors.New("malformed seat label")
)

// Coordinate is the machine-native form of a seat: zero-based row and
// column indices within a screen.
type Coordinate struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// String renders the coordinate the way clients send it, e.g. "[1,4]".
func (c Coordinate) String() string {
	return fmt.Sprintf("[%d,%d]", c.Row, c.Col)
}

// CoordinateToLabel converts a zero-based (row, col) pair into its
// canonical label.  Row 1, column 4 becomes "B5".  Only negative indices
// and rows that would need more than one letter are rejected; checking the
// coordinate against a concrete screen is the caller's job.
func CoordinateToLabel(row, col int) (string, error) {
	if row < 0 || col < 0 {
		return "", fmt.Errorf("%w: row=%d col=%d", ErrInvalidCoordinate, row, col)
	}
	if row >= MaxRows {
		return "", fmt.Errorf("%w: row %d has no single-letter label", ErrInvalidCoordinate, row)
	}
	return string(rune('A'+row)) + strconv.Itoa(col+1), nil
}

// LabelToCoordinate parses a label such as "c7" or "C7" back into a
// coordinate.  The leading letter is the row (case-insensitive) and the
// remaining digits are the 1-based column.
func LabelToCoordinate(label string) (Coordinate, error) {
	s := strings.ToUpper(strings.TrimSpace(label))
	if len(s) < 2 {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrMalformedLabel, label)
	}
	ch := s[0]
	if ch < 'A' || ch > 'Z' {
		return Coordinate{}, fmt.Errorf("%w: %q has no row letter", ErrMalformedLabel, label)
	}
	digits := s[1:]
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return Coordinate{}, fmt.Errorf("%w: %q has a non-numeric column", ErrMalformedLabel, label)
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return Coordinate{}, fmt.Errorf("%w: %q column must be >= 1", ErrMalformedLabel, label)
	}
	return Coordinate{Row: int(ch - 'A'), Col: n - 1}, nil
}
