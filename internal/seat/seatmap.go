package seat

// Screen carries the seating bounds of one auditorium.  Rows and Cols are
// both at least 1 for any screen a show can reference.
type Screen struct {
	Number int
	Rows   int
	Cols   int
}

// IsWithinBounds reports whether (row, col) addresses a seat of the screen.
func IsWithinBounds(screen Screen, row, col int) bool {
	return row >= 0 && row < screen.Rows && col >= 0 && col < screen.Cols
}

// ValidSeats lists every seat label of the screen in row-major order (all
// of row A, then row B, ...).  Rows past 'Z' have no label and are skipped.
func ValidSeats(screen Screen) []string {
	if screen.Rows <= 0 || screen.Cols <= 0 {
		return []string{}
	}
	rows := screen.Rows
	if rows > MaxRows {
		rows = MaxRows
	}
	out := make([]string, 0, rows*screen.Cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < screen.Cols; c++ {
			label, _ := CoordinateToLabel(r, c)
			out = append(out, label)
		}
	}
	return out
}

// Availability splits the screen's seats into those present in claimed and
// those still free.  Both slices keep the row-major order of ValidSeats.
// Claimed labels that do not belong to the screen are ignored.
func Availability(screen Screen, claimed map[string]struct{}) (booked, available []string) {
	booked = []string{}
	available = []string{}
	for _, label := range ValidSeats(screen) {
		if _, ok := claimed[label]; ok {
			booked = append(booked, label)
			continue
		}
		available = append(available, label)
	}
	return booked, available
}
