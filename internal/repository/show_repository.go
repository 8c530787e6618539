package repository

import (
	"context"      // context for controlling query lifetime
	"database/sql" // sql provides DB abstraction
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
)

// ShowRepo manages persistence for shows.
type ShowRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewShowRepo constructs a ShowRepo with the given DB handle.
func NewShowRepo(db *sql.DB) *ShowRepo {
	return &ShowRepo{db: db, now: time.Now}
}

const showColumns = `id, theatre_id, screen_number, movie_name, show_date, show_time, created_at`

// Create inserts a new show and assigns the generated ID and creation
// time back to the struct.  The referenced screen is not checked here;
// a show pointing at a missing screen surfaces when it is booked.
func (r *ShowRepo) Create(ctx context.Context, s *model.Show) error {
	created := fromMillis(toMillis(r.now()))
	const q = `INSERT INTO shows (theatre_id, screen_number, movie_name, show_date, show_time, created_at)
               VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.TheatreID, s.ScreenNumber, s.MovieName,
		s.Date.UTC().Format(showDateLayout), s.Time, toMillis(created))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.CreatedAt = created
	return nil
}

// GetShow retrieves a show by its ID.  It returns ErrShowNotFound if
// there is no matching row.
func (r *ShowRepo) GetShow(ctx context.Context, id uint64) (*model.Show, error) {
	q := `SELECT ` + showColumns + ` FROM shows WHERE id = ?`
	s, err := scanShow(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowNotFound
		}
		return nil, err
	}
	return s, nil
}

// List returns shows ordered by date, time and id.  A non-zero theatreID
// limits the result to that theatre.  An empty slice is returned when
// nothing matches.
func (r *ShowRepo) List(ctx context.Context, theatreID uint64) ([]model.Show, error) {
	q := `SELECT ` + showColumns + ` FROM shows`
	var args []any
	if theatreID != 0 {
		q += ` WHERE theatre_id = ?`
		args = append(args, theatreID)
	}
	q += ` ORDER BY show_date ASC, show_time ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	shows := []model.Show{}
	for rows.Next() {
		s, err := scanShow(rows)
		if err != nil {
			return nil, err
		}
		shows = append(shows, *s)
	}
	return shows, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShow(row rowScanner) (*model.Show, error) {
	var (
		s       model.Show
		date    string
		created int64
	)
	if err := row.Scan(&s.ID, &s.TheatreID, &s.ScreenNumber, &s.MovieName, &date, &s.Time, &created); err != nil {
		return nil, err
	}
	d, err := time.Parse(showDateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("show %d: parse date %q: %w", s.ID, date, err)
	}
	s.Date = d
	s.CreatedAt = fromMillis(created)
	return &s, nil
}
