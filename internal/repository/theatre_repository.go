package repository

import (
	"context"      // context allows passing deadlines and cancellation signals to DB operations
	"database/sql" // sql provides generic database operations and drivers
	"errors"
	"time"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
)

// TheatreRepo encapsulates all database queries related to theatres and
// their screens.  Screens are owned by a theatre and addressed by their
// number within it, which is how shows reference them.
type TheatreRepo struct {
	db  *sql.DB // db is the underlying database connection pool
	now func() time.Time
}

// NewTheatreRepo constructs a TheatreRepo with the provided DB handle.
func NewTheatreRepo(db *sql.DB) *TheatreRepo {
	return &TheatreRepo{db: db, now: time.Now}
}

// Create inserts a new theatre.  On success the theatre's ID and
// timestamps are populated.
func (r *TheatreRepo) Create(ctx context.Context, t *model.Theatre) error {
	now := fromMillis(toMillis(r.now()))
	const q = "INSERT INTO theatres (name, location, created_at, updated_at) VALUES (?, ?, ?, ?)"
	res, err := r.db.ExecContext(ctx, q, t.Name, t.Location, toMillis(now), toMillis(now))
	if err != nil {
		return err // propagate DB errors to the caller
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

// GetByID fetches a theatre by its ID.  It returns ErrTheatreNotFound if
// no row is found.
func (r *TheatreRepo) GetByID(ctx context.Context, id uint64) (*model.Theatre, error) {
	const q = "SELECT id, name, location, created_at, updated_at FROM theatres WHERE id = ?"
	var (
		t                model.Theatre
		created, updated int64
	)
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&t.ID, &t.Name, &t.Location, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTheatreNotFound
		}
		return nil, err
	}
	t.CreatedAt = fromMillis(created)
	t.UpdatedAt = fromMillis(updated)
	return &t, nil
}

// List returns every theatre ordered by name, then id.
func (r *TheatreRepo) List(ctx context.Context) ([]model.Theatre, error) {
	const q = "SELECT id, name, location, created_at, updated_at FROM theatres ORDER BY name ASC, id ASC"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Theatre{}
	for rows.Next() {
		var (
			t                model.Theatre
			created, updated int64
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Location, &created, &updated); err != nil {
			return nil, err
		}
		t.CreatedAt = fromMillis(created)
		t.UpdatedAt = fromMillis(updated)
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateScreen adds a screen to an existing theatre.  The (theatre,
// number) pair is unique; a duplicate is reported as the driver error.
func (r *TheatreRepo) CreateScreen(ctx context.Context, s *model.Screen) error {
	const q = "INSERT INTO screens (theatre_id, screen_number, seat_rows, seat_cols) VALUES (?, ?, ?, ?)"
	res, err := r.db.ExecContext(ctx, q, s.TheatreID, s.Number, s.Rows, s.Cols)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetScreen returns the screen with the given number in the theatre, or
// ErrScreenNotFound.
func (r *TheatreRepo) GetScreen(ctx context.Context, theatreID uint64, screenNumber int) (*model.Screen, error) {
	const q = `SELECT id, theatre_id, screen_number, seat_rows, seat_cols
               FROM screens WHERE theatre_id = ? AND screen_number = ?`
	var s model.Screen
	err := r.db.QueryRowContext(ctx, q, theatreID, screenNumber).Scan(&s.ID, &s.TheatreID, &s.Number, &s.Rows, &s.Cols)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScreenNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListScreens returns every screen of the theatre ordered by number.  An
// empty slice is returned when the theatre has none.
func (r *TheatreRepo) ListScreens(ctx context.Context, theatreID uint64) ([]model.Screen, error) {
	const q = `SELECT id, theatre_id, screen_number, seat_rows, seat_cols
               FROM screens WHERE theatre_id = ? ORDER BY screen_number ASC`
	rows, err := r.db.QueryContext(ctx, q, theatreID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	screens := []model.Screen{}
	for rows.Next() {
		var s model.Screen
		if err := rows.Scan(&s.ID, &s.TheatreID, &s.Number, &s.Rows, &s.Cols); err != nil {
			return nil, err
		}
		screens = append(screens, s)
	}
	return screens, rows.Err()
}
