package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
)

// BookingRepo persists bookings and their seat claims.  A booking row is
// never deleted; its seats live in booking_seats where the claim column is
// 1 while the booking is active and NULL once it is cancelled.  The unique
// index over (show_id, seat_label, claim) therefore allows at most one
// live claim per seat and show, which is what serializes concurrent
// bookings.
type BookingRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo {
	return &BookingRepo{db: db, now: time.Now}
}

// InsertBooking atomically records a new active booking holding labels
// for the show.  The booking row and all of its seat rows are written in
// one transaction; if any label already has a live claim the transaction
// is rolled back and ErrSeatTaken is returned.  A deadlock with another
// writer rolls back as well and yields ErrWriteConflict.  Labels are kept
// in the given order.
func (r *BookingRepo) InsertBooking(ctx context.Context, showID, userID uint64, labels []string) (*model.Booking, error) {
	if len(labels) == 0 {
		return nil, errors.New("insert booking: no seats")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	now := fromMillis(toMillis(r.now()))
	b := &model.Booking{
		Reference: uuid.NewString(),
		UserID:    userID,
		ShowID:    showID,
		Seats:     append([]string(nil), labels...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	const q = `INSERT INTO bookings (reference, user_id, show_id, is_cancelled, created_at, updated_at)
               VALUES (?, ?, ?, 0, ?, ?)`
	res, err := tx.ExecContext(ctx, q, b.Reference, userID, showID, toMillis(now), toMillis(now))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	b.ID = uint64(id)

	var sb strings.Builder
	sb.WriteString(`INSERT INTO booking_seats (booking_id, position, show_id, seat_label, claim) VALUES `)
	args := make([]any, 0, len(labels)*4)
	for i, label := range labels {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, ?, 1)")
		args = append(args, b.ID, i, showID, label)
	}
	if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
		return nil, classifyWriteErr(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, classifyWriteErr(err)
	}
	committed = true
	return b, nil
}

// FindBookingsByShow returns the bookings of a show with their seats,
// oldest first.  Cancelled bookings are only included when asked for.
func (r *BookingRepo) FindBookingsByShow(ctx context.Context, showID uint64, includeCancelled bool) ([]model.Booking, error) {
	q := bookingSelect + ` WHERE b.show_id = ?`
	if !includeCancelled {
		q += ` AND b.is_cancelled = 0`
	}
	q += ` ORDER BY b.id ASC, s.position ASC`
	return queryBookings(ctx, r.db, q, showID)
}

// FindBookingByID returns a single booking with its seats or
// ErrBookingNotFound.
func (r *BookingRepo) FindBookingByID(ctx context.Context, id uint64) (*model.Booking, error) {
	return findBooking(ctx, r.db, id)
}

// ListBookingsByUser returns every booking of the user, newest first,
// including cancelled ones.
func (r *BookingRepo) ListBookingsByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	q := bookingSelect + ` WHERE b.user_id = ? ORDER BY b.created_at DESC, b.id DESC, s.position ASC`
	return queryBookings(ctx, r.db, q, userID)
}

// UpdateCancellation cancels a booking and returns the updated record.
// The flag flip and the release of the seat claims happen in one
// transaction, and only the call that actually flips the flag reports
// changed; cancelling an already cancelled booking returns it unchanged
// with changed false.  Cancelled bookings are never reinstated.
func (r *BookingRepo) UpdateCancellation(ctx context.Context, id uint64) (booking *model.Booking, changed bool, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	now := toMillis(r.now())
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET is_cancelled = 1, cancelled_at = ?, updated_at = ? WHERE id = ? AND is_cancelled = 0`,
		now, now, id)
	if err != nil {
		return nil, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if n == 1 {
		if _, err := tx.ExecContext(ctx, `UPDATE booking_seats SET claim = NULL WHERE booking_id = ?`, id); err != nil {
			return nil, false, err
		}
	}

	updated, err := findBooking(ctx, tx, id)
	if err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	committed = true
	return updated, n == 1, nil
}

const bookingSelect = `SELECT b.id, b.reference, b.user_id, b.show_id, b.is_cancelled,
                              b.created_at, b.updated_at, b.cancelled_at, s.seat_label
                       FROM bookings b
                       JOIN booking_seats s ON s.booking_id = b.id`

func findBooking(ctx context.Context, q querier, id uint64) (*model.Booking, error) {
	list, err := queryBookings(ctx, q, bookingSelect+` WHERE b.id = ? ORDER BY s.position ASC`, id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrBookingNotFound
	}
	return &list[0], nil
}

// queryBookings runs a bookingSelect query and folds the one-row-per-seat
// result into bookings.  Rows of one booking must be adjacent.
func queryBookings(ctx context.Context, q querier, query string, args ...any) ([]model.Booking, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Booking{}
	for rows.Next() {
		var (
			b                model.Booking
			cancelled        bool
			created, updated int64
			cancelledAt      sql.NullInt64
			label            string
		)
		if err := rows.Scan(&b.ID, &b.Reference, &b.UserID, &b.ShowID, &cancelled,
			&created, &updated, &cancelledAt, &label); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		if n := len(out); n > 0 && out[n-1].ID == b.ID {
			out[n-1].Seats = append(out[n-1].Seats, label)
			continue
		}
		b.IsCancelled = cancelled
		b.CreatedAt = fromMillis(created)
		b.UpdatedAt = fromMillis(updated)
		if cancelledAt.Valid {
			t := fromMillis(cancelledAt.Int64)
			b.CancelledAt = &t
		}
		b.Seats = []string{label}
		out = append(out, b)
	}
	return out, rows.Err()
}
