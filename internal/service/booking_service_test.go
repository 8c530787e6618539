package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-seat-booking/internal/seat"
)

const (
	testShow   = uint64(10)
	orphanShow = uint64(11)
	alice      = uint64(1)
	bob        = uint64(2)
)

type fixture struct {
	svc    *BookingService
	store  *memStore
	events *recordingPublisher
	hook   *test.Hook
}

// newFixture builds a service around a 5x5 screen hosting testShow and an
// orphanShow whose screen does not exist.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	shows := fakeShows{
		testShow: {ID: testShow, TheatreID: 1, ScreenNumber: 1, MovieName: "Vertigo",
			Date: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), Time: "18:00"},
		orphanShow: {ID: orphanShow, TheatreID: 1, ScreenNumber: 9, MovieName: "Rope"},
	}
	screens := fakeScreens{
		{1, 1}: {ID: 100, TheatreID: 1, Number: 1, Rows: 5, Cols: 5},
	}
	store := &memStore{}
	events := &recordingPublisher{}
	logger, hook := test.NewNullLogger()
	svc := NewBookingService(shows, screens, store, events, logger)
	return &fixture{svc: svc, store: store, events: events, hook: hook}
}

func coords(pairs ...[2]int) []seat.Coordinate {
	out := make([]seat.Coordinate, len(pairs))
	for i, p := range pairs {
		out[i] = seat.Coordinate{Row: p[0], Col: p[1]}
	}
	return out
}

func TestReserveOnEmptyShow(t *testing.T) {
	f := newFixture(t)
	b, err := f.svc.Reserve(context.Background(), ReserveInput{ShowID: testShow, UserID: alice, Seats: coords([2]int{0, 0}, [2]int{0, 1})})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, b.Seats)
	assert.NotZero(t, b.ID)
	assert.False(t, b.IsCancelled)

	f.svc.Wait()
	require.Len(t, f.events.confirmed, 1)
	ev := f.events.confirmed[0]
	assert.Equal(t, b.ID, ev.BookingID)
	assert.Equal(t, "Vertigo", ev.MovieName)
	assert.Equal(t, "2026-05-01", ev.ShowDate)
	assert.Equal(t, []string{"A1", "A2"}, ev.Seats)
}

func TestReserveConflictNamesOnlyTakenSeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Reserve(ctx, ReserveInput{ShowID: testShow, UserID: alice, Seats: coords([2]int{0, 0}, [2]int{0, 1})})
	require.NoError(t, err)

	_, err = f.svc.Reserve(ctx, ReserveInput{ShowID: testShow, UserID: bob, Seats: coords([2]int{0, 1}, [2]int{0, 2})})
	var conflict *SeatConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"A2"}, conflict.Labels)
	assert.Equal(t, 1, f.store.inserts)
}

func TestReserveConflictListsEveryTakenSeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Reserve(ctx, ReserveInput{ShowID: testShow, UserID: alice, Seats: coords([2]int{1, 0}, [2]int{1, 1}, [2]int{1, 2})})
	require.NoError(t, err)

	_, err = f.svc.Reserve(ctx, ReserveInput{ShowID: testShow, UserID: bob, Seats: coords([2]int{1, 2}, [2]int{2, 2}, [2]int{1, 0})})
	var conflict *SeatConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"B3", "B1"}, conflict.Labels)
}

func TestCancelReleasesSeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.svc.Reserve(ctx, ReserveInput{ShowID: testShow, UserID: alice, Seats: coords([2]int{0, 0}, [2]int{0, 1})})
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, first.ID, alice)
	require.NoError(t, err)
	assert.True(t, cancelled.IsCancelled)
	assert.Equal(t, []string{"A1", "A2"}, cancelled.Seats)

	again, err := f.svc.Reserve(ctx, ReserveInput{ShowID: testShow, UserID: bob, Seats: coords([2]int{0, 0})})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, again.Seats)

	f.svc.Wait()
	require.Len(t, f.events.cancelled, 1)
	assert.Equal(t, first.ID, f.events.cancelled[0].BookingID)
}

func TestCancelTwiceIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, err := f.svc.Reserve(ctx, ReserveInput{ShowID: testShow, UserID: alice, Seats: coords([2]int{3, 3})})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, b.ID, 0)
	require.NoError(t, err)
	second, err := f.svc.Cancel(ctx, b.ID, 0)
	require.NoError(t, err)
	assert.True(t, second.IsCancelled)

	claimed, err := f.svc.Ledger().ClaimedSeats(ctx, testShow)
	require.NoError(t, err)
	assert.Empty(t, claimed)

	f.svc.Wait()
	assert.Len(t, f.events.cancelled, 1)
}

func TestCancelPublishesOnceWhenCallersRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, err := f.svc.Reserve(ctx, ReserveInput{ShowID: testShow, UserID: alice, Seats: coords([2]int{2, 2})})
	require.NoError(t, err)

	// Every caller sees the booking as active before cancelling, as two
	// requests would when they read it at the same time.
	f.store.staleLookups = true
	for i := 0; i < 3; i++ {
		got, err := f.svc.Cancel(ctx, b.ID, alice)
		require.NoError(t, err)
		assert.True(t, got.IsCancelled)
	}

	f.svc.Wait()
	assert.Len(t, f.events.cancelled, 1)
}

func TestCancelErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, err := f.svc.Reserve(ctx, ReserveInput{ShowID: testShow, UserID: alice, Seats: coords([2]int{4, 4})})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, b.ID, bob)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.Cancel(ctx, 404, alice)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	claimed, err := f.svc.Ledger().ClaimedSeats(ctx, testShow)
	require.NoError(t, err)
	assert.Contains(t, claimed, "E5")
}

func TestReserveValidation(t *testing.T) {
	tests := []struct {
		name  string
		in    ReserveInput
		check func(t *testing.T, err error)
	}{
		{
			name: "empty request",
			in:   ReserveInput{ShowID: testShow, UserID: alice},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEmptyRequest)
			},
		},
		{
			name: "unknown show",
			in:   ReserveInput{ShowID: 999, UserID: alice, Seats: coords([2]int{0, 0})},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrShowNotFound)
			},
		},
		{
			name: "orphaned show",
			in:   ReserveInput{ShowID: orphanShow, UserID: alice, Seats: coords([2]int{0, 0})},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrScreenNotFound)
			},
		},
		{
			name: "outside a 5x5 screen",
			in:   ReserveInput{ShowID: testShow, UserID: alice, Seats: coords([2]int{10, 10})},
			check: func(t *testing.T, err error) {
				var oor *SeatOutOfRangeError
				require.ErrorAs(t, err, &oor)
				assert.Equal(t, "[10,10]", oor.Seat)
				assert.Equal(t, 5, oor.Rows)
			},
		},
		{
			name: "first bad coordinate is reported",
			in:   ReserveInput{ShowID: testShow, UserID: alice, Seats: coords([2]int{0, 0}, [2]int{0, 5}, [2]int{-1, 0})},
			check: func(t *testing.T, err error) {
				var oor *SeatOutOfRangeError
				require.ErrorAs(t, err, &oor)
				assert.Equal(t, "[0,5]", oor.Seat)
			},
		},
		{
			name: "duplicate seat",
			in:   ReserveInput{ShowID: testShow, UserID: alice, Seats: coords([2]int{2, 2}, [2]int{0, 0}, [2]int{2, 2})},
			check: func(t *testing.T, err error) {
				var dup *DuplicateSeatError
				require.ErrorAs(t, err, &dup)
				assert.Equal(t, "C3", dup.Label)
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			b, err := f.svc.Reserve(context.Background(), tc.in)
			assert.Nil(t, b)
			tc.check(t, err)
			assert.Zero(t, f.store.inserts, "nothing may be persisted")
		})
	}
}

func TestReserveOrphanedShowLogsError(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Reserve(context.Background(), ReserveInput{ShowID: orphanShow, UserID: alice, Seats: coords([2]int{0, 0})})
	require.Error(t, err)
	require.NotNil(t, f.hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, f.hook.LastEntry().Level)
}

func TestReserveCommitTimeConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Reserve(ctx, ReserveInput{ShowID: testShow, UserID: alice, Seats: coords([2]int{0, 0})})
	require.NoError(t, err)

	// The ledger now misses the committed booking, as if it landed between
	// the conflict check and the insert.
	f.store.staleReads = true
	_, err = f.svc.Reserve(ctx, ReserveInput{ShowID: testShow, UserID: bob, Seats: coords([2]int{0, 1}, [2]int{0, 0})})
	var conflict *SeatConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"A2", "A1"}, conflict.Labels)
}

func TestReserveRetriesDeadlockedWrite(t *testing.T) {
	f := newFixture(t)
	f.store.deadlocks = 1
	b, err := f.svc.Reserve(context.Background(), ReserveInput{ShowID: testShow, UserID: alice, Seats: coords([2]int{1, 0}, [2]int{1, 1})})
	require.NoError(t, err)
	assert.Equal(t, []string{"B1", "B2"}, b.Seats)
	assert.Equal(t, 2, f.store.attempts)
}

func TestReserveGivesUpAfterRepeatedDeadlock(t *testing.T) {
	f := newFixture(t)
	f.store.deadlocks = 2
	_, err := f.svc.Reserve(context.Background(), ReserveInput{ShowID: testShow, UserID: alice, Seats: coords([2]int{3, 0})})
	var conflict *SeatConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"D1"}, conflict.Labels)
	assert.Equal(t, 2, f.store.attempts)
	assert.Zero(t, f.store.inserts)
}

func TestReserveStorageFailure(t *testing.T) {
	f := newFixture(t)
	f.store.failWith = errors.New("disk on fire")
	_, err := f.svc.Reserve(context.Background(), ReserveInput{ShowID: testShow, UserID: alice, Seats: coords([2]int{0, 0})})
	require.Error(t, err)
	var conflict *SeatConflictError
	assert.False(t, errors.As(err, &conflict))
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestPublishFailureDoesNotFailReserve(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")
	_, err := f.svc.Reserve(context.Background(), ReserveInput{ShowID: testShow, UserID: alice, Seats: coords([2]int{0, 0})})
	require.NoError(t, err)
	f.svc.Wait()
	assert.Equal(t, logrus.WarnLevel, f.hook.LastEntry().Level)
}

func TestShowSeatsAndUserQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.svc.Reserve(ctx, ReserveInput{ShowID: testShow, UserID: alice, Seats: coords([2]int{0, 0}, [2]int{0, 1})})
	require.NoError(t, err)
	second, err := f.svc.Reserve(ctx, ReserveInput{ShowID: testShow, UserID: alice, Seats: coords([2]int{4, 4})})
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, first.ID, alice)
	require.NoError(t, err)

	m, err := f.svc.ShowSeats(ctx, testShow)
	require.NoError(t, err)
	assert.Equal(t, []string{"E5"}, m.Booked)
	assert.Len(t, m.Available, 24)
	assert.Equal(t, "A1", m.Available[0])

	_, err = f.svc.ShowSeats(ctx, orphanShow)
	assert.ErrorIs(t, err, ErrScreenNotFound)

	list, err := f.svc.ListUserBookings(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	got, err := f.svc.GetBooking(ctx, second.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"E5"}, got.Seats)
	_, err = f.svc.GetBooking(ctx, second.ID, bob)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestLedger(t *testing.T) {
	store := &memStore{}
	ledger := NewLedger(store)
	ctx := context.Background()

	_, err := store.InsertBooking(ctx, 1, alice, []string{"A1", "A2"})
	require.NoError(t, err)
	cancelled, err := store.InsertBooking(ctx, 1, bob, []string{"B1"})
	require.NoError(t, err)
	_, changed, err := store.UpdateCancellation(ctx, cancelled.ID)
	require.NoError(t, err)
	require.True(t, changed)
	_, err = store.InsertBooking(ctx, 2, bob, []string{"C1"})
	require.NoError(t, err)

	claimed, err := ledger.ClaimedSeats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"A1": {}, "A2": {}}, claimed)

	ok, err := ledger.HasConflict(ctx, 1, []string{"B1", "C1"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = ledger.HasConflict(ctx, 1, []string{"B1", "A2"})
	require.NoError(t, err)
	assert.True(t, ok)

	conflicts, err := ledger.Conflicts(ctx, 1, []string{"A2", "B1", "A1", "A2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A2", "A1"}, conflicts)
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "seats already booked: A1, B2", (&SeatConflictError{Labels: []string{"A1", "B2"}}).Error())
	assert.Equal(t, "seat [1.5,0] is not a valid coordinate", (&SeatOutOfRangeError{Seat: "[1.5,0]"}).Error())
	assert.Equal(t, "seat [9,9] is outside the screen (5 rows x 5 cols)", (&SeatOutOfRangeError{Seat: "[9,9]", Rows: 5, Cols: 5}).Error())
	assert.Equal(t, "seat C3 requested more than once", (&DuplicateSeatError{Label: "C3"}).Error())
}
