package service

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/cinema-seat-booking/internal/model"
	"github.com/iliyamo/cinema-seat-booking/internal/queue"
	"github.com/iliyamo/cinema-seat-booking/internal/repository"
)

type fakeShows map[uint64]*model.Show

func (f fakeShows) GetShow(_ context.Context, id uint64) (*model.Show, error) {
	if s, ok := f[id]; ok {
		return s, nil
	}
	return nil, ErrShowNotFound
}

type screenKey struct {
	theatre uint64
	number  int
}

type fakeScreens map[screenKey]*model.Screen

func (f fakeScreens) GetScreen(_ context.Context, theatreID uint64, number int) (*model.Screen, error) {
	if s, ok := f[screenKey{theatreID, number}]; ok {
		return s, nil
	}
	return nil, ErrScreenNotFound
}

// memStore is an in-memory BookingStore that enforces one live claim per
// seat the way the SQL unique index does.  With staleReads set it hides
// every booking from FindBookingsByShow, which lets tests reach the
// commit-time conflict path.  staleLookups makes FindBookingByID report
// every booking as still active, the view a concurrent canceller can
// have.  deadlocks is the number of upcoming inserts that fail with
// ErrWriteConflict.
type memStore struct {
	mu           sync.Mutex
	bookings     []*model.Booking
	staleReads   bool
	staleLookups bool
	deadlocks    int
	attempts     int
	inserts      int
	failWith     error
}

func (m *memStore) InsertBooking(_ context.Context, showID, userID uint64, labels []string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if m.failWith != nil {
		return nil, m.failWith
	}
	if m.deadlocks > 0 {
		m.deadlocks--
		return nil, repository.ErrWriteConflict
	}
	for _, b := range m.bookings {
		if b.ShowID != showID || b.IsCancelled {
			continue
		}
		for _, have := range b.Seats {
			for _, want := range labels {
				if have == want {
					return nil, repository.ErrSeatTaken
				}
			}
		}
	}
	m.inserts++
	b := &model.Booking{
		ID:        uint64(len(m.bookings) + 1),
		Reference: "ref",
		UserID:    userID,
		ShowID:    showID,
		Seats:     append([]string(nil), labels...),
		CreatedAt: time.Now().UTC(),
	}
	m.bookings = append(m.bookings, b)
	cp := *b
	return &cp, nil
}

func (m *memStore) FindBookingsByShow(_ context.Context, showID uint64, includeCancelled bool) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Booking{}
	if m.staleReads {
		return out, nil
	}
	for _, b := range m.bookings {
		if b.ShowID == showID && (includeCancelled || !b.IsCancelled) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memStore) FindBookingByID(_ context.Context, id uint64) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.ID == id {
			cp := *b
			if m.staleLookups {
				cp.IsCancelled = false
			}
			return &cp, nil
		}
	}
	return nil, ErrBookingNotFound
}

func (m *memStore) UpdateCancellation(_ context.Context, id uint64) (*model.Booking, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.ID == id {
			changed := !b.IsCancelled
			b.IsCancelled = true
			cp := *b
			return &cp, changed, nil
		}
	}
	return nil, false, ErrBookingNotFound
}

func (m *memStore) ListBookingsByUser(_ context.Context, userID uint64) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Booking{}
	for i := len(m.bookings) - 1; i >= 0; i-- {
		if m.bookings[i].UserID == userID {
			out = append(out, *m.bookings[i])
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	confirmed []queue.BookingEvent
	cancelled []queue.BookingEvent
	err       error
}

func (p *recordingPublisher) PublishBookingConfirmed(_ context.Context, ev queue.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed = append(p.confirmed, ev)
	return p.err
}

func (p *recordingPublisher) PublishBookingCancelled(_ context.Context, ev queue.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, ev)
	return p.err
}
