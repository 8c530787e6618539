// Package service holds the booking rules: which seats of a show are
// claimed, when a reservation may be admitted and how a booking is
// cancelled.  All shared state lives in the BookingStore; nothing here
// keeps mutable state between calls.
package service

import "context"

// Ledger answers which seats of a show are currently claimed.  It is
// read-only and always asks the store, so it reflects the latest committed
// state at call time.
type Ledger struct {
	store BookingStore
}

// NewLedger returns a Ledger reading from store.
func NewLedger(store BookingStore) *Ledger {
	return &Ledger{store: store}
}

// ClaimedSeats returns the union of the seat labels of every non-cancelled
// booking for the show.
func (l *Ledger) ClaimedSeats(ctx context.Context, showID uint64) (map[string]struct{}, error) {
	bookings, err := l.store.FindBookingsByShow(ctx, showID, false)
	if err != nil {
		return nil, err
	}
	claimed := make(map[string]struct{})
	for _, b := range bookings {
		if b.IsCancelled {
			continue
		}
		for _, label := range b.Seats {
			claimed[label] = struct{}{}
		}
	}
	return claimed, nil
}

// HasConflict reports whether any of labels is already claimed.
func (l *Ledger) HasConflict(ctx context.Context, showID uint64, labels []string) (bool, error) {
	conflicts, err := l.Conflicts(ctx, showID, labels)
	if err != nil {
		return false, err
	}
	return len(conflicts) > 0, nil
}

// Conflicts returns every label of labels that is already claimed, in the
// order given and without repeats.
func (l *Ledger) Conflicts(ctx context.Context, showID uint64, labels []string) ([]string, error) {
	claimed, err := l.ClaimedSeats(ctx, showID)
	if err != nil {
		return nil, err
	}
	var out []string
	seen := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		if _, ok := claimed[label]; ok {
			out = append(out, label)
		}
	}
	return out, nil
}
