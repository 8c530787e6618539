// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios. For example, ErrSeatTaken signals that another live booking
// already holds one of the requested seats, which the caller reports as a
// seat conflict rather than a storage failure.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// ErrTheatreNotFound is returned when a theatre cannot be found in the DB.
var ErrTheatreNotFound = errors.New("theatre not found")

// ErrScreenNotFound is returned when a theatre has no screen with the
// requested number.
var ErrScreenNotFound = errors.New("screen not found")

// ErrShowNotFound indicates that a show was not located in the DB.
var ErrShowNotFound = errors.New("show not found")

// ErrBookingNotFound indicates that a booking was not located in the DB.
var ErrBookingNotFound = errors.New("booking not found")

// ErrSeatTaken is returned when a booking write would give a seat a second
// live claim for the same show.  The unique index on booking_seats is the
// only arbiter; the whole write has been rolled back when this is returned.
var ErrSeatTaken = errors.New("seat already booked")

// ErrWriteConflict is returned when the database aborted a booking write
// because of a deadlock with a concurrent writer.  Nothing was persisted
// and the write may be retried; it says nothing about which seats, if
// any, are taken.
var ErrWriteConflict = errors.New("booking write aborted by a concurrent writer")

// MySQL server error numbers.
const (
	mysqlDupEntry = 1062
	mysqlDeadlock = 1213
)

// isUniqueViolation reports whether err is a duplicate-key failure from
// either supported driver.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDupEntry
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// isDeadlock reports whether err is a MySQL deadlock, which InnoDB raises
// when two transactions insert overlapping unique keys in opposite order.
func isDeadlock(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDeadlock
}

// classifyWriteErr maps driver failures of a seat-claiming write to the
// package sentinels.
func classifyWriteErr(err error) error {
	switch {
	case isUniqueViolation(err):
		return ErrSeatTaken
	case isDeadlock(err):
		return ErrWriteConflict
	}
	return err
}
