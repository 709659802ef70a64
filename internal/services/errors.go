// Package services implements the intake use cases: bookings, leads and SMS.
// This file centralizes service-level error values so that handlers can map
// them to HTTP results consistently.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrSlotTaken is returned when a non-cancelled booking already holds
	// the requested (date, time).
	ErrSlotTaken = errors.New("slot already booked")

	// ErrBookingNotFound indicates the booking id does not exist.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrInvalidTransition is returned for status changes the booking
	// lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid booking status transition")
)

// DatabaseError wraps a storage failure. Its message never reaches clients.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string { return fmt.Sprintf("database: %s: %v", e.Op, e.Err) }

func (e *DatabaseError) Unwrap() error { return e.Err }

func dbErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DatabaseError{Op: op, Err: err}
}
