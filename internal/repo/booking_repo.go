// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Booking
// model.
//
// All functions accept a *gorm.DB handle, making them safe for use inside
// transactions. Slot exclusivity is owned by the ux_bookings_active_slot
// index: CreateBooking surfaces its violation as ErrDuplicate so callers can
// treat it as the authoritative "slot taken" outcome.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-leads-backend/internal/domain"
)

// BookingFilter narrows admin listings. Empty fields are ignored.
type BookingFilter struct {
	Date   string
	Status domain.BookingStatus
}

func (f BookingFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Date != "" {
		q = q.Where("slot_date = ?", f.Date)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	return q
}

// CountActiveAt returns the number of non-cancelled bookings at (date, hhmm).
func CountActiveAt(ctx context.Context, db *gorm.DB, date, hhmm string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Booking{}).
		Where("slot_date = ? AND slot_time = ? AND status <> ?", date, hhmm, domain.BookingCancelled).
		Count(&n).Error
	return n, err
}

// ActiveTimesOn returns the slot times already taken on date.
func ActiveTimesOn(ctx context.Context, db *gorm.DB, date string) ([]string, error) {
	var times []string
	err := db.WithContext(ctx).Model(&domain.Booking{}).
		Where("slot_date = ? AND status <> ?", date, domain.BookingCancelled).
		Order("slot_time ASC").
		Pluck("slot_time", &times).Error
	return times, err
}

// CreateBooking inserts b, assigning an ID and UTC timestamps when absent.
// A unique violation on the active-slot index is returned as ErrDuplicate.
func CreateBooking(ctx context.Context, db *gorm.DB, b *domain.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	if b.Status == "" {
		b.Status = domain.BookingPending
	}
	if err := db.WithContext(ctx).Create(b).Error; err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetBooking fetches a booking by ID, or ErrNotFound.
func GetBooking(ctx context.Context, db *gorm.DB, id string) (*domain.Booking, error) {
	var b domain.Booking
	if err := db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateBookingStatus sets the status (and cancelled_at when cancelling).
// Returns ErrNotFound when no row matched.
func UpdateBookingStatus(ctx context.Context, db *gorm.DB, id string, status domain.BookingStatus) error {
	now := time.Now().UTC()
	updates := map[string]any{"status": status, "updated_at": now}
	if status == domain.BookingCancelled {
		updates["cancelled_at"] = now
	}
	res := db.WithContext(ctx).Model(&domain.Booking{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		if IsUniqueViolation(res.Error) {
			return ErrDuplicate
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountBookings returns the number of bookings matching f.
func CountBookings(ctx context.Context, db *gorm.DB, f BookingFilter) (int64, error) {
	var n int64
	err := f.apply(db.WithContext(ctx).Model(&domain.Booking{})).Count(&n).Error
	return n, err
}

// ListBookingsPage returns bookings matching f ordered by slot, paginated.
func ListBookingsPage(ctx context.Context, db *gorm.DB, f BookingFilter, offset, limit int) ([]domain.Booking, error) {
	var out []domain.Booking
	err := f.apply(db.WithContext(ctx).Model(&domain.Booking{})).
		Order("slot_date ASC, slot_time ASC, created_at ASC").
		Offset(offset).Limit(limit).
		Find(&out).Error
	return out, err
}
