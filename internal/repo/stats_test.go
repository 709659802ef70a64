package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-leads-backend/internal/domain"
)

func TestBookingsStats_CountError_NoTable(t *testing.T) {
	db := newTestDB(t, false)
	if _, _, err := BookingsStats(context.Background(), db, BookingFilter{}); err == nil {
		t.Fatalf("expected error due to missing bookings table")
	}
}

func TestBookingsStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, true)
	count, maxAt, err := BookingsStats(context.Background(), db, BookingFilter{})
	if err != nil {
		t.Fatalf("BookingsStats error: %v", err)
	}
	if count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxAt)
	}
}

func TestBookingsStats_FilterAndMax(t *testing.T) {
	db := newTestDB(t, true)

	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC) // max for 2030-01-01
	t3 := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)   // other date
	rows := []domain.Booking{
		{ID: "b1", SlotDate: "2030-01-01", SlotTime: "09:00", Status: domain.BookingPending, CreatedAt: t1, UpdatedAt: t1},
		{ID: "b2", SlotDate: "2030-01-01", SlotTime: "10:00", Status: domain.BookingConfirmed, CreatedAt: t1, UpdatedAt: t2},
		{ID: "b3", SlotDate: "2030-01-02", SlotTime: "09:00", Status: domain.BookingPending, CreatedAt: t3, UpdatedAt: t3},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	count, maxAt, err := BookingsStats(context.Background(), db, BookingFilter{Date: "2030-01-01"})
	if err != nil {
		t.Fatalf("BookingsStats: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
	if maxAt == nil || !maxAt.Equal(t2) {
		t.Fatalf("maxUpdatedAt = %v, want %v", maxAt, t2)
	}
}
