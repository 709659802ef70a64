package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-leads-backend/internal/domain"
	"github.com/tbourn/go-leads-backend/internal/notify"
	"github.com/tbourn/go-leads-backend/internal/realtime"
	"github.com/tbourn/go-leads-backend/internal/repo"
	"github.com/tbourn/go-leads-backend/internal/storage"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return db
}

// repoShim adapts the repo package functions to BookingRepo.
type repoShim struct{}

func (repoShim) CountActiveAt(ctx context.Context, db *gorm.DB, date, hhmm string) (int64, error) {
	return repo.CountActiveAt(ctx, db, date, hhmm)
}
func (repoShim) ActiveTimesOn(ctx context.Context, db *gorm.DB, date string) ([]string, error) {
	return repo.ActiveTimesOn(ctx, db, date)
}
func (repoShim) CreateBooking(ctx context.Context, db *gorm.DB, b *domain.Booking) error {
	return repo.CreateBooking(ctx, db, b)
}
func (repoShim) GetBooking(ctx context.Context, db *gorm.DB, id string) (*domain.Booking, error) {
	return repo.GetBooking(ctx, db, id)
}
func (repoShim) UpdateBookingStatus(ctx context.Context, db *gorm.DB, id string, s domain.BookingStatus) error {
	return repo.UpdateBookingStatus(ctx, db, id, s)
}
func (repoShim) CountBookings(ctx context.Context, db *gorm.DB, f repo.BookingFilter) (int64, error) {
	return repo.CountBookings(ctx, db, f)
}
func (repoShim) ListBookingsPage(ctx context.Context, db *gorm.DB, f repo.BookingFilter, offset, limit int) ([]domain.Booking, error) {
	return repo.ListBookingsPage(ctx, db, f, offset, limit)
}
func (repoShim) GetLead(ctx context.Context, db *gorm.DB, id string) (*domain.Lead, error) {
	return repo.GetLead(ctx, db, id)
}

// recorder captures every outbound channel call.
type recorder struct {
	mu       sync.Mutex
	alerts   []notify.Alert
	events   []notify.Event
	emails   []notify.Email
	intake   []notify.IntakeEvent
	slots    []realtime.SlotUpdate
	calendar []notify.CalendarEvent

	alertPanics bool
	mailErr     error
}

func (r *recorder) SendAlert(_ context.Context, a notify.Alert) error {
	if r.alertPanics {
		panic("slack exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return nil
}

func (r *recorder) Track(_ context.Context, _ string, evs ...notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evs...)
	return nil
}

func (r *recorder) SendEmail(_ context.Context, e notify.Email) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mailErr != nil {
		return "", r.mailErr
	}
	r.emails = append(r.emails, e)
	return "em_1", nil
}

func (r *recorder) PublishEvent(_ context.Context, ev notify.IntakeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intake = append(r.intake, ev)
	return nil
}

func (r *recorder) PublishSlot(_ context.Context, u realtime.SlotUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots = append(r.slots, u)
	return nil
}

func (r *recorder) InsertEvent(_ context.Context, ev notify.CalendarEvent) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calendar = append(r.calendar, ev)
	return "gcal_1", nil
}

func (r *recorder) eventNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Name)
	}
	return out
}

func (r *recorder) event(name string) (notify.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Name == name {
			return e, true
		}
	}
	return notify.Event{}, false
}

func newNotifier(rec *recorder) *Notifier {
	return &Notifier{
		Dispatcher:   notify.NewDispatcher(time.Second),
		Alerts:       rec,
		Mail:         rec,
		Analytics:    rec,
		Events:       rec,
		Calendar:     rec,
		Slots:        rec,
		Business:     notify.Business{Name: "Summit Construction", Email: "hello@summit.test", Phone: "8015550100"},
		LeadValue:    50,
		BookingValue: 100,
	}
}

func drain(t *testing.T, n *Notifier) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := n.Dispatcher.Wait(ctx); err != nil {
		t.Fatalf("dispatcher Wait: %v", err)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type stubStore struct {
	mu    sync.Mutex
	puts  []string
	failN map[int]bool
	calls int
}

func (s *stubStore) Put(_ context.Context, filename, contentType string, data []byte) (storage.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if s.failN[i] {
		return storage.Object{}, fmt.Errorf("disk full")
	}
	s.puts = append(s.puts, filename)
	key := fmt.Sprintf("obj-%d", i)
	return storage.Object{Key: key, URL: "/uploads/" + key, Size: int64(len(data))}, nil
}

type stubProvider struct {
	receipt notify.SMSReceipt
	err     error
	calls   int
	lastTo  string
	lastMsg string
}

func (p *stubProvider) SendSMS(_ context.Context, to, body string) (notify.SMSReceipt, error) {
	p.calls++
	p.lastTo, p.lastMsg = to, body
	return p.receipt, p.err
}
