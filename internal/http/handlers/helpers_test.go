package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-leads-backend/internal/domain"
	"github.com/tbourn/go-leads-backend/internal/http/middleware"
	"github.com/tbourn/go-leads-backend/internal/notify"
	"github.com/tbourn/go-leads-backend/internal/repo"
	"github.com/tbourn/go-leads-backend/internal/services"
	"github.com/tbourn/go-leads-backend/internal/validation"
)

// ---------- stubs with func fields ----------

type stubBookings struct {
	available func(ctx context.Context, date, hhmm string) (bool, error)
	day       func(ctx context.Context, date string) ([]services.Slot, error)
	create    func(ctx context.Context, in validation.BookingInput, cc domain.ClientContext) (*services.BookingResult, error)
	update    func(ctx context.Context, id string, next domain.BookingStatus) (*domain.Booking, error)
	list      func(ctx context.Context, f repo.BookingFilter, page, size int) ([]domain.Booking, int64, error)
	stats     func(ctx context.Context, f repo.BookingFilter) (int64, *time.Time, error)
}

func (s stubBookings) IsSlotAvailable(ctx context.Context, date, hhmm string) (bool, error) {
	if s.available != nil {
		return s.available(ctx, date, hhmm)
	}
	return true, nil
}

func (s stubBookings) DaySlots(ctx context.Context, date string) ([]services.Slot, error) {
	if s.day != nil {
		return s.day(ctx, date)
	}
	return nil, nil
}

func (s stubBookings) Create(ctx context.Context, in validation.BookingInput, cc domain.ClientContext) (*services.BookingResult, error) {
	if s.create != nil {
		return s.create(ctx, in, cc)
	}
	return &services.BookingResult{Booking: &domain.Booking{ID: "b-1", SlotDate: in.SlotDate, SlotTime: in.SlotTime, Status: domain.BookingPending}}, nil
}

func (s stubBookings) UpdateStatus(ctx context.Context, id string, next domain.BookingStatus) (*domain.Booking, error) {
	if s.update != nil {
		return s.update(ctx, id, next)
	}
	return &domain.Booking{ID: id, Status: next}, nil
}

func (s stubBookings) List(ctx context.Context, f repo.BookingFilter, page, size int) ([]domain.Booking, int64, error) {
	if s.list != nil {
		return s.list(ctx, f, page, size)
	}
	return []domain.Booking{}, 0, nil
}

func (s stubBookings) Stats(ctx context.Context, f repo.BookingFilter) (int64, *time.Time, error) {
	if s.stats != nil {
		return s.stats(ctx, f)
	}
	return 0, nil, nil
}

type stubLeads struct {
	create func(ctx context.Context, in validation.LeadInput, cc domain.ClientContext) (*services.LeadResult, error)
}

func (s stubLeads) Create(ctx context.Context, in validation.LeadInput, cc domain.ClientContext) (*services.LeadResult, error) {
	if s.create != nil {
		return s.create(ctx, in, cc)
	}
	return &services.LeadResult{Lead: &domain.Lead{ID: "l-1", Name: in.Name, Mobile: in.Mobile}}, nil
}

type stubSMS struct {
	send  func(ctx context.Context, in validation.SMSSendInput, cc domain.ClientContext) (*services.SMSResult, error)
	track func(ctx context.Context, in validation.SMSTrackInput, cc domain.ClientContext) (*services.SMSClick, error)
}

func (s stubSMS) Send(ctx context.Context, in validation.SMSSendInput, cc domain.ClientContext) (*services.SMSResult, error) {
	if s.send != nil {
		return s.send(ctx, in, cc)
	}
	return &services.SMSResult{Success: true, Message: services.SMSSentMessage, MessageID: "SM1", InteractionID: "i-1", Timestamp: time.Now()}, nil
}

func (s stubSMS) TrackClick(ctx context.Context, in validation.SMSTrackInput, cc domain.ClientContext) (*services.SMSClick, error) {
	if s.track != nil {
		return s.track(ctx, in, cc)
	}
	return &services.SMSClick{InteractionID: "i-2", Timestamp: time.Now()}, nil
}

type stubStream struct{ date string }

func (s *stubStream) ServeWS(w http.ResponseWriter, _ *http.Request, date string) {
	s.date = date
	w.WriteHeader(http.StatusOK)
}

type recReporter struct {
	mu       sync.Mutex
	failures []notify.Failure
}

func (r *recReporter) Report(_ context.Context, _ *zerolog.Logger, f notify.Failure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, f)
}

func (r *recReporter) last(t *testing.T) notify.Failure {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.failures) == 0 {
		t.Fatalf("no failure reported")
	}
	return r.failures[len(r.failures)-1]
}

// ---------- router + request helpers ----------

func testValidator() *validation.Validator {
	return validation.New(validation.Options{
		Location:       time.UTC,
		SlotMinutes:    30,
		Open:           "08:00",
		Close:          "17:00",
		MaxAttachments: 5,
		Now:            func() time.Time { return time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC) },
	})
}

func newRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ClientContext())
	r.POST("/bookings", h.CreateBooking)
	r.GET("/bookings/availability", h.CheckAvailability)
	r.GET("/bookings/slots", h.ListDaySlots)
	r.GET("/bookings/ws", h.StreamSlots)
	r.OPTIONS("/bookings", h.Preflight)
	r.POST("/leads", h.CreateLead)
	r.POST("/sms", h.SendSMS)
	r.PUT("/sms", h.TrackSMSClick)
	r.GET("/admin/bookings", h.ListBookings)
	r.PATCH("/admin/bookings/:id/status", h.UpdateBookingStatus)
	return r
}

func do(r *gin.Engine, method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("json: %v (%s)", err, w.Body.String())
	}
	return m
}

func dataOf(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	m := decode(t, w)
	if m["success"] != true {
		t.Fatalf("success != true: %s", w.Body.String())
	}
	d, ok := m["data"].(map[string]any)
	if !ok {
		t.Fatalf("data missing: %s", w.Body.String())
	}
	return d
}

func silenceLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(buf)
	return buf
}
