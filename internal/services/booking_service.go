// Package services – BookingService
//
// This file implements slot availability and the booking lifecycle. Slot
// exclusivity is owned by the storage layer: the availability check and the
// insert run in one transaction, and a unique-index violation on insert is
// the authoritative "slot taken" outcome. Notifications are launched only
// after commit and are never awaited.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-leads-backend/internal/calendar"
	"github.com/tbourn/go-leads-backend/internal/domain"
	"github.com/tbourn/go-leads-backend/internal/notify"
	"github.com/tbourn/go-leads-backend/internal/realtime"
	"github.com/tbourn/go-leads-backend/internal/repo"
	"github.com/tbourn/go-leads-backend/internal/validation"
)

// BookingRepo defines the repository contract required by BookingService.
type BookingRepo interface {
	// CountActiveAt returns the number of non-cancelled bookings at a slot.
	CountActiveAt(ctx context.Context, db *gorm.DB, date, hhmm string) (int64, error)

	// ActiveTimesOn returns taken slot times on date.
	ActiveTimesOn(ctx context.Context, db *gorm.DB, date string) ([]string, error)

	// CreateBooking inserts a booking; ErrDuplicate when the slot is held.
	CreateBooking(ctx context.Context, db *gorm.DB, b *domain.Booking) error

	GetBooking(ctx context.Context, db *gorm.DB, id string) (*domain.Booking, error)
	UpdateBookingStatus(ctx context.Context, db *gorm.DB, id string, status domain.BookingStatus) error
	CountBookings(ctx context.Context, db *gorm.DB, f repo.BookingFilter) (int64, error)
	ListBookingsPage(ctx context.Context, db *gorm.DB, f repo.BookingFilter, offset, limit int) ([]domain.Booking, error)

	// GetLead is used to fill contact details for confirmations.
	GetLead(ctx context.Context, db *gorm.DB, id string) (*domain.Lead, error)
}

// SlotRules describes the bookable day.
type SlotRules struct {
	Location    *time.Location
	SlotMinutes int
	Open        string // HH:MM
	Close       string // HH:MM, exclusive
}

// Slot is one bookable time on a day.
type Slot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// BookingResult is the outcome of a successful Create.
type BookingResult struct {
	Booking          *domain.Booking
	ConfirmationSent bool
	CalendarInvite   bool
}

// BookingService manages availability and bookings.
type BookingService struct {
	DB       *gorm.DB
	Repo     BookingRepo
	Rules    SlotRules
	Invites  *calendar.Generator
	Notifier *Notifier
}

// NewBookingService constructs a BookingService. Rules default to 30-minute
// slots between 08:00 and 17:00 UTC.
func NewBookingService(db *gorm.DB, r BookingRepo, rules SlotRules, inv *calendar.Generator, n *Notifier) *BookingService {
	if rules.Location == nil {
		rules.Location = time.UTC
	}
	if rules.SlotMinutes <= 0 {
		rules.SlotMinutes = 30
	}
	if rules.Open == "" {
		rules.Open = "08:00"
	}
	if rules.Close == "" {
		rules.Close = "17:00"
	}
	return &BookingService{DB: db, Repo: r, Rules: rules, Invites: inv, Notifier: n}
}

// IsSlotAvailable reports whether no active booking holds (date, hhmm).
func (s *BookingService) IsSlotAvailable(ctx context.Context, date, hhmm string) (bool, error) {
	n, err := s.Repo.CountActiveAt(ctx, s.DB, date, hhmm)
	if err != nil {
		return false, dbErr("check availability", err)
	}
	return n == 0, nil
}

// DaySlots lists every slot of date with its availability.
func (s *BookingService) DaySlots(ctx context.Context, date string) ([]Slot, error) {
	taken, err := s.Repo.ActiveTimesOn(ctx, s.DB, date)
	if err != nil {
		return nil, dbErr("list day", err)
	}
	held := make(map[string]bool, len(taken))
	for _, t := range taken {
		held[t] = true
	}

	open, err := time.Parse("15:04", s.Rules.Open)
	if err != nil {
		return nil, fmt.Errorf("booking open: %w", err)
	}
	closing, err := time.Parse("15:04", s.Rules.Close)
	if err != nil {
		return nil, fmt.Errorf("booking close: %w", err)
	}
	step := time.Duration(s.Rules.SlotMinutes) * time.Minute

	var out []Slot
	for t := open; t.Before(closing); t = t.Add(step) {
		hhmm := t.Format("15:04")
		out = append(out, Slot{Time: hhmm, Available: !held[hhmm]})
	}
	return out, nil
}

// Create books a validated slot. It returns ErrSlotTaken when an active
// booking already holds the slot, and a *DatabaseError for other storage
// failures.
func (s *BookingService) Create(ctx context.Context, in validation.BookingInput, cc domain.ClientContext) (*BookingResult, error) {
	tr := otel.Tracer("services/BookingService")
	ctx, span := tr.Start(ctx, "Create", trace.WithAttributes(
		attribute.String("slot.date", in.SlotDate),
		attribute.String("slot.time", in.SlotTime),
	))
	defer span.End()

	status := in.Status
	if status == "" {
		status = domain.BookingPending
	}
	b := &domain.Booking{SlotDate: in.SlotDate, SlotTime: in.SlotTime, Status: status}
	if in.LeadID != nil && strings.TrimSpace(*in.LeadID) != "" {
		id := strings.TrimSpace(*in.LeadID)
		b.LeadID = &id
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := s.Repo.CountActiveAt(ctx, tx, b.SlotDate, b.SlotTime)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrSlotTaken
		}
		if err := s.Repo.CreateBooking(ctx, tx, b); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return ErrSlotTaken
			}
			return err
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrSlotTaken) {
			return nil, ErrSlotTaken
		}
		return nil, dbErr("create booking", err)
	}
	span.SetAttributes(attribute.String("booking.id", b.ID))

	c := s.contact(ctx, b, in)
	var inv *calendar.Invite
	if s.Invites != nil {
		inv = s.Invites.Build(calendar.Details{
			BookingID: b.ID,
			Date:      b.SlotDate,
			Time:      b.SlotTime,
			Name:      c.Name,
			Email:     c.Email,
			Phone:     c.Phone,
			Address:   c.Address,
			Notes:     c.Notes,
		})
	}
	// Attribution sent in the body wins over headers and query params.
	cc.UTM = in.UTM.Merge(cc.UTM)
	cc.PagePath = nonEmpty(in.PagePath, cc.PagePath)
	s.notifyCreated(ctx, b, c, inv, cc)

	return &BookingResult{Booking: b, ConfirmationSent: c.Email != "", CalendarInvite: inv != nil}, nil
}

// UpdateStatus moves a booking along its lifecycle. Cancelling frees the
// slot for new bookings.
func (s *BookingService) UpdateStatus(ctx context.Context, id string, next domain.BookingStatus) (*domain.Booking, error) {
	tr := otel.Tracer("services/BookingService")
	ctx, span := tr.Start(ctx, "UpdateStatus", trace.WithAttributes(
		attribute.String("booking.id", id),
		attribute.String("booking.status", string(next)),
	))
	defer span.End()

	var out *domain.Booking
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := s.Repo.GetBooking(ctx, tx, id)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if !cur.Status.CanTransition(next) {
			return ErrInvalidTransition
		}
		if err := s.Repo.UpdateBookingStatus(ctx, tx, id, next); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		out, err = s.Repo.GetBooking(ctx, tx, id)
		return err
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrBookingNotFound) || errors.Is(err, ErrInvalidTransition) {
			return nil, err
		}
		return nil, dbErr("update booking status", err)
	}

	s.notifyStatus(ctx, out)
	return out, nil
}

// List returns a page of bookings and the total count. It applies defaults
// for invalid page/pageSize.
func (s *BookingService) List(ctx context.Context, f repo.BookingFilter, page, pageSize int) ([]domain.Booking, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := s.Repo.CountBookings(ctx, s.DB, f)
	if err != nil {
		return nil, 0, dbErr("count bookings", err)
	}
	if total == 0 {
		return []domain.Booking{}, 0, nil
	}
	items, err := s.Repo.ListBookingsPage(ctx, s.DB, f, offset, pageSize)
	if err != nil {
		return nil, 0, dbErr("list bookings", err)
	}
	return items, total, nil
}

// Stats returns the number of bookings matching f and their latest update
// time, for conditional admin listings.
func (s *BookingService) Stats(ctx context.Context, f repo.BookingFilter) (int64, *time.Time, error) {
	n, ts, err := repo.BookingsStats(ctx, s.DB, f)
	if err != nil {
		return 0, nil, dbErr("booking stats", err)
	}
	return n, ts, nil
}

type bookingContact struct {
	Name    string
	Email   string
	Phone   string
	Address string
	Notes   string
}

// contact merges the request's contact fields with the linked lead. A
// missing or unreadable lead is not an error.
func (s *BookingService) contact(ctx context.Context, b *domain.Booking, in validation.BookingInput) bookingContact {
	c := bookingContact{Name: in.Name, Email: in.Email, Phone: in.Phone, Address: in.Address, Notes: in.Notes}
	if b.LeadID == nil {
		return c
	}
	lead, err := s.Repo.GetLead(ctx, s.DB, *b.LeadID)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			log.Warn().Err(err).Str("booking_id", b.ID).Msg("lead lookup failed")
		}
		return c
	}
	pick := func(got, fallback string) string {
		if got != "" {
			return got
		}
		return fallback
	}
	c.Name = pick(c.Name, lead.Name)
	c.Email = pick(c.Email, lead.Email)
	c.Phone = pick(c.Phone, lead.Mobile)
	c.Address = pick(c.Address, lead.Address)
	return c
}

func (s *BookingService) window(b *domain.Booking) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01-02 15:04", b.SlotDate+" "+b.SlotTime, s.Rules.Location)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.Add(calendar.Duration), nil
}

func (s *BookingService) notifyCreated(ctx context.Context, b *domain.Booking, c bookingContact, inv *calendar.Invite, cc domain.ClientContext) {
	n := s.Notifier
	if n == nil {
		return
	}
	leadID := ""
	if b.LeadID != nil {
		leadID = *b.LeadID
	}

	var tasks []notify.Task
	tasks = append(tasks, n.alertTask(notify.Alert{
		Title:    "New booking",
		Severity: notify.SeveritySuccess,
		Text:     fmt.Sprintf("%s at %s (%s)", b.SlotDate, b.SlotTime, b.Status),
		Fields: append([]notify.Field{
			{Label: "Booking ID", Value: b.ID},
			{Label: "Name", Value: c.Name},
			{Label: "Phone", Value: c.Phone},
			{Label: "Email", Value: c.Email},
			{Label: "Address", Value: c.Address},
			{Label: "Lead ID", Value: leadID},
		}, clientFields(cc)...),
	})...)

	if c.Email != "" {
		subject, html, err := notify.RenderBookingConfirmation(notify.BookingEmailData{
			Business:  n.Business,
			BookingID: b.ID,
			Name:      c.Name,
			Date:      b.SlotDate,
			Time:      b.SlotTime,
			Timezone:  s.Rules.Location.String(),
			Status:    string(b.Status),
			Location:  addressOr(c.Address),
			HasInvite: inv != nil,
		})
		if err != nil {
			log.Warn().Err(err).Str("booking_id", b.ID).Msg("booking email render failed")
		} else {
			e := notify.Email{To: []string{c.Email}, ReplyTo: n.Business.Email, Subject: subject, HTML: html}
			if inv != nil {
				e.Attachments = []notify.Attachment{{Filename: inv.Filename, ContentType: inv.ContentType, Content: inv.Data}}
			}
			tasks = append(tasks, n.emailTask(e)...)
		}
	}

	tasks = append(tasks, n.analyticsTask(cc, "analytics_conversion", notify.Event{
		Name: "book_appointment",
		Params: attribution(cc.UTM, map[string]any{
			"booking_id": b.ID,
			"lead_id":    leadID,
			"slot_date":  b.SlotDate,
			"slot_time":  b.SlotTime,
			"value":      n.BookingValue,
			"currency":   n.currency(),
		}),
	})...)
	tasks = append(tasks, n.analyticsTask(cc, "analytics_form", notify.Event{
		Name: "form_submission",
		Params: map[string]any{
			"form_type":   "booking",
			"has_email":   c.Email != "",
			"has_phone":   c.Phone != "",
			"has_address": c.Address != "",
			"has_lead":    leadID != "",
			"page_path":   cc.PagePath,
		},
	})...)

	tasks = append(tasks, n.eventTask(notify.IntakeEvent{
		Type:       "booking.created",
		ID:         b.ID,
		OccurredAt: b.CreatedAt,
		Data:       b,
	})...)

	if n.Calendar != nil {
		if start, end, err := s.window(b); err == nil {
			ev := notify.CalendarEvent{
				BookingID:     b.ID,
				Summary:       "Consultation: " + nonEmpty(c.Name, "new client"),
				Description:   fmt.Sprintf("Booking %s\nPhone: %s\nEmail: %s\nNotes: %s", b.ID, c.Phone, c.Email, c.Notes),
				Location:      addressOr(c.Address),
				Start:         start,
				End:           end,
				AttendeeEmail: c.Email,
			}
			tasks = append(tasks, notify.Task{Channel: "gcal", Run: func(ctx context.Context) error {
				_, err := n.Calendar.InsertEvent(ctx, ev)
				return err
			}})
		}
	}

	tasks = append(tasks, s.slotTask(b, false)...)
	n.dispatch(ctx, "booking_created", tasks)
}

func (s *BookingService) notifyStatus(ctx context.Context, b *domain.Booking) {
	n := s.Notifier
	if n == nil {
		return
	}
	var tasks []notify.Task
	tasks = append(tasks, n.alertTask(notify.Alert{
		Title:    "Booking " + string(b.Status),
		Severity: notify.SeverityInfo,
		Text:     fmt.Sprintf("%s at %s", b.SlotDate, b.SlotTime),
		Fields:   []notify.Field{{Label: "Booking ID", Value: b.ID}},
	})...)
	tasks = append(tasks, n.eventTask(notify.IntakeEvent{
		Type:       "booking." + string(b.Status),
		ID:         b.ID,
		OccurredAt: b.UpdatedAt,
		Data:       b,
	})...)
	if b.Status == domain.BookingCancelled {
		tasks = append(tasks, s.slotTask(b, true)...)
	}
	n.dispatch(ctx, "booking_status", tasks)
}

func (s *BookingService) slotTask(b *domain.Booking, available bool) []notify.Task {
	if s.Notifier.Slots == nil {
		return nil
	}
	u := realtime.SlotUpdate{
		Date:      b.SlotDate,
		Time:      b.SlotTime,
		Available: available,
		Status:    string(b.Status),
		At:        time.Now().UTC(),
	}
	slots := s.Notifier.Slots
	return []notify.Task{{Channel: "realtime", Run: func(ctx context.Context) error {
		return slots.PublishSlot(ctx, u)
	}}}
}

func addressOr(addr string) string {
	if strings.TrimSpace(addr) == "" {
		return calendar.LocationPlaceholder
	}
	return addr
}

func nonEmpty(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
