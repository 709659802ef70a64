// Package calendar builds iCalendar (RFC 5545) invites for bookings.
package calendar

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/rs/zerolog/log"
)

// Duration is the fixed appointment length.
const Duration = time.Hour

// LocationPlaceholder is used when the contact has no address.
const LocationPlaceholder = "To be confirmed"

// Organizer is the business identity that owns every invite.
type Organizer struct {
	Name  string
	Email string
}

// Details describes one appointment. Contact fields are optional.
type Details struct {
	BookingID   string
	Date        string // YYYY-MM-DD
	Time        string // HH:MM
	Name        string
	Email       string
	Phone       string
	Address     string
	ServiceName string
	Notes       string
}

// Invite is an encoded .ics attachment.
type Invite struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Generator produces invites in a fixed business timezone.
type Generator struct {
	org Organizer
	loc *time.Location
	now func() time.Time
}

// NewGenerator returns a Generator; a nil loc means UTC.
func NewGenerator(org Organizer, loc *time.Location) *Generator {
	if loc == nil {
		loc = time.UTC
	}
	return &Generator{org: org, loc: loc, now: time.Now}
}

// Window resolves the appointment start and end instants.
func (g *Generator) Window(date, hhmm string) (start, end time.Time, err error) {
	start, err = time.ParseInLocation("2006-01-02 15:04", date+" "+hhmm, g.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse slot: %w", err)
	}
	return start, start.Add(Duration), nil
}

// Build encodes an invite for d. It returns nil when the invite cannot be
// produced; callers carry on without it.
func (g *Generator) Build(d Details) (inv *Invite) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Str("booking_id", d.BookingID).Msg("ics encode panicked")
			inv = nil
		}
	}()

	start, end, err := g.Window(d.Date, d.Time)
	if err != nil {
		log.Warn().Err(err).Str("booking_id", d.BookingID).Msg("ics skipped")
		return nil
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodRequest)
	cal.SetProductId("-//" + g.org.Name + "//Bookings//EN")

	uid := d.BookingID
	if uid == "" {
		uid = start.UTC().Format("20060102T150405Z")
	}
	ev := cal.AddEvent(uid + "@" + domainOf(g.org.Email))
	now := g.now().UTC()
	ev.SetCreatedTime(now)
	ev.SetDtStampTime(now)
	ev.SetStartAt(start)
	ev.SetEndAt(end)
	ev.SetSummary(summary(g.org.Name, d.ServiceName))
	ev.SetLocation(location(d.Address))
	ev.SetDescription(description(d))
	if g.org.Email != "" {
		ev.SetOrganizer("mailto:"+g.org.Email, ics.WithCN(g.org.Name))
	}
	if d.Email != "" {
		params := []ics.PropertyParameter{ics.WithRSVP(true)}
		if d.Name != "" {
			params = append(params, ics.WithCN(d.Name))
		}
		ev.AddAttendee("mailto:"+d.Email, params...)
	}

	out := cal.Serialize()
	if out == "" {
		return nil
	}
	return &Invite{
		Filename:    "appointment.ics",
		ContentType: "text/calendar; charset=utf-8; method=REQUEST",
		Data:        []byte(out),
	}
}

func summary(business, service string) string {
	if service != "" {
		return service + " consultation with " + business
	}
	return "Consultation with " + business
}

func location(addr string) string {
	if strings.TrimSpace(addr) == "" {
		return LocationPlaceholder
	}
	return addr
}

func description(d Details) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Appointment on %s at %s.", d.Date, d.Time)
	if d.Name != "" {
		fmt.Fprintf(&b, "\nContact: %s", d.Name)
	}
	if d.Phone != "" {
		fmt.Fprintf(&b, "\nPhone: %s", d.Phone)
	}
	if d.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s", d.Notes)
	}
	if d.BookingID != "" {
		fmt.Fprintf(&b, "\nReference: %s", d.BookingID)
	}
	return b.String()
}

func domainOf(email string) string {
	if i := strings.LastIndexByte(email, '@'); i >= 0 && i < len(email)-1 {
		return email[i+1:]
	}
	return "localhost"
}
