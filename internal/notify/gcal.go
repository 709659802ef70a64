package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// CalendarEvent is an appointment mirrored to the business calendar.
type CalendarEvent struct {
	BookingID     string
	Summary       string
	Description   string
	Location      string
	Start         time.Time
	End           time.Time
	AttendeeEmail string
}

// GoogleCalendar inserts booking events into one calendar using an offline
// refresh token.
type GoogleCalendar struct {
	calendarID string
	svc        *calendar.Service
}

// NewGoogleCalendar exchanges refreshToken on demand through base (which may
// carry tracing). It returns (nil, nil) when the integration is not
// configured.
func NewGoogleCalendar(ctx context.Context, clientID, clientSecret, refreshToken, calendarID string, base *http.Client) (*GoogleCalendar, error) {
	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil, nil
	}
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{calendar.CalendarEventsScope},
	}
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	client := conf.Client(ctx, &oauth2.Token{RefreshToken: refreshToken})
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("google calendar: %w", err)
	}
	return NewGoogleCalendarService(svc, calendarID), nil
}

// NewGoogleCalendarService wraps an existing service.
func NewGoogleCalendarService(svc *calendar.Service, calendarID string) *GoogleCalendar {
	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleCalendar{calendarID: calendarID, svc: svc}
}

// InsertEvent creates ev and returns the Google event id.
func (g *GoogleCalendar) InsertEvent(ctx context.Context, ev CalendarEvent) (string, error) {
	if g == nil || g.svc == nil {
		return "", ErrSkipped
	}
	tz := ev.Start.Location().String()
	e := &calendar.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       &calendar.EventDateTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: tz},
		End:         &calendar.EventDateTime{DateTime: ev.End.Format(time.RFC3339), TimeZone: tz},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{"booking_id": ev.BookingID},
		},
	}
	if ev.AttendeeEmail != "" {
		e.Attendees = []*calendar.EventAttendee{{Email: ev.AttendeeEmail}}
	}
	created, err := g.svc.Events.Insert(g.calendarID, e).SendUpdates("none").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("google calendar insert: %w", err)
	}
	return created.Id, nil
}
