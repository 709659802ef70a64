package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

type captured struct {
	method string
	path   string
	query  url.Values
	header http.Header
	body   []byte
}

func newCaptureServer(t *testing.T, status int, reply string) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method, got.path, got.query, got.header = r.Method, r.URL.Path, r.URL.Query(), r.Header.Clone()
		got.body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestSlack_SendAlert(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusOK, "ok")
	s := NewSlack(srv.URL, srv.Client())

	fields := make([]Field, 12)
	for i := range fields {
		fields[i] = Field{Label: "L", Value: "v"}
	}
	err := s.SendAlert(context.Background(), Alert{Title: "New lead", Severity: SeveritySuccess, Text: "hello", Fields: fields})
	if err != nil {
		t.Fatalf("SendAlert: %v", err)
	}
	var msg slackMessage
	if err := json.Unmarshal(got.body, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(msg.Text, "New lead") || !strings.HasPrefix(msg.Text, ":white_check_mark:") {
		t.Fatalf("unexpected text %q", msg.Text)
	}
	// header + text + two field sections (10 + 2)
	if len(msg.Blocks) != 4 || len(msg.Blocks[2].Fields) != 10 || len(msg.Blocks[3].Fields) != 2 {
		t.Fatalf("unexpected blocks: %+v", msg.Blocks)
	}
}

func TestSlack_DisabledAndErrors(t *testing.T) {
	if err := NewSlack("", nil).SendAlert(context.Background(), Alert{}); !errors.Is(err, ErrSkipped) {
		t.Fatalf("expected ErrSkipped, got %v", err)
	}
	srv, _ := newCaptureServer(t, http.StatusForbidden, "invalid_token")
	err := NewSlack(srv.URL, srv.Client()).SendAlert(context.Background(), Alert{Title: "x"})
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusForbidden || se.Body != "invalid_token" {
		t.Fatalf("expected StatusError 403, got %v", err)
	}
}

func TestMailer_SendEmailWithAttachment(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusOK, `{"id":"em_123"}`)
	m := NewMailer(srv.URL, "key-1", "Summit <appointments@example.com>", srv.Client())

	id, err := m.SendEmail(context.Background(), Email{
		To:          []string{"ada@example.com"},
		Subject:     "Appointment",
		HTML:        "<p>hi</p>",
		Attachments: []Attachment{{Filename: "appointment.ics", ContentType: "text/calendar", Content: []byte("BEGIN:VCALENDAR")}},
	})
	if err != nil || id != "em_123" {
		t.Fatalf("SendEmail = %q, %v", id, err)
	}
	if got.header.Get("Authorization") != "Bearer key-1" {
		t.Fatalf("missing bearer auth: %v", got.header)
	}
	var req emailRequest
	if err := json.Unmarshal(got.body, &req); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(req.Attachments) != 1 || req.Attachments[0].Content != base64.StdEncoding.EncodeToString([]byte("BEGIN:VCALENDAR")) {
		t.Fatalf("attachment not base64 encoded: %+v", req.Attachments)
	}
	if req.From != "Summit <appointments@example.com>" || req.To[0] != "ada@example.com" {
		t.Fatalf("unexpected envelope: %+v", req)
	}

	if _, err := NewMailer("", "", "", nil).SendEmail(context.Background(), Email{}); !errors.Is(err, ErrSkipped) {
		t.Fatalf("expected ErrSkipped, got %v", err)
	}
}

func TestAnalytics_Track(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusNoContent, "")
	a := NewAnalytics(srv.URL, "G-TEST", "secret", srv.Client())

	err := a.Track(context.Background(), "cid-1", Event{Name: "generate_lead", Params: map[string]any{"value": 50}})
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if got.query.Get("measurement_id") != "G-TEST" || got.query.Get("api_secret") != "secret" {
		t.Fatalf("unexpected query: %v", got.query)
	}
	var p mpPayload
	if err := json.Unmarshal(got.body, &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.ClientID != "cid-1" || len(p.Events) != 1 || p.Events[0].Name != "generate_lead" {
		t.Fatalf("unexpected payload: %+v", p)
	}

	if err := NewAnalytics("", "G-TEST", "", nil).Track(context.Background(), "x", Event{Name: "e"}); !errors.Is(err, ErrSkipped) {
		t.Fatalf("expected ErrSkipped, got %v", err)
	}
}

func TestClientID_Stable(t *testing.T) {
	a := ClientID("1.2.3.4", "UA")
	if a != ClientID("1.2.3.4", "UA") || a == ClientID("1.2.3.5", "UA") {
		t.Fatalf("ClientID must be deterministic per (ip, ua)")
	}
}

func TestTwilio_SendSMS(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusCreated, `{"sid":"SM1","status":"queued"}`)
	tw := NewTwilio(srv.URL, "AC1", "tok", "+15550000000", srv.Client())

	rc, err := tw.SendSMS(context.Background(), "8015550123", "hello")
	if err != nil {
		t.Fatalf("SendSMS: %v", err)
	}
	if rc.MessageID != "SM1" || rc.Status != "queued" {
		t.Fatalf("unexpected receipt: %+v", rc)
	}
	if got.path != "/2010-04-01/Accounts/AC1/Messages.json" {
		t.Fatalf("unexpected path %q", got.path)
	}
	user, pass, ok := (&http.Request{Header: got.header}).BasicAuth()
	if !ok || user != "AC1" || pass != "tok" {
		t.Fatalf("missing basic auth")
	}
	form, _ := url.ParseQuery(string(got.body))
	if form.Get("To") != "+18015550123" || form.Get("Body") != "hello" || form.Get("From") != "+15550000000" {
		t.Fatalf("unexpected form: %v", form)
	}
}

func TestTwilio_ProviderRejection(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusBadRequest, `{"code":21211,"message":"Invalid 'To' Phone Number","status":400}`)
	tw := NewTwilio(srv.URL, "AC1", "tok", "+15550000000", srv.Client())

	_, err := tw.SendSMS(context.Background(), "18015550123", "hello")
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Code != 21211 || pe.Status != http.StatusBadRequest {
		t.Fatalf("expected ProviderError 21211, got %v", err)
	}

	_, err = NewTwilio("", "", "", "", nil).SendSMS(context.Background(), "18015550123", "x")
	if !errors.As(err, &pe) {
		t.Fatalf("unconfigured provider should be a provider error, got %v", err)
	}
}

func TestE164(t *testing.T) {
	if E164("8015550123") != "+18015550123" || E164("442079460958") != "+442079460958" {
		t.Fatalf("unexpected E164 formatting")
	}
}

func TestGoogleCalendar_InsertEvent(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusOK, `{"id":"evt_1"}`)
	svc, err := calendar.NewService(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	if err != nil {
		t.Fatalf("calendar.NewService: %v", err)
	}
	g := NewGoogleCalendarService(svc, "")

	loc, _ := time.LoadLocation("America/Denver")
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, loc)
	id, err := g.InsertEvent(context.Background(), CalendarEvent{
		BookingID:     "b-1",
		Summary:       "Consultation",
		Start:         start,
		End:           start.Add(time.Hour),
		AttendeeEmail: "ada@example.com",
	})
	if err != nil || id != "evt_1" {
		t.Fatalf("InsertEvent = %q, %v", id, err)
	}
	if got.method != http.MethodPost || !strings.HasSuffix(got.path, "/calendars/primary/events") {
		t.Fatalf("unexpected request %s %s", got.method, got.path)
	}
	var ev calendar.Event
	if err := json.Unmarshal(got.body, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Start.TimeZone != "America/Denver" || ev.ExtendedProperties.Private["booking_id"] != "b-1" || len(ev.Attendees) != 1 {
		t.Fatalf("unexpected event: %+v", ev)
	}

	var none *GoogleCalendar
	if _, err := none.InsertEvent(context.Background(), CalendarEvent{}); !errors.Is(err, ErrSkipped) {
		t.Fatalf("expected ErrSkipped, got %v", err)
	}
	if g, err := NewGoogleCalendar(context.Background(), "", "", "", "", nil); g != nil || err != nil {
		t.Fatalf("unconfigured calendar should be (nil, nil)")
	}
}

type stubRedis struct {
	channel string
	payload []byte
	err     error
}

func (s *stubRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	s.channel = channel
	s.payload, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	if s.err != nil {
		cmd.SetErr(s.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func TestRedisPublisher(t *testing.T) {
	rc := &stubRedis{}
	p := NewRedisPublisher(rc, "intake-events")
	if err := p.PublishEvent(context.Background(), IntakeEvent{Type: "booking.created", ID: "b-1"}); err != nil {
		t.Fatalf("PublishEvent: %v", err)
	}
	var ev IntakeEvent
	if err := json.Unmarshal(rc.payload, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rc.channel != "intake-events" || ev.Type != "booking.created" || ev.OccurredAt.IsZero() {
		t.Fatalf("unexpected publish: %s %+v", rc.channel, ev)
	}

	rc.err = errors.New("down")
	if err := p.PublishEvent(context.Background(), IntakeEvent{Type: "x"}); err == nil {
		t.Fatalf("expected publish error")
	}
	if err := NewRedisPublisher(nil, "c").PublishEvent(context.Background(), IntakeEvent{}); !errors.Is(err, ErrSkipped) {
		t.Fatalf("expected ErrSkipped, got %v", err)
	}
}

func TestRenderTemplates(t *testing.T) {
	biz := Business{Name: "Summit Construction", Phone: "555-0100"}
	subj, html, err := RenderBookingConfirmation(BookingEmailData{
		Business: biz, BookingID: "b-1", Name: "<Ada>", Date: "2025-06-01", Time: "10:00",
		Timezone: "America/Denver", Status: "pending", Location: "To be confirmed", HasInvite: true,
	})
	if err != nil {
		t.Fatalf("RenderBookingConfirmation: %v", err)
	}
	if !strings.Contains(subj, "2025-06-01") || !strings.Contains(html, "calendar invite is attached") {
		t.Fatalf("unexpected booking email: %q", subj)
	}
	if strings.Contains(html, "<Ada>") || !strings.Contains(html, "&lt;Ada&gt;") {
		t.Fatalf("contact name must be escaped")
	}

	_, html, err = RenderLeadConfirmation(LeadEmailData{
		Business: biz, LeadID: "l-1", Name: "Ada", ServiceName: "Roofing", CityName: "Denver, CO",
		Attachments: []string{"a", "b"},
	})
	if err != nil {
		t.Fatalf("RenderLeadConfirmation: %v", err)
	}
	if !strings.Contains(html, "Roofing") || !strings.Contains(html, "2 file(s)") {
		t.Fatalf("unexpected lead email")
	}
}
