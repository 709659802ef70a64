package notify

import (
	"context"
	"runtime/debug"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-leads-backend/internal/domain"
)

// AlertSender delivers ops alerts.
type AlertSender interface {
	SendAlert(ctx context.Context, a Alert) error
}

// EventTracker records analytics events.
type EventTracker interface {
	Track(ctx context.Context, clientID string, events ...Event) error
}

// Failure describes a rejected API request.
type Failure struct {
	Endpoint  string
	Status    int
	Code      string
	Message   string
	Err       error
	RequestID string
	Client    domain.ClientContext
}

// Reporter records API failures: a log line, an analytics error event and
// an ops alert. The two remote sends run on the Dispatcher.
type Reporter struct {
	Dispatcher *Dispatcher
	Alerts     AlertSender
	Analytics  EventTracker
}

// Report records f. It never blocks on the network and never panics the
// caller.
func (r *Reporter) Report(ctx context.Context, lg *zerolog.Logger, f Failure) {
	if lg == nil {
		l := log.With().Logger()
		lg = &l
	}
	ev := lg.Warn()
	if f.Status >= 500 {
		ev = lg.Error().Bytes("stack", debug.Stack())
	}
	ev.Err(f.Err).
		Str("endpoint", f.Endpoint).
		Int("status", f.Status).
		Str("code", f.Code).
		Msg("api failure")

	if r == nil || r.Dispatcher == nil {
		return
	}

	var tasks []Task
	if r.Analytics != nil {
		clientID := ClientID(f.Client.IP, f.Client.UserAgent)
		tasks = append(tasks, Task{Channel: "analytics", Run: func(ctx context.Context) error {
			return r.Analytics.Track(ctx, clientID, Event{Name: "api_error", Params: map[string]any{
				"endpoint":     f.Endpoint,
				"error_code":   f.Code,
				"status":       f.Status,
				"message":      truncate(f.Message, 100),
				"page_path":    f.Client.PagePath,
				"utm_source":   f.Client.UTM.Source,
				"utm_medium":   f.Client.UTM.Medium,
				"utm_campaign": f.Client.UTM.Campaign,
			}})
		}})
	}
	if r.Alerts != nil {
		fields := []Field{
			{Label: "Status", Value: strconv.Itoa(f.Status)},
			{Label: "Code", Value: f.Code},
			{Label: "Request ID", Value: f.RequestID},
			{Label: "IP", Value: f.Client.IP},
			{Label: "User agent", Value: truncate(f.Client.UserAgent, 120)},
			{Label: "Page", Value: f.Client.PagePath},
		}
		// Internal error text goes to ops only, never to the client.
		if f.Status >= 500 && f.Err != nil {
			fields = append(fields, Field{Label: "Error", Value: truncate(f.Err.Error(), 500)})
		}
		tasks = append(tasks, Task{Channel: "slack", Run: func(ctx context.Context) error {
			return r.Alerts.SendAlert(ctx, Alert{
				Title:    "API error on " + f.Endpoint,
				Severity: SeverityError,
				Text:     f.Message,
				Fields:   fields,
			})
		}})
	}
	r.Dispatcher.Dispatch(ctx, "api_error", tasks...)
}

// truncate caps s at n runes so multibyte text is never split mid-character.
func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
