package services

import (
	"context"

	"github.com/tbourn/go-leads-backend/internal/domain"
	"github.com/tbourn/go-leads-backend/internal/notify"
)

const defaultCurrency = "USD"

// Notifier holds the outbound channels used after an intake write. Any nil
// channel is left out of the fan-out.
type Notifier struct {
	Dispatcher *notify.Dispatcher
	Alerts     notify.AlertSender
	Mail       Mailer
	Analytics  notify.EventTracker
	Events     EventPublisher
	Calendar   CalendarInserter
	Slots      SlotPublisher

	Business     notify.Business
	LeadValue    float64
	BookingValue float64
	Currency     string
}

func (n *Notifier) currency() string {
	if n.Currency == "" {
		return defaultCurrency
	}
	return n.Currency
}

func (n *Notifier) dispatch(ctx context.Context, event string, tasks []notify.Task) {
	if n == nil || n.Dispatcher == nil || len(tasks) == 0 {
		return
	}
	n.Dispatcher.Dispatch(ctx, event, tasks...)
}

func (n *Notifier) alertTask(a notify.Alert) []notify.Task {
	if n.Alerts == nil {
		return nil
	}
	return []notify.Task{{Channel: "slack", Run: func(ctx context.Context) error {
		return n.Alerts.SendAlert(ctx, a)
	}}}
}

func (n *Notifier) analyticsTask(cc domain.ClientContext, channel string, ev notify.Event) []notify.Task {
	if n.Analytics == nil {
		return nil
	}
	clientID := notify.ClientID(cc.IP, cc.UserAgent)
	return []notify.Task{{Channel: channel, Run: func(ctx context.Context) error {
		return n.Analytics.Track(ctx, clientID, ev)
	}}}
}

func (n *Notifier) emailTask(e notify.Email) []notify.Task {
	if n.Mail == nil || len(e.To) == 0 {
		return nil
	}
	return []notify.Task{{Channel: "email", Run: func(ctx context.Context) error {
		_, err := n.Mail.SendEmail(ctx, e)
		return err
	}}}
}

func (n *Notifier) eventTask(ev notify.IntakeEvent) []notify.Task {
	if n.Events == nil {
		return nil
	}
	return []notify.Task{{Channel: "redis", Run: func(ctx context.Context) error {
		return n.Events.PublishEvent(ctx, ev)
	}}}
}

// attribution returns the UTM params as analytics parameters.
func attribution(u domain.UTMParams, params map[string]any) map[string]any {
	if params == nil {
		params = map[string]any{}
	}
	params["utm_source"] = u.Source
	params["utm_medium"] = u.Medium
	params["utm_campaign"] = u.Campaign
	return params
}

func clientFields(cc domain.ClientContext) []notify.Field {
	return []notify.Field{
		{Label: "IP", Value: cc.IP},
		{Label: "Page", Value: cc.PagePath},
		{Label: "Source", Value: cc.UTM.Source},
		{Label: "Campaign", Value: cc.UTM.Campaign},
	}
}
