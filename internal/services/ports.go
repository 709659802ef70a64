package services

import (
	"context"

	"github.com/tbourn/go-leads-backend/internal/notify"
	"github.com/tbourn/go-leads-backend/internal/realtime"
	"github.com/tbourn/go-leads-backend/internal/storage"
)

// Mailer sends transactional email.
type Mailer interface {
	SendEmail(ctx context.Context, e notify.Email) (string, error)
}

// EventPublisher publishes intake events to subscribers.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev notify.IntakeEvent) error
}

// CalendarInserter mirrors bookings to the business calendar.
type CalendarInserter interface {
	InsertEvent(ctx context.Context, ev notify.CalendarEvent) (string, error)
}

// SlotPublisher announces slot availability changes.
type SlotPublisher interface {
	PublishSlot(ctx context.Context, u realtime.SlotUpdate) error
}

// SMSProvider sends text messages.
type SMSProvider interface {
	SendSMS(ctx context.Context, to, body string) (notify.SMSReceipt, error)
}

// ObjectStore persists uploaded files.
type ObjectStore interface {
	Put(ctx context.Context, filename, contentType string, data []byte) (storage.Object, error)
}

// NameResolver turns catalog references into display names.
type NameResolver interface {
	ServiceName(ctx context.Context, ref string) string
	CityName(ctx context.Context, ref string) string
}
