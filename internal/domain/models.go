// Package domain defines the persistence models for leads, bookings,
// attachments and SMS interactions, plus the per-request metadata shared by
// every intake endpoint. Persisted types are mapped with GORM.
package domain

import (
	"strings"
	"time"
)

// BookingStatus enumerates the lifecycle of an appointment.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

// CanTransition reports whether a booking may move from s to next.
// Cancelled and completed are terminal.
func (s BookingStatus) CanTransition(next BookingStatus) bool {
	switch s {
	case BookingPending:
		return next == BookingConfirmed || next == BookingCancelled
	case BookingConfirmed:
		return next == BookingCompleted || next == BookingCancelled
	}
	return false
}

// UTMParams carries campaign attribution captured from the landing page.
type UTMParams struct {
	Source   string `json:"utm_source,omitempty"   gorm:"type:varchar(255)"`
	Medium   string `json:"utm_medium,omitempty"   gorm:"type:varchar(255)"`
	Campaign string `json:"utm_campaign,omitempty" gorm:"type:varchar(255)"`
	Term     string `json:"utm_term,omitempty"     gorm:"type:varchar(255)"`
	Content  string `json:"utm_content,omitempty"  gorm:"type:varchar(255)"`
}

// IsZero reports whether no attribution parameter is set.
func (u UTMParams) IsZero() bool {
	return u == UTMParams{}
}

// Merge returns u with empty fields filled from fallback.
func (u UTMParams) Merge(fallback UTMParams) UTMParams {
	pick := func(a, b string) string {
		if strings.TrimSpace(a) != "" {
			return strings.TrimSpace(a)
		}
		return b
	}
	return UTMParams{
		Source:   pick(u.Source, fallback.Source),
		Medium:   pick(u.Medium, fallback.Medium),
		Campaign: pick(u.Campaign, fallback.Campaign),
		Term:     pick(u.Term, fallback.Term),
		Content:  pick(u.Content, fallback.Content),
	}
}

// ClientContext is request metadata derived uniformly for every intake
// endpoint. It is never persisted on its own.
type ClientContext struct {
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	UTM       UTMParams `json:"utm"`
	PagePath  string    `json:"page_path,omitempty"`
}

// Booking is an appointment for a single (date, time) slot.
//
// At most one booking per slot may have a status other than cancelled; the
// rule is enforced by the partial unique index ux_bookings_active_slot
// created in repo.AutoMigrate.
type Booking struct {
	ID          string        `json:"id"                     gorm:"type:char(36);primaryKey"`
	LeadID      *string       `json:"lead_id,omitempty"      gorm:"type:char(36);index"`
	SlotDate    string        `json:"slot_date"              gorm:"type:char(10);not null;index:idx_bookings_slot,priority:1"`
	SlotTime    string        `json:"slot_time"              gorm:"type:char(5);not null;index:idx_bookings_slot,priority:2"`
	Status      BookingStatus `json:"status"                 gorm:"type:varchar(16);not null;default:'pending';check:status IN ('pending','confirmed','cancelled','completed')"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	CancelledAt *time.Time    `json:"cancelled_at,omitempty"`
}

// TableName returns the database table name for Booking.
func (Booking) TableName() string { return "bookings" }

// Lead is a contact request submitted from the site. Mobile is stored in
// digits-only form.
type Lead struct {
	ID              string    `json:"id"                        gorm:"type:char(36);primaryKey"`
	Name            string    `json:"name"                      gorm:"type:varchar(200);not null"`
	Mobile          string    `json:"mobile"                    gorm:"type:varchar(20);not null;index"`
	Email           string    `json:"email,omitempty"           gorm:"type:varchar(320)"`
	Address         string    `json:"address,omitempty"         gorm:"type:varchar(500)"`
	CityID          string    `json:"city_id,omitempty"         gorm:"type:varchar(64)"`
	ServiceID       string    `json:"service_id,omitempty"      gorm:"type:varchar(64)"`
	PreferredDate   string    `json:"preferred_date,omitempty"  gorm:"type:char(10)"`
	PreferredTime   string    `json:"preferred_time,omitempty"  gorm:"type:char(5)"`
	Details         string    `json:"details,omitempty"         gorm:"type:text"`
	SMSConsent      bool      `json:"sms_consent"               gorm:"not null;default:false"`
	WhatsAppConsent bool      `json:"whatsapp_consent"          gorm:"not null;default:false"`
	UTM             UTMParams `json:"utm"                       gorm:"embedded;embeddedPrefix:utm_"`
	PagePath        string    `json:"page_path,omitempty"       gorm:"type:varchar(500)"`
	IPAddress       string    `json:"-"                         gorm:"type:varchar(64)"`
	UserAgent       string    `json:"-"                         gorm:"type:varchar(500)"`
	CreatedAt       time.Time `json:"created_at"                gorm:"index"`

	Attachments []Attachment `json:"attachments,omitempty" gorm:"foreignKey:LeadID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Lead.
func (Lead) TableName() string { return "leads" }

// AttachmentType is a coarse media classification.
type AttachmentType string

const (
	AttachmentPhoto   AttachmentType = "photo"
	AttachmentVideo   AttachmentType = "video"
	AttachmentUnknown AttachmentType = "unknown"
)

// ClassifyContentType maps a declared MIME type to an AttachmentType.
func ClassifyContentType(contentType string) AttachmentType {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(ct, "image/"):
		return AttachmentPhoto
	case strings.HasPrefix(ct, "video/"):
		return AttachmentVideo
	default:
		return AttachmentUnknown
	}
}

// Attachment is a file uploaded alongside a lead.
type Attachment struct {
	ID           string         `json:"id"                      gorm:"type:char(36);primaryKey"`
	LeadID       string         `json:"lead_id"                 gorm:"type:char(36);not null;index"`
	URL          string         `json:"url"                     gorm:"type:varchar(1024);not null"`
	ThumbnailURL string         `json:"thumbnail_url,omitempty" gorm:"type:varchar(1024)"`
	Filename     string         `json:"filename"                gorm:"type:varchar(255)"`
	ContentType  string         `json:"content_type"            gorm:"type:varchar(127)"`
	Type         AttachmentType `json:"type"                    gorm:"type:varchar(16);not null;check:type IN ('photo','video','unknown')"`
	SizeBytes    int64          `json:"size_bytes"`
	CreatedAt    time.Time      `json:"created_at"`

	Lead Lead `json:"-" gorm:"foreignKey:LeadID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Attachment.
func (Attachment) TableName() string { return "attachments" }

// Service is a catalog entry for an offered service (roofing, remodels, ...).
type Service struct {
	ID   string `json:"id"   gorm:"type:varchar(64);primaryKey"`
	Slug string `json:"slug" gorm:"type:varchar(128);uniqueIndex"`
	Name string `json:"name" gorm:"type:varchar(200);not null"`
}

// TableName returns the database table name for Service.
func (Service) TableName() string { return "services" }

// City is a catalog entry for a served city.
type City struct {
	ID    string `json:"id"    gorm:"type:varchar(64);primaryKey"`
	Slug  string `json:"slug"  gorm:"type:varchar(128);uniqueIndex"`
	Name  string `json:"name"  gorm:"type:varchar(200);not null"`
	State string `json:"state" gorm:"type:varchar(64)"`
}

// TableName returns the database table name for City.
func (City) TableName() string { return "cities" }

// DisplayName returns "Name, State" when a state is known.
func (c City) DisplayName() string {
	if c.State == "" {
		return c.Name
	}
	return c.Name + ", " + c.State
}

// SMS interaction kinds and statuses.
const (
	SMSKindSend  = "send"
	SMSKindClick = "click"

	SMSStatusPending = "pending"
	SMSStatusSent    = "sent"
	SMSStatusFailed  = "failed"
	SMSStatusClicked = "clicked"
)

// SMSInteraction records an outbound SMS attempt or a click on an SMS
// call-to-action. Its ID is the interactionId returned to clients.
type SMSInteraction struct {
	ID                string    `json:"id"                            gorm:"type:char(36);primaryKey"`
	LeadID            *string   `json:"lead_id,omitempty"             gorm:"type:char(36);index"`
	Phone             string    `json:"phone"                         gorm:"type:varchar(20);not null;index"`
	Kind              string    `json:"kind"                          gorm:"type:varchar(8);not null;check:kind IN ('send','click')"`
	MessageType       string    `json:"message_type,omitempty"        gorm:"type:varchar(64)"`
	Body              string    `json:"-"                             gorm:"type:text"`
	Status            string    `json:"status"                        gorm:"type:varchar(16);not null"`
	ProviderMessageID string    `json:"provider_message_id,omitempty" gorm:"type:varchar(64)"`
	Error             string    `json:"error,omitempty"               gorm:"type:text"`
	Consent           bool      `json:"consent"                       gorm:"not null;default:false"`
	PagePath          string    `json:"page_path,omitempty"           gorm:"type:varchar(500)"`
	UTM               UTMParams `json:"utm"                           gorm:"embedded;embeddedPrefix:utm_"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName returns the database table name for SMSInteraction.
func (SMSInteraction) TableName() string { return "sms_interactions" }
