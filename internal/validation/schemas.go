package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/tbourn/go-leads-backend/internal/domain"
)

// MessageTypeCustom sends the caller's message verbatim.
const MessageTypeCustom = "custom"

// AttachmentInput is an inline file on a lead submission.
type AttachmentInput struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Data        string `json:"data"` // base64, optionally a data: URL
}

// LeadInput is the body of POST /leads.
type LeadInput struct {
	Name            string            `json:"name"             validate:"required,max=200"`
	Mobile          string            `json:"mobile"           validate:"required,phone"`
	Email           string            `json:"email"            validate:"omitempty,email,max=320"`
	Address         string            `json:"address"          validate:"max=500"`
	CityID          string            `json:"city_id"          validate:"max=128"`
	ServiceID       string            `json:"service_id"       validate:"max=128"`
	PreferredDate   string            `json:"preferred_date"   validate:"omitempty,ymd"`
	PreferredTime   string            `json:"preferred_time"   validate:"omitempty,hhmm"`
	Details         string            `json:"details"          validate:"max=5000"`
	SMSConsent      bool              `json:"sms_consent"`
	WhatsAppConsent bool              `json:"whatsapp_consent"`
	UTM             domain.UTMParams  `json:"utm_params"`
	PagePath        string            `json:"page_path"        validate:"max=500"`
	Attachments     []AttachmentInput `json:"attachments"`
}

// BookingInput is the body of POST /bookings. Contact fields are optional;
// when LeadID is set they are filled from the lead.
type BookingInput struct {
	LeadID   *string              `json:"lead_id"   validate:"omitempty,uuid"`
	SlotDate string               `json:"slot_date" validate:"required,ymd"`
	SlotTime string               `json:"slot_time" validate:"required,hhmm"`
	Status   domain.BookingStatus `json:"status"    validate:"omitempty,oneof=pending confirmed"`
	Name     string               `json:"name"      validate:"max=200"`
	Email    string               `json:"email"     validate:"omitempty,email,max=320"`
	Phone    string               `json:"phone"     validate:"omitempty,phone"`
	Address  string               `json:"address"   validate:"max=500"`
	Notes    string               `json:"notes"     validate:"max=2000"`
	UTM      domain.UTMParams     `json:"utm_params"`
	PagePath string               `json:"page_path" validate:"max=500"`
}

// AvailabilityQuery is GET /bookings/availability?date&time.
type AvailabilityQuery struct {
	Date string `form:"date" validate:"required,ymd"`
	Time string `form:"time" validate:"required,hhmm"`
}

// DayQuery is GET /bookings/slots?date.
type DayQuery struct {
	Date string `form:"date" validate:"required,ymd"`
}

// SMSSendInput is the body of POST /sms.
type SMSSendInput struct {
	PhoneNumber  string            `json:"phone_number"  validate:"required,phone"`
	Message      string            `json:"message"       validate:"required,max=1600"`
	MessageType  string            `json:"message_type"  validate:"max=64"`
	TemplateData map[string]string `json:"template_data" validate:"max=32"`
	LeadID       *string           `json:"lead_id"       validate:"omitempty,uuid"`
	Consent      bool              `json:"consent"       validate:"required"`
	UTM          domain.UTMParams  `json:"utm_params"`
	PagePath     string            `json:"page_path"     validate:"max=500"`
}

// SMSTrackInput is the body of PUT /sms.
type SMSTrackInput struct {
	PhoneNumber string           `json:"phone_number" validate:"required,phone"`
	PagePath    string           `json:"page_path"    validate:"max=500"`
	UTM         domain.UTMParams `json:"utm_params"`
	Consent     bool             `json:"consent"`
}

// Lead validates in and returns its normalized form.
func (v *Validator) Lead(in LeadInput) (LeadInput, error) {
	in.Name = CleanText(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Address = CleanText(in.Address)
	in.CityID = strings.TrimSpace(in.CityID)
	in.ServiceID = strings.TrimSpace(in.ServiceID)
	in.Details = strings.TrimSpace(in.Details)
	in.PagePath = strings.TrimSpace(in.PagePath)

	verr := v.check(in)
	if v.opts.MaxAttachments > 0 && len(in.Attachments) > v.opts.MaxAttachments {
		verr.Add("attachments", fmt.Sprintf("must contain at most %d items", v.opts.MaxAttachments))
	}
	if err := verr.orNil(); err != nil {
		return LeadInput{}, err
	}
	in.Mobile = NormalizePhone(in.Mobile)
	return in, nil
}

// Booking validates in, including the past-date and slot alignment rules
// evaluated in the business timezone.
func (v *Validator) Booking(in BookingInput) (BookingInput, error) {
	in.SlotDate = strings.TrimSpace(in.SlotDate)
	in.SlotTime = strings.TrimSpace(in.SlotTime)
	in.Name = CleanText(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Address = CleanText(in.Address)
	in.Notes = strings.TrimSpace(in.Notes)
	in.PagePath = strings.TrimSpace(in.PagePath)
	in.LeadID = trimID(in.LeadID)

	verr := v.check(in)
	if IsDate(in.SlotDate) && IsClock(in.SlotTime) {
		v.slotRules(verr, in.SlotDate, in.SlotTime)
	}
	if err := verr.orNil(); err != nil {
		return BookingInput{}, err
	}
	if in.Phone != "" {
		in.Phone = NormalizePhone(in.Phone)
	}
	return in, nil
}

// trimID drops a blank optional id.
func trimID(id *string) *string {
	if id == nil {
		return nil
	}
	t := strings.TrimSpace(*id)
	if t == "" {
		return nil
	}
	return &t
}

func (v *Validator) slotRules(verr *Error, date, hhmm string) {
	at, err := time.ParseInLocation("2006-01-02 15:04", date+" "+hhmm, v.opts.Location)
	if err != nil {
		verr.Add("slot_date", "is invalid")
		return
	}
	if at.Before(v.opts.Now().In(v.opts.Location)) {
		verr.Add("slot_date", "must not be in the past")
	}
	if at.Minute()%v.opts.SlotMinutes != 0 {
		verr.Add("slot_time", fmt.Sprintf("must align to %d-minute slots", v.opts.SlotMinutes))
	}
	if v.opts.Open != "" && v.opts.Close != "" && (hhmm < v.opts.Open || hhmm >= v.opts.Close) {
		verr.Add("slot_time", fmt.Sprintf("must be between %s and %s", v.opts.Open, v.opts.Close))
	}
}

// Availability validates the query format only; past slots are simply
// reported as taken or free.
func (v *Validator) Availability(q AvailabilityQuery) (AvailabilityQuery, error) {
	q.Date, q.Time = strings.TrimSpace(q.Date), strings.TrimSpace(q.Time)
	if err := v.check(q).orNil(); err != nil {
		return AvailabilityQuery{}, err
	}
	return q, nil
}

// Day validates a day listing query.
func (v *Validator) Day(q DayQuery) (DayQuery, error) {
	q.Date = strings.TrimSpace(q.Date)
	if err := v.check(q).orNil(); err != nil {
		return DayQuery{}, err
	}
	return q, nil
}

// SMSSend validates in; the message is sanitized first so that a body made
// only of markup or whitespace is rejected.
func (v *Validator) SMSSend(in SMSSendInput) (SMSSendInput, error) {
	in.Message = SanitizeMessage(in.Message)
	in.MessageType = strings.ToLower(strings.TrimSpace(in.MessageType))
	if in.MessageType == "" {
		in.MessageType = MessageTypeCustom
	}
	in.PagePath = strings.TrimSpace(in.PagePath)
	in.LeadID = trimID(in.LeadID)

	if err := v.check(in).orNil(); err != nil {
		return SMSSendInput{}, err
	}
	in.PhoneNumber = NormalizePhone(in.PhoneNumber)
	return in, nil
}

// SMSTrack validates a click-tracking body.
func (v *Validator) SMSTrack(in SMSTrackInput) (SMSTrackInput, error) {
	in.PagePath = strings.TrimSpace(in.PagePath)
	if err := v.check(in).orNil(); err != nil {
		return SMSTrackInput{}, err
	}
	in.PhoneNumber = NormalizePhone(in.PhoneNumber)
	return in, nil
}
