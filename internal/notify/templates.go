package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var emailTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Business is the sender identity rendered into customer emails.
type Business struct {
	Name    string
	Email   string
	Phone   string
	Website string
}

// BookingEmailData feeds booking_confirmation.html.
type BookingEmailData struct {
	Business  Business
	BookingID string
	Name      string
	Date      string
	Time      string
	Timezone  string
	Status    string
	Location  string
	HasInvite bool
}

// LeadEmailData feeds lead_confirmation.html.
type LeadEmailData struct {
	Business      Business
	LeadID        string
	Name          string
	ServiceName   string
	CityName      string
	PreferredDate string
	PreferredTime string
	Attachments   []string
}

// RenderBookingConfirmation returns the subject and HTML body.
func RenderBookingConfirmation(d BookingEmailData) (string, string, error) {
	html, err := render("booking_confirmation.html", d)
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf("Appointment %s: %s at %s", d.Status, d.Date, d.Time), html, nil
}

// RenderLeadConfirmation returns the subject and HTML body.
func RenderLeadConfirmation(d LeadEmailData) (string, string, error) {
	html, err := render("lead_confirmation.html", d)
	if err != nil {
		return "", "", err
	}
	return "We received your request - " + d.Business.Name, html, nil
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
