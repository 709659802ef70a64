package notify

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
)

// DefaultEmailAPIURL is the Resend-compatible send endpoint.
const DefaultEmailAPIURL = "https://api.resend.com/emails"

// Attachment is a file attached to an email.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Email is a single outbound message.
type Email struct {
	To          []string
	ReplyTo     string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

// Mailer sends transactional email through an HTTP API.
type Mailer struct {
	url    string
	apiKey string
	from   string
	client *http.Client
}

// NewMailer returns a Mailer; an empty apiKey disables it.
func NewMailer(url, apiKey, from string, client *http.Client) *Mailer {
	if url == "" {
		url = DefaultEmailAPIURL
	}
	if client == nil {
		client = NewHTTPClient(0)
	}
	return &Mailer{url: url, apiKey: strings.TrimSpace(apiKey), from: from, client: client}
}

type emailAttachment struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"`
	ContentType string `json:"content_type,omitempty"`
}

type emailRequest struct {
	From        string            `json:"from"`
	To          []string          `json:"to"`
	ReplyTo     string            `json:"reply_to,omitempty"`
	Subject     string            `json:"subject"`
	HTML        string            `json:"html,omitempty"`
	Text        string            `json:"text,omitempty"`
	Attachments []emailAttachment `json:"attachments,omitempty"`
}

type emailResponse struct {
	ID string `json:"id"`
}

// SendEmail delivers m and returns the provider message id.
func (m *Mailer) SendEmail(ctx context.Context, e Email) (string, error) {
	if m == nil || m.apiKey == "" {
		return "", ErrSkipped
	}
	req := emailRequest{
		From:    m.from,
		To:      e.To,
		ReplyTo: e.ReplyTo,
		Subject: e.Subject,
		HTML:    e.HTML,
		Text:    e.Text,
	}
	for _, a := range e.Attachments {
		req.Attachments = append(req.Attachments, emailAttachment{
			Filename:    a.Filename,
			Content:     base64.StdEncoding.EncodeToString(a.Content),
			ContentType: a.ContentType,
		})
	}
	var out emailResponse
	err := postJSON(ctx, m.client, "email", m.url, map[string]string{
		"Authorization": "Bearer " + m.apiKey,
	}, req, &out)
	return out.ID, err
}
