package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// DefaultTwilioBaseURL is the Twilio REST API root.
const DefaultTwilioBaseURL = "https://api.twilio.com"

// SMSReceipt is the provider acknowledgement of a send.
type SMSReceipt struct {
	MessageID string
	Status    string
}

// ProviderError is a rejection reported by the SMS provider. It is a
// normal business outcome, not a system fault.
type ProviderError struct {
	Code    int
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("sms provider error %d: %s", e.Code, e.Message)
	}
	return "sms provider error: " + e.Message
}

// Twilio sends SMS through the Messages resource.
type Twilio struct {
	baseURL    string
	accountSID string
	authToken  string
	from       string
	client     *http.Client
}

// NewTwilio returns a Twilio channel; missing credentials disable it.
func NewTwilio(baseURL, accountSID, authToken, from string, client *http.Client) *Twilio {
	if baseURL == "" {
		baseURL = DefaultTwilioBaseURL
	}
	if client == nil {
		client = NewHTTPClient(0)
	}
	return &Twilio{
		baseURL:    strings.TrimRight(baseURL, "/"),
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		client:     client,
	}
}

// Enabled reports whether credentials are configured.
func (t *Twilio) Enabled() bool {
	return t != nil && t.accountSID != "" && t.authToken != "" && t.from != ""
}

type twilioMessage struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SendSMS sends body to a digits-only number. Ten-digit numbers are taken
// as North American.
func (t *Twilio) SendSMS(ctx context.Context, to, body string) (SMSReceipt, error) {
	if !t.Enabled() {
		return SMSReceipt{}, &ProviderError{Message: "sms provider not configured"}
	}
	form := url.Values{}
	form.Set("To", E164(to))
	form.Set("From", t.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, url.PathEscape(t.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return SMSReceipt{}, fmt.Errorf("twilio: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(t.accountSID, t.authToken)

	var msg twilioMessage
	if err := do(t.client, "twilio", req, &msg); err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			pe := &ProviderError{Status: se.Code, Message: se.Body}
			var body twilioMessage
			if json.Unmarshal([]byte(se.Body), &body) == nil && body.Message != "" {
				pe.Code, pe.Message = body.Code, body.Message
			}
			return SMSReceipt{}, pe
		}
		return SMSReceipt{}, err
	}
	return SMSReceipt{MessageID: msg.SID, Status: msg.Status}, nil
}

// E164 formats a digits-only number with a leading '+'.
func E164(digits string) string {
	if len(digits) == 10 {
		return "+1" + digits
	}
	return "+" + digits
}
