package notify

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// DefaultAnalyticsURL is the GA4 Measurement Protocol collect endpoint.
const DefaultAnalyticsURL = "https://www.google-analytics.com/mp/collect"

// Event is a single analytics event.
type Event struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

// Analytics sends events over the GA4 Measurement Protocol.
type Analytics struct {
	endpoint string
	client   *http.Client
}

// NewAnalytics returns an Analytics channel; it is disabled unless both
// measurementID and apiSecret are set.
func NewAnalytics(baseURL, measurementID, apiSecret string, client *http.Client) *Analytics {
	if client == nil {
		client = NewHTTPClient(0)
	}
	a := &Analytics{client: client}
	if strings.TrimSpace(measurementID) == "" || strings.TrimSpace(apiSecret) == "" {
		return a
	}
	if baseURL == "" {
		baseURL = DefaultAnalyticsURL
	}
	q := url.Values{}
	q.Set("measurement_id", measurementID)
	q.Set("api_secret", apiSecret)
	a.endpoint = baseURL + "?" + q.Encode()
	return a
}

type mpPayload struct {
	ClientID string  `json:"client_id"`
	Events   []Event `json:"events"`
}

// Track sends events attributed to clientID.
func (a *Analytics) Track(ctx context.Context, clientID string, events ...Event) error {
	if a == nil || a.endpoint == "" {
		return ErrSkipped
	}
	if len(events) == 0 {
		return nil
	}
	return postJSON(ctx, a.client, "analytics", a.endpoint, nil, mpPayload{ClientID: clientID, Events: events}, nil)
}

// ClientID derives a stable pseudonymous client id from request metadata.
func ClientID(ip, userAgent string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(ip+"|"+userAgent)).String()
}
