package notify

import (
	"context"
	"net/http"
	"strings"
)

// Alert severities.
const (
	SeverityInfo    = "info"
	SeveritySuccess = "success"
	SeverityError   = "error"
)

// Field is a labelled value in an ops alert.
type Field struct {
	Label string
	Value string
}

// Alert is a structured message for the ops channel.
type Alert struct {
	Title    string
	Severity string
	Text     string
	Fields   []Field
}

// Slack posts alerts to an incoming webhook.
type Slack struct {
	url    string
	client *http.Client
}

// NewSlack returns a Slack channel; an empty url disables it.
func NewSlack(url string, client *http.Client) *Slack {
	if client == nil {
		client = NewHTTPClient(0)
	}
	return &Slack{url: strings.TrimSpace(url), client: client}
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackMessage struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

var severityIcon = map[string]string{
	SeverityInfo:    ":information_source:",
	SeveritySuccess: ":white_check_mark:",
	SeverityError:   ":rotating_light:",
}

// SendAlert posts a.
func (s *Slack) SendAlert(ctx context.Context, a Alert) error {
	if s == nil || s.url == "" {
		return ErrSkipped
	}
	return postJSON(ctx, s.client, "slack", s.url, nil, buildSlackMessage(a), nil)
}

func buildSlackMessage(a Alert) slackMessage {
	title := a.Title
	if icon, ok := severityIcon[a.Severity]; ok {
		title = icon + " " + title
	}
	msg := slackMessage{
		Text: title,
		Blocks: []slackBlock{
			{Type: "header", Text: &slackText{Type: "plain_text", Text: a.Title}},
		},
	}
	if a.Text != "" {
		msg.Blocks = append(msg.Blocks, slackBlock{Type: "section", Text: &slackText{Type: "mrkdwn", Text: a.Text}})
	}
	// Slack caps a section at 10 fields.
	for i := 0; i < len(a.Fields); i += 10 {
		end := min(i+10, len(a.Fields))
		blk := slackBlock{Type: "section"}
		for _, f := range a.Fields[i:end] {
			v := f.Value
			if v == "" {
				v = "-"
			}
			blk.Fields = append(blk.Fields, slackText{Type: "mrkdwn", Text: "*" + f.Label + ":*\n" + v})
		}
		msg.Blocks = append(msg.Blocks, blk)
	}
	return msg
}
