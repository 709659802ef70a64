// Package services – LeadService
//
// This file implements lead intake. The lead row is written first; inline
// attachments are then stored one by one, and a failed file is logged and
// skipped without affecting its siblings or the lead. Notifications are
// launched after the writes and never awaited.
package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-leads-backend/internal/domain"
	"github.com/tbourn/go-leads-backend/internal/notify"
	"github.com/tbourn/go-leads-backend/internal/repo"
	"github.com/tbourn/go-leads-backend/internal/validation"
)

// ErrAttachmentTooLarge rejects a single decoded file over the size cap.
var ErrAttachmentTooLarge = errors.New("attachment too large")

// LeadResult is the outcome of a successful Create.
type LeadResult struct {
	Lead             *domain.Lead
	Attachments      []domain.Attachment
	ServiceName      string
	CityName         string
	ConfirmationSent bool
}

// AttachmentURLs returns the public URLs of the stored files.
func (r *LeadResult) AttachmentURLs() []string {
	out := make([]string, 0, len(r.Attachments))
	for _, a := range r.Attachments {
		out = append(out, a.URL)
	}
	return out
}

// LeadService records leads and their attachments.
type LeadService struct {
	DB       *gorm.DB
	Store    ObjectStore
	Names    NameResolver
	Notifier *Notifier

	// MaxAttachmentBytes caps each decoded file; 0 means no cap.
	MaxAttachmentBytes int64
}

// NewLeadService constructs a LeadService with a 10 MiB per-file cap.
func NewLeadService(db *gorm.DB, store ObjectStore, names NameResolver, n *Notifier) *LeadService {
	return &LeadService{DB: db, Store: store, Names: names, Notifier: n, MaxAttachmentBytes: 10 << 20}
}

// Create persists a validated lead, stores its attachments and launches
// notifications. Only the lead insert can fail the call.
func (s *LeadService) Create(ctx context.Context, in validation.LeadInput, cc domain.ClientContext) (*LeadResult, error) {
	tr := otel.Tracer("services/LeadService")
	ctx, span := tr.Start(ctx, "Create", trace.WithAttributes(
		attribute.Int("lead.attachments", len(in.Attachments)),
	))
	defer span.End()

	lead := &domain.Lead{
		Name:            in.Name,
		Mobile:          in.Mobile,
		Email:           in.Email,
		Address:         in.Address,
		CityID:          in.CityID,
		ServiceID:       in.ServiceID,
		PreferredDate:   in.PreferredDate,
		PreferredTime:   in.PreferredTime,
		Details:         in.Details,
		SMSConsent:      in.SMSConsent,
		WhatsAppConsent: in.WhatsAppConsent,
		UTM:             in.UTM.Merge(cc.UTM),
		PagePath:        nonEmpty(in.PagePath, cc.PagePath),
		IPAddress:       cc.IP,
		UserAgent:       cc.UserAgent,
	}
	if err := repo.CreateLead(ctx, s.DB, lead); err != nil {
		span.RecordError(err)
		return nil, dbErr("create lead", err)
	}
	span.SetAttributes(attribute.String("lead.id", lead.ID))

	res := &LeadResult{Lead: lead, ConfirmationSent: lead.Email != ""}
	for i, a := range in.Attachments {
		att, err := s.storeAttachment(ctx, lead.ID, a)
		if err != nil {
			log.Warn().Err(err).
				Str("lead_id", lead.ID).
				Int("index", i).
				Str("filename", a.Filename).
				Msg("attachment skipped")
			continue
		}
		res.Attachments = append(res.Attachments, *att)
	}

	res.ServiceName, res.CityName = UnknownService, UnknownCity
	if s.Names != nil {
		res.ServiceName = s.Names.ServiceName(ctx, lead.ServiceID)
		res.CityName = s.Names.CityName(ctx, lead.CityID)
	}

	s.notifyCreated(ctx, res, cc)
	return res, nil
}

func (s *LeadService) storeAttachment(ctx context.Context, leadID string, in validation.AttachmentInput) (*domain.Attachment, error) {
	if s.Store == nil {
		return nil, errors.New("no object store configured")
	}
	data, ct, err := decodeInline(in.Data, in.ContentType)
	if err != nil {
		return nil, err
	}
	if s.MaxAttachmentBytes > 0 && int64(len(data)) > s.MaxAttachmentBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrAttachmentTooLarge, len(data))
	}
	obj, err := s.Store.Put(ctx, in.Filename, ct, data)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	att := &domain.Attachment{
		LeadID:       leadID,
		URL:          obj.URL,
		ThumbnailURL: obj.ThumbnailURL,
		Filename:     in.Filename,
		ContentType:  ct,
		Type:         domain.ClassifyContentType(ct),
		SizeBytes:    obj.Size,
	}
	if err := repo.CreateAttachment(ctx, s.DB, att); err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	return att, nil
}

// decodeInline accepts plain base64 or a data: URL. The declared content
// type wins; otherwise the data URL's, then a sniffed one.
func decodeInline(raw, declared string) ([]byte, string, error) {
	raw = strings.TrimSpace(raw)
	ct := strings.TrimSpace(declared)
	if strings.HasPrefix(raw, "data:") {
		head, body, ok := strings.Cut(raw, ",")
		if !ok {
			return nil, "", errors.New("malformed data URL")
		}
		if ct == "" {
			mt, _, _ := strings.Cut(strings.TrimPrefix(head, "data:"), ";")
			ct = mt
		}
		raw = body
	}
	if raw == "" {
		return nil, "", errors.New("empty attachment")
	}

	var data []byte
	var err error
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if data, err = enc.DecodeString(raw); err == nil {
			break
		}
	}
	if err != nil {
		return nil, "", fmt.Errorf("decode base64: %w", err)
	}
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	return data, strings.ToLower(ct), nil
}

func (s *LeadService) notifyCreated(ctx context.Context, res *LeadResult, cc domain.ClientContext) {
	n := s.Notifier
	if n == nil {
		return
	}
	l := res.Lead
	urls := res.AttachmentURLs()

	var tasks []notify.Task
	tasks = append(tasks, n.alertTask(notify.Alert{
		Title:    "New lead: " + l.Name,
		Severity: notify.SeveritySuccess,
		Text:     truncateText(l.Details, 500),
		Fields: append([]notify.Field{
			{Label: "Lead ID", Value: l.ID},
			{Label: "Phone", Value: l.Mobile},
			{Label: "Email", Value: l.Email},
			{Label: "Service", Value: res.ServiceName},
			{Label: "City", Value: res.CityName},
			{Label: "Address", Value: l.Address},
			{Label: "Preferred", Value: strings.TrimSpace(l.PreferredDate + " " + l.PreferredTime)},
			{Label: "Attachments", Value: strconv.Itoa(len(urls))},
		}, clientFields(cc)...),
	})...)

	if l.Email != "" {
		subject, html, err := notify.RenderLeadConfirmation(notify.LeadEmailData{
			Business:      n.Business,
			LeadID:        l.ID,
			Name:          l.Name,
			ServiceName:   res.ServiceName,
			CityName:      res.CityName,
			PreferredDate: l.PreferredDate,
			PreferredTime: l.PreferredTime,
			Attachments:   urls,
		})
		if err != nil {
			log.Warn().Err(err).Str("lead_id", l.ID).Msg("lead email render failed")
		} else {
			tasks = append(tasks, n.emailTask(notify.Email{
				To:      []string{l.Email},
				ReplyTo: n.Business.Email,
				Subject: subject,
				HTML:    html,
			})...)
		}
	}

	tasks = append(tasks, n.analyticsTask(cc, "analytics_conversion", notify.Event{
		Name: "generate_lead",
		Params: attribution(l.UTM, map[string]any{
			"lead_id":  l.ID,
			"service":  res.ServiceName,
			"city":     res.CityName,
			"value":    n.LeadValue,
			"currency": n.currency(),
		}),
	})...)
	tasks = append(tasks, n.analyticsTask(cc, "analytics_form", notify.Event{
		Name: "form_submission",
		Params: map[string]any{
			"form_type":          "lead",
			"has_email":          l.Email != "",
			"has_attachments":    len(urls) > 0,
			"attachment_count":   len(urls),
			"sms_consent":        l.SMSConsent,
			"whatsapp_consent":   l.WhatsAppConsent,
			"has_address":        l.Address != "",
			"has_preferred_date": l.PreferredDate != "",
			"page_path":          l.PagePath,
		},
	})...)

	tasks = append(tasks, n.eventTask(notify.IntakeEvent{
		Type:       "lead.created",
		ID:         l.ID,
		OccurredAt: l.CreatedAt,
		Data: map[string]any{
			"lead":         l,
			"service_name": res.ServiceName,
			"city_name":    res.CityName,
			"attachments":  urls,
		},
	})...)

	n.dispatch(ctx, "lead_created", tasks)
}

func truncateText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
