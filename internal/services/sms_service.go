// Package services – SMSService
//
// This file implements outbound SMS and click tracking. A provider rejection
// is a normal outcome returned as an SMSResult with Success=false; only
// validation and storage failures are returned as errors. Every send is
// recorded as an interaction row whose id is reported to the caller.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

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

// User-facing SMS outcomes.
const (
	SMSSentMessage    = "SMS sent successfully"
	SMSFailedMessage  = "Failed to send SMS. Please try again."
	SMSTrackedMessage = "SMS click tracked"
)

// SMSResult is the outcome of a send that passed validation.
type SMSResult struct {
	Success       bool
	Message       string
	MessageID     string
	InteractionID string
	Error         string
	Timestamp     time.Time
}

// SMSClick is the outcome of a tracked click.
type SMSClick struct {
	InteractionID string
	Timestamp     time.Time
}

// SMSService sends templated messages and records interactions.
type SMSService struct {
	DB        *gorm.DB
	Provider  SMSProvider
	Templates *SMSTemplates
	Notifier  *Notifier
}

// NewSMSService constructs an SMSService.
func NewSMSService(db *gorm.DB, p SMSProvider, t *SMSTemplates, n *Notifier) *SMSService {
	return &SMSService{DB: db, Provider: p, Templates: t, Notifier: n}
}

// Send delivers a validated message. Provider failures come back as a
// result with Success=false and a nil error.
func (s *SMSService) Send(ctx context.Context, in validation.SMSSendInput, cc domain.ClientContext) (*SMSResult, error) {
	tr := otel.Tracer("services/SMSService")
	ctx, span := tr.Start(ctx, "Send", trace.WithAttributes(
		attribute.String("sms.message_type", in.MessageType),
	))
	defer span.End()

	body, err := s.body(in)
	if err != nil {
		return nil, err
	}

	it := &domain.SMSInteraction{
		LeadID:      in.LeadID,
		Phone:       in.PhoneNumber,
		Kind:        domain.SMSKindSend,
		MessageType: in.MessageType,
		Body:        body,
		Status:      domain.SMSStatusPending,
		Consent:     in.Consent,
		PagePath:    nonEmpty(in.PagePath, cc.PagePath),
		UTM:         in.UTM.Merge(cc.UTM),
	}
	if err := repo.CreateSMSInteraction(ctx, s.DB, it); err != nil {
		span.RecordError(err)
		return nil, dbErr("create sms interaction", err)
	}

	res := &SMSResult{InteractionID: it.ID}
	receipt, sendErr := s.send(ctx, it.Phone, body)
	res.Timestamp = time.Now().UTC()
	if sendErr != nil {
		span.RecordError(sendErr)
		res.Message = SMSFailedMessage
		res.Error = providerReason(sendErr)
		log.Warn().Err(sendErr).Str("interaction_id", it.ID).Msg("sms send failed")
	} else {
		res.Success = true
		res.Message = SMSSentMessage
		res.MessageID = receipt.MessageID
	}

	status := domain.SMSStatusSent
	if !res.Success {
		status = domain.SMSStatusFailed
	}
	if err := repo.FinishSMSInteraction(ctx, s.DB, it.ID, status, res.MessageID, res.Error); err != nil {
		log.Error().Err(err).Str("interaction_id", it.ID).Msg("sms interaction update failed")
	}
	it.Status = status

	s.notifySend(ctx, it, res, cc)
	return res, nil
}

// TrackClick records a call-to-action click. No message is sent.
func (s *SMSService) TrackClick(ctx context.Context, in validation.SMSTrackInput, cc domain.ClientContext) (*SMSClick, error) {
	tr := otel.Tracer("services/SMSService")
	ctx, span := tr.Start(ctx, "TrackClick")
	defer span.End()

	it := &domain.SMSInteraction{
		Phone:    in.PhoneNumber,
		Kind:     domain.SMSKindClick,
		Status:   domain.SMSStatusClicked,
		Consent:  in.Consent,
		PagePath: nonEmpty(in.PagePath, cc.PagePath),
		UTM:      in.UTM.Merge(cc.UTM),
	}
	if err := repo.CreateSMSInteraction(ctx, s.DB, it); err != nil {
		span.RecordError(err)
		return nil, dbErr("create sms click", err)
	}

	s.notifyClick(ctx, it, cc)
	return &SMSClick{InteractionID: it.ID, Timestamp: it.CreatedAt}, nil
}

func (s *SMSService) body(in validation.SMSSendInput) (string, error) {
	typ := strings.TrimSpace(in.MessageType)
	if typ == "" || typ == validation.MessageTypeCustom {
		return in.Message, nil
	}
	if !s.Templates.Has(typ) {
		verr := &validation.Error{}
		verr.Add("message_type", fmt.Sprintf("unknown message type %q", typ))
		return "", verr
	}
	data := map[string]string{"message": in.Message}
	if s.Notifier != nil {
		data["business"] = s.Notifier.Business.Name
		data["business_phone"] = s.Notifier.Business.Phone
	}
	for k, v := range in.TemplateData {
		data[k] = validation.CleanText(v)
	}
	out, err := s.Templates.Render(typ, data)
	if err != nil {
		return "", fmt.Errorf("sms template: %w", err)
	}
	if out == "" {
		verr := &validation.Error{}
		verr.Add("message", "rendered message is empty")
		return "", verr
	}
	return out, nil
}

func (s *SMSService) send(ctx context.Context, to, body string) (notify.SMSReceipt, error) {
	if s.Provider == nil {
		return notify.SMSReceipt{}, &notify.ProviderError{Message: "sms provider not configured"}
	}
	return s.Provider.SendSMS(ctx, to, body)
}

// providerReason is the client-safe failure text.
func providerReason(err error) string {
	var pe *notify.ProviderError
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return "sms provider unavailable"
}

func (s *SMSService) notifySend(ctx context.Context, it *domain.SMSInteraction, res *SMSResult, cc domain.ClientContext) {
	n := s.Notifier
	if n == nil {
		return
	}
	outcome, severity, delivery := "sent", notify.SeveritySuccess, "sms_sent"
	if !res.Success {
		outcome, severity, delivery = "failed", notify.SeverityError, "sms_failed"
	}

	var tasks []notify.Task
	tasks = append(tasks, n.analyticsTask(cc, "analytics_delivery", notify.Event{
		Name: delivery,
		Params: attribution(it.UTM, map[string]any{
			"interaction_id": it.ID,
			"message_type":   nonEmpty(it.MessageType, validation.MessageTypeCustom),
			"error":          res.Error,
		}),
	})...)
	tasks = append(tasks, n.analyticsTask(cc, "analytics_engagement", notify.Event{
		Name: "sms_engagement",
		Params: map[string]any{
			"action":    "send",
			"outcome":   outcome,
			"page_path": it.PagePath,
		},
	})...)
	tasks = append(tasks, n.alertTask(notify.Alert{
		Title:    "SMS " + outcome,
		Severity: severity,
		Text:     truncateText(it.Body, 300),
		Fields: append([]notify.Field{
			{Label: "Interaction ID", Value: it.ID},
			{Label: "Phone", Value: maskPhone(it.Phone)},
			{Label: "Type", Value: it.MessageType},
			{Label: "Provider ID", Value: res.MessageID},
			{Label: "Error", Value: res.Error},
		}, clientFields(cc)...),
	})...)
	tasks = append(tasks, n.eventTask(notify.IntakeEvent{
		Type:       "sms." + outcome,
		ID:         it.ID,
		OccurredAt: res.Timestamp,
		Data:       it,
	})...)
	n.dispatch(ctx, "sms_send", tasks)
}

func (s *SMSService) notifyClick(ctx context.Context, it *domain.SMSInteraction, cc domain.ClientContext) {
	n := s.Notifier
	if n == nil {
		return
	}
	var tasks []notify.Task
	tasks = append(tasks, n.analyticsTask(cc, "analytics_click", notify.Event{
		Name: "sms_click",
		Params: attribution(it.UTM, map[string]any{
			"interaction_id": it.ID,
			"page_path":      it.PagePath,
		}),
	})...)
	tasks = append(tasks, n.analyticsTask(cc, "analytics_engagement", notify.Event{
		Name: "sms_engagement",
		Params: map[string]any{
			"action":    "click",
			"outcome":   "tracked",
			"page_path": it.PagePath,
		},
	})...)
	tasks = append(tasks, n.eventTask(notify.IntakeEvent{
		Type:       "sms.clicked",
		ID:         it.ID,
		OccurredAt: it.CreatedAt,
		Data:       it,
	})...)
	n.dispatch(ctx, "sms_click", tasks)
}

// maskPhone keeps the last four digits.
func maskPhone(p string) string {
	if len(p) <= 4 {
		return p
	}
	return strings.Repeat("*", len(p)-4) + p[len(p)-4:]
}
