// Package handlers exposes the intake endpoints (bookings, leads, SMS) and
// the admin booking endpoints.
//
// Handlers are transport-thin: they decode and validate input, call the
// application services, and translate results and errors into the response
// envelopes. Every rejected request goes through reject(), which reports the
// failure (log line, analytics error event, ops alert) exactly once.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-leads-backend/internal/domain"
	"github.com/tbourn/go-leads-backend/internal/http/middleware"
	"github.com/tbourn/go-leads-backend/internal/notify"
	"github.com/tbourn/go-leads-backend/internal/repo"
	"github.com/tbourn/go-leads-backend/internal/services"
	"github.com/tbourn/go-leads-backend/internal/validation"
)

//
// Service contracts (context-aware)
//

// BookingService covers availability, creation and admin operations.
type BookingService interface {
	IsSlotAvailable(ctx context.Context, date, hhmm string) (bool, error)
	DaySlots(ctx context.Context, date string) ([]services.Slot, error)
	Create(ctx context.Context, in validation.BookingInput, cc domain.ClientContext) (*services.BookingResult, error)
	UpdateStatus(ctx context.Context, id string, next domain.BookingStatus) (*domain.Booking, error)
	List(ctx context.Context, f repo.BookingFilter, page, pageSize int) ([]domain.Booking, int64, error)
	Stats(ctx context.Context, f repo.BookingFilter) (int64, *time.Time, error)
}

// LeadService records lead submissions.
type LeadService interface {
	Create(ctx context.Context, in validation.LeadInput, cc domain.ClientContext) (*services.LeadResult, error)
}

// SMSService sends messages and tracks call-to-action clicks.
type SMSService interface {
	Send(ctx context.Context, in validation.SMSSendInput, cc domain.ClientContext) (*services.SMSResult, error)
	TrackClick(ctx context.Context, in validation.SMSTrackInput, cc domain.ClientContext) (*services.SMSClick, error)
}

// SlotStream serves websocket subscribers for slot updates.
type SlotStream interface {
	ServeWS(w http.ResponseWriter, r *http.Request, date string)
}

// FailureReporter records rejected requests.
type FailureReporter interface {
	Report(ctx context.Context, lg *zerolog.Logger, f notify.Failure)
}

//
// Handler wiring
//

// Deps are the collaborators of Handlers. Stream and Reporter are optional.
type Deps struct {
	Validator *validation.Validator
	Bookings  BookingService
	Leads     LeadService
	SMS       SMSService
	Stream    SlotStream
	Reporter  FailureReporter

	// MaxLeadBody caps POST /leads bodies (default 25MiB).
	MaxLeadBody int64
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	v         *validation.Validator
	bookings  BookingService
	leads     LeadService
	sms       SMSService
	stream    SlotStream
	reporter  FailureReporter
	maxLeadSz int64
}

// New constructs Handlers from d. A nil Validator gets the defaults.
func New(d Deps) *Handlers {
	if d.Validator == nil {
		d.Validator = validation.New(validation.Options{})
	}
	if d.MaxLeadBody <= 0 {
		d.MaxLeadBody = 25 << 20
	}
	return &Handlers{
		v:         d.Validator,
		bookings:  d.Bookings,
		leads:     d.Leads,
		sms:       d.SMS,
		stream:    d.Stream,
		reporter:  d.Reporter,
		maxLeadSz: d.MaxLeadBody,
	}
}

// Preflight answers OPTIONS on the intake routes.
func (h *Handlers) Preflight(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"success": true})
}

//
// Helpers
//

// readJSON reads the whole body and decodes it strictly into dst.
func readJSON(c *gin.Context, dst any) error {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return errors.Join(validation.ErrInvalidJSON, err)
	}
	return validation.DecodeJSON(body, dst)
}

// classify maps an error to status, code, message and field details.
func classify(err error) (int, string, string, []validation.FieldError) {
	var (
		verr     *validation.Error
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, ErrCodeValidation, verr.Error(), verr.Fields
	case errors.Is(err, validation.ErrInvalidJSON):
		return http.StatusBadRequest, ErrCodeInvalidJSON, msgInvalidJSON, nil
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, msgTooLarge, nil
	case errors.Is(err, services.ErrSlotTaken):
		return http.StatusConflict, ErrCodeSlotTaken, msgSlotTaken, nil
	case errors.Is(err, services.ErrBookingNotFound):
		return http.StatusNotFound, ErrCodeNotFound, msgBookingNotFound, nil
	case errors.Is(err, services.ErrInvalidTransition):
		return http.StatusConflict, ErrCodeInvalidTransition, msgTransition, nil
	default:
		return http.StatusInternalServerError, ErrCodeInternal, msgInternal, nil
	}
}

// reject is the single error path for an endpoint: it reports err and
// writes the envelope. Internal detail never reaches the client.
func (h *Handlers) reject(c *gin.Context, endpoint string, err error) {
	status, code, msg, details := classify(err)
	f := notify.Failure{
		Endpoint:  endpoint,
		Status:    status,
		Code:      code,
		Message:   msg,
		Err:       err,
		RequestID: middleware.RequestIDFrom(c),
		Client:    middleware.ClientFrom(c),
	}
	lg := middleware.LoggerFrom(c)
	if h.reporter != nil {
		h.reporter.Report(c.Request.Context(), lg, f)
	} else {
		lg.Warn().Err(err).Str("endpoint", endpoint).Int("status", status).Msg("api failure")
	}
	writeError(c, status, code, msg, details)
}
