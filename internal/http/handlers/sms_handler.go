package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-leads-backend/internal/http/middleware"
	"github.com/tbourn/go-leads-backend/internal/services"
	"github.com/tbourn/go-leads-backend/internal/validation"
)

// SMSSent is the data of a delivered message.
type SMSSent struct {
	MessageID     string    `json:"messageId"     example:"SM1234567890abcdef"`
	InteractionID string    `json:"interactionId" example:"4d2c8f5e-3b1a-4c9d-8e7f-6a5b4c3d2e1f"`
	Timestamp     time.Time `json:"timestamp"`
}

// SMSSendResponse is the body of POST /sms. A provider failure is a 200
// with success=false, Error and no Data.
type SMSSendResponse struct {
	Success       bool      `json:"success"`
	Message       string    `json:"message"                 example:"SMS sent successfully"`
	Data          *SMSSent  `json:"data,omitempty"`
	Error         string    `json:"error,omitempty"         example:"invalid destination number"`
	InteractionID string    `json:"interactionId,omitempty" example:"4d2c8f5e-3b1a-4c9d-8e7f-6a5b4c3d2e1f"`
	Timestamp     time.Time `json:"timestamp,omitzero"`
}

// SMSTracked is the data of PUT /sms.
type SMSTracked struct {
	Message   string    `json:"message"   example:"SMS click tracked"`
	Timestamp time.Time `json:"timestamp"`
	Tracked   bool      `json:"tracked"   example:"true"`
}

// SendSMS godoc
// @ID          sendSMS
// @Summary     Send an SMS
// @Description Sends a templated or custom message. A provider rejection is returned as a 200 soft failure.
// @Tags        SMS
// @Accept      json
// @Produce     json
// @Param       body  body  validation.SMSSendInput  true  "SMS payload"
// @Success     200  {object}  handlers.SMSSendResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /sms [post]
func (h *Handlers) SendSMS(c *gin.Context) {
	const endpoint = "sms.send"

	var in validation.SMSSendInput
	if err := readJSON(c, &in); err != nil {
		h.reject(c, endpoint, err)
		return
	}
	in, err := h.v.SMSSend(in)
	if err != nil {
		h.reject(c, endpoint, err)
		return
	}

	res, err := h.sms.Send(c.Request.Context(), in, middleware.ClientFrom(c))
	if err != nil {
		h.reject(c, endpoint, err)
		return
	}
	ok(c, http.StatusOK, smsResponse(res))
}

func smsResponse(res *services.SMSResult) SMSSendResponse {
	if !res.Success {
		return SMSSendResponse{
			Message:       res.Message,
			Error:         res.Error,
			InteractionID: res.InteractionID,
			Timestamp:     res.Timestamp,
		}
	}
	return SMSSendResponse{
		Success: true,
		Message: res.Message,
		Data: &SMSSent{
			MessageID:     res.MessageID,
			InteractionID: res.InteractionID,
			Timestamp:     res.Timestamp,
		},
	}
}

// TrackSMSClick godoc
// @ID          trackSMSClick
// @Summary     Track an SMS call-to-action click
// @Tags        SMS
// @Accept      json
// @Produce     json
// @Param       body  body  validation.SMSTrackInput  true  "Click payload"
// @Success     200  {object}  handlers.DataResponse{data=handlers.SMSTracked}
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /sms [put]
func (h *Handlers) TrackSMSClick(c *gin.Context) {
	const endpoint = "sms.track"

	var in validation.SMSTrackInput
	if err := readJSON(c, &in); err != nil {
		h.reject(c, endpoint, err)
		return
	}
	in, err := h.v.SMSTrack(in)
	if err != nil {
		h.reject(c, endpoint, err)
		return
	}

	click, err := h.sms.TrackClick(c.Request.Context(), in, middleware.ClientFrom(c))
	if err != nil {
		h.reject(c, endpoint, err)
		return
	}
	okData(c, http.StatusOK, SMSTracked{
		Message:   services.SMSTrackedMessage,
		Timestamp: click.Timestamp,
		Tracked:   true,
	})
}
