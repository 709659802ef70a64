package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-leads-backend/internal/http/middleware"
	"github.com/tbourn/go-leads-backend/internal/validation"
)

const msgLeadCreated = "Thank you! We received your request and will contact you shortly."

// LeadCreated is the data of a 201 from POST /leads. Attachments lists only
// the files that were stored.
type LeadCreated struct {
	LeadID           string   `json:"leadId"                example:"0b7d3c9e-1a2b-4c5d-8e9f-0a1b2c3d4e5f"`
	Message          string   `json:"message"               example:"Thank you! We received your request and will contact you shortly."`
	Attachments      []string `json:"attachments,omitempty" example:"/uploads/8a1f.jpg"`
	ConfirmationSent bool     `json:"confirmationSent"`
}

// CreateLead godoc
// @ID          createLead
// @Summary     Submit a lead
// @Description Records a quote request with optional inline photos (base64). Supports Idempotency-Key.
// @Tags        Leads
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string                false  "Replay key for retries"
// @Param       body             body    validation.LeadInput  true   "Lead payload"
// @Success     201  {object}  handlers.DataResponse{data=handlers.LeadCreated}
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     413  {object}  handlers.ErrorResponse  "Body too large"
// @Failure     429  {object}  handlers.ErrorResponse  "Too many requests"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /leads [post]
func (h *Handlers) CreateLead(c *gin.Context) {
	const endpoint = "leads.create"

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxLeadSz)

	var in validation.LeadInput
	if err := readJSON(c, &in); err != nil {
		h.reject(c, endpoint, err)
		return
	}
	in, err := h.v.Lead(in)
	if err != nil {
		h.reject(c, endpoint, err)
		return
	}

	res, err := h.leads.Create(c.Request.Context(), in, middleware.ClientFrom(c))
	if err != nil {
		h.reject(c, endpoint, err)
		return
	}

	middleware.SetIdempotentResource(c, res.Lead.ID)
	okData(c, http.StatusCreated, LeadCreated{
		LeadID:           res.Lead.ID,
		Message:          msgLeadCreated,
		Attachments:      res.AttachmentURLs(),
		ConfirmationSent: res.ConfirmationSent,
	})
}
