// Admin booking handlers, mounted behind middleware.AdminAuth.
//
//   - GET   /admin/bookings              (list, paginated, ETag support)
//   - PATCH /admin/bookings/{id}/status  (status transition)
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-leads-backend/internal/domain"
	"github.com/tbourn/go-leads-backend/internal/http/middleware"
	"github.com/tbourn/go-leads-backend/internal/repo"
	"github.com/tbourn/go-leads-backend/internal/utils"
	"github.com/tbourn/go-leads-backend/internal/validation"
)

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// BookingList wraps a page of bookings.
type BookingList struct {
	Bookings   []domain.Booking `json:"bookings"`
	Pagination Pagination       `json:"pagination"`
}

// StatusUpdate is the body of PATCH /admin/bookings/{id}/status.
type StatusUpdate struct {
	Status domain.BookingStatus `json:"status" example:"confirmed"`
}

// ListBookings godoc
// @ID          listBookings
// @Summary     List bookings (paginated)
// @Description Filters by slot date and status. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Admin
// @Produce     json
// @Security    BearerAuth
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       date           query   string  false  "YYYY-MM-DD"
// @Param       status         query   string  false  "pending|confirmed|cancelled|completed"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.DataResponse{data=handlers.BookingList}
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/bookings [get]
func (h *Handlers) ListBookings(c *gin.Context) {
	const endpoint = "admin.bookings.list"
	ctx := c.Request.Context()
	page, pageSize := utils.PageParams(c.Query("page"), c.Query("page_size"))

	f := repo.BookingFilter{
		Date:   strings.TrimSpace(c.Query("date")),
		Status: domain.BookingStatus(strings.ToLower(strings.TrimSpace(c.Query("status")))),
	}
	if f.Date != "" && !validation.IsDate(f.Date) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "date must be YYYY-MM-DD")
		return
	}
	if f.Status != "" && !f.Status.Valid() {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown status")
		return
	}

	// ETag pre-check (best effort).
	if count, maxTS, err := h.bookings.Stats(ctx, f); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"bookings:%s:%s:%d:%d:%d:%d"`, f.Date, f.Status, page, pageSize, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.bookings.List(ctx, f, page, pageSize)
	if err != nil {
		h.reject(c, endpoint, err)
		return
	}
	totalPages := utils.TotalPages(total, pageSize)
	okData(c, http.StatusOK, BookingList{
		Bookings: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// UpdateBookingStatus godoc
// @ID          updateBookingStatus
// @Summary     Change a booking's status
// @Description pending → confirmed|cancelled, confirmed → completed|cancelled. Cancelling frees the slot.
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  string                 true  "Booking ID (UUID)"  format(uuid)
// @Param       body  body  handlers.StatusUpdate  true  "New status"
// @Success     200  {object}  handlers.DataResponse{data=domain.Booking}
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "Booking not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Invalid transition"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /admin/bookings/{id}/status [patch]
func (h *Handlers) UpdateBookingStatus(c *gin.Context) {
	const endpoint = "admin.bookings.status"

	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "booking id must be a UUID")
		return
	}
	var req StatusUpdate
	if err := readJSON(c, &req); err != nil {
		h.reject(c, endpoint, err)
		return
	}
	req.Status = domain.BookingStatus(strings.ToLower(strings.TrimSpace(string(req.Status))))
	if !req.Status.Valid() {
		verr := &validation.Error{}
		verr.Add("status", "must be one of: pending, confirmed, cancelled, completed")
		h.reject(c, endpoint, verr)
		return
	}

	b, err := h.bookings.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.reject(c, endpoint, err)
		return
	}
	middleware.LoggerFrom(c).Info().
		Str("booking_id", b.ID).
		Str("status", string(b.Status)).
		Str("admin", middleware.AdminSubject(c)).
		Msg("booking status changed")
	okData(c, http.StatusOK, b)
}
