// Booking HTTP handlers.
//
//   - POST /bookings               (create)
//   - GET  /bookings/availability  (single slot check)
//   - GET  /bookings/slots         (whole day)
//   - GET  /bookings/ws            (live slot updates)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-leads-backend/internal/domain"
	"github.com/tbourn/go-leads-backend/internal/http/middleware"
	"github.com/tbourn/go-leads-backend/internal/services"
	"github.com/tbourn/go-leads-backend/internal/validation"
)

const (
	msgBookingCreated = "Booking created successfully"
	msgSlotFree       = "Time slot is available"
	msgSlotBooked     = "Time slot is already booked"
)

//
// DTOs
//

// Appointment echoes the booked slot.
type Appointment struct {
	Date   string               `json:"date"   example:"2030-01-15"`
	Time   string               `json:"time"   example:"10:30"`
	Status domain.BookingStatus `json:"status" example:"pending"`
}

// BookingCreated is the data of a 201 from POST /bookings.
type BookingCreated struct {
	BookingID        string      `json:"bookingId"        example:"6f1c2a8e-7f55-4d3c-9a43-2b1f9f3f8e11"`
	Message          string      `json:"message"          example:"Booking created successfully"`
	Appointment      Appointment `json:"appointment"`
	ConfirmationSent bool        `json:"confirmationSent"`
	CalendarInvite   bool        `json:"calendarInvite"`
}

// Availability is the data of GET /bookings/availability.
type Availability struct {
	Date      string `json:"date"      example:"2030-01-15"`
	Time      string `json:"time"      example:"10:30"`
	Available bool   `json:"available" example:"true"`
	Message   string `json:"message"   example:"Time slot is available"`
}

// DaySchedule is the data of GET /bookings/slots.
type DaySchedule struct {
	Date  string          `json:"date" example:"2030-01-15"`
	Slots []services.Slot `json:"slots"`
}

//
// Handlers
//

// CreateBooking godoc
// @ID          createBooking
// @Summary     Book a consultation slot
// @Description Validates the slot, books it atomically and fans out confirmations. Supports Idempotency-Key.
// @Tags        Bookings
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string                          false  "Replay key for retries"
// @Param       body             body    validation.BookingInput         true   "Booking payload"
// @Success     201  {object}  handlers.DataResponse{data=handlers.BookingCreated}
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     409  {object}  handlers.ErrorResponse  "Slot taken"
// @Failure     429  {object}  handlers.ErrorResponse  "Too many requests"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /bookings [post]
func (h *Handlers) CreateBooking(c *gin.Context) {
	const endpoint = "bookings.create"

	var in validation.BookingInput
	if err := readJSON(c, &in); err != nil {
		h.reject(c, endpoint, err)
		return
	}
	in, err := h.v.Booking(in)
	if err != nil {
		h.reject(c, endpoint, err)
		return
	}

	res, err := h.bookings.Create(c.Request.Context(), in, middleware.ClientFrom(c))
	if err != nil {
		h.reject(c, endpoint, err)
		return
	}

	b := res.Booking
	middleware.SetIdempotentResource(c, b.ID)
	okData(c, http.StatusCreated, BookingCreated{
		BookingID:        b.ID,
		Message:          msgBookingCreated,
		Appointment:      Appointment{Date: b.SlotDate, Time: b.SlotTime, Status: b.Status},
		ConfirmationSent: res.ConfirmationSent,
		CalendarInvite:   res.CalendarInvite,
	})
}

// CheckAvailability godoc
// @ID          checkAvailability
// @Summary     Check one slot
// @Tags        Bookings
// @Produce     json
// @Param       date  query  string  true  "YYYY-MM-DD"  example(2030-01-15)
// @Param       time  query  string  true  "HH:MM"       example(10:30)
// @Success     200  {object}  handlers.DataResponse{data=handlers.Availability}
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /bookings/availability [get]
func (h *Handlers) CheckAvailability(c *gin.Context) {
	const endpoint = "bookings.availability"

	q, err := h.v.Availability(validation.AvailabilityQuery{Date: c.Query("date"), Time: c.Query("time")})
	if err != nil {
		h.reject(c, endpoint, err)
		return
	}
	free, err := h.bookings.IsSlotAvailable(c.Request.Context(), q.Date, q.Time)
	if err != nil {
		h.reject(c, endpoint, err)
		return
	}
	msg := msgSlotFree
	if !free {
		msg = msgSlotBooked
	}
	okData(c, http.StatusOK, Availability{Date: q.Date, Time: q.Time, Available: free, Message: msg})
}

// ListDaySlots godoc
// @ID          listDaySlots
// @Summary     List the slots of a day
// @Tags        Bookings
// @Produce     json
// @Param       date  query  string  true  "YYYY-MM-DD"  example(2030-01-15)
// @Success     200  {object}  handlers.DataResponse{data=handlers.DaySchedule}
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /bookings/slots [get]
func (h *Handlers) ListDaySlots(c *gin.Context) {
	const endpoint = "bookings.slots"

	q, err := h.v.Day(validation.DayQuery{Date: c.Query("date")})
	if err != nil {
		h.reject(c, endpoint, err)
		return
	}
	slots, err := h.bookings.DaySlots(c.Request.Context(), q.Date)
	if err != nil {
		h.reject(c, endpoint, err)
		return
	}
	okData(c, http.StatusOK, DaySchedule{Date: q.Date, Slots: slots})
}

// StreamSlots upgrades to a websocket that receives slot updates, filtered
// to ?date when given.
//
// @ID          streamSlots
// @Summary     Websocket of slot updates
// @Tags        Bookings
// @Param       date  query  string  false  "YYYY-MM-DD filter"
// @Success     101  {string}  string  "Switching Protocols"
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     404  {object}  handlers.ErrorResponse  "Disabled"
// @Router      /bookings/ws [get]
func (h *Handlers) StreamSlots(c *gin.Context) {
	if h.stream == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "live updates are disabled")
		return
	}
	date := c.Query("date")
	if date != "" {
		if _, err := h.v.Day(validation.DayQuery{Date: date}); err != nil {
			h.reject(c, "bookings.ws", err)
			return
		}
	}
	h.stream.ServeWS(c.Writer, c.Request, date)
}
