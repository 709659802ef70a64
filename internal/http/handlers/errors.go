// Package handlers defines the error codes returned in every error envelope.
//
// Codes are lowercase snake_case and stable; clients branch on them rather
// than on messages. Every error response carries an HTTP status and one of
// these codes.
//
// Example response:
//
//	{
//	  "success": false,
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "slot_taken",
//	  "message": "This time slot is no longer available. Please choose another time."
//	}
package handlers

const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeInvalidJSON     = "invalid_json"
	ErrCodeValidation      = "validation_failed"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeNotFound        = "not_found"
	ErrCodePayloadTooLarge = "payload_too_large"
	ErrCodeRateLimited     = "too_many_requests"
	ErrCodeInternal        = "internal_error"

	// Domain-specific:
	ErrCodeSlotTaken         = "slot_taken"
	ErrCodeInvalidTransition = "invalid_transition"
	ErrCodeMethodNotAllowed  = "method_not_allowed"
)

// User-facing messages for non-validation failures.
const (
	msgInvalidJSON     = "Request body must be valid JSON."
	msgSlotTaken       = "This time slot is no longer available. Please choose another time."
	msgBookingNotFound = "Booking not found."
	msgTransition      = "That status change is not allowed for this booking."
	msgTooLarge        = "Request body is too large."
	msgInternal        = "Something went wrong. Please try again or contact us directly."
)
