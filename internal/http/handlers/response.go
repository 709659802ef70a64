// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response envelopes shared by all endpoints. Success
// bodies are {success:true, data}; failures are ErrorResponse. fail() writes
// an error directly and logs 5xx with the request-scoped logger.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-leads-backend/internal/http/middleware"
	"github.com/tbourn/go-leads-backend/internal/validation"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	Success bool `json:"success" example:"false"`
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"validation_failed"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"validation failed: mobile is required"`
	// Field-level problems for validation_failed
	Details []validation.FieldError `json:"details,omitempty"`
}

// DataResponse is the success envelope.
type DataResponse struct {
	Success bool `json:"success" example:"true"`
	Data    any  `json:"data,omitempty"`
}

func writeError(c *gin.Context, status int, code, msg string, details []validation.FieldError) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: middleware.RequestIDFrom(c),
		Code:      code,
		Message:   msg,
		Details:   details,
	})
}

// fail aborts the request with a structured error. Server errors (>=500)
// are logged using the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	writeError(c, status, code, msg, nil)
}

// Fail is the exported variant of fail() for router fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes body as-is.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// okData wraps data in the success envelope.
func okData(c *gin.Context, status int, data any) {
	c.JSON(status, DataResponse{Success: true, Data: data})
}
