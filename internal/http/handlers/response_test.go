package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-leads-backend/internal/http/middleware"
	"github.com/tbourn/go-leads-backend/internal/services"
	"github.com/tbourn/go-leads-backend/internal/validation"
)

func TestFail_500LogsAndBody(t *testing.T) {
	buf := silenceLogs(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/boom", func(c *gin.Context) { Fail(c, http.StatusInternalServerError, ErrCodeInternal, "kaboom") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(middleware.RequestIDHeader, "rid-500")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	body := decode(t, w)
	if w.Code != 500 || body["request_id"] != "rid-500" || body["code"] != ErrCodeInternal || body["success"] != false {
		t.Fatalf("body = %v", body)
	}
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("expected error log, got: %s", buf.String())
	}
}

func TestFail_4xxNotLogged(t *testing.T) {
	buf := silenceLogs(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/nf", func(c *gin.Context) { Fail(c, http.StatusNotFound, ErrCodeNotFound, "route not found") })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nf", nil))
	if w.Code != 404 || buf.Len() != 0 {
		t.Fatalf("code=%d logs=%s", w.Code, buf.String())
	}
}

func TestClassify(t *testing.T) {
	verr := &validation.Error{}
	verr.Add("mobile", "is required")
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{verr, 400, ErrCodeValidation},
		{fmt.Errorf("%w: eof", validation.ErrInvalidJSON), 400, ErrCodeInvalidJSON},
		{&http.MaxBytesError{Limit: 10}, 413, ErrCodePayloadTooLarge},
		{fmt.Errorf("tx: %w", services.ErrSlotTaken), 409, ErrCodeSlotTaken},
		{services.ErrBookingNotFound, 404, ErrCodeNotFound},
		{services.ErrInvalidTransition, 409, ErrCodeInvalidTransition},
		{&services.DatabaseError{Op: "x", Err: errors.New("boom")}, 500, ErrCodeInternal},
		{errors.New("anything"), 500, ErrCodeInternal},
	}
	for _, tc := range cases {
		status, code, msg, details := classify(tc.err)
		if status != tc.status || code != tc.code || msg == "" {
			t.Fatalf("classify(%v) = %d %s %q", tc.err, status, code, msg)
		}
		if code == ErrCodeValidation && len(details) != 1 {
			t.Fatalf("validation details = %v", details)
		}
		if status == 500 && msg != msgInternal {
			t.Fatalf("500 must use the generic message, got %q", msg)
		}
	}
}
