package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestNewRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(2.0, 0, nil)
	if rl.burst != 1 || rl.keyFn == nil {
		t.Fatalf("defaults not applied: burst=%d keyFn=%v", rl.burst, rl.keyFn != nil)
	}
	lim := rl.getVisitor("k1")
	if got := rl.getVisitor("k1"); got != lim {
		t.Fatalf("expected the same limiter to be reused")
	}
}

func TestRateLimiter_EvictsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(1.0, 1, KeyByIP())
	rl.ttl = time.Nanosecond
	old := rl.getVisitor("old")
	rl.visitors["old"].lastSeen = time.Now().Add(-time.Hour)
	rl.cleanupN = 4999

	if got := rl.getVisitor("old"); got == old {
		t.Fatalf("idle bucket should have been evicted and recreated")
	}
}

func TestRateLimiter_Handler429(t *testing.T) {
	rl := NewRateLimiter(0.5, 2, KeyByIP())
	limited := 0
	rl.OnLimit = func(*gin.Context) { limited++ }

	r := newEngine()
	r.Use(RequestID())
	r.POST("/leads", rl.Handler(), func(c *gin.Context) { c.Status(http.StatusCreated) })

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/leads", nil)
		req.RemoteAddr = "198.51.100.7:1000"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		last = w
	}
	if codes[0] != 201 || codes[1] != 201 || codes[2] != 429 {
		t.Fatalf("codes = %v", codes)
	}
	if last.Header().Get("Retry-After") != "2" {
		t.Fatalf("Retry-After = %q", last.Header().Get("Retry-After"))
	}
	body := decodeBody(t, last)
	if body["code"] != "too_many_requests" || body["success"] != false || body["request_id"] == "" {
		t.Fatalf("body = %v", body)
	}
	if limited != 1 {
		t.Fatalf("OnLimit calls = %d", limited)
	}

	// Another IP has its own bucket.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/leads", nil)
	req.RemoteAddr = "198.51.100.8:1000"
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("other IP got %d", w.Code)
	}
}

func TestRateLimiter_RetryAfterZeroRate(t *testing.T) {
	if got := NewRateLimiter(0, 1, nil).retryAfter(); got != "60" {
		t.Fatalf("retryAfter = %q", got)
	}
	if got := NewRateLimiter(10, 1, nil).retryAfter(); got != "1" {
		t.Fatalf("retryAfter = %q", got)
	}
}
