package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-leads-backend/internal/domain"
)

func TestClientContext_FromQueryAndHeaders(t *testing.T) {
	r := newEngine()
	var got domain.ClientContext
	r.Use(ClientContext())
	r.POST("/leads", func(c *gin.Context) { got = ClientFrom(c) })

	req := httptest.NewRequest(http.MethodPost, "/leads?utm_source=google&utm_medium=cpc&utm_campaign=spring", nil)
	req.RemoteAddr = "203.0.113.9:4567"
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set(PagePathHeader, "/services/roofing")
	r.ServeHTTP(httptest.NewRecorder(), req)

	want := domain.ClientContext{
		IP:        "203.0.113.9",
		UserAgent: "Mozilla/5.0",
		UTM:       domain.UTMParams{Source: "google", Medium: "cpc", Campaign: "spring"},
		PagePath:  "/services/roofing",
	}
	if got != want {
		t.Fatalf("client = %+v\nwant     %+v", got, want)
	}
}

func TestClientContext_RefererFallback(t *testing.T) {
	r := newEngine()
	var got domain.ClientContext
	r.POST("/leads", func(c *gin.Context) { got = ClientFrom(c) })

	req := httptest.NewRequest(http.MethodPost, "/leads", nil)
	req.Header.Set("Referer", "https://summit.test/contact?utm_source=facebook&utm_campaign=fall")
	r.ServeHTTP(httptest.NewRecorder(), req)

	if got.PagePath != "/contact" {
		t.Fatalf("page path = %q", got.PagePath)
	}
	if got.UTM.Source != "facebook" || got.UTM.Campaign != "fall" {
		t.Fatalf("utm = %+v", got.UTM)
	}
}
