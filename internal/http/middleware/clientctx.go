package middleware

import (
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-leads-backend/internal/domain"
)

const (
	clientKey = "client"
	// PagePathHeader lets the site report the page a form was posted from.
	PagePathHeader = "X-Page-Path"
)

// ClientContext derives caller metadata once per request: IP, user agent,
// UTM parameters from the query string and the originating page.
func ClientContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(clientKey, extractClient(c))
		c.Next()
	}
}

// ClientFrom returns the ClientContext stored by ClientContext, deriving it
// on the fly when the middleware was not installed.
func ClientFrom(c *gin.Context) domain.ClientContext {
	if v, ok := c.Get(clientKey); ok {
		if cc, ok := v.(domain.ClientContext); ok {
			return cc
		}
	}
	return extractClient(c)
}

func extractClient(c *gin.Context) domain.ClientContext {
	q := c.Request.URL.Query()
	cc := domain.ClientContext{
		IP:        c.ClientIP(),
		UserAgent: truncate(c.Request.UserAgent(), 500),
		UTM: domain.UTMParams{
			Source:   q.Get("utm_source"),
			Medium:   q.Get("utm_medium"),
			Campaign: q.Get("utm_campaign"),
			Term:     q.Get("utm_term"),
			Content:  q.Get("utm_content"),
		},
		PagePath: strings.TrimSpace(c.GetHeader(PagePathHeader)),
	}
	if cc.PagePath == "" {
		cc.PagePath = refererPath(c.Request.Referer())
	}
	// The referer usually carries the landing page's UTM tags.
	if cc.UTM.IsZero() {
		if u, err := url.Parse(c.Request.Referer()); err == nil {
			rq := u.Query()
			cc.UTM = domain.UTMParams{
				Source:   rq.Get("utm_source"),
				Medium:   rq.Get("utm_medium"),
				Campaign: rq.Get("utm_campaign"),
				Term:     rq.Get("utm_term"),
				Content:  rq.Get("utm_content"),
			}
		}
	}
	return cc
}

func refererPath(ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return u.Path
}
