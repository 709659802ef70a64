// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements Idempotency-Key support for intake POSTs. A retried
// request with the same key on the same route gets the stored response back
// verbatim, so a client whose first attempt timed out does not create a
// second lead or booking. Only 2xx responses are stored.
package middleware

import (
	"bytes"
	"context"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header carrying the key.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotentReplay marks a response served from the store.
const HeaderIdempotentReplay = "Idempotent-Replayed"

const (
	ctxKeyIdemKey      = "idem.key"
	ctxKeyIdemResource = "idem.resource"

	defaultMaxStoredBody = 1 << 20
)

var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// IdempotencyRecord is a stored response.
type IdempotencyRecord struct {
	Status int
	Body   []byte
}

// IdempotencyStore persists responses by (scope, key). Lookup returns
// (nil, nil) when nothing valid is stored.
type IdempotencyStore interface {
	Lookup(ctx context.Context, scope, key string) (*IdempotencyRecord, error)
	Save(ctx context.Context, scope, key, resourceID string, status int, body []byte) error
}

// IdempotencyOptions configures key validation.
type IdempotencyOptions struct {
	MaxLen  int            // default 200
	Pattern *regexp.Regexp // default ^[A-Za-z0-9._~\-:]+$
	// MaxBody caps the stored response; larger responses are not stored.
	MaxBody int
}

// GetIdempotencyKey returns the validated key for this request.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	s := c.GetString(ctxKeyIdemKey)
	return s, s != ""
}

// SetIdempotentResource records the id of the created resource alongside
// the stored response.
func SetIdempotentResource(c *gin.Context, id string) {
	c.Set(ctxKeyIdemResource, id)
}

type captureWriter struct {
	gin.ResponseWriter
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (w *captureWriter) capture(p []byte) {
	if w.overflow {
		return
	}
	if w.buf.Len()+len(p) > w.limit {
		w.overflow = true
		w.buf.Reset()
		return
	}
	w.buf.Write(p)
}

func (w *captureWriter) Write(p []byte) (int, error) {
	w.capture(p)
	return w.ResponseWriter.Write(p)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.capture([]byte(s))
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays stored responses for a repeated key and stores new
// successful ones. Scope is the method plus the registered route. Requests
// without the header pass through untouched; store errors never fail the
// request.
func Idempotency(opts IdempotencyOptions, store IdempotencyStore) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultKeyPattern
	}
	maxBody := opts.MaxBody
	if maxBody <= 0 {
		maxBody = defaultMaxStoredBody
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || store == nil {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			AbortError(c, http.StatusBadRequest, "bad_request", "invalid Idempotency-Key")
			return
		}
		c.Set(ctxKeyIdemKey, key)

		scope := c.Request.Method + " " + c.FullPath()
		ctx := c.Request.Context()
		lg := LoggerFrom(c)

		rec, err := store.Lookup(ctx, scope, key)
		if err != nil {
			lg.Warn().Err(err).Msg("idempotency lookup failed")
		}
		if rec != nil {
			c.Header(HeaderIdempotentReplay, "true")
			c.Data(rec.Status, "application/json; charset=utf-8", rec.Body)
			c.Abort()
			return
		}

		cw := &captureWriter{ResponseWriter: c.Writer, limit: maxBody}
		c.Writer = cw
		c.Next()

		status := cw.Status()
		if status < 200 || status >= 300 || cw.overflow {
			return
		}
		if err := store.Save(ctx, scope, key, c.GetString(ctxKeyIdemResource), status, cw.buf.Bytes()); err != nil {
			lg.Warn().Err(err).Msg("idempotency save failed")
		}
	}
}
