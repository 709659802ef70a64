package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

type memStore struct {
	mu        sync.Mutex
	recs      map[string]IdempotencyRecord
	resources map[string]string
	lookupErr error
}

func newMemStore() *memStore {
	return &memStore{recs: map[string]IdempotencyRecord{}, resources: map[string]string{}}
}

func (m *memStore) Lookup(_ context.Context, scope, key string) (*IdempotencyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	if r, ok := m.recs[scope+"|"+key]; ok {
		return &r, nil
	}
	return nil, nil
}

func (m *memStore) Save(_ context.Context, scope, key, resourceID string, status int, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[scope+"|"+key] = IdempotencyRecord{Status: status, Body: append([]byte(nil), body...)}
	m.resources[scope+"|"+key] = resourceID
	return nil
}

func idemEngine(store IdempotencyStore, calls *int, status int) *gin.Engine {
	r := newEngine()
	r.Use(RequestID())
	r.POST("/leads", Idempotency(IdempotencyOptions{}, store), func(c *gin.Context) {
		*calls++
		SetIdempotentResource(c, "lead-1")
		c.JSON(status, gin.H{"success": status < 300, "n": *calls})
	})
	return r
}

func post(r *gin.Engine, key string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/leads", strings.NewReader(`{}`))
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	store := newMemStore()
	calls := 0
	r := idemEngine(store, &calls, http.StatusCreated)

	first := post(r, "abc-1")
	second := post(r, "abc-1")

	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
	if second.Code != http.StatusCreated || second.Body.String() != first.Body.String() {
		t.Fatalf("replay = %d %s, want %d %s", second.Code, second.Body.String(), first.Code, first.Body.String())
	}
	if second.Header().Get(HeaderIdempotentReplay) != "true" {
		t.Fatalf("replay header missing")
	}
	if store.resources["POST /leads|abc-1"] != "lead-1" {
		t.Fatalf("resource id not stored: %v", store.resources)
	}

	post(r, "abc-2")
	if calls != 2 {
		t.Fatalf("a new key must run the handler")
	}
}

func TestIdempotency_NoHeaderPassesThrough(t *testing.T) {
	store := newMemStore()
	calls := 0
	r := idemEngine(store, &calls, http.StatusCreated)
	post(r, "")
	post(r, "")
	if calls != 2 || len(store.recs) != 0 {
		t.Fatalf("calls=%d stored=%d", calls, len(store.recs))
	}
}

func TestIdempotency_InvalidKey(t *testing.T) {
	calls := 0
	r := idemEngine(newMemStore(), &calls, http.StatusCreated)
	w := post(r, "has spaces!")
	if w.Code != http.StatusBadRequest || calls != 0 {
		t.Fatalf("code=%d calls=%d", w.Code, calls)
	}
	if decodeBody(t, w)["code"] != "bad_request" {
		t.Fatalf("body = %s", w.Body.String())
	}
	if w := post(r, strings.Repeat("k", 201)); w.Code != http.StatusBadRequest {
		t.Fatalf("overlong key accepted: %d", w.Code)
	}
}

func TestIdempotency_FailuresAreNotStored(t *testing.T) {
	store := newMemStore()
	calls := 0
	r := idemEngine(store, &calls, http.StatusConflict)
	post(r, "k1")
	post(r, "k1")
	if calls != 2 || len(store.recs) != 0 {
		t.Fatalf("non-2xx must not be stored: calls=%d stored=%d", calls, len(store.recs))
	}
}

func TestIdempotency_LookupErrorDoesNotBlock(t *testing.T) {
	captureLogger(t)
	store := newMemStore()
	store.lookupErr = errors.New("db down")
	calls := 0
	r := idemEngine(store, &calls, http.StatusCreated)
	if w := post(r, "k1"); w.Code != http.StatusCreated || calls != 1 {
		t.Fatalf("code=%d calls=%d", w.Code, calls)
	}
}

func TestCaptureWriter_Overflow(t *testing.T) {
	cw := &captureWriter{ResponseWriter: nil, limit: 4}
	cw.capture([]byte("abc"))
	cw.capture([]byte("de"))
	if !cw.overflow || cw.buf.Len() != 0 {
		t.Fatalf("overflow=%v len=%d", cw.overflow, cw.buf.Len())
	}
}
