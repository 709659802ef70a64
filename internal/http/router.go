// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, idempotency, and rate limiting.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-leads-backend/internal/calendar"
	"github.com/tbourn/go-leads-backend/internal/config"
	"github.com/tbourn/go-leads-backend/internal/domain"
	"github.com/tbourn/go-leads-backend/internal/http/handlers"
	"github.com/tbourn/go-leads-backend/internal/http/middleware"
	"github.com/tbourn/go-leads-backend/internal/notify"
	"github.com/tbourn/go-leads-backend/internal/realtime"
	"github.com/tbourn/go-leads-backend/internal/repo"
	"github.com/tbourn/go-leads-backend/internal/services"
	"github.com/tbourn/go-leads-backend/internal/validation"
)

// bookingRepoShim adapts the repository free functions to the
// services.BookingRepo interface expected by the BookingService.
type bookingRepoShim struct{}

func (bookingRepoShim) CountActiveAt(ctx context.Context, db *gorm.DB, date, hhmm string) (int64, error) {
	return repo.CountActiveAt(ctx, db, date, hhmm)
}

func (bookingRepoShim) ActiveTimesOn(ctx context.Context, db *gorm.DB, date string) ([]string, error) {
	return repo.ActiveTimesOn(ctx, db, date)
}

func (bookingRepoShim) CreateBooking(ctx context.Context, db *gorm.DB, b *domain.Booking) error {
	return repo.CreateBooking(ctx, db, b)
}

func (bookingRepoShim) GetBooking(ctx context.Context, db *gorm.DB, id string) (*domain.Booking, error) {
	return repo.GetBooking(ctx, db, id)
}

func (bookingRepoShim) UpdateBookingStatus(ctx context.Context, db *gorm.DB, id string, status domain.BookingStatus) error {
	return repo.UpdateBookingStatus(ctx, db, id, status)
}

func (bookingRepoShim) CountBookings(ctx context.Context, db *gorm.DB, f repo.BookingFilter) (int64, error) {
	return repo.CountBookings(ctx, db, f)
}

func (bookingRepoShim) ListBookingsPage(ctx context.Context, db *gorm.DB, f repo.BookingFilter, offset, limit int) ([]domain.Booking, error) {
	return repo.ListBookingsPage(ctx, db, f, offset, limit)
}

func (bookingRepoShim) GetLead(ctx context.Context, db *gorm.DB, id string) (*domain.Lead, error) {
	return repo.GetLead(ctx, db, id)
}

// idempotencyStore persists replayable responses in the idempotency table.
type idempotencyStore struct {
	db  *gorm.DB
	ttl time.Duration
}

func (s idempotencyStore) Lookup(ctx context.Context, scope, key string) (*middleware.IdempotencyRecord, error) {
	rec, err := repo.GetIdempotency(ctx, s.db, scope, key, time.Now().UTC())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &middleware.IdempotencyRecord{Status: rec.Status, Body: rec.Body}, nil
}

// Save ignores duplicates: a concurrent retry already stored its response.
func (s idempotencyStore) Save(ctx context.Context, scope, key, resourceID string, status int, body []byte) error {
	_, err := repo.CreateIdempotency(ctx, s.db, scope, key, resourceID, status, body, s.ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// App carries the long-lived collaborators built at startup. Only DB is
// required; every other field may be nil.
type App struct {
	DB        *gorm.DB
	Notifier  *services.Notifier
	Reporter  *notify.Reporter
	Store     services.ObjectStore
	SMS       services.SMSProvider
	Templates *services.SMSTemplates
	Invites   *calendar.Generator
	Names     services.NameResolver
	Hub       *realtime.Hub
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the versioned public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Metrics
//  6. Compression (websocket and /metrics excluded)
//  7. CORS and security headers
//  8. Client context (IP, user agent, UTM, page path)
//
// Intake POSTs additionally run Idempotency before the rate limiter, so a
// replayed response never spends a token.
func RegisterRoutes(r *gin.Engine, app App, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	apiBase := cfg.APIBasePath
	if apiBase == "/" {
		apiBase = ""
	}

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key", middleware.HeaderIdempotencyKey},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 6) Compression
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{
		apiBase + "/bookings/ws",
		"/metrics",
	})))

	// 7) CORS posture (safe defaults: allow all if none configured).
	// Browser preflights are answered here with 204; h.Preflight only sees
	// OPTIONS requests that carry no Origin.
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey, middleware.PagePathHeader}
	exposeHeaders := []string{middleware.RequestIDHeader, "Content-Length", "Retry-After", middleware.HeaderIdempotentReplay}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:           true,
			AllowMethods:              []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
			AllowHeaders:              allowHeaders,
			ExposeHeaders:             exposeHeaders,
			AllowCredentials:          false, // must remain false with AllowAllOrigins
			MaxAge:                    12 * time.Hour,
			OptionsResponseStatusCode: http.StatusNoContent,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist.
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:              cfg.CORS.AllowedOrigins,
			AllowMethods:              []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
			AllowHeaders:              allowHeaders,
			ExposeHeaders:             exposeHeaders,
			AllowCredentials:          false,
			MaxAge:                    12 * time.Hour,
			OptionsResponseStatusCode: http.StatusNoContent,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// 8) Client context for attribution
	r.Use(middleware.ClientContext())

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/collaborators
	loc := cfg.Business.Location
	if loc == nil {
		loc = time.UTC
	}
	v := validation.New(validation.Options{
		Location:       loc,
		SlotMinutes:    cfg.Booking.SlotMinutes,
		Open:           cfg.Booking.Open,
		Close:          cfg.Booking.Close,
		MaxAttachments: cfg.Storage.MaxAttachments,
	})
	bookSvc := services.NewBookingService(app.DB, bookingRepoShim{}, services.SlotRules{
		Location:    loc,
		SlotMinutes: cfg.Booking.SlotMinutes,
		Open:        cfg.Booking.Open,
		Close:       cfg.Booking.Close,
	}, app.Invites, app.Notifier)
	leadSvc := services.NewLeadService(app.DB, app.Store, app.Names, app.Notifier)
	smsSvc := services.NewSMSService(app.DB, app.SMS, app.Templates, app.Notifier)

	deps := handlers.Deps{
		Validator:   v,
		Bookings:    bookSvc,
		Leads:       leadSvc,
		SMS:         smsSvc,
		MaxLeadBody: cfg.MaxLeadBodyBytes,
	}
	if app.Hub != nil {
		deps.Stream = app.Hub
	}
	if app.Reporter != nil {
		deps.Reporter = app.Reporter
	}
	h := handlers.New(deps)

	idem := middleware.Idempotency(middleware.IdempotencyOptions{MaxLen: 200}, idempotencyStore{db: app.DB, ttl: cfg.IdempotencyTTL})
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP())
	smallBody := limitBody(cfg.MaxBodyBytes)

	// Public API
	api := groupWithPrefix(r, apiBase)
	{
		// Bookings
		api.POST("/bookings", smallBody, idem, rl.Handler(), h.CreateBooking)
		api.GET("/bookings/availability", h.CheckAvailability)
		api.GET("/bookings/slots", h.ListDaySlots)
		api.GET("/bookings/ws", h.StreamSlots)

		// Leads (body capped in the handler)
		api.POST("/leads", idem, rl.Handler(), h.CreateLead)

		// SMS
		api.POST("/sms", smallBody, rl.Handler(), h.SendSMS)
		api.PUT("/sms", smallBody, rl.Handler(), h.TrackSMSClick)

		for _, p := range []string{"/bookings", "/bookings/availability", "/bookings/slots", "/leads", "/sms"} {
			api.OPTIONS(p, h.Preflight)
		}
	}

	// Admin API
	admin := api.Group("/admin", middleware.AdminAuth(cfg.AdminJWTSecret))
	{
		admin.GET("/bookings", h.ListBookings)
		admin.PATCH("/bookings/:id/status", smallBody, h.UpdateBookingStatus)
	}
}

// MountUploads serves stored attachments from dir under prefix. Responses
// are sandboxed so uploaded markup can never run script on the API origin,
// and anything that is not a known media type is sent as a download.
func MountUploads(r gin.IRouter, prefix, dir string) {
	g := r.Group(prefix, func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Content-Security-Policy", "sandbox; default-src 'none'")
		h.Set("X-Content-Type-Options", "nosniff")
		if ext := strings.ToLower(path.Ext(c.Request.URL.Path)); ext == "" || ext == ".bin" {
			h.Set("Content-Type", "application/octet-stream")
			h.Set("Content-Disposition", "attachment")
		}
		c.Next()
	})
	g.Static("/", dir)
}

// limitBody caps the request body size to maxBytes using
// http.MaxBytesReader. Handlers see *http.MaxBytesError from reads past it.
func limitBody(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
