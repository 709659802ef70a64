// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, storage, booking rules, notification providers and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // BUSINESS_TIMEZONE must resolve on minimal images
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// BusinessConfig is the identity used as calendar organizer, email sender
// and in outbound copy. Slot times are interpreted in Location.
type BusinessConfig struct {
	Name     string
	Email    string
	Phone    string
	Website  string
	Timezone string
	Location *time.Location
}

// BookingConfig controls slot granularity and the bookable day window.
type BookingConfig struct {
	SlotMinutes int    // BOOKING_SLOT_MINUTES
	Open        string // BOOKING_OPEN, HH:MM
	Close       string // BOOKING_CLOSE, HH:MM (exclusive)
}

// NotifyConfig configures every downstream notification channel. A channel
// with an empty endpoint or credential is treated as disabled.
type NotifyConfig struct {
	TaskTimeout time.Duration

	SlackWebhookURL string

	EmailAPIURL string
	EmailAPIKey string
	EmailFrom   string

	AnalyticsURL           string
	AnalyticsMeasurementID string
	AnalyticsAPISecret     string
	LeadValue              float64
	BookingValue           float64

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
	TwilioBaseURL    string

	GoogleCalendarID   string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRefreshToken string

	RedisURL      string
	EventsChannel string
	SlotsChannel  string
}

// StorageConfig configures attachment persistence.
type StorageConfig struct {
	UploadDir      string
	PublicBaseURL  string
	MaxAttachments int
	ThumbnailWidth int
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	ShutdownTimeout   time.Duration // grace period for server + dispatcher drain
	MaxHeaderBytes    int           // bytes
	MaxBodyBytes      int64         // default JSON body cap
	MaxLeadBodyBytes  int64         // lead intake carries inline attachments
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Database
	DBDriver string // sqlite|postgres
	DBPath   string // SQLite path
	DBDSN    string // Postgres DSN

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS           CORSConfig
	Security       SecurityConfig
	TrustedProxies []string // IPs/CIDRs allowed to set X-Forwarded-For; empty trusts none

	// Admin endpoints (bearer JWT, HS256)
	AdminJWTSecret string

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Domain
	Business         BusinessConfig
	Booking          BookingConfig
	Notify           NotifyConfig
	Storage          StorageConfig
	SMSTemplatesPath string

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   getdur("SHUTDOWN_TIMEOUT", 20*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		MaxBodyBytes:      int64(getint("MAX_BODY_BYTES", 1<<20)),
		MaxLeadBodyBytes:  int64(getint("MAX_LEAD_BODY_BYTES", 25<<20)),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Database
		DBDriver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
		DBPath:   getenv("DB_PATH", "leads.db"),
		DBDSN:    getenv("DATABASE_URL", ""),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 2.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},
		TrustedProxies: splitCSV(getenv("TRUSTED_PROXIES", "")),

		AdminJWTSecret: getenv("ADMIN_JWT_SECRET", ""),

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		Business: BusinessConfig{
			Name:     getenv("BUSINESS_NAME", "Summit Construction"),
			Email:    getenv("BUSINESS_EMAIL", "appointments@example.com"),
			Phone:    getenv("BUSINESS_PHONE", ""),
			Website:  getenv("BUSINESS_WEBSITE", ""),
			Timezone: getenv("BUSINESS_TIMEZONE", "America/Denver"),
		},
		Booking: BookingConfig{
			SlotMinutes: getint("BOOKING_SLOT_MINUTES", 30),
			Open:        getenv("BOOKING_OPEN", "08:00"),
			Close:       getenv("BOOKING_CLOSE", "17:00"),
		},
		Notify: NotifyConfig{
			TaskTimeout:            getdur("NOTIFY_TASK_TIMEOUT", 15*time.Second),
			SlackWebhookURL:        getenv("SLACK_WEBHOOK_URL", ""),
			EmailAPIURL:            getenv("EMAIL_API_URL", "https://api.resend.com/emails"),
			EmailAPIKey:            getenv("EMAIL_API_KEY", ""),
			EmailFrom:              getenv("EMAIL_FROM", ""),
			AnalyticsURL:           getenv("ANALYTICS_URL", "https://www.google-analytics.com/mp/collect"),
			AnalyticsMeasurementID: getenv("ANALYTICS_MEASUREMENT_ID", ""),
			AnalyticsAPISecret:     getenv("ANALYTICS_API_SECRET", ""),
			LeadValue:              getfloat("ANALYTICS_LEAD_VALUE", 50),
			BookingValue:           getfloat("ANALYTICS_BOOKING_VALUE", 100),
			TwilioAccountSID:       getenv("TWILIO_ACCOUNT_SID", ""),
			TwilioAuthToken:        getenv("TWILIO_AUTH_TOKEN", ""),
			TwilioFrom:             getenv("TWILIO_FROM_NUMBER", ""),
			TwilioBaseURL:          getenv("TWILIO_BASE_URL", "https://api.twilio.com"),
			GoogleCalendarID:       getenv("GOOGLE_CALENDAR_ID", ""),
			GoogleClientID:         getenv("GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret:     getenv("GOOGLE_CLIENT_SECRET", ""),
			GoogleRefreshToken:     getenv("GOOGLE_REFRESH_TOKEN", ""),
			RedisURL:               getenv("REDIS_URL", ""),
			EventsChannel:          getenv("REDIS_EVENTS_CHANNEL", "intake-events"),
			SlotsChannel:           getenv("REDIS_SLOTS_CHANNEL", "slot-updates"),
		},
		Storage: StorageConfig{
			UploadDir:      getenv("UPLOAD_DIR", "uploads"),
			PublicBaseURL:  strings.TrimRight(getenv("UPLOAD_PUBLIC_BASE_URL", "/uploads"), "/"),
			MaxAttachments: getint("MAX_ATTACHMENTS", 10),
			ThumbnailWidth: getint("THUMBNAIL_WIDTH", 480),
		},
		SMSTemplatesPath: getenv("SMS_TEMPLATES_PATH", ""),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-leads-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DBDriver == "postgresql" {
		cfg.DBDriver = "postgres"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 || cfg.ShutdownTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.MaxBodyBytes <= 0 || cfg.MaxLeadBodyBytes <= 0 {
		return cfg, errors.New("body limits must be > 0")
	}
	switch cfg.DBDriver {
	case "sqlite":
		if strings.TrimSpace(cfg.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DBDSN) == "" {
			return cfg, errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be sqlite or postgres")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	loc, err := time.LoadLocation(cfg.Business.Timezone)
	if err != nil {
		return cfg, fmt.Errorf("BUSINESS_TIMEZONE: %w", err)
	}
	cfg.Business.Location = loc

	if cfg.Booking.SlotMinutes <= 0 || 60%cfg.Booking.SlotMinutes != 0 {
		return cfg, errors.New("BOOKING_SLOT_MINUTES must divide 60")
	}
	open, err := time.Parse("15:04", cfg.Booking.Open)
	if err != nil {
		return cfg, errors.New("BOOKING_OPEN must be HH:MM")
	}
	closing, err := time.Parse("15:04", cfg.Booking.Close)
	if err != nil {
		return cfg, errors.New("BOOKING_CLOSE must be HH:MM")
	}
	if !closing.After(open) {
		return cfg, errors.New("BOOKING_CLOSE must be after BOOKING_OPEN")
	}

	if cfg.Notify.TaskTimeout <= 0 {
		return cfg, errors.New("NOTIFY_TASK_TIMEOUT must be > 0")
	}
	if cfg.Notify.LeadValue < 0 || cfg.Notify.BookingValue < 0 {
		return cfg, errors.New("analytics values must be >= 0")
	}
	if cfg.Storage.MaxAttachments < 0 {
		return cfg, errors.New("MAX_ATTACHMENTS must be >= 0")
	}
	if strings.TrimSpace(cfg.Storage.UploadDir) == "" {
		return cfg, errors.New("UPLOAD_DIR must not be empty")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
