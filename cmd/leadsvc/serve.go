package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-leads-backend/internal/calendar"
	"github.com/tbourn/go-leads-backend/internal/config"
	httpapi "github.com/tbourn/go-leads-backend/internal/http"
	"github.com/tbourn/go-leads-backend/internal/notify"
	"github.com/tbourn/go-leads-backend/internal/observability"
	"github.com/tbourn/go-leads-backend/internal/realtime"
	"github.com/tbourn/go-leads-backend/internal/repo"
	"github.com/tbourn/go-leads-backend/internal/services"
	"github.com/tbourn/go-leads-backend/internal/storage"
	"github.com/tbourn/go-leads-backend/internal/sysutil"
)

const idempotencyPurgeEvery = time.Hour

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer closeDB(db)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	version := sysutil.FirstNonEmpty(Version, "dev")
	otelShutdown, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}

	dispatcher := notify.NewDispatcher(cfg.Notify.TaskTimeout)
	app, closeApp, err := buildApp(ctx, cfg, db, dispatcher)
	if err != nil {
		return err
	}
	defer closeApp()

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}
	httpapi.RegisterRoutes(r, app, cfg)
	if strings.HasPrefix(cfg.Storage.PublicBaseURL, "/") {
		httpapi.MountUploads(r, cfg.Storage.PublicBaseURL, cfg.Storage.UploadDir)
	}

	go purgeIdempotency(ctx, db, idempotencyPurgeEvery)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	// In-flight notifications get the rest of the grace period.
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("notifications still running at shutdown")
	}
	if err := otelShutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	log.Info().Msg("server stopped")
	return errors.Join(errs...)
}

// buildApp wires every optional channel. A channel without credentials is
// left nil so nothing downstream holds a typed-nil interface.
func buildApp(ctx context.Context, cfg config.Config, db *gorm.DB, d *notify.Dispatcher) (httpapi.App, func(), error) {
	closers := []func(){}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	client := notify.NewHTTPClient(cfg.Notify.TaskTimeout)
	n := cfg.Notify

	slack := notify.NewSlack(n.SlackWebhookURL, client)
	analytics := notify.NewAnalytics(n.AnalyticsURL, n.AnalyticsMeasurementID, n.AnalyticsAPISecret, client)
	mailer := notify.NewMailer(n.EmailAPIURL, n.EmailAPIKey, sysutil.FirstNonEmpty(n.EmailFrom, cfg.Business.Email), client)

	notifier := &services.Notifier{
		Dispatcher: d,
		Alerts:     slack,
		Mail:       mailer,
		Analytics:  analytics,
		Business: notify.Business{
			Name:    cfg.Business.Name,
			Email:   cfg.Business.Email,
			Phone:   cfg.Business.Phone,
			Website: cfg.Business.Website,
		},
		LeadValue:    n.LeadValue,
		BookingValue: n.BookingValue,
	}
	reporter := &notify.Reporter{Dispatcher: d, Alerts: slack, Analytics: analytics}

	hub := realtime.NewHub(originChecker(cfg.CORS.AllowedOrigins))
	bridge := realtime.NewBridge(hub, nil, n.SlotsChannel)
	if n.RedisURL != "" {
		opt, err := redis.ParseURL(n.RedisURL)
		if err != nil {
			closeAll()
			return httpapi.App{}, nil, err
		}
		rdb := redis.NewClient(opt)
		closers = append(closers, func() { _ = rdb.Close() })

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unreachable; retrying in background")
		}
		cancel()

		notifier.Events = notify.NewRedisPublisher(rdb, n.EventsChannel)
		bridge = realtime.NewBridge(hub, rdb, n.SlotsChannel)
	}
	notifier.Slots = bridge
	go bridge.Run(ctx)

	gcal, err := notify.NewGoogleCalendar(ctx, n.GoogleClientID, n.GoogleClientSecret, n.GoogleRefreshToken, n.GoogleCalendarID, client)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("google calendar disabled")
	case gcal != nil:
		notifier.Calendar = gcal
	}

	disk, err := storage.NewDisk(cfg.Storage.UploadDir, cfg.Storage.PublicBaseURL, cfg.Storage.ThumbnailWidth)
	if err != nil {
		closeAll()
		return httpapi.App{}, nil, err
	}
	templates, err := services.LoadSMSTemplates(cfg.SMSTemplatesPath)
	if err != nil {
		closeAll()
		return httpapi.App{}, nil, err
	}

	catalog := services.NewCatalog(db, 0)
	if err := catalog.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("catalog preload failed")
	}

	app := httpapi.App{
		DB:        db,
		Notifier:  notifier,
		Reporter:  reporter,
		Store:     disk,
		Templates: templates,
		Invites: calendar.NewGenerator(calendar.Organizer{
			Name:  cfg.Business.Name,
			Email: cfg.Business.Email,
		}, cfg.Business.Location),
		Names: catalog,
		Hub:   hub,
	}
	if twilio := notify.NewTwilio(n.TwilioBaseURL, n.TwilioAccountSID, n.TwilioAuthToken, n.TwilioFrom, client); twilio.Enabled() {
		app.SMS = twilio
	} else {
		log.Warn().Msg("twilio not configured; SMS sends will fail softly")
	}
	return app, closeAll, nil
}

// originChecker mirrors the CORS allowlist for websocket upgrades. An empty
// list accepts any origin.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func purgeIdempotency(ctx context.Context, db *gorm.DB, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpiredIdempotency(ctx, db, now.UTC())
			if err != nil {
				log.Warn().Err(err).Msg("idempotency purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("purged", n).Msg("expired idempotency keys removed")
			}
		}
	}
}
