// Package notify fans intake events out to external channels (team chat,
// email, analytics, SMS, calendar, pub/sub).
//
// The Dispatcher runs one goroutine per channel task. Tasks are detached
// from the request that launched them: the caller never waits, a task's
// failure or panic is logged and counted, and no task can affect another.
package notify

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePanic   = "panic"
	OutcomeSkipped = "skipped"
)

// ErrSkipped is returned by channels that are not configured.
var ErrSkipped = errors.New("notify: channel not configured")

var notificationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Notification tasks by event, channel and outcome.",
	},
	[]string{"event", "channel", "outcome"},
)

var notificationLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "notification_duration_seconds",
		Help:    "Duration of notification tasks in seconds.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"channel"},
)

func init() {
	prometheus.MustRegister(notificationsTotal, notificationLatency)
}

// Task is one unit of fan-out work for a single channel.
type Task struct {
	Channel string
	Run     func(ctx context.Context) error
}

// Dispatcher launches tasks in the background.
type Dispatcher struct {
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher returns a Dispatcher whose tasks each get timeout (default 15s).
func NewDispatcher(timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Dispatcher{timeout: timeout}
}

// Dispatch starts every task and returns immediately. ctx only contributes
// values (trace, request id); its cancellation is ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, event string, tasks ...Task) {
	base := context.WithoutCancel(ctx)
	for _, t := range tasks {
		if t.Run == nil {
			continue
		}
		d.wg.Add(1)
		go d.run(base, event, t)
	}
}

func (d *Dispatcher) run(base context.Context, event string, t Task) {
	defer d.wg.Done()
	start := time.Now()

	ctx, cancel := context.WithTimeout(base, d.timeout)
	defer cancel()
	ctx, span := otel.Tracer("notify/Dispatcher").Start(ctx, "notify."+t.Channel,
		trace.WithAttributes(
			attribute.String("notify.event", event),
			attribute.String("notify.channel", t.Channel),
		),
	)
	defer span.End()

	outcome := OutcomeSuccess
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				outcome = OutcomePanic
				err = fmt.Errorf("panic: %v", r)
				log.Error().
					Str("event", event).
					Str("channel", t.Channel).
					Bytes("stack", debug.Stack()).
					Msg("notification task panicked")
			}
		}()
		return t.Run(ctx)
	}()
	switch {
	case errors.Is(err, ErrSkipped):
		outcome, err = OutcomeSkipped, nil
	case err != nil && outcome == OutcomeSuccess:
		outcome = OutcomeFailure
	}

	notificationsTotal.WithLabelValues(event, t.Channel, outcome).Inc()
	notificationLatency.WithLabelValues(t.Channel).Observe(time.Since(start).Seconds())

	l := log.With().
		Str("event", event).
		Str("channel", t.Channel).
		Str("outcome", outcome).
		Dur("duration", time.Since(start)).
		Logger()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.Warn().Err(err).Msg("notification failed")
		return
	}
	l.Debug().Msg("notification sent")
}

// Wait blocks until every launched task finished or ctx is done. It is
// used for graceful shutdown and tests; request handlers never call it.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
