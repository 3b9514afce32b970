// Package reporting forwards per-episode translation failures to an error tracker.
package reporting

import (
	"fmt"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
)

// Reporter receives failures that an operator may want to retry manually
type Reporter interface {
	ReportFailure(err error, seriesID, episodeID int)
	// Flush waits until buffered reports are delivered or the timeout expires.
	Flush(timeout time.Duration) bool
}

// Options configures the Sentry reporter
type Options struct {
	DSN         string
	Environment string
	Release     string

	// BeforeSend can inspect or drop events before delivery
	BeforeSend func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event
}

// New returns a Sentry backed reporter, or a no-op reporter when no DSN is configured
func New(opts Options) (Reporter, error) {
	if opts.DSN == "" {
		return Noop(), nil
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         opts.DSN,
		Environment: opts.Environment,
		Release:     opts.Release,
		BeforeSend:  opts.BeforeSend,
	})
	if err != nil {
		return nil, fmt.Errorf("init sentry: %w", err)
	}

	return &sentryReporter{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

type sentryReporter struct {
	hub *sentry.Hub
}

func (r *sentryReporter) ReportFailure(err error, seriesID, episodeID int) {
	// Clone so concurrent workers do not share a scope
	hub := r.hub.Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("series_id", strconv.Itoa(seriesID))
		scope.SetTag("episode_id", strconv.Itoa(episodeID))
		hub.CaptureException(err)
	})
}

func (r *sentryReporter) Flush(timeout time.Duration) bool {
	return r.hub.Flush(timeout)
}

type noopReporter struct{}

// Noop returns a reporter that drops every failure
func Noop() Reporter {
	return noopReporter{}
}

func (noopReporter) ReportFailure(error, int, int) {}

func (noopReporter) Flush(time.Duration) bool { return true }
