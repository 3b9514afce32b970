package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Translation status label values
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusSkipped = "skipped"
	StatusPlanned = "planned"
)

// Bazarr request metrics, recorded per attempt by the client transport
var (
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bazarr_requests_total",
			Help: "Total number of HTTP requests sent to Bazarr.",
		},
		[]string{"code", "method"},
	)

	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bazarr_request_duration_seconds",
			Help:    "Duration of HTTP requests sent to Bazarr.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// Translation run metrics
var (
	TranslationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bazarr_translations_total",
			Help: "Total number of episodes processed, by outcome.",
		},
		[]string{"status"},
	)

	SeriesProcessedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bazarr_series_processed_total",
			Help: "Total number of series whose episodes were listed.",
		},
	)

	LastRunDurationSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bazarr_translate_last_run_duration_seconds",
			Help: "Duration of the last translation run.",
		},
	)

	LastRunSuccessTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bazarr_translate_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last run that completed without an upstream failure.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		UpstreamRequestsTotal,
		UpstreamRequestDuration,
		TranslationsTotal,
		SeriesProcessedTotal,
		LastRunDurationSeconds,
		LastRunSuccessTimestamp,
	)
}
