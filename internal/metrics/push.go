package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends every registered metric to a Prometheus Pushgateway under the given job.
// A translation run is a short-lived batch job, so its metrics cannot be scraped.
func Push(ctx context.Context, pushURL, job string) error {
	return PushFrom(ctx, prometheus.DefaultGatherer, pushURL, job)
}

// PushFrom pushes the metrics of g to a Pushgateway, replacing the previous push of the job.
func PushFrom(ctx context.Context, g prometheus.Gatherer, pushURL, job string) error {
	if pushURL == "" {
		return nil
	}
	if job == "" {
		job = "bazarr_translate"
	}
	if err := push.New(pushURL, job).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", pushURL, err)
	}
	return nil
}
