package client

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Belphemur/bazarr-translate/internal/config"
	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/failsafehttp"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// newRetryTransport wraps next with a retry policy for transport errors, 429 and 5xx responses.
// Translate actions are safe to repeat, so every method is retried.
func newRetryTransport(next http.RoundTripper, cfg *config.Config) http.RoundTripper {
	if cfg.Retry.MaxRetries <= 0 {
		return next
	}
	return failsafehttp.NewRoundTripper(next, newRetryPolicy(cfg))
}

func newRetryPolicy(cfg *config.Config) retrypolicy.RetryPolicy[*http.Response] {
	delay := parseDuration(cfg.Retry.Delay, time.Second, "retry.delay")
	maxDelay := parseDuration(cfg.Retry.MaxDelay, 10*time.Second, "retry.max_delay")
	if maxDelay <= delay {
		maxDelay = delay * 2
	}

	return retrypolicy.NewBuilder[*http.Response]().
		HandleIf(shouldRetry).
		WithBackoff(delay, maxDelay).
		WithMaxRetries(cfg.Retry.MaxRetries).
		ReturnLastFailure().
		OnRetry(func(e failsafe.ExecutionEvent[*http.Response]) {
			logger := config.GetLogger()
			event := logger.Warn().Int("attempt", e.Attempts())
			if resp := e.LastResult(); resp != nil {
				event = event.Int("status", resp.StatusCode)
			}
			event.Err(e.LastError()).Msg("Retrying Bazarr request")
		}).
		Build()
}

// shouldRetry reports whether a response or transport error is worth another attempt
func shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled)
	}
	if resp == nil {
		return false
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError
}
