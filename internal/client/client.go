package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Belphemur/bazarr-translate/internal/apperrors"
	"github.com/Belphemur/bazarr-translate/internal/config"
	"github.com/Belphemur/bazarr-translate/internal/metrics"
	"github.com/Belphemur/bazarr-translate/internal/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// apiKeyHeader carries the Bazarr API key on every request
const apiKeyHeader = "X-API-KEY"

// maxErrorBodySize bounds how much of an error response is kept for diagnostics
const maxErrorBodySize = 512

// Client defines the interface for querying the Bazarr API
type Client interface {
	// StreamSeries streams every series known to Bazarr, page by page.
	// The channel is closed when all pages have been sent or the first error occurred.
	// Errors are sent as StreamResult with a non-nil Err field.
	StreamSeries(ctx context.Context) <-chan models.StreamResult[models.Series]

	// ListEpisodes returns every episode of the given series. An unknown series yields an empty list.
	ListEpisodes(ctx context.Context, seriesID int) ([]models.Episode, error)

	// Translate asks Bazarr to machine-translate an existing subtitle of an episode.
	Translate(ctx context.Context, req models.TranslateRequest) error

	// Close releases idle connections held by the client.
	Close() error
}

// client implements the Client interface
type client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	userAgent   string
	pageSize    int
	rateLimiter *rate.Limiter
}

// NewClient creates a new client instance with proxy, retry and rate limit configuration if provided
func NewClient(cfg *config.Config) Client {
	logger := config.GetLogger()

	timeout := parseDuration(cfg.ClientTimeout, 30*time.Second, "client_timeout")

	// Set up base transport with optional proxy
	// Clone DefaultTransport to preserve all its settings (timeouts, connection pooling, HTTP/2, etc.)
	baseTransport := http.DefaultTransport.(*http.Transport).Clone()

	if cfg.ProxyConnectionString != "" {
		proxyURL, err := url.Parse(cfg.ProxyConnectionString)
		if err != nil {
			// Log error but continue without proxy
			logger.Warn().Err(err).Str("proxy", cfg.ProxyConnectionString).Msg("Invalid proxy URL, continuing without proxy")
		} else {
			baseTransport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	// compression -> per-attempt metrics -> retry
	var transport http.RoundTripper = newCompressionTransport(baseTransport)
	transport = promhttp.InstrumentRoundTripperCounter(metrics.UpstreamRequestsTotal, transport)
	transport = promhttp.InstrumentRoundTripperDuration(metrics.UpstreamRequestDuration, transport)
	transport = newRetryTransport(transport, cfg)

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		userAgent:   cfg.UserAgent,
		pageSize:    cfg.PageSize,
		rateLimiter: rate.NewLimiter(limit, 1),
	}
}

// Close releases idle connections held by the client.
func (c *client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// do performs a request against the Bazarr API and returns the response when the status is 2xx.
// The caller owns the response body.
func (c *client) do(ctx context.Context, method, path string, query url.Values) (*http.Response, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, &apperrors.ErrUpstreamStatus{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	return resp, nil
}

// getJSON performs a GET request and decodes the JSON body into out
func (c *client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &apperrors.ErrMalformedResponse{Path: path, Err: err}
	}
	return nil
}

// parseDuration parses a Go duration string, falling back to def when empty or invalid
func parseDuration(raw string, def time.Duration, key string) time.Duration {
	if raw == "" {
		return def
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		logger := config.GetLogger()
		logger.Warn().Err(err).Str(key, raw).Dur("default", def).Msg("Invalid duration, using default")
		return def
	}
	return parsed
}
