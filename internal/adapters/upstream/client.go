// Package upstream holds the shared HTTP plumbing for the public legislative
// data sources: pacing between sequential requests, bounded retry of rate
// limited responses, status mapping and request metrics.
package upstream

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/okian/civicrank/pkg/metrics"
)

// Default client settings.
const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	defaultBackoff    = 2 * time.Second
	maxBackoff        = 60 * time.Second
	defaultUserAgent  = "civicrank/1.0 (+https://github.com/okian/civicrank)"
)

// Config configures a Client.
type Config struct {
	BaseURL string
	// Timeout bounds a single request attempt.
	Timeout time.Duration
	// MaxRetries bounds retries of HTTP 429 responses. Other failures are not retried.
	MaxRetries int
	// Backoff is the first retry wait; later waits grow exponentially.
	Backoff time.Duration
	// Delay is the minimum gap between consecutive requests.
	Delay     time.Duration
	UserAgent string
	// Query is added to every request (e.g. api_key).
	Query map[string]string
}

// Client wraps a resty client for one named source.
type Client struct {
	source string
	http   *resty.Client
	pacer  *Pacer
}

// NewClient creates a client for source (used as the metrics label).
func NewClient(source string, cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultBackoff
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	h := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.Backoff).
		SetRetryMaxWaitTime(maxBackoff).
		AddRetryCondition(func(r *resty.Response, _ error) bool {
			return r != nil && r.StatusCode() == http.StatusTooManyRequests
		}).
		AddRetryHook(func(_ *resty.Response, _ error) {
			metrics.RecordUpstreamRetry(source)
		}).
		OnAfterResponse(func(_ *resty.Client, r *resty.Response) error {
			metrics.RecordUpstreamRequest(source, r.StatusCode(), r.Time())
			return nil
		})
	if len(cfg.Query) > 0 {
		h.SetQueryParams(cfg.Query)
	}

	return &Client{source: source, http: h, pacer: NewPacer(cfg.Delay)}
}

// Source returns the metrics label of the client.
func (c *Client) Source() string { return c.source }

// Get fetches path (relative to the base URL, or absolute) after waiting for
// the pacer. Non-2xx responses map to ErrNotFound, ErrRateLimited or ErrUpstream.
func (c *Client) Get(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	req := c.http.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	res, err := req.Get(path)
	if err != nil {
		metrics.RecordUpstreamRequest(c.source, 0, 0)
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUpstream, c.source, path, err)
	}

	switch code := res.StatusCode(); {
	case code >= 200 && code < 300:
		return res.Body(), nil
	case code == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, c.source, path)
	case code == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s %s after %d retries", ErrRateLimited, c.source, path, c.http.RetryCount)
	default:
		return nil, fmt.Errorf("%w: %s %s: status %d", ErrUpstream, c.source, path, code)
	}
}
