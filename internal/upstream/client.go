// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

// Package upstream provides the HTTP transport shared by every remote provider.
//
// Each Client bundles:
//   - an http.Client with the configured timeout
//   - a token-bucket rate limiter (golang.org/x/time/rate)
//   - bounded retries with exponential backoff on transport errors, 5xx and 429
//   - a circuit breaker (sony/gobreaker) so a dead provider fails fast
//
// When retries are exhausted or the breaker is open the returned error wraps
// models.ErrUpstreamUnavailable.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/watchly/internal/config"
	"github.com/tomtom215/watchly/internal/metrics"
	"github.com/tomtom215/watchly/internal/models"
)

const (
	maxBodyBytes      = 8 << 20
	maxErrorBodyBytes = 64 << 10
	// maxRetryAfter caps how long a Retry-After header may stall a caller.
	maxRetryAfter = 30 * time.Second
)

// Options configures a Client.
type Options struct {
	// Name labels metrics, logs and errors ("stremio", "tmdb").
	Name   string
	Config config.UpstreamConfig
	// Transport defaults to a clone of http.DefaultTransport.
	Transport http.RoundTripper
	UserAgent string
}

// Client is a resilient JSON-over-HTTP client for one upstream service.
type Client struct {
	name        string
	http        *http.Client
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker[[]byte]
	maxAttempts int
	retryDelay  time.Duration
	userAgent   string
	logger      zerolog.Logger
}

// New creates a Client.
func New(opts Options, logger zerolog.Logger) *Client {
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}
	attempts := opts.Config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	burst := opts.Config.Burst
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if opts.Config.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.Config.RequestsPerSecond)
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "watchly"
	}

	log := logger.With().Str("component", "upstream").Str("service", opts.Name).Logger()
	return &Client{
		name:        opts.Name,
		http:        &http.Client{Timeout: opts.Config.Timeout, Transport: transport},
		limiter:     rate.NewLimiter(limit, burst),
		breaker:     newBreaker(opts.Name, log),
		maxAttempts: attempts,
		retryDelay:  opts.Config.RetryDelay,
		userAgent:   userAgent,
		logger:      log,
	}
}

// Name returns the service label.
func (c *Client) Name() string {
	return c.name
}

// GetJSON issues a GET and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	return c.Do(ctx, http.MethodGet, url, nil, out)
}

// PostJSON encodes in as the request body and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, url string, in, out any) error {
	return c.Do(ctx, http.MethodPost, url, in, out)
}

// Do performs a request through the limiter, retry loop and circuit breaker.
// A nil out discards the response body.
func (c *Client) Do(ctx context.Context, method, url string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("%s: encode request: %w", c.name, err)
		}
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.doWithRetry(ctx, method, url, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(c.name+"-api", "rejected").Inc()
			return fmt.Errorf("%s: %w: %w", c.name, models.ErrUpstreamUnavailable, err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(c.name+"-api", "failure").Inc()
		return err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(c.name+"-api", "success").Inc()

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.name, err)
	}
	return nil
}

// doWithRetry runs up to maxAttempts attempts. Transient failures that survive
// every attempt are wrapped with models.ErrUpstreamUnavailable.
func (c *Client) doWithRetry(ctx context.Context, method, url string, payload []byte) ([]byte, error) {
	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, contextError(ctx, err)
		}

		body, retryAfter, err := c.attempt(ctx, method, url, payload)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isClientError(err) {
			return nil, err
		}
		if attempt >= c.maxAttempts {
			return nil, fmt.Errorf("%s: %w after %d attempts: %w", c.name, models.ErrUpstreamUnavailable, attempt, err)
		}

		delay := c.backoff(attempt, retryAfter)
		metrics.UpstreamRetries.WithLabelValues(c.name).Inc()
		c.logger.Debug().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("Retrying upstream request")

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
}

// attempt performs one HTTP round trip. retryAfter is non-zero when a 429 or
// 503 response carried a usable Retry-After header.
func (c *Client) attempt(ctx context.Context, method, url string, payload []byte) ([]byte, time.Duration, error) {
	var reqBody io.Reader = http.NoBody
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: create request: %w", c.name, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordUpstreamRequest(c.name, 0, time.Since(start))
		return nil, 0, fmt.Errorf("%s: request failed: %w", c.name, err)
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.RecordUpstreamRequest(c.name, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()), &StatusError{
			Service:    c.name,
			StatusCode: resp.StatusCode,
			Body:       string(bytes.TrimSpace(snippet)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, 0, fmt.Errorf("%s: read response: %w", c.name, err)
	}
	if len(body) > maxBodyBytes {
		return nil, 0, &StatusError{Service: c.name, StatusCode: http.StatusRequestEntityTooLarge, Body: "response body too large"}
	}
	return body, 0, nil
}

// backoff returns the wait before attempt+1: retryDelay, 2x, 4x, ...
// A Retry-After hint wins when present.
func (c *Client) backoff(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return retryAfter
	}
	return c.retryDelay * time.Duration(1<<uint(attempt-1))
}

// parseRetryAfter accepts delay-seconds or an HTTP-date (RFC 9110).
func parseRetryAfter(header string, now time.Time) time.Duration {
	if header == "" {
		return 0
	}
	var d time.Duration
	if seconds, err := strconv.Atoi(header); err == nil {
		d = time.Duration(seconds) * time.Second
	} else if at, err := http.ParseTime(header); err == nil {
		d = at.Sub(now)
	}
	if d < 0 {
		return 0
	}
	if d > maxRetryAfter {
		return maxRetryAfter
	}
	return d
}

// contextError prefers the context's own error over the limiter's wording.
func contextError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
