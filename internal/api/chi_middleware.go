// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/watchly/internal/config"
	"github.com/tomtom215/watchly/internal/logging"
	"github.com/tomtom215/watchly/internal/metrics"
)

// ChiMiddlewareConfig holds configuration for the Chi middleware factories.
type ChiMiddlewareConfig struct {
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	CORSMaxAge         int // seconds

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool

	// IssueRateLimit applies per IP to token issuance, which logs into Stremio.
	IssueRateLimit RateLimitConfig
}

// RateLimitConfig defines rate limit parameters for one route group.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// DefaultChiMiddlewareConfig returns the defaults. Stremio clients fetch
// manifests and catalogs cross-origin, so CORS is open unless configured.
func DefaultChiMiddlewareConfig() *ChiMiddlewareConfig {
	return &ChiMiddlewareConfig{
		CORSAllowedOrigins: []string{"*"},
		CORSAllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		CORSAllowedHeaders: []string{"Content-Type", "Accept", "X-Request-ID"},
		CORSMaxAge:         86400,

		RateLimitRequests: 60,
		RateLimitWindow:   time.Minute,
		IssueRateLimit:    RateLimitConfig{Requests: 5, Window: time.Minute},
	}
}

// NewChiMiddlewareConfig maps the security config onto the middleware config.
func NewChiMiddlewareConfig(cfg config.SecurityConfig) *ChiMiddlewareConfig {
	mw := DefaultChiMiddlewareConfig()
	if len(cfg.CORSOrigins) > 0 {
		mw.CORSAllowedOrigins = cfg.CORSOrigins
	}
	if cfg.RateLimitReqs > 0 {
		mw.RateLimitRequests = cfg.RateLimitReqs
	}
	if cfg.RateLimitWindow > 0 {
		mw.RateLimitWindow = cfg.RateLimitWindow
		mw.IssueRateLimit.Window = cfg.RateLimitWindow
	}
	if cfg.IssueRateLimitReqs > 0 {
		mw.IssueRateLimit.Requests = cfg.IssueRateLimitReqs
	}
	mw.RateLimitDisabled = cfg.RateLimitDisabled
	return mw
}

// ChiMiddleware provides Chi-compatible middleware factories.
type ChiMiddleware struct {
	config *ChiMiddlewareConfig
	cors   func(http.Handler) http.Handler
}

// NewChiMiddleware creates the middleware factory. A nil config uses the defaults.
func NewChiMiddleware(cfg *ChiMiddlewareConfig) *ChiMiddleware {
	if cfg == nil {
		cfg = DefaultChiMiddlewareConfig()
	}
	return &ChiMiddleware{
		config: cfg,
		cors: cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: cfg.CORSAllowedMethods,
			AllowedHeaders: cfg.CORSAllowedHeaders,
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         cfg.CORSMaxAge,
		}),
	}
}

// CORS returns the go-chi/cors handler.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit is the default per-IP limit for every route group.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	return m.RateLimitCustom(RateLimitConfig{Requests: m.config.RateLimitRequests, Window: m.config.RateLimitWindow})
}

// RateLimitIssue is the strict limit in front of token issuance.
func (m *ChiMiddleware) RateLimitIssue() func(http.Handler) http.Handler {
	return m.RateLimitCustom(m.config.IssueRateLimit)
}

// RateLimitCustom returns a per-IP limiter, or a no-op when rate limiting is disabled.
func (m *ChiMiddleware) RateLimitCustom(limit RateLimitConfig) func(http.Handler) http.Handler {
	if m.config.RateLimitDisabled || limit.Requests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		limit.Requests,
		limit.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			respondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests, slow down", nil)
		}),
	)
}

// RequestIDWithLogging accepts an upstream X-Request-ID or generates one,
// echoes it back and attaches it to the request context for logging.Ctx.
func RequestIDWithLogging() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" || len(requestID) > 128 {
				requestID = logging.GenerateRequestID()
			}
			w.Header().Set("X-Request-ID", requestID)
			ctx := logging.ContextWithRequestID(r.Context(), requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenLogContext tags the request logger with the masked {token} URL
// parameter, so logging.Ctx calls in handlers carry it without repeating it.
func TokenLogContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := chi.URLParam(r, "token"); token != "" {
			logger := logging.LoggerFromContext(r.Context()).With().
				Str("token", logging.MaskSecret(token)).
				Logger()
			r = r.WithContext(logging.ContextWithLogger(r.Context(), logger))
		}
		next.ServeHTTP(w, r)
	})
}

// PrometheusMetrics records request counts and latency per route pattern.
// The pattern, not the path, is the label so tokens never reach Prometheus.
func PrometheusMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		metrics.RecordAPIRequest(r.Method, route, ww.statusCode, time.Since(start))
	})
}

// APISecurityHeaders adds the headers every JSON response carries.
func APISecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Referrer-Policy", "no-referrer")
			if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// statusResponseWriter captures the status code.
type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
