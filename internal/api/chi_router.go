// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router binds the handlers to Chi routes.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil middleware factory uses the defaults.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: mw}
}

// SetupChi configures every HTTP route.
//
//	GET    /health
//	GET    /metrics
//	POST   /api/tokens
//	DELETE /api/tokens/{token}
//	GET    /manifest.json
//	GET    /{token}/manifest.json
//	GET    /{token}/catalog/{type}/{id}.json
//	POST   /{token}/refresh
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered
	r.Use(PrometheusMetrics)
	r.Use(APISecurityHeaders())

	r.Get("/health", router.handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/tokens", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.With(router.chiMiddleware.RateLimitIssue()).Post("/", router.handler.IssueToken)
		r.Delete("/{token}", router.handler.RevokeToken)
	})

	r.Get("/manifest.json", router.handler.Manifest)

	r.Route("/{token}", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(TokenLogContext)
		r.Get("/manifest.json", router.handler.Manifest)
		r.Get("/catalog/{type}/{file}", router.handler.Catalog)
		r.With(router.chiMiddleware.RateLimitIssue()).Post("/refresh", router.handler.Refresh)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	return r
}
