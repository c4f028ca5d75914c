// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Vault Metrics
	VaultOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchly_vault_operations_total",
			Help: "Total credential vault operations",
		},
		[]string{"operation", "result"}, // operation: commit, resolve, revoke, purge
	)

	TokensIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchly_tokens_issued_total",
			Help: "Token issuance attempts by outcome",
		},
		[]string{"result"}, // created, reused, invalid_credentials, upstream_unavailable, priming_failed, error
	)

	// Pipeline Metrics
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchly_pipeline_runs_total",
			Help: "Recommendation pipeline runs by outcome",
		},
		[]string{"content_type", "result"},
	)

	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "watchly_pipeline_duration_seconds",
			Help:    "Duration of recommendation pipeline runs",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"content_type"},
	)

	PipelineSeedFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watchly_pipeline_seed_failures_total",
			Help: "Seeds whose recommendation lookup failed",
		},
	)

	PipelineMetadataDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watchly_pipeline_metadata_dropped_total",
			Help: "Ranked items dropped because metadata could not be resolved",
		},
	)

	// Catalog Cache Metrics
	CatalogCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchly_catalog_cache_requests_total",
			Help: "Catalog cache lookups by result",
		},
		[]string{"result"}, // hit, miss
	)

	// Refresh Scheduler Metrics
	SweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchly_sweeps_total",
			Help: "Refresh sweeps by result",
		},
		[]string{"result"}, // completed, deadline, skipped, cancelled
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "watchly_sweep_duration_seconds",
			Help:    "Duration of refresh sweeps",
			Buckets: prometheus.ExponentialBuckets(1, 2, 16), // 1s .. ~9h
		},
	)

	SweepTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchly_sweep_tokens_total",
			Help: "Per-token outcomes during sweeps",
		},
		[]string{"outcome"}, // refreshed, failed, skipped, deferred, purged
	)

	SweepInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "watchly_sweep_in_progress",
			Help: "1 while a refresh sweep is running",
		},
	)

	SweepLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "watchly_sweep_last_success_timestamp",
			Help: "Unix timestamp of the last sweep that ran to completion",
		},
	)

	RefreshShared = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watchly_refresh_shared_total",
			Help: "Refresh requests that joined an in-flight run for the same token",
		},
	)

	// Upstream Metrics
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchly_upstream_requests_total",
			Help: "HTTP requests to upstream providers by status code",
		},
		[]string{"service", "status"}, // status: HTTP code or "error"
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "watchly_upstream_request_duration_seconds",
			Help:    "Duration of upstream HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	UpstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchly_upstream_retries_total",
			Help: "Retried upstream requests",
		},
		[]string{"service"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchly_api_requests_total",
			Help: "HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "watchly_api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordVaultOperation records a vault operation outcome.
func RecordVaultOperation(operation string, err error) {
	VaultOperations.WithLabelValues(operation, resultLabel(err)).Inc()
}

// RecordPipelineRun records one pipeline run for a content type.
func RecordPipelineRun(contentType, result string, duration time.Duration) {
	PipelineRuns.WithLabelValues(contentType, result).Inc()
	PipelineDuration.WithLabelValues(contentType).Observe(duration.Seconds())
}

// RecordCatalogLookup records a cache hit or miss.
func RecordCatalogLookup(hit bool) {
	if hit {
		CatalogCacheRequests.WithLabelValues("hit").Inc()
		return
	}
	CatalogCacheRequests.WithLabelValues("miss").Inc()
}

// RecordSweep records a finished sweep.
func RecordSweep(result string, duration time.Duration) {
	SweepsTotal.WithLabelValues(result).Inc()
	SweepDuration.Observe(duration.Seconds())
	if result == "completed" {
		SweepLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordUpstreamRequest records one upstream HTTP attempt. statusCode is 0
// when the request failed before a response was received.
func RecordUpstreamRequest(service string, statusCode int, duration time.Duration) {
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	UpstreamRequests.WithLabelValues(service, status).Inc()
	UpstreamDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, route string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
