// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

/*
Package metrics provides Prometheus metrics for Watchly.

Collectors are registered with the default registry through promauto and
exposed at GET /metrics:

	curl http://localhost:8000/metrics

# Available Metrics

Vault:
  - watchly_vault_operations_total{operation, result}
  - watchly_tokens_issued_total{result}

Pipeline:
  - watchly_pipeline_runs_total{content_type, result}
  - watchly_pipeline_duration_seconds{content_type}
  - watchly_pipeline_seed_failures_total
  - watchly_pipeline_metadata_dropped_total

Catalog cache:
  - watchly_catalog_cache_requests_total{result}

Refresh scheduler:
  - watchly_sweeps_total{result}
  - watchly_sweep_duration_seconds
  - watchly_sweep_tokens_total{outcome}
  - watchly_sweep_in_progress
  - watchly_refresh_shared_total

Upstream providers:
  - watchly_upstream_requests_total{service, status}
  - watchly_upstream_request_duration_seconds{service}
  - watchly_upstream_retries_total{service}
  - circuit_breaker_state{name}
  - circuit_breaker_requests_total{name, result}
  - circuit_breaker_state_transitions_total{name, from_state, to_state}

HTTP:
  - watchly_api_requests_total{method, route, status}
  - watchly_api_request_duration_seconds{method, route}
*/
package metrics
