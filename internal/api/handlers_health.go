// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/watchly/internal/models"
)

// Health handles GET /health. It is a liveness check plus the outcome of
// the last background sweep; upstream providers are not contacted.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	health := models.HealthResponse{
		Status:  "healthy",
		Version: h.manifest.Version,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
	}

	if h.sweeps != nil {
		if report, ok := h.sweeps.LastSweep(); ok {
			at := report.FinishedAt
			health.LastSweepAt = &at
			health.LastSweepOK = report.Refreshed
			health.LastSweepFail = report.Failed
			if report.Refreshed == 0 && report.Failed > 0 {
				health.Status = "degraded"
			}
		}
	}

	respondSuccess(w, r, http.StatusOK, health)
}
