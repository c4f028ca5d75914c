// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package models

import (
	"time"
)

// APIResponse is the envelope used by every non-Stremio JSON endpoint
// (token issuance, revocation, refresh, health).
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": {"token": "3f9a...", "manifestUrl": "https://host/3f9a.../manifest.json"},
//	  "metadata": {"timestamp": "2026-01-28T12:00:00Z"}
//	}
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {"code": "INVALID_CREDENTIALS", "message": "Stremio rejected the credentials"},
//	  "metadata": {"timestamp": "2026-01-28T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data,omitempty"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response bookkeeping.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// IssueTokenRequest is the body of POST /api/tokens.
// Either AuthKey or the Username/Password pair must be present.
type IssueTokenRequest struct {
	Username       string `json:"username" validate:"required_with=Password,max=320"`
	Password       string `json:"password" validate:"required_with=Username,max=1024"`
	AuthKey        string `json:"authKey" validate:"required_without=Username,max=512"`
	IncludeWatched bool   `json:"includeWatched"`
}

// IssueTokenResponse is returned after a successful issuance.
type IssueTokenResponse struct {
	Token            string `json:"token"`
	ManifestURL      string `json:"manifestUrl"`
	Created          bool   `json:"created"`
	ExpiresInSeconds int64  `json:"expiresInSeconds,omitempty"`
}

// RefreshResponse acknowledges a manual refresh.
type RefreshResponse struct {
	Outcome  string `json:"outcome"`
	Catalogs int    `json:"catalogs"`
	// Shared is true when the request joined a refresh already running.
	Shared bool `json:"shared"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status        string     `json:"status"`
	Version       string     `json:"version"`
	Uptime        string     `json:"uptime"`
	LastSweepAt   *time.Time `json:"last_sweep_at,omitempty"`
	LastSweepOK   int        `json:"last_sweep_refreshed"`
	LastSweepFail int        `json:"last_sweep_failed"`
}
