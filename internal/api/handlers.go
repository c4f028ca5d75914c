// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package api

import (
	"context"
	"time"

	"github.com/tomtom215/watchly/internal/addon"
	"github.com/tomtom215/watchly/internal/models"
	"github.com/tomtom215/watchly/internal/refresh"
)

// AddonService is the inbound surface the handlers adapt to HTTP.
// Satisfied by *addon.Service.
type AddonService interface {
	IssueToken(ctx context.Context, creds models.Credentials, pref models.Preference) (addon.IssuedToken, error)
	GetCatalog(ctx context.Context, token string, contentType models.ContentType) (*models.CatalogSnapshot, error)
	ForceRefresh(ctx context.Context, token string) (refresh.Result, error)
	RevokeToken(ctx context.Context, token string) error
	Similar(ctx context.Context, token, externalID string, contentType models.ContentType) ([]models.RecommendationItem, error)
	ManifestCatalogs(ctx context.Context, token string) ([]addon.SeedCatalog, error)
}

// SweepStatus reports the last background sweep. Satisfied by *refresh.Refresher.
type SweepStatus interface {
	LastSweep() (refresh.SweepReport, bool)
	Sweeping() bool
}

// HandlerConfig carries the settings handlers need from the application config.
type HandlerConfig struct {
	// BaseURL overrides the origin used in manifest URLs.
	BaseURL  string
	Manifest ManifestInfo
	// CatalogMaxAge is the Cache-Control max-age on catalog responses.
	CatalogMaxAge time.Duration
	// ManifestMaxAge is the Cache-Control max-age on manifests.
	ManifestMaxAge time.Duration
}

// Handler contains dependencies for the API handlers:
//   - handlers_tokens.go: issuance, revocation and manual refresh
//   - handlers_stremio.go: manifest and catalogs
//   - handlers_health.go: health
type Handler struct {
	addon     AddonService
	sweeps    SweepStatus
	cfg       HandlerConfig
	manifest  Manifest
	startTime time.Time
}

// NewHandler creates the API handler. sweeps may be nil when the
// background refresh is disabled.
func NewHandler(svc AddonService, sweeps SweepStatus, cfg HandlerConfig) *Handler {
	if cfg.Manifest.ID == "" {
		cfg.Manifest.ID = "com.watchly"
	}
	if cfg.Manifest.Name == "" {
		cfg.Manifest.Name = "Watchly"
	}
	if cfg.Manifest.Version == "" {
		cfg.Manifest.Version = "dev"
	}
	if cfg.CatalogMaxAge == 0 {
		cfg.CatalogMaxAge = time.Hour
	}
	if cfg.ManifestMaxAge == 0 {
		cfg.ManifestMaxAge = 24 * time.Hour
	}
	return &Handler{
		addon:     svc,
		sweeps:    sweeps,
		cfg:       cfg,
		manifest:  buildManifest(cfg.Manifest),
		startTime: time.Now(),
	}
}
