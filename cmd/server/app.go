// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/watchly/internal/addon"
	"github.com/tomtom215/watchly/internal/api"
	"github.com/tomtom215/watchly/internal/catalog"
	"github.com/tomtom215/watchly/internal/config"
	"github.com/tomtom215/watchly/internal/recommend"
	"github.com/tomtom215/watchly/internal/refresh"
	"github.com/tomtom215/watchly/internal/store"
	"github.com/tomtom215/watchly/internal/stremio"
	"github.com/tomtom215/watchly/internal/supervisor"
	"github.com/tomtom215/watchly/internal/supervisor/services"
	"github.com/tomtom215/watchly/internal/tmdb"
	"github.com/tomtom215/watchly/internal/vault"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// app holds every long-lived component.
type app struct {
	cfg       *config.Config
	store     *store.BadgerStore
	vault     *vault.Vault
	pipeline  *recommend.Pipeline
	refresher *refresh.Refresher
	addon     *addon.Service
	handler   http.Handler
	logger    zerolog.Logger
}

// newApp wires the components. transport is passed to both provider clients
// and may be nil.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func newApp(cfg *config.Config, transport http.RoundTripper, logger zerolog.Logger) (*app, error) {
	db, err := store.Open(cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	stremioClient := stremio.New(cfg.Stremio, transport, logger)
	tmdbClient := tmdb.New(cfg.TMDB, transport, logger)

	v, err := vault.New(db, cfg.Security, stremioClient, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create vault: %w", err)
	}

	catalogs := catalog.New(db)
	pipeline := recommend.New(stremioClient, tmdbClient, cfg.Recommend, logger)
	refresher := refresh.New(v, pipeline, catalogs, cfg.Refresh, logger)
	svc := addon.NewService(v, refresher, catalogs, pipeline, logger)

	var sweeps api.SweepStatus
	if cfg.Refresh.Enabled {
		sweeps = refresher
	}
	handler := api.NewHandler(svc, sweeps, api.HandlerConfig{
		BaseURL:  cfg.Server.BaseURL,
		Manifest: api.ManifestInfo{Version: version},
	})
	router := api.NewRouter(handler, api.NewChiMiddleware(api.NewChiMiddlewareConfig(cfg.Security)))

	return &app{
		cfg:       cfg,
		store:     db,
		vault:     v,
		pipeline:  pipeline,
		refresher: refresher,
		addon:     svc,
		handler:   router.SetupChi(),
		logger:    logger,
	}, nil
}

// register adds the services to the supervisor tree.
func (a *app) register(tree *supervisor.SupervisorTree) *http.Server {
	tree.AddDataService(services.NewStoreGCService(a.store, a.cfg.Store.GCInterval, a.logger))

	if a.cfg.Refresh.Enabled {
		tree.AddRefreshService(services.NewRefreshService(a.refresher, a.cfg.Refresh, a.logger))
	} else {
		a.logger.Info().Msg("Background catalog refresh disabled (AUTO_UPDATE_CATALOGS=false)")
	}

	server := &http.Server{
		Addr:              a.cfg.Server.Addr(),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Cold catalog requests run the pipeline synchronously.
		WriteTimeout: a.cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, a.cfg.Server.ShutdownTimeout))
	return server
}

// close releases what the tree does not own. Call after the tree stopped.
func (a *app) close() {
	a.refresher.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Error closing store")
	}
}
