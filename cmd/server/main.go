// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/watchly/internal/config"
	"github.com/tomtom215/watchly/internal/logging"
	"github.com/tomtom215/watchly/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logger := logging.Logger()

	logger.Info().
		Str("version", version).
		Str("addr", cfg.Server.Addr()).
		Str("base_url", cfg.Server.BaseURL).
		Bool("store_in_memory", cfg.Store.InMemory).
		Bool("refresh_enabled", cfg.Refresh.Enabled).
		Dur("refresh_interval", cfg.Refresh.Interval).
		Dur("token_ttl", cfg.Security.TokenTTL).
		Msg("Starting Watchly")

	application, err := newApp(cfg, nil, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize")
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		application.close()
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	server := application.register(tree)
	logger.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	failed := false
	errCh := tree.ServeBackground(ctx)
	select {
	case <-ctx.Done():
		logger.Info().Msg("Shutdown signal received, stopping services")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("Supervisor tree stopped unexpectedly")
			failed = true
		}
	}
	stop()
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logger.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	application.close()
	logger.Info().Msg("Watchly stopped")
	if failed {
		os.Exit(1)
	}
}
