// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/watchly/internal/config"
	"github.com/tomtom215/watchly/internal/refresh"
)

// Sweeper runs one synchronous sweep over every active token.
// Satisfied by *refresh.Refresher.
type Sweeper interface {
	Sweep(ctx context.Context) (refresh.SweepReport, error)
}

// RefreshService schedules catalog sweeps.
type RefreshService struct {
	sweeper   Sweeper
	interval  time.Duration
	onStartup bool
	logger    zerolog.Logger
	name      string
}

// NewRefreshService creates the service. A non-positive interval means 6h.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRefreshService(sweeper Sweeper, cfg config.RefreshConfig, logger zerolog.Logger) *RefreshService {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &RefreshService{
		sweeper:   sweeper,
		interval:  interval,
		onStartup: cfg.OnStartup,
		logger:    logger.With().Str("service", "refresh").Logger(),
		name:      "refresh-service",
	}
}

// Serve implements suture.Service. The sweep runs on this goroutine, so a
// tick that fires during a long sweep is dropped by the ticker.
func (s *RefreshService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("on_startup", s.onStartup).
		Dur("interval", s.interval).
		Msg("refresh service starting")

	if s.onStartup {
		s.sweep(ctx, "startup")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("refresh service shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx, "scheduled")
		}
	}
}

func (s *RefreshService) sweep(ctx context.Context, trigger string) {
	report, err := s.sweeper.Sweep(ctx)
	switch {
	case errors.Is(err, refresh.ErrSweepInProgress):
		s.logger.Debug().Str("trigger", trigger).Msg("sweep already running, tick dropped")
	case err != nil:
		s.logger.Warn().Err(err).Str("trigger", trigger).Msg("sweep failed")
	default:
		s.logger.Debug().
			Str("trigger", trigger).
			Int("tokens", report.Tokens()).
			Msg("sweep complete")
	}
}

// String returns the service name for logging.
func (s *RefreshService) String() string {
	return s.name
}
