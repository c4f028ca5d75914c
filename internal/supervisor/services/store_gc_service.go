// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// GarbageCollector reclaims store space. Satisfied by *store.BadgerStore.
type GarbageCollector interface {
	RunGC() error
}

// StoreGCService runs value log GC on an interval.
//
//	tree.AddDataService(services.NewStoreGCService(db, cfg.Store.GCInterval, logger))
type StoreGCService struct {
	gc       GarbageCollector
	interval time.Duration
	logger   zerolog.Logger
	name     string
}

// NewStoreGCService creates the service. A non-positive interval means 10m.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewStoreGCService(gc GarbageCollector, interval time.Duration, logger zerolog.Logger) *StoreGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &StoreGCService{
		gc:       gc,
		interval: interval,
		logger:   logger.With().Str("service", "store-gc").Logger(),
		name:     "store-gc",
	}
}

// Serve implements suture.Service.
func (s *StoreGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := s.gc.RunGC(); err != nil {
				s.logger.Warn().Err(err).Msg("store GC failed")
				continue
			}
			s.logger.Debug().Dur("duration", time.Since(start)).Msg("store GC complete")
		}
	}
}

// String returns the service name for logging.
func (s *StoreGCService) String() string {
	return s.name
}
