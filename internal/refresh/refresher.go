// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package refresh

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/watchly/internal/config"
	"github.com/tomtom215/watchly/internal/logging"
	"github.com/tomtom215/watchly/internal/metrics"
	"github.com/tomtom215/watchly/internal/models"
	"github.com/tomtom215/watchly/internal/recommend"
	"github.com/tomtom215/watchly/internal/vault"
)

// ErrSweepInProgress is returned by Sweep when another sweep is running.
var ErrSweepInProgress = errors.New("sweep already in progress")

// CredentialSource is the subset of the vault the refresher needs.
type CredentialSource interface {
	Resolve(ctx context.Context, token string) (*models.CredentialRecord, error)
	Unseal(rec *models.CredentialRecord) (models.Credentials, error)
	ListActive(ctx context.Context) iter.Seq2[string, error]
	PurgeExpired(ctx context.Context) ([]string, error)
}

// Generator runs the recommendation pipeline.
type Generator interface {
	GenerateAll(ctx context.Context, creds models.Credentials, pref models.Preference, types []models.ContentType) ([]recommend.Result, error)
	GenerateForIdentity(ctx context.Context, identity models.Identity, pref models.Preference, types []models.ContentType) ([]recommend.Result, error)
}

// SnapshotStore is where computed catalogs go.
type SnapshotStore interface {
	Put(ctx context.Context, snap *models.CatalogSnapshot) error
	Delete(ctx context.Context, token string) error
}

// Outcome is the result class of one token refresh.
type Outcome string

const (
	OutcomeRefreshed Outcome = "refreshed"
	OutcomeFailed    Outcome = "failed"
	// OutcomeSkipped means the token was revoked or expired before it ran.
	OutcomeSkipped Outcome = "skipped"
)

// Result describes one token refresh.
type Result struct {
	Token   string
	Outcome Outcome
	// Snapshots is the number of catalogs written.
	Snapshots int
	// Shared is true when the run was joined by another caller.
	Shared bool
}

// Refresher recomputes catalogs for tokens, one flight per token at a time.
type Refresher struct {
	vault    CredentialSource
	pipeline Generator
	catalogs SnapshotStore
	cfg      config.RefreshConfig
	now      func() time.Time
	logger   zerolog.Logger

	flights singleflight.Group

	// Runs execute under base, not the caller's context, so a caller that
	// stops waiting does not cancel work another caller joined.
	base   context.Context
	cancel context.CancelFunc

	sweeping  atomic.Bool
	lastMu    sync.RWMutex
	lastSweep *SweepReport
}

// Option customizes a Refresher.
type Option func(*Refresher)

// WithClock overrides the clock used for sweep deadlines.
func WithClock(now func() time.Time) Option {
	return func(r *Refresher) { r.now = now }
}

// New creates a Refresher. Close releases in-flight runs.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(source CredentialSource, pipeline Generator, catalogs SnapshotStore, cfg config.RefreshConfig, logger zerolog.Logger, opts ...Option) *Refresher {
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}
	if cfg.TokenTimeout <= 0 {
		cfg.TokenTimeout = 2 * time.Minute
	}
	base, cancel := context.WithCancel(context.Background())
	r := &Refresher{
		vault:    source,
		pipeline: pipeline,
		catalogs: catalogs,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger.With().Str("component", "refresh").Logger(),
		base:     base,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Close cancels every in-flight run.
func (r *Refresher) Close() {
	r.cancel()
}

// RefreshToken recomputes every catalog of a token. Concurrent calls for
// the same token share one run. If ctx ends first the caller stops waiting
// but the run continues for the others.
//
// Revoked and expired tokens return OutcomeSkipped with a nil error. A
// library without seeds stores empty catalogs. Any other pipeline failure
// leaves the previous catalogs in place and is returned.
func (r *Refresher) RefreshToken(ctx context.Context, token string) (Result, error) {
	return r.join(ctx, "refresh:"+token, token, func(runCtx context.Context) (Result, error) {
		return r.refresh(runCtx, token)
	})
}

// Prime builds the first catalogs of a token that is not committed yet.
// It fails unless every content type produced a catalog or had no seeds.
// It shares flights with concurrent Prime calls for the same token.
func (r *Refresher) Prime(ctx context.Context, token string, identity models.Identity, pref models.Preference) error {
	_, err := r.join(ctx, "prime:"+token, token, func(runCtx context.Context) (Result, error) {
		results, err := r.pipeline.GenerateForIdentity(runCtx, identity, pref, models.AllContentTypes)
		if err != nil {
			return Result{Token: token, Outcome: OutcomeFailed}, err
		}
		written, err := r.store(runCtx, token, results)
		if err != nil {
			return Result{Token: token, Outcome: OutcomeFailed, Snapshots: written}, err
		}
		return Result{Token: token, Outcome: OutcomeRefreshed, Snapshots: written}, nil
	})
	return err
}

// Discard removes every catalog stored for token.
func (r *Refresher) Discard(ctx context.Context, token string) error {
	return r.catalogs.Delete(ctx, token)
}

func (r *Refresher) join(ctx context.Context, key, token string, run func(context.Context) (Result, error)) (Result, error) {
	ch := r.flights.DoChan(key, func() (any, error) {
		runCtx, cancel := context.WithTimeout(r.base, r.cfg.TokenTimeout)
		defer cancel()
		return run(runCtx)
	})

	select {
	case res := <-ch:
		result, _ := res.Val.(Result)
		result.Shared = res.Shared
		if res.Shared {
			metrics.RefreshShared.Inc()
		}
		return result, res.Err
	case <-ctx.Done():
		return Result{Token: token, Outcome: OutcomeFailed}, ctx.Err()
	}
}

func (r *Refresher) refresh(ctx context.Context, token string) (Result, error) {
	log := r.logger.With().Str("token", logging.MaskSecret(token)).Logger()
	result := Result{Token: token, Outcome: OutcomeFailed}

	rec, err := r.vault.Resolve(ctx, token)
	switch {
	case errors.Is(err, vault.ErrNotFound):
		result.Outcome = OutcomeSkipped
		return result, nil
	case errors.Is(err, vault.ErrExpired):
		if delErr := r.catalogs.Delete(ctx, token); delErr != nil {
			log.Warn().Err(delErr).Msg("Failed to delete catalogs of expired token")
		}
		result.Outcome = OutcomeSkipped
		return result, nil
	case err != nil:
		return result, fmt.Errorf("resolve token: %w", err)
	}

	creds, err := r.vault.Unseal(rec)
	if err != nil {
		return result, fmt.Errorf("unseal credentials: %w", err)
	}

	results, err := r.pipeline.GenerateAll(ctx, creds, rec.Preference, models.AllContentTypes)
	if err != nil {
		return result, err
	}
	result.Snapshots, err = r.store(ctx, token, results)
	if err != nil {
		return result, err
	}

	result.Outcome = OutcomeRefreshed
	log.Debug().Int("catalogs", result.Snapshots).Msg("Token refreshed")
	return result, nil
}

// store writes the successful results. A result without seeds is stored as
// an empty catalog. The first other failure is returned after every other
// result has been written.
func (r *Refresher) store(ctx context.Context, token string, results []recommend.Result) (int, error) {
	var firstErr error
	written := 0
	for _, res := range results {
		snap := res.Snapshot
		switch {
		case res.Err == nil:
		case errors.Is(res.Err, recommend.ErrNoSeedsAvailable):
			snap = &models.CatalogSnapshot{
				ContentType: res.ContentType,
				Items:       []models.RecommendationItem{},
				ComputedAt:  r.now().UTC(),
			}
		default:
			if firstErr == nil {
				firstErr = res.Err
			}
			continue
		}

		snap.Token = token
		if err := r.catalogs.Put(ctx, snap); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("store %s catalog: %w", res.ContentType, err)
			}
			continue
		}
		written++
	}
	return written, firstErr
}
