// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/watchly/internal/logging"
	"github.com/tomtom215/watchly/internal/metrics"
)

// Sweep results for metrics.
const (
	sweepCompleted = "completed"
	sweepDeferred  = "deadline_exceeded"
	sweepCancelled = "cancelled"
)

// SweepReport summarizes one sweep.
type SweepReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Refreshed  int
	Failed     int
	Skipped    int
	// Deferred counts tokens not started because the soft deadline passed
	// or the sweep was cancelled.
	Deferred int
	Purged   int
	// ListErrors counts records ListActive could not decode.
	ListErrors int
}

// Tokens returns the number of tokens the sweep saw.
func (r SweepReport) Tokens() int {
	return r.Refreshed + r.Failed + r.Skipped + r.Deferred
}

// Sweep purges expired tokens and refreshes every active one on a bounded
// worker pool. It returns ErrSweepInProgress at once if another sweep is
// running. After the soft deadline no new token is started; running ones
// finish and the rest are counted as deferred.
//
// Steps:
//
//  1. Purge expired records and their catalogs
//  2. Page through ListActive; each token takes a worker slot
//     (MaxConcurrency) and runs RefreshToken, sharing any run already
//     in flight for it
//  3. Wait for running refreshes, then record metrics and LastSweep
//
// Parameters:
//   - ctx: Cancels the sweep; tokens not yet started are counted as deferred
//
// Returns a report of how every token ended. A failed token never aborts
// the sweep, so the error is only ErrSweepInProgress.
func (r *Refresher) Sweep(ctx context.Context) (SweepReport, error) {
	if !r.sweeping.CompareAndSwap(false, true) {
		return SweepReport{}, ErrSweepInProgress
	}
	defer r.sweeping.Store(false)
	metrics.SweepInProgress.Set(1)
	defer metrics.SweepInProgress.Set(0)

	start := time.Now()
	report := SweepReport{StartedAt: r.now()}
	var deadline time.Time
	if r.cfg.SweepDeadline > 0 {
		deadline = report.StartedAt.Add(r.cfg.SweepDeadline)
	}

	report.Purged = r.purge(ctx)

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, r.cfg.MaxConcurrency)
	)
	tally := func(fn func(*SweepReport)) {
		mu.Lock()
		fn(&report)
		mu.Unlock()
	}

	for token, err := range r.vault.ListActive(ctx) {
		if err != nil {
			r.logger.Warn().Err(err).Msg("Skipping unreadable credential record")
			tally(func(rep *SweepReport) { rep.ListErrors++ })
			continue
		}
		if ctx.Err() != nil || (!deadline.IsZero() && r.now().After(deadline)) {
			tally(func(rep *SweepReport) { rep.Deferred++ })
			continue
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			tally(func(rep *SweepReport) { rep.Deferred++ })
			continue
		}

		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			defer func() { <-sem }()

			res, err := r.RefreshToken(ctx, token)
			if err != nil {
				metrics.SweepTokens.WithLabelValues(string(OutcomeFailed)).Inc()
				r.logger.Warn().Err(err).Str("token", logging.MaskSecret(token)).Msg("Token refresh failed")
				tally(func(rep *SweepReport) { rep.Failed++ })
				return
			}
			metrics.SweepTokens.WithLabelValues(string(res.Outcome)).Inc()
			tally(func(rep *SweepReport) {
				if res.Outcome == OutcomeSkipped {
					rep.Skipped++
				} else {
					rep.Refreshed++
				}
			})
		}(token)
	}
	wg.Wait()

	report.FinishedAt = r.now()
	result := sweepCompleted
	switch {
	case ctx.Err() != nil:
		result = sweepCancelled
	case report.Deferred > 0:
		result = sweepDeferred
	}
	if report.Deferred > 0 {
		metrics.SweepTokens.WithLabelValues("deferred").Add(float64(report.Deferred))
	}
	metrics.RecordSweep(result, time.Since(start))

	r.lastMu.Lock()
	r.lastSweep = &report
	r.lastMu.Unlock()

	r.logger.Info().
		Str("result", result).
		Int("refreshed", report.Refreshed).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Int("deferred", report.Deferred).
		Int("purged", report.Purged).
		Dur("duration", time.Since(start)).
		Msg("Sweep finished")
	return report, nil
}

// LastSweep returns the report of the most recent finished sweep.
func (r *Refresher) LastSweep() (SweepReport, bool) {
	r.lastMu.RLock()
	defer r.lastMu.RUnlock()
	if r.lastSweep == nil {
		return SweepReport{}, false
	}
	return *r.lastSweep, true
}

// Sweeping reports whether a sweep is running.
func (r *Refresher) Sweeping() bool {
	return r.sweeping.Load()
}

func (r *Refresher) purge(ctx context.Context) int {
	tokens, err := r.vault.PurgeExpired(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to purge expired tokens")
	}
	for _, token := range tokens {
		if err := r.catalogs.Delete(ctx, token); err != nil {
			r.logger.Warn().Err(err).Str("token", logging.MaskSecret(token)).Msg("Failed to delete catalogs of purged token")
		}
	}
	if len(tokens) > 0 {
		metrics.SweepTokens.WithLabelValues("purged").Add(float64(len(tokens)))
	}
	return len(tokens)
}
