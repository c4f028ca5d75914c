// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

// Package refresh keeps every token's catalogs fresh.
//
// A Refresher recomputes the catalogs of one token (RefreshToken), primes a
// token being issued (Prime, Discard), and walks every active token on a
// bounded worker pool (Sweep). Runs for the same token are collapsed with
// singleflight, and the flight table only holds tokens with a run in progress.
//
// Sweep is synchronous; the periodic schedule lives in
// supervisor/services.RefreshService.
package refresh
