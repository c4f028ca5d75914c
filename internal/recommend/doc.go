// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

// Package recommend builds per-user recommendation catalogs from a Stremio
// library and TMDB item-to-item recommendations.
//
// # Pipeline
//
// One run for a content type goes through these stages:
//
//  1. Library: authenticate (unless an identity is supplied) and fetch the
//     loved and watched items.
//  2. Seeds: loved items, or loved and watched items, of the requested type,
//     newest first, capped at the seed limit.
//  3. Fan-out: recommendations per seed, bounded by an errgroup limit. A
//     failing seed is skipped; only when every seed fails does the run fail.
//  4. Merge: per-seed contributions are summed per item ("sum" scoring) or
//     weighted by seed rank ("recency" scoring, decay^rank).
//  5. Filter: watched items and the seeds themselves never appear.
//  6. Rank: score descending, then the freshest contributing seed, then
//     external id, so identical inputs always give identical output.
//  7. Metadata: the top results are resolved to display metadata; items
//     without metadata are dropped and counted.
//
// # Errors
//
// Failures are reported as *PipelineError. Match the kind with errors.Is:
//
//	snap, err := p.Generate(ctx, creds, pref, models.ContentTypeMovie)
//	switch {
//	case errors.Is(err, recommend.ErrNoSeedsAvailable):
//	    // library has no preference signal yet
//	case errors.Is(err, recommend.ErrLibraryFetchFailed):
//	case errors.Is(err, recommend.ErrUpstreamUnavailable):
//	}
//
// # Thread Safety
//
// A Pipeline holds no per-run state and is safe for concurrent use.
package recommend
