// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

/*
Package services provides suture.Service wrappers for Watchly components.

Each wrapper turns a component's lifecycle into suture's
Serve(ctx context.Context) error and names itself through fmt.Stringer.

# Available Services

HTTP Server (HTTPServerService):
  - Runs *http.Server and shuts it down gracefully on cancellation

Refresh (RefreshService):
  - Sweeps on startup when refresh.on_startup is set
  - Sweeps on every refresh.interval tick; ticks that arrive while a sweep
    is running are dropped, never queued

Store GC (StoreGCService):
  - Runs badger value log GC every store.gc_interval

Returning a non-nil error from Serve makes the supervisor restart the
service with backoff. Per-sweep and per-GC failures are logged and do not
return.
*/
package services
