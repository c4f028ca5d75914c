// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

/*
Package main is the entry point for the Watchly server.

Watchly is a Stremio addon that builds personalized movie and series
catalogs from each user's Stremio library and TMDB recommendations.

# Application Architecture

	RootSupervisor ("watchly")
	├── DataSupervisor ("data-layer")
	│   └── Store GC (badger value log)
	├── RefreshSupervisor ("refresh-layer")
	│   └── Refresh service (periodic catalog sweep)
	└── APISupervisor ("api-layer")
	    └── HTTP server (addon protocol, token API, /metrics)

Component initialization order:

 1. Configuration: koanf defaults, optional config.yaml, environment
 2. Logging: zerolog, slog bridge for the supervisor
 3. Store: BadgerDB on disk (or in memory with STORE_IN_MEMORY=true)
 4. Providers: Stremio and TMDB clients with retries and circuit breakers
 5. Vault, catalog cache, recommendation pipeline and refresher
 6. HTTP router and supervisor services

# Configuration

Required:

	TOKEN_SALT=<long random string>   # keys tokens and credential encryption
	TMDB_API_KEY=<key>

Common:

	BASE_URL=https://watchly.example.com
	TOKEN_TTL=720h
	CATALOG_REFRESH_INTERVAL=6h
	LOG_LEVEL=debug LOG_FORMAT=console

# Signal Handling

SIGINT and SIGTERM cancel the root context. In-flight HTTP requests get
the server shutdown timeout, running refreshes are cancelled, and the
store is closed after the tree has stopped.
*/
package main
