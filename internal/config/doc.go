// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

/*
Package config provides centralized configuration management for Watchly.

Configuration is layered with Koanf v2: built-in defaults, then an optional
YAML file, then environment variables. Only environment variables listed in
envMappings are read.

# Required Settings

  - TOKEN_SALT: secret used to derive tokens and encrypt stored credentials.
    Rotating it invalidates every issued token.
  - TMDB_API_KEY: TMDB v3 API key.

# Common Settings

  - TOKEN_TTL: token lifetime (default 0s, never expire)
  - TOKEN_REFRESH_ON_REUSE: push expiry forward on re-issuance (default false)
  - AUTO_UPDATE_CATALOGS: enable the background refresh (default true)
  - CATALOG_REFRESH_INTERVAL: sweep interval (default 6h, minimum 1m)
  - RECOMMENDATION_SOURCE_ITEMS_LIMIT: seeds per catalog (default 10)
  - STORE_PATH / STORE_IN_MEMORY: BadgerDB location
  - LOG_LEVEL / LOG_FORMAT

# Example config.yaml

	security:
	  token_salt: "a-long-random-string"
	  token_ttl: 720h
	tmdb:
	  api_key: "..."
	refresh:
	  interval: 6h
	  max_concurrency: 4
*/
package config
