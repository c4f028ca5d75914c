// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

/*
Package api serves the Stremio addon protocol and the token management API
over HTTP using the Chi router.

# Routes

	GET    /health                            liveness and last sweep
	GET    /metrics                           Prometheus exposition
	POST   /api/tokens                        issue a token (strict rate limit)
	DELETE /api/tokens/{token}                revoke a token
	GET    /manifest.json                     addon manifest
	GET    /{token}/manifest.json             addon manifest for an installed token
	GET    /{token}/catalog/{type}/{id}.json  catalog (watchly.rec or an IMDb id)
	POST   /{token}/refresh                   recompute catalogs now

Stremio protocol documents (manifest, catalogs) are returned bare with a
public Cache-Control. Everything else uses the models.APIResponse envelope
and is never cached.

# Error Mapping

	invalid credentials          400 INVALID_CREDENTIALS
	unknown or revoked token     404 TOKEN_NOT_FOUND
	expired token                410 TOKEN_EXPIRED
	Stremio or TMDB unreachable  502
	library without seeds        200 {"metas": []}

Error details are logged with the request id and never sent to the client.

# Middleware

Request ids (X-Request-ID, generated with google/uuid when absent), panic
recovery, go-chi/cors, per-IP go-chi/httprate limits and Prometheus request
metrics labelled by route pattern so tokens never become label values.
*/
package api
