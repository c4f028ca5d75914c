// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

/*
Package models defines the data structures shared across Watchly.

Model Categories:

1. Credentials and tokens:
  - Credentials: what a user submits (username and password, or an auth key)
  - CredentialRecord: the sealed, persisted form keyed by token
  - Identity: a resolved Stremio session
  - Preference: loved only, or loved and watched

2. Library and catalogs:
  - LibraryEntry, Library: a user's loved and watched titles
  - RecommendationItem: a ranked candidate with the seeds that produced it
  - CatalogSnapshot: the computed catalog for one token and content type
  - DisplayMetadata: what a catalog shows for an item

3. API:
  - APIResponse, APIError, Metadata: the JSON envelope of the token API
  - IssueTokenRequest, IssueTokenResponse, RefreshResponse, HealthResponse

Content types are limited to movie and series:

	ct, err := models.ParseContentType(r.PathValue("type"))
	if err != nil {
	    // 400
	}

Sentinel errors ErrInvalidCredentials, ErrUpstreamUnavailable and ErrNotFound
are returned by provider clients and matched with errors.Is.

Secrets never appear in JSON: CredentialRecord carries only the sealed
payload and Identity has no JSON tags.
*/
package models
