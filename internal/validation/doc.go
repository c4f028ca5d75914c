// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

// Package validation wraps go-playground/validator v10 with a shared
// instance, JSON field names in messages and conversion to the API's
// VALIDATION_ERROR format.
//
//	var req models.IssueTokenRequest
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	    return
//	}
//
// Custom tags:
//
//	imdb_id   tt followed by digits, the id scheme of Stremio title catalogs
//
// Rejected values of password and authKey are never echoed in error details.
package validation
