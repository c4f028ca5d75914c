// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/watchly/internal/recommend"
	"github.com/tomtom215/watchly/internal/vault"
)

// apiFailure is the HTTP rendering of a domain error.
type apiFailure struct {
	status  int
	code    string
	message string
}

// classifyError maps service errors onto status codes. Unknown errors are 500.
func classifyError(err error) apiFailure {
	var authErr *vault.AuthError
	var pipeErr *recommend.PipelineError

	switch {
	case errors.As(err, &authErr) && authErr.Kind == vault.AuthInvalidCredentials:
		msg := authErr.Message
		if msg == "" {
			msg = "Invalid Stremio credentials or auth key"
		}
		return apiFailure{http.StatusBadRequest, "INVALID_CREDENTIALS", msg}
	case errors.As(err, &authErr):
		return apiFailure{http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "Unable to reach Stremio right now, try again later"}
	case errors.Is(err, vault.ErrExpired):
		return apiFailure{http.StatusGone, "TOKEN_EXPIRED", "Token has expired, generate a new one"}
	case errors.Is(err, vault.ErrNotFound):
		return apiFailure{http.StatusNotFound, "TOKEN_NOT_FOUND", "Unknown or revoked token"}
	case errors.Is(err, vault.ErrPrimingFailed):
		return apiFailure{http.StatusBadGateway, "PRIMING_FAILED", "Credentials verified, but the catalogs could not be built yet, try again"}
	case errors.As(err, &pipeErr) && pipeErr.Kind == recommend.KindLibraryFetchFailed:
		return apiFailure{http.StatusBadGateway, "LIBRARY_UNAVAILABLE", "Unable to read the Stremio library"}
	case errors.As(err, &pipeErr):
		return apiFailure{http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "Recommendation provider unavailable"}
	case errors.Is(err, recommend.ErrUpstreamUnavailable):
		return apiFailure{http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "Recommendation provider unavailable"}
	case errors.Is(err, context.DeadlineExceeded):
		return apiFailure{http.StatusGatewayTimeout, "TIMEOUT", "The request took too long"}
	default:
		return apiFailure{http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"}
	}
}

// respondServiceError renders err through classifyError.
func respondServiceError(w http.ResponseWriter, err error) {
	f := classifyError(err)
	respondError(w, f.status, f.code, f.message, err)
}
