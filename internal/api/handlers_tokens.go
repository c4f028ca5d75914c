// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/watchly/internal/logging"
	"github.com/tomtom215/watchly/internal/models"
)

// IssueToken handles POST /api/tokens.
//
// The credentials are checked against Stremio and the first catalogs are
// built before the token is returned, so a fresh manifest URL never points
// at empty catalogs.
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req models.IssueTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Request body must be a JSON object", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	creds := models.Credentials{Username: req.Username, Password: req.Password, AuthKey: req.AuthKey}
	issued, err := h.addon.IssueToken(r.Context(), creds, models.PreferenceFromIncludeWatched(req.IncludeWatched))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("token", logging.MaskSecret(issued.Token)).
		Bool("created", issued.Created).
		Msg("Token issued")

	status := http.StatusOK
	if issued.Created {
		status = http.StatusCreated
	}
	respondSuccess(w, r, status, models.IssueTokenResponse{
		Token:            issued.Token,
		ManifestURL:      externalBaseURL(r, h.cfg.BaseURL) + "/" + issued.Token + "/manifest.json",
		Created:          issued.Created,
		ExpiresInSeconds: int64(issued.ExpiresIn.Seconds()),
	})
}

// RevokeToken handles DELETE /api/tokens/{token}. Unknown tokens succeed.
func (h *Handler) RevokeToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if err := h.addon.RevokeToken(r.Context(), token); err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusNoContent)
}

// Refresh handles POST /{token}/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	res, err := h.addon.ForceRefresh(r.Context(), token)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, models.RefreshResponse{
		Outcome:  string(res.Outcome),
		Catalogs: res.Snapshots,
		Shared:   res.Shared,
	})
}
