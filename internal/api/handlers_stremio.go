// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/watchly/internal/logging"
	"github.com/tomtom215/watchly/internal/models"
	"github.com/tomtom215/watchly/internal/recommend"
	"github.com/tomtom215/watchly/internal/validation"
	"github.com/tomtom215/watchly/internal/vault"
)

// Manifest handles GET /manifest.json and GET /{token}/manifest.json.
//
// A token manifest also lists one "Because you Loved/Watched X" catalog per
// seed. An unknown or expired token is an error. When the library cannot be
// read the base manifest is served uncached, so Stremio asks again later.
func (h *Handler) Manifest(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		respondStremio(w, h.cfg.ManifestMaxAge, h.manifest)
		return
	}

	seeds, err := h.addon.ManifestCatalogs(r.Context(), token)
	switch {
	case errors.Is(err, vault.ErrNotFound), errors.Is(err, vault.ErrExpired):
		respondServiceError(w, err)
		return
	case err != nil:
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Serving manifest without seed catalogs")
		respondStremio(w, 0, h.manifest)
		return
	}
	respondStremio(w, h.cfg.ManifestMaxAge, withSeedCatalogs(h.manifest, seeds))
}

// Catalog handles GET /{token}/catalog/{type}/{id}.json.
//
// id is either the per-token catalog id or an IMDb id, in which case the
// items similar to that title are returned.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	contentType, err := models.ParseContentType(chi.URLParam(r, "type"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_TYPE", "Invalid type, use movie or series", nil)
		return
	}
	// The id may itself contain dots (watchly.rec), so the whole segment is
	// routed and the extension stripped here.
	id, ok := strings.CutSuffix(chi.URLParam(r, "file"), ".json")
	if !ok {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}

	switch {
	case id == CatalogID:
		h.tokenCatalog(w, r, token, contentType)
	case validation.IsIMDbID(id):
		h.similarCatalog(w, r, token, id, contentType)
	default:
		respondError(w, http.StatusBadRequest, "INVALID_CATALOG", "Unknown catalog id", nil)
	}
}

func (h *Handler) tokenCatalog(w http.ResponseWriter, r *http.Request, token string, contentType models.ContentType) {
	snap, err := h.addon.GetCatalog(r.Context(), token, contentType)
	switch {
	case errors.Is(err, recommend.ErrNoSeedsAvailable):
		respondStremio(w, h.cfg.CatalogMaxAge, CatalogResponse{Metas: []Meta{}})
		return
	case err != nil:
		respondServiceError(w, err)
		return
	}

	logging.Ctx(r.Context()).Debug().
		Str("content_type", string(contentType)).
		Int("items", len(snap.Items)).
		Msg("Catalog served")
	respondStremio(w, h.cfg.CatalogMaxAge, CatalogResponse{Metas: toMetas(snap.Items)})
}

func (h *Handler) similarCatalog(w http.ResponseWriter, r *http.Request, token, externalID string, contentType models.ContentType) {
	items, err := h.addon.Similar(r.Context(), token, externalID, contentType)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondStremio(w, h.cfg.CatalogMaxAge, CatalogResponse{Metas: toMetas(items)})
}
