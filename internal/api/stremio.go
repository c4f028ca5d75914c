// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package api

import (
	"strconv"

	"github.com/tomtom215/watchly/internal/addon"
	"github.com/tomtom215/watchly/internal/models"
)

// CatalogID is the id of the per-token recommendation catalog.
const CatalogID = "watchly.rec"

// Manifest is the Stremio addon manifest.
type Manifest struct {
	ID            string             `json:"id"`
	Version       string             `json:"version"`
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	Logo          string             `json:"logo,omitempty"`
	Resources     []ManifestResource `json:"resources"`
	Types         []string           `json:"types"`
	IDPrefixes    []string           `json:"idPrefixes"`
	Catalogs      []ManifestCatalog  `json:"catalogs"`
	BehaviorHints BehaviorHints      `json:"behaviorHints"`
}

type ManifestResource struct {
	Name       string   `json:"name"`
	Types      []string `json:"types"`
	IDPrefixes []string `json:"idPrefixes"`
}

type ManifestCatalog struct {
	Type  string        `json:"type"`
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Extra []interface{} `json:"extra"`
}

type BehaviorHints struct {
	Configurable          bool `json:"configurable"`
	ConfigurationRequired bool `json:"configurationRequired"`
}

// ManifestInfo is the addon identity shown in Stremio.
type ManifestInfo struct {
	ID      string
	Name    string
	Version string
	Logo    string
}

// buildManifest lists one Recommended catalog per content type.
func buildManifest(info ManifestInfo) Manifest {
	types := make([]string, len(models.AllContentTypes))
	catalogs := make([]ManifestCatalog, len(models.AllContentTypes))
	for i, ct := range models.AllContentTypes {
		types[i] = string(ct)
		catalogs[i] = ManifestCatalog{Type: string(ct), ID: CatalogID, Name: "Recommended", Extra: []interface{}{}}
	}
	return Manifest{
		ID:            info.ID,
		Version:       info.Version,
		Name:          info.Name,
		Description:   "Movie and series recommendations based on your Stremio library",
		Logo:          info.Logo,
		Resources:     []ManifestResource{{Name: "catalog", Types: types, IDPrefixes: []string{"tt"}}},
		Types:         types,
		IDPrefixes:    []string{"tt"},
		Catalogs:      catalogs,
		BehaviorHints: BehaviorHints{Configurable: true},
	}
}

// withSeedCatalogs returns base with the token's "Because you ..." catalogs
// appended. base is not modified.
func withSeedCatalogs(base Manifest, seeds []addon.SeedCatalog) Manifest {
	m := base
	m.Catalogs = make([]ManifestCatalog, 0, len(base.Catalogs)+len(seeds))
	m.Catalogs = append(m.Catalogs, base.Catalogs...)
	for _, c := range seeds {
		m.Catalogs = append(m.Catalogs, ManifestCatalog{
			Type:  string(c.ContentType),
			ID:    c.ExternalID,
			Name:  c.Name(),
			Extra: []interface{}{},
		})
	}
	return m
}

// Meta is a Stremio meta preview.
type Meta struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Poster      string   `json:"poster,omitempty"`
	Background  string   `json:"background,omitempty"`
	Description string   `json:"description,omitempty"`
	ReleaseInfo string   `json:"releaseInfo,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	IMDBRating  string   `json:"imdbRating,omitempty"`
}

// CatalogResponse is the body of a catalog request.
type CatalogResponse struct {
	Metas []Meta `json:"metas"`
}

// toMetas shapes ranked items for Stremio. Order is preserved.
func toMetas(items []models.RecommendationItem) []Meta {
	metas := make([]Meta, 0, len(items))
	for i := range items {
		metas = append(metas, toMeta(&items[i]))
	}
	return metas
}

func toMeta(item *models.RecommendationItem) Meta {
	meta := Meta{ID: item.ExternalID, Type: string(item.ContentType), Name: item.Title}
	md := item.Metadata
	if md == nil {
		return meta
	}
	if meta.Name == "" {
		meta.Name = md.Title
	}
	meta.Poster = md.Poster
	meta.Background = md.Background
	meta.Description = md.Description
	meta.ReleaseInfo = md.Year
	meta.Genres = md.Genres
	if md.Rating > 0 {
		meta.IMDBRating = strconv.FormatFloat(md.Rating, 'f', 1, 64)
	}
	return meta
}
