// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package models

import (
	"fmt"
	"time"
)

// ContentType is the Stremio content type a catalog is built for.
type ContentType string

const (
	ContentTypeMovie  ContentType = "movie"
	ContentTypeSeries ContentType = "series"
)

// AllContentTypes lists every content type in catalog order.
var AllContentTypes = []ContentType{ContentTypeMovie, ContentTypeSeries}

// ParseContentType validates a content type from a URL or config value.
func ParseContentType(s string) (ContentType, error) {
	switch ContentType(s) {
	case ContentTypeMovie, ContentTypeSeries:
		return ContentType(s), nil
	default:
		return "", fmt.Errorf("unsupported content type %q", s)
	}
}

// DisplayMetadata is what a catalog row shows in the Stremio client.
type DisplayMetadata struct {
	ExternalID  string      `json:"external_id"`
	ContentType ContentType `json:"content_type"`
	Title       string      `json:"title"`
	Year        string      `json:"year,omitempty"`
	Description string      `json:"description,omitempty"`
	Poster      string      `json:"poster,omitempty"`
	Background  string      `json:"background,omitempty"`
	Genres      []string    `json:"genres,omitempty"`
	Rating      float64     `json:"rating,omitempty"`
}

// RecommendationItem is one ranked entry of a catalog snapshot.
type RecommendationItem struct {
	ExternalID    string           `json:"external_id"`
	Title         string           `json:"title"`
	ContentType   ContentType      `json:"content_type"`
	Score         float64          `json:"score"`
	SourceSeedIDs []string         `json:"source_seed_ids"`
	Metadata      *DisplayMetadata `json:"metadata,omitempty"`
}

// CatalogSnapshot is the complete result of one pipeline run for a
// (token, content type) pair. Snapshots are replaced whole, never patched.
// Token is carried in memory only; the cache key is a hash of it.
type CatalogSnapshot struct {
	Token       string               `json:"-"`
	ContentType ContentType          `json:"content_type"`
	Items       []RecommendationItem `json:"items"`
	ComputedAt  time.Time            `json:"computed_at"`
	// Fingerprint is a hash of the seed set used, for change detection.
	Fingerprint string `json:"source_library_fingerprint"`
	// SeedCount of zero means the library had no usable preference signal.
	SeedCount int `json:"seed_count"`
	// DroppedItems counts ranked items removed because metadata could not be resolved.
	DroppedItems int `json:"dropped_items,omitempty"`
}

// HasSignal reports whether the snapshot was computed from at least one seed.
func (s *CatalogSnapshot) HasSignal() bool {
	return s.SeedCount > 0
}
