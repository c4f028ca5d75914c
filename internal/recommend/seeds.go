// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package recommend

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/watchly/internal/models"
)

// seed is a library item used as the basis for recommendations.
// Rank 0 is the most recent.
type seed struct {
	ExternalID string
	Timestamp  time.Time
	Rank       int
}

// selectSeeds picks the newest items of the content type. With
// loved_and_watched the two lists are merged and a duplicate keeps its
// latest timestamp.
func selectSeeds(lib *models.Library, pref models.Preference, contentType models.ContentType, limit int) []seed {
	latest := make(map[string]time.Time)
	add := func(entries []models.LibraryEntry) {
		for _, e := range entries {
			if e.ContentType != contentType || e.ExternalID == "" {
				continue
			}
			if ts, ok := latest[e.ExternalID]; !ok || e.Timestamp.After(ts) {
				latest[e.ExternalID] = e.Timestamp
			}
		}
	}
	add(lib.Loved)
	if pref.IncludeWatched() {
		add(lib.Watched)
	}

	seeds := make([]seed, 0, len(latest))
	for id, ts := range latest {
		seeds = append(seeds, seed{ExternalID: id, Timestamp: ts})
	}
	sort.Slice(seeds, func(i, j int) bool {
		if !seeds[i].Timestamp.Equal(seeds[j].Timestamp) {
			return seeds[i].Timestamp.After(seeds[j].Timestamp)
		}
		return seeds[i].ExternalID < seeds[j].ExternalID
	})
	if limit > 0 && len(seeds) > limit {
		seeds = seeds[:limit]
	}
	for i := range seeds {
		seeds[i].Rank = i
	}
	return seeds
}

// fingerprint is the hex SHA-256 of the sorted seed ids.
func fingerprint(seeds []seed) string {
	ids := make([]string, len(seeds))
	for i, s := range seeds {
		ids[i] = s.ExternalID
	}
	sort.Strings(ids)
	sum := sha256.Sum256([]byte(strings.Join(ids, "\n")))
	return hex.EncodeToString(sum[:])
}
