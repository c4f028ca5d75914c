// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package addon

import (
	"context"
	"time"

	"github.com/tomtom215/watchly/internal/logging"
	"github.com/tomtom215/watchly/internal/models"
	"github.com/tomtom215/watchly/internal/validation"
)

const (
	// seedCatalogTTL is how long a token's manifest catalogs are reused.
	seedCatalogTTL = time.Hour

	seedCatalogCacheSize = 1000

	// seedCatalogTimeout bounds the library fetch behind one manifest.
	seedCatalogTimeout = 30 * time.Second
)

// SeedLabel says which part of the library a seed catalog came from.
type SeedLabel string

const (
	SeedLoved   SeedLabel = "Loved"
	SeedWatched SeedLabel = "Watched"
)

// SeedCatalog is a "Because you Loved/Watched X" catalog of a token. Its id
// is the seed's external id, which the catalog route serves through Similar.
type SeedCatalog struct {
	ContentType models.ContentType
	ExternalID  string
	Title       string
	Label       SeedLabel
}

// Name is the catalog title shown in Stremio.
func (c SeedCatalog) Name() string {
	return "Because you " + string(c.Label) + " " + c.Title
}

// ManifestCatalogs returns the seed catalogs a token's manifest advertises:
// at most one loved item per content type, then at most one watched item
// per content type that is not already used.
//
// The token is resolved on every call, so a revoked token stops resolving at
// once. The library behind the list is fetched at most once per token per
// seedCatalogTTL; concurrent callers share one fetch.
func (s *Service) ManifestCatalogs(ctx context.Context, token string) ([]SeedCatalog, error) {
	rec, err := s.vault.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if cats, ok := s.seedCatalogs.Get(token); ok {
		return cats, nil
	}

	ch := s.seedFlights.DoChan(token, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), seedCatalogTimeout)
		defer cancel()

		creds, err := s.vault.Unseal(rec)
		if err != nil {
			return nil, err
		}
		lib, err := s.recommender.Library(runCtx, creds)
		if err != nil {
			return nil, err
		}
		cats := seedCatalogs(lib)
		s.seedCatalogs.Add(token, cats)
		logging.Ctx(ctx).Debug().
			Str("token", logging.MaskSecret(token)).
			Int("catalogs", len(cats)).
			Msg("Built manifest seed catalogs")
		return cats, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		cats, _ := res.Val.([]SeedCatalog)
		return cats, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func seedCatalogs(lib *models.Library) []SeedCatalog {
	used := make(map[string]bool)
	var cats []SeedCatalog
	pick := func(entries []models.LibraryEntry, label SeedLabel) {
		taken := make(map[models.ContentType]bool)
		for _, e := range entries {
			if used[e.ExternalID] || taken[e.ContentType] {
				continue
			}
			// Only IMDb ids route to the similar-items catalog.
			if !validation.IsIMDbID(e.ExternalID) {
				continue
			}
			used[e.ExternalID] = true
			taken[e.ContentType] = true
			title := e.Name
			if title == "" {
				title = e.ExternalID
			}
			cats = append(cats, SeedCatalog{ContentType: e.ContentType, ExternalID: e.ExternalID, Title: title, Label: label})
		}
	}
	pick(lib.Loved, SeedLoved)
	pick(lib.Watched, SeedWatched)
	return cats
}
