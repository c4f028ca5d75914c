// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

// Package tmdb is the metadata and recommendation provider client.
//
// Transport stack:
//  1. httpcache (RFC 7234 response caching), when enabled
//  2. upstream.Client (rate limit, retries, circuit breaker)
//
// On top of that, find and details lookups are memoized in expirable LRUs,
// since every pipeline run resolves the same popular titles.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gregjones/httpcache"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/watchly/internal/config"
	"github.com/tomtom215/watchly/internal/models"
	"github.com/tomtom215/watchly/internal/upstream"
)

// detailConcurrency bounds the detail lookups fanned out per recommendation list.
const detailConcurrency = 4

// Client implements the recommendation and metadata lookups.
type Client struct {
	http     *upstream.Client
	baseURL  string
	imageURL string
	apiKey   string
	language string

	finds   *expirable.LRU[string, findResult]
	details *expirable.LRU[string, *details]
	logger  zerolog.Logger
}

// New creates a Client. Transport may be nil.
func New(cfg config.TMDBConfig, transport http.RoundTripper, logger zerolog.Logger) *Client {
	if cfg.HTTPCache {
		cached := httpcache.NewMemoryCacheTransport()
		if transport != nil {
			cached.Transport = transport
		}
		transport = cached
	}
	size := cfg.CacheSize
	if size < 1 {
		size = 1000
	}

	return &Client{
		http: upstream.New(upstream.Options{
			Name:      "tmdb",
			Config:    cfg.Upstream,
			Transport: transport,
		}, logger),
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		imageURL: strings.TrimRight(cfg.ImageURL, "/"),
		apiKey:   cfg.APIKey,
		language: cfg.Language,
		finds:    expirable.NewLRU[string, findResult](size, nil, cfg.CacheTTL),
		details:  expirable.NewLRU[string, *details](size, nil, cfg.CacheTTL),
		logger:   logger.With().Str("component", "tmdb").Logger(),
	}
}

// RecommendationsFor returns up to limit IMDb ids recommended for the item,
// in TMDB's order. An item TMDB does not know yields an empty list.
func (c *Client) RecommendationsFor(ctx context.Context, externalID string, contentType models.ContentType, limit int) ([]string, error) {
	if limit < 1 {
		return nil, nil
	}
	found, err := c.find(ctx, externalID)
	if err != nil {
		return nil, err
	}
	tmdbID := found.idFor(contentType)
	if tmdbID == 0 {
		return nil, nil
	}

	media := mediaType(contentType)
	var recs recommendationsResponse
	endpoint := "/" + media + "/" + strconv.Itoa(tmdbID) + "/recommendations"
	if err := c.get(ctx, endpoint, url.Values{"page": {"1"}}, &recs); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	// Twice the limit is resolved because some titles have no IMDb id.
	candidates := make([]int, 0, limit*2)
	seenTMDB := make(map[int]struct{}, len(recs.Results))
	for _, rec := range recs.Results {
		if len(candidates) == limit*2 {
			break
		}
		if _, dup := seenTMDB[rec.ID]; dup {
			continue
		}
		seenTMDB[rec.ID] = struct{}{}
		candidates = append(candidates, rec.ID)
	}

	resolved := make([]string, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailConcurrency)
	for i, id := range candidates {
		g.Go(func() error {
			d, err := c.detailsFor(gctx, media, id)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				c.logger.Debug().Err(err).Int("tmdb_id", id).Msg("Skipping recommendation without details")
				return nil
			}
			resolved[i] = d.imdbID()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ids := make([]string, 0, limit)
	seen := make(map[string]struct{}, len(resolved))
	for _, id := range resolved {
		if !strings.HasPrefix(id, "tt") {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
		if len(ids) == limit {
			break
		}
	}
	return ids, nil
}

// MetadataFor returns display metadata for an IMDb id of the given type.
// It returns an error matching models.ErrNotFound when TMDB has no match.
func (c *Client) MetadataFor(ctx context.Context, externalID string, contentType models.ContentType) (*models.DisplayMetadata, error) {
	found, err := c.find(ctx, externalID)
	if err != nil {
		return nil, err
	}
	tmdbID := found.idFor(contentType)
	if tmdbID == 0 {
		return nil, fmt.Errorf("tmdb: %s %s: %w", contentType, externalID, models.ErrNotFound)
	}

	d, err := c.detailsFor(ctx, mediaType(contentType), tmdbID)
	if err != nil {
		return nil, err
	}

	meta := &models.DisplayMetadata{
		ExternalID:  externalID,
		ContentType: contentType,
		Title:       d.title(),
		Year:        d.year(),
		Description: d.Overview,
		Poster:      c.image("w500", d.PosterPath),
		Background:  c.image("original", d.BackdropPath),
		Rating:      d.VoteAverage,
	}
	for _, g := range d.Genres {
		meta.Genres = append(meta.Genres, g.Name)
	}
	if meta.Title == "" {
		return nil, fmt.Errorf("tmdb: %s has no title: %w", externalID, models.ErrNotFound)
	}
	return meta, nil
}

func (c *Client) find(ctx context.Context, imdbID string) (findResult, error) {
	if cached, ok := c.finds.Get(imdbID); ok {
		return cached, nil
	}

	var resp findResponse
	err := c.get(ctx, "/find/"+url.PathEscape(imdbID), url.Values{"external_source": {"imdb_id"}}, &resp)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return findResult{}, err
	}

	var result findResult
	if len(resp.MovieResults) > 0 {
		result.MovieID = resp.MovieResults[0].ID
	}
	if len(resp.TVResults) > 0 {
		result.TVID = resp.TVResults[0].ID
	}
	c.finds.Add(imdbID, result)
	return result, nil
}

func (c *Client) detailsFor(ctx context.Context, media string, tmdbID int) (*details, error) {
	key := media + ":" + strconv.Itoa(tmdbID)
	if cached, ok := c.details.Get(key); ok {
		return cached, nil
	}

	var d details
	endpoint := "/" + media + "/" + strconv.Itoa(tmdbID)
	if err := c.get(ctx, endpoint, url.Values{"append_to_response": {"external_ids"}}, &d); err != nil {
		return nil, err
	}
	c.details.Add(key, &d)
	return &d, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	return c.http.GetJSON(ctx, c.baseURL+endpoint+"?"+params.Encode(), out)
}

func (c *Client) image(size, path string) string {
	if path == "" {
		return ""
	}
	return c.imageURL + "/" + size + path
}
