// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

// Package stremio is the identity and library provider client.
//
// It logs in with an email/password pair or checks an existing auth key,
// fetches the user's library, and asks the likes service which watched
// items the user loved.
package stremio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/watchly/internal/config"
	"github.com/tomtom215/watchly/internal/logging"
	"github.com/tomtom215/watchly/internal/models"
	"github.com/tomtom215/watchly/internal/upstream"
)

// Client talks to the Stremio API and the likes service.
type Client struct {
	api        *upstream.Client
	likes      *upstream.Client
	apiURL     string
	likesURL   string
	lovedLimit int
	batchSize  int
	logger     zerolog.Logger
}

// New creates a Client. Transport may be nil.
func New(cfg config.StremioConfig, transport http.RoundTripper, logger zerolog.Logger) *Client {
	if cfg.LikesBatchSize < 1 {
		cfg.LikesBatchSize = 20
	}
	if cfg.LovedLimit < 1 {
		cfg.LovedLimit = 10
	}
	return &Client{
		api: upstream.New(upstream.Options{
			Name:      "stremio",
			Config:    cfg.Upstream,
			Transport: transport,
		}, logger),
		likes: upstream.New(upstream.Options{
			Name:      "stremio-likes",
			Config:    cfg.Upstream,
			Transport: transport,
		}, logger),
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		likesURL:   strings.TrimRight(cfg.LikesURL, "/"),
		lovedLimit: cfg.LovedLimit,
		batchSize:  cfg.LikesBatchSize,
		logger:     logger.With().Str("component", "stremio").Logger(),
	}
}

// Authenticate exchanges a password pair for a session, or checks that an
// auth key is still accepted. Rejections match models.ErrInvalidCredentials.
func (c *Client) Authenticate(ctx context.Context, creds models.Credentials) (models.Identity, error) {
	if creds.Mode() == models.AuthModePasswordPair {
		return c.login(ctx, creds.Username, creds.Password)
	}
	if err := c.checkAuthKey(ctx, creds.AuthKey); err != nil {
		return models.Identity{}, err
	}
	return models.Identity{AuthKey: creds.AuthKey}, nil
}

func (c *Client) login(ctx context.Context, email, password string) (models.Identity, error) {
	var resp apiEnvelope[loginResult]
	err := c.api.PostJSON(ctx, c.apiURL+"/api/login", loginRequest{
		Type:     "Login",
		Email:    email,
		Password: password,
	}, &resp)
	if err != nil {
		return models.Identity{}, classify(err)
	}
	if msg := resp.errorMessage("invalid Stremio username/password"); msg != "" || resp.Result.AuthKey == "" {
		if msg == "" {
			msg = "login returned no auth key"
		}
		c.logger.Info().Str("user", logging.SanitizeUsername(email)).Str("reason", msg).Msg("Stremio login rejected")
		return models.Identity{}, fmt.Errorf("%w: %s", models.ErrInvalidCredentials, msg)
	}
	c.logger.Debug().Str("user", logging.SanitizeUsername(email)).Msg("Authenticated with Stremio")
	return models.Identity{AuthKey: resp.Result.AuthKey, Email: resp.Result.User.Email}, nil
}

func (c *Client) checkAuthKey(ctx context.Context, authKey string) error {
	var resp apiEnvelope[addonCollectionResult]
	err := c.api.PostJSON(ctx, c.apiURL+"/api/addonCollectionGet", addonCollectionRequest{
		Type:    "AddonCollectionGet",
		AuthKey: authKey,
		Update:  true,
	}, &resp)
	if err != nil {
		return classify(err)
	}
	if msg := resp.errorMessage("invalid Stremio auth key"); msg != "" {
		c.logger.Info().Str("auth_key", logging.MaskSecret(authKey)).Str("reason", msg).Msg("Stremio auth key rejected")
		return fmt.Errorf("%w: %s", models.ErrInvalidCredentials, msg)
	}
	return nil
}

// FetchLibrary returns the user's watched items (newest first) and the loved
// subset found by probing the likes service, up to the loved limit per type.
func (c *Client) FetchLibrary(ctx context.Context, identity models.Identity) (*models.Library, error) {
	var resp apiEnvelope[[]libraryItem]
	err := c.api.PostJSON(ctx, c.apiURL+"/api/datastoreGet", datastoreRequest{
		AuthKey:    identity.AuthKey,
		Collection: "libraryItem",
		All:        true,
	}, &resp)
	if err != nil {
		return nil, classify(err)
	}
	if msg := resp.errorMessage("library request rejected"); msg != "" {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidCredentials, msg)
	}

	watched := watchedEntries(resp.Result)
	loved, err := c.checkLoved(ctx, identity.AuthKey, watched)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("library_items", len(resp.Result)).
		Int("watched", len(watched)).
		Int("loved", len(loved)).
		Msg("Fetched Stremio library")
	return &models.Library{Loved: loved, Watched: watched}, nil
}

// watchedEntries keeps watched movies and series with IMDb ids, newest first.
func watchedEntries(items []libraryItem) []models.LibraryEntry {
	entries := make([]models.LibraryEntry, 0, len(items))
	for _, item := range items {
		if item.State.TimesWatched <= 0 || !strings.HasPrefix(item.ID, "tt") {
			continue
		}
		ct, err := models.ParseContentType(item.Type)
		if err != nil {
			continue
		}
		entries = append(entries, models.LibraryEntry{
			ExternalID:  item.ID,
			ContentType: ct,
			Name:        item.Name,
			Timestamp:   parseMTime(item.MTime),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Timestamp.After(entries[j].Timestamp)
		}
		return entries[i].ExternalID < entries[j].ExternalID
	})
	return entries
}

// checkLoved checks watched items in batches and stops once every content
// type has reached the loved limit.
//
// A check answered with 404 means not loved. Other failed checks are
// skipped, but if any failed and nothing loved was found the result cannot
// be told apart from a likes service outage, so an error wrapping
// models.ErrUpstreamUnavailable is returned instead of an empty list.
func (c *Client) checkLoved(ctx context.Context, authKey string, watched []models.LibraryEntry) ([]models.LibraryEntry, error) {
	found := make(map[models.ContentType]int, len(models.AllContentTypes))
	var (
		loved    []models.LibraryEntry
		checked  int
		failed   int
		lastFail error
	)

	for start := 0; start < len(watched); start += c.batchSize {
		if c.enoughLoved(found) {
			break
		}
		end := min(start+c.batchSize, len(watched))

		var candidates []models.LibraryEntry
		for _, entry := range watched[start:end] {
			if found[entry.ContentType] < c.lovedLimit {
				candidates = append(candidates, entry)
			}
		}
		if len(candidates) == 0 {
			continue
		}

		statuses := make([]bool, len(candidates))
		errs := make([]error, len(candidates))
		g, gctx := errgroup.WithContext(ctx)
		for i, entry := range candidates {
			g.Go(func() error {
				ok, err := c.IsLoved(gctx, authKey, entry.ExternalID, entry.ContentType)
				if err != nil {
					if ctxErr := gctx.Err(); ctxErr != nil {
						return ctxErr
					}
					if !errors.Is(err, models.ErrNotFound) {
						errs[i] = err
						c.logger.Debug().Err(err).Str("item", entry.ExternalID).Msg("Loved status check failed")
					}
					return nil
				}
				statuses[i] = ok
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		checked += len(candidates)
		for i, entry := range candidates {
			if errs[i] != nil {
				failed++
				lastFail = errs[i]
				continue
			}
			if statuses[i] && found[entry.ContentType] < c.lovedLimit {
				loved = append(loved, entry)
				found[entry.ContentType]++
			}
		}
	}

	if failed > 0 && len(loved) == 0 {
		return nil, fmt.Errorf("%w: likes service: %d of %d loved checks failed: %w",
			models.ErrUpstreamUnavailable, failed, checked, lastFail)
	}
	if failed > 0 {
		c.logger.Warn().Int("failed", failed).Int("checked", checked).Msg("Some loved status checks failed")
	}
	return loved, nil
}

func (c *Client) enoughLoved(found map[models.ContentType]int) bool {
	for _, ct := range models.AllContentTypes {
		if found[ct] < c.lovedLimit {
			return false
		}
	}
	return true
}

// IsLoved asks the likes service whether the user loved an item.
func (c *Client) IsLoved(ctx context.Context, authKey, externalID string, contentType models.ContentType) (bool, error) {
	if !strings.HasPrefix(externalID, "tt") {
		return false, nil
	}
	q := url.Values{}
	q.Set("authToken", authKey)
	q.Set("mediaType", string(contentType))
	q.Set("mediaId", externalID)

	var status likeStatus
	if err := c.likes.GetJSON(ctx, c.likesURL+"/api/get_status?"+q.Encode(), &status); err != nil {
		return false, err
	}
	return strings.EqualFold(status.Status, "loved"), nil
}

// classify maps HTTP-level rejections onto models.ErrInvalidCredentials.
func classify(err error) error {
	switch upstream.StatusCode(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", models.ErrInvalidCredentials, err)
	}
	return err
}

func parseMTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000Z"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
