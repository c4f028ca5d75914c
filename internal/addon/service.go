// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

// Package addon is the inbound surface of Watchly: issue and revoke tokens,
// read catalogs and manifest seed catalogs, force a refresh and list similar
// items. The HTTP layer in internal/api is a thin adapter over Service.
package addon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/watchly/internal/logging"
	"github.com/tomtom215/watchly/internal/metrics"
	"github.com/tomtom215/watchly/internal/models"
	"github.com/tomtom215/watchly/internal/recommend"
	"github.com/tomtom215/watchly/internal/refresh"
	"github.com/tomtom215/watchly/internal/vault"
)

// Vault is the credential vault as seen by the addon.
type Vault interface {
	Issue(ctx context.Context, creds models.Credentials, pref models.Preference, primer vault.Primer) (vault.IssueResult, error)
	Resolve(ctx context.Context, token string) (*models.CredentialRecord, error)
	Revoke(ctx context.Context, token string) error
	Unseal(rec *models.CredentialRecord) (models.Credentials, error)
	TTL() time.Duration
}

// Refresher recomputes catalogs and primes new tokens.
type Refresher interface {
	vault.Primer
	RefreshToken(ctx context.Context, token string) (refresh.Result, error)
}

// Catalogs is the catalog cache.
type Catalogs interface {
	Get(ctx context.Context, token string, contentType models.ContentType) (*models.CatalogSnapshot, bool, error)
	Delete(ctx context.Context, token string) error
}

// Recommender lists items similar to one item and reads a user's library.
// Satisfied by *recommend.Pipeline.
type Recommender interface {
	Similar(ctx context.Context, externalID string, contentType models.ContentType) ([]models.RecommendationItem, error)
	Library(ctx context.Context, creds models.Credentials) (*models.Library, error)
}

// IssuedToken is the result of IssueToken.
type IssuedToken struct {
	Token string
	// Created is false when the credentials were already registered.
	Created bool
	// ExpiresIn is zero for tokens that never expire.
	ExpiresIn time.Duration
}

// Service implements the addon operations.
type Service struct {
	vault       Vault
	refresher   Refresher
	catalogs    Catalogs
	recommender Recommender
	logger      zerolog.Logger

	seedCatalogs *expirable.LRU[string, []SeedCatalog]
	seedFlights  singleflight.Group
}

// NewService wires the addon operations.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewService(v Vault, r Refresher, c Catalogs, rec Recommender, logger zerolog.Logger) *Service {
	return &Service{
		vault:        v,
		refresher:    r,
		catalogs:     c,
		recommender:  rec,
		logger:       logger.With().Str("component", "addon").Logger(),
		seedCatalogs: expirable.NewLRU[string, []SeedCatalog](seedCatalogCacheSize, nil, seedCatalogTTL),
	}
}

// IssueToken validates the credentials, primes the catalogs and commits the
// record. Issuing the same credentials twice returns the same token.
func (s *Service) IssueToken(ctx context.Context, creds models.Credentials, pref models.Preference) (IssuedToken, error) {
	res, err := s.vault.Issue(ctx, creds, pref, s.refresher)
	metrics.TokensIssued.WithLabelValues(issueLabel(res, err)).Inc()
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Token: res.Token, Created: res.Created, ExpiresIn: s.vault.TTL()}, nil
}

// GetCatalog returns the catalog of a token. When nothing is cached yet it
// runs the pipeline once, synchronously, and returns that result.
func (s *Service) GetCatalog(ctx context.Context, token string, contentType models.ContentType) (*models.CatalogSnapshot, error) {
	if _, err := s.vault.Resolve(ctx, token); err != nil {
		return nil, err
	}

	snap, ok, err := s.catalogs.Get(ctx, token, contentType)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	metrics.RecordCatalogLookup(ok)
	if ok {
		return snap, nil
	}

	log := logging.Ctx(ctx).With().Str("token", logging.MaskSecret(token)).Str("content_type", string(contentType)).Logger()
	log.Info().Msg("Catalog not cached, building synchronously")

	res, err := s.refresher.RefreshToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if res.Outcome == refresh.OutcomeSkipped {
		// Revoked or expired between Resolve and the run.
		return nil, vault.ErrNotFound
	}

	snap, ok, err = s.catalogs.Get(ctx, token, contentType)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("catalog missing after refresh: %w", recommend.ErrUpstreamUnavailable)
	}
	return snap, nil
}

// ForceRefresh recomputes every catalog of the token now.
func (s *Service) ForceRefresh(ctx context.Context, token string) (refresh.Result, error) {
	if _, err := s.vault.Resolve(ctx, token); err != nil {
		return refresh.Result{}, err
	}
	res, err := s.refresher.RefreshToken(ctx, token)
	if err != nil {
		return res, err
	}
	if res.Outcome == refresh.OutcomeSkipped {
		return res, vault.ErrNotFound
	}
	return res, nil
}

// RevokeToken deletes the credentials and catalogs of a token. Revoking an
// unknown token succeeds.
func (s *Service) RevokeToken(ctx context.Context, token string) error {
	if err := s.vault.Revoke(ctx, token); err != nil {
		return err
	}
	s.seedCatalogs.Remove(token)
	if err := s.catalogs.Delete(ctx, token); err != nil {
		return fmt.Errorf("delete catalogs: %w", err)
	}
	return nil
}

// Similar lists items similar to externalID for a valid token.
func (s *Service) Similar(ctx context.Context, token, externalID string, contentType models.ContentType) ([]models.RecommendationItem, error) {
	if _, err := s.vault.Resolve(ctx, token); err != nil {
		return nil, err
	}
	return s.recommender.Similar(ctx, externalID, contentType)
}

func issueLabel(res vault.IssueResult, err error) string {
	var authErr *vault.AuthError
	switch {
	case err == nil && res.Created:
		return "created"
	case err == nil:
		return "reused"
	case errors.As(err, &authErr) && authErr.Kind == vault.AuthUpstreamUnavailable:
		return "upstream_unavailable"
	case errors.As(err, &authErr):
		return "invalid_credentials"
	case errors.Is(err, vault.ErrPrimingFailed):
		return "priming_failed"
	default:
		return "error"
	}
}
