// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/watchly/internal/logging"
	"github.com/tomtom215/watchly/internal/models"
)

// discardTimeout bounds the cleanup after a failed commit.
const discardTimeout = 10 * time.Second

// Primer builds the first catalogs for a token before it is committed.
type Primer interface {
	// Prime computes and stores catalogs for every content type.
	Prime(ctx context.Context, token string, identity models.Identity, pref models.Preference) error
	// Discard removes whatever Prime stored for token.
	Discard(ctx context.Context, token string) error
}

// IssueResult describes a successful issuance.
type IssueResult struct {
	Token string
	// Created is false when the same credentials were already registered.
	Created bool
}

// Issue runs the full issuance protocol:
//
//  1. normalize and validate the credentials with the identity provider
//  2. derive the token
//  3. if an active record exists, return it (no priming)
//  4. prime the catalogs, then commit; a failed commit discards the primed catalogs
//
// No record is ever committed without a successful priming run.
//
// Parameters:
//   - ctx: Bounds the provider calls and the priming run
//   - creds: Username/password or an auth key; blank fields are trimmed
//   - pref: Which library items seed the user's catalogs
//   - primer: Builds and, on failure, discards the first catalogs
//
// Returns the token and whether a new record was created. A validation
// failure is an *AuthError (matching models.ErrInvalidCredentials or
// models.ErrUpstreamUnavailable); a failed first build wraps ErrPrimingFailed.
func (v *Vault) Issue(ctx context.Context, creds models.Credentials, pref models.Preference, primer Primer) (IssueResult, error) {
	norm, err := Normalize(creds)
	if err != nil {
		return IssueResult{}, err
	}
	identity, err := v.authenticate(ctx, norm)
	if err != nil {
		return IssueResult{}, err
	}

	token := v.DeriveToken(norm, pref)
	log := v.logger.With().Str("token", logging.MaskSecret(token)).Logger()

	_, err = v.Resolve(ctx, token)
	switch {
	case err == nil:
		if _, err := v.Commit(ctx, token, norm, pref); err != nil {
			return IssueResult{}, err
		}
		log.Debug().Msg("Credentials already registered")
		return IssueResult{Token: token, Created: false}, nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrExpired):
	default:
		return IssueResult{}, err
	}

	if err := primer.Prime(ctx, token, identity, pref); err != nil {
		log.Warn().Err(err).Msg("Initial catalog build failed, token not issued")
		return IssueResult{}, fmt.Errorf("%w: %w", ErrPrimingFailed, err)
	}

	created, err := v.Commit(ctx, token, norm, pref)
	if err != nil {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
		defer cancel()
		if discardErr := primer.Discard(cleanupCtx, token); discardErr != nil {
			log.Error().Err(discardErr).Msg("Failed to discard primed catalogs")
		}
		return IssueResult{}, err
	}
	return IssueResult{Token: token, Created: created}, nil
}
