// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

// Package vault stores user credentials encrypted at rest, keyed by an opaque
// token derived from the credentials themselves.
//
// Lifecycle of a record:
//
//	Validate -> DeriveToken -> (prime catalogs) -> Commit
//	Resolve  -> Unseal (the only decrypt path)
//	Revoke / expiry -> gone
//
// A record only exists after the identity provider accepted the credentials
// and the first catalog build succeeded. See Issue.
package vault

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/watchly/internal/config"
	"github.com/tomtom215/watchly/internal/logging"
	"github.com/tomtom215/watchly/internal/metrics"
	"github.com/tomtom215/watchly/internal/models"
	"github.com/tomtom215/watchly/internal/store"
)

const (
	recordPrefix = "vault:cred:"

	// expiryGrace keeps expired records in the store long enough for Resolve
	// to report ErrExpired instead of ErrNotFound.
	expiryGrace = 24 * time.Hour

	listPageSize = 128
)

// Authenticator checks credentials against the identity provider.
// It returns an error matching models.ErrInvalidCredentials on rejection.
type Authenticator interface {
	Authenticate(ctx context.Context, creds models.Credentials) (models.Identity, error)
}

// Vault is the credential store.
type Vault struct {
	store          store.Store
	auth           Authenticator
	sealer         *sealer
	salt           []byte
	ttl            time.Duration
	refreshOnReuse bool
	now            func() time.Time
	logger         zerolog.Logger
}

// Option customizes a Vault.
type Option func(*Vault)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(v *Vault) { v.now = now }
}

// New creates a Vault. It refuses an empty or placeholder salt.
func New(st store.Store, cfg config.SecurityConfig, auth Authenticator, logger zerolog.Logger, opts ...Option) (*Vault, error) {
	if config.IsInsecureSalt(cfg.TokenSalt) {
		return nil, ErrInsecureSalt
	}
	s, err := newSealer(cfg.TokenSalt)
	if err != nil {
		return nil, err
	}
	v := &Vault{
		store:          st,
		auth:           auth,
		sealer:         s,
		salt:           []byte(cfg.TokenSalt),
		ttl:            cfg.TokenTTL,
		refreshOnReuse: cfg.RefreshTTLOnReuse,
		now:            time.Now,
		logger:         logger.With().Str("component", "vault").Logger(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// TTL returns the configured token lifetime. Zero means tokens never expire.
func (v *Vault) TTL() time.Duration {
	return v.ttl
}

// sealedSecret is the plaintext inside CredentialRecord.SealedPayload.
type sealedSecret struct {
	Token    string `json:"token"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	AuthKey  string `json:"authKey,omitempty"`
}

// Validate normalizes creds and asks the identity provider whether they are
// good. Nothing is persisted.
func (v *Vault) Validate(ctx context.Context, creds models.Credentials) (models.Identity, error) {
	norm, err := Normalize(creds)
	if err != nil {
		return models.Identity{}, err
	}
	return v.authenticate(ctx, norm)
}

func (v *Vault) authenticate(ctx context.Context, norm models.Credentials) (models.Identity, error) {
	identity, err := v.auth.Authenticate(ctx, norm)
	if err == nil {
		return identity, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return models.Identity{}, ctxErr
	}
	if errors.Is(err, models.ErrInvalidCredentials) {
		return models.Identity{}, &AuthError{
			Kind:    AuthInvalidCredentials,
			Message: "invalid Stremio credentials or auth key",
			Err:     err,
		}
	}
	return models.Identity{}, &AuthError{
		Kind:    AuthUpstreamUnavailable,
		Message: "unable to reach Stremio",
		Err:     err,
	}
}

// Commit stores the record for token unless an active one already exists.
// An expired record is replaced. With refresh-on-reuse enabled an active
// record only has its expiry pushed forward. created reports a new record.
//
// The existence check and the write run in one store transaction, so two
// concurrent commits for the same token create exactly one record.
func (v *Vault) Commit(ctx context.Context, token string, creds models.Credentials, pref models.Preference) (created bool, err error) {
	defer func() { metrics.RecordVaultOperation("commit", err) }()

	key := v.recordKey(token)
	now := v.now()
	fresh, err := v.newRecord(key, token, creds, pref, now)
	if err != nil {
		return false, err
	}

	extended := false
	err = v.store.Update(ctx, key, func(value []byte, found bool) (*store.Mutation, error) {
		created, extended = false, false
		if found {
			existing, err := decodeRecord(value)
			if err == nil && !existing.Expired(now) {
				if !v.refreshOnReuse || v.ttl <= 0 {
					return nil, nil
				}
				existing.ExpiresAt = now.Add(v.ttl)
				extended = true
				return encodeRecord(existing, now)
			}
		}
		created = true
		return encodeRecord(fresh, now)
	})
	if err != nil {
		return false, fmt.Errorf("store credential record: %w", err)
	}

	switch {
	case created:
		v.logger.Info().
			Str("token", logging.MaskSecret(token)).
			Str("auth_mode", string(fresh.AuthMode)).
			Msg("Stored credential record")
	case extended:
		v.logger.Debug().Str("token", logging.MaskSecret(token)).Msg("Extended token expiry on reuse")
	}
	return created, nil
}

// newRecord seals creds into a record bound to key.
func (v *Vault) newRecord(key, token string, creds models.Credentials, pref models.Preference, now time.Time) (*models.CredentialRecord, error) {
	norm := normalizeFields(creds)
	plaintext, err := json.Marshal(sealedSecret{
		Token:    token,
		Username: norm.Username,
		Password: norm.Password,
		AuthKey:  norm.AuthKey,
	})
	if err != nil {
		return nil, fmt.Errorf("encode credentials: %w", err)
	}
	sealed, err := v.sealer.seal(plaintext, []byte(key))
	if err != nil {
		return nil, fmt.Errorf("seal credentials: %w", err)
	}

	rec := &models.CredentialRecord{
		Token:         token,
		AuthMode:      norm.Mode(),
		SealedPayload: sealed,
		Preference:    pref,
		CreatedAt:     now,
	}
	if v.ttl > 0 {
		rec.ExpiresAt = now.Add(v.ttl)
	}
	return rec, nil
}

// Resolve returns the record for token. Expired records are deleted when
// observed and reported as ErrExpired.
func (v *Vault) Resolve(ctx context.Context, token string) (rec *models.CredentialRecord, err error) {
	defer func() {
		if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrExpired) {
			metrics.RecordVaultOperation("resolve", nil)
			return
		}
		metrics.RecordVaultOperation("resolve", err)
	}()

	if token == "" {
		return nil, ErrNotFound
	}
	key := v.recordKey(token)
	rec, err = v.load(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if now := v.now(); rec.Expired(now) {
		if _, delErr := v.deleteIfExpired(ctx, key, now); delErr != nil {
			v.logger.Warn().Err(delErr).Str("token", logging.MaskSecret(token)).Msg("Failed to delete expired record")
		}
		return nil, ErrExpired
	}
	rec.Token = token
	return rec, nil
}

// Unseal decrypts the credentials held by a record returned from Resolve.
func (v *Vault) Unseal(rec *models.CredentialRecord) (models.Credentials, error) {
	secret, err := v.unseal(v.recordKey(rec.Token), rec)
	if err != nil {
		return models.Credentials{}, err
	}
	if secret.Token != rec.Token {
		return models.Credentials{}, fmt.Errorf("%w: token mismatch", ErrCorruptRecord)
	}
	return models.Credentials{
		Username: secret.Username,
		Password: secret.Password,
		AuthKey:  secret.AuthKey,
	}, nil
}

// Revoke deletes the record for token. Unknown tokens are not an error.
func (v *Vault) Revoke(ctx context.Context, token string) (err error) {
	defer func() { metrics.RecordVaultOperation("revoke", err) }()

	if err := v.store.Delete(ctx, v.recordKey(token)); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	v.logger.Info().Str("token", logging.MaskSecret(token)).Msg("Revoked token")
	return nil
}

// ListActive yields every unexpired token. Records are read page by page in
// short read transactions, so concurrent Commit and Revoke are never blocked.
// A token committed during iteration may or may not be yielded; a revoked
// one is not yielded once its page has been read. Undecodable records yield
// an error and iteration continues. A store error ends iteration.
func (v *Vault) ListActive(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		after := ""
		for {
			entries, err := v.store.List(ctx, recordPrefix, after, listPageSize)
			if err != nil {
				yield("", fmt.Errorf("list credential records: %w", err))
				return
			}
			now := v.now()
			for _, entry := range entries {
				after = entry.Key
				rec, err := decodeRecord(entry.Value)
				if err != nil {
					if !yield("", fmt.Errorf("%s: %w", entry.Key, err)) {
						return
					}
					continue
				}
				if rec.Expired(now) {
					continue
				}
				secret, err := v.unseal(entry.Key, rec)
				if err != nil {
					if !yield("", fmt.Errorf("%s: %w", entry.Key, err)) {
						return
					}
					continue
				}
				if !yield(secret.Token, nil) {
					return
				}
			}
			if len(entries) < listPageSize {
				return
			}
		}
	}
}

// PurgeExpired deletes every expired record and returns their tokens.
// Records that cannot be unsealed are deleted too; their tokens are unknown.
// Each delete re-checks the record, so one re-issued after the scan survives.
func (v *Vault) PurgeExpired(ctx context.Context) (tokens []string, err error) {
	defer func() { metrics.RecordVaultOperation("purge", err) }()

	type candidate struct {
		key   string
		token string
	}
	now := v.now()
	var expired []candidate
	err = v.store.Scan(ctx, recordPrefix, func(key string, value []byte) error {
		rec, err := decodeRecord(value)
		if err != nil || !rec.Expired(now) {
			return nil
		}
		c := candidate{key: key}
		if secret, err := v.unseal(key, rec); err == nil {
			c.token = secret.Token
		}
		expired = append(expired, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan credential records: %w", err)
	}

	purged := 0
	for _, c := range expired {
		deleted, err := v.deleteIfExpired(ctx, c.key, now)
		if err != nil {
			return tokens, fmt.Errorf("delete expired record: %w", err)
		}
		if !deleted {
			continue
		}
		purged++
		if c.token != "" {
			tokens = append(tokens, c.token)
		}
	}
	if purged > 0 {
		v.logger.Info().Int("count", purged).Msg("Purged expired credential records")
	}
	return tokens, nil
}

// deleteIfExpired removes key only if the stored record is still expired
// at now.
func (v *Vault) deleteIfExpired(ctx context.Context, key string, now time.Time) (deleted bool, err error) {
	err = v.store.Update(ctx, key, func(value []byte, found bool) (*store.Mutation, error) {
		deleted = false
		if !found {
			return nil, nil
		}
		rec, err := decodeRecord(value)
		if err != nil || !rec.Expired(now) {
			return nil, nil
		}
		deleted = true
		return &store.Mutation{Delete: true}, nil
	})
	return deleted, err
}

func (v *Vault) load(ctx context.Context, key string) (*models.CredentialRecord, error) {
	raw, err := v.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return decodeRecord(raw)
}

// encodeRecord builds the store write for rec. The store keeps expired
// records for expiryGrace so Resolve can tell expired from unknown.
func encodeRecord(rec *models.CredentialRecord, now time.Time) (*store.Mutation, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode credential record: %w", err)
	}
	m := &store.Mutation{Value: raw}
	if !rec.ExpiresAt.IsZero() {
		m.TTL = rec.ExpiresAt.Sub(now) + expiryGrace
	}
	return m, nil
}

func (v *Vault) unseal(key string, rec *models.CredentialRecord) (*sealedSecret, error) {
	plaintext, err := v.sealer.open(rec.SealedPayload, []byte(key))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	var secret sealedSecret
	if err := json.Unmarshal(plaintext, &secret); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return &secret, nil
}

func decodeRecord(raw []byte) (*models.CredentialRecord, error) {
	var rec models.CredentialRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return &rec, nil
}
