// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package models

import (
	"errors"
	"time"
)

// Shared failure classes between the provider clients and the core.
var (
	// ErrInvalidCredentials means the identity provider rejected the credentials.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUpstreamUnavailable means a remote provider could not be reached
	// or kept failing after bounded retries.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrNotFound means a remote provider has no record of the requested item.
	ErrNotFound = errors.New("not found")
)

// AuthMode says which kind of secret a credential record holds.
type AuthMode string

const (
	AuthModePasswordPair AuthMode = "password_pair"
	AuthModeSessionKey   AuthMode = "session_key"
)

// Preference controls which library items seed recommendations.
type Preference string

const (
	PreferenceLovedOnly       Preference = "loved_only"
	PreferenceLovedAndWatched Preference = "loved_and_watched"
)

// PreferenceFromIncludeWatched maps the addon form checkbox to a Preference.
func PreferenceFromIncludeWatched(includeWatched bool) Preference {
	if includeWatched {
		return PreferenceLovedAndWatched
	}
	return PreferenceLovedOnly
}

// IncludeWatched is the inverse of PreferenceFromIncludeWatched.
func (p Preference) IncludeWatched() bool {
	return p == PreferenceLovedAndWatched
}

// Credentials are the user's Stremio secrets in clear. They only exist in
// memory between the vault's unseal boundary and the library provider.
type Credentials struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	AuthKey  string `json:"authKey,omitempty"`
}

// Mode reports which secret is authoritative. A username/password pair wins
// over an auth key because auth keys expire and passwords do not.
func (c Credentials) Mode() AuthMode {
	if c.Username != "" && c.Password != "" {
		return AuthModePasswordPair
	}
	return AuthModeSessionKey
}

// Identity is a validated Stremio session.
type Identity struct {
	AuthKey string
	// Email is set when the provider returns it; used only for masked logging.
	Email string
}

// CredentialRecord is what the vault persists per token.
// SealedPayload is opaque outside the vault.
type CredentialRecord struct {
	Token         string     `json:"-"`
	AuthMode      AuthMode   `json:"auth_mode"`
	SealedPayload string     `json:"sealed_payload"`
	Preference    Preference `json:"preference"`
	CreatedAt     time.Time  `json:"created_at"`
	// ExpiresAt is zero for records that never expire.
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the record is past its expiry at now.
func (r *CredentialRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// LibraryEntry is one loved or watched item from the user's library.
type LibraryEntry struct {
	ExternalID  string      `json:"external_id"`
	ContentType ContentType `json:"content_type"`
	Name        string      `json:"name,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}

// Library is the user's library as fetched from the provider.
type Library struct {
	Loved   []LibraryEntry `json:"loved"`
	Watched []LibraryEntry `json:"watched"`
}

// WatchedSet returns the set of watched external ids.
func (l *Library) WatchedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(l.Watched))
	for _, e := range l.Watched {
		set[e.ExternalID] = struct{}{}
	}
	return set
}
