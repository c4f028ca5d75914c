// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package vault

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/watchly/internal/models"
)

// Normalize trims the credentials and checks their shape. It never contacts
// the identity provider.
//
// Rules:
//   - username and auth key are trimmed, the auth key also loses wrapping quotes
//   - the password is kept verbatim
//   - a username needs a password and a password needs a username
//   - either an auth key or a complete pair must be present
func Normalize(creds models.Credentials) (models.Credentials, error) {
	norm := normalizeFields(creds)

	switch {
	case norm.Username != "" && norm.Password == "":
		return norm, invalidShape("password is required when a username is provided")
	case norm.Password != "" && norm.Username == "":
		return norm, invalidShape("username is required when a password is provided")
	case norm.AuthKey == "" && norm.Username == "":
		return norm, invalidShape("provide either an auth key or both username and password")
	}
	return norm, nil
}

func normalizeFields(creds models.Credentials) models.Credentials {
	authKey := strings.TrimSpace(creds.AuthKey)
	if len(authKey) >= 2 && strings.HasPrefix(authKey, `"`) && strings.HasSuffix(authKey, `"`) {
		authKey = strings.TrimSpace(authKey[1 : len(authKey)-1])
	}
	return models.Credentials{
		Username: strings.TrimSpace(creds.Username),
		Password: creds.Password,
		AuthKey:  authKey,
	}
}

// canonicalSecret fixes the field order of the token derivation input.
// Keys are in lexical order so the encoding is stable.
type canonicalSecret struct {
	AuthKey        string `json:"authKey"`
	IncludeWatched bool   `json:"includeWatched"`
	Password       string `json:"password"`
	Username       string `json:"username"`
}

// DeriveToken returns the token for the normalized credentials and preference:
// hex HMAC-SHA256 keyed by the salt over a canonical compact JSON document.
// The same inputs always yield the same token.
func (v *Vault) DeriveToken(creds models.Credentials, pref models.Preference) string {
	norm := normalizeFields(creds)
	canonical, _ := json.Marshal(canonicalSecret{
		AuthKey:        norm.AuthKey,
		IncludeWatched: pref.IncludeWatched(),
		Password:       norm.Password,
		Username:       norm.Username,
	})
	return hmacHex(v.salt, canonical)
}

// recordKey hides the raw token from anyone who can read the store.
func (v *Vault) recordKey(token string) string {
	return recordPrefix + hmacHex(v.salt, []byte(token))
}

func hmacHex(key, msg []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil))
}
