// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package logging

const maskedSuffixLen = 6

// MaskSecret masks a token or auth key, keeping only the last six characters.
// Example: "3f9a0c...e81b24" -> "***e81b24"
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= maskedSuffixLen*2 {
		return "***"
	}
	return "***" + secret[len(secret)-maskedSuffixLen:]
}

// SanitizeUsername masks a username or email, keeping the first two characters.
// Example: "johndoe@example.com" -> "jo***"
func SanitizeUsername(username string) string {
	if username == "" {
		return ""
	}
	if len(username) <= 2 {
		return "***"
	}
	return username[:2] + "***"
}
