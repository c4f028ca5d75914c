// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package stremio

import (
	"strings"

	"github.com/goccy/go-json"
)

// Stremio API request bodies.
type loginRequest struct {
	Type     string `json:"type"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Facebook bool   `json:"facebook"`
}

type addonCollectionRequest struct {
	Type    string `json:"type"`
	AuthKey string `json:"authKey"`
	Update  bool   `json:"update"`
}

type datastoreRequest struct {
	AuthKey    string `json:"authKey"`
	Collection string `json:"collection"`
	All        bool   `json:"all"`
}

// apiEnvelope is the common response wrapper. Failures come back as HTTP 200
// with an error object (or bare string) instead of a result.
type apiEnvelope[T any] struct {
	Result  T               `json:"result"`
	Error   json.RawMessage `json:"error,omitempty"`
	Code    int             `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
}

// errorMessage returns the API error text, or "" when the call succeeded.
func (e *apiEnvelope[T]) errorMessage(fallback string) string {
	raw := strings.TrimSpace(string(e.Error))
	if raw == "" || raw == "null" {
		if e.Code != 0 && e.Message != "" {
			return e.Message
		}
		return ""
	}
	var asObject struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Error, &asObject); err == nil && asObject.Message != "" {
		return asObject.Message
	}
	var asString string
	if err := json.Unmarshal(e.Error, &asString); err == nil && asString != "" {
		return asString
	}
	return fallback
}

type loginResult struct {
	AuthKey string `json:"authKey"`
	User    struct {
		Email string `json:"email"`
	} `json:"user"`
}

type addonCollectionResult struct {
	Addons []json.RawMessage `json:"addons"`
}

type libraryItem struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	MTime string `json:"_mtime"`
	State struct {
		TimesWatched int `json:"timesWatched"`
	} `json:"state"`
}

type likeStatus struct {
	Status string `json:"status"`
}
