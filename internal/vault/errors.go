// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package vault

import (
	"errors"
	"fmt"

	"github.com/tomtom215/watchly/internal/models"
)

var (
	// ErrNotFound is returned by Resolve for unknown or revoked tokens.
	ErrNotFound = errors.New("token not found")

	// ErrExpired is returned by Resolve when the record has passed its expiry.
	// The record is deleted as a side effect.
	ErrExpired = errors.New("token expired")

	// ErrInsecureSalt is returned by New for an empty or placeholder salt.
	ErrInsecureSalt = errors.New("token salt is unset or the insecure placeholder")

	// ErrPrimingFailed is returned by Issue when the initial catalog build fails.
	// Nothing is committed in that case.
	ErrPrimingFailed = errors.New("initial catalog build failed")

	// ErrCorruptRecord is returned when a stored record cannot be decoded or unsealed.
	ErrCorruptRecord = errors.New("corrupt credential record")
)

// AuthErrorKind classifies a validation failure.
type AuthErrorKind string

const (
	// AuthInvalidCredentials covers malformed input and provider rejections.
	AuthInvalidCredentials AuthErrorKind = "invalid_credentials"
	// AuthUpstreamUnavailable means the identity provider could not be reached.
	AuthUpstreamUnavailable AuthErrorKind = "upstream_unavailable"
)

// AuthError is returned by Validate and Issue. It is never retried.
type AuthError struct {
	Kind    AuthErrorKind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is matches the shared provider sentinels so callers can classify without
// importing this package.
func (e *AuthError) Is(target error) bool {
	switch e.Kind {
	case AuthInvalidCredentials:
		return target == models.ErrInvalidCredentials
	case AuthUpstreamUnavailable:
		return target == models.ErrUpstreamUnavailable
	}
	return false
}

func invalidShape(msg string) error {
	return &AuthError{Kind: AuthInvalidCredentials, Message: msg}
}
