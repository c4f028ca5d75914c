// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Scoring strategies for merging per-seed recommendations.
const (
	ScoringSum     = "sum"
	ScoringRecency = "recency"
)

// MinRefreshInterval guards upstream providers against tight refresh loops.
const MinRefreshInterval = time.Minute

// ErrInsecureTokenSalt is returned when TOKEN_SALT is unset or still the placeholder.
var ErrInsecureTokenSalt = errors.New("TOKEN_SALT must be set to a unique secret value")

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := c.validateRecommend(); err != nil {
		return err
	}
	if err := c.validateRefresh(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if err := validateHTTPURL(c.Server.BaseURL); err != nil {
		return fmt.Errorf("BASE_URL is invalid: %w", err)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if IsInsecureSalt(c.Security.TokenSalt) {
		return ErrInsecureTokenSalt
	}
	if c.Security.TokenTTL < 0 {
		return fmt.Errorf("TOKEN_TTL must not be negative, got %v", c.Security.TokenTTL)
	}
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.Security.RateLimitReqs)
		}
		if c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %v", c.Security.RateLimitWindow)
		}
	}
	return nil
}

func (c *Config) validateStore() error {
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("STORE_PATH is required unless STORE_IN_MEMORY=true")
	}
	if c.Store.GCDiscardRatio <= 0 || c.Store.GCDiscardRatio >= 1 {
		return fmt.Errorf("store.gc_discard_ratio must be in (0, 1), got %v", c.Store.GCDiscardRatio)
	}
	return nil
}

func (c *Config) validateProviders() error {
	if err := validateHTTPURL(c.Stremio.APIURL); err != nil {
		return fmt.Errorf("STREMIO_API_URL is invalid: %w", err)
	}
	if err := validateHTTPURL(c.Stremio.LikesURL); err != nil {
		return fmt.Errorf("STREMIO_LIKES_URL is invalid: %w", err)
	}
	if err := validateUpstream("stremio", c.Stremio.Upstream); err != nil {
		return err
	}
	if c.Stremio.LovedLimit < 1 || c.Stremio.LikesBatchSize < 1 {
		return fmt.Errorf("stremio.loved_limit and stremio.likes_batch_size must be positive")
	}

	if strings.TrimSpace(c.TMDB.APIKey) == "" {
		return fmt.Errorf("TMDB_API_KEY is required")
	}
	if err := validateHTTPURL(c.TMDB.BaseURL); err != nil {
		return fmt.Errorf("TMDB_BASE_URL is invalid: %w", err)
	}
	if c.TMDB.CacheSize < 1 {
		return fmt.Errorf("TMDB_CACHE_SIZE must be positive, got %d", c.TMDB.CacheSize)
	}
	return validateUpstream("tmdb", c.TMDB.Upstream)
}

func validateUpstream(name string, u UpstreamConfig) error {
	if u.Timeout <= 0 {
		return fmt.Errorf("%s.upstream.timeout must be positive", name)
	}
	if u.MaxAttempts < 1 || u.MaxAttempts > 5 {
		return fmt.Errorf("%s.upstream.max_attempts must be between 1 and 5, got %d", name, u.MaxAttempts)
	}
	if u.RequestsPerSecond <= 0 || u.Burst < 1 {
		return fmt.Errorf("%s.upstream rate limit must be positive", name)
	}
	return nil
}

func (c *Config) validateRecommend() error {
	r := c.Recommend
	if r.SeedLimit < 1 {
		return fmt.Errorf("RECOMMENDATION_SOURCE_ITEMS_LIMIT must be positive, got %d", r.SeedLimit)
	}
	if r.PerSeedLimit < 1 || r.MaxResults < 1 {
		return fmt.Errorf("recommend.per_seed_limit and recommend.max_results must be positive")
	}
	if r.SeedConcurrency < 1 || r.MetadataConcurrency < 1 {
		return fmt.Errorf("recommend concurrency limits must be positive")
	}
	switch r.Scoring {
	case ScoringSum:
	case ScoringRecency:
		if r.RecencyDecay <= 0 || r.RecencyDecay > 1 {
			return fmt.Errorf("recommend.recency_decay must be in (0, 1], got %v", r.RecencyDecay)
		}
	default:
		return fmt.Errorf("RECOMMENDATION_SCORING must be %q or %q, got %q", ScoringSum, ScoringRecency, r.Scoring)
	}
	return nil
}

func (c *Config) validateRefresh() error {
	r := c.Refresh
	if r.Interval < MinRefreshInterval {
		return fmt.Errorf("CATALOG_REFRESH_INTERVAL must be at least %v, got %v", MinRefreshInterval, r.Interval)
	}
	if r.MaxConcurrency < 1 {
		return fmt.Errorf("REFRESH_MAX_CONCURRENCY must be positive, got %d", r.MaxConcurrency)
	}
	if r.TokenTimeout <= 0 {
		return fmt.Errorf("REFRESH_TOKEN_TIMEOUT must be positive")
	}
	if r.SweepDeadline <= 0 || r.SweepDeadline > r.Interval {
		return fmt.Errorf("REFRESH_SWEEP_DEADLINE must be positive and not exceed the refresh interval")
	}
	// A cold catalog request runs one refresh inside the HTTP write deadline.
	if c.Server.Timeout < r.TokenTimeout {
		return fmt.Errorf("SERVER_TIMEOUT (%v) must be at least REFRESH_TOKEN_TIMEOUT (%v)", c.Server.Timeout, r.TokenTimeout)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
}

// IsInsecureSalt reports whether salt is empty or the shipped placeholder.
func IsInsecureSalt(salt string) bool {
	s := strings.TrimSpace(salt)
	return s == "" || s == insecureDefaultSalt
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("host is required")
	}
	return nil
}
