// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in defaults from defaultConfig()
//  2. Config File: optional YAML file (CONFIG_PATH, ./config.yaml, /etc/watchly/config.yaml)
//  3. Environment Variables: override any mapped setting
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load configuration")
//	}
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	Store     StoreConfig     `koanf:"store"`
	Stremio   StremioConfig   `koanf:"stremio"`
	TMDB      TMDBConfig      `koanf:"tmdb"`
	Recommend RecommendConfig `koanf:"recommend"`
	Refresh   RefreshConfig   `koanf:"refresh"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
	// BaseURL is the public origin used to build manifest URLs.
	BaseURL         string        `koanf:"base_url"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig holds token and HTTP protection settings.
type SecurityConfig struct {
	// TokenSalt keys token derivation and credential encryption.
	// Changing it invalidates every issued token.
	TokenSalt string `koanf:"token_salt"`

	// TokenTTL of zero means tokens never expire.
	TokenTTL time.Duration `koanf:"token_ttl"`

	// RefreshTTLOnReuse pushes an existing token's expiry forward when the same
	// credentials are submitted again.
	RefreshTTLOnReuse bool `koanf:"refresh_ttl_on_reuse"`

	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	// IssueRateLimitReqs applies per IP to POST /api/tokens, which logs into Stremio.
	IssueRateLimitReqs int `koanf:"issue_rate_limit_requests"`
}

// StoreConfig configures the BadgerDB key-value store.
type StoreConfig struct {
	Path       string        `koanf:"path"`
	InMemory   bool          `koanf:"in_memory"`
	SyncWrites bool          `koanf:"sync_writes"`
	GCInterval time.Duration `koanf:"gc_interval"`
	// GCDiscardRatio is passed to badger's value log GC.
	GCDiscardRatio float64 `koanf:"gc_discard_ratio"`
}

// UpstreamConfig holds the transport settings shared by every remote provider.
type UpstreamConfig struct {
	Timeout           time.Duration `koanf:"timeout"`
	MaxAttempts       int           `koanf:"max_attempts"`
	RetryDelay        time.Duration `koanf:"retry_delay"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Burst             int           `koanf:"burst"`
}

// StremioConfig configures the library and identity provider client.
type StremioConfig struct {
	APIURL   string         `koanf:"api_url"`
	LikesURL string         `koanf:"likes_url"`
	Upstream UpstreamConfig `koanf:"upstream"`
	// LovedLimit is how many loved items per content type to collect.
	LovedLimit int `koanf:"loved_limit"`
	// LikesBatchSize is how many watched items are checked for loved status per round.
	LikesBatchSize int `koanf:"likes_batch_size"`
}

// TMDBConfig configures the metadata and recommendation provider client.
type TMDBConfig struct {
	APIKey    string         `koanf:"api_key"`
	BaseURL   string         `koanf:"base_url"`
	ImageURL  string         `koanf:"image_url"`
	Language  string         `koanf:"language"`
	Upstream  UpstreamConfig `koanf:"upstream"`
	CacheSize int            `koanf:"cache_size"`
	CacheTTL  time.Duration  `koanf:"cache_ttl"`
	// HTTPCache enables RFC 7234 response caching in front of TMDB.
	HTTPCache bool `koanf:"http_cache"`
}

// RecommendConfig configures the recommendation pipeline.
type RecommendConfig struct {
	SeedLimit           int     `koanf:"seed_limit"`
	PerSeedLimit        int     `koanf:"per_seed_limit"`
	MaxResults          int     `koanf:"max_results"`
	SeedConcurrency     int     `koanf:"seed_concurrency"`
	MetadataConcurrency int     `koanf:"metadata_concurrency"`
	Scoring             string  `koanf:"scoring"`
	RecencyDecay        float64 `koanf:"recency_decay"`
}

// RefreshConfig configures the background catalog refresh scheduler.
type RefreshConfig struct {
	Enabled        bool          `koanf:"enabled"`
	Interval       time.Duration `koanf:"interval"`
	OnStartup      bool          `koanf:"on_startup"`
	MaxConcurrency int           `koanf:"max_concurrency"`
	TokenTimeout   time.Duration `koanf:"token_timeout"`
	// SweepDeadline is the soft deadline after which a sweep stops starting new tokens.
	SweepDeadline time.Duration `koanf:"sweep_deadline"`
}

// LoggingConfig configures the global zerolog logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load loads configuration from defaults, an optional YAML file, and the environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
