// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/watchly/config.yaml",
	"/etc/watchly/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// insecureDefaultSalt is the placeholder salt shipped in examples. Validate
// rejects it so a deployment cannot silently run with a public key.
const insecureDefaultSalt = "change-me"

func defaultUpstream(rps float64, burst int) UpstreamConfig {
	return UpstreamConfig{
		Timeout:           10 * time.Second,
		MaxAttempts:       3,
		RetryDelay:        500 * time.Millisecond,
		RequestsPerSecond: rps,
		Burst:             burst,
	}
}

// defaultConfig returns a Config with all defaults applied.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			BaseURL:         "http://localhost:8000",
			// Covers a synchronous cold-catalog build (refresh.token_timeout).
			Timeout:         150 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Security: SecurityConfig{
			TokenSalt:          insecureDefaultSalt,
			TokenTTL:           0, // never expire
			RefreshTTLOnReuse:  false,
			CORSOrigins:        []string{"*"}, // Stremio clients fetch from arbitrary origins
			RateLimitReqs:      120,
			RateLimitWindow:    time.Minute,
			IssueRateLimitReqs: 10,
		},
		Store: StoreConfig{
			Path:           "/data/watchly",
			GCInterval:     10 * time.Minute,
			GCDiscardRatio: 0.5,
		},
		Stremio: StremioConfig{
			APIURL:         "https://api.strem.io",
			LikesURL:       "https://likes.stremio.com",
			Upstream:       defaultUpstream(5, 10),
			LovedLimit:     10,
			LikesBatchSize: 20,
		},
		TMDB: TMDBConfig{
			BaseURL:   "https://api.themoviedb.org/3",
			ImageURL:  "https://image.tmdb.org/t/p",
			Language:  "en-US",
			Upstream:  defaultUpstream(20, 40), // TMDB allows ~50 req/s per IP
			CacheSize: 10000,
			CacheTTL:  24 * time.Hour,
			HTTPCache: true,
		},
		Recommend: RecommendConfig{
			SeedLimit:           10,
			PerSeedLimit:        10,
			MaxResults:          50,
			SeedConcurrency:     4,
			MetadataConcurrency: 8,
			Scoring:             ScoringSum,
			RecencyDecay:        0.9,
		},
		Refresh: RefreshConfig{
			Enabled:        true,
			Interval:       6 * time.Hour,
			OnStartup:      false,
			MaxConcurrency: 4,
			TokenTimeout:   2 * time.Minute,
			SweepDeadline:  5 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults
//  2. Config File (optional)
//  3. Environment Variables
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// TOKEN_SALT -> security.token_salt, TMDB_API_KEY -> tmdb.api_key, ...
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when they come from the environment.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lowercased environment variable names to koanf paths.
// Unmapped variables are ignored so unrelated environment cannot leak into config.
var envMappings = map[string]string{
	// Server
	"http_host":        "server.host",
	"http_port":        "server.port",
	"port":             "server.port",
	"base_url":         "server.base_url",
	"server_timeout":   "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",

	// Security
	"token_salt":                "security.token_salt",
	"token_ttl":                 "security.token_ttl",
	"token_refresh_on_reuse":    "security.refresh_ttl_on_reuse",
	"cors_origins":              "security.cors_origins",
	"rate_limit_requests":       "security.rate_limit_requests",
	"rate_limit_window":         "security.rate_limit_window",
	"disable_rate_limit":        "security.rate_limit_disabled",
	"issue_rate_limit_requests": "security.issue_rate_limit_requests",

	// Store
	"store_path":        "store.path",
	"store_in_memory":   "store.in_memory",
	"store_sync_writes": "store.sync_writes",
	"store_gc_interval": "store.gc_interval",

	// Stremio
	"stremio_api_url":      "stremio.api_url",
	"stremio_likes_url":    "stremio.likes_url",
	"stremio_timeout":      "stremio.upstream.timeout",
	"stremio_max_attempts": "stremio.upstream.max_attempts",
	"stremio_rps":          "stremio.upstream.requests_per_second",
	"stremio_loved_limit":  "stremio.loved_limit",

	// TMDB
	"tmdb_api_key":      "tmdb.api_key",
	"tmdb_base_url":     "tmdb.base_url",
	"tmdb_language":     "tmdb.language",
	"tmdb_timeout":      "tmdb.upstream.timeout",
	"tmdb_max_attempts": "tmdb.upstream.max_attempts",
	"tmdb_rps":          "tmdb.upstream.requests_per_second",
	"tmdb_cache_size":   "tmdb.cache_size",
	"tmdb_cache_ttl":    "tmdb.cache_ttl",
	"tmdb_http_cache":   "tmdb.http_cache",

	// Recommendation pipeline
	"recommendation_source_items_limit": "recommend.seed_limit",
	"recommendation_per_seed_limit":     "recommend.per_seed_limit",
	"recommendation_max_results":        "recommend.max_results",
	"recommendation_scoring":            "recommend.scoring",

	// Refresh scheduler
	"auto_update_catalogs":       "refresh.enabled",
	"catalog_refresh_interval":   "refresh.interval",
	"catalog_refresh_on_startup": "refresh.on_startup",
	"refresh_max_concurrency":    "refresh.max_concurrency",
	"refresh_token_timeout":      "refresh.token_timeout",
	"refresh_sweep_deadline":     "refresh.sweep_deadline",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - TOKEN_SALT -> security.token_salt
//   - AUTO_UPDATE_CATALOGS -> refresh.enabled
//   - CATALOG_REFRESH_INTERVAL -> refresh.interval
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
