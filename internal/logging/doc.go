// Watchly - Personalized Stremio Recommendation Catalogs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchly

// Package logging provides centralized zerolog-based structured logging for Watchly.
//
// The package provides:
//   - A process-wide zerolog logger configured once at startup
//   - JSON output for production and console output for development
//   - Request ID propagation through context.Context
//   - An slog adapter so Suture v4 (via sutureslog) logs through zerolog
//   - Masking helpers so tokens, auth keys and usernames never reach logs in clear
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Str("addr", addr).Msg("Server starting")
//	logging.Ctx(ctx).Warn().Err(err).Msg("Catalog refresh failed")
//
// Components receive a zerolog.Logger at construction and tag it:
//
//	logger = logger.With().Str("component", "vault").Logger()
//
// # Configuration
//
// Environment Variables:
//
//	LOG_LEVEL   - Minimum log level: trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - Output format: json, console (default: json)
//	LOG_CALLER  - Include caller file:line: true, false (default: false)
//
// Programmatic Configuration:
//
//	logging.Init(logging.Config{
//	    Level:     "debug",    // trace, debug, info, warn, error, fatal
//	    Format:    "console",  // json or console
//	    Caller:    true,       // Include caller info
//	    Timestamp: true,       // Include timestamps
//	    Output:    os.Stderr,  // Output writer
//	})
//
// An unknown level falls back to info.
//
// # Request Context
//
// The HTTP layer stores a request-scoped logger (request ID, masked token)
// in the context. Ctx returns it, or the global logger when none is set:
//
//	logging.Ctx(r.Context()).Debug().Int("items", n).Msg("Catalog served")
//
// # Secrets
//
// Never log a token, password, or Stremio auth key directly. Use MaskSecret:
//
//	logging.Info().Str("token", logging.MaskSecret(token)).Msg("Token issued")
package logging
