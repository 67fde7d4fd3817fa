// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

// Package logging provides centralized zerolog-based structured logging for Tollgate.
//
// All packages log through the package-level helpers so that a single
// Init call in main() controls level and format:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("identifier", id).Msg("Attempt blocked")
//
// Request-scoped logging carries request and correlation IDs:
//
//	logging.Ctx(ctx).Warn().Msg("Challenge exhausted")
//
// SecurityLogger emits the engine's security events (blocks, IP bans,
// challenge outcomes, device flags) with identifiers masked. SlogHandler
// bridges zerolog to log/slog for libraries such as sutureslog.
//
// Environment Variables (read by internal/config):
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false (default: false)
//
// Always terminate log chains with .Msg() or .Send(); an unterminated event
// is never written.
package logging
