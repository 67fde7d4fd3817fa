// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

/*
Package config loads Tollgate configuration with koanf v2.

# Configuration Sources

Sources are layered, later ones overriding earlier ones:

 1. Built-in defaults, taken from the component packages
 2. A YAML file: $CONFIG_PATH, config.yaml, config.yml,
    /etc/tollgate/config.yaml or /etc/tollgate/config.yml
 3. Mapped environment variables

Unmapped environment variables are ignored.

# Sections

  - limiter: attempt window, thresholds, block ladder, IP blocks, sweep
  - challenge: TTL, verify attempts, sweep
  - risk: registry backend, device retention, heuristics, circuit breaker
  - vpn: gluetun server list file and auto update
  - server: HTTP listener, API rate limit, CORS
  - logging: level, format, caller
  - supervisor: suture failure thresholds and shutdown timeout

# Environment Variables

Selected variables (see envMappings for the full list):

  - LIMITER_WINDOW, LIMITER_MAX_ATTEMPTS, LIMITER_LADDER (comma-separated)
  - CHALLENGE_TTL, CHALLENGE_MAX_VERIFY_ATTEMPTS
  - RISK_BACKEND (memory, badger), RISK_DEVICE_RETENTION
  - VPN_ENABLED, VPN_DATA_FILE, VPN_AUTO_UPDATE
  - HTTP_HOST, HTTP_PORT, RATE_LIMIT_REQUESTS, CORS_ORIGINS
  - OPERATOR_JWT_SECRET (32+ characters), OPERATOR_TOKEN_TTL
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

Durations use Go syntax ("90s", "15m", "24h").

# Example config.yaml

	limiter:
	  window: 15m
	  max_attempts: 5
	  ladder: [1m, 5m, 15m, 1h, 24h]
	risk:
	  backend: badger
	  suspect_timezones: [UTC, Etc/UTC]
	server:
	  port: 8790
	  cors_origins: [https://login.example.com]
*/
package config
