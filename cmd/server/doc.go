// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

/*
Package main runs Tollgate as a sidecar HTTP service.

Tollgate decides whether a guarded action (a login, a signup, a password
reset) may proceed. It combines a per-identifier rate limiter with an
escalating block ladder, short-lived human-verification challenges and a
device risk profile built from client-reported signals.

# Process Layout

	Root ("tollgate")
	├── maintenance-layer
	│   ├── sweep-limiter       expired attempt records and metrics
	│   ├── sweep-challenges    expired challenges
	│   ├── sweep-devices       expired trusted/flagged devices
	│   └── vpn-updater         (optional) servers.json refresh
	└── api-layer
	    └── http-server         chi router, see package api

Startup order:

 1. Configuration: koanf v2, defaults < config.yaml < environment
 2. Logging: zerolog, json or console
 3. VPN lookup (optional, VPN_ENABLED)
 4. Guard engine: limiter, challenge manager, risk assessor and registry
 5. Supervisor tree: suture v4 with the sutureslog event hook
 6. HTTP server

# Configuration

Common environment variables:

	HTTP_PORT=8790
	LOG_LEVEL=info                 # trace, debug, info, warn, error
	LOG_FORMAT=json                # json or console
	LIMITER_MAX_ATTEMPTS=5
	LIMITER_WINDOW=15m
	LIMITER_LADDER=1m,5m,15m,1h,24h
	CHALLENGE_TTL=5m
	RISK_BACKEND=memory            # memory or badger
	RISK_BADGER_DIR=/var/lib/tollgate
	VPN_ENABLED=true
	VPN_AUTO_UPDATE=false
	CORS_ORIGINS=https://app.example.com
	OPERATOR_JWT_SECRET=...        # 32+ characters, guards operator routes

See package config for the full list.

# Operator Tokens

With OPERATOR_JWT_SECRET set, the operator routes (attempts/reset,
devices/flagged, ips/blocked, ips/{ip}/block) need a bearer token:

	./tollgate operator-token alice

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains
in-flight requests for HTTP_SHUTDOWN_TIMEOUT, sweepers stop, and the
device registry is closed last.

# Example

	export RISK_BACKEND=badger
	export RISK_BADGER_DIR=/var/lib/tollgate
	export LOG_FORMAT=console
	./tollgate

	curl -s -XPOST localhost:8790/api/v1/evaluate \
	  -d '{"identifier":"alice@example.com","ip":"203.0.113.9"}'
*/
package main
