// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

/*
Package metrics provides Prometheus instrumentation for Tollgate.

All collectors are registered with the default registry through promauto and
exposed at /metrics by the API server:

	curl http://localhost:8420/metrics

# Available Metrics

Rate limiter:
  - tollgate_limiter_decisions_total{result}
  - tollgate_limiter_attempts_total{outcome}
  - tollgate_limiter_blocks_total, tollgate_limiter_block_duration_seconds
  - tollgate_limiter_ip_blocks_total
  - tollgate_limiter_suspicious_total{rule}
  - tollgate_limiter_tracked{kind}

Challenges:
  - tollgate_challenges_issued_total{kind,difficulty}
  - tollgate_challenge_verifications_total{outcome}
  - tollgate_challenge_score, tollgate_challenge_solve_seconds
  - tollgate_challenges_pending

Risk:
  - tollgate_risk_assessments_total{level}
  - tollgate_risk_factors_total{factor}
  - tollgate_registry_errors_total{operation}
  - tollgate_registry_breaker_state

Background sweeps and HTTP:
  - tollgate_sweep_removed_total{sweeper,kind}, tollgate_sweep_duration_seconds{sweeper}
  - tollgate_api_requests_total, tollgate_api_request_duration_seconds
  - tollgate_api_active_requests, tollgate_api_rate_limit_hits_total

Components call the Record* helpers rather than touching collectors directly.
*/
package metrics
