// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Rate Limiter Metrics
	LimiterDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tollgate_limiter_decisions_total",
			Help: "Total number of IsAllowed decisions by result",
		},
		[]string{"result"}, // "allowed", "RATE_LIMITED", "BLOCKED_BY_IP"
	)

	LimiterAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tollgate_limiter_attempts_total",
			Help: "Total number of recorded attempts by outcome",
		},
		[]string{"outcome"}, // "success", "failure"
	)

	LimiterBlocks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tollgate_limiter_blocks_total",
			Help: "Total number of identifier blocks applied",
		},
	)

	LimiterBlockDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tollgate_limiter_block_duration_seconds",
			Help:    "Duration of applied identifier blocks",
			Buckets: []float64{60, 300, 900, 3600, 86400},
		},
	)

	LimiterIPBlocks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tollgate_limiter_ip_blocks_total",
			Help: "Total number of source IPs added to the blocked set",
		},
	)

	LimiterSuspicious = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tollgate_limiter_suspicious_total",
			Help: "Total number of suspicious-activity triggers by rule",
		},
		[]string{"rule"}, // "rapid_attempts", "high_failure_rate", "identifier_fanout"
	)

	LimiterTracked = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tollgate_limiter_tracked",
			Help: "Current number of tracked limiter entries by kind",
		},
		[]string{"kind"}, // "records", "metrics", "blocked_ips", "fanout_ips"
	)

	// Challenge Metrics
	ChallengesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tollgate_challenges_issued_total",
			Help: "Total number of challenges issued",
		},
		[]string{"kind", "difficulty"},
	)

	ChallengeVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tollgate_challenge_verifications_total",
			Help: "Total number of challenge verifications by outcome",
		},
		[]string{"outcome"},
	)

	ChallengeScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tollgate_challenge_score",
			Help:    "Score of successfully solved challenges",
			Buckets: []float64{10, 20, 40, 60, 80, 90, 100},
		},
	)

	ChallengeSolveTime = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tollgate_challenge_solve_seconds",
			Help:    "Client-reported time to solve a challenge",
			Buckets: []float64{1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	ChallengesPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tollgate_challenges_pending",
			Help: "Current number of unresolved challenges",
		},
	)

	// Risk Metrics
	RiskAssessments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tollgate_risk_assessments_total",
			Help: "Total number of risk assessments by level",
		},
		[]string{"level"},
	)

	RiskFactors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tollgate_risk_factors_total",
			Help: "Total number of triggered risk factors",
		},
		[]string{"factor"},
	)

	RegistryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tollgate_registry_errors_total",
			Help: "Total number of device registry errors",
		},
		[]string{"operation"},
	)

	RegistryBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tollgate_registry_breaker_state",
			Help: "Device registry circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Sweep Metrics
	SweepRemoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tollgate_sweep_removed_total",
			Help: "Total number of entries removed by background sweeps",
		},
		[]string{"sweeper", "kind"},
	)

	SweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tollgate_sweep_duration_seconds",
			Help:    "Duration of background sweeps",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"sweeper"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tollgate_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tollgate_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tollgate_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tollgate_api_rate_limit_hits_total",
			Help: "Total number of HTTP-level rate limit rejections",
		},
		[]string{"endpoint"},
	)
)

// RecordDecision records the result of an IsAllowed call. An empty reason
// means the call was allowed.
func RecordDecision(reason string) {
	if reason == "" {
		reason = "allowed"
	}
	LimiterDecisions.WithLabelValues(reason).Inc()
}

// RecordAttempt records an attempt outcome.
func RecordAttempt(success bool) {
	if success {
		LimiterAttempts.WithLabelValues("success").Inc()
		return
	}
	LimiterAttempts.WithLabelValues("failure").Inc()
}

// RecordBlock records an identifier block and its duration.
func RecordBlock(duration time.Duration) {
	LimiterBlocks.Inc()
	LimiterBlockDuration.Observe(duration.Seconds())
}

// RecordIPBlock records an IP joining the blocked set.
func RecordIPBlock() {
	LimiterIPBlocks.Inc()
}

// RecordSuspicious records one suspicious-activity rule trigger.
func RecordSuspicious(rule string) {
	LimiterSuspicious.WithLabelValues(rule).Inc()
}

// UpdateLimiterGauges sets the tracked-entry gauges.
func UpdateLimiterGauges(records, securityMetrics, blockedIPs, fanoutIPs int) {
	LimiterTracked.WithLabelValues("records").Set(float64(records))
	LimiterTracked.WithLabelValues("metrics").Set(float64(securityMetrics))
	LimiterTracked.WithLabelValues("blocked_ips").Set(float64(blockedIPs))
	LimiterTracked.WithLabelValues("fanout_ips").Set(float64(fanoutIPs))
}

// RecordChallengeIssued records a generated challenge.
func RecordChallengeIssued(kind, difficulty string) {
	ChallengesIssued.WithLabelValues(kind, difficulty).Inc()
	ChallengesPending.Inc()
}

// RecordChallengeVerification records a verify call. Terminal outcomes
// (solved, expired, exhausted) release a pending challenge.
func RecordChallengeVerification(outcome string, terminal bool, score int, timeToSolve time.Duration) {
	ChallengeVerifications.WithLabelValues(outcome).Inc()
	if terminal {
		ChallengesPending.Dec()
	}
	if score > 0 {
		ChallengeScore.Observe(float64(score))
		ChallengeSolveTime.Observe(timeToSolve.Seconds())
	}
}

// SetChallengesPending sets the pending gauge after a sweep.
func SetChallengesPending(n int) {
	ChallengesPending.Set(float64(n))
}

// RecordRiskAssessment records an assessment level and its factors.
func RecordRiskAssessment(level string, factors []string) {
	RiskAssessments.WithLabelValues(level).Inc()
	for _, f := range factors {
		RiskFactors.WithLabelValues(f).Inc()
	}
}

// RecordRegistryError records a failed registry operation.
func RecordRegistryError(operation string) {
	RegistryErrors.WithLabelValues(operation).Inc()
}

// SetRegistryBreakerState records the breaker state (0=closed, 1=half-open, 2=open).
func SetRegistryBreakerState(state int) {
	RegistryBreakerState.Set(float64(state))
}

// RecordSweep records one sweep run.
func RecordSweep(sweeper string, duration time.Duration, removed map[string]int) {
	SweepDuration.WithLabelValues(sweeper).Observe(duration.Seconds())
	for kind, n := range removed {
		if n > 0 {
			SweepRemoved.WithLabelValues(sweeper, kind).Add(float64(n))
		}
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordAPIRateLimitHit records a request rejected by the HTTP rate limiter.
func RecordAPIRateLimitHit(endpoint string) {
	APIRateLimitHits.WithLabelValues(endpoint).Inc()
}
