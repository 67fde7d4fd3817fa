// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDecision(t *testing.T) {
	tests := []struct {
		name   string
		reason string
		label  string
	}{
		{"allowed", "", "allowed"},
		{"rate limited", "RATE_LIMITED", "RATE_LIMITED"},
		{"blocked by ip", "BLOCKED_BY_IP", "BLOCKED_BY_IP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(LimiterDecisions.WithLabelValues(tt.label))
			RecordDecision(tt.reason)
			after := testutil.ToFloat64(LimiterDecisions.WithLabelValues(tt.label))
			if after-before != 1 {
				t.Errorf("expected %s counter to increase by 1, got %v", tt.label, after-before)
			}
		})
	}
}

func TestRecordAttempt(t *testing.T) {
	success := testutil.ToFloat64(LimiterAttempts.WithLabelValues("success"))
	failure := testutil.ToFloat64(LimiterAttempts.WithLabelValues("failure"))

	RecordAttempt(true)
	RecordAttempt(false)
	RecordAttempt(false)

	if got := testutil.ToFloat64(LimiterAttempts.WithLabelValues("success")) - success; got != 1 {
		t.Errorf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(LimiterAttempts.WithLabelValues("failure")) - failure; got != 2 {
		t.Errorf("expected 2 failures, got %v", got)
	}
}

func TestRecordBlock(t *testing.T) {
	before := testutil.ToFloat64(LimiterBlocks)
	RecordBlock(5 * time.Minute)
	if got := testutil.ToFloat64(LimiterBlocks) - before; got != 1 {
		t.Errorf("expected block counter +1, got %v", got)
	}
}

func TestUpdateLimiterGauges(t *testing.T) {
	UpdateLimiterGauges(7, 9, 2, 4)

	if got := testutil.ToFloat64(LimiterTracked.WithLabelValues("records")); got != 7 {
		t.Errorf("records gauge = %v, want 7", got)
	}
	if got := testutil.ToFloat64(LimiterTracked.WithLabelValues("metrics")); got != 9 {
		t.Errorf("metrics gauge = %v, want 9", got)
	}
	if got := testutil.ToFloat64(LimiterTracked.WithLabelValues("blocked_ips")); got != 2 {
		t.Errorf("blocked_ips gauge = %v, want 2", got)
	}
	if got := testutil.ToFloat64(LimiterTracked.WithLabelValues("fanout_ips")); got != 4 {
		t.Errorf("fanout_ips gauge = %v, want 4", got)
	}
}

func TestChallengeLifecycleMetrics(t *testing.T) {
	SetChallengesPending(0)

	RecordChallengeIssued("math", "easy")
	RecordChallengeIssued("slider", "hard")
	if got := testutil.ToFloat64(ChallengesPending); got != 2 {
		t.Fatalf("pending = %v, want 2", got)
	}

	RecordChallengeVerification("incorrect", false, 0, 0)
	if got := testutil.ToFloat64(ChallengesPending); got != 2 {
		t.Errorf("non-terminal outcome changed pending to %v", got)
	}

	before := testutil.ToFloat64(ChallengeVerifications.WithLabelValues("solved"))
	RecordChallengeVerification("solved", true, 95, 4*time.Second)
	if got := testutil.ToFloat64(ChallengesPending); got != 1 {
		t.Errorf("pending = %v, want 1", got)
	}
	if got := testutil.ToFloat64(ChallengeVerifications.WithLabelValues("solved")) - before; got != 1 {
		t.Errorf("solved counter delta = %v, want 1", got)
	}
}

func TestRecordRiskAssessment(t *testing.T) {
	level := testutil.ToFloat64(RiskAssessments.WithLabelValues("high"))
	factor := testutil.ToFloat64(RiskFactors.WithLabelValues("automation_detected"))

	RecordRiskAssessment("high", []string{"unknown_device", "automation_detected"})

	if got := testutil.ToFloat64(RiskAssessments.WithLabelValues("high")) - level; got != 1 {
		t.Errorf("level delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(RiskFactors.WithLabelValues("automation_detected")) - factor; got != 1 {
		t.Errorf("factor delta = %v, want 1", got)
	}
}

func TestRecordSweep(t *testing.T) {
	before := testutil.ToFloat64(SweepRemoved.WithLabelValues("limiter", "records"))

	RecordSweep("limiter", time.Millisecond, map[string]int{"records": 3, "metrics": 0})

	if got := testutil.ToFloat64(SweepRemoved.WithLabelValues("limiter", "records")) - before; got != 3 {
		t.Errorf("records removed delta = %v, want 3", got)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/v1/attempts/check", "200"))
	RecordAPIRequest("POST", "/api/v1/attempts/check", 200, 3*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/v1/attempts/check", "200"))
	if after-before != 1 {
		t.Errorf("request counter delta = %v, want 1", after-before)
	}
}

func TestConcurrentMetricRecording(t *testing.T) {
	before := testutil.ToFloat64(LimiterSuspicious.WithLabelValues("rapid_attempts"))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				RecordSuspicious("rapid_attempts")
				TrackActiveRequest(true)
				TrackActiveRequest(false)
			}
		}()
	}
	wg.Wait()

	if got := testutil.ToFloat64(LimiterSuspicious.WithLabelValues("rapid_attempts")) - before; got != 1000 {
		t.Errorf("suspicious delta = %v, want 1000", got)
	}
}
