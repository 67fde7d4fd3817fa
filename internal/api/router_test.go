// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/tomtom215/tollgate/internal/challenge"
	"github.com/tomtom215/tollgate/internal/guard"
	"github.com/tomtom215/tollgate/internal/logging"
	"github.com/tomtom215/tollgate/internal/metrics"
	"github.com/tomtom215/tollgate/internal/ratelimit"
	"github.com/tomtom215/tollgate/internal/riskprofile"
	"github.com/tomtom215/tollgate/internal/vpn"
)

// zeroRand always draws 0: easy challenges are "What is 0 + 0?".
type zeroRand struct{}

func (zeroRand) Intn(int) int { return 0 }

type fakeVPN struct{}

func (fakeVPN) Enabled() bool    { return true }
func (fakeVPN) Stats() vpn.Stats { return vpn.Stats{TotalProviders: 2, TotalIPs: 10} }

// envelope decodes APIResponse with the payload left raw.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

// setupRouterTest builds the full handler stack over a fresh engine. The API
// rate limit is disabled so tests can hammer one remote address.
func setupRouterTest(t *testing.T) http.Handler {
	t.Helper()

	engine, err := guard.New(guard.DefaultConfig(),
		guard.WithRand(zeroRand{}),
		guard.WithSecurityLogger(logging.NewSecurityLoggerWithLogger(zerolog.Nop())),
	)
	if err != nil {
		t.Fatalf("guard.New() error = %v", err)
	}
	t.Cleanup(func() { _ = engine.Close() })

	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitDisabled = true

	handler := NewHandler(engine, WithVPNStatus(fakeVPN{}))
	return NewRouter(handler, NewChiMiddleware(cfg)).SetupChi()
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// decodeData checks the status and unmarshals the envelope payload into dst.
func decodeData(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, dst interface{}) envelope {
	t.Helper()
	if w.Code != wantStatus {
		t.Fatalf("status = %d, want %d; body %s", w.Code, wantStatus, w.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal envelope %q: %v", w.Body.String(), err)
	}
	if dst != nil {
		if err := json.Unmarshal(env.Data, dst); err != nil {
			t.Fatalf("unmarshal data %s: %v", env.Data, err)
		}
	}
	return env
}

func TestNewRouter(t *testing.T) {
	t.Parallel()

	handler := NewHandler(nil)
	router := NewRouter(handler, nil)

	if router.handler != handler {
		t.Error("Handler not set correctly")
	}
	if router.chiMiddleware == nil {
		t.Error("nil middleware should fall back to defaults")
	}
}

func TestRouter_Health(t *testing.T) {
	t.Parallel()
	h := setupRouterTest(t)

	var health HealthStatus
	decodeData(t, doRequest(t, h, http.MethodGet, "/healthz", ""), http.StatusOK, &health)

	if health.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", health.Status)
	}
	if health.Registry != "closed" {
		t.Errorf("Registry = %q, want closed", health.Registry)
	}
	if health.VPN == nil || !health.VPN.Enabled || health.VPN.Stats.TotalProviders != 2 {
		t.Errorf("VPN = %+v, want enabled with 2 providers", health.VPN)
	}

	if w := doRequest(t, h, http.MethodGet, "/livez", ""); w.Code != http.StatusOK {
		t.Errorf("/livez status = %d", w.Code)
	}

	w := doRequest(t, h, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("/metrics did not serve the default registry")
	}
}

func TestRouter_AttemptLifecycle(t *testing.T) {
	t.Parallel()
	h := setupRouterTest(t)

	var decision ratelimit.Decision
	decodeData(t, doRequest(t, h, http.MethodPost, "/api/v1/attempts/check",
		`{"identifier":"alice@example.com"}`), http.StatusOK, &decision)
	if !decision.Allowed {
		t.Fatalf("fresh identifier denied: %+v", decision)
	}

	for i := 0; i < 5; i++ {
		w := doRequest(t, h, http.MethodPost, "/api/v1/attempts",
			`{"identifier":"alice@example.com","success":false}`)
		if w.Code != http.StatusNoContent {
			t.Fatalf("record %d: status = %d, want 204", i, w.Code)
		}
	}

	w := doRequest(t, h, http.MethodPost, "/api/v1/attempts/check", `{"identifier":"alice@example.com"}`)
	decodeData(t, w, http.StatusOK, &decision)
	if decision.Allowed || decision.Reason != ratelimit.ReasonRateLimited {
		t.Fatalf("decision = %+v, want RATE_LIMITED denial", decision)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing on denial")
	}

	var status ratelimit.Status
	decodeData(t, doRequest(t, h, http.MethodGet, "/api/v1/status/alice@example.com", ""), http.StatusOK, &status)
	if !status.IsBlocked || status.AttemptsRemaining != 0 {
		t.Errorf("status = %+v, want blocked with 0 remaining", status)
	}

	if w := doRequest(t, h, http.MethodPost, "/api/v1/attempts/reset", `{"identifier":"alice@example.com"}`); w.Code != http.StatusNoContent {
		t.Fatalf("reset status = %d, want 204", w.Code)
	}
	decodeData(t, doRequest(t, h, http.MethodPost, "/api/v1/attempts/check",
		`{"identifier":"alice@example.com"}`), http.StatusOK, &decision)
	if !decision.Allowed {
		t.Errorf("after reset: %+v, want allowed", decision)
	}
}

func TestRouter_RequestValidation(t *testing.T) {
	t.Parallel()
	h := setupRouterTest(t)

	tests := []struct {
		name       string
		path       string
		body       string
		wantCode   string
		wantDetail string
	}{
		{"missing identifier", "/api/v1/attempts/check", `{}`, ErrCodeValidationFailed, "identifier"},
		{"invalid ip", "/api/v1/attempts", `{"identifier":"bob","success":true,"ip":"not-an-ip"}`, ErrCodeValidationFailed, "ip"},
		{"unknown field", "/api/v1/attempts/check", `{"identifier":"bob","user":"x"}`, ErrCodeBadRequest, ""},
		{"malformed json", "/api/v1/attempts/check", `{"identifier":`, ErrCodeBadRequest, ""},
		{"empty body", "/api/v1/evaluate", ``, ErrCodeBadRequest, ""},
		{"bad difficulty", "/api/v1/challenges", `{"difficulty":"impossible"}`, ErrCodeValidationFailed, "difficulty"},
		{"bad screen", "/api/v1/risk/assess", `{"signals":{"screen":"huge"}}`, ErrCodeValidationFailed, "screen"},
		{"missing owner", "/api/v1/devices/trusted", `{"signals":{"user_agent":"x"}}`, ErrCodeValidationFailed, "owner"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := decodeData(t, doRequest(t, h, http.MethodPost, tt.path, tt.body), http.StatusBadRequest, nil)
			if env.Error == nil || env.Error.Code != tt.wantCode {
				t.Fatalf("error = %+v, want code %s", env.Error, tt.wantCode)
			}
			if tt.wantDetail == "" {
				return
			}
			details, ok := env.Error.Details.(map[string]interface{})
			if !ok {
				t.Fatalf("details = %#v, want object", env.Error.Details)
			}
			if _, ok := details[tt.wantDetail]; !ok {
				t.Errorf("details = %v, want key %q", details, tt.wantDetail)
			}
		})
	}
}

func TestRouter_ChallengeFlow(t *testing.T) {
	t.Parallel()
	h := setupRouterTest(t)

	var issued challenge.Challenge
	decodeData(t, doRequest(t, h, http.MethodPost, "/api/v1/challenges", `{"difficulty":"easy"}`), http.StatusCreated, &issued)
	if issued.ID == "" || issued.Prompt != "What is 0 + 0?" {
		t.Fatalf("challenge = %+v, want easy math", issued)
	}
	if strings.Contains(doRequest(t, h, http.MethodPost, "/api/v1/challenges", `{"difficulty":"easy"}`).Body.String(), "answer") {
		t.Error("challenge response leaks the answer")
	}

	var result challenge.Result
	decodeData(t, doRequest(t, h, http.MethodPost, "/api/v1/challenges/"+issued.ID+"/verify", `{"answer":"1"}`), http.StatusOK, &result)
	if result.Success || result.Outcome != challenge.OutcomeIncorrect {
		t.Errorf("wrong answer = %+v, want incorrect", result)
	}

	decodeData(t, doRequest(t, h, http.MethodPost, "/api/v1/challenges/"+issued.ID+"/verify", `{"answer":"0"}`), http.StatusOK, &result)
	if !result.Success || result.Outcome != challenge.OutcomeSolved {
		t.Errorf("right answer = %+v, want solved", result)
	}

	decodeData(t, doRequest(t, h, http.MethodPost, "/api/v1/challenges/"+issued.ID+"/verify", `{"answer":"0"}`), http.StatusOK, &result)
	if result.Outcome != challenge.OutcomeUnknown {
		t.Errorf("replay = %+v, want UNKNOWN_CHALLENGE", result)
	}

	var medium challenge.Challenge
	decodeData(t, doRequest(t, h, http.MethodPost, "/api/v1/challenges", ""), http.StatusCreated, &medium)
	if medium.Difficulty != challenge.DifficultyMedium {
		t.Errorf("no body difficulty = %q, want medium", medium.Difficulty)
	}
}

const desktopSignals = `{
	"user_agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/124.0 Safari/537.36",
	"screen": "1920x1080x24",
	"timezone": "America/Chicago",
	"timezone_offset": 300,
	"language": "en-US",
	"platform": "Win32",
	"canvas_hash": "c0ffee00deadbeef1234",
	"webgl_hash": "7f3e9a",
	"plugins": ["PDF Viewer", "Chrome PDF Viewer"]
}`

func TestRouter_RiskAndDevices(t *testing.T) {
	t.Parallel()
	h := setupRouterTest(t)

	var first AssessRiskResponse
	decodeData(t, doRequest(t, h, http.MethodPost, "/api/v1/risk/assess", `{"signals":`+desktopSignals+`}`), http.StatusOK, &first)
	if len(first.FingerprintID) != 64 {
		t.Errorf("fingerprint_id = %q, want 64 hex chars", first.FingerprintID)
	}
	if !first.Assessment.Has(riskprofile.FactorUnknownDevice) {
		t.Errorf("factors = %v, want unknown_device", first.Assessment.Factors)
	}

	var device DeviceResponse
	decodeData(t, doRequest(t, h, http.MethodPost, "/api/v1/devices/trusted",
		`{"owner":"alice","signals":`+desktopSignals+`}`), http.StatusCreated, &device)
	if device.FingerprintID != first.FingerprintID {
		t.Errorf("trusted id = %q, want %q", device.FingerprintID, first.FingerprintID)
	}

	var trusted AssessRiskResponse
	decodeData(t, doRequest(t, h, http.MethodPost, "/api/v1/risk/assess", `{"signals":`+desktopSignals+`}`), http.StatusOK, &trusted)
	if trusted.Assessment.Has(riskprofile.FactorUnknownDevice) {
		t.Errorf("trusted device still unknown: %v", trusted.Assessment.Factors)
	}

	decodeData(t, doRequest(t, h, http.MethodPost, "/api/v1/devices/flagged",
		`{"reason":"credential stuffing","signals":`+desktopSignals+`}`), http.StatusCreated, &device)

	var flagged AssessRiskResponse
	decodeData(t, doRequest(t, h, http.MethodPost, "/api/v1/risk/assess", `{"signals":`+desktopSignals+`}`), http.StatusOK, &flagged)
	if !flagged.Assessment.Has(riskprofile.FactorFlaggedDevice) {
		t.Errorf("factors = %v, want flagged_device", flagged.Assessment.Factors)
	}
}

func TestRouter_Evaluate(t *testing.T) {
	t.Parallel()
	h := setupRouterTest(t)

	var verdict guard.Verdict
	decodeData(t, doRequest(t, h, http.MethodPost, "/api/v1/evaluate", `{"identifier":"carol"}`), http.StatusOK, &verdict)
	if verdict.Action != guard.ActionAllow {
		t.Errorf("action = %q, want allow", verdict.Action)
	}
}

func TestRouter_IPBlocks(t *testing.T) {
	t.Parallel()
	h := setupRouterTest(t)

	env := decodeData(t, doRequest(t, h, http.MethodGet, "/api/v1/ips/blocked", ""), http.StatusOK, nil)
	if env.Meta == nil || env.Meta.Count == nil || *env.Meta.Count != 0 {
		t.Errorf("meta = %+v, want count 0", env.Meta)
	}

	if w := doRequest(t, h, http.MethodDelete, "/api/v1/ips/192.0.2.10/block", ""); w.Code != http.StatusNotFound {
		t.Errorf("unblock of unblocked ip = %d, want 404", w.Code)
	}
	if w := doRequest(t, h, http.MethodDelete, "/api/v1/ips/not-an-ip/block", ""); w.Code != http.StatusBadRequest {
		t.Errorf("unblock of invalid ip = %d, want 400", w.Code)
	}
}

func TestRouter_NotFoundAndMethod(t *testing.T) {
	t.Parallel()
	h := setupRouterTest(t)

	env := decodeData(t, doRequest(t, h, http.MethodGet, "/api/v1/nope", ""), http.StatusNotFound, nil)
	if env.Error == nil || env.Error.Code != ErrCodeNotFound {
		t.Errorf("error = %+v, want NOT_FOUND", env.Error)
	}

	env = decodeData(t, doRequest(t, h, http.MethodGet, "/api/v1/evaluate", ""), http.StatusMethodNotAllowed, nil)
	if env.Error == nil || env.Error.Code != ErrCodeMethodNotAllowed {
		t.Errorf("error = %+v, want METHOD_NOT_ALLOWED", env.Error)
	}
}

func TestRouter_RequestIDAndMetrics(t *testing.T) {
	t.Parallel()
	h := setupRouterTest(t)

	counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/status/{identifier}", "200")
	before := testutil.ToFloat64(counter)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status/dave", nil)
	req.Header.Set("X-Request-ID", "upstream-42")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "upstream-42" {
		t.Errorf("X-Request-ID = %q, want upstream-42", got)
	}
	env := decodeData(t, w, http.StatusOK, nil)
	if env.Meta == nil || env.Meta.RequestID != "upstream-42" {
		t.Errorf("meta = %+v, want request id upstream-42", env.Meta)
	}
	if got := testutil.ToFloat64(counter) - before; got < 1 {
		t.Errorf("api request counter delta = %v, want >= 1", got)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing on API route")
	}
}
