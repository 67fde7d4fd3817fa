// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/tollgate/internal/ratelimit"
	"github.com/tomtom215/tollgate/internal/vpn"
)

// HealthStatus is the body of GET /healthz.
type HealthStatus struct {
	// Status is "healthy", or "degraded" while the registry breaker is open.
	Status            string          `json:"status"`
	Uptime            float64         `json:"uptime_seconds"`
	Limiter           ratelimit.Stats `json:"limiter"`
	PendingChallenges int             `json:"pending_challenges"`
	Registry          string          `json:"registry"`
	VPN               *VPNHealth      `json:"vpn,omitempty"`
}

// VPNHealth reports the VPN lookup state.
type VPNHealth struct {
	Enabled bool      `json:"enabled"`
	Stats   vpn.Stats `json:"stats"`
}

// Health reports component state. It answers 200 even when degraded; the
// engine fails open while the registry is down.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:            "healthy",
		Uptime:            time.Since(h.startTime).Seconds(),
		Limiter:           h.engine.Limiter().Stats(),
		PendingChallenges: h.engine.Challenges().Pending(),
		Registry:          h.engine.Risk().RegistryState(),
	}
	if status.Registry == "open" {
		status.Status = "degraded"
	}
	if h.vpn != nil {
		status.VPN = &VPNHealth{Enabled: h.vpn.Enabled(), Stats: h.vpn.Stats()}
	}

	NewResponseWriter(w, r).Success(status)
}

// HealthLive answers 200 while the process is serving.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "alive"})
}

// Stats returns the limiter's tracked-entry counts.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.engine.Limiter().Stats())
}
