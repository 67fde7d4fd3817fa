// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package api

import (
	"time"

	"github.com/tomtom215/tollgate/internal/guard"
	"github.com/tomtom215/tollgate/internal/vpn"
)

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers.go: Handler struct and constructor (this file)
//   - handlers_helpers.go: body decoding and validation
//   - handlers_health.go: health and stats endpoints
//   - handlers_limiter.go: attempt checks, status, IP blocks
//   - handlers_challenge.go: challenge issue and verify
//   - handlers_risk.go: risk assessment and device registry
//   - handlers_evaluate.go: combined evaluation
type Handler struct {
	engine    *guard.Engine
	vpn       VPNStatus // optional
	startTime time.Time
}

// VPNStatus exposes the VPN lookup state to health checks.
// *vpn.Service satisfies it.
type VPNStatus interface {
	Enabled() bool
	Stats() vpn.Stats
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithVPNStatus reports VPN lookup state in health responses.
func WithVPNStatus(v VPNStatus) HandlerOption {
	return func(h *Handler) { h.vpn = v }
}

// NewHandler creates the API handler for engine.
//
// Example:
//
//	handler := api.NewHandler(engine, api.WithVPNStatus(vpnService))
//	router := api.NewRouter(handler, api.NewChiMiddleware(mwConfig))
//	srv := &http.Server{Addr: cfg.Server.Addr(), Handler: router.SetupChi()}
func NewHandler(engine *guard.Engine, opts ...HandlerOption) *Handler {
	h := &Handler{
		engine:    engine,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}
