// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/tollgate/internal/middleware"
)

// Router binds the Handler to chi routes.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router. A nil mw uses DefaultChiMiddlewareConfig.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		chiMiddleware: mw,
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(AccessLog)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Probes and scrapes
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/healthz", router.handler.Health)
		r.Get("/livez", router.handler.HealthLive)
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)

		// Rate limiter
		r.Post("/attempts/check", router.handler.CheckAttempt)
		r.Post("/attempts", router.handler.RecordAttempt)
		r.Get("/status/{identifier}", router.handler.SecurityStatus)

		// Challenges
		r.Post("/challenges", router.handler.GenerateChallenge)
		r.Post("/challenges/{id}/verify", router.handler.VerifyChallenge)

		// Risk profile
		r.Post("/risk/assess", router.handler.AssessRisk)
		r.Post("/devices/trusted", router.handler.TrustDevice)

		// Combined flow
		r.Post("/evaluate", router.handler.Evaluate)

		r.Get("/stats", router.handler.Stats)

		// Operator actions
		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitAdmin())
			r.Use(router.chiMiddleware.RequireOperator())
			r.Post("/attempts/reset", router.handler.ResetAttempts)
			r.Post("/devices/flagged", router.handler.FlagDevice)
			r.Get("/ips/blocked", router.handler.BlockedIPs)
			r.Delete("/ips/{ip}/block", router.handler.UnblockIP)
		})
	})

	return r
}
