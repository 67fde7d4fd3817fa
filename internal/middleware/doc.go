// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

/*
Package middleware provides chi-compatible HTTP middleware for the Tollgate API.

  - RequestID: UUID request IDs, propagated to logging.Ctx
  - PrometheusMetrics: request count, duration and in-flight gauge, labeled
    by chi route pattern

Both have the func(http.Handler) http.Handler shape and are mounted with
chi's r.Use:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
*/
package middleware
