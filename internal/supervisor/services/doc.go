// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

/*
Package services provides suture.Service wrappers for Tollgate components.

Each wrapper translates a component's lifecycle into suture's
Serve(ctx) error and implements fmt.Stringer so the supervisor can name it
in log messages.

  - SweepService: calls Sweeper.SweepOnce on a ticker. Satisfied by the
    rate limiter, the challenge manager and the risk assessor. Three
    consecutive failures return an error and suture restarts the loop.
  - RunnerService: wraps anything with RunWithContext, such as the VPN
    server list updater.
  - HTTPServerService: wraps *http.Server with graceful shutdown.
*/
package services
