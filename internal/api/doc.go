// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

/*
Package api exposes the guard engine as a JSON HTTP service, so that an
application server can consult Tollgate as a sidecar.

Every response uses the APIResponse envelope:

	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "..."}}
	{"success": false, "error": {"code": "VALIDATION_FAILED", "message": "...", "details": {...}}}

Routes:

	POST   /api/v1/attempts/check        {identifier, ip?}         -> Decision
	POST   /api/v1/attempts              {identifier, success, ip?} -> 204
	GET    /api/v1/status/{identifier}                              -> Status
	POST   /api/v1/challenges            {difficulty?}             -> 201 Challenge
	POST   /api/v1/challenges/{id}/verify {answer, started_at}     -> Result
	POST   /api/v1/risk/assess           {signals, identifier?, ip?}
	POST   /api/v1/devices/trusted       {signals, owner}          -> 201
	POST   /api/v1/evaluate              {identifier, ip?, signals?, challenge_id?, answer?}
	GET    /api/v1/stats

Operator routes share a stricter per-IP budget and, when an operator
verifier is configured (WithOperatorAuth), require a bearer token:

	POST   /api/v1/attempts/reset        {identifier}              -> 204
	POST   /api/v1/devices/flagged       {signals, reason}         -> 201
	GET    /api/v1/ips/blocked
	DELETE /api/v1/ips/{ip}/block                                   -> 204 or 404

Probes: GET /healthz, GET /livez and GET /metrics (Prometheus).

The ip field is the end user's address as observed by the caller. It is
never taken from the connection. Denials from the engine are ordinary 200
responses carrying Allowed=false and a Retry-After header; a 429 only means
the caller exceeded the API's own httprate budget.

Middleware order: request ID, chi RealIP, Recoverer, access log, CORS, then
per-group httprate limits, security headers and Prometheus request metrics.
*/
package api
