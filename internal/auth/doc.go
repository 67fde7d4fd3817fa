// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

/*
Package auth issues and validates operator tokens.

Operator routes (resetting an identifier, flagging a device, listing and
lifting IP blocks) change engine state on behalf of a human or a back
office job rather than an end user. When OPERATOR_JWT_SECRET is set those
routes require an HS256 bearer token signed with that secret:

	Authorization: Bearer <token>

Tokens carry the operator's name in the subject claim and are minted with
the server binary:

	./tollgate operator-token alice

With no secret configured the operator routes are only protected by their
request budget and should not be exposed beyond a private network.
*/
package auth
