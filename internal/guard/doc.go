// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

/*
Package guard wires the rate limiter, the challenge manager and the risk
assessor into one Engine.

Each Engine owns its components; there are no package-level singletons, so
tests and multi-tenant hosts can run several engines side by side.

Typical login flow:

	v := engine.Evaluate(ctx, guard.Request{Identifier: user, SourceIP: ip, Signals: &signals})
	switch v.Action {
	case guard.ActionDeny:
		// reject, honour v.Decision.RetryAfterSeconds
	case guard.ActionChallenge:
		// present v.Challenge.Prompt, then call Evaluate again with the answer
	case guard.ActionAllow:
		ok := authenticate(user, password)
		engine.RecordAttempt(user, ok, ip)
	}
*/
package guard
