// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

/*
Package ratelimit throttles repeated actions per identifier.

Each identifier gets a fixed window (default 15 minutes) of MaxAttempts
attempts (default 5). When the count reaches MaxAttempts the identifier is
blocked; with ProgressiveDelay the block duration escalates with every breach
along the ladder 1m, 5m, 15m, 1h, 24h. A success clears the identifier.

	limiter, err := ratelimit.New(ratelimit.DefaultConfig())
	if err != nil {
	    return err
	}
	if d := limiter.IsAllowed(username, clientIP); !d.Allowed {
	    w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfterSeconds))
	    return
	}
	ok := checkPassword(...)
	limiter.RecordAttempt(username, ok, clientIP)

Failed attempts feed three suspicious-activity rules: rapid attempts (more
than 3 in 30 seconds), high failure rate (over 80% with more than 10
failures) and identifier fan-out (more than 5 identifiers from one source
IP, tracked as explicit (ip, identifier) pairs). A source IP whose suspicion
count exceeds 3 joins the blocked-IP set until IPBlockDuration passes or
UnblockIP is called.

Idle state is removed by Sweep, which the supervisor runs every few minutes.
*/
package ratelimit
