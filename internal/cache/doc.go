// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

/*
Package cache provides the in-memory counting and matching structures used by
the abuse-prevention engine.

# Sliding Windows

SlidingWindowCounter and SlidingWindowStore count events per key over a
bucketed sliding window. The rate limiter uses a 30-second store to detect
rapid attempts:

	rapid := cache.NewSlidingWindowStore(30*time.Second, 30, 100_000)
	rapid.Increment(identifier, now)
	if rapid.Count(identifier, now) > 3 { ... }

UniqueValueCounter and UniqueValueStore count distinct values per key, which
the limiter uses for identifier fan-out per source IP.

All window operations take the current time as an argument; nothing in this
package reads the wall clock.

# Pattern Matching

AhoCorasick matches many substrings in a single pass. AgentClassifier wraps
two automata (automation tools, VPN clients) for agent-string checks in the
risk assessor.

# Thread Safety

Every type in this package is safe for concurrent use.
*/
package cache
