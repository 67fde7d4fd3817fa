// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

/*
Package challenge issues and verifies short-lived human-verification
challenges.

A challenge is a math question, a word to type or a slider position. The kind
is picked uniformly from a candidate set that depends on difficulty:

	easy    math, text
	medium  math, text, slider
	hard    text, slider

Every challenge lives for TTL (default 5 minutes) and accepts
MaxVerifyAttempts verify calls (default 3). Verify reports one of solved,
incorrect, UNKNOWN_CHALLENGE, EXPIRED or EXHAUSTED; the expected answer never
leaves the Manager.

	mgr, _ := challenge.NewManager(challenge.DefaultConfig())
	ch := mgr.Generate(challenge.DifficultyEasy)
	// ... present ch.Prompt, collect the answer ...
	res := mgr.Verify(ch.ID, answer, startedAt)

Correct answers are scored from 100, minus 20 per retry, minus up to 30 for
solves slower than 30 seconds, plus 10 for solves under 10 seconds, plus a
difficulty bonus of 0, 5 or 10, clamped to [0, 100].
*/
package challenge
