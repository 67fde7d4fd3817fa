// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package api

import (
	"net/http"

	"github.com/tomtom215/tollgate/internal/challenge"
)

// GenerateChallenge issues a challenge. The body is optional.
func (h *Handler) GenerateChallenge(w http.ResponseWriter, r *http.Request) {
	var req GenerateChallengeRequest
	if r.ContentLength != 0 && !bindJSON(w, r, &req) {
		return
	}

	difficulty, err := challenge.ParseDifficulty(req.Difficulty)
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}

	NewResponseWriter(w, r).Created(h.engine.GenerateChallenge(difficulty))
}

// VerifyChallenge checks an answer. Every outcome, including unknown and
// expired challenges, is a 200 whose body carries the outcome.
func (h *Handler) VerifyChallenge(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "id", "required,max=64")
	if !ok {
		return
	}

	var req VerifyChallengeRequest
	if !bindJSON(w, r, &req) {
		return
	}

	NewResponseWriter(w, r).Success(h.engine.VerifyChallenge(id, req.Answer, req.StartedAt))
}
