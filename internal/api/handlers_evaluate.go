// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package api

import (
	"net/http"
	"strconv"

	"github.com/tomtom215/tollgate/internal/guard"
)

// Evaluate runs the combined flow and returns a Verdict. A deny verdict
// sets Retry-After when the limiter knows when to retry.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if !bindJSON(w, r, &req) {
		return
	}

	verdict := h.engine.Evaluate(r.Context(), guard.Request{
		Identifier:  req.Identifier,
		SourceIP:    req.IP,
		Signals:     req.Signals,
		ChallengeID: req.ChallengeID,
		Answer:      req.Answer,
		StartedAt:   req.StartedAt,
	})

	if verdict.Action == guard.ActionDeny && verdict.Decision.RetryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(verdict.Decision.RetryAfterSeconds))
	}
	NewResponseWriter(w, r).Success(verdict)
}
