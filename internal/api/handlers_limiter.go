// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/tollgate/internal/logging"
	"github.com/tomtom215/tollgate/internal/validation"
)

// CheckAttempt reports whether an identifier may attempt the guarded action.
// A denial is still a 200 with Allowed=false; Retry-After is set when known.
func (h *Handler) CheckAttempt(w http.ResponseWriter, r *http.Request) {
	var req CheckAttemptRequest
	if !bindJSON(w, r, &req) {
		return
	}

	decision := h.engine.IsAllowed(req.Identifier, req.IP)
	if !decision.Allowed && decision.RetryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfterSeconds))
	}
	NewResponseWriter(w, r).Success(decision)
}

// RecordAttempt records the outcome of the guarded action.
func (h *Handler) RecordAttempt(w http.ResponseWriter, r *http.Request) {
	var req RecordAttemptRequest
	if !bindJSON(w, r, &req) {
		return
	}

	h.engine.RecordAttempt(req.Identifier, req.Success, req.IP)
	NewResponseWriter(w, r).NoContent()
}

// ResetAttempts clears an identifier's history and block.
func (h *Handler) ResetAttempts(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if !bindJSON(w, r, &req) {
		return
	}

	h.engine.Reset(req.Identifier)
	NewResponseWriter(w, r).NoContent()
}

// SecurityStatus summarizes an identifier's limiter state.
func (h *Handler) SecurityStatus(w http.ResponseWriter, r *http.Request) {
	identifier, ok := pathParam(w, r, "identifier", "required,max=256,printascii")
	if !ok {
		return
	}
	NewResponseWriter(w, r).Success(h.engine.SecurityStatus(identifier))
}

// BlockedIPs lists blocked source IPs.
func (h *Handler) BlockedIPs(w http.ResponseWriter, r *http.Request) {
	blocked := h.engine.BlockedIPs()
	NewResponseWriter(w, r).List(blocked, len(blocked))
}

// UnblockIP lifts a source IP block. It answers 404 when the IP was not blocked.
func (h *Handler) UnblockIP(w http.ResponseWriter, r *http.Request) {
	ip, ok := pathParam(w, r, "ip", "required,ip")
	if !ok {
		return
	}

	rw := NewResponseWriter(w, r)
	if !h.engine.UnblockIP(ip) {
		rw.NotFound("ip is not blocked")
		return
	}
	logging.Ctx(r.Context()).Info().Str("operator", operatorName(r)).Str("ip", ip).Msg("Operator lifted IP block")
	rw.NoContent()
}

// pathParam returns the unescaped chi URL parameter name validated against
// tag. On failure it writes the error response.
func pathParam(w http.ResponseWriter, r *http.Request, name, tag string) (string, bool) {
	rw := NewResponseWriter(w, r)

	value, err := url.PathUnescape(chi.URLParam(r, name))
	if err != nil {
		rw.BadRequest("malformed " + name)
		return "", false
	}
	if err := validation.GetValidator().Var(value, tag); err != nil {
		rw.ValidationError("invalid "+name, map[string]string{name: sanitizeLogValue(value)})
		return "", false
	}
	return value, true
}
