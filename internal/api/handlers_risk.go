// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package api

import (
	"net/http"

	"github.com/tomtom215/tollgate/internal/riskprofile"
)

// AssessRisk fingerprints the supplied signals and scores the device.
func (h *Handler) AssessRisk(w http.ResponseWriter, r *http.Request) {
	var req AssessRiskRequest
	if !bindJSON(w, r, &req) {
		return
	}

	fp := h.engine.BuildFingerprint(req.Signals)
	assessment := h.engine.AssessRisk(r.Context(), fp, riskprofile.Subject{
		Identifier: req.Identifier,
		SourceIP:   req.IP,
	})

	NewResponseWriter(w, r).Success(AssessRiskResponse{
		FingerprintID: fp.ID,
		Assessment:    assessment,
	})
}

// TrustDevice records the device as trusted for an owner.
func (h *Handler) TrustDevice(w http.ResponseWriter, r *http.Request) {
	var req TrustDeviceRequest
	if !bindJSON(w, r, &req) {
		return
	}

	rw := NewResponseWriter(w, r)
	fp := h.engine.BuildFingerprint(req.Signals)
	if err := h.engine.RegisterTrusted(r.Context(), fp, req.Owner); err != nil {
		rw.RegistryError(err)
		return
	}
	rw.Created(DeviceResponse{FingerprintID: fp.ID})
}

// FlagDevice adds the device to the suspicious set.
func (h *Handler) FlagDevice(w http.ResponseWriter, r *http.Request) {
	var req FlagDeviceRequest
	if !bindJSON(w, r, &req) {
		return
	}

	rw := NewResponseWriter(w, r)
	fp := h.engine.BuildFingerprint(req.Signals)
	if err := h.engine.FlagSuspicious(r.Context(), fp, req.Reason); err != nil {
		rw.RegistryError(err)
		return
	}
	rw.Created(DeviceResponse{FingerprintID: fp.ID})
}
