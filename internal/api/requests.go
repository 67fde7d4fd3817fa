// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package api

import (
	"time"

	"github.com/tomtom215/tollgate/internal/riskprofile"
)

// Request bodies. The ip field is the end user's address as seen by the
// calling application; it is never taken from the connection, because the
// caller is an application server, not the end user.

// CheckAttemptRequest asks whether identifier may attempt the guarded action.
type CheckAttemptRequest struct {
	Identifier string `json:"identifier" validate:"required,min=1,max=256,printascii"`
	IP         string `json:"ip,omitempty" validate:"omitempty,ip"`
}

// RecordAttemptRequest reports the outcome of the guarded action.
type RecordAttemptRequest struct {
	Identifier string `json:"identifier" validate:"required,min=1,max=256,printascii"`
	Success    bool   `json:"success"`
	IP         string `json:"ip,omitempty" validate:"omitempty,ip"`
}

// ResetRequest clears an identifier's attempt history.
type ResetRequest struct {
	Identifier string `json:"identifier" validate:"required,min=1,max=256,printascii"`
}

// GenerateChallengeRequest issues a challenge. An empty difficulty means medium.
type GenerateChallengeRequest struct {
	Difficulty string `json:"difficulty,omitempty" validate:"omitempty,oneof=easy medium hard"`
}

// VerifyChallengeRequest answers a challenge. StartedAt is when the client
// displayed it; zero means the challenge creation time.
type VerifyChallengeRequest struct {
	Answer    string    `json:"answer" validate:"max=64"`
	StartedAt time.Time `json:"started_at"`
}

// AssessRiskRequest scores a device.
type AssessRiskRequest struct {
	Signals    riskprofile.Signals `json:"signals"`
	Identifier string              `json:"identifier,omitempty" validate:"max=256"`
	IP         string              `json:"ip,omitempty" validate:"omitempty,ip"`
}

// TrustDeviceRequest records a trusted device for owner.
type TrustDeviceRequest struct {
	Signals riskprofile.Signals `json:"signals"`
	Owner   string              `json:"owner" validate:"required,min=1,max=256"`
}

// FlagDeviceRequest records a suspicious device.
type FlagDeviceRequest struct {
	Signals riskprofile.Signals `json:"signals"`
	Reason  string              `json:"reason" validate:"required,min=1,max=512"`
}

// EvaluateRequest runs the combined allow/deny/challenge flow.
type EvaluateRequest struct {
	Identifier  string               `json:"identifier" validate:"required,min=1,max=256,printascii"`
	IP          string               `json:"ip,omitempty" validate:"omitempty,ip"`
	Signals     *riskprofile.Signals `json:"signals,omitempty"`
	ChallengeID string               `json:"challenge_id,omitempty" validate:"max=64"`
	Answer      string               `json:"answer,omitempty" validate:"max=64"`
	StartedAt   time.Time            `json:"started_at"`
}

// AssessRiskResponse pairs the derived fingerprint ID with its assessment.
type AssessRiskResponse struct {
	FingerprintID string                 `json:"fingerprint_id"`
	Assessment    riskprofile.Assessment `json:"assessment"`
}

// DeviceResponse is returned after a registry write.
type DeviceResponse struct {
	FingerprintID string `json:"fingerprint_id"`
}
