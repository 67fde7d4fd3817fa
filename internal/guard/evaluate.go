// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package guard

import (
	"context"
	"time"

	"github.com/tomtom215/tollgate/internal/challenge"
	"github.com/tomtom215/tollgate/internal/logging"
	"github.com/tomtom215/tollgate/internal/ratelimit"
	"github.com/tomtom215/tollgate/internal/riskprofile"
)

// Action tells the caller what to do with a request.
type Action string

const (
	ActionAllow     Action = "allow"
	ActionDeny      Action = "deny"
	ActionChallenge Action = "challenge"
)

// Request is one pass of the guarded action.
type Request struct {
	Identifier string
	SourceIP   string

	// Signals, when set, are fingerprinted and risk-assessed.
	Signals *riskprofile.Signals

	// ChallengeID and Answer carry the response to a challenge issued by an
	// earlier Evaluate. StartedAt is when the client began solving it.
	ChallengeID string
	Answer      string
	StartedAt   time.Time
}

// Verdict is the outcome of Evaluate.
type Verdict struct {
	Action        Action                  `json:"action"`
	Decision      ratelimit.Decision      `json:"decision"`
	Status        ratelimit.Status        `json:"status"`
	FingerprintID string                  `json:"fingerprint_id,omitempty"`
	Assessment    *riskprofile.Assessment `json:"assessment,omitempty"`
	Challenge     *challenge.Challenge    `json:"challenge,omitempty"`
	Result        *challenge.Result       `json:"result,omitempty"`
}

// Evaluate runs the control flow for one request:
//
//  1. the limiter decides whether the identifier may try at all
//  2. the device is assessed when signals are supplied
//  3. a supplied challenge answer is verified; a failed answer counts as a
//     failed attempt
//  4. without an answer, a challenge is issued when the limiter status or
//     the assessment calls for one
//
// An allow verdict does not record an attempt. The caller records the
// outcome of the guarded action itself with RecordAttempt.
func (e *Engine) Evaluate(ctx context.Context, req Request) Verdict {
	var v Verdict

	v.Decision = e.limiter.IsAllowed(req.Identifier, req.SourceIP)
	if !v.Decision.Allowed {
		v.Action = ActionDeny
		v.Status = e.limiter.SecurityStatus(req.Identifier)
		return v
	}

	if req.Signals != nil {
		fp := e.risk.BuildFingerprint(*req.Signals)
		assessment := e.risk.Assess(ctx, fp, riskprofile.Subject{
			Identifier: req.Identifier,
			SourceIP:   req.SourceIP,
		})
		v.FingerprintID = fp.ID
		v.Assessment = &assessment
	}

	if req.ChallengeID != "" {
		res := e.challenges.Verify(req.ChallengeID, req.Answer, req.StartedAt)
		v.Result = &res
		if res.Success {
			v.Action = ActionAllow
		} else {
			e.limiter.RecordAttempt(req.Identifier, false, req.SourceIP)
			v.Action = ActionDeny
		}
		v.Status = e.limiter.SecurityStatus(req.Identifier)
		e.logVerdict(ctx, req, v)
		return v
	}

	v.Status = e.limiter.SecurityStatus(req.Identifier)
	if difficulty, needed := challengeFor(v.Status, v.Assessment); needed {
		ch := e.challenges.Generate(difficulty)
		v.Challenge = &ch
		v.Action = ActionChallenge
	} else {
		v.Action = ActionAllow
	}

	e.logVerdict(ctx, req, v)
	return v
}

// challengeFor decides whether a challenge is needed and how hard it is.
// The harder of the limiter and device risk levels picks the difficulty.
func challengeFor(status ratelimit.Status, assessment *riskprofile.Assessment) (challenge.Difficulty, bool) {
	needed := status.RequiresCaptcha
	rank := levelRank(string(status.RiskLevel))

	if assessment != nil {
		needed = needed || assessment.RequiresVerification
		rank = max(rank, levelRank(string(assessment.Level)))
	}
	if !needed {
		return "", false
	}

	switch rank {
	case 2:
		return challenge.DifficultyHard, true
	case 1:
		return challenge.DifficultyMedium, true
	default:
		return challenge.DifficultyEasy, true
	}
}

func levelRank(level string) int {
	switch level {
	case "high":
		return 2
	case "medium":
		return 1
	default:
		return 0
	}
}

func (e *Engine) logVerdict(ctx context.Context, req Request, v Verdict) {
	event := logging.Ctx(ctx).Debug().
		Str("identifier", logging.SanitizeIdentifier(req.Identifier)).
		Str("action", string(v.Action)).
		Int("attempts_remaining", v.Status.AttemptsRemaining).
		Str("limiter_risk", string(v.Status.RiskLevel))
	if v.Assessment != nil {
		event = event.Str("device_risk", string(v.Assessment.Level)).Int("device_score", v.Assessment.Score)
	}
	event.Msg("Request evaluated")
}
