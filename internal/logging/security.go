// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package logging

import (
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Security event names.
const (
	EventAttemptBlocked     = "attempt_blocked"
	EventIPBlocked          = "ip_blocked"
	EventIPUnblocked        = "ip_unblocked"
	EventSuspiciousActivity = "suspicious_activity"
	EventChallengeIssued    = "challenge_issued"
	EventChallengeVerified  = "challenge_verified"
	EventDeviceTrusted      = "device_trusted"
	EventDeviceFlagged      = "device_flagged"
	EventRiskAssessed       = "risk_assessed"
)

// SecurityEvent represents a security-relevant engine event.
type SecurityEvent struct {
	// Event is the event name, one of the Event* constants.
	Event string
	// Identifier is the throttled subject (username, email, phone). Masked on output.
	Identifier string
	// IPAddress is the client's IP address.
	IPAddress string
	// DeviceID is a fingerprint ID. Masked on output.
	DeviceID string
	// Success indicates if the operation was successful.
	Success bool
	// Reason is a short machine-readable reason (rule name, outcome).
	Reason string
	// Duration is attached for block events.
	Duration time.Duration
	// Details contains additional sanitized details.
	Details map[string]string
}

// SecurityLogger writes engine security events with sensitive values masked.
type SecurityLogger struct {
	logger zerolog.Logger
}

// NewSecurityLogger creates a security logger on top of the global logger.
func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{
		logger: With().Str("component", "security").Logger(),
	}
}

// NewSecurityLoggerWithLogger creates a security logger with a custom zerolog logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSecurityLoggerWithLogger(logger zerolog.Logger) *SecurityLogger {
	return &SecurityLogger{
		logger: logger.With().Str("component", "security").Logger(),
	}
}

// LogEvent logs a security event with automatic sanitization. Failed events
// are written at warn level.
func (l *SecurityLogger) LogEvent(event *SecurityEvent) {
	var e *zerolog.Event
	if event.Success {
		e = l.logger.Info().Str("status", "success")
	} else {
		e = l.logger.Warn().Str("status", "failed")
	}
	e = e.Str("event", event.Event)

	if event.Identifier != "" {
		e = e.Str("identifier", SanitizeIdentifier(event.Identifier))
	}
	if event.IPAddress != "" {
		e = e.Str("ip", event.IPAddress)
	}
	if event.DeviceID != "" {
		e = e.Str("device_id", SanitizeToken(event.DeviceID))
	}
	if event.Reason != "" {
		e = e.Str("reason", truncateString(event.Reason, 100))
	}
	if event.Duration > 0 {
		e = e.Dur("duration", event.Duration)
	}
	for k, v := range event.Details {
		e = e.Str(k, SanitizeValue(k, v))
	}

	e.Msg("")
}

// Info logs an info-level message with key/value pairs.
func (l *SecurityLogger) Info(msg string, fields ...interface{}) {
	addFieldPairs(l.logger.Info(), fields).Msg(msg)
}

// Warn logs a warning-level message with key/value pairs.
func (l *SecurityLogger) Warn(msg string, fields ...interface{}) {
	addFieldPairs(l.logger.Warn(), fields).Msg(msg)
}

// addFieldPairs adds key-value pairs to a zerolog event.
func addFieldPairs(e *zerolog.Event, fields []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, fields[i+1])
	}
	return e
}

// LogAttemptBlocked logs an identifier block with the applied duration.
func (l *SecurityLogger) LogAttemptBlocked(identifier, ip string, duration time.Duration, breaches int) {
	l.LogEvent(&SecurityEvent{
		Event:      EventAttemptBlocked,
		Identifier: identifier,
		IPAddress:  ip,
		Duration:   duration,
		Details:    map[string]string{"breaches": strconv.Itoa(breaches)},
	})
}

// LogIPBlocked logs a source IP joining the blocked set.
func (l *SecurityLogger) LogIPBlocked(ip string, suspicion int) {
	l.LogEvent(&SecurityEvent{
		Event:     EventIPBlocked,
		IPAddress: ip,
		Details:   map[string]string{"suspicion": strconv.Itoa(suspicion)},
	})
}

// LogIPUnblocked logs the release of a blocked IP.
func (l *SecurityLogger) LogIPUnblocked(ip, by string) {
	l.LogEvent(&SecurityEvent{
		Event:     EventIPUnblocked,
		IPAddress: ip,
		Success:   true,
		Reason:    by,
	})
}

// LogSuspiciousActivity logs the suspicious-activity rules that fired for one failure.
func (l *SecurityLogger) LogSuspiciousActivity(identifier, ip string, rules []string) {
	l.LogEvent(&SecurityEvent{
		Event:      EventSuspiciousActivity,
		Identifier: identifier,
		IPAddress:  ip,
		Reason:     strings.Join(rules, ","),
	})
}

// LogChallengeVerified logs the terminal or intermediate outcome of a verification.
func (l *SecurityLogger) LogChallengeVerified(challengeID, outcome string, success bool, score int) {
	l.LogEvent(&SecurityEvent{
		Event:   EventChallengeVerified,
		Success: success,
		Reason:  outcome,
		Details: map[string]string{
			"challenge_id": challengeID,
			"score":        strconv.Itoa(score),
		},
	})
}

// LogDeviceTrusted logs a device registration.
func (l *SecurityLogger) LogDeviceTrusted(deviceID, owner string) {
	l.LogEvent(&SecurityEvent{
		Event:      EventDeviceTrusted,
		Identifier: owner,
		DeviceID:   deviceID,
		Success:    true,
	})
}

// LogDeviceFlagged logs a device added to the suspicious set.
func (l *SecurityLogger) LogDeviceFlagged(deviceID, reason string) {
	l.LogEvent(&SecurityEvent{
		Event:    EventDeviceFlagged,
		DeviceID: deviceID,
		Reason:   reason,
	})
}

// SanitizeToken masks an opaque value, showing only first and last 4 characters.
// Example: "4f1c9a0e7b22d3aa" -> "4f1c...d3aa"
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeIdentifier masks a rate-limit identifier. Email addresses keep
// their domain; anything else keeps its first 2 characters.
// Example: "johndoe" -> "jo***"
func SanitizeIdentifier(identifier string) string {
	if identifier == "" {
		return ""
	}
	if strings.Contains(identifier, "@") {
		return SanitizeEmail(identifier)
	}
	if len(identifier) <= 2 {
		return "***"
	}
	return identifier[:2] + "***"
}

// SanitizeEmail masks an email address.
// Example: "john.doe@example.com" -> "jo***@example.com"
func SanitizeEmail(email string) string {
	if email == "" {
		return ""
	}

	atIndex := strings.Index(email, "@")
	if atIndex <= 0 {
		return "***"
	}

	localPart := email[:atIndex]
	domain := email[atIndex:]

	if len(localPart) <= 2 {
		return "***" + domain
	}
	return localPart[:2] + "***" + domain
}

// SanitizeValue sanitizes a detail value based on its key name.
func SanitizeValue(key, value string) string {
	switch strings.ToLower(key) {
	case "answer", "token", "secret", "password", "device_id", "fingerprint":
		return SanitizeToken(value)
	case "identifier", "owner", "user", "username":
		return SanitizeIdentifier(value)
	}

	if strings.Contains(value, "@") && strings.Contains(value, ".") {
		return SanitizeEmail(value)
	}
	return truncateString(value, 200)
}

// truncateString truncates a string to a maximum length.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
