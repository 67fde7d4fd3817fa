// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

/*
Package riskprofile fingerprints calling devices and classifies them as low,
medium or high risk.

A Fingerprint is built from client-reported Signals. Its ID is the hex
BLAKE2b-256 digest of "agent|screen|language|platform|tzOffset", so the same
device reports the same ID across sessions.

Assess adds up the points of every factor that fires:

	unknown_device          30  ID absent from the trusted registry
	flagged_device          50  ID in the suspicious set
	automation_detected     40  two or more headless-browser indicators
	vpn_proxy_detected      25  suspect timezone, VPN agent or VPN source IP
	device_inconsistencies  35  two or more changes against the owner's
	                            last-known device, last seen over 24h ago

A score of 70 or more is high risk and 40 or more is medium. Verification is
required for high risk and for unknown devices.

The trusted registry and the suspicious set live behind the Registry
interface, with map and BadgerDB backends. Reads pass through a circuit
breaker; when the registry fails the Assessor fails open and treats the
device as unknown and not flagged.
*/
package riskprofile
