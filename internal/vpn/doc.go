// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

// Package vpn answers "is this source IP a known VPN server?".
//
// The risk assessor uses it as an extra trigger of the vpn_proxy_detected
// factor when the caller supplies the client IP. Data comes from the gluetun
// project's servers.json (https://github.com/qdm12/gluetun), either a local
// file loaded at start or a URL polled by the Updater service.
//
//	svc := vpn.NewService(vpn.DefaultConfig())
//	if _, err := svc.ImportFromFile("servers.json"); err != nil {
//	    return err
//	}
//	if svc.IsVPN(clientIP) {
//	    ...
//	}
//
// Everything is held in memory and rebuilt on start.
package vpn
