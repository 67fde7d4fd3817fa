// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package vpn

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tollgate/internal/logging"
)

// maxDocumentSize bounds a servers.json document.
const maxDocumentSize = 50 << 20

// ParseGluetun builds a fresh Lookup from a gluetun servers.json document.
// The root "version" key and entries that are not provider objects are
// ignored.
func ParseGluetun(data []byte) (*Lookup, ImportResult, error) {
	start := time.Now()
	var res ImportResult

	// Mixed value types at the root: "version" is a number, providers are objects.
	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, res, fmt.Errorf("failed to parse gluetun JSON: %w", err)
	}

	l := NewLookup()
	for name, raw := range root {
		if name == "version" {
			continue
		}
		var p GluetunProvider
		if err := json.Unmarshal(raw, &p); err != nil {
			res.Skipped++
			continue
		}

		ips := 0
		for i := range p.Servers {
			s := &p.Servers[i]
			added := l.AddServer(&Server{
				Provider: name,
				Country:  s.Country,
				City:     s.City,
				Hostname: s.Hostname,
				IPs:      s.IPs,
			})
			res.Skipped += len(s.IPs) - added
			ips += added
		}

		l.SetProvider(Provider{
			Name:        name,
			DisplayName: DisplayName(name),
			ServerCount: len(p.Servers),
			IPCount:     ips,
			LastUpdated: start,
			Version:     p.Version,
			Timestamp:   p.Timestamp,
		})
		res.ProvidersImported++
		res.ServersImported += len(p.Servers)
		res.IPsImported += ips
	}

	l.touch(start)
	res.Duration = time.Since(start)
	return l, res, nil
}

// readDocument reads at most maxDocumentSize bytes from r.
func readDocument(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read VPN data: %w", err)
	}
	return data, nil
}

// openDocument reads a servers.json file.
func openDocument(filename string) ([]byte, error) {
	f, err := os.Open(filename) //nolint:gosec // G304: filename comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open VPN data file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			logging.Error().Err(closeErr).Str("filename", filename).Msg("Error closing VPN data file")
		}
	}()
	return readDocument(f)
}
