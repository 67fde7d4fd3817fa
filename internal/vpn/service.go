// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package vpn

import (
	"io"
	"sync/atomic"

	"github.com/tomtom215/tollgate/internal/logging"
)

// Service owns the active Lookup. Imports build a new table and swap it in,
// so lookups never see a half-loaded state.
type Service struct {
	cfg     Config
	enabled atomic.Bool
	lookup  *Lookup
}

// NewService creates a service with an empty table.
func NewService(cfg Config) *Service {
	s := &Service{cfg: cfg, lookup: NewLookup()}
	s.enabled.Store(cfg.Enabled)
	return s
}

// Initialize loads cfg.DataFile when set. A missing or broken file is logged
// and leaves the table empty.
func (s *Service) Initialize() {
	if s.cfg.DataFile == "" {
		logging.Info().Msg("VPN lookup started with empty table")
		return
	}
	if _, err := s.ImportFromFile(s.cfg.DataFile); err != nil {
		logging.Warn().Err(err).Str("file", s.cfg.DataFile).Msg("Failed to load VPN data file")
	}
}

// IsVPN reports whether ip is a known VPN server address.
func (s *Service) IsVPN(ip string) bool {
	if !s.enabled.Load() {
		return false
	}
	return s.lookup.Contains(ip)
}

// LookupIP returns VPN details for ip.
func (s *Service) LookupIP(ip string) LookupResult {
	if !s.enabled.Load() {
		return LookupResult{}
	}
	return s.lookup.LookupIP(ip)
}

// ImportFromFile replaces the table with a servers.json file.
func (s *Service) ImportFromFile(filename string) (ImportResult, error) {
	data, err := openDocument(filename)
	if err != nil {
		return ImportResult{}, err
	}
	return s.ImportFromBytes(data)
}

// ImportFromReader replaces the table with a servers.json document.
func (s *Service) ImportFromReader(r io.Reader) (ImportResult, error) {
	data, err := readDocument(r)
	if err != nil {
		return ImportResult{}, err
	}
	return s.ImportFromBytes(data)
}

// ImportFromBytes replaces the table with a servers.json document.
func (s *Service) ImportFromBytes(data []byte) (ImportResult, error) {
	fresh, res, err := ParseGluetun(data)
	if err != nil {
		return res, err
	}
	s.lookup.swap(fresh)

	logging.Info().
		Int("providers_imported", res.ProvidersImported).
		Int("servers_imported", res.ServersImported).
		Int("ips_imported", res.IPsImported).
		Int("skipped", res.Skipped).
		Dur("duration", res.Duration).
		Msg("VPN data imported")
	return res, nil
}

// Stats returns statistics of the active table.
func (s *Service) Stats() Stats {
	return s.lookup.Stats()
}

// Providers returns the providers of the active table.
func (s *Service) Providers() []Provider {
	return s.lookup.Providers()
}

// SetEnabled turns lookups on or off.
func (s *Service) SetEnabled(enabled bool) {
	s.enabled.Store(enabled)
}

// Enabled reports whether lookups are on.
func (s *Service) Enabled() bool {
	return s.enabled.Load()
}
