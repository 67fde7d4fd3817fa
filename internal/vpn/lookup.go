// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package vpn

import (
	"net/netip"
	"sort"
	"strings"
	"sync"
	"time"
)

type serverInfo struct {
	provider string
	country  string
	city     string
	hostname string
}

type prefixEntry struct {
	prefix netip.Prefix
	info   *serverInfo
}

// Lookup is an in-memory VPN address table. Exact addresses are a map lookup;
// CIDR prefixes are scanned longest first.
type Lookup struct {
	mu        sync.RWMutex
	addrs     map[netip.Addr]*serverInfo
	prefixes  []prefixEntry
	providers map[string]*Provider
	stats     Stats
}

// NewLookup creates an empty lookup.
func NewLookup() *Lookup {
	return &Lookup{
		addrs:     make(map[netip.Addr]*serverInfo),
		providers: make(map[string]*Provider),
	}
}

// LookupIP reports whether ip belongs to a known VPN server.
func (l *Lookup) LookupIP(ip string) LookupResult {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return LookupResult{}
	}
	addr = addr.Unmap()

	l.mu.RLock()
	defer l.mu.RUnlock()

	if info, ok := l.addrs[addr]; ok {
		return info.result(100)
	}
	for _, p := range l.prefixes {
		if p.prefix.Contains(addr) {
			return p.info.result(80)
		}
	}
	return LookupResult{Confidence: 100}
}

func (s *serverInfo) result(confidence int) LookupResult {
	return LookupResult{
		IsVPN:               true,
		Provider:            s.provider,
		ProviderDisplayName: DisplayName(s.provider),
		ServerCountry:       s.country,
		ServerCity:          s.city,
		ServerHostname:      s.hostname,
		Confidence:          confidence,
	}
}

// Contains is LookupIP without the details.
func (l *Lookup) Contains(ip string) bool {
	return l.LookupIP(ip).IsVPN
}

// AddServer adds the server's addresses. It returns how many entries were
// accepted; unparsable entries are skipped.
func (l *Lookup) AddServer(server *Server) int {
	info := &serverInfo{
		provider: server.Provider,
		country:  server.Country,
		city:     server.City,
		hostname: server.Hostname,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	added := 0
	for _, raw := range server.IPs {
		raw = strings.TrimSpace(raw)
		if strings.Contains(raw, "/") {
			prefix, err := netip.ParsePrefix(raw)
			if err != nil {
				continue
			}
			l.prefixes = append(l.prefixes, prefixEntry{prefix: prefix.Masked(), info: info})
			l.stats.PrefixCount++
			added++
			continue
		}

		addr, err := netip.ParseAddr(raw)
		if err != nil {
			continue
		}
		addr = addr.Unmap()
		if _, dup := l.addrs[addr]; !dup {
			if addr.Is4() {
				l.stats.IPv4Count++
			} else {
				l.stats.IPv6Count++
			}
		}
		l.addrs[addr] = info
		added++
	}

	sort.SliceStable(l.prefixes, func(i, j int) bool {
		return l.prefixes[i].prefix.Bits() > l.prefixes[j].prefix.Bits()
	})
	l.stats.TotalServers++
	l.stats.TotalIPs = len(l.addrs)
	return added
}

// SetProvider adds or replaces provider metadata.
func (l *Lookup) SetProvider(p Provider) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.providers[p.Name] = &p
	l.stats.TotalProviders = len(l.providers)
}

// Providers returns the providers sorted by name.
func (l *Lookup) Providers() []Provider {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Provider, 0, len(l.providers))
	for _, p := range l.providers {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Stats returns a copy of the statistics.
func (l *Lookup) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stats
}

// Count returns the number of exact addresses.
func (l *Lookup) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.addrs)
}

func (l *Lookup) touch(now time.Time) {
	l.mu.Lock()
	l.stats.LastUpdated = now
	l.mu.Unlock()
}

// swap replaces l's contents with other's. other must not be in use.
func (l *Lookup) swap(other *Lookup) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.addrs = other.addrs
	l.prefixes = other.prefixes
	l.providers = other.providers
	l.stats = other.stats
}
