// Tollgate - Adaptive Abuse-Prevention Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tollgate

package vpn

import "time"

// Provider is a VPN provider and its import counts.
type Provider struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	ServerCount int       `json:"server_count"`
	IPCount     int       `json:"ip_count"`
	LastUpdated time.Time `json:"last_updated"`
	Version     int       `json:"version,omitempty"`
	Timestamp   int64     `json:"timestamp,omitempty"`
}

// Server is a VPN server with its addresses. Entries of IPs may be single
// addresses or CIDR prefixes.
type Server struct {
	Provider string   `json:"provider"`
	Country  string   `json:"country"`
	City     string   `json:"city,omitempty"`
	Hostname string   `json:"hostname,omitempty"`
	IPs      []string `json:"ips"`
}

// LookupResult is the answer for one IP.
type LookupResult struct {
	IsVPN               bool   `json:"is_vpn"`
	Provider            string `json:"provider,omitempty"`
	ProviderDisplayName string `json:"provider_display_name,omitempty"`
	ServerCountry       string `json:"server_country,omitempty"`
	ServerCity          string `json:"server_city,omitempty"`
	ServerHostname      string `json:"server_hostname,omitempty"`

	// Confidence is 100 for an exact address match, 80 for a prefix match and
	// 0 when the input was not an IP.
	Confidence int `json:"confidence"`
}

// Stats describes the loaded data.
type Stats struct {
	TotalProviders int       `json:"total_providers"`
	TotalServers   int       `json:"total_servers"`
	TotalIPs       int       `json:"total_ips"`
	IPv4Count      int       `json:"ipv4_count"`
	IPv6Count      int       `json:"ipv6_count"`
	PrefixCount    int       `json:"prefix_count"`
	LastUpdated    time.Time `json:"last_updated"`
}

// ImportResult summarizes an import.
type ImportResult struct {
	ProvidersImported int           `json:"providers_imported"`
	ServersImported   int           `json:"servers_imported"`
	IPsImported       int           `json:"ips_imported"`
	Skipped           int           `json:"skipped"`
	Duration          time.Duration `json:"duration"`
}

// GluetunProvider is one provider entry of gluetun's servers.json.
type GluetunProvider struct {
	Version   int             `json:"version"`
	Timestamp int64           `json:"timestamp"`
	Servers   []GluetunServer `json:"servers"`
}

// GluetunServer is one server entry of gluetun's servers.json.
type GluetunServer struct {
	VPN        string   `json:"vpn,omitempty"`
	Country    string   `json:"country"`
	Region     string   `json:"region,omitempty"`
	City       string   `json:"city,omitempty"`
	ServerName string   `json:"server_name,omitempty"`
	Hostname   string   `json:"hostname,omitempty"`
	IPs        []string `json:"ips"`
}

// Config configures the VPN service.
type Config struct {
	// Enabled turns IP lookups on. A disabled service reports every IP as
	// not a VPN.
	Enabled bool `koanf:"enabled" json:"enabled"`

	// DataFile is a gluetun servers.json loaded at start. Optional.
	DataFile string `koanf:"data_file" json:"data_file,omitempty"`

	// AutoUpdate polls SourceURL every UpdateInterval.
	AutoUpdate     bool          `koanf:"auto_update" json:"auto_update"`
	SourceURL      string        `koanf:"source_url" json:"source_url"`
	UpdateInterval time.Duration `koanf:"update_interval" json:"update_interval"`
	HTTPTimeout    time.Duration `koanf:"http_timeout" json:"http_timeout"`
	RetryAttempts  int           `koanf:"retry_attempts" json:"retry_attempts"`
	RetryDelay     time.Duration `koanf:"retry_delay" json:"retry_delay"`
}

// DefaultGluetunURL is the raw GitHub URL of gluetun's servers.json.
const DefaultGluetunURL = "https://raw.githubusercontent.com/qdm12/gluetun/master/internal/storage/servers.json"

// DefaultConfig returns lookups enabled with automatic updates off.
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		SourceURL:      DefaultGluetunURL,
		UpdateInterval: 24 * time.Hour,
		HTTPTimeout:    60 * time.Second,
		RetryAttempts:  3,
		RetryDelay:     5 * time.Second,
	}
}

var providerDisplayNames = map[string]string{
	"airvpn":         "AirVPN",
	"cyberghost":     "CyberGhost",
	"expressvpn":     "ExpressVPN",
	"fastestvpn":     "FastestVPN",
	"hidemyass":      "HideMyAss",
	"ipvanish":       "IPVanish",
	"ivpn":           "IVPN",
	"mullvad":        "Mullvad",
	"nordvpn":        "NordVPN",
	"perfectprivacy": "Perfect Privacy",
	"privado":        "Privado VPN",
	"privatevpn":     "PrivateVPN",
	"protonvpn":      "ProtonVPN",
	"purevpn":        "PureVPN",
	"surfshark":      "Surfshark",
	"torguard":       "TorGuard",
	"vyprvpn":        "VyprVPN",
	"windscribe":     "Windscribe",
	"pia":            "Private Internet Access",
}

// DisplayName returns the human-readable name of a provider.
func DisplayName(provider string) string {
	if name, ok := providerDisplayNames[provider]; ok {
		return name
	}
	return provider
}
