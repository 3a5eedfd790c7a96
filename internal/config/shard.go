package config

import (
	"time"

	"kairo/internal/types"
)

// DomainProfile defines per-domain configuration.
// Each capability domain (and the memory baseline) can be switched off or
// given a simulated latency.
type DomainProfile struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Latency string `yaml:"latency" json:"latency"` // simulated backend latency, e.g. "40ms"
	// Timeout is the domain-owned deadline for one invocation.
	Timeout string `yaml:"timeout" json:"timeout"`
}

// LatencyDuration parses Latency, returning 0 on error.
func (p DomainProfile) LatencyDuration() time.Duration {
	d, err := time.ParseDuration(p.Latency)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// TimeoutDuration parses Timeout with a 10s fallback.
func (p DomainProfile) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(p.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// DefaultDomainProfiles enables every domain with no simulated latency.
func DefaultDomainProfiles() map[string]DomainProfile {
	out := make(map[string]DomainProfile, len(types.CapabilityDomains)+1)
	for _, d := range types.AllDomains() {
		out[string(d)] = applyDomainDefaults(DomainProfile{Enabled: true})
	}
	return out
}

// applyDomainDefaults fills in zero values with defaults.
func applyDomainDefaults(p DomainProfile) DomainProfile {
	if p.Latency == "" {
		p.Latency = "0s"
	}
	if p.Timeout == "" {
		p.Timeout = "10s"
	}
	return p
}

// Domain returns the profile for d. Domains missing from the map are
// disabled.
func (c *Config) Domain(d types.DomainID) DomainProfile {
	p, ok := c.Domains[string(d)]
	if !ok {
		return applyDomainDefaults(DomainProfile{Enabled: false})
	}
	return applyDomainDefaults(p)
}
