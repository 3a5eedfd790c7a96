// Package types provides shared type definitions used across kairo packages.
// This package exists to break import cycles between perception, routing, shards,
// articulation and autopoiesis. Types in this package should be foundational data
// structures with no complex dependencies.
package types

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// DOMAIN IDENTIFIERS
// =============================================================================

// DomainID names one backend capability area.
type DomainID string

const (
	DomainResearch    DomainID = "research"
	DomainPlanning    DomainID = "planning"
	DomainSearch      DomainID = "search"
	DomainSecurity    DomainID = "security"
	DomainPerformance DomainID = "performance"
	DomainAutomation  DomainID = "automation"
	DomainShopping    DomainID = "shopping"
	DomainAnalysis    DomainID = "analysis"

	// DomainMemory is the baseline memory/context-logging domain. It is never
	// classified; the planner activates it for every request.
	DomainMemory DomainID = "memory"
)

// CapabilityDomains lists the classifiable domains in declaration order.
// Declaration order is the priority order used for tie-breaks and for
// section ordering in synthesized responses.
var CapabilityDomains = []DomainID{
	DomainResearch,
	DomainPlanning,
	DomainSearch,
	DomainSecurity,
	DomainPerformance,
	DomainAutomation,
	DomainShopping,
	DomainAnalysis,
}

// BaselineDomain is the always-on domain.
const BaselineDomain = DomainMemory

// AllDomains returns the baseline domain followed by every capability domain.
func AllDomains() []DomainID {
	out := make([]DomainID, 0, len(CapabilityDomains)+1)
	out = append(out, BaselineDomain)
	out = append(out, CapabilityDomains...)
	return out
}

// DomainRank returns the priority rank of a domain (lower is higher priority).
// The baseline domain ranks before every capability domain; unknown domains rank last.
func DomainRank(d DomainID) int {
	if d == BaselineDomain {
		return -1
	}
	for i, c := range CapabilityDomains {
		if c == d {
			return i
		}
	}
	return len(CapabilityDomains)
}

// IsKnownDomain reports whether d is the baseline or a capability domain.
func IsKnownDomain(d DomainID) bool {
	return d == BaselineDomain || DomainRank(d) < len(CapabilityDomains)
}

// ParseDomain parses a domain name, case-insensitively.
func ParseDomain(s string) (DomainID, error) {
	d := DomainID(strings.ToLower(strings.TrimSpace(s)))
	if !IsKnownDomain(d) {
		return "", fmt.Errorf("%w: %q", ErrUnknownDomain, s)
	}
	return d, nil
}

// SortDomains sorts domains in place by priority rank.
func SortDomains(ds []DomainID) {
	sort.SliceStable(ds, func(i, j int) bool {
		return DomainRank(ds[i]) < DomainRank(ds[j])
	})
}

// =============================================================================
// REQUEST
// =============================================================================

// RequestContext carries optional ambient information about the request.
type RequestContext struct {
	URL          string    `json:"url,omitempty"`
	Title        string    `json:"title,omitempty"`
	Timestamp    time.Time `json:"timestamp,omitempty"`
	PriorSummary string    `json:"prior_summary,omitempty"`
}

// HasURL reports whether a URL was supplied.
func (c RequestContext) HasURL() bool {
	return strings.TrimSpace(c.URL) != ""
}

// Request is one free-text user request. It is immutable for the duration of
// an orchestration call.
type Request struct {
	ID      string         `json:"id,omitempty"`
	Text    string         `json:"text"`
	Context RequestContext `json:"context"`
}

// NormalizeText lower-cases, trims and collapses whitespace.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
