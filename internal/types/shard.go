package types

import (
	"errors"
	"time"
)

// =============================================================================
// DOMAIN RESULT TYPES AND CONSTANTS
// =============================================================================

// DomainStatus is the outcome of one domain invocation.
type DomainStatus string

const (
	StatusSuccess     DomainStatus = "success"
	StatusUnavailable DomainStatus = "unavailable" // precondition failed, never attempted
	StatusSkipped     DomainStatus = "skipped"     // handler chose not to act
	StatusError       DomainStatus = "error"       // invocation failed or panicked
)

// Valid reports whether s is one of the four contract statuses.
func (s DomainStatus) Valid() bool {
	switch s {
	case StatusSuccess, StatusUnavailable, StatusSkipped, StatusError:
		return true
	}
	return false
}

// Payload is the opaque domain output. Renderers read well-known keys.
type Payload map[string]any

// DomainResult represents the outcome of a single domain invocation.
// Exactly one result exists per planned domain.
type DomainResult struct {
	Domain   DomainID      `json:"domain"`
	Status   DomainStatus  `json:"status"`
	Payload  Payload       `json:"payload,omitempty"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// Succeeded reports whether the domain returned success.
func (r DomainResult) Succeeded() bool {
	return r.Status == StatusSuccess
}

// Failed reports whether the result counts as a failure in summaries.
// Skipped domains are neither successes nor failures.
func (r DomainResult) Failed() bool {
	return r.Status == StatusError || r.Status == StatusUnavailable
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrUnknownDomain is returned when a domain name is not recognised.
	ErrUnknownDomain = errors.New("unknown domain")

	// ErrDomainUnavailable marks a domain whose availability precondition failed.
	ErrDomainUnavailable = errors.New("domain unavailable")

	// ErrDomainInvocation wraps errors raised while a domain was running.
	ErrDomainInvocation = errors.New("domain invocation failed")

	// ErrMalformedPlan is the only orchestration error surfaced to callers.
	ErrMalformedPlan = errors.New("malformed activation plan")
)

// =============================================================================
// PLAN PRIORITY
// =============================================================================

// PlanPriority defines the scheduling priority of an activation plan.
type PlanPriority int

const (
	PriorityNormal PlanPriority = 0
	PriorityHigh   PlanPriority = 1
)

// String returns the priority name.
func (p PlanPriority) String() string {
	switch p {
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	default:
		return "unknown"
	}
}
