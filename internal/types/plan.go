package types

import (
	"fmt"
	"sort"
)

// ActionID names a concrete action a domain is asked to perform.
type ActionID string

const (
	ActionRecallContext    ActionID = "recall_context"
	ActionStoreInteraction ActionID = "store_interaction"
	ActionScanPage         ActionID = "scan_page"
	ActionResearchTopic    ActionID = "research_topic"
	ActionCreateGoal       ActionID = "create_goal"
	ActionDeepSearch       ActionID = "deep_search"
	ActionSecurityAudit    ActionID = "security_audit"
	ActionMonitorHealth    ActionID = "monitor_health"
	ActionScheduleTask     ActionID = "schedule_task"
	ActionComparePrices    ActionID = "compare_prices"
	ActionAnalyzeContent   ActionID = "analyze_content"
	ActionFullSweep        ActionID = "full_sweep"
)

// ActivationPlan is the concrete set of domains and actions chosen for one request.
// Invariant: the baseline domain is always a member.
type ActivationPlan struct {
	Domains  map[DomainID]struct{} `json:"-"`
	Actions  map[ActionID]struct{} `json:"-"`
	Priority PlanPriority          `json:"priority"`
	// Rules lists the planner rules that fired, in evaluation order.
	Rules []string `json:"rules,omitempty"`
}

// NewActivationPlan returns an empty plan containing only the baseline domain.
func NewActivationPlan() ActivationPlan {
	p := ActivationPlan{
		Domains: make(map[DomainID]struct{}),
		Actions: make(map[ActionID]struct{}),
	}
	p.Domains[BaselineDomain] = struct{}{}
	return p
}

// AddDomains adds every given domain to the plan.
func (p *ActivationPlan) AddDomains(ds ...DomainID) {
	for _, d := range ds {
		p.Domains[d] = struct{}{}
	}
}

// AddActions adds every given action to the plan.
func (p *ActivationPlan) AddActions(as ...ActionID) {
	for _, a := range as {
		p.Actions[a] = struct{}{}
	}
}

// Has reports whether d is planned.
func (p ActivationPlan) Has(d DomainID) bool {
	_, ok := p.Domains[d]
	return ok
}

// HasAction reports whether a is planned.
func (p ActivationPlan) HasAction(a ActionID) bool {
	_, ok := p.Actions[a]
	return ok
}

// DomainList returns the planned domains in priority order.
func (p ActivationPlan) DomainList() []DomainID {
	out := make([]DomainID, 0, len(p.Domains))
	for d := range p.Domains {
		out = append(out, d)
	}
	SortDomains(out)
	return out
}

// ActionList returns the planned actions sorted by name.
func (p ActivationPlan) ActionList() []ActionID {
	out := make([]ActionID, 0, len(p.Actions))
	for a := range p.Actions {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Validate checks the plan invariants. A violation is a programming error.
func (p ActivationPlan) Validate() error {
	if p.Domains == nil {
		return fmt.Errorf("%w: nil domain set", ErrMalformedPlan)
	}
	if !p.Has(BaselineDomain) {
		return fmt.Errorf("%w: baseline domain %q missing", ErrMalformedPlan, BaselineDomain)
	}
	for d := range p.Domains {
		if !IsKnownDomain(d) {
			return fmt.Errorf("%w: %w %q", ErrMalformedPlan, ErrUnknownDomain, d)
		}
	}
	return nil
}
