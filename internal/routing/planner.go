// Package routing maps a classification plus request context to the set of
// domains and actions activated for one request.
package routing

import (
	"kairo/internal/config"
	"kairo/internal/logging"
	"kairo/internal/types"
)

// Options configures the planner thresholds.
type Options struct {
	MinPrimaryConfidence   int
	HighPriorityConfidence int
	BlankURLs              []string
}

// OptionsFromConfig converts the planner config section.
func OptionsFromConfig(c config.PlannerConfig) Options {
	return Options{
		MinPrimaryConfidence:   c.MinPrimaryConfidence,
		HighPriorityConfidence: c.HighPriorityConfidence,
		BlankURLs:              c.BlankURLs,
	}
}

// DefaultOptions returns the default planner options.
func DefaultOptions() Options {
	return OptionsFromConfig(config.DefaultConfig().Planner)
}

// Planner evaluates activation rules. It holds no mutable state and is safe
// for concurrent use.
type Planner struct {
	opts  Options
	rules []Rule
}

// NewPlanner creates a planner with the standing rules followed by extra.
func NewPlanner(opts Options, extra ...Rule) *Planner {
	p := &Planner{opts: opts}
	p.rules = append(p.standingRules(), extra...)
	return p
}

// Rules returns the rule names in evaluation order.
func (p *Planner) Rules() []string {
	out := make([]string, len(p.rules))
	for i, r := range p.rules {
		out[i] = r.Name
	}
	return out
}

func (p *Planner) standingRules() []Rule {
	rules := []Rule{
		{
			Name:    "baseline",
			When:    func(Input) bool { return true },
			Domains: []types.DomainID{types.BaselineDomain},
			Actions: []types.ActionID{types.ActionRecallContext, types.ActionStoreInteraction},
		},
		{
			Name: "page-safety",
			When: func(in Input) bool {
				return !isBlankURL(in.Context.URL, p.opts.BlankURLs)
			},
			Domains: []types.DomainID{types.DomainSecurity},
			Actions: []types.ActionID{types.ActionScanPage},
		},
	}
	rules = append(rules, IntentRules()...)
	rules = append(rules,
		Rule{
			Name: "classified-primary",
			When: func(in Input) bool {
				return in.Classification.Confidence >= p.opts.MinPrimaryConfidence &&
					in.Classification.Confidence > 0
			},
			Select: func(in Input) ([]types.DomainID, []types.ActionID) {
				d := []types.DomainID{in.Classification.Primary}
				return d, actionsFor(d)
			},
		},
		Rule{
			Name: "supporting",
			When: func(in Input) bool { return in.Classification.NeedsMultipleDomains },
			Select: func(in Input) ([]types.DomainID, []types.ActionID) {
				return in.Classification.Supporting, actionsFor(in.Classification.Supporting)
			},
		},
		Rule{
			Name:    "comprehensive",
			When:    func(in Input) bool { return in.Classification.Comprehensive },
			Domains: append([]types.DomainID(nil), types.CapabilityDomains...),
			Actions: []types.ActionID{types.ActionFullSweep},
		},
	)
	return rules
}

// Plan builds the activation plan for one classified request.
func (p *Planner) Plan(cls types.ClassificationResult, ctx types.RequestContext) types.ActivationPlan {
	text := cls.Text
	in := Input{Text: text, Classification: cls, Context: ctx}

	plan := types.NewActivationPlan()
	for _, r := range p.rules {
		if r.When == nil || !r.When(in) {
			continue
		}
		domains, actions := r.payload(in)
		plan.AddDomains(domains...)
		plan.AddActions(actions...)
		plan.Rules = append(plan.Rules, r.Name)
	}

	// baseline is always planned
	plan.AddDomains(types.BaselineDomain)

	if p.highPriority(in) {
		plan.Priority = types.PriorityHigh
	}

	logging.RoutingDebug("Planned %v actions=%v priority=%s rules=%v",
		plan.DomainList(), plan.ActionList(), plan.Priority, plan.Rules)
	return plan
}

func (p *Planner) highPriority(in Input) bool {
	if in.Classification.Confidence >= p.opts.HighPriorityConfidence {
		return true
	}
	if in.Classification.Comprehensive {
		return true
	}
	return urgencyMarkers.Match(in.Text)
}
