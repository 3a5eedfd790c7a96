package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kairo/internal/perception"
	"kairo/internal/types"
)

func planFor(t *testing.T, text string, ctx types.RequestContext) (types.ClassificationResult, types.ActivationPlan) {
	t.Helper()
	c := perception.NewClassifier(perception.NewWeightStore(nil), perception.DefaultThresholds())
	cls := c.Classify(types.Request{Text: text, Context: ctx})
	plan := NewPlanner(DefaultOptions()).Plan(cls, ctx)
	require.NoError(t, plan.Validate())
	return cls, plan
}

func TestPlan_NewsScenario(t *testing.T) {
	_, plan := planFor(t, "what is the latest news on graphene batteries", types.RequestContext{})

	assert.True(t, plan.Has(types.DomainMemory))
	assert.True(t, plan.Has(types.DomainSearch))
	assert.False(t, plan.Has(types.DomainSecurity), "no URL means no page scan")
	assert.True(t, plan.HasAction(types.ActionDeepSearch))
	assert.Equal(t, types.PriorityHigh, plan.Priority, "confidence 95 is high priority")
}

func TestPlan_URLOnlyActivatesBaselineAndSafety(t *testing.T) {
	ctx := types.RequestContext{URL: "https://example.org/article"}
	_, plan := planFor(t, "hello there", ctx)

	assert.Equal(t, []types.DomainID{types.DomainMemory, types.DomainSecurity}, plan.DomainList())
	assert.ElementsMatch(t,
		[]types.ActionID{types.ActionRecallContext, types.ActionStoreInteraction, types.ActionScanPage},
		plan.ActionList())
	assert.Equal(t, types.PriorityNormal, plan.Priority)
	assert.Equal(t, []string{"baseline", "page-safety"}, plan.Rules)
}

func TestPlan_IntentKeywordsMatchWholeWords(t *testing.T) {
	ctx := types.RequestContext{URL: "https://example.org/article"}
	_, plan := planFor(t, "tell me about the planet mars", ctx)
	assert.Equal(t, []types.DomainID{types.DomainMemory, types.DomainSecurity}, plan.DomainList())

	rules := IntentRules()
	fires := func(text string) []types.DomainID {
		var out []types.DomainID
		for _, r := range rules {
			if r.When(Input{Text: text}) {
				out = append(out, r.Domains...)
			}
		}
		return out
	}
	cases := map[string][]types.DomainID{
		"scheduling my planned trips": {types.DomainPlanning},
		"the planet is safer now":     nil,
		"findings from the study":     {types.DomainResearch},
		"safety of automatic backups": {types.DomainSecurity, types.DomainAutomation},
		"pricing trends":              {types.DomainShopping, types.DomainAnalysis},
		"a buyer's guide to deals":    {types.DomainShopping},
	}
	for text, want := range cases {
		assert.Equal(t, want, fires(text), text)
	}
}

func TestPlan_BlankURLsAreIgnored(t *testing.T) {
	for _, url := range []string{"", "about:blank", "ABOUT:NEWTAB", "chrome://newtab/", " edge://newtab/ ", "kairo://start"} {
		_, plan := planFor(t, "hello there", types.RequestContext{URL: url})
		assert.Equal(t, []types.DomainID{types.DomainMemory}, plan.DomainList(), "url %q", url)
	}
}

func TestPlan_BaselineAlwaysPresent(t *testing.T) {
	p := NewPlanner(DefaultOptions())
	plan := p.Plan(types.ClassificationResult{}, types.RequestContext{})
	assert.True(t, plan.Has(types.BaselineDomain))
	assert.NoError(t, plan.Validate())
}

func TestPlan_ComprehensiveActivatesEveryDomain(t *testing.T) {
	cls, plan := planFor(t, "give me a comprehensive security review", types.RequestContext{})
	require.True(t, cls.Comprehensive)

	for _, d := range types.CapabilityDomains {
		assert.True(t, plan.Has(d), "comprehensive plan missing %s", d)
	}
	assert.True(t, plan.HasAction(types.ActionFullSweep))
	assert.Equal(t, types.PriorityHigh, plan.Priority)
}

func TestPlan_SupportingDomainsAdded(t *testing.T) {
	cls, plan := planFor(t, "research and plan a security audit", types.RequestContext{})
	require.True(t, cls.NeedsMultipleDomains)

	for _, d := range append([]types.DomainID{cls.Primary}, cls.Supporting...) {
		assert.True(t, plan.Has(d), "missing %s", d)
	}
	assert.Contains(t, plan.Rules, "supporting")
	assert.Contains(t, plan.Rules, "classified-primary")
}

func TestPlan_LowConfidencePrimaryNotActivated(t *testing.T) {
	cls := types.ClassificationResult{
		Text:       "mumble",
		Scores:     map[types.DomainID]int{types.DomainAnalysis: 30},
		Primary:    types.DomainAnalysis,
		Confidence: 30,
	}
	plan := NewPlanner(DefaultOptions()).Plan(cls, types.RequestContext{})
	assert.False(t, plan.Has(types.DomainAnalysis))
	assert.NotContains(t, plan.Rules, "classified-primary")
}

func TestPlan_IntentKeywordsIndependentOfClassifier(t *testing.T) {
	// the classifier never saw "protect", the planner's coarse rules did
	cls := types.ClassificationResult{Text: "protect my accounts", Primary: types.DomainResearch}
	plan := NewPlanner(DefaultOptions()).Plan(cls, types.RequestContext{})
	assert.True(t, plan.Has(types.DomainSecurity))
	assert.True(t, plan.HasAction(types.ActionSecurityAudit))
}

func TestPlan_UrgencyRaisesPriority(t *testing.T) {
	assert.True(t, urgencyMarkers.Compiled(), "urgency markers compile at package init")

	_, plan := planFor(t, "organize my notes asap", types.RequestContext{})
	assert.Equal(t, types.PriorityHigh, plan.Priority)
	assert.True(t, plan.Has(types.DomainPlanning))
}

func TestPlan_ExtraRules(t *testing.T) {
	extra := Rule{
		Name:    "title-shopping",
		When:    func(in Input) bool { return in.Context.Title == "Checkout" },
		Domains: []types.DomainID{types.DomainShopping},
	}
	p := NewPlanner(DefaultOptions(), extra)
	assert.Equal(t, "title-shopping", p.Rules()[len(p.Rules())-1])

	plan := p.Plan(types.ClassificationResult{}, types.RequestContext{Title: "Checkout"})
	assert.True(t, plan.Has(types.DomainShopping))
}
