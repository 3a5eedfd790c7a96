package routing

import (
	"strings"

	"kairo/internal/types"
)

// Input is what every planner rule predicate sees.
type Input struct {
	Text           string
	Classification types.ClassificationResult
	Context        types.RequestContext
}

// Rule is one declarative activation rule. Rules are evaluated
// independently and their payloads are unioned.
type Rule struct {
	Name    string
	When    func(in Input) bool
	Domains []types.DomainID
	Actions []types.ActionID
	// Select derives a payload from the input for rules whose domains are
	// not fixed.
	Select func(in Input) ([]types.DomainID, []types.ActionID)
}

// payload returns the rule's domains and actions for in.
func (r Rule) payload(in Input) ([]types.DomainID, []types.ActionID) {
	domains := append([]types.DomainID(nil), r.Domains...)
	actions := append([]types.ActionID(nil), r.Actions...)
	if r.Select != nil {
		d, a := r.Select(in)
		domains = append(domains, d...)
		actions = append(actions, a...)
	}
	return domains, actions
}

// DomainActions is the default action each domain performs when it is
// activated by classification rather than by an intent keyword.
var DomainActions = map[types.DomainID]types.ActionID{
	types.DomainResearch:    types.ActionResearchTopic,
	types.DomainPlanning:    types.ActionCreateGoal,
	types.DomainSearch:      types.ActionDeepSearch,
	types.DomainSecurity:    types.ActionSecurityAudit,
	types.DomainPerformance: types.ActionMonitorHealth,
	types.DomainAutomation:  types.ActionScheduleTask,
	types.DomainShopping:    types.ActionComparePrices,
	types.DomainAnalysis:    types.ActionAnalyzeContent,
}

// intentKeywords are the planner's own coarse triggers. Stems carry their
// inflections explicitly so "scheduling" fires the planning rule while
// "planet" does not.
var intentKeywords = []struct {
	domain types.DomainID
	expr   string
}{
	{types.DomainResearch, `\b(research(es|ed|ing)?|stud(y|ies|ying)|learn(s|ed|ing)?)\b`},
	{types.DomainPlanning, `\b(goals?|plan(s|ned|ner|ners|ning)?|organi[sz](e|es|ed|ing|ation)|schedul(e|es|ed|ing))\b`},
	{types.DomainSearch, `\b(what is|how to|find(s|ing)?|search(es|ed|ing)?|look up|news)\b`},
	{types.DomainSecurity, `\b(security|secure|safe(ty)?|protect(s|ed|ing|ion)?|phish(ing)?|malware)\b`},
	{types.DomainPerformance, `\b(performance|slow(er|ly|ness)?|speed(s|ing)?|latency|optimi[sz](e|es|ed|ing|ation))\b`},
	{types.DomainAutomation, `\b(automat(e|es|ed|ing|ion|ic|ically)|remind(s|er|ers)?|recurring|workflows?)\b`},
	{types.DomainShopping, `\b(buy(s|ing)?|purchas(e|es|ed|ing)|pric(e|es|ing)|shop(s|ping)?|deals?)\b`},
	{types.DomainAnalysis, `\b(analy[sz](e|es|ed|is|ing)|analytics|compar(e|es|ed|ing|ison|isons)|summar(y|ies|i[sz](e|es|ed|ing))|statistic(s|al)?|trend(s|ing)?)\b`},
}

// urgencyMarkers raise the plan priority.
var urgencyMarkers = mustCompile(`\b(urgent|urgently|asap|immediately|right now|emergency)\b`)

func mustCompile(expr string) types.Matcher {
	m, err := types.Regex(expr).Compile()
	if err != nil {
		panic("routing: invalid matcher " + expr + ": " + err.Error())
	}
	return m
}

// IntentRules builds one keyword rule per capability domain.
func IntentRules() []Rule {
	rules := make([]Rule, 0, len(intentKeywords))
	for _, ik := range intentKeywords {
		m := mustCompile(ik.expr)
		domain := ik.domain
		rules = append(rules, Rule{
			Name:    "intent-" + string(domain),
			When:    func(in Input) bool { return m.Match(in.Text) },
			Domains: []types.DomainID{domain},
			Actions: []types.ActionID{DomainActions[domain]},
		})
	}
	return rules
}

// isBlankURL reports whether url is empty or a placeholder page.
func isBlankURL(url string, blanks []string) bool {
	u := strings.ToLower(strings.TrimSpace(url))
	if u == "" {
		return true
	}
	for _, b := range blanks {
		if u == strings.ToLower(b) {
			return true
		}
	}
	return false
}

func actionsFor(domains []types.DomainID) []types.ActionID {
	out := make([]types.ActionID, 0, len(domains))
	for _, d := range domains {
		if a, ok := DomainActions[d]; ok {
			out = append(out, a)
		}
	}
	return out
}
