package articulation

import (
	"fmt"
	"strings"

	"kairo/internal/types"
)

// pairing suggests enabling Missing when Ran succeeded and Missing did not run.
type pairing struct {
	Ran     types.DomainID
	Missing types.DomainID
	Text    string
}

var pairings = []pairing{
	{types.DomainShopping, types.DomainSecurity, "Run a security check on the store before you buy."},
	{types.DomainSearch, types.DomainResearch, "Dig deeper with a research pass over the top results."},
	{types.DomainResearch, types.DomainAnalysis, "Ask for an analysis to summarize what the research found."},
	{types.DomainPlanning, types.DomainAutomation, "Automate the recurring steps of this plan."},
	{types.DomainAutomation, types.DomainPerformance, "Check system performance before adding more automations."},
}

// suggestions derives proactive suggestions from which domains ran, which
// succeeded, and what the classifier expected.
func suggestions(results map[types.DomainID]types.DomainResult, cls types.ClassificationResult) []string {
	var lines []string
	seen := make(map[string]bool)
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			lines = append(lines, "- "+s)
		}
	}

	succeeded := func(d types.DomainID) bool {
		r, ok := results[d]
		return ok && r.Succeeded()
	}

	for _, p := range pairings {
		if _, ran := results[p.Missing]; succeeded(p.Ran) && !ran {
			add(p.Text)
		}
	}

	if sec, ok := results[types.DomainSecurity]; ok && sec.Succeeded() {
		if risk, _ := sec.Payload["risk_level"].(string); risk != "" && risk != "low" {
			add(fmt.Sprintf("The page was rated %s risk; review the security findings before continuing.", risk))
		}
	}

	for _, d := range cls.Supporting {
		if _, ran := results[d]; !ran {
			add(fmt.Sprintf("Enable the %s domain for a fuller answer.", d))
		}
	}

	var retry []string
	for _, r := range orderedResults(results) {
		if r.Failed() {
			retry = append(retry, string(r.Domain))
		}
	}
	if len(retry) > 0 {
		add("Try again later for: " + strings.Join(retry, ", ") + ".")
	}
	return lines
}
