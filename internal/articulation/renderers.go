package articulation

import (
	"fmt"
	"sort"
	"strings"

	"kairo/internal/types"
)

// field is one labelled payload key rendered ahead of the remaining keys.
type field struct {
	Key    string
	Label  string
	Format string // fmt verb for the value; empty means formatValue
}

// renderer describes how a domain's payload becomes findings lines.
type renderer struct {
	Title     string
	Fields    []field
	FollowUps []string
}

// domainRenderers is the per-domain rendering table. Payload keys that are
// not listed are rendered afterwards in sorted order.
var domainRenderers = map[types.DomainID]renderer{
	types.DomainResearch: {
		Title: "Research",
		Fields: []field{
			{Key: "topic", Label: "Topic"},
			{Key: "sources_searched", Label: "Sources searched"},
			{Key: "results_found", Label: "Results found"},
			{Key: "relevance_score", Label: "Relevance", Format: "%.0f%%"},
		},
		FollowUps: []string{"Should I set up a research goal to monitor new developments on this topic?"},
	},
	types.DomainPlanning: {
		Title: "Planning",
		Fields: []field{
			{Key: "active_goals", Label: "Active goals"},
			{Key: "suggested_goal", Label: "Suggested goal"},
		},
		FollowUps: []string{"Would you like me to turn this into a step-by-step plan?"},
	},
	types.DomainSearch: {
		Title: "Search",
		Fields: []field{
			{Key: "sources_searched", Label: "Sources searched"},
			{Key: "results_found", Label: "Results found"},
			{Key: "relevance_score", Label: "Relevance", Format: "%.0f%%"},
		},
		FollowUps: []string{"Want me to narrow the search to a specific source or time range?"},
	},
	types.DomainSecurity: {
		Title: "Security",
		Fields: []field{
			{Key: "scan_status", Label: "Scan status"},
			{Key: "risk_level", Label: "Risk level"},
			{Key: "findings", Label: "Findings"},
		},
		FollowUps: []string{"Should I keep monitoring this site for new risks?"},
	},
	types.DomainPerformance: {
		Title: "Performance",
		Fields: []field{
			{Key: "system_health", Label: "System health", Format: "%.1f%%"},
			{Key: "response_time", Label: "Response time", Format: "%vms"},
			{Key: "success_rate", Label: "Success rate", Format: "%.1f%%"},
		},
		FollowUps: []string{"Do you want a breakdown of what is slowing things down?"},
	},
	types.DomainAutomation: {
		Title: "Automation",
		Fields: []field{
			{Key: "task", Label: "Task"},
			{Key: "schedule", Label: "Schedule"},
			{Key: "next_run", Label: "Next run"},
		},
		FollowUps: []string{"Should I run this automation on a recurring schedule?"},
	},
	types.DomainShopping: {
		Title: "Shopping",
		Fields: []field{
			{Key: "product", Label: "Product"},
			{Key: "offers_compared", Label: "Offers compared"},
			{Key: "best_price", Label: "Best price"},
			{Key: "budget", Label: "Budget"},
		},
		FollowUps: []string{"Want me to track prices and alert you on a drop?"},
	},
	types.DomainAnalysis: {
		Title: "Analysis",
		Fields: []field{
			{Key: "summary", Label: "Summary"},
			{Key: "key_points", Label: "Key points"},
			{Key: "sentiment", Label: "Sentiment"},
		},
		FollowUps: []string{"Should I compare this against earlier analyses?"},
	},
}

// rendererFor returns the table entry for d, or a generic renderer titled
// after the domain.
func rendererFor(d types.DomainID) renderer {
	if r, ok := domainRenderers[d]; ok {
		return r
	}
	return renderer{Title: titleCase(string(d))}
}

// renderPayload renders labelled fields first, then remaining keys sorted.
func (r renderer) renderPayload(p types.Payload) []string {
	var lines []string
	seen := make(map[string]bool, len(r.Fields))
	for _, f := range r.Fields {
		v, ok := p[f.Key]
		if !ok {
			continue
		}
		seen[f.Key] = true
		lines = append(lines, fmt.Sprintf("- **%s**: %s", f.Label, formatField(f, v)))
	}

	rest := make([]string, 0, len(p))
	for k := range p {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		lines = append(lines, fmt.Sprintf("- **%s**: %s", humanize(k), formatValue(p[k])))
	}
	return lines
}

func formatField(f field, v any) string {
	if f.Format == "" {
		return formatValue(v)
	}
	// ratio in [0,1] rendered as a percentage
	if f.Format == "%.0f%%" {
		if x, ok := toFloat(v); ok {
			if x <= 1 {
				x *= 100
			}
			return fmt.Sprintf(f.Format, x)
		}
	}
	if x, ok := toFloat(v); ok && strings.HasPrefix(f.Format, "%.") {
		return fmt.Sprintf(f.Format, x)
	}
	return fmt.Sprintf(f.Format, v)
}

// formatValue renders payload values deterministically. Maps render with
// sorted keys.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "none"
	case string:
		return x
	case []string:
		return strings.Join(x, ", ")
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = formatValue(e)
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + formatValue(x[k])
		}
		return strings.Join(parts, ", ")
	case types.Payload:
		return formatValue(map[string]any(x))
	case float32, float64:
		f, _ := toFloat(x)
		return fmt.Sprintf("%g", f)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	}
	return 0, false
}

// stringList extracts a list of strings from a payload value.
func stringList(v any) []string {
	switch x := v.(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			out = append(out, formatValue(e))
		}
		return out
	case string:
		if x == "" {
			return nil
		}
		return []string{x}
	}
	return nil
}

func humanize(key string) string {
	return titleCase(strings.ReplaceAll(key, "_", " "))
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
