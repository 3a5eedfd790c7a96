// Package perception turns free-text requests into scored domain
// classifications. The rule table is pure data; the classifier is a pure
// function over (text, weight snapshot).
package perception

import (
	"fmt"

	"kairo/internal/types"
)

// RuleTable is the declarative pattern table: weighted domain patterns,
// disambiguation pairs, word-combination adjustments and the markers of a
// comprehensive request.
type RuleTable struct {
	Patterns             []types.PatternRule        `yaml:"patterns"`
	Disambiguations      []types.DisambiguationRule `yaml:"disambiguations"`
	Combinations         []types.WordCombination    `yaml:"combinations"`
	ComprehensiveMarkers []types.Matcher            `yaml:"comprehensive_markers"`
}

// productNouns triggers both the research product rule and the
// shopping/research disambiguation.
const productNouns = `\b(laptops?|phones?|smartphones?|headphones?|tablets?|tvs?|televisions?|cameras?|monitors?|keyboards?|shoes|sneakers|watch(es)?|consoles?)\b`

type patternSpec struct {
	domain  types.DomainID
	matcher types.Matcher
	weight  int
}

// CorePatterns is the built-in pattern corpus, grouped by domain in
// declaration order.
var CorePatterns = []patternSpec{
	// research
	{types.DomainResearch, types.Keyword("research"), 90},
	{types.DomainResearch, types.Phrase("learn about"), 80},
	{types.DomainResearch, types.Keyword("study"), 80},
	{types.DomainResearch, types.Keyword("explain"), 75},
	{types.DomainResearch, types.Phrase("history of"), 75},
	{types.DomainResearch, types.Phrase("what is"), 70},
	{types.DomainResearch, types.Phrase("how does"), 70},
	{types.DomainResearch, types.Regex(productNouns), 45},

	// planning
	{types.DomainPlanning, types.Keyword("plan"), 85},
	{types.DomainPlanning, types.Regex(`\bgoals?\b`), 85},
	{types.DomainPlanning, types.Keyword("roadmap"), 80},
	{types.DomainPlanning, types.Keyword("organize"), 70},
	{types.DomainPlanning, types.Phrase("steps to"), 70},
	{types.DomainPlanning, types.Keyword("milestone"), 75},

	// search
	{types.DomainSearch, types.Keyword("search"), 85},
	{types.DomainSearch, types.Phrase("look up"), 80},
	{types.DomainSearch, types.Keyword("news"), 80},
	{types.DomainSearch, types.Keyword("find"), 75},
	{types.DomainSearch, types.Keyword("latest"), 75},
	{types.DomainSearch, types.Phrase("where can i"), 70},

	// security
	{types.DomainSecurity, types.Keyword("security"), 90},
	{types.DomainSecurity, types.Keyword("phishing"), 90},
	{types.DomainSecurity, types.Keyword("malware"), 90},
	{types.DomainSecurity, types.Regex(`\bvulnerab(le|ility|ilities)\b`), 85},
	{types.DomainSecurity, types.Keyword("secure"), 80},
	{types.DomainSecurity, types.Keyword("safe"), 75},
	{types.DomainSecurity, types.Keyword("privacy"), 75},
	{types.DomainSecurity, types.Keyword("scan"), 75},

	// performance
	{types.DomainPerformance, types.Keyword("performance"), 90},
	{types.DomainPerformance, types.Keyword("latency"), 85},
	{types.DomainPerformance, types.Phrase("memory usage"), 85},
	{types.DomainPerformance, types.Keyword("slow"), 80},
	{types.DomainPerformance, types.Regex(`\boptimi[sz]e\b`), 80},
	{types.DomainPerformance, types.Keyword("speed"), 75},
	{types.DomainPerformance, types.Keyword("health"), 70},

	// automation
	{types.DomainAutomation, types.Keyword("automate"), 90},
	{types.DomainAutomation, types.Keyword("automation"), 90},
	{types.DomainAutomation, types.Keyword("schedule"), 80},
	{types.DomainAutomation, types.Phrase("remind me"), 80},
	{types.DomainAutomation, types.Keyword("workflow"), 75},
	{types.DomainAutomation, types.Keyword("recurring"), 75},
	{types.DomainAutomation, types.Phrase("every day"), 70},

	// shopping
	{types.DomainShopping, types.Keyword("buy"), 90},
	{types.DomainShopping, types.Keyword("purchase"), 90},
	{types.DomainShopping, types.Phrase("best price"), 85},
	{types.DomainShopping, types.Regex(`\bunder \$?\d+`), 80},
	{types.DomainShopping, types.Keyword("price"), 75},
	{types.DomainShopping, types.Regex(`\bdeals?\b`), 75},
	{types.DomainShopping, types.Keyword("cheap"), 70},
	{types.DomainShopping, types.Regex(productNouns), 60},

	// analysis
	{types.DomainAnalysis, types.Keyword("analyze"), 90},
	{types.DomainAnalysis, types.Keyword("analysis"), 90},
	{types.DomainAnalysis, types.Keyword("summarize"), 80},
	{types.DomainAnalysis, types.Keyword("statistics"), 80},
	{types.DomainAnalysis, types.Keyword("compare"), 75},
	{types.DomainAnalysis, types.Keyword("evaluate"), 75},
	{types.DomainAnalysis, types.Regex(`\btrends?\b`), 75},
	{types.DomainAnalysis, types.Regex(`\binsights?\b`), 75},
}

// DefaultRuleTable returns the built-in rule table with compiled matchers.
func DefaultRuleTable() *RuleTable {
	t := &RuleTable{}

	counts := make(map[types.DomainID]int)
	for _, p := range CorePatterns {
		counts[p.domain]++
		t.Patterns = append(t.Patterns, types.PatternRule{
			ID:      fmt.Sprintf("%s.%02d", p.domain, counts[p.domain]),
			Domain:  p.domain,
			Pattern: p.matcher,
			Weight:  p.weight,
		})
	}

	t.Disambiguations = []types.DisambiguationRule{
		{
			Name:      "shopping-over-research-on-product",
			Favored:   types.DomainShopping,
			Penalized: types.DomainResearch,
			When:      []types.Matcher{types.Regex(productNouns)},
			Boost:     10,
			Penalty:   25,
		},
		{
			Name:      "search-over-research-on-news",
			Favored:   types.DomainSearch,
			Penalized: types.DomainResearch,
			When:      []types.Matcher{types.Regex(`\b(news|latest|today)\b`)},
			Boost:     5,
			Penalty:   10,
		},
		{
			Name:      "automation-over-planning-on-schedule",
			Favored:   types.DomainAutomation,
			Penalized: types.DomainPlanning,
			When:      []types.Matcher{types.Regex(`\b(schedule|every|recurring)\b`)},
			Boost:     5,
			Penalty:   15,
		},
	}

	t.Combinations = []types.WordCombination{
		{Name: "price-comparison", Phrase: types.Phrase("price comparison"), Domain: types.DomainShopping, Delta: 10},
		{Name: "compare-prices-shopping", Phrase: types.Phrase("compare prices"), Domain: types.DomainShopping, Delta: 15},
		{Name: "compare-prices-analysis", Phrase: types.Phrase("compare prices"), Domain: types.DomainAnalysis, Delta: -15},
		{Name: "security-audit", Phrase: types.Phrase("security audit"), Domain: types.DomainSecurity, Delta: 10},
		{Name: "research-paper", Phrase: types.Phrase("research paper"), Domain: types.DomainResearch, Delta: 10},
		{Name: "market-research", Phrase: types.Phrase("market research"), Domain: types.DomainAnalysis, Delta: 10},
		{Name: "speed-up", Phrase: types.Phrase("speed up"), Domain: types.DomainPerformance, Delta: 10},
		{Name: "find-deals", Phrase: types.Regex(`\bfind (the )?(best )?deals?\b`), Domain: types.DomainShopping, Delta: 10},
	}

	t.ComprehensiveMarkers = []types.Matcher{
		types.Keyword("comprehensive"),
		types.Keyword("complete"),
		types.Keyword("full"),
	}

	if err := t.Compile(); err != nil {
		// the built-in corpus is static; a failure here is a programming error
		panic(fmt.Sprintf("perception: default rule table invalid: %v", err))
	}
	return t
}

// Compile validates every rule and compiles every matcher in place.
// BaseWeight is set from Weight when unset, and a TunedWeight replaces
// Weight.
func (t *RuleTable) Compile() error {
	seen := make(map[string]struct{}, len(t.Patterns))
	for i := range t.Patterns {
		r := &t.Patterns[i]
		if r.ID == "" {
			return fmt.Errorf("pattern %d: missing id", i)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("pattern %s: duplicate id", r.ID)
		}
		seen[r.ID] = struct{}{}
		if !isCapability(r.Domain) {
			return fmt.Errorf("pattern %s: %w %q", r.ID, types.ErrUnknownDomain, r.Domain)
		}
		if r.Weight < types.MinScore || r.Weight > types.MaxScore {
			return fmt.Errorf("pattern %s: weight %d out of range", r.ID, r.Weight)
		}
		if r.BaseWeight == 0 {
			r.BaseWeight = r.Weight
		}
		if r.TunedWeight != 0 {
			if r.TunedWeight < types.MinScore || r.TunedWeight > types.MaxScore {
				return fmt.Errorf("pattern %s: tuned weight %d out of range", r.ID, r.TunedWeight)
			}
			r.Weight, r.TunedWeight = r.TunedWeight, 0
		}
		m, err := r.Pattern.Compile()
		if err != nil {
			return fmt.Errorf("pattern %s: %w", r.ID, err)
		}
		r.Pattern = m
	}

	for i := range t.Disambiguations {
		d := &t.Disambiguations[i]
		if !isCapability(d.Favored) || !isCapability(d.Penalized) {
			return fmt.Errorf("disambiguation %s: %w", d.Name, types.ErrUnknownDomain)
		}
		if d.Favored == d.Penalized {
			return fmt.Errorf("disambiguation %s: favored and penalized are the same domain", d.Name)
		}
		for j := range d.When {
			m, err := d.When[j].Compile()
			if err != nil {
				return fmt.Errorf("disambiguation %s: %w", d.Name, err)
			}
			d.When[j] = m
		}
	}

	for i := range t.Combinations {
		c := &t.Combinations[i]
		if !isCapability(c.Domain) {
			return fmt.Errorf("combination %s: %w %q", c.Name, types.ErrUnknownDomain, c.Domain)
		}
		m, err := c.Phrase.Compile()
		if err != nil {
			return fmt.Errorf("combination %s: %w", c.Name, err)
		}
		c.Phrase = m
	}

	for i := range t.ComprehensiveMarkers {
		m, err := t.ComprehensiveMarkers[i].Compile()
		if err != nil {
			return fmt.Errorf("comprehensive marker: %w", err)
		}
		t.ComprehensiveMarkers[i] = m
	}
	return nil
}

// Clone returns a deep copy. Compiled matchers are shared; they are immutable.
func (t *RuleTable) Clone() *RuleTable {
	out := &RuleTable{
		Patterns:             append([]types.PatternRule(nil), t.Patterns...),
		Combinations:         append([]types.WordCombination(nil), t.Combinations...),
		ComprehensiveMarkers: append([]types.Matcher(nil), t.ComprehensiveMarkers...),
	}
	out.Disambiguations = make([]types.DisambiguationRule, len(t.Disambiguations))
	for i, d := range t.Disambiguations {
		d.When = append([]types.Matcher(nil), d.When...)
		out.Disambiguations[i] = d
	}
	return out
}

// RulesFor returns the pattern rules of one domain in table order.
func (t *RuleTable) RulesFor(domain types.DomainID) []types.PatternRule {
	var out []types.PatternRule
	for _, r := range t.Patterns {
		if r.Domain == domain {
			out = append(out, r)
		}
	}
	return out
}

func isCapability(d types.DomainID) bool {
	return d != types.BaselineDomain && types.IsKnownDomain(d)
}
