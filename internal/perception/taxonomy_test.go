package perception

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kairo/internal/types"
)

func TestDefaultRuleTable_CoversEveryCapabilityDomain(t *testing.T) {
	table := DefaultRuleTable()
	for _, d := range types.CapabilityDomains {
		assert.NotEmpty(t, table.RulesFor(d), "domain %s has no patterns", d)
	}
	assert.Empty(t, table.RulesFor(types.DomainMemory), "baseline domain is never classified")

	for _, p := range table.Patterns {
		assert.True(t, p.Pattern.Compiled(), "pattern %s not compiled", p.ID)
		assert.Equal(t, p.Weight, p.BaseWeight, "pattern %s", p.ID)
	}
}

func TestDefaultRuleTable_IDsAreStable(t *testing.T) {
	a := DefaultRuleTable()
	b := DefaultRuleTable()
	require.Equal(t, len(a.Patterns), len(b.Patterns))
	for i := range a.Patterns {
		assert.Equal(t, a.Patterns[i].ID, b.Patterns[i].ID)
	}
	assert.Equal(t, "research.01", a.Patterns[0].ID)
}

func TestRuleTableCompile_Rejects(t *testing.T) {
	cases := map[string]*RuleTable{
		"missing id": {Patterns: []types.PatternRule{
			{Domain: types.DomainSearch, Pattern: types.Keyword("x"), Weight: 10},
		}},
		"duplicate id": {Patterns: []types.PatternRule{
			{ID: "a", Domain: types.DomainSearch, Pattern: types.Keyword("x"), Weight: 10},
			{ID: "a", Domain: types.DomainSearch, Pattern: types.Keyword("y"), Weight: 10},
		}},
		"baseline domain": {Patterns: []types.PatternRule{
			{ID: "a", Domain: types.DomainMemory, Pattern: types.Keyword("x"), Weight: 10},
		}},
		"weight out of range": {Patterns: []types.PatternRule{
			{ID: "a", Domain: types.DomainSearch, Pattern: types.Keyword("x"), Weight: 101},
		}},
		"bad regex": {Patterns: []types.PatternRule{
			{ID: "a", Domain: types.DomainSearch, Pattern: types.Regex("("), Weight: 10},
		}},
		"self disambiguation": {Disambiguations: []types.DisambiguationRule{
			{Name: "d", Favored: types.DomainSearch, Penalized: types.DomainSearch},
		}},
		"unknown combination domain": {Combinations: []types.WordCombination{
			{Name: "c", Phrase: types.Phrase("x y"), Domain: "weather", Delta: 5},
		}},
	}
	for name, table := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, table.Compile())
		})
	}
}

func TestRuleTableClone_IsIndependent(t *testing.T) {
	a := DefaultRuleTable()
	b := a.Clone()
	b.Patterns[0].Weight = 1
	b.Disambiguations[0].When[0] = types.Keyword("other")

	assert.NotEqual(t, 1, a.Patterns[0].Weight)
	assert.NotEqual(t, "other", a.Disambiguations[0].When[0].Expr)
}
