package types

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDomain(t *testing.T) {
	d, err := ParseDomain("  Shopping ")
	require.NoError(t, err)
	assert.Equal(t, DomainShopping, d)

	d, err = ParseDomain("memory")
	require.NoError(t, err)
	assert.Equal(t, DomainMemory, d)

	_, err = ParseDomain("weather")
	assert.True(t, errors.Is(err, ErrUnknownDomain))
}

func TestDomainRankFollowsDeclarationOrder(t *testing.T) {
	assert.Equal(t, -1, DomainRank(DomainMemory))
	for i, d := range CapabilityDomains {
		assert.Equal(t, i, DomainRank(d))
	}
	assert.Equal(t, len(CapabilityDomains), DomainRank("weather"))
	assert.Len(t, AllDomains(), len(CapabilityDomains)+1)
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "buy a laptop", NormalizeText("  Buy   a\tLAPTOP \n"))
	assert.Equal(t, "", NormalizeText("   "))
}

func TestMatcherKinds(t *testing.T) {
	kw, err := Keyword("buy").Compile()
	require.NoError(t, err)
	assert.True(t, kw.Compiled())
	assert.True(t, kw.Match("buy a laptop"))
	assert.False(t, kw.Match("buyer guide"), "keyword must match whole words only")

	ph := Phrase("Best Price")
	assert.True(t, ph.Match("find the best price for tv"))
	assert.False(t, ph.Match("best prices"))

	rx, err := Regex(`\$\d+`).Compile()
	require.NoError(t, err)
	assert.True(t, rx.Match("under $800"))

	_, err = Regex(`(`).Compile()
	assert.Error(t, err)
	assert.False(t, Regex(`(`).Match("anything"))

	_, err = Matcher{Kind: "fuzzy", Expr: "x"}.Compile()
	assert.Error(t, err)
	_, err = Keyword("").Compile()
	assert.Error(t, err)
}

func TestClassificationRankedAndDegenerate(t *testing.T) {
	c := ClassificationResult{
		Scores: map[DomainID]int{
			DomainResearch: 70,
			DomainSearch:   70,
			DomainShopping: 90,
			DomainAnalysis: 0,
		},
	}
	assert.Equal(t, []DomainID{DomainShopping, DomainResearch, DomainSearch}, c.Ranked())
	assert.False(t, c.Degenerate())

	c.Adjustments = append(c.Adjustments, Adjustment{Kind: AdjustDegenerate})
	assert.True(t, c.Degenerate())
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, ClampScore(-20))
	assert.Equal(t, 100, ClampScore(140))
	assert.Equal(t, 55, ClampScore(55))
}

func TestSynthesizedResponseMarkdown(t *testing.T) {
	r := SynthesizedResponse{Sections: []Section{
		{Tag: SectionSummary, Title: "Summary", Lines: []string{"- ok"}},
		{Tag: SectionFollowUps, Title: "Follow-ups", Lines: []string{"- next?"}},
	}}
	md := r.Markdown()
	assert.True(t, strings.HasPrefix(md, "## Summary\n\n- ok\n"))
	assert.Contains(t, md, "## Follow-ups")
	assert.Equal(t, []SectionTag{SectionSummary, SectionFollowUps}, r.Tags())

	_, ok := r.Section(SectionMemoryContext)
	assert.False(t, ok)
	assert.Less(t, SectionSummary.Order(), SectionFollowUps.Order())
}

func TestFeedbackRecordMembership(t *testing.T) {
	rec := FeedbackRecord{
		DomainsUsed:   []DomainID{DomainMemory, DomainSearch},
		FailedDomains: []DomainID{DomainSearch},
	}
	assert.True(t, rec.Used(DomainSearch))
	assert.False(t, rec.Used(DomainShopping))
	assert.True(t, rec.FailedFor(DomainSearch))
	assert.False(t, rec.FailedFor(DomainMemory))
}
