package perception

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kairo/internal/types"
)

const sampleRules = `
patterns:
  - id: travel.flights
    domain: search
    pattern: {kind: keyword, expr: flights}
    weight: 70
  - id: travel.itinerary
    domain: planning
    pattern: {kind: phrase, expr: "travel itinerary"}
    weight: 88
disambiguations:
  - name: planning-over-search-on-trip
    favored: planning
    penalized: search
    when:
      - {kind: keyword, expr: trip}
    boost: 5
    penalty: 20
comprehensive_markers:
  - {kind: keyword, expr: everything}
`

func writeRules(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadRuleTable(t *testing.T) {
	table, err := LoadRuleTable(writeRules(t, sampleRules))
	require.NoError(t, err)
	require.Len(t, table.Patterns, 2)
	assert.Equal(t, 88, table.Patterns[1].BaseWeight)

	c := NewClassifier(NewWeightStore(table), DefaultThresholds())
	res := c.Classify(types.Request{Text: "Book flights for my trip and a travel itinerary"})
	assert.Equal(t, types.DomainPlanning, res.Primary)
	assert.Equal(t, 50, res.Scores[types.DomainSearch])

	res = c.Classify(types.Request{Text: "everything about flights"})
	assert.True(t, res.Comprehensive)
}

func TestLoadRuleTable_IncludeDefaults(t *testing.T) {
	body := `
include_defaults: true
patterns:
  - id: search.01
    domain: search
    pattern: {kind: keyword, expr: search}
    weight: 40
  - id: shopping.coupon
    domain: shopping
    pattern: {kind: keyword, expr: coupon}
    weight: 77
`
	table, err := LoadRuleTable(writeRules(t, body))
	require.NoError(t, err)

	defaults := DefaultRuleTable()
	assert.Len(t, table.Patterns, len(defaults.Patterns)+1)

	ws := NewWeightStore(table)
	assert.Equal(t, 40, ws.Weights()["search.01"])
	assert.Equal(t, 77, ws.Weights()["shopping.coupon"])
	assert.Len(t, table.Disambiguations, len(defaults.Disambiguations))
}

func TestLoadRuleTable_Errors(t *testing.T) {
	_, err := LoadRuleTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadRuleTable(writeRules(t, "patterns: [oops"))
	assert.Error(t, err)

	_, err = LoadRuleTable(writeRules(t, "patterns: []\n"))
	assert.Error(t, err, "empty tables are rejected")

	bad := `
patterns:
  - id: x
    domain: weather
    pattern: {kind: keyword, expr: rain}
    weight: 50
`
	_, err = LoadRuleTable(writeRules(t, bad))
	assert.ErrorIs(t, err, types.ErrUnknownDomain)
}

func TestSaveRuleTable_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "rules.yaml")
	orig := DefaultRuleTable()
	require.NoError(t, SaveRuleTable(path, orig))

	loaded, err := LoadRuleTable(path)
	require.NoError(t, err)
	require.Len(t, loaded.Patterns, len(orig.Patterns))

	a := NewClassifier(NewWeightStore(orig), DefaultThresholds())
	b := NewClassifier(NewWeightStore(loaded), DefaultThresholds())
	for _, text := range []string{"buy a laptop under $800", "research and plan a security audit"} {
		assert.Equal(t, a.Classify(types.Request{Text: text}).Scores, b.Classify(types.Request{Text: text}).Scores)
	}
}

func TestSaveRuleTable_KeepsDeclaredWeight(t *testing.T) {
	table := DefaultRuleTable()
	tuned := table.Patterns[0]
	table.Patterns[0].Weight = tuned.BaseWeight - 15

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, SaveRuleTable(path, table))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "tuned_weight")

	loaded, err := LoadRuleTable(path)
	require.NoError(t, err)
	got := loaded.Patterns[0]
	assert.Equal(t, tuned.ID, got.ID)
	assert.Equal(t, tuned.BaseWeight, got.BaseWeight, "declared weight survives the round trip")
	assert.Equal(t, tuned.BaseWeight-15, got.Weight)
	assert.Zero(t, got.TunedWeight)
	assert.Equal(t, table.Patterns[1].Weight, loaded.Patterns[1].Weight)
	assert.Equal(t, table.Patterns[0].Weight, tuned.BaseWeight-15, "export leaves the live table alone")
}
