package autopoiesis

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"kairo/internal/types"
)

func resultSet(statuses map[types.DomainID]types.DomainStatus) map[types.DomainID]types.DomainResult {
	out := make(map[types.DomainID]types.DomainResult, len(statuses))
	for d, s := range statuses {
		out[d] = types.DomainResult{Domain: d, Status: s}
	}
	return out
}

func fullResponse() types.SynthesizedResponse {
	long := strings.Repeat("x", 200)
	return types.SynthesizedResponse{Sections: []types.Section{
		{Tag: types.SectionSummary, Title: "Summary", Lines: []string{long}},
		{Tag: types.SectionMemoryContext, Title: "From Memory", Lines: []string{long}},
		{Tag: types.SectionDomainFindings, Title: "Search", Lines: []string{long}},
		{Tag: types.SectionSuggestions, Title: "Suggestions", Lines: []string{long}},
		{Tag: types.SectionFollowUps, Title: "Follow-ups", Lines: []string{long}},
	}}
}

func TestEstimateSatisfaction_Bounds(t *testing.T) {
	tests := []struct {
		name    string
		resp    types.SynthesizedResponse
		results map[types.DomainID]types.DomainResult
		want    float64
	}{
		{"empty", types.SynthesizedResponse{}, nil, 0},
		{"perfect", fullResponse(), resultSet(map[types.DomainID]types.DomainStatus{
			types.DomainMemory: types.StatusSuccess, types.DomainSearch: types.StatusSuccess,
		}), 1},
		{"all failed floors at zero", types.SynthesizedResponse{}, resultSet(map[types.DomainID]types.DomainStatus{
			types.DomainMemory: types.StatusError, types.DomainSearch: types.StatusUnavailable,
		}), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, EstimateSatisfaction(tt.resp, tt.results), 1e-9)
		})
	}
}

func TestEstimateSatisfaction_FailuresLowerScore(t *testing.T) {
	ok := resultSet(map[types.DomainID]types.DomainStatus{
		types.DomainMemory: types.StatusSuccess, types.DomainSearch: types.StatusSuccess,
	})
	partial := resultSet(map[types.DomainID]types.DomainStatus{
		types.DomainMemory: types.StatusSuccess, types.DomainSearch: types.StatusError,
	})
	resp := fullResponse()

	good := EstimateSatisfaction(resp, ok)
	bad := EstimateSatisfaction(resp, partial)
	assert.Greater(t, good, bad)
	// 0.3 + 0.3 + 0.4*0.5 - 0.1
	assert.InDelta(t, 0.7, bad, 1e-9)
}

func TestEstimateSatisfaction_SkippedIsNotPenalized(t *testing.T) {
	resp := fullResponse()
	skipped := resultSet(map[types.DomainID]types.DomainStatus{
		types.DomainMemory: types.StatusSuccess, types.DomainSearch: types.StatusSkipped,
	})
	// success ratio halves, no error penalty
	assert.InDelta(t, 0.8, EstimateSatisfaction(resp, skipped), 1e-9)
}

func TestNewRecord(t *testing.T) {
	plan := types.NewActivationPlan()
	plan.AddDomains(types.DomainSearch, types.DomainResearch)
	results := resultSet(map[types.DomainID]types.DomainStatus{
		types.DomainMemory:   types.StatusSuccess,
		types.DomainSearch:   types.StatusSuccess,
		types.DomainResearch: types.StatusError,
	})
	cls := types.ClassificationResult{Primary: types.DomainSearch, Confidence: 95}
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	rec := NewRecord("req-1", cls, plan, results, fullResponse(), 1500*time.Millisecond, now)

	assert.Equal(t, "req-1", rec.RequestID)
	assert.Equal(t, []types.DomainID{types.DomainMemory, types.DomainResearch, types.DomainSearch}, rec.DomainsUsed)
	assert.Equal(t, []types.DomainID{types.DomainResearch}, rec.FailedDomains)
	assert.False(t, rec.OutcomeSuccess)
	assert.Equal(t, types.DomainSearch, rec.Primary)
	assert.Equal(t, 95, rec.Confidence)
	assert.EqualValues(t, 1500, rec.ElapsedMs)
	assert.Equal(t, now, rec.RecordedAt)
	assert.True(t, rec.Satisfaction >= 0 && rec.Satisfaction <= 1)
}
