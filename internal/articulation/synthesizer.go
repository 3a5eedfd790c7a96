// Package articulation renders domain results into one ordered,
// deterministic response.
package articulation

import (
	"fmt"
	"strings"

	"kairo/internal/logging"
	"kairo/internal/types"
)

// DefaultMaxFollowUps caps the follow-up prompts section.
const DefaultMaxFollowUps = 5

// Synthesizer merges domain results into a SynthesizedResponse. Output is
// a pure function of the results and the classification.
type Synthesizer struct {
	MaxFollowUps int
}

// NewSynthesizer creates a synthesizer with default limits.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{MaxFollowUps: DefaultMaxFollowUps}
}

// Synthesize builds the response. Sections always appear in the order
// summary, memory-context, domain-findings, suggestions, follow-ups; optional
// sections are omitted when empty. Domains that did not succeed are only
// reported in the summary.
func (s *Synthesizer) Synthesize(results map[types.DomainID]types.DomainResult, cls types.ClassificationResult) types.SynthesizedResponse {
	ordered := orderedResults(results)

	var resp types.SynthesizedResponse
	for _, r := range ordered {
		if r.Failed() {
			resp.Partial = true
			break
		}
	}

	resp.Sections = append(resp.Sections, s.summary(ordered, cls))

	if sec, ok := memoryContext(results); ok {
		resp.Sections = append(resp.Sections, sec)
	}

	for _, r := range ordered {
		if r.Domain == types.BaselineDomain || !r.Succeeded() || len(r.Payload) == 0 {
			continue
		}
		rd := rendererFor(r.Domain)
		resp.Sections = append(resp.Sections, types.Section{
			Tag:    types.SectionDomainFindings,
			Domain: r.Domain,
			Title:  rd.Title,
			Lines:  rd.renderPayload(r.Payload),
		})
	}

	if lines := suggestions(results, cls); len(lines) > 0 {
		resp.Sections = append(resp.Sections, types.Section{
			Tag:   types.SectionSuggestions,
			Title: "Suggestions",
			Lines: lines,
		})
	}

	if lines := s.followUps(ordered, cls); len(lines) > 0 {
		resp.Sections = append(resp.Sections, types.Section{
			Tag:   types.SectionFollowUps,
			Title: "Follow-ups",
			Lines: lines,
		})
	}

	logging.ArticulationDebug("Synthesized %d sections from %d results (partial=%v)",
		len(resp.Sections), len(results), resp.Partial)
	return resp
}

// orderedResults returns results in domain priority order, keyed by map key
// so a handler that mislabels its result cannot reorder sections.
func orderedResults(results map[types.DomainID]types.DomainResult) []types.DomainResult {
	keys := make([]types.DomainID, 0, len(results))
	for d := range results {
		keys = append(keys, d)
	}
	types.SortDomains(keys)

	out := make([]types.DomainResult, 0, len(keys))
	for _, d := range keys {
		r := results[d]
		r.Domain = d
		out = append(out, r)
	}
	return out
}

func (s *Synthesizer) summary(ordered []types.DomainResult, cls types.ClassificationResult) types.Section {
	// every non-success status lands in the failure list, skipped included
	var succeeded, failed []string
	for _, r := range ordered {
		if r.Succeeded() {
			succeeded = append(succeeded, string(r.Domain))
			continue
		}
		entry := fmt.Sprintf("%s (%s)", r.Domain, r.Status)
		if r.Message != "" {
			entry = fmt.Sprintf("%s (%s: %s)", r.Domain, r.Status, r.Message)
		}
		failed = append(failed, entry)
	}

	var lines []string
	if cls.Degenerate() {
		lines = append(lines, "No domain matched the request strongly; results are best effort.")
	} else {
		lines = append(lines, fmt.Sprintf("Primary domain: **%s** (confidence %d)", cls.Primary, cls.Confidence))
	}
	lines = append(lines, "- Succeeded: "+joinOrNone(succeeded))
	if len(failed) > 0 {
		lines = append(lines, "- Failed: "+strings.Join(failed, ", "))
	}

	return types.Section{Tag: types.SectionSummary, Title: "Summary", Lines: lines}
}

// memoryContext renders recalled prior interactions from the baseline domain.
func memoryContext(results map[types.DomainID]types.DomainResult) (types.Section, bool) {
	mem, ok := results[types.BaselineDomain]
	if !ok || !mem.Succeeded() {
		return types.Section{}, false
	}
	recalled := stringList(mem.Payload["recalled"])
	if len(recalled) == 0 {
		return types.Section{}, false
	}

	lines := make([]string, 0, len(recalled)+1)
	for _, item := range recalled {
		lines = append(lines, "- "+item)
	}
	if insight, ok := mem.Payload["learning_insights"].(string); ok && insight != "" {
		lines = append(lines, "", "_"+insight+"_")
	}
	return types.Section{
		Tag:    types.SectionMemoryContext,
		Domain: types.BaselineDomain,
		Title:  "From Memory",
		Lines:  lines,
	}, true
}

func (s *Synthesizer) followUps(ordered []types.DomainResult, cls types.ClassificationResult) []string {
	limit := s.MaxFollowUps
	if limit <= 0 {
		limit = DefaultMaxFollowUps
	}

	var lines []string
	seen := make(map[string]bool)
	add := func(q string) {
		if len(lines) < limit && !seen[q] {
			seen[q] = true
			lines = append(lines, "- "+q)
		}
	}

	for _, r := range ordered {
		if r.Domain == types.BaselineDomain || !r.Succeeded() {
			continue
		}
		for _, q := range rendererFor(r.Domain).FollowUps {
			add(q)
		}
	}
	if cls.Degenerate() {
		add("Could you tell me a bit more about what you are trying to do?")
	}
	return lines
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
