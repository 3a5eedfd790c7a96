package types

import (
	"strings"
)

// SectionTag is the semantic slot of a response section. Tags appear in
// a fixed order in every SynthesizedResponse.
type SectionTag string

const (
	SectionSummary        SectionTag = "summary"
	SectionMemoryContext  SectionTag = "memory-context"
	SectionDomainFindings SectionTag = "domain-findings"
	SectionSuggestions    SectionTag = "suggestions"
	SectionFollowUps      SectionTag = "follow-ups"
)

// Order returns the tag's position in the fixed section order.
func (t SectionTag) Order() int {
	switch t {
	case SectionSummary:
		return 0
	case SectionMemoryContext:
		return 1
	case SectionDomainFindings:
		return 2
	case SectionSuggestions:
		return 3
	case SectionFollowUps:
		return 4
	default:
		return 5
	}
}

// Section is one rendered block of a synthesized response.
type Section struct {
	Tag    SectionTag `json:"tag"`
	Domain DomainID   `json:"domain,omitempty"`
	Title  string     `json:"title"`
	Lines  []string   `json:"lines"`
}

// SynthesizedResponse is the merged, ordered output of one orchestration.
type SynthesizedResponse struct {
	Sections []Section `json:"sections"`
	// Partial is set when at least one planned domain failed.
	Partial bool `json:"partial"`
}

// Section returns the first section with the given tag.
func (r SynthesizedResponse) Section(tag SectionTag) (Section, bool) {
	for _, s := range r.Sections {
		if s.Tag == tag {
			return s, true
		}
	}
	return Section{}, false
}

// Tags returns the section tags in order.
func (r SynthesizedResponse) Tags() []SectionTag {
	out := make([]SectionTag, len(r.Sections))
	for i, s := range r.Sections {
		out[i] = s.Tag
	}
	return out
}

// Markdown renders the response as markdown.
func (r SynthesizedResponse) Markdown() string {
	var sb strings.Builder
	for i, s := range r.Sections {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("## ")
		sb.WriteString(s.Title)
		sb.WriteString("\n\n")
		for _, line := range s.Lines {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
