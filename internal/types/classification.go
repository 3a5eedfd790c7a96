package types

import "sort"

// Score bounds for every domain score.
const (
	MinScore = 0
	MaxScore = 100
)

// ClampScore bounds a score to [MinScore, MaxScore].
func ClampScore(v int) int {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

// AdjustmentKind identifies which classifier stage changed a score.
type AdjustmentKind string

const (
	AdjustDisambiguation AdjustmentKind = "disambiguation"
	AdjustCombination    AdjustmentKind = "combination"
	AdjustConfidence     AdjustmentKind = "confidence_boost"
	AdjustComprehensive  AdjustmentKind = "comprehensive"
	AdjustDegenerate     AdjustmentKind = "degenerate"
)

// Adjustment records one score change applied after raw scoring.
type Adjustment struct {
	Kind   AdjustmentKind `json:"kind"`
	Rule   string         `json:"rule"`
	Domain DomainID       `json:"domain,omitempty"`
	Delta  int            `json:"delta"`
}

// ClassificationResult is the classifier output for one request.
// Invariant: Confidence == Scores[Primary].
type ClassificationResult struct {
	// Text is the normalized request text the scores were computed from.
	Text                 string           `json:"text"`
	Scores               map[DomainID]int `json:"scores"`
	Primary              DomainID         `json:"primary"`
	Confidence           int              `json:"confidence"`
	Supporting           []DomainID       `json:"supporting,omitempty"`
	NeedsMultipleDomains bool             `json:"needs_multiple_domains"`
	Comprehensive        bool             `json:"comprehensive"`
	Adjustments          []Adjustment     `json:"adjustments,omitempty"`
}

// Degenerate reports whether no pattern matched anything.
func (c ClassificationResult) Degenerate() bool {
	for _, a := range c.Adjustments {
		if a.Kind == AdjustDegenerate {
			return true
		}
	}
	return false
}

// Ranked returns the domains with a positive score ordered by score
// descending, ties broken by declaration order.
func (c ClassificationResult) Ranked() []DomainID {
	out := make([]DomainID, 0, len(c.Scores))
	for d, s := range c.Scores {
		if s > 0 {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := c.Scores[out[i]], c.Scores[out[j]]
		if si != sj {
			return si > sj
		}
		return DomainRank(out[i]) < DomainRank(out[j])
	})
	return out
}
