// Package autopoiesis closes the learning loop: it estimates how well each
// orchestration went, records the outcome asynchronously, and periodically
// retunes the classifier's pattern weights from the recorded feedback.
package autopoiesis

import (
	"time"

	"kairo/internal/types"
)

// Satisfaction heuristic weights. The three positive terms sum to 1.
const (
	lengthWeight    = 0.3
	structureWeight = 0.3
	successWeight   = 0.4

	// idealLength is the markdown length that earns the full length term.
	idealLength = 800
	// fullStructure is the section count that earns the full structure term.
	fullStructure = 5

	errorPenalty    = 0.1
	maxErrorPenalty = 0.3
)

// EstimateSatisfaction scores a response in [0,1] from its markdown length,
// its section count and the share of domains that succeeded, minus a
// bounded penalty per failed domain.
func EstimateSatisfaction(resp types.SynthesizedResponse, results map[types.DomainID]types.DomainResult) float64 {
	length := float64(len(resp.Markdown())) / idealLength
	if length > 1 {
		length = 1
	}

	structure := float64(len(resp.Sections)) / fullStructure
	if structure > 1 {
		structure = 1
	}

	var succeeded, failed int
	for _, r := range results {
		switch {
		case r.Succeeded():
			succeeded++
		case r.Failed():
			failed++
		}
	}
	var ratio float64
	if len(results) > 0 {
		ratio = float64(succeeded) / float64(len(results))
	}

	penalty := errorPenalty * float64(failed)
	if penalty > maxErrorPenalty {
		penalty = maxErrorPenalty
	}

	score := lengthWeight*length + structureWeight*structure + successWeight*ratio - penalty
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	}
	return score
}

// NewRecord builds the feedback record of one orchestration. Every planned
// domain counts as used; failed domains are those that errored or were
// unavailable.
func NewRecord(requestID string, cls types.ClassificationResult, plan types.ActivationPlan,
	results map[types.DomainID]types.DomainResult, resp types.SynthesizedResponse,
	elapsed time.Duration, now time.Time) types.FeedbackRecord {

	rec := types.FeedbackRecord{
		RequestID:    requestID,
		DomainsUsed:  plan.DomainList(),
		Primary:      cls.Primary,
		Confidence:   cls.Confidence,
		Satisfaction: EstimateSatisfaction(resp, results),
		ElapsedMs:    elapsed.Milliseconds(),
		RecordedAt:   now,
	}
	for _, d := range rec.DomainsUsed {
		if r, ok := results[d]; ok && r.Failed() {
			rec.FailedDomains = append(rec.FailedDomains, d)
		}
	}
	rec.OutcomeSuccess = len(rec.FailedDomains) == 0
	return rec
}
