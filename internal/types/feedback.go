package types

import "time"

// FeedbackRecord summarizes one completed orchestration. Records are
// append-only and consumed by the adaptive tuner.
type FeedbackRecord struct {
	RequestID      string     `json:"request_id"`
	DomainsUsed    []DomainID `json:"domains_used"`
	FailedDomains  []DomainID `json:"failed_domains,omitempty"`
	Primary        DomainID   `json:"primary"`
	Confidence     int        `json:"confidence"`
	OutcomeSuccess bool       `json:"outcome_success"`
	Satisfaction   float64    `json:"satisfaction"`
	ElapsedMs      int64      `json:"elapsed_ms"`
	RecordedAt     time.Time  `json:"recorded_at"`
	// Seq is the log's append sequence, assigned by the store.
	Seq int64 `json:"seq,omitempty"`
}

// Used reports whether d took part in the orchestration.
func (r FeedbackRecord) Used(d DomainID) bool {
	for _, u := range r.DomainsUsed {
		if u == d {
			return true
		}
	}
	return false
}

// FailedFor reports whether d failed in the orchestration.
func (r FeedbackRecord) FailedFor(d DomainID) bool {
	for _, f := range r.FailedDomains {
		if f == d {
			return true
		}
	}
	return false
}
