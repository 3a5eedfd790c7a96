package types

import (
	"context"
	"time"
)

// WeightProvider exposes the pattern-rule weights per domain.
// CommitWeights must swap the new weights in atomically.
type WeightProvider interface {
	GetWeights(domain DomainID) []PatternRule
	CommitWeights(domain DomainID, rules []PatternRule) error
}

// FeedbackSink accepts feedback records. Append must not block the caller.
type FeedbackSink interface {
	Append(rec FeedbackRecord)
}

// FeedbackLog is the durable append-only record log read by the tuner.
type FeedbackLog interface {
	Append(ctx context.Context, rec FeedbackRecord) error
	// Since returns records appended after cursor in append order, plus the
	// cursor to pass next time. A zero cursor reads the whole log.
	Since(ctx context.Context, cursor int64) ([]FeedbackRecord, int64, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// WeightPersister stores tuned weights keyed by rule ID.
type WeightPersister interface {
	SaveWeights(ctx context.Context, weights map[string]int) error
	LoadWeights(ctx context.Context) (map[string]int, error)
}

// Interaction is one remembered request, used by the memory domain for recall.
type Interaction struct {
	RequestID string    `json:"request_id"`
	Text      string    `json:"text"`
	Primary   DomainID  `json:"primary"`
	At        time.Time `json:"at"`
}

// InteractionLog stores past interactions for the baseline memory domain.
type InteractionLog interface {
	Remember(ctx context.Context, it Interaction) error
	// Recent returns up to limit interactions, newest first.
	Recent(ctx context.Context, limit int) ([]Interaction, error)
}
