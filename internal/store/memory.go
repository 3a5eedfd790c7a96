package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"kairo/internal/types"
)

// MemoryStore is the in-process counterpart of SQLiteStore. Nothing
// survives a restart.
type MemoryStore struct {
	mu           sync.RWMutex
	feedback     []types.FeedbackRecord
	seq          int64
	weights      map[string]int
	interactions []types.Interaction
}

var (
	_ types.FeedbackLog     = (*MemoryStore)(nil)
	_ types.WeightPersister = (*MemoryStore)(nil)
	_ types.InteractionLog  = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{weights: make(map[string]int)}
}

// Append stores a copy of rec.
func (m *MemoryStore) Append(_ context.Context, rec types.FeedbackRecord) error {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}
	rec.DomainsUsed = append([]types.DomainID(nil), rec.DomainsUsed...)
	rec.FailedDomains = append([]types.DomainID(nil), rec.FailedDomains...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	rec.Seq = m.seq
	m.feedback = append(m.feedback, rec)
	return nil
}

// Since returns records appended after cursor, in append order.
func (m *MemoryStore) Since(_ context.Context, cursor int64) ([]types.FeedbackRecord, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// feedback is sorted by Seq; Prune keeps that order.
	i := sort.Search(len(m.feedback), func(i int) bool { return m.feedback[i].Seq > cursor })
	if i == len(m.feedback) {
		return nil, cursor, nil
	}
	out := append([]types.FeedbackRecord(nil), m.feedback[i:]...)
	return out, out[len(out)-1].Seq, nil
}

// Count returns the number of stored records.
func (m *MemoryStore) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.feedback), nil
}

// Prune drops records recorded before t.
func (m *MemoryStore) Prune(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.feedback[:0]
	for _, rec := range m.feedback {
		if !rec.RecordedAt.Before(before) {
			kept = append(kept, rec)
		}
	}
	n := int64(len(m.feedback) - len(kept))
	m.feedback = kept
	return n, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

// SaveWeights merges weights into the store.
func (m *MemoryStore) SaveWeights(_ context.Context, weights map[string]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, w := range weights {
		m.weights[id] = w
	}
	return nil
}

// LoadWeights returns a copy of the stored weights.
func (m *MemoryStore) LoadWeights(context.Context) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int, len(m.weights))
	for id, w := range m.weights {
		out[id] = w
	}
	return out, nil
}

// Remember stores one interaction.
func (m *MemoryStore) Remember(_ context.Context, it types.Interaction) error {
	if it.At.IsZero() {
		it.At = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interactions = append(m.interactions, it)
	return nil
}

// Recent returns up to limit interactions, newest first.
func (m *MemoryStore) Recent(_ context.Context, limit int) ([]types.Interaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		return nil, nil
	}
	out := make([]types.Interaction, 0, limit)
	for i := len(m.interactions) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.interactions[i])
	}
	return out, nil
}
