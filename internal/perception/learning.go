package perception

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"kairo/internal/logging"
	"kairo/internal/types"
)

// Snapshot is an immutable view of the rule table and its weights.
// Readers never lock; writers publish a new Snapshot.
type Snapshot struct {
	Version   uint64
	Table     *RuleTable
	UpdatedAt time.Time
}

// WeightStore owns the adaptive pattern weights. Classification reads the
// latest committed snapshot; commits swap in a new one atomically.
type WeightStore struct {
	current   atomic.Pointer[Snapshot]
	writeMu   sync.Mutex // serializes writers
	persister types.WeightPersister
}

var _ types.WeightProvider = (*WeightStore)(nil)

// NewWeightStore creates a store seeded with table. A nil table means the
// built-in default table.
func NewWeightStore(table *RuleTable) *WeightStore {
	if table == nil {
		table = DefaultRuleTable()
	}
	ws := &WeightStore{}
	ws.current.Store(&Snapshot{Version: 1, Table: table.Clone(), UpdatedAt: time.Now()})
	return ws
}

// SetPersister attaches durable storage for committed weights.
func (ws *WeightStore) SetPersister(p types.WeightPersister) {
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()
	ws.persister = p
}

// Snapshot returns the latest committed snapshot.
func (ws *WeightStore) Snapshot() *Snapshot {
	return ws.current.Load()
}

// GetWeights returns a copy of the rules of one domain.
func (ws *WeightStore) GetWeights(domain types.DomainID) []types.PatternRule {
	return ws.Snapshot().Table.RulesFor(domain)
}

// Weights returns the current weight of every rule keyed by rule ID.
func (ws *WeightStore) Weights() map[string]int {
	snap := ws.Snapshot()
	out := make(map[string]int, len(snap.Table.Patterns))
	for _, p := range snap.Table.Patterns {
		out[p.ID] = p.Weight
	}
	return out
}

// CommitWeights swaps in new weights for the rules of one domain. Only the
// Weight field is taken from rules; every rule must belong to domain and
// exist in the current table.
func (ws *WeightStore) CommitWeights(domain types.DomainID, rules []types.PatternRule) error {
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()

	prev := ws.current.Load()
	next := prev.Table.Clone()

	index := make(map[string]int, len(next.Patterns))
	for i, p := range next.Patterns {
		index[p.ID] = i
	}
	for _, r := range rules {
		i, ok := index[r.ID]
		if !ok {
			return fmt.Errorf("commit weights: unknown rule %q", r.ID)
		}
		if next.Patterns[i].Domain != domain {
			return fmt.Errorf("commit weights: rule %q belongs to %s, not %s", r.ID, next.Patterns[i].Domain, domain)
		}
		next.Patterns[i].Weight = types.ClampScore(r.Weight)
	}

	ws.publish(prev, next)
	logging.PerceptionDebug("Committed %d weights for %s (v%d)", len(rules), domain, prev.Version+1)
	ws.persistLocked()
	return nil
}

// Replace installs a freshly loaded table. Rules whose ID and declared
// weight are unchanged keep their tuned weight.
func (ws *WeightStore) Replace(table *RuleTable) {
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()

	prev := ws.current.Load()
	tuned := make(map[string]types.PatternRule, len(prev.Table.Patterns))
	for _, p := range prev.Table.Patterns {
		tuned[p.ID] = p
	}

	next := table.Clone()
	carried := 0
	for i, p := range next.Patterns {
		old, ok := tuned[p.ID]
		if ok && old.BaseWeight == p.BaseWeight && old.Domain == p.Domain {
			next.Patterns[i].Weight = old.Weight
			carried++
		}
	}

	ws.publish(prev, next)
	logging.Perception("Rule table replaced: %d patterns, %d tuned weights carried over", len(next.Patterns), carried)
}

// Restore applies previously persisted weights. Unknown IDs are ignored.
func (ws *WeightStore) Restore(weights map[string]int) int {
	if len(weights) == 0 {
		return 0
	}
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()

	prev := ws.current.Load()
	next := prev.Table.Clone()
	applied := 0
	for i, p := range next.Patterns {
		if w, ok := weights[p.ID]; ok {
			next.Patterns[i].Weight = types.ClampScore(w)
			applied++
		}
	}
	ws.publish(prev, next)
	return applied
}

// LoadPersisted restores weights from the attached persister, if any.
func (ws *WeightStore) LoadPersisted(ctx context.Context) error {
	ws.writeMu.Lock()
	p := ws.persister
	ws.writeMu.Unlock()
	if p == nil {
		return nil
	}

	weights, err := p.LoadWeights(ctx)
	if err != nil {
		return fmt.Errorf("failed to load persisted weights: %w", err)
	}
	n := ws.Restore(weights)
	logging.Perception("Restored %d persisted pattern weights", n)
	return nil
}

func (ws *WeightStore) publish(prev *Snapshot, table *RuleTable) {
	ws.current.Store(&Snapshot{
		Version:   prev.Version + 1,
		Table:     table,
		UpdatedAt: time.Now(),
	})
}

// persistLocked writes the current weights through the persister.
// Caller holds writeMu.
func (ws *WeightStore) persistLocked() {
	if ws.persister == nil {
		return
	}
	snap := ws.current.Load()
	weights := make(map[string]int, len(snap.Table.Patterns))
	for _, p := range snap.Table.Patterns {
		weights[p.ID] = p.Weight
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ws.persister.SaveWeights(ctx, weights); err != nil {
		logging.PerceptionWarn("Failed to persist weights: %v", err)
	}
}
