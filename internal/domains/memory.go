package domains

import (
	"context"
	"fmt"
	"time"

	"kairo/internal/config"
	"kairo/internal/logging"
	"kairo/internal/shards"
	"kairo/internal/types"
)

const (
	// recallWindow is how many past interactions are scanned for recall.
	recallWindow = 50
	// maxRecalled caps the recalled items in one payload.
	maxRecalled = 3
)

// Memory is the baseline domain: it recalls prior interactions sharing
// keywords with the request and then remembers the request itself.
type Memory struct {
	profile config.DomainProfile
	log     types.InteractionLog
	now     func() time.Time
}

var _ shards.DomainHandler = (*Memory)(nil)

// NewMemory creates the memory handler over log.
func NewMemory(profile config.DomainProfile, log types.InteractionLog) *Memory {
	return &Memory{profile: profile, log: log, now: time.Now}
}

// Domain returns the baseline domain.
func (m *Memory) Domain() types.DomainID { return types.BaselineDomain }

// Available reports whether the domain is enabled and has a backing log.
func (m *Memory) Available() bool { return m.profile.Enabled && m.log != nil }

// Invoke recalls then stores.
func (m *Memory) Invoke(ctx context.Context, req types.Request) (types.DomainResult, error) {
	ctx, cancel := context.WithTimeout(ctx, m.profile.TimeoutDuration())
	defer cancel()

	past, err := m.log.Recent(ctx, recallWindow)
	if err != nil {
		return types.DomainResult{}, fmt.Errorf("memory recall: %w", err)
	}
	recalled := recall(req, past)

	if err := m.log.Remember(ctx, types.Interaction{
		RequestID: req.ID,
		Text:      req.Text,
		At:        m.now(),
	}); err != nil {
		return types.DomainResult{}, fmt.Errorf("memory store: %w", err)
	}
	logging.DomainsDebug("memory: recalled %d of %d interactions", len(recalled), len(past))

	payload := types.Payload{
		"memories_stored":   1,
		"relevant_memories": len(recalled),
	}
	if len(recalled) > 0 {
		payload["recalled"] = recalled
		payload["learning_insights"] = "Pattern recognition improved based on interaction"
	}
	return types.DomainResult{
		Domain:  types.BaselineDomain,
		Status:  types.StatusSuccess,
		Payload: payload,
	}, nil
}

// recall returns the texts of past interactions (newest first) that share
// at least one keyword with the request, skipping duplicates and the
// request itself.
func recall(req types.Request, past []types.Interaction) []string {
	want := make(map[string]bool)
	for _, k := range keywords(req.Text) {
		want[k] = true
	}
	if len(want) == 0 {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	for _, it := range past {
		if len(out) == maxRecalled {
			break
		}
		if (req.ID != "" && it.RequestID == req.ID) || seen[it.Text] {
			continue
		}
		for _, k := range keywords(it.Text) {
			if want[k] {
				seen[it.Text] = true
				out = append(out, it.Text)
				break
			}
		}
	}
	return out
}
