// Package domains provides simulated capability-domain handlers. Each one
// returns a deterministic payload shaped like the real backend service it
// stands in for, honouring the per-domain profile (enabled, latency,
// timeout) from configuration.
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

// BuildFunc produces the payload of one invocation.
type BuildFunc func(ctx context.Context, req types.Request) (types.Payload, error)

// Handler is a simulated domain handler.
type Handler struct {
	id      types.DomainID
	profile config.DomainProfile
	build   BuildFunc
}

var _ shards.DomainHandler = (*Handler)(nil)

// NewHandler creates a handler for id.
func NewHandler(id types.DomainID, profile config.DomainProfile, build BuildFunc) *Handler {
	return &Handler{id: id, profile: profile, build: build}
}

// Domain returns the handler's domain.
func (h *Handler) Domain() types.DomainID { return h.id }

// Available reports whether the domain is enabled.
func (h *Handler) Available() bool { return h.profile.Enabled }

// Invoke waits out the simulated latency within the domain's own deadline
// and builds the payload.
func (h *Handler) Invoke(ctx context.Context, req types.Request) (types.DomainResult, error) {
	ctx, cancel := context.WithTimeout(ctx, h.profile.TimeoutDuration())
	defer cancel()

	if lat := h.profile.LatencyDuration(); lat > 0 {
		timer := time.NewTimer(lat)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return types.DomainResult{}, fmt.Errorf("%s: %w", h.id, ctx.Err())
		}
	}

	payload, err := h.build(ctx, req)
	if err != nil {
		return types.DomainResult{}, err
	}
	logging.DomainsDebug("%s produced %d payload keys", h.id, len(payload))
	return types.DomainResult{
		Domain:  h.id,
		Status:  types.StatusSuccess,
		Payload: payload,
	}, nil
}

// NewHandlers builds one handler per known domain using the profiles in
// cfg. interactions backs the memory domain.
func NewHandlers(cfg *config.Config, interactions types.InteractionLog) []shards.DomainHandler {
	builders := map[types.DomainID]BuildFunc{
		types.DomainResearch:    buildResearch,
		types.DomainPlanning:    NewGoalBook().build,
		types.DomainSearch:      buildSearch,
		types.DomainSecurity:    buildSecurity,
		types.DomainPerformance: buildPerformance,
		types.DomainAutomation:  buildAutomation,
		types.DomainShopping:    buildShopping,
		types.DomainAnalysis:    buildAnalysis,
	}

	handlers := make([]shards.DomainHandler, 0, len(types.AllDomains()))
	handlers = append(handlers, NewMemory(cfg.Domain(types.DomainMemory), interactions))
	for _, d := range types.CapabilityDomains {
		handlers = append(handlers, NewHandler(d, cfg.Domain(d), builders[d]))
	}
	return handlers
}

// NewRegistry registers every simulated handler.
func NewRegistry(cfg *config.Config, interactions types.InteractionLog) (*shards.Registry, error) {
	reg, err := shards.NewRegistry(NewHandlers(cfg, interactions)...)
	if err != nil {
		return nil, err
	}
	logging.Domains("Registered %d simulated domains", len(reg.Domains()))
	return reg, nil
}
