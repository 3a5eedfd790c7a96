package shards

import (
	"fmt"
	"sync"

	"kairo/internal/logging"
	"kairo/internal/types"
)

// Registry maps domains to their handlers. It is an explicit value passed
// to the dispatcher; there is no package-level registry.
type Registry struct {
	mu       sync.RWMutex
	handlers map[types.DomainID]DomainHandler
}

// NewRegistry creates a registry holding handlers.
func NewRegistry(handlers ...DomainHandler) (*Registry, error) {
	r := &Registry{handlers: make(map[types.DomainID]DomainHandler)}
	for _, h := range handlers {
		if err := r.Register(h); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds h, replacing any handler already registered for its domain.
func (r *Registry) Register(h DomainHandler) error {
	if h == nil {
		return fmt.Errorf("register: nil handler")
	}
	d := h.Domain()
	if !types.IsKnownDomain(d) {
		return fmt.Errorf("register: %w %q", types.ErrUnknownDomain, d)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[d]; exists {
		logging.ShardsWarn("Replacing handler for domain %s", d)
	}
	r.handlers[d] = h
	logging.ShardsDebug("Registered handler for domain %s", d)
	return nil
}

// Unregister removes the handler for d.
func (r *Registry) Unregister(d types.DomainID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, d)
}

// Get returns the handler for d.
func (r *Registry) Get(d types.DomainID) (DomainHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[d]
	return h, ok
}

// Domains returns the registered domains in priority order.
func (r *Registry) Domains() []types.DomainID {
	r.mu.RLock()
	out := make([]types.DomainID, 0, len(r.handlers))
	for d := range r.handlers {
		out = append(out, d)
	}
	r.mu.RUnlock()
	types.SortDomains(out)
	return out
}
