// Package shards implements the domain fan-out/fan-in executor: a registry
// of domain handlers and a dispatcher that invokes every planned domain
// concurrently and settles all of them.
package shards

import (
	"context"

	"kairo/internal/types"
)

// DomainHandler is the narrow contract every capability domain exposes.
// Invoke must honour ctx and return within a domain-owned deadline; the
// dispatcher converts returned errors and panics into error results.
type DomainHandler interface {
	Domain() types.DomainID
	// Available reports the availability precondition. An unavailable
	// domain is never invoked.
	Available() bool
	Invoke(ctx context.Context, req types.Request) (types.DomainResult, error)
}

// HandlerFunc adapts a function into an always-available DomainHandler.
type HandlerFunc struct {
	ID types.DomainID
	Fn func(ctx context.Context, req types.Request) (types.DomainResult, error)
}

// Domain returns the handler's domain.
func (h HandlerFunc) Domain() types.DomainID { return h.ID }

// Available is always true.
func (h HandlerFunc) Available() bool { return true }

// Invoke calls Fn.
func (h HandlerFunc) Invoke(ctx context.Context, req types.Request) (types.DomainResult, error) {
	return h.Fn(ctx, req)
}
