package shards

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"kairo/internal/logging"
	"kairo/internal/types"
)

// =============================================================================
// DISPATCHER
// =============================================================================

// Dispatcher invokes every planned domain at most once, concurrently, and
// waits for all of them to settle. Failures are isolated per domain.
type Dispatcher struct {
	registry       *Registry
	maxConcurrency int
}

// NewDispatcher creates a dispatcher over registry. maxConcurrency <= 0
// means no limit on in-flight invocations.
func NewDispatcher(registry *Registry, maxConcurrency int) *Dispatcher {
	if registry == nil {
		registry, _ = NewRegistry()
	}
	return &Dispatcher{registry: registry, maxConcurrency: maxConcurrency}
}

// Registry returns the handler registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch runs plan for req. The returned map holds exactly one result per
// planned domain. The only error is types.ErrMalformedPlan; domain failures
// are reported in the results.
func (d *Dispatcher) Dispatch(ctx context.Context, plan types.ActivationPlan, req types.Request) (map[types.DomainID]types.DomainResult, error) {
	if err := plan.Validate(); err != nil {
		logging.ShardsError("Rejecting plan: %v", err)
		return nil, err
	}

	timer := logging.StartTimer(logging.CategoryShards, "dispatch")
	defer timer.Stop()

	domains := plan.DomainList()
	slots := make([]types.DomainResult, len(domains))
	audit := logging.AuditWithRequest(req.ID)

	// no WithContext: one failing domain must not cancel its siblings
	var g errgroup.Group
	if d.maxConcurrency > 0 {
		g.SetLimit(d.maxConcurrency)
	}

	launched := 0
	for i, domain := range domains {
		h, ok := d.registry.Get(domain)
		if !ok {
			slots[i] = unavailable(domain, "no handler registered")
			continue
		}
		if !available(h) {
			slots[i] = unavailable(domain, "availability precondition failed")
			continue
		}

		launched++
		g.Go(func() error {
			slots[i] = invoke(ctx, h, domain, req)
			return nil
		})
	}
	_ = g.Wait()

	results := make(map[types.DomainID]types.DomainResult, len(domains))
	for _, r := range slots {
		results[r.Domain] = r
		audit.DomainComplete(string(r.Domain), string(r.Status), r.Duration.Milliseconds(), r.Message)
	}

	logging.Shards("Dispatched %d domains (%d launched, %d short-circuited)",
		len(domains), launched, len(domains)-launched)
	return results, nil
}

func unavailable(domain types.DomainID, reason string) types.DomainResult {
	logging.ShardsDebug("Domain %s unavailable: %s", domain, reason)
	return types.DomainResult{
		Domain:  domain,
		Status:  types.StatusUnavailable,
		Message: fmt.Errorf("%w: %s", types.ErrDomainUnavailable, reason).Error(),
	}
}

// available evaluates the precondition; a panicking check counts as unavailable.
func available(h DomainHandler) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logging.ShardsError("Availability check for %s panicked: %v", h.Domain(), r)
			ok = false
		}
	}()
	return h.Available()
}

// invoke runs one handler and always returns a well-formed result.
func invoke(ctx context.Context, h DomainHandler, domain types.DomainID, req types.Request) (res types.DomainResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logging.ShardsError("PANIC RECOVERED in domain %s: %v", domain, r)
			res = types.DomainResult{
				Domain:  domain,
				Status:  types.StatusError,
				Message: fmt.Errorf("%w: panic: %v", types.ErrDomainInvocation, r).Error(),
			}
		}
		res.Duration = time.Since(start)
	}()

	out, err := h.Invoke(ctx, req)
	if err != nil {
		logging.ShardsWarn("Domain %s failed: %v", domain, err)
		return types.DomainResult{
			Domain:  domain,
			Status:  types.StatusError,
			Message: fmt.Errorf("%w: %v", types.ErrDomainInvocation, err).Error(),
		}
	}

	out.Domain = domain
	if !out.Status.Valid() {
		logging.ShardsWarn("Domain %s returned invalid status %q", domain, out.Status)
		return types.DomainResult{
			Domain:  domain,
			Status:  types.StatusError,
			Message: fmt.Sprintf("%v: invalid status %q", types.ErrDomainInvocation, out.Status),
		}
	}
	return out
}
