package shards

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"kairo/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubHandler struct {
	id        types.DomainID
	available bool
	calls     atomic.Int32
	fn        func(ctx context.Context, req types.Request) (types.DomainResult, error)
}

func (s *stubHandler) Domain() types.DomainID { return s.id }
func (s *stubHandler) Available() bool        { return s.available }
func (s *stubHandler) Invoke(ctx context.Context, req types.Request) (types.DomainResult, error) {
	s.calls.Add(1)
	if s.fn != nil {
		return s.fn(ctx, req)
	}
	return types.DomainResult{Status: types.StatusSuccess, Payload: types.Payload{"ok": true}}, nil
}

func stub(id types.DomainID) *stubHandler {
	return &stubHandler{id: id, available: true}
}

func planFor(domains ...types.DomainID) types.ActivationPlan {
	p := types.NewActivationPlan()
	p.AddDomains(domains...)
	return p
}

func newDispatcher(t *testing.T, limit int, hs ...DomainHandler) *Dispatcher {
	t.Helper()
	reg, err := NewRegistry(hs...)
	require.NoError(t, err)
	return NewDispatcher(reg, limit)
}

func TestDispatch_OneResultPerPlannedDomain(t *testing.T) {
	mem, search, research := stub(types.DomainMemory), stub(types.DomainSearch), stub(types.DomainResearch)
	d := newDispatcher(t, 0, mem, search, research)

	plan := planFor(types.DomainSearch, types.DomainResearch)
	results, err := d.Dispatch(context.Background(), plan, types.Request{ID: "r1", Text: "latest news"})
	require.NoError(t, err)

	require.Len(t, results, 3)
	for _, dom := range plan.DomainList() {
		r, ok := results[dom]
		require.True(t, ok, "missing result for %s", dom)
		assert.Equal(t, dom, r.Domain)
		assert.Equal(t, types.StatusSuccess, r.Status)
	}
	assert.EqualValues(t, 1, mem.calls.Load())
	assert.EqualValues(t, 1, search.calls.Load())
	assert.EqualValues(t, 1, research.calls.Load())
}

func TestDispatch_UnregisteredAndUnavailable(t *testing.T) {
	sec := stub(types.DomainSecurity)
	sec.available = false
	d := newDispatcher(t, 0, stub(types.DomainMemory), sec)

	results, err := d.Dispatch(context.Background(), planFor(types.DomainSecurity, types.DomainShopping), types.Request{})
	require.NoError(t, err)

	assert.Equal(t, types.StatusUnavailable, results[types.DomainSecurity].Status)
	assert.Equal(t, types.StatusUnavailable, results[types.DomainShopping].Status)
	assert.Contains(t, results[types.DomainShopping].Message, types.ErrDomainUnavailable.Error())
	assert.Zero(t, sec.calls.Load(), "unavailable handler must not be invoked")
	assert.Equal(t, types.StatusSuccess, results[types.DomainMemory].Status)
}

func TestDispatch_ErrorsAndPanicsAreIsolated(t *testing.T) {
	failing := stub(types.DomainSearch)
	failing.fn = func(context.Context, types.Request) (types.DomainResult, error) {
		return types.DomainResult{}, errors.New("backend down")
	}
	panicky := stub(types.DomainResearch)
	panicky.fn = func(context.Context, types.Request) (types.DomainResult, error) {
		panic("boom")
	}
	d := newDispatcher(t, 2, stub(types.DomainMemory), failing, panicky, stub(types.DomainAnalysis))

	results, err := d.Dispatch(context.Background(),
		planFor(types.DomainSearch, types.DomainResearch, types.DomainAnalysis), types.Request{})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, types.StatusError, results[types.DomainSearch].Status)
	assert.Contains(t, results[types.DomainSearch].Message, "backend down")
	assert.Contains(t, results[types.DomainSearch].Message, types.ErrDomainInvocation.Error())

	assert.Equal(t, types.StatusError, results[types.DomainResearch].Status)
	assert.Contains(t, results[types.DomainResearch].Message, "boom")

	assert.Equal(t, types.StatusSuccess, results[types.DomainAnalysis].Status)
	assert.Equal(t, types.StatusSuccess, results[types.DomainMemory].Status)
}

func TestDispatch_AllDomainsFail(t *testing.T) {
	var hs []DomainHandler
	for _, dom := range types.AllDomains() {
		h := stub(dom)
		h.fn = func(context.Context, types.Request) (types.DomainResult, error) {
			return types.DomainResult{}, errors.New("nope")
		}
		hs = append(hs, h)
	}
	d := newDispatcher(t, 3, hs...)

	plan := planFor(types.CapabilityDomains...)
	results, err := d.Dispatch(context.Background(), plan, types.Request{})
	require.NoError(t, err)
	require.Len(t, results, len(types.AllDomains()))
	for _, r := range results {
		assert.True(t, r.Failed(), "%s should have failed", r.Domain)
	}
}

func TestDispatch_InvalidStatusAndDomainCoerced(t *testing.T) {
	weird := stub(types.DomainShopping)
	weird.fn = func(context.Context, types.Request) (types.DomainResult, error) {
		return types.DomainResult{Domain: types.DomainSearch, Status: "maybe"}, nil
	}
	liar := stub(types.DomainAnalysis)
	liar.fn = func(context.Context, types.Request) (types.DomainResult, error) {
		return types.DomainResult{Domain: types.DomainSearch, Status: types.StatusSkipped}, nil
	}
	d := newDispatcher(t, 0, stub(types.DomainMemory), weird, liar)

	results, err := d.Dispatch(context.Background(), planFor(types.DomainShopping, types.DomainAnalysis), types.Request{})
	require.NoError(t, err)

	assert.Equal(t, types.StatusError, results[types.DomainShopping].Status)
	assert.Contains(t, results[types.DomainShopping].Message, "invalid status")
	assert.Equal(t, types.DomainAnalysis, results[types.DomainAnalysis].Domain)
	assert.Equal(t, types.StatusSkipped, results[types.DomainAnalysis].Status)
	_, leaked := results[types.DomainSearch]
	assert.False(t, leaked)
}

func TestDispatch_MalformedPlan(t *testing.T) {
	d := newDispatcher(t, 0, stub(types.DomainMemory))

	noBaseline := types.ActivationPlan{Domains: map[types.DomainID]struct{}{types.DomainSearch: {}}}
	_, err := d.Dispatch(context.Background(), noBaseline, types.Request{})
	assert.ErrorIs(t, err, types.ErrMalformedPlan)

	unknown := planFor()
	unknown.Domains["telepathy"] = struct{}{}
	_, err = d.Dispatch(context.Background(), unknown, types.Request{})
	assert.ErrorIs(t, err, types.ErrMalformedPlan)
	assert.ErrorIs(t, err, types.ErrUnknownDomain)
}

func TestDispatch_RespectsConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	var hs []DomainHandler
	for _, dom := range types.AllDomains() {
		h := stub(dom)
		h.fn = func(context.Context, types.Request) (types.DomainResult, error) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
			return types.DomainResult{Status: types.StatusSuccess}, nil
		}
		hs = append(hs, h)
	}
	d := newDispatcher(t, 2, hs...)

	results, err := d.Dispatch(context.Background(), planFor(types.CapabilityDomains...), types.Request{})
	require.NoError(t, err)
	assert.Len(t, results, len(types.AllDomains()))
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestDispatch_RunsConcurrently(t *testing.T) {
	// every handler waits for all others to start; sequential dispatch would deadlock
	var wg sync.WaitGroup
	domains := []types.DomainID{types.DomainMemory, types.DomainSearch, types.DomainResearch}
	wg.Add(len(domains))

	var hs []DomainHandler
	for _, dom := range domains {
		h := stub(dom)
		h.fn = func(ctx context.Context, _ types.Request) (types.DomainResult, error) {
			wg.Done()
			done := make(chan struct{})
			go func() { wg.Wait(); close(done) }()
			select {
			case <-done:
				return types.DomainResult{Status: types.StatusSuccess}, nil
			case <-ctx.Done():
				return types.DomainResult{}, ctx.Err()
			}
		}
		hs = append(hs, h)
	}
	d := newDispatcher(t, 0, hs...)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	results, err := d.Dispatch(ctx, planFor(types.DomainSearch, types.DomainResearch), types.Request{})
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, types.StatusSuccess, r.Status, r.Message)
	}
}

func TestDispatch_CallerDeadline(t *testing.T) {
	slow := stub(types.DomainSearch)
	slow.fn = func(ctx context.Context, _ types.Request) (types.DomainResult, error) {
		<-ctx.Done()
		return types.DomainResult{}, ctx.Err()
	}
	d := newDispatcher(t, 0, stub(types.DomainMemory), slow)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	results, err := d.Dispatch(ctx, planFor(types.DomainSearch), types.Request{})
	require.NoError(t, err)
	assert.Equal(t, types.StatusError, results[types.DomainSearch].Status)
	assert.True(t, strings.Contains(results[types.DomainSearch].Message, "deadline"))
}

func TestRegistry(t *testing.T) {
	reg, err := NewRegistry(stub(types.DomainSearch), stub(types.DomainMemory))
	require.NoError(t, err)
	assert.Equal(t, []types.DomainID{types.DomainMemory, types.DomainSearch}, reg.Domains())

	_, ok := reg.Get(types.DomainSearch)
	assert.True(t, ok)

	reg.Unregister(types.DomainSearch)
	_, ok = reg.Get(types.DomainSearch)
	assert.False(t, ok)

	assert.Error(t, reg.Register(nil))
	err = reg.Register(stub("telepathy"))
	assert.ErrorIs(t, err, types.ErrUnknownDomain)
}

func TestHandlerFunc(t *testing.T) {
	h := HandlerFunc{ID: types.DomainAnalysis, Fn: func(context.Context, types.Request) (types.DomainResult, error) {
		return types.DomainResult{Status: types.StatusSuccess}, nil
	}}
	d := newDispatcher(t, 0, stub(types.DomainMemory), h)
	results, err := d.Dispatch(context.Background(), planFor(types.DomainAnalysis), types.Request{})
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, results[types.DomainAnalysis].Status)
}
