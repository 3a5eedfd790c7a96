package autopoiesis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"kairo/internal/config"
	"kairo/internal/logging"
	"kairo/internal/types"
)

// ErrTunerRunning is returned when a cycle or the loop is already running.
var ErrTunerRunning = errors.New("tuner already running")

// TunerState is the tuner's position in its cycle.
type TunerState int32

const (
	StateIdle TunerState = iota
	StateAggregating
	StateAdjusting
)

func (s TunerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAggregating:
		return "aggregating"
	case StateAdjusting:
		return "adjusting"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// DomainSignal aggregates feedback for one domain.
type DomainSignal struct {
	Samples         int
	Successes       int
	SatisfactionSum float64
}

// SuccessRate is the share of samples in which the domain did not fail.
func (s DomainSignal) SuccessRate() float64 {
	if s.Samples == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Samples)
}

// MeanSatisfaction is the average satisfaction over the samples.
func (s DomainSignal) MeanSatisfaction() float64 {
	if s.Samples == 0 {
		return 0
	}
	return s.SatisfactionSum / float64(s.Samples)
}

// Observe adds one record's outcome for domain d.
func (s *DomainSignal) Observe(rec types.FeedbackRecord, d types.DomainID) {
	s.Samples++
	if !rec.FailedFor(d) {
		s.Successes++
	}
	s.SatisfactionSum += rec.Satisfaction
}

// Adjustment describes one committed weight change for a domain.
type Adjustment struct {
	Domain  types.DomainID
	Delta   int
	Rules   int
	Samples int
	Signal  DomainSignal
}

// CycleReport summarizes one tuning cycle.
type CycleReport struct {
	Records     int
	Adjustments []Adjustment
	Pending     map[types.DomainID]int
	Cursor      int64
}

// Tuner periodically aggregates feedback and nudges pattern weights. It
// only touches weights through the provider's CommitWeights, so
// classification never waits on it.
type Tuner struct {
	cfg     config.TunerConfig
	log     types.FeedbackLog
	weights types.WeightProvider

	state   atomic.Int32
	cycleMu sync.Mutex // one cycle at a time

	// guarded by cycleMu
	cursor  int64
	pending   map[types.DomainID]*DomainSignal

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	cycles atomic.Int64
}

// NewTuner creates a tuner reading log and committing to weights.
func NewTuner(cfg config.TunerConfig, log types.FeedbackLog, weights types.WeightProvider) *Tuner {
	return &Tuner{
		cfg:     cfg,
		log:     log,
		weights: weights,
		pending: make(map[types.DomainID]*DomainSignal),
	}
}

// State returns the current state.
func (t *Tuner) State() TunerState {
	return TunerState(t.state.Load())
}

// Cycles returns the number of completed cycles.
func (t *Tuner) Cycles() int64 {
	return t.cycles.Load()
}

// Cursor returns the log sequence of the newest consumed record.
func (t *Tuner) Cursor() int64 {
	t.cycleMu.Lock()
	defer t.cycleMu.Unlock()
	return t.cursor
}

// RunCycle runs Idle -> Aggregating -> Adjusting -> Idle once. Domains
// with fewer than min_samples accumulated samples carry their samples over
// to the next cycle.
func (t *Tuner) RunCycle(ctx context.Context) (CycleReport, error) {
	if !t.cycleMu.TryLock() {
		return CycleReport{}, ErrTunerRunning
	}
	defer t.cycleMu.Unlock()
	defer t.state.Store(int32(StateIdle))

	timer := logging.StartTimer(logging.CategoryAutopoiesis, "tuner cycle")
	defer timer.Stop()

	t.state.Store(int32(StateAggregating))
	records, next, err := t.log.Since(ctx, t.cursor)
	if err != nil {
		return CycleReport{}, fmt.Errorf("failed to read feedback: %w", err)
	}
	for _, rec := range records {
		t.accumulate(rec)
	}
	t.cursor = next

	report := CycleReport{Records: len(records), Cursor: t.cursor}

	t.state.Store(int32(StateAdjusting))
	for _, d := range types.CapabilityDomains {
		sig, ok := t.pending[d]
		if !ok || sig.Samples < t.cfg.MinSamples {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		adj, err := t.adjust(d, *sig)
		if err != nil {
			logging.AutopoiesisWarn("Tuner: commit for %s failed, keeping samples: %v", d, err)
			continue
		}
		delete(t.pending, d)
		if adj.Rules > 0 {
			report.Adjustments = append(report.Adjustments, adj)
		}
	}

	report.Pending = make(map[types.DomainID]int, len(t.pending))
	for d, sig := range t.pending {
		report.Pending[d] = sig.Samples
	}

	t.cycles.Add(1)
	logging.Autopoiesis("Tuner cycle: %d records, %d domains adjusted, %d pending",
		report.Records, len(report.Adjustments), len(report.Pending))
	return report, nil
}

func (t *Tuner) accumulate(rec types.FeedbackRecord) {
	for _, d := range rec.DomainsUsed {
		if d == types.BaselineDomain || !types.IsKnownDomain(d) {
			continue
		}
		sig, ok := t.pending[d]
		if !ok {
			sig = &DomainSignal{}
			t.pending[d] = sig
		}
		sig.Observe(rec, d)
	}
}

// adjust computes and commits the weight change for one domain.
func (t *Tuner) adjust(d types.DomainID, sig DomainSignal) (Adjustment, error) {
	adj := Adjustment{Domain: d, Samples: sig.Samples, Signal: sig}

	below := sig.MeanSatisfaction() < t.cfg.TargetSatisfaction || sig.SuccessRate() < t.cfg.TargetSuccessRate
	switch {
	case below:
		adj.Delta = -t.cfg.Step
	case sig.MeanSatisfaction() > t.cfg.TargetSatisfaction && sig.SuccessRate() > t.cfg.TargetSuccessRate:
		adj.Delta = t.cfg.Step
	default:
		return adj, nil
	}

	rules := t.weights.GetWeights(d)
	changed := make([]types.PatternRule, 0, len(rules))
	for _, r := range rules {
		next := t.nudge(r, adj.Delta)
		if next != r.Weight {
			r.Weight = next
			changed = append(changed, r)
		}
	}
	if len(changed) == 0 {
		return adj, nil
	}

	if err := t.weights.CommitWeights(d, changed); err != nil {
		return adj, err
	}
	adj.Rules = len(changed)
	logging.Audit().WeightsCommitted(string(d), adj.Delta, sig.Samples)
	logging.AutopoiesisDebug("Tuner: %s %+d on %d rules (satisfaction=%.2f success=%.2f n=%d)",
		d, adj.Delta, adj.Rules, sig.MeanSatisfaction(), sig.SuccessRate(), sig.Samples)
	return adj, nil
}

// nudge moves a rule weight by delta. Positive deltas only recover lost
// weight and stop at the declared weight. The result is clamped to the
// configured bounds.
func (t *Tuner) nudge(r types.PatternRule, delta int) int {
	w := r.Weight
	if delta < 0 {
		w += delta
	} else if w < r.BaseWeight {
		w += delta
		if w > r.BaseWeight {
			w = r.BaseWeight
		}
	}
	if w < t.cfg.MinWeight {
		w = t.cfg.MinWeight
	}
	if w > t.cfg.MaxWeight {
		w = t.cfg.MaxWeight
	}
	return w
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Start runs RunCycle every interval until Stop or ctx is done. Non-blocking.
func (t *Tuner) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("tuner interval must be positive, got %s", interval)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return ErrTunerRunning
	}
	t.running = true
	t.stopCh = make(chan struct{})
	t.doneCh = make(chan struct{})

	go t.loop(ctx, interval, t.stopCh, t.doneCh)
	logging.Autopoiesis("Tuner started (interval=%s)", interval)
	return nil
}

// Stop stops the loop and waits for an in-flight cycle to finish. Safe to
// call when not running.
func (t *Tuner) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	stopCh, doneCh := t.stopCh, t.doneCh
	t.mu.Unlock()

	close(stopCh)
	<-doneCh
	logging.Autopoiesis("Tuner stopped after %d cycles", t.Cycles())
}

// Running reports whether the loop is active.
func (t *Tuner) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Tuner) loop(ctx context.Context, interval time.Duration, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			if _, err := t.RunCycle(ctx); err != nil && !errors.Is(err, ErrTunerRunning) {
				logging.AutopoiesisWarn("Tuner cycle failed: %v", err)
			}
		}
	}
}
