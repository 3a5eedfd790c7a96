// Package core wires the request pipeline together: classify, plan, fan
// out to domains, synthesize, and record feedback.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kairo/internal/articulation"
	"kairo/internal/autopoiesis"
	"kairo/internal/logging"
	"kairo/internal/perception"
	"kairo/internal/routing"
	"kairo/internal/types"
)

// Classifier scores a request.
type Classifier interface {
	Classify(req types.Request) types.ClassificationResult
}

// Planner turns a classification into an activation plan.
type Planner interface {
	Plan(cls types.ClassificationResult, ctx types.RequestContext) types.ActivationPlan
}

// Dispatcher invokes the planned domains.
type Dispatcher interface {
	Dispatch(ctx context.Context, plan types.ActivationPlan, req types.Request) (map[types.DomainID]types.DomainResult, error)
}

// Synthesizer merges domain results.
type Synthesizer interface {
	Synthesize(results map[types.DomainID]types.DomainResult, cls types.ClassificationResult) types.SynthesizedResponse
}

// Outcome is everything one orchestration produced.
type Outcome struct {
	RequestID      string
	Classification types.ClassificationResult
	Plan           types.ActivationPlan
	Results        map[types.DomainID]types.DomainResult
	Response       types.SynthesizedResponse
	Elapsed        time.Duration
}

// Orchestrator runs the request pipeline. It holds no per-request state
// and is safe for concurrent use.
type Orchestrator struct {
	classifier  Classifier
	planner     Planner
	dispatcher  Dispatcher
	synthesizer Synthesizer
	sink        types.FeedbackSink
	now         func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithClassifier sets the classifier.
func WithClassifier(c Classifier) Option {
	return func(o *Orchestrator) error {
		if c == nil {
			return errors.New("nil classifier")
		}
		o.classifier = c
		return nil
	}
}

// WithPlanner sets the planner.
func WithPlanner(p Planner) Option {
	return func(o *Orchestrator) error {
		if p == nil {
			return errors.New("nil planner")
		}
		o.planner = p
		return nil
	}
}

// WithDispatcher sets the domain dispatcher. Required.
func WithDispatcher(d Dispatcher) Option {
	return func(o *Orchestrator) error {
		if d == nil {
			return errors.New("nil dispatcher")
		}
		o.dispatcher = d
		return nil
	}
}

// WithSynthesizer sets the synthesizer.
func WithSynthesizer(s Synthesizer) Option {
	return func(o *Orchestrator) error {
		if s == nil {
			return errors.New("nil synthesizer")
		}
		o.synthesizer = s
		return nil
	}
}

// WithRecorder sets the feedback sink. Without one, no feedback is recorded.
func WithRecorder(sink types.FeedbackSink) Option {
	return func(o *Orchestrator) error {
		o.sink = sink
		return nil
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) error {
		if now == nil {
			return errors.New("nil clock")
		}
		o.now = now
		return nil
	}
}

// NewOrchestrator creates an orchestrator. Components not supplied default
// to the built-in classifier, planner and synthesizer.
func NewOrchestrator(opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{now: time.Now}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("failed to apply orchestrator option: %w", err)
		}
	}
	if o.dispatcher == nil {
		return nil, errors.New("orchestrator requires a dispatcher")
	}
	if o.classifier == nil {
		o.classifier = perception.NewClassifier(nil, perception.DefaultThresholds())
	}
	if o.planner == nil {
		o.planner = routing.NewPlanner(routing.DefaultOptions())
	}
	if o.synthesizer == nil {
		o.synthesizer = articulation.NewSynthesizer()
	}
	return o, nil
}

// Classify scores req.
func (o *Orchestrator) Classify(req types.Request) types.ClassificationResult {
	return o.classifier.Classify(req)
}

// Plan builds the activation plan for a classification.
func (o *Orchestrator) Plan(cls types.ClassificationResult, ctx types.RequestContext) types.ActivationPlan {
	return o.planner.Plan(cls, ctx)
}

// Orchestrate runs the full pipeline for req. Domain failures never
// surface as errors; they show up in the results and make the response
// partial. The only error is a malformed plan.
func (o *Orchestrator) Orchestrate(ctx context.Context, req types.Request) (Outcome, error) {
	start := o.now()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	log := logging.WithRequestID(logging.CategoryRouting, req.ID)
	audit := logging.AuditWithRequest(req.ID)

	out := Outcome{RequestID: req.ID}

	out.Classification = o.Classify(req)
	audit.Classified(string(out.Classification.Primary), out.Classification.Confidence,
		out.Classification.NeedsMultipleDomains)

	out.Plan = o.Plan(out.Classification, req.Context)
	planned := out.Plan.DomainList()
	names := make([]string, len(planned))
	for i, d := range planned {
		names[i] = string(d)
	}
	audit.Planned(names, out.Plan.Priority.String())
	log.Debug("primary=%s confidence=%d planned=%v", out.Classification.Primary,
		out.Classification.Confidence, names)

	results, err := o.dispatcher.Dispatch(ctx, out.Plan, req)
	if err != nil {
		log.Error("dispatch rejected plan: %v", err)
		return out, fmt.Errorf("orchestrate %s: %w", req.ID, err)
	}
	out.Results = results

	out.Response = o.synthesizer.Synthesize(results, out.Classification)
	audit.Synthesized(len(out.Response.Sections), out.Response.Partial)

	end := o.now()
	out.Elapsed = end.Sub(start)

	if o.sink != nil {
		o.sink.Append(autopoiesis.NewRecord(req.ID, out.Classification, out.Plan,
			results, out.Response, out.Elapsed, end))
	}

	log.Info("orchestrated %d domains in %s (partial=%v)", len(results), out.Elapsed, out.Response.Partial)
	return out, nil
}
