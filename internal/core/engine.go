package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"kairo/internal/articulation"
	"kairo/internal/autopoiesis"
	"kairo/internal/config"
	"kairo/internal/domains"
	"kairo/internal/logging"
	"kairo/internal/perception"
	"kairo/internal/routing"
	"kairo/internal/shards"
	"kairo/internal/store"
)

// Engine owns every long-lived component built from one Config: the store,
// the weight snapshot store, the rule watcher, the domain registry, the
// feedback recorder and the tuner.
type Engine struct {
	Config       *config.Config
	Store        store.Backend
	Weights      *perception.WeightStore
	Classifier   *perception.Classifier
	Planner      *routing.Planner
	Registry     *shards.Registry
	Dispatcher   *shards.Dispatcher
	Synthesizer  *articulation.Synthesizer
	Recorder     *autopoiesis.Recorder
	Tuner        *autopoiesis.Tuner
	Orchestrator *Orchestrator

	watcher *perception.RuleWatcher

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewEngine builds the engine. Nothing runs in the background until Start.
func NewEngine(ctx context.Context, cfg *config.Config) (*Engine, error) {
	timer := logging.StartTimer(logging.CategoryBoot, "NewEngine")
	defer timer.Stop()

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	backend, err := store.Open(cfg.Feedback)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	e := &Engine{Config: cfg, Store: backend}
	if err := e.build(ctx); err != nil {
		backend.Close()
		return nil, err
	}
	logging.Boot("Engine ready: backend=%s rules=%q concurrency=%d",
		cfg.Feedback.Backend, cfg.Rules.Path, cfg.Orchestrator.MaxConcurrency)
	return e, nil
}

func (e *Engine) build(ctx context.Context) error {
	cfg := e.Config

	table := perception.DefaultRuleTable()
	if cfg.Rules.Path != "" {
		loaded, err := perception.LoadRuleTable(cfg.Rules.Path)
		if err != nil {
			return fmt.Errorf("failed to load rules: %w", err)
		}
		table = loaded
		logging.Boot("Loaded %d pattern rules from %s", len(table.Patterns), cfg.Rules.Path)
	}

	e.Weights = perception.NewWeightStore(table)
	if cfg.Rules.PersistWeights {
		e.Weights.SetPersister(e.Store)
		if err := e.Weights.LoadPersisted(ctx); err != nil {
			logging.BootDebug("Continuing with declared weights: %v", err)
		}
	}

	e.Classifier = perception.NewClassifier(e.Weights, perception.ThresholdsFromConfig(cfg.Classifier))
	e.Planner = routing.NewPlanner(routing.OptionsFromConfig(cfg.Planner))

	reg, err := domains.NewRegistry(cfg, e.Store)
	if err != nil {
		return fmt.Errorf("failed to register domains: %w", err)
	}
	e.Registry = reg
	e.Dispatcher = shards.NewDispatcher(reg, cfg.Orchestrator.MaxConcurrency)
	e.Synthesizer = articulation.NewSynthesizer()
	e.Recorder = autopoiesis.NewRecorder(e.Store, cfg.Feedback.BufferSize)
	e.Tuner = autopoiesis.NewTuner(cfg.Tuner, e.Store, e.Weights)

	e.Orchestrator, err = NewOrchestrator(
		WithClassifier(e.Classifier),
		WithPlanner(e.Planner),
		WithDispatcher(e.Dispatcher),
		WithSynthesizer(e.Synthesizer),
		WithRecorder(e.Recorder),
	)
	if err != nil {
		e.Recorder.Close()
		return err
	}
	return nil
}

// Start launches the rule watcher (when configured) and the tuner (when
// enabled).
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errors.New("engine closed")
	}
	if e.started {
		return nil
	}

	if e.Config.Rules.Watch && e.Config.Rules.Path != "" {
		w, err := perception.NewRuleWatcher(e.Config.Rules.Path, e.Weights, e.Config.GetRulesDebounce())
		if err != nil {
			return fmt.Errorf("failed to create rule watcher: %w", err)
		}
		if err := w.Start(ctx); err != nil {
			w.Stop()
			return fmt.Errorf("failed to start rule watcher: %w", err)
		}
		e.watcher = w
	}

	if e.Config.Tuner.Enabled {
		if err := e.Tuner.Start(ctx, e.Config.GetTunerInterval()); err != nil {
			if e.watcher != nil {
				e.watcher.Stop()
				e.watcher = nil
			}
			return fmt.Errorf("failed to start tuner: %w", err)
		}
	}

	e.started = true
	logging.Boot("Engine started")
	return nil
}

// Close stops background work, flushes queued feedback and closes the
// store. Safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	e.Tuner.Stop()
	if e.watcher != nil {
		e.watcher.Stop()
		e.watcher = nil
	}

	var errs []error
	if err := e.Recorder.Close(); err != nil && !errors.Is(err, autopoiesis.ErrRecorderClosed) {
		errs = append(errs, err)
	}
	if err := e.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close store: %w", err))
	}
	logging.Boot("Engine closed")
	return errors.Join(errs...)
}
